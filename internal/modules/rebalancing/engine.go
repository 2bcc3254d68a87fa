package rebalancing

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/index5/index5/internal/events"
	"github.com/index5/index5/internal/modules/basket"
	"github.com/index5/index5/internal/modules/clients"
	"github.com/index5/index5/internal/modules/ledger"
	"github.com/index5/index5/internal/modules/quotes"
)

var (
	hundred = decimal.NewFromInt(100)

	// salesThreshold is the cumulative sale value above which realized
	// profit triggers a capital gains event, per rebalance pass.
	salesThreshold = decimal.NewFromInt(20000)
)

// Engine converges every client's holdings to a new basket composition.
// Sells realize profit against the recorded average cost; buys blend it.
// All ledger writes of one pass commit as a single unit after the full
// client loop.
type Engine struct {
	store   *ledger.Store
	clients *clients.Repository
	quotes  quotes.Source
	tax     *events.Publisher
	log     zerolog.Logger
}

// NewEngine creates a new rebalancing engine
func NewEngine(store *ledger.Store, repo *clients.Repository, src quotes.Source, tax *events.Publisher, log zerolog.Logger) *Engine {
	return &Engine{
		store:   store,
		clients: repo,
		quotes:  src,
		tax:     tax,
		log:     log.With().Str("service", "rebalancing").Logger(),
	}
}

// Run fetches the active clients and rebalances them all. It satisfies
// the basket service's Rebalancer contract.
func (e *Engine) Run(newBasket, oldBasket *basket.Basket) (*basket.RebalanceSummary, error) {
	activeClients, err := e.clients.ListActive()
	if err != nil {
		return nil, err
	}
	return e.RebalanceAll(context.Background(), newBasket, oldBasket, activeClients, e.quotes)
}

// RebalanceAll converges all given clients to the new basket weights.
// Clients without a sub-account, or with nothing to rebalance, are
// skipped and not counted as affected.
func (e *Engine) RebalanceAll(
	ctx context.Context,
	newBasket, oldBasket *basket.Basket,
	activeClients []clients.Client,
	quote quotes.Source,
) (*basket.RebalanceSummary, error) {
	tx, err := e.store.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	summary := &basket.RebalanceSummary{
		RemovedTickers: []string{},
		AddedTickers:   []string{},
	}

	if oldBasket != nil {
		removed, added := lo.Difference(oldBasket.Tickers(), newBasket.Tickers())
		summary.RemovedTickers = removed
		summary.AddedTickers = added
	} else {
		summary.AddedTickers = newBasket.Tickers()
	}

	var pendingTrades []events.TradeWithholding
	var pendingGains []events.CapitalGains

	for _, client := range activeClients {
		if client.SubAccount == nil {
			continue
		}

		trades, gains, affected, err := e.rebalanceClient(tx, client, newBasket, quote)
		if err != nil {
			return nil, err
		}
		if !affected {
			continue
		}

		summary.ClientsAffected++
		pendingTrades = append(pendingTrades, trades...)
		pendingGains = append(pendingGains, gains...)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	// Publish only after a successful commit; failures are swallowed
	for _, ev := range pendingTrades {
		e.tax.PublishTradeWithholding(ctx, ev)
	}
	for _, ev := range pendingGains {
		e.tax.PublishCapitalGains(ctx, ev)
	}

	e.log.Info().
		Int("clients_affected", summary.ClientsAffected).
		Strs("removed", summary.RemovedTickers).
		Strs("added", summary.AddedTickers).
		Msg("Rebalancing executed")

	return summary, nil
}

// rebalanceClient converges one client. Returns affected=false when the
// client holds nothing worth rebalancing.
func (e *Engine) rebalanceClient(
	tx *ledger.Tx,
	client clients.Client,
	newBasket *basket.Basket,
	quote quotes.Source,
) (trades []events.TradeWithholding, gains []events.CapitalGains, affected bool, err error) {
	subAccountID := client.SubAccount.ID

	holdings, err := tx.HoldingsBySubAccount(subAccountID)
	if err != nil {
		return nil, nil, false, err
	}

	// Value the portfolio, falling back to the recorded average cost
	// when the quote is unusable.
	held := make(map[string]*ledger.Holding, len(holdings))
	prices := make(map[string]decimal.Decimal, len(holdings))
	currentValue := decimal.Zero

	for i := range holdings {
		h := &holdings[i]
		price := quote.Quote(h.Ticker)
		if !price.IsPositive() {
			price = h.AverageCost
		}
		held[h.Ticker] = h
		prices[h.Ticker] = price
		currentValue = currentValue.Add(decimal.NewFromInt(h.Quantity).Mul(price))
	}

	if !currentValue.IsPositive() {
		// Nothing to rebalance; the client catches up at the next
		// contribution cycle.
		return nil, nil, false, nil
	}

	heldTickers := lo.Keys(held)
	unionTickers := lo.Union(heldTickers, newBasket.Tickers())
	sort.Strings(unionTickers)

	now := time.Now().UTC()
	totalSales := decimal.Zero
	totalProfit := decimal.Zero
	var saleDetails []events.SaleDetail

	for _, ticker := range unionTickers {
		price, ok := prices[ticker]
		if !ok {
			price = quote.Quote(ticker)
		}
		if !price.IsPositive() {
			continue
		}

		var currentQty int64
		holding := held[ticker]
		if holding != nil {
			currentQty = holding.Quantity
		}

		targetPct := newBasket.WeightFor(ticker)
		targetValue := currentValue.Mul(targetPct).Div(hundred)
		targetQty := targetValue.Div(price).IntPart()

		diff := targetQty - currentQty
		switch {
		case diff < 0:
			saleQty := -diff
			profit := ledger.RealizedProfit(saleQty, price, holding.AverageCost)

			totalSales = totalSales.Add(decimal.NewFromInt(saleQty).Mul(price))
			totalProfit = totalProfit.Add(profit)
			saleDetails = append(saleDetails, events.SaleDetail{
				Ticker:       ticker,
				Quantity:     saleQty,
				SalePrice:    price,
				AveragePrice: holding.AverageCost,
				Profit:       profit,
			})

			// Selling only decrements quantity; average cost stays
			holding.Quantity -= saleQty
			if err := tx.PutHolding(holding); err != nil {
				return nil, nil, false, err
			}

			if err := e.appendOperation(tx, client.ID, ticker, ledger.OperationSell, saleQty, price, now); err != nil {
				return nil, nil, false, err
			}
			trades = append(trades, e.withholdingEvent(client, ticker, ledger.OperationSell, saleQty, price, now))

		case diff > 0:
			if holding != nil {
				holding.AverageCost = ledger.BlendAverageCost(holding.Quantity, holding.AverageCost, diff, price)
				holding.Quantity += diff
				if err := tx.PutHolding(holding); err != nil {
					return nil, nil, false, err
				}
			} else {
				if err := tx.PutHolding(&ledger.Holding{
					SubAccountID: subAccountID,
					Ticker:       ticker,
					Quantity:     diff,
					AverageCost:  price.Round(ledger.MoneyPlaces),
				}); err != nil {
					return nil, nil, false, err
				}
			}

			if err := e.appendOperation(tx, client.ID, ticker, ledger.OperationBuy, diff, price, now); err != nil {
				return nil, nil, false, err
			}
			trades = append(trades, e.withholdingEvent(client, ticker, ledger.OperationBuy, diff, price, now))
		}
	}

	// At most one capital gains event per client per pass
	if totalSales.GreaterThan(salesThreshold) && totalProfit.IsPositive() {
		gains = append(gains, events.CapitalGains{
			ClientID:       client.ID,
			Document:       client.Document,
			ReferenceMonth: now.Format("2006-01"),
			TotalSales:     totalSales,
			NetProfit:      totalProfit,
			Rate:           events.CapitalGainsRate,
			TaxValue:       totalProfit.Mul(events.CapitalGainsRate).Round(ledger.MoneyPlaces),
			SaleDetails:    saleDetails,
			Timestamp:      now,
		})
	}

	return trades, gains, true, nil
}

func (e *Engine) appendOperation(tx *ledger.Tx, clientID int64, ticker string, opType ledger.OperationType, qty int64, price decimal.Decimal, now time.Time) error {
	return tx.AppendOperation(&ledger.Operation{
		ClientID:      clientID,
		Ticker:        ticker,
		OperationType: opType,
		Quantity:      qty,
		UnitPrice:     price,
		TotalValue:    decimal.NewFromInt(qty).Mul(price),
		OperationDate: now,
		Reason:        ledger.ReasonRebalancing,
	})
}

func (e *Engine) withholdingEvent(client clients.Client, ticker string, opType ledger.OperationType, qty int64, price decimal.Decimal, now time.Time) events.TradeWithholding {
	operationValue := decimal.NewFromInt(qty).Mul(price)
	return events.TradeWithholding{
		ClientID:       client.ID,
		Document:       client.Document,
		Ticker:         ticker,
		OperationType:  string(opType),
		Quantity:       qty,
		UnitPrice:      price,
		OperationValue: operationValue,
		Rate:           events.WithholdingRate,
		TaxValue:       operationValue.Mul(events.WithholdingRate).Round(ledger.MoneyPlaces),
		Timestamp:      now,
	}
}
