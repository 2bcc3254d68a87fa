package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/index5/index5/internal/events"
	"github.com/index5/index5/internal/modules/basket"
	"github.com/index5/index5/internal/modules/clients"
	"github.com/index5/index5/internal/modules/ledger"
	"github.com/index5/index5/internal/modules/quotes"
)

var (
	// ErrBasketNotFound means no active basket exists; nothing is written
	ErrBasketNotFound = errors.New("BASKET_NOT_FOUND")
	// ErrNoActiveClients means there is nobody to pool; nothing is written
	ErrNoActiveClients = errors.New("NO_ACTIVE_CLIENTS")
)

var (
	three   = decimal.NewFromInt(3)
	hundred = decimal.NewFromInt(100)
)

// Engine executes scheduled purchase cycles: it pools client
// contributions, converts the pool into per-ticker share quantities,
// nets them against the house residual pool, distributes entitlements
// proportionally and maintains weighted-average costs. All ledger
// writes of one cycle commit as a single unit.
type Engine struct {
	store *ledger.Store
	tax   *events.Publisher
	log   zerolog.Logger
}

// NewEngine creates a new allocation engine
func NewEngine(store *ledger.Store, tax *events.Publisher, log zerolog.Logger) *Engine {
	return &Engine{
		store: store,
		tax:   tax,
		log:   log.With().Str("service", "allocation").Logger(),
	}
}

// contribution is one client's share of the pooled cycle
type contribution struct {
	client clients.Client
	amount decimal.Decimal
}

// tickerPlan is the per-ticker allocation state of one cycle
type tickerPlan struct {
	ticker  string
	price   decimal.Decimal
	desired int64
}

// ExecuteScheduledPurchase runs one purchase cycle against the given
// basket, clients and quote source. referenceDate tags the house pool
// residue origin.
//
// A ticker without a usable quote is skipped for the whole cycle; it is
// not fatal. Tax events are published only after the ledger commit and
// are best effort.
func (e *Engine) ExecuteScheduledPurchase(
	ctx context.Context,
	bkt *basket.Basket,
	activeClients []clients.Client,
	quote quotes.Source,
	referenceDate string,
) (*Result, error) {
	if bkt == nil {
		return nil, ErrBasketNotFound
	}
	if len(activeClients) == 0 {
		return nil, ErrNoActiveClients
	}

	// Each client contributes one third of the monthly value per cycle
	contributions := make([]contribution, 0, len(activeClients))
	totalPool := decimal.Zero
	for _, c := range activeClients {
		amount := c.MonthlyValue.DivRound(three, ledger.MoneyPlaces)
		contributions = append(contributions, contribution{client: c, amount: amount})
		totalPool = totalPool.Add(amount)
	}
	if !totalPool.IsPositive() {
		return nil, ErrNoActiveClients
	}

	tx, err := e.store.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	result := &Result{
		ExecutionDate:  time.Now().UTC(),
		TotalClients:   len(activeClients),
		TotalPooled:    totalPool,
		PurchaseOrders: []PurchaseOrder{},
		Distributions:  []ClientDistribution{},
		Residues:       []PoolResidue{},
	}

	// Phase 1: per-ticker target quantities, netted against the house pool
	var plans []tickerPlan
	for _, item := range bkt.Items {
		price := quote.Quote(item.Ticker)
		if !price.IsPositive() {
			e.log.Warn().Str("ticker", item.Ticker).Msg("No usable quote, skipping ticker for this cycle")
			continue
		}

		targetValue := totalPool.Mul(item.WeightPercent).Div(hundred)
		desired := targetValue.Div(price).IntPart()

		entry, err := tx.GetPoolEntry(item.Ticker)
		if err != nil {
			return nil, err
		}

		var housed int64
		if entry != nil {
			housed = entry.Quantity
		}

		toBuy := desired - housed
		if toBuy < 0 {
			toBuy = 0
		}

		if toBuy > 0 {
			result.PurchaseOrders = append(result.PurchaseOrders, PurchaseOrder{
				Ticker:        item.Ticker,
				TotalQuantity: toBuy,
				Details:       splitLots(item.Ticker, toBuy),
				UnitPrice:     price,
				TotalValue:    decimal.NewFromInt(toBuy).Mul(price),
			})
		}

		// House inventory is consumed whether or not a market order exists
		consumed := housed
		if desired < housed {
			consumed = desired
		}
		if consumed > 0 && entry != nil {
			entry.Quantity -= consumed
			if err := tx.PutPoolEntry(entry); err != nil {
				return nil, err
			}
		}

		plans = append(plans, tickerPlan{ticker: item.Ticker, price: price, desired: desired})
	}

	// Phase 2: proportional distribution against the full desired quantity.
	// Entitlement ignores how much came from the pool versus the market.
	residues := make(map[string]int64, len(plans))
	for _, p := range plans {
		residues[p.ticker] = p.desired
	}

	now := time.Now().UTC()
	var pending []events.TradeWithholding

	for _, vc := range contributions {
		dist := ClientDistribution{
			ClientID:     vc.client.ID,
			Name:         vc.client.Name,
			Contribution: vc.amount,
			Assets:       []DistributedAsset{},
		}

		for _, p := range plans {
			clientQty := decimal.NewFromInt(p.desired).Mul(vc.amount).Div(totalPool).IntPart()
			if clientQty <= 0 {
				continue
			}

			residues[p.ticker] -= clientQty
			dist.Assets = append(dist.Assets, DistributedAsset{Ticker: p.ticker, Quantity: clientQty})

			if err := e.applyBuy(tx, vc.client.SubAccountID(), p.ticker, clientQty, p.price); err != nil {
				return nil, err
			}

			operationValue := decimal.NewFromInt(clientQty).Mul(p.price)
			if err := tx.AppendOperation(&ledger.Operation{
				ClientID:      vc.client.ID,
				Ticker:        p.ticker,
				OperationType: ledger.OperationBuy,
				Quantity:      clientQty,
				UnitPrice:     p.price,
				TotalValue:    operationValue,
				OperationDate: now,
				Reason:        ledger.ReasonScheduledPurchase,
			}); err != nil {
				return nil, err
			}

			pending = append(pending, events.TradeWithholding{
				ClientID:       vc.client.ID,
				Document:       vc.client.Document,
				Ticker:         p.ticker,
				OperationType:  string(ledger.OperationBuy),
				Quantity:       clientQty,
				UnitPrice:      p.price,
				OperationValue: operationValue,
				Rate:           events.WithholdingRate,
				TaxValue:       operationValue.Mul(events.WithholdingRate).Round(ledger.MoneyPlaces),
				Timestamp:      now,
			})
		}

		result.Distributions = append(result.Distributions, dist)
	}

	// Phase 3: deposit distribution leftovers into the house pool
	origin := fmt.Sprintf("Distribution residue %s", referenceDate)
	for _, p := range plans {
		residue := residues[p.ticker]
		if residue <= 0 {
			continue
		}

		entry, err := tx.GetPoolEntry(p.ticker)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			entry = &ledger.PoolEntry{
				Ticker:      p.ticker,
				Quantity:    residue,
				AverageCost: p.price.Round(ledger.MoneyPlaces),
				Origin:      origin,
			}
		} else {
			entry.AverageCost = ledger.BlendAverageCost(entry.Quantity, entry.AverageCost, residue, p.price)
			entry.Quantity += residue
			entry.Origin = origin
		}
		if err := tx.PutPoolEntry(entry); err != nil {
			return nil, err
		}

		result.Residues = append(result.Residues, PoolResidue{Ticker: p.ticker, Quantity: residue})
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	// Publish only after a successful commit; failures are swallowed
	for _, ev := range pending {
		if e.tax.PublishTradeWithholding(ctx, ev) {
			result.TaxEventsPublished++
		}
	}

	e.log.Info().
		Int("clients", result.TotalClients).
		Str("total_pooled", result.TotalPooled.String()).
		Int("orders", len(result.PurchaseOrders)).
		Int("tax_events", result.TaxEventsPublished).
		Msg("Scheduled purchase executed")

	return result, nil
}

// applyBuy blends a buy into the client holding, creating it on first purchase
func (e *Engine) applyBuy(tx *ledger.Tx, subAccountID int64, ticker string, qty int64, price decimal.Decimal) error {
	holding, err := tx.GetHolding(subAccountID, ticker)
	if err != nil {
		return err
	}

	if holding == nil {
		holding = &ledger.Holding{
			SubAccountID: subAccountID,
			Ticker:       ticker,
			Quantity:     qty,
			AverageCost:  price.Round(ledger.MoneyPlaces),
		}
	} else {
		holding.AverageCost = ledger.BlendAverageCost(holding.Quantity, holding.AverageCost, qty, price)
		holding.Quantity += qty
	}

	return tx.PutHolding(holding)
}
