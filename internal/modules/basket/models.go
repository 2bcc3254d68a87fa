package basket

import (
	"time"

	"github.com/shopspring/decimal"
)

// BasketSize is the fixed number of assets every basket carries
const BasketSize = 5

// Item is one weighted ticker of a basket
type Item struct {
	ID            int64           `json:"id"`
	Ticker        string          `json:"ticker"`
	WeightPercent decimal.Decimal `json:"weight_percent"`
}

// Basket is one version of the recommended five-asset composition.
// At most one basket is active system-wide.
type Basket struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"created_at"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
	Items         []Item     `json:"items"`
}

// Tickers returns the basket tickers in item order
func (b *Basket) Tickers() []string {
	tickers := make([]string, 0, len(b.Items))
	for _, item := range b.Items {
		tickers = append(tickers, item.Ticker)
	}
	return tickers
}

// WeightFor returns a ticker's weight, or zero when it is not in the basket
func (b *Basket) WeightFor(ticker string) decimal.Decimal {
	for _, item := range b.Items {
		if item.Ticker == ticker {
			return item.WeightPercent
		}
	}
	return decimal.Zero
}

// RebalanceSummary reports the outcome of the client convergence pass
// triggered by a basket switch.
type RebalanceSummary struct {
	ClientsAffected int      `json:"clients_affected"`
	RemovedTickers  []string `json:"removed_tickers"`
	AddedTickers    []string `json:"added_tickers"`
}

// Rebalancer converges all client holdings to a new basket composition.
// The basket service invokes it right after a basket switch commits.
type Rebalancer interface {
	Run(newBasket, oldBasket *Basket) (*RebalanceSummary, error)
}
