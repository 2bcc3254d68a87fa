package allocation

import (
	"time"

	"github.com/shopspring/decimal"
)

// LotType marks how a purchase order slice trades
type LotType string

const (
	// LotStandard trades in 100-share blocks on the main market
	LotStandard LotType = "STANDARD_LOT"
	// LotFractional trades the sub-100 remainder on the fractional market
	LotFractional LotType = "FRACTIONAL"
)

// LotDetail is one tradable slice of a purchase order. Fractional slices
// carry the ticker suffixed with F, the fractional-market convention.
type LotDetail struct {
	Type     LotType `json:"type"`
	Ticker   string  `json:"ticker"`
	Quantity int64   `json:"quantity"`
}

// PurchaseOrder is the net market purchase for one ticker, after house
// pool inventory was consumed.
type PurchaseOrder struct {
	Ticker        string          `json:"ticker"`
	TotalQuantity int64           `json:"total_quantity"`
	Details       []LotDetail     `json:"details"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TotalValue    decimal.Decimal `json:"total_value"`
}

// DistributedAsset is one ticker entitlement inside a client distribution
type DistributedAsset struct {
	Ticker   string `json:"ticker"`
	Quantity int64  `json:"quantity"`
}

// ClientDistribution reports what one client received in a purchase cycle
type ClientDistribution struct {
	ClientID     int64              `json:"client_id"`
	Name         string             `json:"name"`
	Contribution decimal.Decimal    `json:"contribution"`
	Assets       []DistributedAsset `json:"assets"`
}

// PoolResidue is the leftover of one ticker deposited into the house pool
type PoolResidue struct {
	Ticker   string `json:"ticker"`
	Quantity int64  `json:"quantity"`
}

// Result is the outcome of one scheduled purchase cycle
type Result struct {
	ExecutionDate      time.Time            `json:"execution_date"`
	TotalClients       int                  `json:"total_clients"`
	TotalPooled        decimal.Decimal      `json:"total_pooled"`
	PurchaseOrders     []PurchaseOrder      `json:"purchase_orders"`
	Distributions      []ClientDistribution `json:"distributions"`
	Residues           []PoolResidue        `json:"residues"`
	TaxEventsPublished int                  `json:"tax_events_published"`
}

// splitLots breaks a net purchase quantity into tradable slices:
// one standard-lot slice of full 100-share blocks, one fractional slice
// for the remainder.
func splitLots(ticker string, quantity int64) []LotDetail {
	var details []LotDetail

	standardLots := quantity / 100
	fractional := quantity % 100

	if standardLots > 0 {
		details = append(details, LotDetail{
			Type:     LotStandard,
			Ticker:   ticker,
			Quantity: standardLots * 100,
		})
	}

	if fractional > 0 {
		details = append(details, LotDetail{
			Type:     LotFractional,
			Ticker:   ticker + "F",
			Quantity: fractional,
		})
	}

	return details
}
