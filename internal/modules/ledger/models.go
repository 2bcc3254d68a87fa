package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// OperationType is the side of a ledger operation
type OperationType string

const (
	OperationBuy  OperationType = "BUY"
	OperationSell OperationType = "SELL"
)

// Reason tags why an operation happened
type Reason string

const (
	ReasonScheduledPurchase Reason = "SCHEDULED_PURCHASE"
	ReasonRebalancing       Reason = "REBALANCING"
)

// Holding is a client position in one ticker, keyed by sub-account + ticker.
// AverageCost is meaningless when Quantity is zero.
type Holding struct {
	ID           int64           `json:"id"`
	SubAccountID int64           `json:"sub_account_id"`
	Ticker       string          `json:"ticker"`
	Quantity     int64           `json:"quantity"`
	AverageCost  decimal.Decimal `json:"average_cost"`
}

// PoolEntry is the house residual pool position for one ticker.
// It absorbs distribution leftovers and is consumed before new purchases.
type PoolEntry struct {
	ID          int64           `json:"id"`
	Ticker      string          `json:"ticker"`
	Quantity    int64           `json:"quantity"`
	AverageCost decimal.Decimal `json:"average_cost"`
	Origin      string          `json:"origin"`
}

// Operation is one append-only history row. Rows are never updated or deleted.
type Operation struct {
	ID            int64           `json:"id"`
	ClientID      int64           `json:"client_id"`
	Ticker        string          `json:"ticker"`
	OperationType OperationType   `json:"operation_type"`
	Quantity      int64           `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TotalValue    decimal.Decimal `json:"total_value"`
	OperationDate time.Time       `json:"operation_date"`
	Reason        Reason          `json:"reason"`
}
