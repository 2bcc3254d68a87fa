package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Tax rates carried on every event payload
var (
	// WithholdingRate applies to every trade regardless of gain or loss
	WithholdingRate = decimal.New(5, -5) // 0.00005
	// CapitalGainsRate applies to net realized profit above the sales threshold
	CapitalGainsRate = decimal.New(20, -2) // 0.20
)

// Kind discriminates the two tax event payloads
type Kind string

const (
	KindTradeWithholding Kind = "TRADE_WITHHOLDING"
	KindCapitalGains     Kind = "CAPITAL_GAINS"
)

// Sink publishes serialized events to a message broker.
// Implementations are best-effort: the caller never treats a publish
// failure as fatal.
type Sink interface {
	Publish(ctx context.Context, topic, key string, payload interface{}) error
}

// TradeWithholding is the per-trade withholding tax event, emitted for
// every executed BUY/SELL leg regardless of profit or loss.
type TradeWithholding struct {
	Kind           Kind            `json:"kind"`
	ClientID       int64           `json:"clientId"`
	Document       string          `json:"document"`
	Ticker         string          `json:"ticker"`
	OperationType  string          `json:"operationType"` // BUY or SELL
	Quantity       int64           `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	OperationValue decimal.Decimal `json:"operationValue"`
	Rate           decimal.Decimal `json:"rate"`
	TaxValue       decimal.Decimal `json:"taxValue"`
	Timestamp      time.Time       `json:"timestamp"`
}

// SaleDetail describes one sell leg contributing to a capital gains event
type SaleDetail struct {
	Ticker       string          `json:"ticker"`
	Quantity     int64           `json:"quantity"`
	SalePrice    decimal.Decimal `json:"salePrice"`
	AveragePrice decimal.Decimal `json:"averagePrice"`
	Profit       decimal.Decimal `json:"profit"`
}

// CapitalGains is the threshold-triggered capital gains tax event,
// emitted at most once per client per rebalance pass.
type CapitalGains struct {
	Kind           Kind            `json:"kind"`
	ClientID       int64           `json:"clientId"`
	Document       string          `json:"document"`
	ReferenceMonth string          `json:"referenceMonth"` // YYYY-MM
	TotalSales     decimal.Decimal `json:"totalSales"`
	NetProfit      decimal.Decimal `json:"netProfit"`
	Rate           decimal.Decimal `json:"rate"`
	TaxValue       decimal.Decimal `json:"taxValue"`
	SaleDetails    []SaleDetail    `json:"saleDetails"`
	Timestamp      time.Time       `json:"timestamp"`
}
