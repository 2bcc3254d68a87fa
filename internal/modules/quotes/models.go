package quotes

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source returns the latest usable price for a ticker.
// A zero or negative price means no usable quote.
type Source interface {
	Quote(ticker string) decimal.Decimal
}

// B3 market type codes carried on each COTAHIST record
const (
	MarketTypeLot        = 10
	MarketTypeFractional = 20
)

// DailyQuote is one record of a B3 COTAHIST daily quotes file
type DailyQuote struct {
	TradeDate      time.Time       `json:"trade_date"`
	BDICode        string          `json:"bdi_code"`
	Ticker         string          `json:"ticker"`
	MarketType     int             `json:"market_type"`
	CompanyName    string          `json:"company_name"`
	Open           decimal.Decimal `json:"open"`
	High           decimal.Decimal `json:"high"`
	Low            decimal.Decimal `json:"low"`
	Average        decimal.Decimal `json:"average"`
	Close          decimal.Decimal `json:"close"`
	TradedQuantity int64           `json:"traded_quantity"`
	TradedVolume   decimal.Decimal `json:"traded_volume"`
}

// Static is a fixed in-memory quote source, used by tests and dev mode
type Static map[string]decimal.Decimal

// Quote returns the configured price, or zero when the ticker is unknown
func (s Static) Quote(ticker string) decimal.Decimal {
	return s[ticker]
}
