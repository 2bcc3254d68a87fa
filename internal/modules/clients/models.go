package clients

import (
	"time"

	"github.com/shopspring/decimal"
)

// Client is one participant of the pooled product. A client contributes
// MonthlyValue per month, collected in three installments, and holds
// assets through a linked sub-account once approved.
type Client struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Document     string          `json:"document"`
	Email        string          `json:"email"`
	MonthlyValue decimal.Decimal `json:"monthly_value"`
	Active       bool            `json:"active"`
	JoinDate     time.Time       `json:"join_date"`
	ExitDate     *time.Time      `json:"exit_date,omitempty"`
	SubAccount   *SubAccount     `json:"sub_account,omitempty"`
}

// SubAccount is the ledger account created when a client is approved.
// Holdings are keyed by its ID, never by the client ID directly.
type SubAccount struct {
	ID            int64     `json:"id"`
	ClientID      int64     `json:"client_id"`
	AccountNumber string    `json:"account_number"`
	CreatedAt     time.Time `json:"created_at"`
}

// SubAccountID returns the linked sub-account id, or 0 when not approved yet
func (c *Client) SubAccountID() int64 {
	if c.SubAccount == nil {
		return 0
	}
	return c.SubAccount.ID
}
