package clients

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/index5/index5/internal/modules/ledger"
	"github.com/index5/index5/internal/modules/quotes"
)

var (
	// ErrClientNotFound means the client id does not exist
	ErrClientNotFound = errors.New("CLIENT_NOT_FOUND")
	// ErrDocumentTaken means another client already registered this document
	ErrDocumentTaken = errors.New("DOCUMENT_ALREADY_REGISTERED")
	// ErrAlreadyApproved means the client already has a sub-account
	ErrAlreadyApproved = errors.New("CLIENT_ALREADY_APPROVED")
	// ErrInvalidMonthlyValue means the contribution base is not positive
	ErrInvalidMonthlyValue = errors.New("INVALID_MONTHLY_VALUE")
)

// Service handles client lifecycle: registration, approval and the
// portfolio read model.
type Service struct {
	repo   *Repository
	store  *ledger.Store
	quotes quotes.Source
	log    zerolog.Logger
}

// NewService creates a new client service
func NewService(repo *Repository, store *ledger.Store, src quotes.Source, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		store:  store,
		quotes: src,
		log:    log.With().Str("service", "clients").Logger(),
	}
}

// Register creates a new inactive client. It stays out of purchase cycles
// until approved.
func (s *Service) Register(name, document, email string, monthlyValue decimal.Decimal) (*Client, error) {
	if !monthlyValue.IsPositive() {
		return nil, ErrInvalidMonthlyValue
	}

	existing, err := s.repo.GetByDocument(document)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDocumentTaken
	}

	client := &Client{
		Name:         name,
		Document:     document,
		Email:        email,
		MonthlyValue: monthlyValue.Round(ledger.MoneyPlaces),
		Active:       false,
		JoinDate:     time.Now().UTC(),
	}

	if err := s.repo.Create(client); err != nil {
		return nil, err
	}

	return client, nil
}

// Approve activates a client and creates its sub-account. Approval is
// what links the client to the ledger; holdings are keyed by the new
// sub-account id.
func (s *Service) Approve(clientID int64) (*Client, error) {
	client, err := s.repo.GetByID(clientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrClientNotFound
	}
	if client.Active || client.SubAccount != nil {
		return nil, ErrAlreadyApproved
	}

	accountNumber := fmt.Sprintf("SUB-%s", uuid.NewString()[:8])
	sub, err := s.repo.Activate(clientID, accountNumber)
	if err != nil {
		return nil, err
	}

	client.Active = true
	client.SubAccount = sub
	return client, nil
}

// ListActive returns all active clients
func (s *Service) ListActive() ([]Client, error) {
	return s.repo.ListActive()
}

// PortfolioPosition is one valued holding in the portfolio read model
type PortfolioPosition struct {
	Ticker        string          `json:"ticker"`
	Quantity      int64           `json:"quantity"`
	AverageCost   decimal.Decimal `json:"average_cost"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	MarketValue   decimal.Decimal `json:"market_value"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
}

// Portfolio is the per-client holdings and history view
type Portfolio struct {
	ClientID   int64               `json:"client_id"`
	Name       string              `json:"name"`
	Account    string              `json:"account"`
	TotalValue decimal.Decimal     `json:"total_value"`
	Positions  []PortfolioPosition `json:"positions"`
	History    []ledger.Operation  `json:"history"`
}

// Portfolio builds the valued portfolio view for one client. Holdings
// without a usable quote are valued at their own average cost.
func (s *Service) Portfolio(clientID int64) (*Portfolio, error) {
	client, err := s.repo.GetByID(clientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrClientNotFound
	}

	p := &Portfolio{
		ClientID:   client.ID,
		Name:       client.Name,
		TotalValue: decimal.Zero,
		Positions:  []PortfolioPosition{},
	}

	if client.SubAccount != nil {
		p.Account = client.SubAccount.AccountNumber

		holdings, err := s.store.HoldingsBySubAccount(client.SubAccount.ID)
		if err != nil {
			return nil, err
		}

		for _, h := range holdings {
			if h.Quantity == 0 {
				continue
			}

			price := s.quotes.Quote(h.Ticker)
			if !price.IsPositive() {
				price = h.AverageCost
			}

			qty := decimal.NewFromInt(h.Quantity)
			value := qty.Mul(price)

			p.Positions = append(p.Positions, PortfolioPosition{
				Ticker:        h.Ticker,
				Quantity:      h.Quantity,
				AverageCost:   h.AverageCost,
				CurrentPrice:  price,
				MarketValue:   value,
				UnrealizedPnL: value.Sub(qty.Mul(h.AverageCost)),
			})
			p.TotalValue = p.TotalValue.Add(value)
		}
	}

	history, err := s.store.HistoryByClient(clientID, 100)
	if err != nil {
		return nil, err
	}
	p.History = history

	return p, nil
}
