package basket

import (
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAssetCount means the basket does not carry exactly five items
	ErrInvalidAssetCount = errors.New("INVALID_ASSET_COUNT")
	// ErrInvalidPercentages means the item weights do not sum to exactly 100
	ErrInvalidPercentages = errors.New("INVALID_PERCENTAGES")
	// ErrDuplicateTicker means the same ticker appears twice in one basket
	ErrDuplicateTicker = errors.New("DUPLICATE_TICKER")
)

var hundred = decimal.NewFromInt(100)

// RegisterResult is the outcome of a basket registration
type RegisterResult struct {
	Basket      *Basket           `json:"basket"`
	Previous    *Basket           `json:"previous,omitempty"`
	Rebalancing *RebalanceSummary `json:"rebalancing,omitempty"`
}

// Service validates and registers baskets, triggering the rebalancing
// pass whenever a registration supersedes an active basket.
type Service struct {
	repo       *Repository
	rebalancer Rebalancer
	log        zerolog.Logger
}

// NewService creates a new basket service
func NewService(repo *Repository, rebalancer Rebalancer, log zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		rebalancer: rebalancer,
		log:        log.With().Str("service", "basket").Logger(),
	}
}

// Validate checks the basket composition rules, one distinct error per cause
func Validate(items []Item) error {
	if len(items) != BasketSize {
		return ErrInvalidAssetCount
	}

	seen := make(map[string]bool, len(items))
	total := decimal.Zero
	for _, item := range items {
		if seen[item.Ticker] {
			return ErrDuplicateTicker
		}
		seen[item.Ticker] = true
		total = total.Add(item.WeightPercent)
	}

	if !total.Equal(hundred) {
		return ErrInvalidPercentages
	}

	return nil
}

// Register validates and stores a new basket. When the registration
// supersedes an active basket, all client holdings are rebalanced to the
// new composition right after the switch commits.
func (s *Service) Register(name string, items []Item) (*RegisterResult, error) {
	if err := Validate(items); err != nil {
		return nil, err
	}

	previous, err := s.repo.GetActive()
	if err != nil {
		return nil, err
	}

	newBasket := &Basket{Name: name, Items: items}
	if err := s.repo.Register(newBasket); err != nil {
		return nil, err
	}

	result := &RegisterResult{Basket: newBasket, Previous: previous}

	if previous != nil {
		summary, err := s.rebalancer.Run(newBasket, previous)
		if err != nil {
			// The basket switch is already committed; clients converge at
			// the next successful pass.
			s.log.Error().Err(err).Int64("basket_id", newBasket.ID).Msg("Rebalancing failed after basket switch")
			return result, err
		}
		result.Rebalancing = summary
	}

	return result, nil
}

// GetActive returns the active basket, or nil when none was registered yet
func (s *Service) GetActive() (*Basket, error) {
	return s.repo.GetActive()
}

// History returns every basket version, newest first
func (s *Service) History() ([]Basket, error) {
	return s.repo.GetAll()
}
