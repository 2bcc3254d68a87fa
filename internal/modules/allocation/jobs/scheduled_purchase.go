package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/index5/index5/internal/modules/allocation"
	"github.com/index5/index5/internal/modules/basket"
	"github.com/index5/index5/internal/modules/clients"
	"github.com/index5/index5/internal/modules/ledger"
	"github.com/index5/index5/internal/modules/quotes"
)

// purchaseAnchors are the calendar days a contribution installment is
// collected, each shifted to the next business day when it falls on a
// weekend.
var purchaseAnchors = []int{5, 15, 25}

// PurchaseJob fires the allocation engine on scheduled purchase days.
// The job owns the once-per-calendar-day guard; the engine itself
// trusts this precondition.
type PurchaseJob struct {
	engine  *allocation.Engine
	baskets *basket.Repository
	clients *clients.Repository
	store   *ledger.Store
	quotes  quotes.Source
	log     zerolog.Logger
}

// NewPurchaseJob creates a new scheduled purchase job
func NewPurchaseJob(
	engine *allocation.Engine,
	baskets *basket.Repository,
	repo *clients.Repository,
	store *ledger.Store,
	src quotes.Source,
	log zerolog.Logger,
) *PurchaseJob {
	return &PurchaseJob{
		engine:  engine,
		baskets: baskets,
		clients: repo,
		store:   store,
		quotes:  src,
		log:     log.With().Str("job", "scheduled_purchase").Logger(),
	}
}

// Name returns the job name
func (j *PurchaseJob) Name() string {
	return "scheduled_purchase"
}

// Run executes the purchase cycle when today is a purchase day and no
// cycle ran today yet.
func (j *PurchaseJob) Run() error {
	now := time.Now().UTC()

	if !IsPurchaseDay(now) {
		return nil
	}

	executed, err := j.store.HasScheduledPurchaseOn(now)
	if err != nil {
		return err
	}
	if executed {
		j.log.Info().Str("date", now.Format("2006-01-02")).Msg("Purchase already executed today")
		return nil
	}

	bkt, err := j.baskets.GetActive()
	if err != nil {
		return err
	}

	activeClients, err := j.clients.ListActive()
	if err != nil {
		return err
	}

	result, err := j.engine.ExecuteScheduledPurchase(
		context.Background(),
		bkt,
		activeClients,
		j.quotes,
		now.Format("2006-01-02"),
	)
	if err != nil {
		return err
	}

	j.log.Info().
		Int("clients", result.TotalClients).
		Str("total_pooled", result.TotalPooled.String()).
		Msg("Scheduled purchase day completed")

	return nil
}

// IsPurchaseDay reports whether the given date is one of the monthly
// purchase days (5th, 15th, 25th), each shifted to the following Monday
// when it lands on a weekend.
func IsPurchaseDay(t time.Time) bool {
	for _, anchor := range purchaseAnchors {
		due := shiftToBusinessDay(time.Date(t.Year(), t.Month(), anchor, 0, 0, 0, 0, t.Location()))
		if t.Year() == due.Year() && t.Month() == due.Month() && t.Day() == due.Day() {
			return true
		}
	}
	return false
}

// shiftToBusinessDay moves weekend dates forward to the next Monday
func shiftToBusinessDay(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, 2)
	case time.Sunday:
		return t.AddDate(0, 0, 1)
	default:
		return t
	}
}
