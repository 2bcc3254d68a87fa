package events

import (
	"context"

	"github.com/rs/zerolog"
)

// Topics holds the two logical tax topics
type Topics struct {
	TradeWithholding string
	CapitalGains     string
}

// Publisher routes tax events to their topic through a Sink.
// Publishing is fire-and-forget: errors are logged and swallowed,
// never returned to the caller.
type Publisher struct {
	sink   Sink
	topics Topics
	log    zerolog.Logger
}

// NewPublisher creates a new tax event publisher
func NewPublisher(sink Sink, topics Topics, log zerolog.Logger) *Publisher {
	return &Publisher{
		sink:   sink,
		topics: topics,
		log:    log.With().Str("component", "tax_publisher").Logger(),
	}
}

// PublishTradeWithholding publishes a per-trade withholding event.
// Returns true when the sink accepted the event.
func (p *Publisher) PublishTradeWithholding(ctx context.Context, ev TradeWithholding) bool {
	ev.Kind = KindTradeWithholding
	if err := p.sink.Publish(ctx, p.topics.TradeWithholding, ev.Document, ev); err != nil {
		p.log.Warn().
			Err(err).
			Int64("client_id", ev.ClientID).
			Str("ticker", ev.Ticker).
			Msg("Failed to publish withholding event")
		return false
	}
	return true
}

// PublishCapitalGains publishes a monthly capital gains event.
// Returns true when the sink accepted the event.
func (p *Publisher) PublishCapitalGains(ctx context.Context, ev CapitalGains) bool {
	ev.Kind = KindCapitalGains
	if err := p.sink.Publish(ctx, p.topics.CapitalGains, ev.Document, ev); err != nil {
		p.log.Warn().
			Err(err).
			Int64("client_id", ev.ClientID).
			Msg("Failed to publish capital gains event")
		return false
	}
	return true
}
