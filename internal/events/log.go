package events

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
)

// LogSink writes events to the structured log instead of a broker.
// Used in dev mode and whenever no Kafka brokers are configured.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates a log-backed event sink
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{
		log: log.With().Str("component", "log_sink").Logger(),
	}
}

// Publish logs the event as structured JSON
func (s *LogSink) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	eventJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	s.log.Info().
		Str("topic", topic).
		Str("key", key).
		RawJSON("event", eventJSON).
		Msg("Event emitted")

	return nil
}
