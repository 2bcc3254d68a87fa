package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// KafkaSink publishes events to Kafka topics
type KafkaSink struct {
	writer *kafka.Writer
	log    zerolog.Logger
}

// NewKafkaSink creates a Kafka-backed event sink
func NewKafkaSink(brokers []string, log zerolog.Logger) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
		log: log.With().Str("component", "kafka_sink").Logger(),
	}
}

// Publish serializes the payload as JSON and writes it to the topic,
// keyed for per-client partition ordering.
func (s *KafkaSink) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = s.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to write to %s: %w", topic, err)
	}

	s.log.Debug().Str("topic", topic).Str("key", key).Msg("Event published")
	return nil
}

// Close closes the underlying writer
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
