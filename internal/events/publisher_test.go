package events

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	topics   []string
	keys     []string
	payloads []interface{}
	fail     bool
}

func (s *recordingSink) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	if s.fail {
		return fmt.Errorf("broker down")
	}
	s.topics = append(s.topics, topic)
	s.keys = append(s.keys, key)
	s.payloads = append(s.payloads, payload)
	return nil
}

func testTopics() Topics {
	return Topics{
		TradeWithholding: "tax.trade-withholding",
		CapitalGains:     "tax.capital-gains",
	}
}

func TestPublisher_RoutesAndStampsKind(t *testing.T) {
	sink := &recordingSink{}
	pub := NewPublisher(sink, testTopics(), zerolog.Nop())

	ok := pub.PublishTradeWithholding(context.Background(), TradeWithholding{
		ClientID:      1,
		Document:      "12345678901",
		Ticker:        "AAAA3",
		OperationType: "BUY",
		Quantity:      3,
		UnitPrice:     decimal.RequireFromString("29"),
		Timestamp:     time.Now().UTC(),
	})
	assert.True(t, ok)

	ok = pub.PublishCapitalGains(context.Background(), CapitalGains{
		ClientID: 1,
		Document: "12345678901",
	})
	assert.True(t, ok)

	require.Len(t, sink.payloads, 2)
	assert.Equal(t, []string{"tax.trade-withholding", "tax.capital-gains"}, sink.topics)

	// Events of the same client key to the same partition
	assert.Equal(t, []string{"12345678901", "12345678901"}, sink.keys)

	trade := sink.payloads[0].(TradeWithholding)
	assert.Equal(t, KindTradeWithholding, trade.Kind)

	gains := sink.payloads[1].(CapitalGains)
	assert.Equal(t, KindCapitalGains, gains.Kind)
}

func TestPublisher_SwallowsSinkFailures(t *testing.T) {
	sink := &recordingSink{fail: true}
	pub := NewPublisher(sink, testTopics(), zerolog.Nop())

	assert.False(t, pub.PublishTradeWithholding(context.Background(), TradeWithholding{ClientID: 1}))
	assert.False(t, pub.PublishCapitalGains(context.Background(), CapitalGains{ClientID: 1}))
	assert.Empty(t, sink.payloads)
}
