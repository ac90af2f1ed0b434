package integrations

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tradefleet/core/internal/model"
	"github.com/tradefleet/core/internal/streambus"
	"github.com/tradefleet/core/internal/wire"
)

// ConsumerGroup is the integrations broker's consumer group on notify.events.
const ConsumerGroup = "integrations-workers"

// RunConsumer drives notify.events → ticket/knowledge-base dispatch.
// Non-critical events and per-target failures never fail the stream entry
// (spec §4.9): the handler always acks.
func RunConsumer(ctx context.Context, bus *streambus.Bus, broker *Broker, consumerID string, idempTTL time.Duration, maxFailures int, log *logrus.Entry) error {
	opts := streambus.ConsumeOpts{
		Consumer:       consumerID,
		BlockMs:        2000,
		BatchSize:      16,
		IdempotencyTTL: idempTTL,
		MaxFailures:    maxFailures,
		IdempotencyKeyFn: func(payload []byte) string {
			sum := sha256.Sum256(payload)
			return hex.EncodeToString(sum[:])
		},
	}
	return bus.Consume(ctx, wire.StreamNotifyEvents, ConsumerGroup, opts, func(ctx context.Context, entryID string, payload []byte) error {
		var event model.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			log.WithError(err).Warn("notify.events: malformed payload, skipping")
			return nil
		}
		outcomes := broker.Handle(ctx, event)
		if len(outcomes) > 0 {
			log.WithFields(logrus.Fields{"traceId": event.TraceID, "outcomes": outcomes}).Info("integration dispatch complete")
		}
		return nil
	})
}
