package notifier

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

// ConsumerGroup is the notifier worker's consumer group on notify.events.
const ConsumerGroup = "notifier-workers"

// RunConsumer drives notify.events dispatch. A handler error (webhook sink
// down) is left for the stream runtime's own retry-then-DLQ, landing in
// notify.events.dlq after maxFailures attempts per spec scenario 5.
func RunConsumer(ctx context.Context, bus *streambus.Bus, n *Notifier, consumerID string, idempTTL time.Duration, maxFailures int, log *logrus.Entry) error {
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
		return n.Dispatch(ctx, event)
	})
}
