package executor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tradefleet/core/internal/model"
	"github.com/tradefleet/core/internal/streambus"
	"github.com/tradefleet/core/internal/wire"
)

// ConsumerGroup is the executor worker's consumer group on exec.orders.
const ConsumerGroup = "executor-workers"

// RunConsumer drives exec.orders → exec.status. The idempotency key is the
// orderId itself: runtime-level idempotency (§4.1) and the executor's own
// application-level orderId check (§4.5) are intentionally double-bound.
func RunConsumer(ctx context.Context, bus *streambus.Bus, exec *Executor, consumerID string, idempTTL time.Duration, maxFailures int, log *logrus.Entry) error {
	opts := streambus.ConsumeOpts{
		Consumer:       consumerID,
		BlockMs:        2000,
		BatchSize:      16,
		IdempotencyTTL: idempTTL,
		MaxFailures:    maxFailures,
		IdempotencyKeyFn: func(payload []byte) string {
			var order model.Order
			if err := json.Unmarshal(payload, &order); err != nil {
				return string(payload)
			}
			return order.OrderID
		},
	}
	return bus.Consume(ctx, wire.StreamExecOrders, ConsumerGroup, opts, func(ctx context.Context, entryID string, payload []byte) error {
		var order model.Order
		if err := json.Unmarshal(payload, &order); err != nil {
			log.WithError(err).Warn("exec.orders: malformed payload, skipping")
			return nil
		}
		status, err := exec.Handle(ctx, order)
		if err != nil {
			return err
		}
		out, err := json.Marshal(status)
		if err != nil {
			return err
		}
		_, err = bus.Append(ctx, wire.StreamExecStatus, out)
		return err
	})
}
