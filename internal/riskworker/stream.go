package riskworker

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

// ConsumerGroup is the single risk-worker consumer group name; horizontally
// scaled instances share it so the runtime delivers each request once.
const ConsumerGroup = "risk-workers"

// RunConsumer drives the risk.requests → risk.responses stream leg. It runs
// until ctx is canceled.
func RunConsumer(ctx context.Context, bus *streambus.Bus, eval *Evaluator, consumerID string, idempTTL time.Duration, maxFailures int, log *logrus.Entry) error {
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
	return bus.Consume(ctx, wire.StreamRiskRequests, ConsumerGroup, opts, func(ctx context.Context, entryID string, payload []byte) error {
		var req model.RiskRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			log.WithError(err).Warn("risk.requests: malformed payload, skipping")
			return nil
		}
		decision, err := eval.Evaluate(ctx, req)
		if err != nil {
			return err
		}
		out, err := json.Marshal(decision)
		if err != nil {
			return err
		}
		if _, err := bus.Append(ctx, wire.StreamRiskResponses, out); err != nil {
			return err
		}
		return nil
	})
}
