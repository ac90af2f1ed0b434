package optimizer

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

// ConsumerGroup is the optimizer worker's consumer group on opt.requests.
const ConsumerGroup = "optimizer-workers"

// requestEntry is the opt.requests payload: just enough context to trace
// which loss triggered the proposal.
type requestEntry struct {
	TraceID string    `json:"traceId"`
	Ts      time.Time `json:"ts"`
}

// RunConsumer drives opt.requests → (opt.results, notify.events).
func RunConsumer(ctx context.Context, bus *streambus.Bus, opt *Optimizer, consumerID string, idempTTL time.Duration, maxFailures int, log *logrus.Entry) error {
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
	return bus.Consume(ctx, wire.StreamOptRequests, ConsumerGroup, opts, func(ctx context.Context, entryID string, payload []byte) error {
		var entry requestEntry
		if err := json.Unmarshal(payload, &entry); err != nil {
			log.WithError(err).Warn("opt.requests: malformed payload, skipping")
			return nil
		}

		job, err := opt.Propose(ctx, entry.TraceID)
		if err != nil {
			return err
		}

		resultRaw, err := json.Marshal(job)
		if err != nil {
			return err
		}
		if _, err := bus.Append(ctx, wire.StreamOptResults, resultRaw); err != nil {
			return err
		}

		event := model.Event{
			Type:     "optimizer_proposed",
			Severity: model.SeverityInfo,
			Message:  "new risk-parameter proposal pending approval",
			Context:  map[string]interface{}{"jobId": job.JobID},
			TraceID:  entry.TraceID,
			Ts:       time.Now().UTC(),
		}
		eventRaw, err := json.Marshal(event)
		if err != nil {
			return err
		}
		_, err = bus.Append(ctx, wire.StreamNotifyEvents, eventRaw)
		return err
	})
}
