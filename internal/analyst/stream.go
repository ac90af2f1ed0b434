package analyst

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

// ConsumerGroup is the analyst worker's consumer group on orchestrator.commands.
const ConsumerGroup = "analyst-workers"

// RunConsumer drives orchestrator.commands(kind=run) → analysis.signals.
func RunConsumer(ctx context.Context, bus *streambus.Bus, gen *Generator, consumerID string, idempTTL time.Duration, maxFailures int, log *logrus.Entry) error {
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
	return bus.Consume(ctx, wire.StreamOrchestratorCommands, ConsumerGroup, opts, func(ctx context.Context, entryID string, payload []byte) error {
		var cmd model.Command
		if err := json.Unmarshal(payload, &cmd); err != nil {
			log.WithError(err).Warn("orchestrator.commands: malformed payload, skipping")
			return nil
		}
		if cmd.Kind != model.CommandRun {
			return nil
		}

		signal := gen.Analyze(ctx, cmd.Symbol, cmd.RequestID, cmd.TraceID, cmd.Side, cmd.Confidence)
		out, err := json.Marshal(signal)
		if err != nil {
			return err
		}
		_, err = bus.Append(ctx, wire.StreamAnalysisSignals, out)
		return err
	})
}
