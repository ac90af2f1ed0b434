package orchestrator

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

// ConsumerGroup is the orchestrator's consumer group across every stream it
// reads in async/hybrid mode.
const ConsumerGroup = "orchestrator"

func contentHashKeyFn(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// RunConsumers starts the three stream legs the async pipeline drives:
// analysis.signals → risk.requests, risk.responses → exec.orders/rejected,
// and exec.status → PnL update. Each runs in its own goroutine until ctx
// is canceled; RunConsumers returns immediately and offers no way to wait
// for the goroutines to finish.
func (o *Orchestrator) RunConsumers(ctx context.Context, consumerID string, idempTTL time.Duration, maxFailures int) {
	go o.consumeSignals(ctx, consumerID, idempTTL, maxFailures)
	go o.consumeRiskResponses(ctx, consumerID, idempTTL, maxFailures)
	go o.consumeExecStatus(ctx, consumerID, idempTTL, maxFailures)
}

func (o *Orchestrator) consumeSignals(ctx context.Context, consumerID string, idempTTL time.Duration, maxFailures int) {
	opts := streambus.ConsumeOpts{Consumer: consumerID, BlockMs: 2000, BatchSize: 16, IdempotencyTTL: idempTTL, MaxFailures: maxFailures, IdempotencyKeyFn: contentHashKeyFn}
	err := o.bus.Consume(ctx, wire.StreamAnalysisSignals, ConsumerGroup, opts, func(ctx context.Context, entryID string, payload []byte) error {
		var signal model.Signal
		if err := json.Unmarshal(payload, &signal); err != nil {
			o.log.WithError(err).Warn("analysis.signals: malformed payload, skipping")
			return nil
		}
		o.runs.put(signal.RequestID, &runState{Symbol: signal.Symbol, Side: signal.Side, Confidence: signal.Confidence, TraceID: signal.TraceID, Phase: phaseEvaluating})

		req := model.RiskRequest{RequestID: signal.RequestID, Symbol: signal.Symbol, Side: signal.Side, Confidence: signal.Confidence, TraceID: signal.TraceID, Ts: time.Now().UTC()}
		raw, err := json.Marshal(req)
		if err != nil {
			return err
		}
		_, err = o.bus.Append(ctx, wire.StreamRiskRequests, raw)
		return err
	})
	if err != nil {
		o.log.WithError(err).Error("analysis.signals consumer stopped")
	}
}

func (o *Orchestrator) consumeRiskResponses(ctx context.Context, consumerID string, idempTTL time.Duration, maxFailures int) {
	opts := streambus.ConsumeOpts{Consumer: consumerID, BlockMs: 2000, BatchSize: 16, IdempotencyTTL: idempTTL, MaxFailures: maxFailures, IdempotencyKeyFn: contentHashKeyFn}
	err := o.bus.Consume(ctx, wire.StreamRiskResponses, ConsumerGroup, opts, func(ctx context.Context, entryID string, payload []byte) error {
		var decision model.RiskDecision
		if err := json.Unmarshal(payload, &decision); err != nil {
			o.log.WithError(err).Warn("risk.responses: malformed payload, skipping")
			return nil
		}
		if !decision.OK {
			o.runs.setPhase(decision.RequestID, phaseRejected)
			o.emitRiskRejected(ctx, decision)
			return nil
		}

		state, known := o.runs.get(decision.RequestID)
		if !known {
			o.log.WithFields(logrus.Fields{"requestId": decision.RequestID}).Warn("risk.responses: approved for unknown requestId, treating as bug")
			return nil
		}

		day, err := o.ledger.Get(ctx)
		if err == nil && day.Halted {
			o.log.WithFields(logrus.Fields{"requestId": decision.RequestID}).Info("dropping approved order: trading halted")
			return nil
		}

		o.runs.setPhase(decision.RequestID, phaseSubmitting)
		order := model.Order{OrderID: decision.RequestID, Symbol: state.Symbol, Side: state.Side, Qty: 1, TraceID: decision.TraceID, Ts: time.Now().UTC()}
		raw, err := json.Marshal(order)
		if err != nil {
			return err
		}
		_, err = o.bus.Append(ctx, wire.StreamExecOrders, raw)
		return err
	})
	if err != nil {
		o.log.WithError(err).Error("risk.responses consumer stopped")
	}
}

func (o *Orchestrator) consumeExecStatus(ctx context.Context, consumerID string, idempTTL time.Duration, maxFailures int) {
	opts := streambus.ConsumeOpts{Consumer: consumerID, BlockMs: 2000, BatchSize: 16, IdempotencyTTL: idempTTL, MaxFailures: maxFailures, IdempotencyKeyFn: contentHashKeyFn}
	err := o.bus.Consume(ctx, wire.StreamExecStatus, ConsumerGroup, opts, func(ctx context.Context, entryID string, payload []byte) error {
		var status model.ExecStatus
		if err := json.Unmarshal(payload, &status); err != nil {
			o.log.WithError(err).Warn("exec.status: malformed payload, skipping")
			return nil
		}
		switch status.Status {
		case model.StatusFilled:
			o.runs.setPhase(status.OrderID, phaseFilled)
			o.applyFill(ctx, status)
		case model.StatusRejected, model.StatusFailed, model.StatusCanceled:
			o.runs.setPhase(status.OrderID, phaseFailed)
		}
		return nil
	})
	if err != nil {
		o.log.WithError(err).Error("exec.status consumer stopped")
	}
}
