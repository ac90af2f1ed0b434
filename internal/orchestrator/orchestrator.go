// Package orchestrator implements the pipeline driver (C8): HTTP front
// door, PnL owner, and admin/chat control plane. It drives signals through
// analyst → risk → executor synchronously (mode=http), asynchronously via
// the stream runtime (mode=pubsub), or a hybrid of the two (sync
// analyst+risk, async exec — the spec's fixed reading of its COMM_MODE
// Open Question). Grounded on the teacher's main.go wiring style (explicit
// constructor injection of every collaborator, no framework DI container)
// and its strategy-engine → risk → order pipeline shape, generalized from
// an in-process call chain into HTTP/stream hops across seven services.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tradefleet/core/internal/auditlog"
	"github.com/tradefleet/core/internal/httpmw"
	"github.com/tradefleet/core/internal/kv"
	"github.com/tradefleet/core/internal/model"
	"github.com/tradefleet/core/internal/pnl"
	"github.com/tradefleet/core/internal/streambus"
	"github.com/tradefleet/core/internal/wire"
)

// serviceTokenTTL bounds the lifetime of the service token the orchestrator
// signs for each synchronous inter-service call; short enough that a leaked
// token is useless well before the next call would need a fresh one anyway.
const serviceTokenTTL = 30 * time.Second

// Config bundles the orchestrator-specific knobs drawn from spec §6.
type Config struct {
	CommMode           model.CommMode
	StartEquity        float64
	DailyTargetPct     float64
	EnableOptOnLoss    bool
	OptMinLoss         float64
	OptCooldownSeconds int
	JWTSecret          string
}

type Orchestrator struct {
	cfg    Config
	store  *kv.Store
	bus    *streambus.Bus
	ledger *pnl.Ledger
	audit  *auditlog.DB
	log    *logrus.Entry

	analystHTTP  *resty.Client
	riskHTTP     *resty.Client
	executorHTTP *resty.Client

	runs *runTable
	ws   *localBus
}

func New(cfg Config, store *kv.Store, bus *streambus.Bus, ledger *pnl.Ledger, audit *auditlog.DB, log *logrus.Entry, analystURL, riskURL, executorURL string) *Orchestrator {
	newClient := func(base string) *resty.Client {
		c := resty.New().SetBaseURL(base).SetTimeout(5 * time.Second)
		c.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			token, err := httpmw.SignServiceToken(cfg.JWTSecret, "orchestrator", serviceTokenTTL)
			if err != nil {
				return fmt.Errorf("orchestrator: sign service token: %w", err)
			}
			r.SetAuthScheme("Bearer")
			r.SetAuthToken(token)
			return nil
		})
		return c
	}
	return &Orchestrator{
		cfg:          cfg,
		store:        store,
		bus:          bus,
		ledger:       ledger,
		audit:        audit,
		log:          log,
		analystHTTP:  newClient(analystURL),
		riskHTTP:     newClient(riskURL),
		executorHTTP: newClient(executorURL),
		runs:         newRunTable(10 * time.Minute),
		ws:           newLocalBus(),
	}
}

// RunResult is what AcceptRun returns to the HTTP caller.
type RunResult struct {
	StatusCode int
	Body       map[string]interface{}
}

// AcceptRun implements run acceptance (spec §4.8 step 1-3) and then
// dispatches per mode.
func (o *Orchestrator) AcceptRun(ctx context.Context, symbol string, mode model.CommMode, side *model.Side, confidence *float64) RunResult {
	day, err := o.ledger.InitDayIfNeeded(ctx, o.cfg.StartEquity, o.cfg.DailyTargetPct)
	if err != nil {
		return RunResult{StatusCode: 500, Body: map[string]interface{}{"code": "INTERNAL_ERROR", "error": "pnl init failed"}}
	}
	if day.Halted {
		return RunResult{StatusCode: 409, Body: map[string]interface{}{"code": "HALTED", "pnl": day}}
	}

	requestID := uuid.NewString()
	traceID := requestID

	if o.audit != nil {
		_ = o.audit.RecordRun(ctx, auditlog.RunRecord{
			RequestID: requestID, TraceID: traceID, Symbol: symbol,
			Side: string(sideOrEmpty(side)), Confidence: confidenceOrZero(confidence),
			Decision: "accepted", CreatedAt: time.Now().UTC(),
		})
	}

	if mode == "" {
		mode = o.cfg.CommMode
	}

	switch mode {
	case model.ModeHTTP:
		return o.runSync(ctx, requestID, traceID, symbol, side, confidence)
	case model.ModeHybrid:
		return o.runHybrid(ctx, requestID, traceID, symbol, side, confidence)
	default:
		return o.runAsync(ctx, requestID, traceID, symbol, side, confidence)
	}
}

func sideOrEmpty(s *model.Side) model.Side {
	if s == nil {
		return ""
	}
	return *s
}
func confidenceOrZero(c *float64) float64 {
	if c == nil {
		return 0
	}
	return *c
}

// runSync implements the fully synchronous HTTP path: analyst → risk →
// (re-check halted) → executor, all blocking.
func (o *Orchestrator) runSync(ctx context.Context, requestID, traceID, symbol string, side *model.Side, confidence *float64) RunResult {
	signal, err := o.callAnalyze(ctx, symbol, requestID, traceID, side, confidence)
	if err != nil {
		return o.pipelineFailed(err)
	}

	decision, err := o.callEvaluate(ctx, signal)
	if err != nil {
		return o.pipelineFailed(err)
	}
	if !decision.OK {
		o.emitRiskRejected(ctx, decision)
		return RunResult{StatusCode: 202, Body: map[string]interface{}{"requestId": requestID, "traceId": traceID, "signal": signal, "decision": decision}}
	}

	day, err := o.ledger.Get(ctx)
	if err == nil && day.Halted {
		return RunResult{StatusCode: 409, Body: map[string]interface{}{"code": "HALTED", "pnl": day}}
	}

	order := model.Order{OrderID: requestID, Symbol: signal.Symbol, Side: signal.Side, Qty: 1, TraceID: traceID, Ts: time.Now().UTC()}
	status, err := o.callSubmit(ctx, order)
	if err != nil {
		return o.pipelineFailed(err)
	}
	if status.Status == model.StatusFilled {
		o.applyFill(ctx, status)
	}

	return RunResult{StatusCode: 202, Body: map[string]interface{}{
		"requestId": requestID, "traceId": traceID, "signal": signal, "decision": decision, "status": status,
	}}
}

// runHybrid calls analyst+risk synchronously, then dispatches the order
// asynchronously via exec.orders (the spec's fixed reading of COMM_MODE=hybrid).
func (o *Orchestrator) runHybrid(ctx context.Context, requestID, traceID, symbol string, side *model.Side, confidence *float64) RunResult {
	signal, err := o.callAnalyze(ctx, symbol, requestID, traceID, side, confidence)
	if err != nil {
		return o.pipelineFailed(err)
	}
	decision, err := o.callEvaluate(ctx, signal)
	if err != nil {
		return o.pipelineFailed(err)
	}
	if !decision.OK {
		o.emitRiskRejected(ctx, decision)
		return RunResult{StatusCode: 202, Body: map[string]interface{}{"requestId": requestID, "traceId": traceID, "signal": signal, "decision": decision}}
	}

	day, err := o.ledger.Get(ctx)
	if err == nil && day.Halted {
		return RunResult{StatusCode: 409, Body: map[string]interface{}{"code": "HALTED", "pnl": day}}
	}

	o.runs.put(requestID, &runState{Symbol: signal.Symbol, Side: signal.Side, Confidence: signal.Confidence, TraceID: traceID, Phase: phaseApproved})

	order := model.Order{OrderID: requestID, Symbol: signal.Symbol, Side: signal.Side, Qty: 1, TraceID: traceID, Ts: time.Now().UTC()}
	raw, _ := json.Marshal(order)
	if _, err := o.bus.Append(ctx, wire.StreamExecOrders, raw); err != nil {
		return o.pipelineFailed(err)
	}

	return RunResult{StatusCode: 202, Body: map[string]interface{}{"requestId": requestID, "traceId": traceID, "signal": signal, "decision": decision}}
}

// runAsync appends the run as a command and lets the stream consumers in
// stream.go drive the rest of the state machine.
func (o *Orchestrator) runAsync(ctx context.Context, requestID, traceID, symbol string, side *model.Side, confidence *float64) RunResult {
	o.runs.put(requestID, &runState{Symbol: symbol, TraceID: traceID, Phase: phaseAccepted})

	cmd := model.Command{
		Kind: model.CommandRun, RequestID: requestID, Symbol: symbol,
		Side: side, Confidence: confidence, TraceID: traceID, Ts: time.Now().UTC(),
	}
	raw, err := json.Marshal(cmd)
	if err != nil {
		return o.pipelineFailed(err)
	}
	if _, err := o.bus.Append(ctx, wire.StreamOrchestratorCommands, raw); err != nil {
		return o.pipelineFailed(err)
	}
	return RunResult{StatusCode: 202, Body: map[string]interface{}{"requestId": requestID, "traceId": traceID}}
}

func (o *Orchestrator) pipelineFailed(err error) RunResult {
	o.log.WithError(err).Warn("pipeline_failed")
	return RunResult{StatusCode: 502, Body: map[string]interface{}{"code": "PIPELINE_FAILED", "error": "downstream call failed"}}
}

func (o *Orchestrator) callAnalyze(ctx context.Context, symbol, requestID, traceID string, side *model.Side, confidence *float64) (model.Signal, error) {
	var signal model.Signal
	resp, err := o.analystHTTP.R().SetContext(ctx).
		SetBody(map[string]interface{}{"symbol": symbol, "requestId": requestID, "traceId": traceID, "side": side, "confidence": confidence}).
		SetResult(&signal).Post("/analysis/analyze")
	if err != nil {
		return model.Signal{}, fmt.Errorf("orchestrator: analyst call: %w", err)
	}
	if resp.IsError() {
		return model.Signal{}, fmt.Errorf("orchestrator: analyst returned %d", resp.StatusCode())
	}
	return signal, nil
}

func (o *Orchestrator) callEvaluate(ctx context.Context, signal model.Signal) (model.RiskDecision, error) {
	var decision model.RiskDecision
	resp, err := o.riskHTTP.R().SetContext(ctx).
		SetBody(map[string]interface{}{
			"symbol": signal.Symbol, "side": signal.Side, "confidence": signal.Confidence,
			"requestId": signal.RequestID, "traceId": signal.TraceID,
		}).
		SetResult(&decision).Post("/risk/evaluate")
	if err != nil {
		return model.RiskDecision{}, fmt.Errorf("orchestrator: risk call: %w", err)
	}
	if resp.IsError() {
		return model.RiskDecision{}, fmt.Errorf("orchestrator: risk returned %d", resp.StatusCode())
	}
	return decision, nil
}

func (o *Orchestrator) callSubmit(ctx context.Context, order model.Order) (model.ExecStatus, error) {
	var status model.ExecStatus
	resp, err := o.executorHTTP.R().SetContext(ctx).SetBody(order).SetResult(&status).Post("/trade/submit")
	if err != nil {
		return model.ExecStatus{}, fmt.Errorf("orchestrator: executor call: %w", err)
	}
	if resp.IsError() {
		return model.ExecStatus{}, fmt.Errorf("orchestrator: executor returned %d", resp.StatusCode())
	}
	return status, nil
}

func (o *Orchestrator) emitRiskRejected(ctx context.Context, decision model.RiskDecision) {
	event := model.Event{
		Type: "risk_rejected", Severity: model.SeverityInfo,
		Message: fmt.Sprintf("rejected: %s", decision.Reason),
		Context: map[string]interface{}{"reason": decision.Reason},
		RequestID: decision.RequestID, TraceID: decision.TraceID, Ts: time.Now().UTC(),
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return
	}
	if _, err := o.bus.Append(ctx, wire.StreamNotifyEvents, raw); err != nil {
		o.log.WithError(err).Warn("failed to emit risk_rejected event")
	}
}

// applyFill increments the PnL ledger for a filled order, latches the daily
// halt if the target is crossed, and — independently — triggers the
// loss-driven optimizer request under its cooldown (spec §4.8 step 4).
func (o *Orchestrator) applyFill(ctx context.Context, status model.ExecStatus) {
	day, err := o.ledger.Increment(ctx, status.Profit)
	if err != nil {
		o.log.WithError(err).Error("pnl increment failed")
		return
	}
	o.ws.Publish(topicPnLUpdate, day)

	if day.Halted {
		o.broadcastHalt(ctx, day.HaltReason)
	}

	if o.cfg.EnableOptOnLoss && status.Profit <= -o.cfg.OptMinLoss {
		o.maybeTriggerOptimizer(ctx, status.TraceID)
	}
}

func (o *Orchestrator) broadcastHalt(ctx context.Context, reason string) {
	cmd := model.Command{Kind: model.CommandHalt, Reason: reason, Ts: time.Now().UTC()}
	raw, _ := json.Marshal(cmd)
	_, _ = o.bus.Append(ctx, wire.StreamOrchestratorCommands, raw)

	event := model.Event{Type: reason, Severity: model.SeverityWarning, Message: "trading halted: " + reason, Ts: time.Now().UTC()}
	eventRaw, _ := json.Marshal(event)
	_, _ = o.bus.Append(ctx, wire.StreamNotifyEvents, eventRaw)
}

func (o *Orchestrator) maybeTriggerOptimizer(ctx context.Context, traceID string) {
	ok, err := o.store.Client.SetNX(ctx, kv.OptCooldownLossKey, "1", time.Duration(o.cfg.OptCooldownSeconds)*time.Second).Result()
	if err != nil || !ok {
		return // cooldown active, or the check itself failed — either way, skip.
	}
	entry := map[string]interface{}{"traceId": traceID, "ts": time.Now().UTC()}
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if _, err := o.bus.Append(ctx, wire.StreamOptRequests, raw); err != nil {
		o.log.WithError(err).Warn("failed to append opt.requests")
	}
}

// PnLStatus returns the current PnLDay for GET /pnl/status.
func (o *Orchestrator) PnLStatus(ctx context.Context) (model.PnLDay, error) {
	return o.ledger.Get(ctx)
}
