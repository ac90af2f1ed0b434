// Package riskworker implements the risk-evaluation algorithm (C3): gate a
// signal against the currently hot-reloaded RiskParameters and emit a
// RiskDecision, either synchronously over HTTP or as a risk.requests
// consumer publishing to risk.responses. Grounded on the ordered-rule-chain
// shape of the teacher's internal/risk/manager.go (QuickCheck), rebuilt for
// the spec's three-rule algorithm (the teacher's version checked balance
// and position limits the new domain doesn't have).
package riskworker

import (
	"context"
	"time"

	"github.com/tradefleet/core/internal/model"
	"github.com/tradefleet/core/internal/riskparams"
)

// Evaluator runs the ordered rule chain of spec §4.3.
type Evaluator struct {
	params *riskparams.Store
	now    func() time.Time
}

func New(params *riskparams.Store) *Evaluator {
	return &Evaluator{params: params, now: time.Now}
}

// Evaluate returns the RiskDecision for req, applying rules in the fixed
// order the spec mandates: blocked side, trading window, confidence floor.
func (e *Evaluator) Evaluate(ctx context.Context, req model.RiskRequest) (model.RiskDecision, error) {
	params, err := e.params.Get(ctx)
	if err != nil {
		return model.RiskDecision{}, err
	}

	decision := model.RiskDecision{
		RequestID: req.RequestID,
		TraceID:   req.TraceID,
		Ts:        e.now().UTC(),
	}

	if params.BlockSides[req.Side] {
		decision.Reason = model.ReasonBlockedSide
		return decision, nil
	}

	if params.TradingStartHour != nil && params.TradingEndHour != nil {
		if !inWindow(e.now().UTC().Hour(), *params.TradingStartHour, *params.TradingEndHour) {
			decision.Reason = model.ReasonOutsideWindow
			return decision, nil
		}
	}

	if req.Confidence < params.MinConfidence {
		decision.Reason = model.ReasonLowConfidence
		return decision, nil
	}

	decision.OK = true
	return decision, nil
}

// inWindow reports whether hour h falls in [start,end) with wrap-around
// support: start>end describes the two intervals [start,24) ∪ [0,end).
func inWindow(h, start, end int) bool {
	if start == end {
		return true
	}
	if start < end {
		return h >= start && h < end
	}
	return h >= start || h < end
}
