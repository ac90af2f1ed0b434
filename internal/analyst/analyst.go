// Package analyst implements the Analyst worker (C4): given a symbol, it
// produces a deterministic Signal carrying a side and confidence. The spec
// treats the upstream strategy as opaque and only fixes the contract (at
// most one signal per requestId, confidence in [0,1], deterministic given
// inputs), so this worker stands in a small deterministic estimator rather
// than porting the teacher's full indicator/strategy engine (out of scope:
// price discovery and strategy research are explicit non-goals).
package analyst

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/tradefleet/core/internal/model"
)

// Generator derives a Signal for a symbol given the originating command's
// identifiers.
type Generator struct {
	now func() time.Time
}

func New() *Generator {
	return &Generator{now: time.Now}
}

// Analyze is deterministic in (symbol, requestId): the same pair always
// yields the same side and confidence, satisfying the spec's repeatability
// requirement without depending on live market data this system treats as
// an external collaborator. sideOverride/confidenceOverride let a caller
// (the orchestrator, when the operator supplied side/confidence directly)
// bypass the estimator while still tagging traceId correctly.
func (g *Generator) Analyze(ctx context.Context, symbol, requestID, traceID string, sideOverride *model.Side, confidenceOverride *float64) model.Signal {
	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol + "|" + requestID))
	sum := h.Sum32()

	side := model.SideBuy
	if sum%2 == 1 {
		side = model.SideSell
	}
	confidence := float64(sum%1000) / 1000.0

	if sideOverride != nil {
		side = *sideOverride
	}
	if confidenceOverride != nil {
		confidence = *confidenceOverride
	}

	return model.Signal{
		RequestID:  requestID,
		Symbol:     symbol,
		Side:       side,
		Confidence: confidence,
		TraceID:    traceID,
		Ts:         g.now().UTC(),
	}
}
