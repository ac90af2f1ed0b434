// Package integrations implements the Integrations broker (C9): on
// severity=critical events only, it attempts ticket creation and
// knowledge-base paging through two independent injected callables so one
// target's failure never blocks the other. Grounded on the spec's own
// re-architecture note (§9: "callback-heavy integration handlers recast as
// pure functions handleEvent(event, deps)") — there is no teacher
// equivalent, so this is built from that note plus the pack's per-target
// Prometheus counter pattern in internal/metrics.
package integrations

import (
	"context"
	"errors"

	"github.com/tradefleet/core/internal/metrics"
	"github.com/tradefleet/core/internal/model"
)

// Target is one outbound integration (ticketing system, knowledge base).
type Target struct {
	Name string
	Call func(ctx context.Context, event model.Event) error
}

type Broker struct {
	targets []Target
	metrics *metrics.Registry
}

func New(metrics *metrics.Registry, targets ...Target) *Broker {
	return &Broker{targets: targets, metrics: metrics}
}

// Outcome records one target's dispatch result.
type Outcome struct {
	Target string
	Result string // ok | fail | error
}

// Handle is the pure function the spec's design note calls for:
// handleEvent(event, deps) → outcomes. Non-critical events are a no-op
// success with zero outcomes; a target's failure is independent of the
// others'.
func (b *Broker) Handle(ctx context.Context, event model.Event) []Outcome {
	if event.Severity != model.SeverityCritical {
		return nil
	}
	outcomes := make([]Outcome, 0, len(b.targets))
	for _, t := range b.targets {
		result := "ok"
		if err := t.Call(ctx, event); err != nil {
			result = "fail"
			if errors.Is(err, errTransport) {
				result = "error"
			}
		}
		outcomes = append(outcomes, Outcome{Target: t.Name, Result: result})
		if b.metrics != nil {
			b.metrics.IntegrationOut.WithLabelValues(t.Name, result).Inc()
		}
	}
	return outcomes
}
