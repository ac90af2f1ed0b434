// Package optimizer implements the Optimizer worker (C7): on each
// opt.requests entry it produces a proposed RiskParameters set plus a toy
// backtest summary, stores it as a pending OptJob, and emits it to
// opt.results and notify.events. Approval atomically writes the proposed
// parameters into the shared riskparams map Risk workers read. Grounded on
// the teacher's internal/risk/manager.go config-mutation shape (load,
// mutate, persist under a mutex), rebuilt against Redis CAS instead of the
// teacher's single-writer SQLite row.
package optimizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/tradefleet/core/internal/kv"
	"github.com/tradefleet/core/internal/model"
	"github.com/tradefleet/core/internal/riskparams"
)

var ErrJobNotFound = errors.New("optimizer: job not found")
var ErrJobNotPending = errors.New("optimizer: job is not pending approval")

type Optimizer struct {
	store  *kv.Store
	params *riskparams.Store
	rand   *rand.Rand
}

func New(store *kv.Store, params *riskparams.Store) *Optimizer {
	return &Optimizer{store: store, params: params, rand: rand.New(rand.NewSource(1))}
}

// Propose builds a pending OptJob from the current active parameters,
// nudging minConfidence upward by a fixed 0.05 step (clamped to 1) — a toy
// stand-in for the real strategy-research the spec treats as out of scope.
func (o *Optimizer) Propose(ctx context.Context, traceID string) (model.OptJob, error) {
	current, err := o.params.Get(ctx)
	if err != nil {
		return model.OptJob{}, err
	}

	proposed := current
	proposed.MinConfidence = clamp01(current.MinConfidence + 0.05)

	job := model.OptJob{
		JobID:    uuid.NewString(),
		Status:   model.OptPendingApproval,
		Proposed: proposed,
		Backtest: o.backtest(proposed),
		TraceID:  traceID,
		CreatedAt: time.Now().UTC(),
	}
	if err := o.save(ctx, job); err != nil {
		return model.OptJob{}, err
	}
	return job, nil
}

// backtest is a deterministic toy summary; real backtesting is strategy
// research, which the spec places out of scope.
func (o *Optimizer) backtest(params model.RiskParameters) model.BacktestSummary {
	return model.BacktestSummary{
		WinRate: clamp01(0.5 + params.MinConfidence/4),
		Sharpe:  1.0 + params.MinConfidence,
		MaxDD:   0.1 + (1-params.MinConfidence)*0.1,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (o *Optimizer) save(ctx context.Context, job model.OptJob) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return o.store.Client.HSet(ctx, kv.OptJobKey(job.JobID), "json", raw).Err()
}

// Get loads a job by id.
func (o *Optimizer) Get(ctx context.Context, jobID string) (model.OptJob, error) {
	raw, err := o.store.Client.HGet(ctx, kv.OptJobKey(jobID), "json").Result()
	if err != nil {
		return model.OptJob{}, ErrJobNotFound
	}
	var job model.OptJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return model.OptJob{}, fmt.Errorf("optimizer: decode job: %w", err)
	}
	return job, nil
}

// Approve transitions a pending job to approved and atomically writes its
// proposed parameters into the shared map Risk workers read.
func (o *Optimizer) Approve(ctx context.Context, jobID string) (model.OptJob, error) {
	job, err := o.Get(ctx, jobID)
	if err != nil {
		return model.OptJob{}, err
	}
	if job.Status != model.OptPendingApproval {
		return model.OptJob{}, ErrJobNotPending
	}
	if err := o.params.Put(ctx, job.Proposed); err != nil {
		return model.OptJob{}, err
	}
	job.Status = model.OptApproved
	if err := o.save(ctx, job); err != nil {
		return model.OptJob{}, err
	}
	return job, nil
}

// Reject transitions a pending job to rejected without touching active
// parameters.
func (o *Optimizer) Reject(ctx context.Context, jobID string) (model.OptJob, error) {
	job, err := o.Get(ctx, jobID)
	if err != nil {
		return model.OptJob{}, err
	}
	if job.Status != model.OptPendingApproval {
		return model.OptJob{}, ErrJobNotPending
	}
	job.Status = model.OptRejected
	if err := o.save(ctx, job); err != nil {
		return model.OptJob{}, err
	}
	return job, nil
}

// ActiveParams exposes the currently active RiskParameters (GET /optimize/params).
func (o *Optimizer) ActiveParams(ctx context.Context) (model.RiskParameters, error) {
	return o.params.Get(ctx)
}
