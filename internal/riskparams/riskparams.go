// Package riskparams owns the single keyed RiskParameters map in shared KV
// (spec §3/§6, key optimizer:active_params) that every Risk worker instance
// reads and that an approved OptJob atomically overwrites. Readers may cache
// with a TTL of at most 5 seconds per the spec's hot-reload contract.
package riskparams

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tradefleet/core/internal/kv"
	"github.com/tradefleet/core/internal/model"
)

// Store reads/writes RiskParameters as a single JSON blob under one hash
// field, so Put is a single atomic write a concurrent Get either fully sees
// or fully misses.
type Store struct {
	kv *kv.Store

	mu        sync.Mutex
	cached    model.RiskParameters
	cachedAt  time.Time
	cacheTTL  time.Duration
}

const field = "json"

func New(store *kv.Store, cacheTTL time.Duration) *Store {
	if cacheTTL <= 0 || cacheTTL > 5*time.Second {
		cacheTTL = 5 * time.Second
	}
	return &Store{kv: store, cacheTTL: cacheTTL}
}

// NewStatic returns a Store pre-seeded with params and no Redis handle; its
// cache stays valid for 24 hours, so Get serves params without contacting
// Redis for that long. Used by tests that only
// want to exercise the rule chain against a fixed parameter set.
func NewStatic(params model.RiskParameters) *Store {
	return &Store{cached: params, cachedAt: time.Now(), cacheTTL: 24 * time.Hour}
}

// Default returns the parameter set new deployments start with: no blocked
// sides, no trading window, minConfidence effectively disabled.
func Default() model.RiskParameters {
	return model.RiskParameters{
		MinConfidence: 0,
		BlockSides:    map[model.Side]bool{},
	}
}

// Get returns the current parameters, served from an in-process cache no
// older than cacheTTL to keep the hot evaluation path cheap.
func (s *Store) Get(ctx context.Context) (model.RiskParameters, error) {
	s.mu.Lock()
	if time.Since(s.cachedAt) < s.cacheTTL && !s.cachedAt.IsZero() {
		cached := s.cached
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	raw, err := s.kv.Client.HGet(ctx, kv.OptimizerParamsKey, field).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Default(), nil
		}
		return model.RiskParameters{}, fmt.Errorf("riskparams: get: %w", err)
	}
	var params model.RiskParameters
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return model.RiskParameters{}, fmt.Errorf("riskparams: decode: %w", err)
	}

	s.mu.Lock()
	s.cached = params
	s.cachedAt = time.Now()
	s.mu.Unlock()

	return params, nil
}

// Put overwrites the parameter map atomically (single HSET of a single
// field); a concurrent reader either sees the full previous value or the
// full new value, never a mix.
func (s *Store) Put(ctx context.Context, params model.RiskParameters) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("riskparams: encode: %w", err)
	}
	if err := s.kv.Client.HSet(ctx, kv.OptimizerParamsKey, field, raw).Err(); err != nil {
		return fmt.Errorf("riskparams: put: %w", err)
	}
	s.mu.Lock()
	s.cached = params
	s.cachedAt = time.Now()
	s.mu.Unlock()
	return nil
}
