// Package kv wraps the shared Redis keyspace every service reads and writes:
// the PnL ledger, risk parameters, idempotency records, order state,
// cooldown keys and the notifier's recent-events list, per the layout in
// spec §6. Grounded on the pack's redis/go-redis/v9 usage in
// brokle-ai-brokle's telemetry stream consumer and alanyoungcy-polymarketbot.
package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is a thin, typed wrapper around a *redis.Client.
type Store struct {
	Client *redis.Client
}

// Open parses a redis:// URL and returns a Store. No connection is made
// here; the client connects on first use.
func Open(url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("kv: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	return &Store{Client: client}, nil
}

// Ping verifies connectivity at startup.
func (s *Store) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.Client.Close()
}

// Key helpers centralize the layout documented in spec §6 so no caller
// hand-builds a Redis key string.
func PnLDayKey(date string) string  { return "pnl:day:" + date }
func OrderKey(orderID string) string { return "exec:orders:" + orderID }
func IdempKey(stream, group, key string) string {
	return fmt.Sprintf("idemp:%s:%s:%s", stream, group, key)
}
func NotifyAckKey(id string) string { return "notify:ack:" + id }
func OptJobKey(jobID string) string { return "opt:job:" + jobID }
func InFlightKey(id string) string  { return "exec:inflight:" + id }

const (
	OptimizerParamsKey = "optimizer:active_params"
	OptCooldownLossKey = "opt:cooldown:loss"
	NotifyRecentKey    = "notify:recent"
)

// IsIdempotent reports whether (stream, group, key) was already recorded as
// successfully handled. This is a plain read: the record is written only
// after a handler succeeds (see MarkIdempotent), so a redelivery caused by
// a transient handler failure must still see "not recorded" and retry.
func (s *Store) IsIdempotent(ctx context.Context, stream, group, key string) (bool, error) {
	n, err := s.Client.Exists(ctx, IdempKey(stream, group, key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkIdempotent records (stream, group, key) as successfully handled for
// ttl. Callers must only invoke this after the handler returns nil — never
// before invoking it — so a failed attempt leaves no record behind and
// redelivery retries the handler instead of skipping it.
func (s *Store) MarkIdempotent(ctx context.Context, stream, group, key string, ttl time.Duration) error {
	return s.Client.Set(ctx, IdempKey(stream, group, key), "1", ttl).Err()
}

// TryAcquire claims a short-lived SETNX lock under key, reporting whether
// this caller won it. Used to serialize two concurrent callers racing on
// the same business key (e.g. an order id) so only one places the order.
func (s *Store) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.Client.SetNX(ctx, key, "1", ttl).Result()
}

// Release drops a TryAcquire lock once the holder is done with it.
func (s *Store) Release(ctx context.Context, key string) error {
	return s.Client.Del(ctx, key).Err()
}
