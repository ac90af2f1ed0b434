// Package streambus implements the durable-stream messaging substrate (C1):
// atomic append, consumer-group delivery with per-entry idempotency,
// bounded-retry-then-DLQ, pending-lag gauges, and DLQ range/requeue.
// Grounded on the consumer-group/idempotency/DLQ shape of
// other_examples/e18ad2ea_brokle-ai-brokle's TelemetryStreamConsumer,
// adapted from a ClickHouse-batch-specific consumer into a generic
// single-stream bus any of the seven services can Append to or Consume from.
package streambus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/tradefleet/core/internal/kv"
	"github.com/tradefleet/core/internal/metrics"
	"github.com/tradefleet/core/internal/wire"
)

// ErrMovedToDLQ signals that a handler's failure was resolved by parking the
// entry in its stream's DLQ; the caller should still ack the original entry.
var ErrMovedToDLQ = errors.New("streambus: entry moved to DLQ")

// ErrNotFound is returned by Requeue when the DLQ id no longer exists —
// a second requeue attempt of the same id is a no-op, not an error chain.
var ErrNotFound = errors.New("streambus: dlq entry not found")

// Handler processes one stream entry. Returning an error leaves the entry
// pending for redelivery until it has failed MaxFailures times; it is then
// appended to the DLQ and acked.
type Handler func(ctx context.Context, entryID string, payload []byte) error

// ConsumeOpts mirrors the opts ENUMERATED in the stream runtime contract.
type ConsumeOpts struct {
	Consumer          string
	BlockMs           int
	BatchSize         int64
	IdempotencyKeyFn  func(payload []byte) string
	IdempotencyTTL    time.Duration
	MaxFailures       int
	DLQStream         string
}

// Bus is the shared handle every service uses to append and consume.
type Bus struct {
	store   *kv.Store
	log     *logrus.Entry
	metrics *metrics.Registry
}

func New(store *kv.Store, log *logrus.Entry, reg *metrics.Registry) *Bus {
	return &Bus{store: store, log: log, metrics: reg}
}

// Append atomically appends payload to stream under the wire.DataField key
// and returns the assigned entry id.
func (b *Bus) Append(ctx context.Context, stream string, payload []byte) (string, error) {
	id, err := b.store.Client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{wire.DataField: payload},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("streambus: append %s: %w", stream, err)
	}
	return id, nil
}

// ensureGroup retries group creation with backoff since it runs once at
// service startup, when Redis may still be coming up behind it in the same
// compose/k8s rollout.
func (b *Bus) ensureGroup(ctx context.Context, stream, group string) error {
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	return backoff.Retry(func() error {
		err := b.store.Client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
		if err == nil || errors.Is(err, redis.Nil) {
			return nil
		}
		// BUSYGROUP means the group already exists; that's the steady state.
		if isBusyGroup(err) {
			return nil
		}
		return err
	}, backoff.WithContext(policy, ctx))
}

func isBusyGroup(err error) bool {
	return err != nil && len(err.Error()) >= 9 && err.Error()[:9] == "BUSYGROUP"
}

// Consume runs a long-lived read loop against (stream, group) until ctx is
// canceled. Each cycle reads twice, in the runtime contract's order: first
// fresh entries, then the consumer's own still-pending entries (redelivery).
func (b *Bus) Consume(ctx context.Context, stream, group string, opts ConsumeOpts, handler Handler) error {
	if err := b.ensureGroup(ctx, stream, group); err != nil {
		return fmt.Errorf("streambus: ensure group %s/%s: %w", stream, group, err)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 16
	}
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = 5
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 24 * time.Hour
	}
	dlqStream := opts.DLQStream
	if dlqStream == "" {
		dlqStream = wire.DLQName(stream)
	}

	go b.pendingGaugeLoop(ctx, stream, group)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := b.consumeNew(ctx, stream, group, opts, dlqStream, handler); err != nil {
			b.log.WithError(err).WithFields(logrus.Fields{"stream": stream, "group": group}).Error("consume new batch failed")
			time.Sleep(200 * time.Millisecond)
		}
		if err := b.consumeOwnPending(ctx, stream, group, opts, dlqStream, handler); err != nil {
			b.log.WithError(err).WithFields(logrus.Fields{"stream": stream, "group": group}).Warn("consume own-pending batch failed")
		}
	}
}

func (b *Bus) consumeNew(ctx context.Context, stream, group string, opts ConsumeOpts, dlqStream string, handler Handler) error {
	block := time.Duration(opts.BlockMs) * time.Millisecond
	if block <= 0 {
		block = 2 * time.Second
	}
	res, err := b.store.Client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: opts.Consumer,
		Streams:  []string{stream, ">"},
		Count:    opts.BatchSize,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}
	return b.handleBatch(ctx, res, group, opts, dlqStream, handler)
}

func (b *Bus) consumeOwnPending(ctx context.Context, stream, group string, opts ConsumeOpts, dlqStream string, handler Handler) error {
	res, err := b.store.Client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: opts.Consumer,
		Streams:  []string{stream, "0"},
		Count:    opts.BatchSize,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}
	return b.handleBatch(ctx, res, group, opts, dlqStream, handler)
}

func (b *Bus) handleBatch(ctx context.Context, res []redis.XStream, group string, opts ConsumeOpts, dlqStream string, handler Handler) error {
	for _, s := range res {
		for _, msg := range s.Messages {
			raw, _ := msg.Values[wire.DataField].(string)
			payload := []byte(raw)

			err := b.processEntry(ctx, s.Stream, group, msg.ID, payload, opts, dlqStream, handler)
			shouldAck := err == nil || errors.Is(err, ErrMovedToDLQ)
			if shouldAck {
				if ackErr := b.store.Client.XAck(ctx, s.Stream, group, msg.ID).Err(); ackErr != nil {
					b.log.WithError(ackErr).WithFields(logrus.Fields{"stream": s.Stream, "id": msg.ID}).Warn("ack failed")
				}
				continue
			}
			b.log.WithError(err).WithFields(logrus.Fields{"stream": s.Stream, "id": msg.ID}).Warn("handler failed, leaving pending for redelivery")
		}
	}
	return nil
}

func (b *Bus) processEntry(ctx context.Context, stream, group, id string, payload []byte, opts ConsumeOpts, dlqStream string, handler Handler) error {
	var idempKey string
	hasIdempKey := opts.IdempotencyKeyFn != nil
	if hasIdempKey {
		idempKey = opts.IdempotencyKeyFn(payload)
		seen, err := b.store.IsIdempotent(ctx, stream, group, idempKey)
		if err != nil {
			return fmt.Errorf("idempotency check: %w", err)
		}
		if seen {
			return nil
		}
	}

	start := time.Now()
	err := handler(ctx, id, payload)
	if b.metrics != nil {
		b.metrics.HandlerLatency.WithLabelValues(stream, group).Observe(time.Since(start).Seconds())
	}
	if err == nil {
		if hasIdempKey {
			if markErr := b.store.MarkIdempotent(ctx, stream, group, idempKey, opts.IdempotencyTTL); markErr != nil {
				return fmt.Errorf("idempotency mark: %w", markErr)
			}
		}
		return nil
	}
	if b.metrics != nil {
		b.metrics.HandlerErrors.WithLabelValues(stream, group, "handler").Inc()
	}

	failures, ferr := b.incrementFailures(ctx, stream, group, id)
	if ferr != nil {
		return fmt.Errorf("handler error %w (failure count unavailable: %v)", err, ferr)
	}
	if failures < int64(opts.MaxFailures) {
		return err
	}

	if dlqErr := b.moveToDLQ(ctx, stream, dlqStream, payload, int(failures), err); dlqErr != nil {
		return fmt.Errorf("handler failed permanently AND dlq write failed: %w", dlqErr)
	}
	b.clearFailures(ctx, stream, group, id)
	return ErrMovedToDLQ
}

func failureKey(stream, group, id string) string {
	return fmt.Sprintf("streamfail:%s:%s:%s", stream, group, id)
}

func (b *Bus) incrementFailures(ctx context.Context, stream, group, id string) (int64, error) {
	key := failureKey(stream, group, id)
	n, err := b.store.Client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	b.store.Client.Expire(ctx, key, 24*time.Hour)
	return n, nil
}

func (b *Bus) clearFailures(ctx context.Context, stream, group, id string) {
	b.store.Client.Del(ctx, failureKey(stream, group, id))
}

func (b *Bus) moveToDLQ(ctx context.Context, originalStream, dlqStream string, payload []byte, failures int, cause error) error {
	envelope, err := encodeDLQEnvelope(originalStream, payload, failures, cause)
	if err != nil {
		return err
	}
	_, err = b.Append(ctx, dlqStream, envelope)
	return err
}

// PendingCount returns the number of delivered-but-unacked entries for
// (stream, group), the runtime's primary backpressure signal.
func (b *Bus) PendingCount(ctx context.Context, stream, group string) (int64, error) {
	summary, err := b.store.Client.XPending(ctx, stream, group).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return summary.Count, nil
}

func (b *Bus) pendingGaugeLoop(ctx context.Context, stream, group string) {
	if b.metrics == nil {
		return
	}
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := b.PendingCount(ctx, stream, group)
			if err == nil {
				b.metrics.StreamPending.WithLabelValues(stream, group).Set(float64(n))
			}
		}
	}
}

// DLQEntry is one row returned by RangeDLQ.
type DLQEntry struct {
	ID       string
	Original string
	Payload  []byte
	Failures int
	LastErr  string
}

// RangeDLQ lists entries in a DLQ stream between from/to ids (use "-"/"+"
// for unbounded), capped at limit.
func (b *Bus) RangeDLQ(ctx context.Context, dlqStream, from, to string, limit int64) ([]DLQEntry, error) {
	if from == "" {
		from = "-"
	}
	if to == "" {
		to = "+"
	}
	msgs, err := b.store.Client.XRangeN(ctx, dlqStream, from, to, limit).Result()
	if err != nil {
		return nil, fmt.Errorf("streambus: range dlq: %w", err)
	}
	out := make([]DLQEntry, 0, len(msgs))
	for _, m := range msgs {
		raw, _ := m.Values[wire.DataField].(string)
		env, err := decodeDLQEnvelope([]byte(raw))
		if err != nil {
			continue
		}
		out = append(out, DLQEntry{
			ID:       m.ID,
			Original: env.OriginalStream,
			Payload:  env.Payload,
			Failures: env.Failures,
			LastErr:  env.LastError,
		})
	}
	return out, nil
}

// Requeue re-appends a DLQ entry's original payload onto its originating
// stream with a fresh id, then deletes it from the DLQ. A second requeue of
// the same id returns ErrNotFound so the caller can answer 404.
func (b *Bus) Requeue(ctx context.Context, dlqStream, id string) (string, error) {
	msgs, err := b.store.Client.XRange(ctx, dlqStream, id, id).Result()
	if err != nil {
		return "", fmt.Errorf("streambus: requeue lookup: %w", err)
	}
	if len(msgs) == 0 {
		return "", ErrNotFound
	}
	raw, _ := msgs[0].Values[wire.DataField].(string)
	env, err := decodeDLQEnvelope([]byte(raw))
	if err != nil {
		return "", fmt.Errorf("streambus: decode dlq envelope: %w", err)
	}

	newID, err := b.Append(ctx, env.OriginalStream, env.Payload)
	if err != nil {
		return "", fmt.Errorf("streambus: requeue append: %w", err)
	}
	if err := b.store.Client.XDel(ctx, dlqStream, id).Err(); err != nil {
		return "", fmt.Errorf("streambus: requeue delete from dlq: %w", err)
	}
	return newID, nil
}
