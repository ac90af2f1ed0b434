// Package notifier implements the Notifier worker (C6): fan events out to a
// severity-selected webhook sink, persist a bounded recent list, index by
// traceId/requestId for acknowledgement. Webhook calls use a go-resty
// client with a 5s timeout and no client-side retry, one attempt per
// Dispatch; failed deliveries are retried by the stream runtime, and failures beyond the stream
// runtime's maxFailures land in notify.events.dlq automatically (the
// runtime's own retry-then-DLQ, not a second retry loop here).
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tradefleet/core/internal/kv"
	"github.com/tradefleet/core/internal/model"
)

// Sinks maps each severity to its webhook URL; an empty URL means "no sink
// configured", which is a no-op success (nothing to fan out to) rather than
// a failure the stream runtime would retry forever.
type Sinks struct {
	Info     string
	Warning  string
	Critical string
}

type Notifier struct {
	store      *kv.Store
	sinks      Sinks
	http       *resty.Client
	recentCap  int64
}

func New(store *kv.Store, sinks Sinks, recentCap int) *Notifier {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetHeader("Content-Type", "application/json")
	return &Notifier{store: store, sinks: sinks, http: client, recentCap: int64(recentCap)}
}

func (n *Notifier) sinkFor(sev model.Severity) string {
	switch sev {
	case model.SeverityCritical:
		return n.sinks.Critical
	case model.SeverityWarning:
		return n.sinks.Warning
	default:
		return n.sinks.Info
	}
}

// Dispatch persists event to the recent list and ack index first, then
// posts it to its severity's sink (if configured). Persisting before the
// webhook attempt, rather than after, is what makes "regardless of
// delivery outcome" true: a webhook failure still returns an error so the
// stream runtime retries and eventually DLQs it, but the event is already
// visible to operators via GET /notify/recent even while the sink is down.
func (n *Notifier) Dispatch(ctx context.Context, event model.Event) error {
	if err := n.persist(ctx, event); err != nil {
		return fmt.Errorf("notifier: persist: %w", err)
	}

	url := n.sinkFor(event.Severity)
	if url == "" {
		return nil
	}
	resp, err := n.http.R().SetContext(ctx).SetBody(event).Post(url)
	if err != nil {
		return fmt.Errorf("notifier: webhook post: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("notifier: webhook sink returned %d", resp.StatusCode())
	}
	return nil
}

func (n *Notifier) persist(ctx context.Context, event model.Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	pipe := n.store.Client.TxPipeline()
	pipe.LPush(ctx, kv.NotifyRecentKey, raw)
	pipe.LTrim(ctx, kv.NotifyRecentKey, 0, n.recentCap-1)
	if event.TraceID != "" {
		pipe.Set(ctx, kv.NotifyAckKey(event.TraceID), "0", 0)
	}
	if event.RequestID != "" {
		pipe.Set(ctx, kv.NotifyAckKey(event.RequestID), "0", 0)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns the most recently persisted events, newest first.
func (n *Notifier) Recent(ctx context.Context, limit int64) ([]model.Event, error) {
	if limit <= 0 || limit > n.recentCap {
		limit = n.recentCap
	}
	raws, err := n.store.Client.LRange(ctx, kv.NotifyRecentKey, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]model.Event, 0, len(raws))
	for _, raw := range raws {
		var e model.Event
		if json.Unmarshal([]byte(raw), &e) == nil {
			out = append(out, e)
		}
	}
	return out, nil
}

// Ack marks an event identified by traceId or requestId as acknowledged.
func (n *Notifier) Ack(ctx context.Context, id string) (bool, error) {
	exists, err := n.store.Client.Exists(ctx, kv.NotifyAckKey(id)).Result()
	if err != nil {
		return false, err
	}
	if exists == 0 {
		return false, nil
	}
	return true, n.store.Client.Set(ctx, kv.NotifyAckKey(id), "1", 0).Err()
}
