// Package pnl implements the per-UTC-day profit ledger (C2): a single
// shared-KV hash per day, mutated only through atomic Lua scripts so no
// reader ever observes a torn state and the halt latch trips in the same
// transaction that first crosses the daily target. Grounded on the
// teacher's risk manager's approach to config-as-a-single-row, generalized
// here to Redis CAS per SPEC_FULL's ambient-stack decision (no single-writer
// SQLite in the hot path of every filled order).
package pnl

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tradefleet/core/internal/kv"
	"github.com/tradefleet/core/internal/model"
)

// Ledger owns all mutation of PnLDay records.
type Ledger struct {
	store *kv.Store
}

func New(store *kv.Store) *Ledger {
	return &Ledger{store: store}
}

func dayKey(t time.Time) string {
	return t.UTC().Format("20060102")
}

// initScript creates today's record only if absent (HSETNX-style, field by
// field, wrapped so the whole row appears atomically to readers).
var initScript = redis.NewScript(`
local key = KEYS[1]
if redis.call('EXISTS', key) == 1 then
	return 0
end
redis.call('HSET', key,
	'date', ARGV[1],
	'startEquity', ARGV[2],
	'pnlUsd', '0',
	'pnlPct', '0',
	'dailyTargetPct', ARGV[3],
	'halted', '0',
	'haltReason', '',
	'updatedAt', ARGV[4])
return 1
`)

// InitDayIfNeeded creates today's PnLDay record if one does not already
// exist. Idempotent: safe to call on every run-acceptance.
func (l *Ledger) InitDayIfNeeded(ctx context.Context, startEquity, dailyTargetPct float64) (model.PnLDay, error) {
	now := time.Now().UTC()
	date := dayKey(now)
	_, err := initScript.Run(ctx, l.store.Client, []string{kv.PnLDayKey(date)},
		date, fmt.Sprintf("%f", startEquity), fmt.Sprintf("%f", dailyTargetPct), now.Format(time.RFC3339)).Result()
	if err != nil {
		return model.PnLDay{}, fmt.Errorf("pnl: init day: %w", err)
	}
	return l.Get(ctx)
}

// Get returns today's PnLDay row.
func (l *Ledger) Get(ctx context.Context) (model.PnLDay, error) {
	date := dayKey(time.Now())
	vals, err := l.store.Client.HGetAll(ctx, kv.PnLDayKey(date)).Result()
	if err != nil {
		return model.PnLDay{}, fmt.Errorf("pnl: get: %w", err)
	}
	if len(vals) == 0 {
		return model.PnLDay{}, fmt.Errorf("pnl: day %s not initialized", date)
	}
	return rowToPnLDay(vals), nil
}

// incrementScript updates pnlUsd, recomputes pnlPct, and latches halted
// atomically the instant pnlPct crosses dailyTargetPct. This is the sole
// mutator of pnlUsd (spec's invariant).
var incrementScript = redis.NewScript(`
local key = KEYS[1]
local profit = tonumber(ARGV[1])
local now = ARGV[2]

local startEquity = tonumber(redis.call('HGET', key, 'startEquity'))
local pnlUsd = tonumber(redis.call('HGET', key, 'pnlUsd')) + profit
local target = tonumber(redis.call('HGET', key, 'dailyTargetPct'))
local pnlPct = pnlUsd * 100 / startEquity

redis.call('HSET', key, 'pnlUsd', tostring(pnlUsd), 'pnlPct', tostring(pnlPct), 'updatedAt', now)

local halted = redis.call('HGET', key, 'halted')
if halted == '0' and pnlPct >= target then
	redis.call('HSET', key, 'halted', '1', 'haltReason', 'daily_target_reached')
end

return redis.call('HGETALL', key)
`)

// Increment atomically adds profitUsd to today's pnlUsd, recomputes pnlPct,
// and latches halted=true with reason "daily_target_reached" if the target
// is crossed — all in the same script invocation.
func (l *Ledger) Increment(ctx context.Context, profitUsd float64) (model.PnLDay, error) {
	date := dayKey(time.Now())
	res, err := incrementScript.Run(ctx, l.store.Client, []string{kv.PnLDayKey(date)},
		fmt.Sprintf("%f", profitUsd), time.Now().UTC().Format(time.RFC3339)).Result()
	if err != nil {
		return model.PnLDay{}, fmt.Errorf("pnl: increment: %w", err)
	}
	return rowToPnLDaySlice(res), nil
}

var setHaltedScript = redis.NewScript(`
local key = KEYS[1]
redis.call('HSET', key, 'halted', ARGV[1], 'haltReason', ARGV[2], 'updatedAt', ARGV[3])
return redis.call('HGETALL', key)
`)

// SetHalted manually latches or clears the halt flag (operator override).
// The automatic daily-target latch is written by incrementScript, not here.
func (l *Ledger) SetHalted(ctx context.Context, halted bool, reason string) (model.PnLDay, error) {
	date := dayKey(time.Now())
	flag := "0"
	if halted {
		flag = "1"
	}
	res, err := setHaltedScript.Run(ctx, l.store.Client, []string{kv.PnLDayKey(date)},
		flag, reason, time.Now().UTC().Format(time.RFC3339)).Result()
	if err != nil {
		return model.PnLDay{}, fmt.Errorf("pnl: set halted: %w", err)
	}
	return rowToPnLDaySlice(res), nil
}

// ResetDay clears today's ledger back to a fresh start, used by the admin
// PnL-reset endpoint. A new UTC day needs no reset: it uses a new date key,
// created by InitDayIfNeeded.
func (l *Ledger) ResetDay(ctx context.Context, startEquity, dailyTargetPct float64) (model.PnLDay, error) {
	date := dayKey(time.Now())
	if err := l.store.Client.Del(ctx, kv.PnLDayKey(date)).Err(); err != nil {
		return model.PnLDay{}, fmt.Errorf("pnl: reset: %w", err)
	}
	return l.InitDayIfNeeded(ctx, startEquity, dailyTargetPct)
}

func rowToPnLDay(vals map[string]string) model.PnLDay {
	updatedAt, _ := time.Parse(time.RFC3339, vals["updatedAt"])
	var startEquity, pnlUsd, pnlPct, target float64
	fmt.Sscanf(vals["startEquity"], "%f", &startEquity)
	fmt.Sscanf(vals["pnlUsd"], "%f", &pnlUsd)
	fmt.Sscanf(vals["pnlPct"], "%f", &pnlPct)
	fmt.Sscanf(vals["dailyTargetPct"], "%f", &target)
	return model.PnLDay{
		Date:           vals["date"],
		StartEquity:    startEquity,
		PnLUsd:         pnlUsd,
		PnLPct:         pnlPct,
		DailyTargetPct: target,
		Halted:         vals["halted"] == "1",
		HaltReason:     vals["haltReason"],
		UpdatedAt:      updatedAt,
	}
}

// rowToPnLDaySlice adapts the Lua HGETALL-as-array return shape ([]interface{}
// alternating field/value) into the same struct rowToPnLDay produces.
func rowToPnLDaySlice(res interface{}) model.PnLDay {
	arr, ok := res.([]interface{})
	if !ok {
		return model.PnLDay{}
	}
	vals := make(map[string]string, len(arr)/2)
	for i := 0; i+1 < len(arr); i += 2 {
		k, _ := arr[i].(string)
		v, _ := arr[i+1].(string)
		vals[k] = v
	}
	return rowToPnLDay(vals)
}
