// Package executor implements the Executor worker (C5): validates an
// Order, checks application-level idempotency by orderId, places it via an
// exchange adapter, and persists/emits the terminal ExecStatus. Grounded on
// the teacher's internal/order/executor.go Handle method (order validation,
// bus-event emission) but rebuilt around the externalized exchange.Adapter
// interface and shopspring/decimal money arithmetic instead of the
// teacher's float-based fee/PnL math, matching the rest of the pack's use
// of decimal for monetary precision (brokle-ai-brokle).
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/tradefleet/core/internal/executor/exchange"
	"github.com/tradefleet/core/internal/kv"
	"github.com/tradefleet/core/internal/model"
)

// inFlightTTL bounds how long an order id's submission lock is held; long
// enough to cover a slow exchange round trip, short enough that a crashed
// holder doesn't permanently wedge retries of the same orderId.
const inFlightTTL = 30 * time.Second

// Config bundles the paper-adapter money constants from spec §6.
type Config struct {
	ExchangeFeeBps float64
	SlippageBps    float64
	ProfitPerTrade float64
	IsPaper        bool
}

type Executor struct {
	store   *kv.Store
	adapter exchange.Adapter
	cfg     Config
	now     func() time.Time
}

func New(store *kv.Store, adapter exchange.Adapter, cfg Config) *Executor {
	return &Executor{store: store, adapter: adapter, cfg: cfg, now: time.Now}
}

// Handle runs the full §4.5 algorithm and returns the resulting ExecStatus:
// a terminal status, or StatusPending when another caller currently holds
// the submission lock for the same orderId.
func (e *Executor) Handle(ctx context.Context, order model.Order) (model.ExecStatus, error) {
	if order.Qty <= 0 || (order.Side != model.SideBuy && order.Side != model.SideSell) {
		return model.ExecStatus{
			OrderID: order.OrderID, Symbol: order.Symbol, Side: order.Side, Qty: order.Qty,
			Status: model.StatusRejected, TraceID: order.TraceID, Ts: e.now().UTC(),
		}, nil
	}

	existing, err := e.loadStatus(ctx, order.OrderID)
	if err == nil && existing.Status.IsTerminal() {
		return existing, nil // order_duplicate_skip: no re-submission.
	}

	// Claim exclusive submission rights for this orderId so a concurrent
	// duplicate request (e.g. an HTTP client retry racing the original)
	// cannot also pass the terminal-status check above and double-submit.
	acquired, lockErr := e.store.TryAcquire(ctx, kv.InFlightKey(order.OrderID), inFlightTTL)
	if lockErr != nil {
		return model.ExecStatus{}, fmt.Errorf("executor: acquire submission lock: %w", lockErr)
	}
	if !acquired {
		return model.ExecStatus{
			OrderID: order.OrderID, Symbol: order.Symbol, Side: order.Side, Qty: order.Qty,
			Status: model.StatusPending, TraceID: order.TraceID, Ts: e.now().UTC(),
		}, nil
	}
	defer e.store.Release(ctx, kv.InFlightKey(order.OrderID))

	result, placeErr := e.adapter.PlaceOrder(ctx, exchange.Request{
		OrderID: order.OrderID,
		Symbol:  order.Symbol,
		Side:    string(order.Side),
		Qty:     order.Qty,
	})
	if placeErr != nil {
		status := model.ExecStatus{
			OrderID: order.OrderID, Symbol: order.Symbol, Side: order.Side, Qty: order.Qty,
			Status: model.StatusFailed, TraceID: order.TraceID, Ts: e.now().UTC(),
		}
		_ = e.saveStatus(ctx, status)
		return status, nil
	}
	if !result.Filled {
		status := model.ExecStatus{
			OrderID: order.OrderID, Symbol: order.Symbol, Side: order.Side, Qty: order.Qty,
			Status: model.StatusRejected, TraceID: order.TraceID, Ts: e.now().UTC(),
		}
		_ = e.saveStatus(ctx, status)
		return status, nil
	}

	price, fee, profit := e.settle(order, result)

	status := model.ExecStatus{
		OrderID: order.OrderID,
		Symbol:  order.Symbol,
		Side:    order.Side,
		Qty:     order.Qty,
		Status:  model.StatusFilled,
		Price:   price,
		Fee:     fee,
		Profit:  profit,
		TraceID: order.TraceID,
		Ts:      e.now().UTC(),
	}
	if err := e.saveStatus(ctx, status); err != nil {
		return model.ExecStatus{}, fmt.Errorf("executor: persist status: %w", err)
	}
	return status, nil
}

// settle computes price/fee/profit. For the paper adapter the spec assigns
// this computation to the executor from configured constants; live
// adapters already supplied price/fee/profit directly, so their numbers are
// returned unchanged.
func (e *Executor) settle(order model.Order, result exchange.Result) (price, fee, profit float64) {
	priceDec := decimal.NewFromFloat(result.Price)
	qtyDec := decimal.NewFromFloat(order.Qty)
	notional := priceDec.Mul(qtyDec)

	if e.cfg.IsPaper {
		feeDec := notional.Mul(decimal.NewFromFloat(e.cfg.ExchangeFeeBps)).Div(decimal.NewFromInt(10000))
		profitDec := decimal.NewFromFloat(e.cfg.ProfitPerTrade).Sub(feeDec)
		return priceDec.InexactFloat64(), feeDec.InexactFloat64(), profitDec.InexactFloat64()
	}
	return result.Price, result.Fee, result.Profit
}

func (e *Executor) loadStatus(ctx context.Context, orderID string) (model.ExecStatus, error) {
	raw, err := e.store.Client.HGet(ctx, kv.OrderKey(orderID), "status_json").Result()
	if err != nil {
		if err == redis.Nil {
			return model.ExecStatus{}, err
		}
		return model.ExecStatus{}, err
	}
	var status model.ExecStatus
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		return model.ExecStatus{}, err
	}
	return status, nil
}

func (e *Executor) saveStatus(ctx context.Context, status model.ExecStatus) error {
	raw, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return e.store.Client.HSet(ctx, kv.OrderKey(status.OrderID), "status_json", raw).Err()
}
