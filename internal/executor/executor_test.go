package executor

import (
	"context"
	"testing"

	"github.com/tradefleet/core/internal/executor/exchange"
	"github.com/tradefleet/core/internal/model"
)

func TestHandleRejectsMalformedOrder(t *testing.T) {
	tests := []struct {
		name  string
		order model.Order
	}{
		{name: "zero qty", order: model.Order{OrderID: "o1", Symbol: "BTCUSDT", Side: model.SideBuy, Qty: 0}},
		{name: "negative qty", order: model.Order{OrderID: "o2", Symbol: "BTCUSDT", Side: model.SideBuy, Qty: -1}},
		{name: "unknown side", order: model.Order{OrderID: "o3", Symbol: "BTCUSDT", Side: "hold", Qty: 1}},
	}

	e := New(nil, exchange.NewPaper(100), Config{IsPaper: true})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := e.Handle(context.Background(), tt.order)
			if err != nil {
				t.Fatalf("Handle returned error: %v", err)
			}
			if status.Status != model.StatusRejected {
				t.Fatalf("Status=%s, expected %s", status.Status, model.StatusRejected)
			}
		})
	}
}

func TestSettlePaperChargesFeeAgainstFixedProfit(t *testing.T) {
	e := New(nil, exchange.NewPaper(100), Config{
		ExchangeFeeBps: 10, // 0.10%
		ProfitPerTrade: 5,
		IsPaper:        true,
	})
	order := model.Order{OrderID: "o1", Symbol: "BTCUSDT", Side: model.SideBuy, Qty: 2}
	result := exchange.Result{Filled: true, Price: 100}

	price, fee, profit := e.settle(order, result)

	if price != 100 {
		t.Fatalf("price=%v, expected 100", price)
	}
	wantFee := 100.0 * 2 * 10 / 10000 // notional * bps/10000 = 0.2
	if fee != wantFee {
		t.Fatalf("fee=%v, expected %v", fee, wantFee)
	}
	wantProfit := 5 - wantFee
	if profit != wantProfit {
		t.Fatalf("profit=%v, expected %v", profit, wantProfit)
	}
}

func TestSettleLivePassesAdapterNumbersThrough(t *testing.T) {
	e := New(nil, exchange.NewLive("binance", "http://x", "k", "s"), Config{IsPaper: false})
	order := model.Order{OrderID: "o1", Symbol: "BTCUSDT", Side: model.SideBuy, Qty: 1}
	result := exchange.Result{Filled: true, Price: 101.5, Fee: 0.3, Profit: 4.2}

	price, fee, profit := e.settle(order, result)

	if price != 101.5 || fee != 0.3 || profit != 4.2 {
		t.Fatalf("settle(live)=(%v,%v,%v), expected passthrough (101.5,0.3,4.2)", price, fee, profit)
	}
}
