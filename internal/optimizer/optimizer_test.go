package optimizer

import (
	"testing"

	"github.com/tradefleet/core/internal/model"
)

func TestClamp01(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{in: -0.5, want: 0},
		{in: 0, want: 0},
		{in: 0.42, want: 0.42},
		{in: 1, want: 1},
		{in: 1.5, want: 1},
	}
	for _, tt := range tests {
		if got := clamp01(tt.in); got != tt.want {
			t.Errorf("clamp01(%v)=%v, expected %v", tt.in, got, tt.want)
		}
	}
}

func TestBacktestIsDeterministicAndBounded(t *testing.T) {
	o := &Optimizer{}
	params := model.RiskParameters{MinConfidence: 0.6}

	a := o.backtest(params)
	b := o.backtest(params)

	if a != b {
		t.Fatalf("backtest not deterministic for identical params: %+v vs %+v", a, b)
	}
	if a.WinRate < 0 || a.WinRate > 1 {
		t.Fatalf("WinRate out of bounds: %v", a.WinRate)
	}
}

func TestBacktestRewardsHigherConfidence(t *testing.T) {
	o := &Optimizer{}
	low := o.backtest(model.RiskParameters{MinConfidence: 0.1})
	high := o.backtest(model.RiskParameters{MinConfidence: 0.9})

	if high.WinRate <= low.WinRate {
		t.Fatalf("expected higher MinConfidence to raise WinRate: low=%v high=%v", low.WinRate, high.WinRate)
	}
	if high.Sharpe <= low.Sharpe {
		t.Fatalf("expected higher MinConfidence to raise Sharpe: low=%v high=%v", low.Sharpe, high.Sharpe)
	}
}
