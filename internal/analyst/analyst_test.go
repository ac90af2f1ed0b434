package analyst

import (
	"context"
	"testing"

	"github.com/tradefleet/core/internal/model"
)

func TestAnalyzeIsDeterministic(t *testing.T) {
	gen := New()
	a := gen.Analyze(context.Background(), "BTCUSDT", "req-1", "trace-1", nil, nil)
	b := gen.Analyze(context.Background(), "BTCUSDT", "req-1", "trace-1", nil, nil)

	if a.Side != b.Side || a.Confidence != b.Confidence {
		t.Fatalf("Analyze not deterministic for same (symbol, requestId): %+v vs %+v", a, b)
	}
}

func TestAnalyzeDiffersAcrossRequestIDs(t *testing.T) {
	gen := New()
	a := gen.Analyze(context.Background(), "BTCUSDT", "req-1", "trace-1", nil, nil)
	b := gen.Analyze(context.Background(), "BTCUSDT", "req-2", "trace-1", nil, nil)

	if a.Side == b.Side && a.Confidence == b.Confidence {
		t.Fatalf("expected distinct signals for distinct requestIds, got identical: %+v", a)
	}
}

func TestAnalyzeHonorsOverrides(t *testing.T) {
	gen := New()
	side := model.SideSell
	confidence := 0.77

	sig := gen.Analyze(context.Background(), "ETHUSDT", "req-3", "trace-3", &side, &confidence)

	if sig.Side != model.SideSell {
		t.Fatalf("Side=%s, expected override %s", sig.Side, model.SideSell)
	}
	if sig.Confidence != 0.77 {
		t.Fatalf("Confidence=%v, expected override 0.77", sig.Confidence)
	}
}

func TestAnalyzeConfidenceInRange(t *testing.T) {
	gen := New()
	for _, reqID := range []string{"a", "b", "c", "d", "e"} {
		sig := gen.Analyze(context.Background(), "BTCUSDT", reqID, "", nil, nil)
		if sig.Confidence < 0 || sig.Confidence >= 1 {
			t.Fatalf("Confidence out of [0,1) range: %v", sig.Confidence)
		}
	}
}
