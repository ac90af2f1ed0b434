package riskparams

import (
	"context"
	"testing"
	"time"

	"github.com/tradefleet/core/internal/model"
)

func TestGetServesFromCacheWithinTTL(t *testing.T) {
	want := model.RiskParameters{MinConfidence: 0.42}
	s := &Store{cached: want, cachedAt: time.Now(), cacheTTL: 5 * time.Second}

	got, err := s.Get(context.Background())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.MinConfidence != want.MinConfidence {
		t.Fatalf("MinConfidence=%v, expected %v", got.MinConfidence, want.MinConfidence)
	}
}

func TestDefaultHasNoRestrictions(t *testing.T) {
	d := Default()
	if d.MinConfidence != 0 {
		t.Fatalf("expected MinConfidence 0, got %v", d.MinConfidence)
	}
	if d.BlockSides[model.SideBuy] || d.BlockSides[model.SideSell] {
		t.Fatalf("expected no blocked sides by default")
	}
	if d.TradingStartHour != nil || d.TradingEndHour != nil {
		t.Fatalf("expected no trading window by default")
	}
}
