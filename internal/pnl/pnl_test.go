package pnl

import (
	"testing"
	"time"
)

func TestDayKeyUsesUTCDate(t *testing.T) {
	// 00:30 local at +14:00 is still 10:30 the previous day in UTC.
	loc := time.FixedZone("test", 14*60*60)
	local := time.Date(2026, 3, 2, 0, 30, 0, 0, loc)

	got := dayKey(local)
	want := "20260301"
	if got != want {
		t.Fatalf("dayKey=%s, expected %s (local date %s should map to its UTC date)", got, want, local.Format("2006-01-02"))
	}
}

func TestRowToPnLDayParsesFields(t *testing.T) {
	vals := map[string]string{
		"date":           "20260301",
		"startEquity":    "10000.000000",
		"pnlUsd":         "250.500000",
		"pnlPct":         "2.505000",
		"dailyTargetPct": "5.000000",
		"halted":         "0",
		"haltReason":     "",
		"updatedAt":      "2026-03-01T12:00:00Z",
	}
	day := rowToPnLDay(vals)

	if day.Date != "20260301" {
		t.Errorf("Date=%s", day.Date)
	}
	if day.StartEquity != 10000 {
		t.Errorf("StartEquity=%v", day.StartEquity)
	}
	if day.PnLUsd != 250.5 {
		t.Errorf("PnLUsd=%v", day.PnLUsd)
	}
	if day.Halted {
		t.Errorf("expected Halted=false")
	}
}

func TestRowToPnLDaySliceMatchesMapForm(t *testing.T) {
	arr := []interface{}{
		"date", "20260301",
		"startEquity", "10000.000000",
		"pnlUsd", "500.000000",
		"pnlPct", "5.000000",
		"dailyTargetPct", "5.000000",
		"halted", "1",
		"haltReason", "daily_target_reached",
		"updatedAt", "2026-03-01T13:00:00Z",
	}
	day := rowToPnLDaySlice(arr)

	if !day.Halted {
		t.Fatalf("expected Halted=true")
	}
	if day.HaltReason != "daily_target_reached" {
		t.Fatalf("HaltReason=%q", day.HaltReason)
	}
	if day.PnLPct != 5 {
		t.Fatalf("PnLPct=%v", day.PnLPct)
	}
}

func TestRowToPnLDaySliceRejectsWrongShape(t *testing.T) {
	day := rowToPnLDaySlice("not-a-slice")
	if day.Date != "" {
		t.Fatalf("expected empty Date for malformed input, got %q", day.Date)
	}
}
