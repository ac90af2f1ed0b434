package riskworker

import (
	"context"
	"testing"
	"time"

	"github.com/tradefleet/core/internal/model"
	"github.com/tradefleet/core/internal/riskparams"
)

func ptr(i int) *int { return &i }

func TestEvaluateRuleOrder(t *testing.T) {
	tests := []struct {
		name       string
		params     model.RiskParameters
		req        model.RiskRequest
		hour       int
		wantOK     bool
		wantReason model.RiskRejectReason
	}{
		{
			name:   "approved when nothing blocks it",
			params: riskparams.Default(),
			req:    model.RiskRequest{Side: model.SideBuy, Confidence: 0.9},
			wantOK: true,
		},
		{
			name: "blocked side wins over everything else",
			params: model.RiskParameters{
				MinConfidence: 0,
				BlockSides:    map[model.Side]bool{model.SideBuy: true},
			},
			req:        model.RiskRequest{Side: model.SideBuy, Confidence: 0.99},
			wantReason: model.ReasonBlockedSide,
		},
		{
			name: "outside trading window",
			params: model.RiskParameters{
				MinConfidence:    0,
				BlockSides:       map[model.Side]bool{},
				TradingStartHour: ptr(9),
				TradingEndHour:   ptr(10),
			},
			req:        model.RiskRequest{Side: model.SideSell, Confidence: 0.9},
			hour:       14,
			wantReason: model.ReasonOutsideWindow,
		},
		{
			name: "low confidence",
			params: model.RiskParameters{
				MinConfidence: 0.8,
				BlockSides:    map[model.Side]bool{},
			},
			req:        model.RiskRequest{Side: model.SideSell, Confidence: 0.1},
			wantReason: model.ReasonLowConfidence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := New(riskparams.NewStatic(tt.params))
			if tt.hour != 0 {
				hour := tt.hour
				eval.now = func() time.Time {
					return time.Date(2026, 1, 1, hour, 0, 0, 0, time.UTC)
				}
			}
			decision, err := eval.Evaluate(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("Evaluate returned error: %v", err)
			}
			if decision.OK != tt.wantOK {
				t.Fatalf("OK=%v, expected %v (reason=%q)", decision.OK, tt.wantOK, decision.Reason)
			}
			if decision.Reason != tt.wantReason {
				t.Fatalf("Reason=%q, expected %q", decision.Reason, tt.wantReason)
			}
		})
	}
}

func TestInWindowWrapAround(t *testing.T) {
	tests := []struct {
		h, start, end int
		want          bool
	}{
		{h: 23, start: 22, end: 2, want: true},
		{h: 1, start: 22, end: 2, want: true},
		{h: 10, start: 22, end: 2, want: false},
		{h: 5, start: 9, end: 17, want: false},
		{h: 12, start: 9, end: 17, want: true},
		{h: 3, start: 5, end: 5, want: true}, // start==end means no restriction
	}
	for _, tt := range tests {
		if got := inWindow(tt.h, tt.start, tt.end); got != tt.want {
			t.Errorf("inWindow(%d,%d,%d)=%v, expected %v", tt.h, tt.start, tt.end, got, tt.want)
		}
	}
}
