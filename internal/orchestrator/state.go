package orchestrator

import (
	"sync"
	"time"

	"github.com/tradefleet/core/internal/model"
)

// runPhase enumerates the per-requestId state machine of spec §4.8.
type runPhase string

const (
	phaseAccepted   runPhase = "accepted"
	phaseAnalyzing  runPhase = "analyzing"
	phaseEvaluating runPhase = "evaluating"
	phaseRejected   runPhase = "rejected"
	phaseApproved   runPhase = "approved"
	phaseSubmitting runPhase = "submitting"
	phaseFilled     runPhase = "filled"
	phaseFailed     runPhase = "failed"
)

// runState is what the async pipeline remembers about one requestId between
// stream hops, since each stage only carries requestId forward.
type runState struct {
	Symbol     string
	Side       model.Side
	Confidence float64
	TraceID    string
	Phase      runPhase
	insertedAt time.Time
}

// runTable is a bounded, TTL-expiring map keyed by requestId, the
// "bounded map with TTL" spec §4.8 calls for so a late exec.status for an
// old requestId can still be correlated, but a leak never grows unbounded.
type runTable struct {
	mu      sync.Mutex
	entries map[string]*runState
	ttl     time.Duration
}

func newRunTable(ttl time.Duration) *runTable {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	t := &runTable{entries: make(map[string]*runState), ttl: ttl}
	go t.sweepLoop()
	return t
}

func (t *runTable) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		t.mu.Lock()
		now := time.Now()
		for id, s := range t.entries {
			if now.Sub(s.insertedAt) > t.ttl {
				delete(t.entries, id)
			}
		}
		t.mu.Unlock()
	}
}

func (t *runTable) put(requestID string, s *runState) {
	s.insertedAt = time.Now()
	t.mu.Lock()
	t.entries[requestID] = s
	t.mu.Unlock()
}

func (t *runTable) get(requestID string) (*runState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.entries[requestID]
	return s, ok
}

func (t *runTable) setPhase(requestID string, phase runPhase) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.entries[requestID]; ok {
		s.Phase = phase
	}
}
