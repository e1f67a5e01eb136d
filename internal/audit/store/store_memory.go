package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"atti/internal/audit/models"
)

// InMemory keeps the audit trail in process. Timestamps come from the
// store's clock, never from the caller.
type InMemory struct {
	mu     sync.RWMutex
	events []*models.Event
	clock  func() time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{clock: time.Now}
}

// NewInMemoryWithClock is used by tests that need deterministic timestamps.
func NewInMemoryWithClock(clock func() time.Time) *InMemory {
	return &InMemory{clock: clock}
}

func (s *InMemory) Append(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.Timestamp = s.clock().UTC()
	stored := *e
	s.events = append(s.events, &stored)
	return nil
}

// Query returns matching events, newest first.
func (s *InMemory) Query(_ context.Context, f models.Filter) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Event, 0)
	for i := len(s.events) - 1; i >= 0; i-- {
		if f.Matches(s.events[i]) {
			cp := *s.events[i]
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}
