package memory

import (
	"context"
	"slices"
	"sync"

	"gatekeeper/internal/audit"
)

// InMemoryStore keeps security events in insertion order.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.SecurityEvent
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.SecurityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// List returns matching events, newest first, capped at the filter limit.
func (s *InMemoryStore) List(_ context.Context, filter audit.Filter) ([]audit.SecurityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := filter.EffectiveLimit()
	out := make([]audit.SecurityEvent, 0, min(limit, len(s.events)))
	for i := len(s.events) - 1; i >= 0; i-- {
		if filter.Matches(s.events[i]) {
			out = append(out, s.events[i])
		}
	}
	slices.SortStableFunc(out, func(a, b audit.SecurityEvent) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count returns how many events of kind were stored. Used by tests.
func (s *InMemoryStore) Count(kind audit.EventKind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, ev := range s.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
