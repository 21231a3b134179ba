package bucket

import (
	"context"
	"sync"
	"time"

	"gatekeeper/internal/ratelimit/models"
	"gatekeeper/pkg/requestcontext"
)

// InMemoryBucketStore implements fixed-window counters in process memory.
// Each key has its own mutex so increments on one key never undercount and
// never block other keys. Use RedisBucketStore when several instances share limits.
type InMemoryBucketStore struct {
	mu      sync.Mutex
	buckets map[string]*fixedWindow
}

type fixedWindow struct {
	mu     sync.Mutex
	window time.Duration
	state  models.Window
	// removed is set under mu when the window leaves the map; holders retry.
	removed bool
}

// NewInMemoryBucketStore creates a new in-memory bucket store.
func NewInMemoryBucketStore() *InMemoryBucketStore {
	return &InMemoryBucketStore{buckets: make(map[string]*fixedWindow)}
}

// Allow counts one call against key. A missing or expired window restarts at
// the request time with count 1; otherwise the count grows until it reaches
// limit, after which calls are refused without incrementing.
func (s *InMemoryBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error) {
	now := requestcontext.Now(ctx)
	var b *fixedWindow
	for {
		b = s.getOrCreateBucket(key, window)
		b.mu.Lock()
		if !b.removed {
			break
		}
		b.mu.Unlock()
	}
	defer b.mu.Unlock()

	b.window = window
	if b.state.Start.IsZero() || b.state.ExpiredAt(now, window) {
		b.state = models.Window{Start: now, Count: 0}
	}

	resetAt := b.state.Start.Add(window)
	if b.state.Count >= limit {
		return &models.Result{
			Allowed:    false,
			Count:      b.state.Count,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfterSeconds(now, resetAt),
		}, nil
	}

	b.state.Count++
	return &models.Result{
		Allowed:   true,
		Count:     b.state.Count,
		Limit:     limit,
		Remaining: limit - b.state.Count,
		ResetAt:   resetAt,
	}, nil
}

// Reset clears the counter for a key.
func (s *InMemoryBucketStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b := s.buckets[key]; b != nil {
		b.mu.Lock()
		b.removed = true
		b.mu.Unlock()
		delete(s.buckets, key)
	}
	return nil
}

// GetCurrentCount returns the count of the live window for key, or 0.
func (s *InMemoryBucketStore) GetCurrentCount(ctx context.Context, key string) (int, error) {
	s.mu.Lock()
	b := s.buckets[key]
	s.mu.Unlock()
	if b == nil {
		return 0, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state.ExpiredAt(requestcontext.Now(ctx), b.window) {
		return 0, nil
	}
	return b.state.Count, nil
}

// Sweep drops windows that expired before now and returns how many were removed.
func (s *InMemoryBucketStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, b := range s.buckets {
		b.mu.Lock()
		if b.state.ExpiredAt(now, b.window) {
			b.removed = true
			delete(s.buckets, key)
			removed++
		}
		b.mu.Unlock()
	}
	return removed
}

// StartCleanup sweeps expired windows every interval until ctx is cancelled.
func (s *InMemoryBucketStore) StartCleanup(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(time.Now())
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// getOrCreateBucket returns an existing bucket or creates a new one.
func (s *InMemoryBucketStore) getOrCreateBucket(key string, window time.Duration) *fixedWindow {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b := s.buckets[key]; b != nil {
		return b
	}
	b := &fixedWindow{window: window}
	s.buckets[key] = b
	return b
}

func retryAfterSeconds(now, resetAt time.Time) int {
	secs := int(resetAt.Sub(now).Seconds())
	if resetAt.Sub(now) > time.Duration(secs)*time.Second {
		secs++
	}
	return max(secs, 0)
}
