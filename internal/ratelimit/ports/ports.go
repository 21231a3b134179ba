// Package ports defines the storage interface consumed by the rate limiter.
//
//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks
package ports

import (
	"context"
	"time"

	"gatekeeper/internal/ratelimit/models"
)

// BucketStore manages fixed-window rate limit counters.
type BucketStore interface {
	// Allow counts one call against key if the window still has room.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)

	// Reset clears the rate limit counter for a key.
	Reset(ctx context.Context, key string) error

	// GetCurrentCount returns the current request count in the window.
	GetCurrentCount(ctx context.Context, key string) (int, error)
}
