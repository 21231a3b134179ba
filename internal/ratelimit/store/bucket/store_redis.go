package bucket

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"gatekeeper/internal/ratelimit/models"
	"gatekeeper/pkg/requestcontext"
)

// allowScript runs check, increment, and expiry as one atomic step on the
// Redis server. Returns {allowed, count, pttl}.
var allowScript = redis.NewScript(`
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
if count >= limit then
  return {0, count, redis.call('PTTL', KEYS[1])}
end
count = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if count == 1 or ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
  ttl = tonumber(ARGV[2])
end
return {1, count, ttl}
`)

// RedisBucketStore implements fixed-window counters shared by all instances.
// The window starts at the first counted call and ends when the key expires.
type RedisBucketStore struct {
	client redis.UniversalClient
}

// NewRedis creates a Redis-backed bucket store.
func NewRedis(client redis.UniversalClient) *RedisBucketStore {
	return &RedisBucketStore{client: client}
}

func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error) {
	now := requestcontext.Now(ctx)
	vals, err := allowScript.Run(ctx, s.client, []string{key}, limit, window.Milliseconds()).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("run allow script: %w", err)
	}
	if len(vals) != 3 {
		return nil, fmt.Errorf("allow script returned %d values", len(vals))
	}

	allowed := vals[0] == 1
	count := int(vals[1])
	ttl := max(time.Duration(vals[2])*time.Millisecond, 0)
	resetAt := now.Add(ttl)

	result := &models.Result{
		Allowed:   allowed,
		Count:     count,
		Limit:     limit,
		Remaining: max(limit-count, 0),
		ResetAt:   resetAt,
	}
	if !allowed {
		result.Remaining = 0
		result.RetryAfter = retryAfterSeconds(now, resetAt)
	}
	return result, nil
}

func (s *RedisBucketStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("reset bucket: %w", err)
	}
	return nil
}

func (s *RedisBucketStore) GetCurrentCount(ctx context.Context, key string) (int, error) {
	raw, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get bucket count: %w", err)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse bucket count: %w", err)
	}
	return n, nil
}
