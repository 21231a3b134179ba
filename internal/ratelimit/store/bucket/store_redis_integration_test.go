//go:build integration

package bucket_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gatekeeper/internal/ratelimit/store/bucket"
	"gatekeeper/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *bucket.RedisBucketStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = bucket.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

// TestConcurrentAllow verifies that concurrent callers never push the count past the limit.
func (s *RedisStoreSuite) TestConcurrentAllow() {
	ctx := context.Background()
	key := "rl:api:concurrent"
	limit := 10
	const goroutines = 50

	var wg sync.WaitGroup
	var allowedCount atomic.Int32
	var deniedCount atomic.Int32

	for range goroutines {
		wg.Go(func() {
			result, err := s.store.Allow(ctx, key, limit, time.Minute)
			s.NoError(err)
			if result == nil {
				return
			}
			if result.Allowed {
				allowedCount.Add(1)
			} else {
				deniedCount.Add(1)
			}
		})
	}

	wg.Wait()

	s.Equal(int32(limit), allowedCount.Load(), "exactly %d requests should be allowed", limit)
	s.Equal(int32(goroutines-limit), deniedCount.Load(), "remaining requests should be denied")

	count, err := s.store.GetCurrentCount(ctx, key)
	s.Require().NoError(err)
	s.Equal(limit, count)
}

// TestWindowExpiry verifies the counter restarts once the key expires.
func (s *RedisStoreSuite) TestWindowExpiry() {
	ctx := context.Background()
	key := "rl:login:203.0.113.7"
	window := time.Second

	for range 3 {
		_, err := s.store.Allow(ctx, key, 3, window)
		s.Require().NoError(err)
	}
	result, err := s.store.Allow(ctx, key, 3, window)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Equal(3, result.Count)
	s.Positive(result.RetryAfter)

	time.Sleep(1500 * time.Millisecond)

	result, err = s.store.Allow(ctx, key, 3, window)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(1, result.Count)
}

func (s *RedisStoreSuite) TestReset() {
	ctx := context.Background()
	key := "rl:whitelist_check:alice@example.org"

	for range 5 {
		_, err := s.store.Allow(ctx, key, 5, time.Minute)
		s.Require().NoError(err)
	}
	s.Require().NoError(s.store.Reset(ctx, key))

	result, err := s.store.Allow(ctx, key, 5, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(1, result.Count)
}
