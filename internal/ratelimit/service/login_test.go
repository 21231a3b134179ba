package service

import (
	"time"

	"gatekeeper/internal/audit"
	auditmemory "gatekeeper/internal/audit/store/memory"
	"gatekeeper/internal/ratelimit/config"
	"gatekeeper/internal/ratelimit/models"
	"gatekeeper/internal/ratelimit/store/bucket"
)

// =============================================================================
// Login failures
// =============================================================================

func (s *ServiceSuite) TestLoginGuard() {
	events := auditmemory.NewInMemoryStore()
	cfg := config.DefaultConfig().With(models.ClassLogin, models.Limit{Window: 15 * time.Minute, MaxCount: 2})
	limiter, err := New(bucket.NewInMemoryBucketStore(), WithConfig(cfg))
	s.Require().NoError(err)
	guard := NewLoginGuard(limiter, audit.NewPublisher(events))

	s.False(guard.Failed(s.at(0), "192.0.2.1", "invalid token"))
	s.False(guard.Failed(s.at(time.Second), "192.0.2.1", "invalid token"))
	s.True(guard.Failed(s.at(2*time.Second), "192.0.2.1", "invalid token"))

	s.Run("other clients unaffected", func() {
		s.False(guard.Failed(s.at(3*time.Second), "192.0.2.2", "invalid token"))
	})

	s.Run("lockout ends with the window", func() {
		s.False(guard.Failed(s.at(15*time.Minute), "192.0.2.1", "invalid token"))
	})

	s.Equal(5, events.Count(audit.KindLoginFailure))
}
