package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"gatekeeper/internal/ratelimit/config"
	"gatekeeper/internal/ratelimit/metrics"
	"gatekeeper/internal/ratelimit/models"
	"gatekeeper/internal/ratelimit/ports/mocks"
	"gatekeeper/internal/ratelimit/store/bucket"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	store   *bucket.InMemoryBucketStore
	metrics *metrics.Metrics
	service *Service
	now     time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = bucket.NewInMemoryBucketStore()
	s.metrics = metrics.New(prometheus.NewRegistry())
	cfg := config.DefaultConfig().With(models.ClassWhitelistCheck, models.Limit{Window: 60 * time.Second, MaxCount: 3})
	svc, err := New(s.store, WithConfig(cfg), WithMetrics(s.metrics))
	s.Require().NoError(err)
	s.service = svc
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *ServiceSuite) at(offset time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.now.Add(offset))
}

// =============================================================================
// Construction
// =============================================================================

func (s *ServiceSuite) TestNew() {
	s.Run("bucket store is required", func() {
		svc, err := New(nil)
		s.Error(err)
		s.Nil(svc)
	})
}

// =============================================================================
// Check
// =============================================================================

func (s *ServiceSuite) TestCheck() {
	s.Run("allows up to the class limit then denies", func() {
		var got []bool
		for range 4 {
			result, err := s.service.Check(s.at(0), "alice@example.org", models.ClassWhitelistCheck)
			s.Require().NoError(err)
			got = append(got, result.Allowed)
		}
		s.Equal([]bool{true, true, true, false}, got)
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.DenialsTotal.WithLabelValues("whitelist_check")))
	})

	s.Run("new window after expiry starts at count 1", func() {
		result, err := s.service.Check(s.at(60001*time.Millisecond), "alice@example.org", models.ClassWhitelistCheck)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(1, result.Count)
	})

	s.Run("classes are counted separately for the same key", func() {
		result, err := s.service.Check(s.at(0), "bob@example.org", models.ClassAPI)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(100, result.Limit)

		result, err = s.service.Check(s.at(0), "bob@example.org", models.ClassWhitelistCheck)
		s.Require().NoError(err)
		s.Equal(1, result.Count)
	})

	s.Run("keys are case-insensitive and sanitized", func() {
		_, err := s.service.Check(s.at(0), "Carol@Example.org", models.ClassLogin)
		s.Require().NoError(err)

		count, err := s.store.GetCurrentCount(s.at(0), "rl:login:carol@example.org")
		s.Require().NoError(err)
		s.Equal(1, count)

		_, err = s.service.Check(s.at(0), "rl:api:x", models.ClassLogin)
		s.Require().NoError(err)
		count, err = s.store.GetCurrentCount(s.at(0), "rl:login:rl_api_x")
		s.Require().NoError(err)
		s.Equal(1, count)
	})

	s.Run("unknown class is invalid input", func() {
		_, err := s.service.Check(s.at(0), "k", models.LimitClass("bogus"))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("class without configured limit is denied", func() {
		svc, err := New(s.store, WithConfig(&config.Config{Limits: map[models.LimitClass]models.Limit{}}))
		s.Require().NoError(err)

		result, err := svc.Check(s.at(0), "k", models.ClassAPI)
		s.Require().NoError(err)
		s.False(result.Allowed)
		s.Equal(missingConfigRetryAfter, result.RetryAfter)
	})
}

func (s *ServiceSuite) TestCheckStoreFailure() {
	ctrl := gomock.NewController(s.T())
	store := mocks.NewMockBucketStore(ctrl)
	svc, err := New(store, WithMetrics(s.metrics))
	s.Require().NoError(err)

	store.EXPECT().
		Allow(gomock.Any(), "rl:api:dave@example.org", 100, time.Minute).
		Return(nil, errors.New("connection refused"))

	result, err := svc.Check(s.at(0), "dave@example.org", models.ClassAPI)
	s.Nil(result)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.StoreErrorsTotal))
}

// =============================================================================
// Reset
// =============================================================================

func (s *ServiceSuite) TestReset() {
	for range 3 {
		_, err := s.service.Check(s.at(0), "203.0.113.9", models.ClassWhitelistCheck)
		s.Require().NoError(err)
	}
	s.Require().NoError(s.service.Reset(s.at(0), "203.0.113.9", models.ClassWhitelistCheck))

	result, err := s.service.Check(s.at(time.Second), "203.0.113.9", models.ClassWhitelistCheck)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(1, result.Count)
}

func (s *ServiceSuite) TestResetStoreFailure() {
	ctrl := gomock.NewController(s.T())
	store := mocks.NewMockBucketStore(ctrl)
	svc, err := New(store)
	s.Require().NoError(err)

	store.EXPECT().Reset(gomock.Any(), "rl:login:10.0.0.1").Return(errors.New("timeout"))

	err = svc.Reset(s.at(0), "10.0.0.1", models.ClassLogin)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}
