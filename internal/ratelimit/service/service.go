// Package service implements the fixed-window rate limiter shared by the
// admission surfaces.
package service

import (
	"context"
	"errors"
	"log/slog"

	"gatekeeper/internal/ratelimit/config"
	"gatekeeper/internal/ratelimit/metrics"
	"gatekeeper/internal/ratelimit/models"
	"gatekeeper/internal/ratelimit/ports"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/requestcontext"
)

// BucketStore is aliased so callers can wire stores without importing ports.
type BucketStore = ports.BucketStore

// missingConfigRetryAfter is returned when a class has no configured limit.
const missingConfigRetryAfter = 60

type Service struct {
	buckets BucketStore
	logger  *slog.Logger
	config  *config.Config
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(buckets BucketStore, opts ...Option) (*Service, error) {
	if buckets == nil {
		return nil, errors.New("buckets store is required")
	}

	svc := &Service{
		buckets: buckets,
		config:  config.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}

	return svc, nil
}

// Check counts one call for key under class. Being over the limit is not an
// error: the result carries Allowed=false. A failing bucket store returns
// CodeUnavailable so callers fail closed.
func (s *Service) Check(ctx context.Context, key string, class models.LimitClass) (*models.Result, error) {
	if !class.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown limit class")
	}
	if s.metrics != nil {
		s.metrics.RecordCheck(class)
	}

	limit, ok := s.config.Get(class)
	if !ok {
		// Default-deny: no limit configured for this class
		s.logger.WarnContext(ctx, "rate_limit_config_missing",
			"limit_class", class,
			"log_type", "audit",
		)
		return &models.Result{
			Allowed:    false,
			ResetAt:    requestcontext.Now(ctx),
			RetryAfter: missingConfigRetryAfter,
		}, nil
	}

	k := models.NewKey(class, key)
	result, err := s.buckets.Allow(ctx, k.String(), limit.MaxCount, limit.Window)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordStoreError()
		}
		s.logger.ErrorContext(ctx, "rate limit store failed",
			"limit_class", class,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "rate limit store unavailable")
	}

	if !result.Allowed {
		if s.metrics != nil {
			s.metrics.RecordDenial(class)
		}
		s.logger.WarnContext(ctx, "rate_limit_exceeded",
			"identifier", k.Identifier,
			"limit_class", class,
			"limit", limit.MaxCount,
			"window_seconds", int(limit.Window.Seconds()),
			"request_id", requestcontext.RequestID(ctx),
			"log_type", "audit",
		)
	}

	return result, nil
}

// Reset clears the counter for key under class.
func (s *Service) Reset(ctx context.Context, key string, class models.LimitClass) error {
	if !class.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown limit class")
	}
	k := models.NewKey(class, key)
	if err := s.buckets.Reset(ctx, k.String()); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "rate limit store unavailable")
	}
	s.logger.InfoContext(ctx, "rate_limit_reset",
		"identifier", k.Identifier,
		"limit_class", class,
		"log_type", "audit",
	)
	return nil
}

// Limit returns the configured limit for class.
func (s *Service) Limit(class models.LimitClass) (models.Limit, bool) {
	return s.config.Get(class)
}
