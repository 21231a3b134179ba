// Package service is the admission facade: it evaluates identities against
// the domain policy, runs the admission request lifecycle and exposes the
// capability-gated administrative operations.
//
// Every operation reads the policy from the store. Nothing is cached between
// calls, so an edit is visible to the next check on any replica.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	adminmodels "gatekeeper/internal/adminauth/models"
	"gatekeeper/internal/admission/models"
	"gatekeeper/internal/admission/policy"
	"gatekeeper/internal/admission/ports"
	"gatekeeper/internal/audit"
	"gatekeeper/internal/platform/metrics"
	rlmodels "gatekeeper/internal/ratelimit/models"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/email"
	"gatekeeper/pkg/platform/sentinel"
	"gatekeeper/pkg/requestcontext"
)

var (
	attrAdmitted  = attribute.Key("admission.admitted")
	attrReason    = attribute.Key("admission.reason")
	attrRequestID = attribute.Key("admission.request_id")
	attrAction    = attribute.Key("admission.action")
)

// RateLimiter counts calls per key and limit class.
type RateLimiter interface {
	Check(ctx context.Context, key string, class rlmodels.LimitClass) (*rlmodels.Result, error)
}

// Authority gates administrative operations by capability.
type Authority interface {
	Require(ctx context.Context, actor string, capability adminmodels.Capability) error
}

// EventLog appends and lists security events.
type EventLog interface {
	Record(ctx context.Context, kind audit.EventKind, actor, detail string)
	List(ctx context.Context, filter audit.Filter) ([]audit.SecurityEvent, error)
}

type Service struct {
	store     ports.ConfigStore
	limiter   RateLimiter
	authority Authority
	events    EventLog
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func New(store ports.ConfigStore, limiter RateLimiter, authority Authority, events EventLog, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("config store is required")
	}
	if limiter == nil {
		return nil, errors.New("rate limiter is required")
	}
	if authority == nil {
		return nil, errors.New("admin authority is required")
	}
	if events == nil {
		return nil, errors.New("event log is required")
	}

	svc := &Service{
		store:     store,
		limiter:   limiter,
		authority: authority,
		events:    events,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.tracer == nil {
		svc.tracer = otel.Tracer("gatekeeper/admission")
	}
	return svc, nil
}

// InitPolicy stores the default policy when none exists. It reports whether
// a policy was created.
func (s *Service) InitPolicy(ctx context.Context) (bool, error) {
	created, err := s.store.CreatePolicyIfAbsent(ctx, models.DefaultPolicy(requestcontext.Now(ctx)))
	if err != nil {
		return false, s.translate(ctx, err, "")
	}
	if created {
		s.logger.InfoContext(ctx, "default domain policy created")
		s.events.Record(ctx, audit.KindPolicyChange, models.AddedBySystem, "default policy created")
	}
	return created, nil
}

// Check evaluates addr against the current policy. The check is rate limited
// per email and recorded as a whitelist-check event. Any store failure
// returns CodeUnavailable; a failed check never admits.
func (s *Service) Check(ctx context.Context, addr string) (models.AdmitResult, error) {
	ctx, span := s.tracer.Start(ctx, "admission.Check")
	defer span.End()

	normalized := email.Normalize(addr)
	if err := s.throttle(ctx, normalized, rlmodels.ClassWhitelistCheck); err != nil {
		return deny(span, err)
	}

	result, err := s.evaluate(ctx, s.store, normalized)
	if err != nil {
		return deny(span, err)
	}

	s.events.Record(ctx, audit.KindWhitelistCheck, normalized,
		fmt.Sprintf("admitted=%t reason=%s", result.Admitted, result.Reason))
	s.observe(span, result)
	return result, nil
}

// evaluate loads the policy and the entry for the normalized address and
// runs the engine. A missing policy denies.
func (s *Service) evaluate(ctx context.Context, store ports.Store, addr string) (models.AdmitResult, error) {
	if !email.IsValid(addr) {
		return models.AdmitResult{Reason: models.ReasonInvalidEmail}, nil
	}

	start := time.Now()
	p, err := store.GetPolicy(ctx)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return models.AdmitResult{}, s.translate(ctx, err, "")
	}
	if p == nil {
		s.logger.WarnContext(ctx, "domain policy not initialized; denying")
	}

	entry, err := store.GetEntry(ctx, addr)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return models.AdmitResult{}, s.translate(ctx, err, "")
		}
		entry = nil
	}
	if s.metrics != nil {
		s.metrics.ObserveStoreLatency("evaluate", start)
	}

	return policy.IsAdmitted(addr, p, entry), nil
}

// throttle charges one call to key under class. Over the limit it records a
// login-failure event and returns CodeRateLimited.
func (s *Service) throttle(ctx context.Context, key string, class rlmodels.LimitClass) error {
	res, err := s.limiter.Check(ctx, key, class)
	if err != nil {
		return err
	}
	if res.Allowed {
		return nil
	}
	s.events.Record(ctx, audit.KindLoginFailure, key,
		fmt.Sprintf("rate limited: %s, retry after %ds", class, res.RetryAfter))
	return dErrors.New(dErrors.CodeRateLimited, "too many requests")
}

// guard authorizes actor for capability, then charges the api limit.
func (s *Service) guard(ctx context.Context, actor string, capability adminmodels.Capability) (string, error) {
	actor = email.Normalize(actor)
	if err := s.authority.Require(ctx, actor, capability); err != nil {
		return "", err
	}
	if err := s.throttle(ctx, actor, rlmodels.ClassAPI); err != nil {
		return "", err
	}
	return actor, nil
}

// translate maps store errors to domain codes. Errors that already carry a
// code pass through unchanged.
func (s *Service) translate(ctx context.Context, err error, notFound string) error {
	if err == nil {
		return nil
	}
	if code, ok := dErrors.CodeOf(err); ok {
		if code == dErrors.CodeTimeout {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "config store timed out")
		}
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		if notFound == "" {
			notFound = "not found"
		}
		return dErrors.New(dErrors.CodeNotFound, notFound)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeDuplicateRequest, "a pending admission request already exists")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeAlreadyProcessed, "admission request already processed")
	}
	s.logger.ErrorContext(ctx, "config store failed", "error", err)
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "config store unavailable")
}

func (s *Service) observe(span trace.Span, result models.AdmitResult) {
	span.SetAttributes(
		attrAdmitted.Bool(result.Admitted),
		attrReason.String(string(result.Reason)),
	)
	if s.metrics != nil {
		s.metrics.IncrementDecision(string(result.Reason))
	}
}

func deny(span trace.Span, err error) (models.AdmitResult, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return models.AdmitResult{Admitted: false, Reason: models.ReasonDenied}, err
}
