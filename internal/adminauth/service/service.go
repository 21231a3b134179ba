// Package service decides which callers may perform administrative operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gatekeeper/internal/adminauth/models"
	"gatekeeper/internal/audit"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/email"
	"gatekeeper/pkg/platform/sentinel"
	"gatekeeper/pkg/requestcontext"
)

// Store persists admin records.
type Store interface {
	Get(ctx context.Context, email string) (*models.AdminRecord, error)
	Save(ctx context.Context, rec *models.AdminRecord) error
	SetActive(ctx context.Context, email string, active bool) error
	List(ctx context.Context) ([]*models.AdminRecord, error)
}

// EventRecorder appends security events.
type EventRecorder interface {
	Record(ctx context.Context, kind audit.EventKind, actor, detail string)
}

// SystemActor attributes bootstrap operations run from the CLI.
const SystemActor = "system"

type Service struct {
	store  Store
	events EventRecorder
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, events EventRecorder, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("admin store is required")
	}
	if events == nil {
		return nil, errors.New("event recorder is required")
	}
	svc := &Service{store: store, events: events, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// IsAdmin reports whether addr has an active admin record.
// Store failures fail closed with CodeUnavailable.
func (s *Service) IsAdmin(ctx context.Context, addr string) (bool, error) {
	rec, err := s.lookup(ctx, addr)
	if err != nil {
		return false, err
	}
	return rec != nil && rec.Active, nil
}

// Authorize reports whether actor is an active admin holding capability.
func (s *Service) Authorize(ctx context.Context, actor string, capability models.Capability) (bool, error) {
	rec, err := s.lookup(ctx, actor)
	if err != nil {
		return false, err
	}
	return rec.Can(capability), nil
}

// Require returns nil when actor holds capability. Otherwise it records one
// permission-denied event and returns CodeForbidden.
func (s *Service) Require(ctx context.Context, actor string, capability models.Capability) error {
	ok, err := s.Authorize(ctx, actor, capability)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	s.logger.WarnContext(ctx, "permission denied",
		"actor", actor,
		"capability", capability,
		"request_id", requestcontext.RequestID(ctx),
		"log_type", "audit",
	)
	s.events.Record(ctx, audit.KindPermissionDenied, email.Normalize(actor), "capability "+string(capability))
	return dErrors.New(dErrors.CodeForbidden, "permission denied")
}

// Bootstrap creates or replaces the admin record for addr. An existing
// record keeps its creation time.
func (s *Service) Bootstrap(ctx context.Context, addr string, perms models.Permissions) (*models.AdminRecord, error) {
	rec, err := models.NewAdminRecord(addr, perms, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	existing, err := s.store.Get(ctx, rec.Email)
	switch {
	case err == nil:
		rec.CreatedAt = existing.CreatedAt
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "admin store unavailable")
	}

	if err := s.store.Save(ctx, rec); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "admin store unavailable")
	}
	s.events.Record(ctx, audit.KindPolicyChange, SystemActor, fmt.Sprintf("admin %s granted %s", rec.Email, describe(perms)))
	return rec, nil
}

// Deactivate revokes every capability of addr without deleting the record.
func (s *Service) Deactivate(ctx context.Context, addr string) error {
	addr = email.Normalize(addr)
	if err := s.store.SetActive(ctx, addr, false); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "admin not found")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "admin store unavailable")
	}
	s.events.Record(ctx, audit.KindPolicyChange, SystemActor, "admin "+addr+" deactivated")
	return nil
}

// List returns every admin record, active or not.
func (s *Service) List(ctx context.Context) ([]*models.AdminRecord, error) {
	recs, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "admin store unavailable")
	}
	return recs, nil
}

// lookup returns nil without error when no record exists.
func (s *Service) lookup(ctx context.Context, addr string) (*models.AdminRecord, error) {
	addr = email.Normalize(addr)
	if addr == "" {
		return nil, nil
	}
	rec, err := s.store.Get(ctx, addr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		s.logger.ErrorContext(ctx, "admin lookup failed", "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "admin store unavailable")
	}
	return rec, nil
}

func describe(p models.Permissions) string {
	var caps []string
	for _, c := range []models.Capability{models.CapManageWhitelist, models.CapViewAnalytics, models.CapManageUsers} {
		if p.Has(c) {
			caps = append(caps, string(c))
		}
	}
	if len(caps) == 0 {
		return "no capabilities"
	}
	return fmt.Sprint(caps)
}
