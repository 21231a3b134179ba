package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	adminmodels "gatekeeper/internal/adminauth/models"
	"gatekeeper/internal/admission/models"
	"gatekeeper/internal/admission/ports"
	"gatekeeper/internal/audit"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/email"
	"gatekeeper/pkg/platform/sentinel"
	"gatekeeper/pkg/requestcontext"
)

// PolicyUpdate replaces the whole policy document.
type PolicyUpdate struct {
	AllowedDomains  []string `json:"allowed_domains" yaml:"allowed_domains"`
	AllowedEmails   []string `json:"allowed_emails" yaml:"allowed_emails"`
	AllowNewUsers   bool     `json:"allow_new_users" yaml:"allow_new_users"`
	RequireApproval bool     `json:"require_approval" yaml:"require_approval"`
}

// GetPolicy returns the current policy. Requires manageWhitelist.
func (s *Service) GetPolicy(ctx context.Context, actor string) (*models.DomainPolicy, error) {
	if _, err := s.guard(ctx, actor, adminmodels.CapManageWhitelist); err != nil {
		return nil, err
	}
	p, err := s.store.GetPolicy(ctx)
	if err != nil {
		return nil, s.translate(ctx, err, "domain policy not initialized")
	}
	return p, nil
}

// UpdatePolicy replaces the policy. Placeholder domains and emails are
// rejected with CodeInvalidInput.
func (s *Service) UpdatePolicy(ctx context.Context, actor string, update PolicyUpdate) (*models.DomainPolicy, error) {
	actor, err := s.guard(ctx, actor, adminmodels.CapManageWhitelist)
	if err != nil {
		return nil, err
	}
	p, err := models.NewDomainPolicy(update.AllowedDomains, update.AllowedEmails,
		update.AllowNewUsers, update.RequireApproval, actor, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := rejectPlaceholders(p); err != nil {
		return nil, err
	}

	if err := s.store.SavePolicy(ctx, p); err != nil {
		return nil, s.translate(ctx, err, "")
	}
	s.policyChanged(ctx, actor, fmt.Sprintf("policy replaced: %d domains, %d emails, allow_new_users=%t, require_approval=%t",
		len(p.AllowedDomains), len(p.AllowedEmails), p.AllowNewUsers, p.RequireApproval))
	return p, nil
}

// AddDomain lists domain in AllowedDomains. Adding a listed domain is a no-op.
func (s *Service) AddDomain(ctx context.Context, actor, domain string) (*models.DomainPolicy, error) {
	domain = email.NormalizeDomain(domain)
	if err := validateDomain(domain); err != nil {
		return nil, err
	}
	return s.editPolicy(ctx, actor, "domain "+domain+" added", func(p *models.DomainPolicy) (bool, error) {
		return p.AddDomain(domain), nil
	})
}

// RemoveDomain unlists domain. An unlisted domain returns CodeNotFound.
func (s *Service) RemoveDomain(ctx context.Context, actor, domain string) (*models.DomainPolicy, error) {
	domain = email.NormalizeDomain(domain)
	return s.editPolicy(ctx, actor, "domain "+domain+" removed", func(p *models.DomainPolicy) (bool, error) {
		if !p.RemoveDomain(domain) {
			return false, dErrors.New(dErrors.CodeNotFound, "domain not in policy")
		}
		return true, nil
	})
}

// AddEmail lists addr in AllowedEmails. Adding a listed email is a no-op.
func (s *Service) AddEmail(ctx context.Context, actor, addr string) (*models.DomainPolicy, error) {
	addr = email.Normalize(addr)
	if err := validateEmail(addr); err != nil {
		return nil, err
	}
	return s.editPolicy(ctx, actor, "email "+addr+" added", func(p *models.DomainPolicy) (bool, error) {
		return p.AddEmail(addr), nil
	})
}

// RemoveEmail unlists addr. An unlisted email returns CodeNotFound.
func (s *Service) RemoveEmail(ctx context.Context, actor, addr string) (*models.DomainPolicy, error) {
	addr = email.Normalize(addr)
	return s.editPolicy(ctx, actor, "email "+addr+" removed", func(p *models.DomainPolicy) (bool, error) {
		if !p.RemoveEmail(addr) {
			return false, dErrors.New(dErrors.CodeNotFound, "email not in policy")
		}
		return true, nil
	})
}

// editPolicy applies mutate to the stored policy inside one transaction and
// saves it when mutate reports a change.
func (s *Service) editPolicy(ctx context.Context, actor, detail string, mutate func(*models.DomainPolicy) (bool, error)) (*models.DomainPolicy, error) {
	actor, err := s.guard(ctx, actor, adminmodels.CapManageWhitelist)
	if err != nil {
		return nil, err
	}

	var (
		updated *models.DomainPolicy
		changed bool
	)
	err = s.store.RunInTx(ctx, func(store ports.Store) error {
		p, err := store.GetPolicy(ctx)
		if err != nil {
			return err
		}
		changed, err = mutate(p)
		if err != nil {
			return err
		}
		if changed {
			p.Touch(actor, requestcontext.Now(ctx))
			if err := store.SavePolicy(ctx, p); err != nil {
				return err
			}
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, s.translate(ctx, err, "domain policy not initialized")
	}
	if changed {
		s.policyChanged(ctx, actor, detail)
	}
	return updated, nil
}

// AddToWhitelist grants addr access with role, recording actor as AddedBy.
// An existing entry is replaced.
func (s *Service) AddToWhitelist(ctx context.Context, actor, addr string, role models.Role) (*models.WhitelistEntry, error) {
	actor, err := s.guard(ctx, actor, adminmodels.CapManageWhitelist)
	if err != nil {
		return nil, err
	}
	entry, err := s.grant(ctx, actor, addr, role)
	if err != nil {
		return nil, err
	}
	s.policyChanged(ctx, actor, fmt.Sprintf("whitelisted %s as %s", entry.Email, entry.Role))
	return entry, nil
}

// RemoveFromWhitelist deletes the entry for addr. A missing entry returns
// CodeNotFound.
func (s *Service) RemoveFromWhitelist(ctx context.Context, actor, addr string) error {
	actor, err := s.guard(ctx, actor, adminmodels.CapManageWhitelist)
	if err != nil {
		return err
	}
	addr = email.Normalize(addr)
	if err := s.store.DeleteEntry(ctx, addr); err != nil {
		return s.translate(ctx, err, "whitelist entry not found")
	}
	s.policyChanged(ctx, actor, "removed "+addr+" from whitelist")
	return nil
}

// ListWhitelist returns every whitelist entry ordered by email.
func (s *Service) ListWhitelist(ctx context.Context, actor string) ([]*models.WhitelistEntry, error) {
	if _, err := s.guard(ctx, actor, adminmodels.CapManageWhitelist); err != nil {
		return nil, err
	}
	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return nil, s.translate(ctx, err, "")
	}
	return entries, nil
}

// Stats summarizes whitelist, request and policy sizes. Requires viewAnalytics.
func (s *Service) Stats(ctx context.Context, actor string) (*models.Stats, error) {
	if _, err := s.guard(ctx, actor, adminmodels.CapViewAnalytics); err != nil {
		return nil, err
	}

	var (
		entries []*models.WhitelistEntry
		counts  map[models.RequestStatus]int
		p       *models.DomainPolicy
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.store.ListEntries(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = s.store.CountRequests(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		p, err = s.store.GetPolicy(gctx)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.translate(ctx, err, "")
	}

	stats := &models.Stats{
		PendingRequests:  counts[models.StatusPending],
		ApprovedRequests: counts[models.StatusApproved],
		RejectedRequests: counts[models.StatusRejected],
	}
	for _, e := range entries {
		if e.IsWhitelisted {
			stats.TotalWhitelisted++
		}
	}
	if p != nil {
		stats.AllowedDomains = len(p.AllowedDomains)
		stats.AllowedEmails = len(p.AllowedEmails)
	}
	return stats, nil
}

// ListEvents returns security events matching filter, newest first.
// Requires viewAnalytics.
func (s *Service) ListEvents(ctx context.Context, actor string, filter audit.Filter) ([]audit.SecurityEvent, error) {
	if _, err := s.guard(ctx, actor, adminmodels.CapViewAnalytics); err != nil {
		return nil, err
	}
	if filter.Actor != "" {
		filter.Actor = email.Normalize(filter.Actor)
	}
	events, err := s.events.List(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "security event listing failed", "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "security event log unavailable")
	}
	return events, nil
}

// SeedPolicy replaces the policy and upserts entries on behalf of the system
// actor. It backs the bootstrap CLI and bypasses capability checks.
func (s *Service) SeedPolicy(ctx context.Context, update PolicyUpdate, entries map[string]models.Role) (*models.DomainPolicy, error) {
	p, err := models.NewDomainPolicy(update.AllowedDomains, update.AllowedEmails,
		update.AllowNewUsers, update.RequireApproval, models.AddedBySystem, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := rejectPlaceholders(p); err != nil {
		return nil, err
	}
	err = s.store.RunInTx(ctx, func(store ports.Store) error {
		if err := store.SavePolicy(ctx, p); err != nil {
			return err
		}
		for addr, role := range entries {
			entry, err := models.NewWhitelistEntry(addr, role, models.AddedBySystem, requestcontext.Now(ctx))
			if err != nil {
				return dErrors.New(dErrors.CodeInvalidInput, "invalid seed entry: "+addr)
			}
			if err := store.UpsertEntry(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.translate(ctx, err, "")
	}
	s.policyChanged(ctx, models.AddedBySystem, fmt.Sprintf("policy seeded: %d domains, %d emails, %d entries",
		len(p.AllowedDomains), len(p.AllowedEmails), len(entries)))
	return p, nil
}

// GrantEntry upserts a whitelist entry on behalf of the system actor. The CLI
// uses it to whitelist bootstrapped admins.
func (s *Service) GrantEntry(ctx context.Context, addr string, role models.Role) (*models.WhitelistEntry, error) {
	entry, err := s.grant(ctx, models.AddedBySystem, addr, role)
	if err != nil {
		return nil, err
	}
	s.policyChanged(ctx, models.AddedBySystem, fmt.Sprintf("whitelisted %s as %s", entry.Email, entry.Role))
	return entry, nil
}

func (s *Service) grant(ctx context.Context, actor, addr string, role models.Role) (*models.WhitelistEntry, error) {
	addr = email.Normalize(addr)
	if err := validateEmail(addr); err != nil {
		return nil, err
	}
	if role != "" && !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "role must be 'user' or 'admin'")
	}
	entry, err := models.NewWhitelistEntry(addr, role, actor, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.UpsertEntry(ctx, entry); err != nil {
		return nil, s.translate(ctx, err, "")
	}
	return entry, nil
}

func (s *Service) policyChanged(ctx context.Context, actor, detail string) {
	s.logger.InfoContext(ctx, "admission policy changed",
		"actor", actor,
		"detail", detail,
		"request_id", requestcontext.RequestID(ctx),
		"log_type", "audit",
	)
	s.events.Record(ctx, audit.KindPolicyChange, actor, detail)
}

// validateEmail rejects malformed and placeholder addresses supplied from
// outside. addr must already be normalized.
func validateEmail(addr string) error {
	if !email.IsValid(addr) {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid email address")
	}
	if email.IsBlacklisted(addr) {
		return dErrors.New(dErrors.CodeInvalidInput, "email address not allowed")
	}
	return nil
}

func validateDomain(domain string) error {
	if !email.IsValidDomain(domain) {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid domain")
	}
	if email.IsBlacklistedDomain(domain) {
		return dErrors.New(dErrors.CodeInvalidInput, "domain not allowed")
	}
	return nil
}

func rejectPlaceholders(p *models.DomainPolicy) error {
	for _, d := range p.AllowedDomains {
		if email.IsBlacklistedDomain(d) {
			return dErrors.New(dErrors.CodeInvalidInput, "domain not allowed: "+d)
		}
	}
	for _, e := range p.AllowedEmails {
		if email.IsBlacklisted(e) {
			return dErrors.New(dErrors.CodeInvalidInput, "email not allowed: "+e)
		}
	}
	return nil
}
