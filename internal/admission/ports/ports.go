// Package ports defines the persistence boundary of the admission module.
//
// Stores report infrastructure facts with pkg/platform/sentinel errors:
// ErrNotFound for missing records, ErrConflict when the one-pending-request
// guard rejects a create, ErrInvalidState when a conditional update finds the
// request already processed. Any other error means the store is unavailable.
//
//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks
package ports

import (
	"context"

	"gatekeeper/internal/admission/models"
)

// Store reads and writes policy, whitelist entries and admission requests.
type Store interface {
	// GetPolicy returns the current policy or ErrNotFound before initialization.
	GetPolicy(ctx context.Context) (*models.DomainPolicy, error)
	// SavePolicy replaces the policy document.
	SavePolicy(ctx context.Context, p *models.DomainPolicy) error
	// CreatePolicyIfAbsent stores p only when no policy exists and reports whether it did.
	CreatePolicyIfAbsent(ctx context.Context, p *models.DomainPolicy) (bool, error)

	GetEntry(ctx context.Context, email string) (*models.WhitelistEntry, error)
	// UpsertEntry keeps at most one entry per email.
	UpsertEntry(ctx context.Context, entry *models.WhitelistEntry) error
	DeleteEntry(ctx context.Context, email string) error
	// ListEntries returns all entries ordered by email.
	ListEntries(ctx context.Context) ([]*models.WhitelistEntry, error)

	// CreateRequest inserts a pending request, or returns ErrConflict when the
	// email already has one.
	CreateRequest(ctx context.Context, req *models.AdmissionRequest) error
	GetRequest(ctx context.Context, id string) (*models.AdmissionRequest, error)
	// ListRequests returns requests with status (all when empty), oldest
	// first, ties broken by ID.
	ListRequests(ctx context.Context, status models.RequestStatus) ([]*models.AdmissionRequest, error)
	// CompleteRequest writes the terminal state of req only if the stored
	// request is still pending.
	CompleteRequest(ctx context.Context, req *models.AdmissionRequest) error
	// CountRequests returns the number of requests per status.
	CountRequests(ctx context.Context) (map[models.RequestStatus]int, error)
}

// ConfigStore is a Store with a transactional boundary. Implementations may
// wrap a database transaction or, in memory, a coarse lock.
type ConfigStore interface {
	Store
	RunInTx(ctx context.Context, fn func(store Store) error) error
}
