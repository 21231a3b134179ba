package store

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"gatekeeper/internal/admission/models"
	"gatekeeper/internal/admission/ports"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/platform/sentinel"
)

// defaultTxTimeout bounds transactions whose caller set no deadline.
const defaultTxTimeout = 5 * time.Second

// InMemoryStore keeps admission state behind one RWMutex. Records are copied
// on the way in and out so callers never alias stored values.
type InMemoryStore struct {
	mu   sync.RWMutex
	data memoryData
}

type memoryData struct {
	policy   *models.DomainPolicy
	entries  map[string]models.WhitelistEntry
	requests map[string]models.AdmissionRequest
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: memoryData{
		entries:  make(map[string]models.WhitelistEntry),
		requests: make(map[string]models.AdmissionRequest),
	}}
}

var _ ports.ConfigStore = (*InMemoryStore)(nil)

// RunInTx runs fn under the write lock. If fn fails every change it made is
// rolled back.
func (s *InMemoryStore) RunInTx(ctx context.Context, fn func(store ports.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTxTimeout)
		defer cancel()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	snapshot := s.data.clone()
	if err := fn(&txView{data: &s.data}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *InMemoryStore) GetPolicy(ctx context.Context) (*models.DomainPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().GetPolicy(ctx)
}

func (s *InMemoryStore) SavePolicy(ctx context.Context, p *models.DomainPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().SavePolicy(ctx, p)
}

func (s *InMemoryStore) CreatePolicyIfAbsent(ctx context.Context, p *models.DomainPolicy) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().CreatePolicyIfAbsent(ctx, p)
}

func (s *InMemoryStore) GetEntry(ctx context.Context, email string) (*models.WhitelistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().GetEntry(ctx, email)
}

func (s *InMemoryStore) UpsertEntry(ctx context.Context, entry *models.WhitelistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().UpsertEntry(ctx, entry)
}

func (s *InMemoryStore) DeleteEntry(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().DeleteEntry(ctx, email)
}

func (s *InMemoryStore) ListEntries(ctx context.Context) ([]*models.WhitelistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().ListEntries(ctx)
}

func (s *InMemoryStore) CreateRequest(ctx context.Context, req *models.AdmissionRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().CreateRequest(ctx, req)
}

func (s *InMemoryStore) GetRequest(ctx context.Context, id string) (*models.AdmissionRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().GetRequest(ctx, id)
}

func (s *InMemoryStore) ListRequests(ctx context.Context, status models.RequestStatus) ([]*models.AdmissionRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().ListRequests(ctx, status)
}

func (s *InMemoryStore) CompleteRequest(ctx context.Context, req *models.AdmissionRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().CompleteRequest(ctx, req)
}

func (s *InMemoryStore) CountRequests(ctx context.Context) (map[models.RequestStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().CountRequests(ctx)
}

func (s *InMemoryStore) view() *txView {
	return &txView{data: &s.data}
}

// txView operates on the data without locking; the caller holds the lock.
type txView struct {
	data *memoryData
}

func (v *txView) GetPolicy(_ context.Context) (*models.DomainPolicy, error) {
	if v.data.policy == nil {
		return nil, sentinel.ErrNotFound
	}
	return v.data.policy.Clone(), nil
}

func (v *txView) SavePolicy(_ context.Context, p *models.DomainPolicy) error {
	v.data.policy = p.Clone()
	return nil
}

func (v *txView) CreatePolicyIfAbsent(_ context.Context, p *models.DomainPolicy) (bool, error) {
	if v.data.policy != nil {
		return false, nil
	}
	v.data.policy = p.Clone()
	return true, nil
}

func (v *txView) GetEntry(_ context.Context, email string) (*models.WhitelistEntry, error) {
	entry, ok := v.data.entries[email]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &entry, nil
}

func (v *txView) UpsertEntry(_ context.Context, entry *models.WhitelistEntry) error {
	v.data.entries[entry.Email] = *entry
	return nil
}

func (v *txView) DeleteEntry(_ context.Context, email string) error {
	if _, ok := v.data.entries[email]; !ok {
		return sentinel.ErrNotFound
	}
	delete(v.data.entries, email)
	return nil
}

func (v *txView) ListEntries(_ context.Context) ([]*models.WhitelistEntry, error) {
	out := make([]*models.WhitelistEntry, 0, len(v.data.entries))
	for _, entry := range v.data.entries {
		out = append(out, &entry)
	}
	slices.SortFunc(out, func(a, b *models.WhitelistEntry) int {
		return strings.Compare(a.Email, b.Email)
	})
	return out, nil
}

func (v *txView) CreateRequest(_ context.Context, req *models.AdmissionRequest) error {
	for _, existing := range v.data.requests {
		if existing.Email == req.Email && existing.Status == models.StatusPending {
			return sentinel.ErrConflict
		}
	}
	if _, ok := v.data.requests[req.ID]; ok {
		return sentinel.ErrConflict
	}
	v.data.requests[req.ID] = copyRequest(*req)
	return nil
}

func (v *txView) GetRequest(_ context.Context, id string) (*models.AdmissionRequest, error) {
	req, ok := v.data.requests[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := copyRequest(req)
	return &c, nil
}

func (v *txView) ListRequests(_ context.Context, status models.RequestStatus) ([]*models.AdmissionRequest, error) {
	out := make([]*models.AdmissionRequest, 0)
	for _, req := range v.data.requests {
		if status != "" && req.Status != status {
			continue
		}
		c := copyRequest(req)
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *models.AdmissionRequest) int {
		return cmp.Or(a.RequestedAt.Compare(b.RequestedAt), strings.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (v *txView) CompleteRequest(_ context.Context, req *models.AdmissionRequest) error {
	stored, ok := v.data.requests[req.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Status != models.StatusPending {
		return sentinel.ErrInvalidState
	}
	v.data.requests[req.ID] = copyRequest(*req)
	return nil
}

func (v *txView) CountRequests(_ context.Context) (map[models.RequestStatus]int, error) {
	counts := make(map[models.RequestStatus]int, 3)
	for _, req := range v.data.requests {
		counts[req.Status]++
	}
	return counts, nil
}

func (d memoryData) clone() memoryData {
	c := memoryData{
		entries:  maps.Clone(d.entries),
		requests: make(map[string]models.AdmissionRequest, len(d.requests)),
	}
	if d.policy != nil {
		c.policy = d.policy.Clone()
	}
	for id, req := range d.requests {
		c.requests[id] = copyRequest(req)
	}
	return c
}

func copyRequest(r models.AdmissionRequest) models.AdmissionRequest {
	if r.ProcessedAt != nil {
		t := *r.ProcessedAt
		r.ProcessedAt = &t
	}
	return r
}
