package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"gatekeeper/internal/adminauth/models"
	"gatekeeper/pkg/platform/sentinel"
)

// InMemoryStore keeps admin records keyed by normalized email.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.AdminRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]models.AdminRecord)}
}

func (s *InMemoryStore) Get(_ context.Context, email string) (*models.AdminRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[email]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &rec, nil
}

// Save inserts or replaces the record for rec.Email.
func (s *InMemoryStore) Save(_ context.Context, rec *models.AdminRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Email] = *rec
	return nil
}

func (s *InMemoryStore) SetActive(_ context.Context, email string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[email]
	if !ok {
		return sentinel.ErrNotFound
	}
	rec.Active = active
	s.records[email] = rec
	return nil
}

// List returns all records ordered by email.
func (s *InMemoryStore) List(_ context.Context) ([]*models.AdminRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.AdminRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, &rec)
	}
	slices.SortFunc(out, func(a, b *models.AdminRecord) int {
		return strings.Compare(a.Email, b.Email)
	})
	return out, nil
}
