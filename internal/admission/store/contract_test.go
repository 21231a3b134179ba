package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"gatekeeper/internal/admission/models"
	"gatekeeper/internal/admission/ports"
	"gatekeeper/pkg/platform/sentinel"
)

// storeContractSuite holds the behaviour every ConfigStore must satisfy.
// Concrete suites embed it and set newStore.
type storeContractSuite struct {
	suite.Suite
	newStore func() ports.ConfigStore
	store    ports.ConfigStore
	ctx      context.Context
	now      time.Time
}

func (s *storeContractSuite) SetupTest() {
	s.store = s.newStore()
	s.ctx = context.Background()
	s.now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
}

func (s *storeContractSuite) request(addr string, offset time.Duration) *models.AdmissionRequest {
	req, err := models.NewAdmissionRequest(addr, s.now.Add(offset))
	s.Require().NoError(err)
	return req
}

// =============================================================================
// Policy
// =============================================================================

func (s *storeContractSuite) TestPolicy() {
	s.Run("missing before initialization", func() {
		_, err := s.store.GetPolicy(s.ctx)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("create if absent only once", func() {
		created, err := s.store.CreatePolicyIfAbsent(s.ctx, models.DefaultPolicy(s.now))
		s.Require().NoError(err)
		s.True(created)

		other := models.DefaultPolicy(s.now)
		other.AllowNewUsers = false
		created, err = s.store.CreatePolicyIfAbsent(s.ctx, other)
		s.Require().NoError(err)
		s.False(created)

		p, err := s.store.GetPolicy(s.ctx)
		s.Require().NoError(err)
		s.True(p.AllowNewUsers)
		s.Empty(p.AllowedDomains)
	})

	s.Run("save replaces", func() {
		p, err := models.NewDomainPolicy([]string{"corp.io", "b.org"}, []string{"x@y.io"}, false, true, "admin@corp.io", s.now)
		s.Require().NoError(err)
		s.Require().NoError(s.store.SavePolicy(s.ctx, p))

		got, err := s.store.GetPolicy(s.ctx)
		s.Require().NoError(err)
		s.Equal([]string{"b.org", "corp.io"}, got.AllowedDomains)
		s.Equal([]string{"x@y.io"}, got.AllowedEmails)
		s.True(got.RequireApproval)
		s.Equal("admin@corp.io", got.UpdatedBy)
		s.True(s.now.Equal(got.UpdatedAt))
	})
}

// =============================================================================
// Whitelist entries
// =============================================================================

func (s *storeContractSuite) TestEntries() {
	entry, err := models.NewWhitelistEntry("alice@corp.io", models.RoleUser, "admin@corp.io", s.now)
	s.Require().NoError(err)

	s.Run("missing entry", func() {
		_, err := s.store.GetEntry(s.ctx, "alice@corp.io")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("upsert keeps one entry per email", func() {
		s.Require().NoError(s.store.UpsertEntry(s.ctx, entry))
		again := *entry
		again.Role = models.RoleAdmin
		s.Require().NoError(s.store.UpsertEntry(s.ctx, &again))

		entries, err := s.store.ListEntries(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(models.RoleAdmin, entries[0].Role)
	})

	s.Run("list ordered by email", func() {
		other, err := models.NewWhitelistEntry("aaron@corp.io", "", models.AddedBySystem, s.now)
		s.Require().NoError(err)
		s.Require().NoError(s.store.UpsertEntry(s.ctx, other))

		entries, err := s.store.ListEntries(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(entries, 2)
		s.Equal("aaron@corp.io", entries[0].Email)
	})

	s.Run("delete", func() {
		s.Require().NoError(s.store.DeleteEntry(s.ctx, "alice@corp.io"))
		s.ErrorIs(s.store.DeleteEntry(s.ctx, "alice@corp.io"), sentinel.ErrNotFound)
	})
}

// =============================================================================
// Admission requests
// =============================================================================

func (s *storeContractSuite) TestRequests() {
	first := s.request("bob@corp.io", 0)
	second := s.request("carol@corp.io", time.Minute)

	s.Run("one pending request per email", func() {
		s.Require().NoError(s.store.CreateRequest(s.ctx, first))
		s.Require().NoError(s.store.CreateRequest(s.ctx, second))

		dup := s.request("bob@corp.io", 2*time.Minute)
		s.ErrorIs(s.store.CreateRequest(s.ctx, dup), sentinel.ErrConflict)
	})

	s.Run("get unknown id", func() {
		_, err := s.store.GetRequest(s.ctx, uuid.NewString())
		s.ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.store.GetRequest(s.ctx, "not-a-uuid")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("pending listed oldest first", func() {
		reqs, err := s.store.ListRequests(s.ctx, models.StatusPending)
		s.Require().NoError(err)
		s.Require().Len(reqs, 2)
		s.Equal("bob@corp.io", reqs[0].Email)
		s.Equal("carol@corp.io", reqs[1].Email)
	})

	s.Run("complete only from pending", func() {
		req, err := s.store.GetRequest(s.ctx, first.ID)
		s.Require().NoError(err)
		s.Require().NoError(req.Process(models.ActionApprove, "admin@corp.io", s.now.Add(time.Hour)))
		s.Require().NoError(s.store.CompleteRequest(s.ctx, req))

		again, err := s.store.GetRequest(s.ctx, first.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, again.Status)
		s.Equal("admin@corp.io", again.ProcessedBy)
		s.Require().NotNil(again.ProcessedAt)

		stale := *first
		stale.Status = models.StatusRejected
		s.ErrorIs(s.store.CompleteRequest(s.ctx, &stale), sentinel.ErrInvalidState)

		ghost := s.request("ghost@corp.io", 0)
		ghost.Status = models.StatusRejected
		s.ErrorIs(s.store.CompleteRequest(s.ctx, ghost), sentinel.ErrNotFound)
	})

	s.Run("processed email may request again", func() {
		s.Require().NoError(s.store.CreateRequest(s.ctx, s.request("bob@corp.io", 3*time.Minute)))
	})

	s.Run("list all statuses and counts", func() {
		all, err := s.store.ListRequests(s.ctx, "")
		s.Require().NoError(err)
		s.Len(all, 3)

		counts, err := s.store.CountRequests(s.ctx)
		s.Require().NoError(err)
		s.Equal(2, counts[models.StatusPending])
		s.Equal(1, counts[models.StatusApproved])
		s.Equal(0, counts[models.StatusRejected])
	})
}

func (s *storeContractSuite) TestConcurrentCreateRequest() {
	var wg sync.WaitGroup
	var created, conflicts atomic.Int32
	for i := range 20 {
		wg.Go(func() {
			err := s.store.CreateRequest(s.ctx, s.request("race@corp.io", time.Duration(i)*time.Millisecond))
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		})
	}
	wg.Wait()

	s.Equal(int32(1), created.Load())
	s.Equal(int32(19), conflicts.Load())
}

func (s *storeContractSuite) TestConcurrentPolicyEdits() {
	_, err := s.store.CreatePolicyIfAbsent(s.ctx, models.DefaultPolicy(s.now))
	s.Require().NoError(err)

	const editors = 10
	var wg sync.WaitGroup
	errs := make(chan error, editors)
	for i := range editors {
		wg.Go(func() {
			errs <- s.store.RunInTx(s.ctx, func(tx ports.Store) error {
				p, err := tx.GetPolicy(s.ctx)
				if err != nil {
					return err
				}
				p.AddDomain(fmt.Sprintf("team%d.io", i))
				p.Touch("admin@corp.io", s.now)
				return tx.SavePolicy(s.ctx, p)
			})
		})
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	p, err := s.store.GetPolicy(s.ctx)
	s.Require().NoError(err)
	s.Len(p.AllowedDomains, editors)
	for i := range editors {
		s.True(p.HasDomain(fmt.Sprintf("team%d.io", i)))
	}
}

// =============================================================================
// Transactions
// =============================================================================

func (s *storeContractSuite) TestRunInTx() {
	req := s.request("dave@corp.io", 0)
	s.Require().NoError(s.store.CreateRequest(s.ctx, req))

	s.Run("error rolls back every write", func() {
		boom := errors.New("boom")
		err := s.store.RunInTx(s.ctx, func(tx ports.Store) error {
			r, err := tx.GetRequest(s.ctx, req.ID)
			s.Require().NoError(err)
			s.Require().NoError(r.Process(models.ActionApprove, "admin@corp.io", s.now))
			s.Require().NoError(tx.CompleteRequest(s.ctx, r))
			entry, err := models.NewWhitelistEntry(r.Email, models.RoleUser, "admin@corp.io", s.now)
			s.Require().NoError(err)
			s.Require().NoError(tx.UpsertEntry(s.ctx, entry))
			return boom
		})
		s.ErrorIs(err, boom)

		got, err := s.store.GetRequest(s.ctx, req.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, got.Status)
		_, err = s.store.GetEntry(s.ctx, "dave@corp.io")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("success commits", func() {
		err := s.store.RunInTx(s.ctx, func(tx ports.Store) error {
			r, err := tx.GetRequest(s.ctx, req.ID)
			if err != nil {
				return err
			}
			if err := r.Process(models.ActionReject, "admin@corp.io", s.now); err != nil {
				return err
			}
			return tx.CompleteRequest(s.ctx, r)
		})
		s.Require().NoError(err)

		got, err := s.store.GetRequest(s.ctx, req.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusRejected, got.Status)
	})
}
