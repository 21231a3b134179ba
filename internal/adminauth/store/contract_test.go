package store_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"gatekeeper/internal/adminauth/models"
	"gatekeeper/internal/adminauth/service"
	"gatekeeper/pkg/platform/sentinel"
)

// adminStoreContractSuite holds the behaviour every admin store must satisfy.
type adminStoreContractSuite struct {
	suite.Suite
	newStore func() service.Store
	store    service.Store
	ctx      context.Context
	now      time.Time
}

func (s *adminStoreContractSuite) SetupTest() {
	s.store = s.newStore()
	s.ctx = context.Background()
	s.now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
}

func (s *adminStoreContractSuite) record(addr string, perms models.Permissions) *models.AdminRecord {
	rec, err := models.NewAdminRecord(addr, perms, s.now)
	s.Require().NoError(err)
	return rec
}

func (s *adminStoreContractSuite) TestGetMissing() {
	_, err := s.store.Get(s.ctx, "nobody@acme.com")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *adminStoreContractSuite) TestSaveAndGet() {
	rec := s.record("root@acme.com", models.AllPermissions())
	s.Require().NoError(s.store.Save(s.ctx, rec))

	got, err := s.store.Get(s.ctx, "root@acme.com")
	s.Require().NoError(err)
	s.Equal(rec.Email, got.Email)
	s.Equal(models.RoleAdmin, got.Role)
	s.Equal(models.AllPermissions(), got.Permissions)
	s.True(got.Active)
	s.True(s.now.Equal(got.CreatedAt))
}

func (s *adminStoreContractSuite) TestSaveReplacesPermissions() {
	s.Require().NoError(s.store.Save(s.ctx, s.record("ops@acme.com", models.AllPermissions())))
	s.Require().NoError(s.store.Save(s.ctx, s.record("ops@acme.com", models.Permissions{ViewAnalytics: true})))

	got, err := s.store.Get(s.ctx, "ops@acme.com")
	s.Require().NoError(err)
	s.Equal(models.Permissions{ViewAnalytics: true}, got.Permissions)
}

func (s *adminStoreContractSuite) TestSetActive() {
	s.Require().NoError(s.store.Save(s.ctx, s.record("ops@acme.com", models.AllPermissions())))
	s.Require().NoError(s.store.SetActive(s.ctx, "ops@acme.com", false))

	got, err := s.store.Get(s.ctx, "ops@acme.com")
	s.Require().NoError(err)
	s.False(got.Active)
	s.False(got.Can(models.CapManageUsers))

	s.ErrorIs(s.store.SetActive(s.ctx, "nobody@acme.com", false), sentinel.ErrNotFound)
}

func (s *adminStoreContractSuite) TestListOrderedByEmail() {
	for _, addr := range []string{"zed@acme.com", "amy@acme.com", "kim@acme.com"} {
		s.Require().NoError(s.store.Save(s.ctx, s.record(addr, models.AllPermissions())))
	}

	recs, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(recs, 3)
	s.Equal("amy@acme.com", recs[0].Email)
	s.Equal("kim@acme.com", recs[1].Email)
	s.Equal("zed@acme.com", recs[2].Email)
}
