package store_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"gatekeeper/internal/adminauth/models"
	"gatekeeper/internal/adminauth/service"
	"gatekeeper/internal/adminauth/store"
)

type InMemoryStoreSuite struct {
	adminStoreContractSuite
}

func TestInMemoryStoreSuite(t *testing.T) {
	s := new(InMemoryStoreSuite)
	s.newStore = func() service.Store { return store.NewInMemoryStore() }
	suite.Run(t, s)
}

func (s *InMemoryStoreSuite) TestReturnedRecordsAreCopies() {
	s.Require().NoError(s.store.Save(s.ctx, s.record("ops@acme.com", models.AllPermissions())))

	got, err := s.store.Get(s.ctx, "ops@acme.com")
	s.Require().NoError(err)
	got.Active = false

	again, err := s.store.Get(s.ctx, "ops@acme.com")
	s.Require().NoError(err)
	s.True(again.Active)
}
