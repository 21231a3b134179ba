//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"gatekeeper/internal/adminauth/service"
	"gatekeeper/internal/adminauth/store"
	"gatekeeper/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	adminStoreContractSuite
	postgres *containers.PostgresContainer
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	s := new(PostgresStoreSuite)
	s.postgres = containers.GetManager().GetPostgres(t)
	s.newStore = func() service.Store {
		if err := s.postgres.TruncateTables(context.Background(), "admin_records"); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return store.NewPostgres(s.postgres.DB)
	}
	suite.Run(t, s)
}
