//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gatekeeper/internal/admission/models"
	"gatekeeper/internal/admission/ports"
	"gatekeeper/internal/admission/store"
	"gatekeeper/pkg/platform/sentinel"
	"gatekeeper/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	storeContractSuite
	postgres *containers.PostgresContainer
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	s := new(PostgresStoreSuite)
	s.postgres = containers.GetManager().GetPostgres(t)
	s.newStore = func() ports.ConfigStore {
		err := s.postgres.TruncateTables(context.Background(), "domain_policy", "whitelist_entries", "admission_requests")
		if err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return store.NewPostgres(s.postgres.DB, store.WithTxTimeout(10*time.Second))
	}
	suite.Run(t, s)
}

func (s *PostgresStoreSuite) TestTxTimeoutAbortsTransaction() {
	short := store.NewPostgres(s.postgres.DB, store.WithTxTimeout(50*time.Millisecond))

	err := short.RunInTx(s.ctx, func(tx ports.Store) error {
		time.Sleep(200 * time.Millisecond)
		return tx.SavePolicy(s.ctx, models.DefaultPolicy(s.now))
	})
	s.Require().Error(err)

	_, err = s.store.GetPolicy(s.ctx)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
