//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"gatekeeper/internal/audit"
	"gatekeeper/internal/audit/store/postgres"
	"gatekeeper/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "security_events"))
}

func (s *PostgresStoreSuite) TestAppendAndList() {
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	events := []audit.SecurityEvent{
		{ID: uuid.New(), Kind: audit.KindAuthAttempt, Actor: "a@x.io", Timestamp: base, RequestID: "r1"},
		{ID: uuid.New(), Kind: audit.KindPolicyChange, Actor: "admin@x.io", Detail: "added domain x.io", Timestamp: base.Add(time.Second)},
		{ID: uuid.New(), Kind: audit.KindAuthAttempt, Actor: "b@x.io", Timestamp: base.Add(2 * time.Second)},
	}
	for _, ev := range events {
		s.Require().NoError(s.store.Append(ctx, ev))
	}

	s.Run("newest first", func() {
		got, err := s.store.List(ctx, audit.Filter{})
		s.Require().NoError(err)
		s.Require().Len(got, 3)
		s.Equal(events[2].ID, got[0].ID)
		s.Equal(events[0].RequestID, got[2].RequestID)
	})

	s.Run("filter by kind and actor", func() {
		got, err := s.store.List(ctx, audit.Filter{Kind: audit.KindAuthAttempt, Actor: "a@x.io"})
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal(base, got[0].Timestamp)
	})

	s.Run("limit", func() {
		got, err := s.store.List(ctx, audit.Filter{Limit: 2})
		s.Require().NoError(err)
		s.Len(got, 2)
	})

	s.Run("append is idempotent by id", func() {
		s.Require().NoError(s.store.Append(ctx, events[0]))
		got, err := s.store.List(ctx, audit.Filter{})
		s.Require().NoError(err)
		s.Len(got, 3)
	})
}
