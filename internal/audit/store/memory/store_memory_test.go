package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatekeeper/internal/audit"
)

func TestInMemoryStore_List(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	add := func(kind audit.EventKind, actor string, offset time.Duration) {
		require.NoError(t, store.Append(ctx, audit.SecurityEvent{
			ID: uuid.New(), Kind: kind, Actor: actor, Timestamp: base.Add(offset),
		}))
	}
	add(audit.KindAuthAttempt, "a@x.io", 0)
	add(audit.KindPolicyChange, "admin@x.io", time.Minute)
	add(audit.KindAuthAttempt, "b@x.io", 2*time.Minute)
	add(audit.KindPermissionDenied, "a@x.io", 3*time.Minute)

	t.Run("newest first", func(t *testing.T) {
		events, err := store.List(ctx, audit.Filter{})
		require.NoError(t, err)
		require.Len(t, events, 4)
		assert.Equal(t, audit.KindPermissionDenied, events[0].Kind)
		assert.Equal(t, "a@x.io", events[3].Actor)
	})

	t.Run("filter by kind", func(t *testing.T) {
		events, err := store.List(ctx, audit.Filter{Kind: audit.KindAuthAttempt})
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "b@x.io", events[0].Actor)
	})

	t.Run("filter by actor with limit", func(t *testing.T) {
		events, err := store.List(ctx, audit.Filter{Actor: "a@x.io", Limit: 1})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, audit.KindPermissionDenied, events[0].Kind)
	})
}
