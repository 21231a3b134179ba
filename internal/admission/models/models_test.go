package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/platform/sentinel"
)

var fixedNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func TestAdmissionRequestProcess(t *testing.T) {
	t.Run("approve sets terminal fields", func(t *testing.T) {
		req, err := NewAdmissionRequest("b@other.com", fixedNow)
		require.NoError(t, err)
		require.Equal(t, StatusPending, req.Status)

		later := fixedNow.Add(time.Hour)
		require.NoError(t, req.Process(ActionApprove, "admin@acme.com", later))
		assert.Equal(t, StatusApproved, req.Status)
		assert.Equal(t, "admin@acme.com", req.ProcessedBy)
		require.NotNil(t, req.ProcessedAt)
		assert.Equal(t, later, *req.ProcessedAt)
	})

	t.Run("terminal requests cannot transition again", func(t *testing.T) {
		req, err := NewAdmissionRequest("b@other.com", fixedNow)
		require.NoError(t, err)
		require.NoError(t, req.Process(ActionReject, "admin@acme.com", fixedNow))

		err = req.Process(ActionApprove, "admin@acme.com", fixedNow)
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
		assert.Equal(t, StatusRejected, req.Status)
	})

	t.Run("invalid email is an invariant violation", func(t *testing.T) {
		_, err := NewAdmissionRequest("not-an-email", fixedNow)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestNewDomainPolicy(t *testing.T) {
	t.Run("normalizes sets", func(t *testing.T) {
		p, err := NewDomainPolicy([]string{"Beta.io", "acme.com", "ACME.com"}, []string{" Bob@X.io "}, true, true, "admin@acme.com", fixedNow)
		require.NoError(t, err)
		assert.Equal(t, []string{"acme.com", "beta.io"}, p.AllowedDomains)
		assert.Equal(t, []string{"bob@x.io"}, p.AllowedEmails)
		assert.True(t, p.HasDomain("acme.com"))
		assert.True(t, p.HasEmail("bob@x.io"))
	})

	t.Run("rejects malformed members", func(t *testing.T) {
		_, err := NewDomainPolicy([]string{"bad_domain"}, nil, true, false, "admin@acme.com", fixedNow)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = NewDomainPolicy(nil, []string{"nope"}, true, false, "admin@acme.com", fixedNow)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestDomainPolicyMutations(t *testing.T) {
	p := DefaultPolicy(fixedNow)
	assert.True(t, p.AllowNewUsers)
	assert.False(t, p.RequireApproval)

	assert.True(t, p.AddDomain("acme.com"))
	assert.False(t, p.AddDomain("acme.com"))
	clone := p.Clone()
	assert.True(t, p.RemoveDomain("acme.com"))
	assert.False(t, p.RemoveDomain("acme.com"))
	assert.True(t, clone.HasDomain("acme.com"), "clone must not share backing arrays")

	assert.True(t, p.AddEmail("a@b.io"))
	assert.True(t, p.RemoveEmail("a@b.io"))
}

func TestParseHelpers(t *testing.T) {
	a, err := ParseAction("approve")
	require.NoError(t, err)
	assert.Equal(t, ActionApprove, a)

	_, err = ParseAction("maybe")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	st, err := ParseRequestStatus("")
	require.NoError(t, err)
	assert.Equal(t, RequestStatus(""), st)

	_, err = ParseRequestStatus("archived")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestNewWhitelistEntry(t *testing.T) {
	entry, err := NewWhitelistEntry(" Bob@Acme.com", "", "admin@acme.com", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "bob@acme.com", entry.Email)
	assert.Equal(t, RoleUser, entry.Role)
	assert.True(t, entry.IsWhitelisted)

	_, err = NewWhitelistEntry("bob@acme.com", Role("owner"), "x", fixedNow)
	assert.Error(t, err)
}
