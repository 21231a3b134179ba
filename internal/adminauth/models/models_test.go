package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "gatekeeper/pkg/domain-errors"
)

func TestPermissions(t *testing.T) {
	p := PermissionsFrom([]Capability{CapViewAnalytics, CapManageUsers})
	assert.False(t, p.Has(CapManageWhitelist))
	assert.True(t, p.Has(CapViewAnalytics))
	assert.True(t, p.Has(CapManageUsers))
	assert.False(t, p.Has(Capability("root")))
}

func TestParseCapability(t *testing.T) {
	c, err := ParseCapability("manageWhitelist")
	require.NoError(t, err)
	assert.Equal(t, CapManageWhitelist, c)

	_, err = ParseCapability("superuser")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestAdminRecordCan(t *testing.T) {
	rec, err := NewAdminRecord(" Boss@Corp.io", AllPermissions(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "boss@corp.io", rec.Email)
	assert.Equal(t, RoleAdmin, rec.Role)
	assert.True(t, rec.Can(CapManageUsers))

	rec.Active = false
	assert.False(t, rec.Can(CapManageUsers))

	var missing *AdminRecord
	assert.False(t, missing.Can(CapViewAnalytics))
}
