package models

import (
	"time"

	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/email"
)

// RoleAdmin is the only role an AdminRecord carries.
const RoleAdmin = "admin"

// Capability names one administrative permission.
type Capability string

const (
	CapManageWhitelist Capability = "manageWhitelist"
	CapViewAnalytics   Capability = "viewAnalytics"
	CapManageUsers     Capability = "manageUsers"
)

func (c Capability) IsValid() bool {
	switch c {
	case CapManageWhitelist, CapViewAnalytics, CapManageUsers:
		return true
	}
	return false
}

// ParseCapability validates s against the known capabilities.
func ParseCapability(s string) (Capability, error) {
	c := Capability(s)
	if !c.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "capability must be 'manageWhitelist', 'viewAnalytics' or 'manageUsers'")
	}
	return c, nil
}

// Permissions is the capability set of one admin.
type Permissions struct {
	ManageWhitelist bool `json:"manage_whitelist" yaml:"manageWhitelist"`
	ViewAnalytics   bool `json:"view_analytics" yaml:"viewAnalytics"`
	ManageUsers     bool `json:"manage_users" yaml:"manageUsers"`
}

// AllPermissions grants every capability.
func AllPermissions() Permissions {
	return Permissions{ManageWhitelist: true, ViewAnalytics: true, ManageUsers: true}
}

// PermissionsFrom builds a set from capability names.
func PermissionsFrom(caps []Capability) Permissions {
	var p Permissions
	for _, c := range caps {
		switch c {
		case CapManageWhitelist:
			p.ManageWhitelist = true
		case CapViewAnalytics:
			p.ViewAnalytics = true
		case CapManageUsers:
			p.ManageUsers = true
		}
	}
	return p
}

// Has reports whether c is granted.
func (p Permissions) Has(c Capability) bool {
	switch c {
	case CapManageWhitelist:
		return p.ManageWhitelist
	case CapViewAnalytics:
		return p.ViewAnalytics
	case CapManageUsers:
		return p.ManageUsers
	}
	return false
}

// AdminRecord grants administrative capabilities to an email.
type AdminRecord struct {
	Email       string      `json:"email"`
	Role        string      `json:"role"`
	CreatedAt   time.Time   `json:"created_at"`
	Permissions Permissions `json:"permissions"`
	Active      bool        `json:"active"`
}

// NewAdminRecord validates addr and returns an active record.
func NewAdminRecord(addr string, perms Permissions, now time.Time) (*AdminRecord, error) {
	addr = email.Normalize(addr)
	if !email.IsValid(addr) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid admin email")
	}
	return &AdminRecord{
		Email:       addr,
		Role:        RoleAdmin,
		CreatedAt:   now,
		Permissions: perms,
		Active:      true,
	}, nil
}

// Can reports whether the record is active and grants c.
func (r *AdminRecord) Can(c Capability) bool {
	return r != nil && r.Active && r.Permissions.Has(c)
}
