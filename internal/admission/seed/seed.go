// Package seed loads the bootstrap policy file applied by "gatekeeperctl init".
//
//	policy:
//	  allowed_domains: [acme.com]
//	  allowed_emails: [contractor@freelance.dev]
//	  allow_new_users: true
//	  require_approval: true
//	whitelist:
//	  - email: ops@partner.org
//	    role: admin
//	admins:
//	  - email: root@acme.com
//	    permissions: {manageWhitelist: true, viewAnalytics: true, manageUsers: true}
package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	adminmodels "gatekeeper/internal/adminauth/models"
	"gatekeeper/internal/admission/models"
	"gatekeeper/internal/admission/service"
	"gatekeeper/pkg/email"
)

// Entry is one whitelist entry in the seed file.
type Entry struct {
	Email string      `yaml:"email"`
	Role  models.Role `yaml:"role"`
}

// Admin is one admin record in the seed file. Permissions default to all
// capabilities when omitted.
type Admin struct {
	Email       string                   `yaml:"email"`
	Permissions *adminmodels.Permissions `yaml:"permissions"`
}

// File is the parsed seed document.
type File struct {
	Policy    service.PolicyUpdate `yaml:"policy"`
	Whitelist []Entry              `yaml:"whitelist"`
	Admins    []Admin              `yaml:"admins"`
}

// Load reads and parses the seed file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a seed document. Unknown keys are rejected so a typo in a
// policy field cannot silently produce a more permissive policy.
func Parse(data []byte) (*File, error) {
	f := &File{Policy: service.PolicyUpdate{AllowNewUsers: true}}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) validate() error {
	seen := make(map[string]struct{}, len(f.Whitelist))
	for i, e := range f.Whitelist {
		addr := email.Normalize(e.Email)
		if !email.IsValid(addr) {
			return fmt.Errorf("whitelist[%d]: invalid email %q", i, e.Email)
		}
		if e.Role != "" && !e.Role.IsValid() {
			return fmt.Errorf("whitelist[%d]: invalid role %q", i, e.Role)
		}
		if _, dup := seen[addr]; dup {
			return fmt.Errorf("whitelist[%d]: duplicate email %q", i, addr)
		}
		seen[addr] = struct{}{}
	}
	for i, a := range f.Admins {
		if !email.IsValid(email.Normalize(a.Email)) {
			return fmt.Errorf("admins[%d]: invalid email %q", i, a.Email)
		}
	}
	return nil
}

// Entries returns the whitelist as normalized email to role. Admins are
// whitelisted with the admin role unless listed explicitly.
func (f *File) Entries() map[string]models.Role {
	out := make(map[string]models.Role, len(f.Whitelist)+len(f.Admins))
	for _, a := range f.Admins {
		out[email.Normalize(a.Email)] = models.RoleAdmin
	}
	for _, e := range f.Whitelist {
		role := e.Role
		if role == "" {
			role = models.RoleUser
		}
		out[email.Normalize(e.Email)] = role
	}
	return out
}

// AdminPermissions returns the permissions for admin a.
func (a Admin) AdminPermissions() adminmodels.Permissions {
	if a.Permissions == nil {
		return adminmodels.AllPermissions()
	}
	return *a.Permissions
}
