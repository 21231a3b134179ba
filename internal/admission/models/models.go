package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/email"
	"gatekeeper/pkg/platform/sentinel"
	sets "gatekeeper/pkg/platform/strings"
)

// Actors recorded in AddedBy when no admin performed the write.
const (
	AddedBySystem      = "system"
	AddedBySelfService = "self-service"
)

// Role is the role granted by a whitelist entry.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// IsValid checks if the role is one of the supported enum values.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// RequestStatus is the lifecycle state of an admission request.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// IsValid checks if the status is one of the supported enum values.
func (s RequestStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ParseRequestStatus validates a status filter. Empty means "any".
func ParseRequestStatus(s string) (RequestStatus, error) {
	if s == "" {
		return "", nil
	}
	st := RequestStatus(s)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "status must be 'pending', 'approved' or 'rejected'")
	}
	return st, nil
}

// Action is an administrator decision on a pending request.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// ParseAction validates an action string.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionApprove, ActionReject:
		return Action(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "action must be 'approve' or 'reject'")
}

// Reason explains an admission decision. Only the admin surface and logs see it.
type Reason string

const (
	ReasonInvalidEmail       Reason = "invalid_email"
	ReasonExplicitEmail      Reason = "explicit_email"
	ReasonDomainMatch        Reason = "domain_match"
	ReasonEligibleForRequest Reason = "eligible_for_request"
	ReasonDenied             Reason = "denied"
)

// AdmitResult is the outcome of an admission check.
type AdmitResult struct {
	Admitted bool   `json:"admitted"`
	Reason   Reason `json:"reason"`
}

// WhitelistEntry explicitly grants one normalized email access.
type WhitelistEntry struct {
	Email         string    `json:"email"`
	IsWhitelisted bool      `json:"is_whitelisted"`
	Role          Role      `json:"role"`
	AddedAt       time.Time `json:"added_at"`
	AddedBy       string    `json:"added_by"`
}

// NewWhitelistEntry creates an admitted entry with invariant validation.
func NewWhitelistEntry(addr string, role Role, addedBy string, now time.Time) (*WhitelistEntry, error) {
	addr = email.Normalize(addr)
	if !email.IsValid(addr) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "whitelist entry requires a valid email")
	}
	if role == "" {
		role = RoleUser
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid whitelist role")
	}
	if addedBy == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "added_by cannot be empty")
	}
	return &WhitelistEntry{
		Email:         addr,
		IsWhitelisted: true,
		Role:          role,
		AddedAt:       now,
		AddedBy:       addedBy,
	}, nil
}

// DomainPolicy is the single policy document governing admission.
// AllowedDomains and AllowedEmails are kept normalized and sorted.
type DomainPolicy struct {
	AllowedDomains  []string  `json:"allowed_domains"`
	AllowedEmails   []string  `json:"allowed_emails"`
	AllowNewUsers   bool      `json:"allow_new_users"`
	RequireApproval bool      `json:"require_approval"`
	UpdatedAt       time.Time `json:"updated_at"`
	UpdatedBy       string    `json:"updated_by"`
}

// DefaultPolicy is created at initialization: empty lists, new users may
// self-register, no approval required.
func DefaultPolicy(now time.Time) *DomainPolicy {
	return &DomainPolicy{
		AllowedDomains:  []string{},
		AllowedEmails:   []string{},
		AllowNewUsers:   true,
		RequireApproval: false,
		UpdatedAt:       now,
		UpdatedBy:       AddedBySystem,
	}
}

// NewDomainPolicy builds a replacement policy, normalizing both sets and
// rejecting malformed members.
func NewDomainPolicy(domains, emails []string, allowNewUsers, requireApproval bool, updatedBy string, now time.Time) (*DomainPolicy, error) {
	p := &DomainPolicy{
		AllowedDomains:  sets.NormalizedSet(domains),
		AllowedEmails:   sets.NormalizedSet(emails),
		AllowNewUsers:   allowNewUsers,
		RequireApproval: requireApproval,
		UpdatedAt:       now,
		UpdatedBy:       updatedBy,
	}
	for _, d := range p.AllowedDomains {
		if !email.IsValidDomain(d) {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid domain: "+d)
		}
	}
	for _, e := range p.AllowedEmails {
		if !email.IsValid(e) {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid email: "+e)
		}
	}
	return p, nil
}

// Clone returns a deep copy.
func (p *DomainPolicy) Clone() *DomainPolicy {
	c := *p
	c.AllowedDomains = append([]string{}, p.AllowedDomains...)
	c.AllowedEmails = append([]string{}, p.AllowedEmails...)
	return &c
}

// HasEmail reports whether addr is listed in AllowedEmails.
func (p *DomainPolicy) HasEmail(addr string) bool {
	return sets.SetContains(p.AllowedEmails, addr)
}

// HasDomain reports whether domain is listed in AllowedDomains.
func (p *DomainPolicy) HasDomain(domain string) bool {
	return sets.SetContains(p.AllowedDomains, domain)
}

// AddDomain inserts domain; false when it was already present.
func (p *DomainPolicy) AddDomain(domain string) bool {
	var changed bool
	p.AllowedDomains, changed = sets.SetAdd(p.AllowedDomains, domain)
	return changed
}

// RemoveDomain deletes domain; false when it was absent.
func (p *DomainPolicy) RemoveDomain(domain string) bool {
	var changed bool
	p.AllowedDomains, changed = sets.SetRemove(p.AllowedDomains, domain)
	return changed
}

// AddEmail inserts addr; false when it was already present.
func (p *DomainPolicy) AddEmail(addr string) bool {
	var changed bool
	p.AllowedEmails, changed = sets.SetAdd(p.AllowedEmails, addr)
	return changed
}

// RemoveEmail deletes addr; false when it was absent.
func (p *DomainPolicy) RemoveEmail(addr string) bool {
	var changed bool
	p.AllowedEmails, changed = sets.SetRemove(p.AllowedEmails, addr)
	return changed
}

// Touch stamps the policy with the editing actor.
func (p *DomainPolicy) Touch(actor string, now time.Time) {
	p.UpdatedBy = actor
	p.UpdatedAt = now
}

// AdmissionRequest is a pending ask for access awaiting an administrator.
type AdmissionRequest struct {
	ID          string        `json:"id"`
	Email       string        `json:"email"`
	Status      RequestStatus `json:"status"`
	RequestedAt time.Time     `json:"requested_at"`
	ProcessedBy string        `json:"processed_by,omitempty"`
	ProcessedAt *time.Time    `json:"processed_at,omitempty"`
}

// NewAdmissionRequest creates a pending request for a normalized, valid email.
func NewAdmissionRequest(addr string, now time.Time) (*AdmissionRequest, error) {
	if !email.IsValid(addr) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "admission request requires a valid email")
	}
	return &AdmissionRequest{
		ID:          uuid.NewString(),
		Email:       addr,
		Status:      StatusPending,
		RequestedAt: now,
	}, nil
}

// Process moves a pending request to its terminal state. It returns
// sentinel.ErrInvalidState when the request already left pending.
func (r *AdmissionRequest) Process(action Action, actor string, now time.Time) error {
	if r.Status != StatusPending {
		return sentinel.ErrInvalidState
	}
	switch action {
	case ActionApprove:
		r.Status = StatusApproved
	case ActionReject:
		r.Status = StatusRejected
	default:
		return dErrors.New(dErrors.CodeInvariantViolation, "unknown action")
	}
	r.ProcessedBy = actor
	r.ProcessedAt = &now
	return nil
}

// Stats summarizes admission state for the analytics view.
type Stats struct {
	TotalWhitelisted int `json:"total_whitelisted"`
	PendingRequests  int `json:"pending_requests"`
	ApprovedRequests int `json:"approved_requests"`
	RejectedRequests int `json:"rejected_requests"`
	AllowedDomains   int `json:"allowed_domains"`
	AllowedEmails    int `json:"allowed_emails"`
}
