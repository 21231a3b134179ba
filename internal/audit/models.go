package audit

import (
	"time"

	"github.com/google/uuid"

	dErrors "gatekeeper/pkg/domain-errors"
)

// EventKind classifies a security event.
type EventKind string

const (
	KindAuthAttempt      EventKind = "auth-attempt"
	KindWhitelistCheck   EventKind = "whitelist-check"
	KindLoginFailure     EventKind = "login-failure"
	KindPermissionDenied EventKind = "permission-denied"
	KindPolicyChange     EventKind = "policy-change"
)

func (k EventKind) IsValid() bool {
	switch k {
	case KindAuthAttempt, KindWhitelistCheck, KindLoginFailure, KindPermissionDenied, KindPolicyChange:
		return true
	}
	return false
}

// ParseEventKind validates s. The empty string means "any kind".
func ParseEventKind(s string) (EventKind, error) {
	if s == "" {
		return "", nil
	}
	k := EventKind(s)
	if !k.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown event kind")
	}
	return k, nil
}

// SecurityEvent is one append-only record of a security-relevant action.
type SecurityEvent struct {
	ID        uuid.UUID `json:"id"`
	Kind      EventKind `json:"kind"`
	Actor     string    `json:"actor"`
	Detail    string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Kind  EventKind
	Actor string
	Limit int
}

// DefaultListLimit caps List when the filter sets no limit.
const DefaultListLimit = 100

// Matches reports whether ev satisfies the kind and actor constraints.
func (f Filter) Matches(ev SecurityEvent) bool {
	if f.Kind != "" && ev.Kind != f.Kind {
		return false
	}
	if f.Actor != "" && ev.Actor != f.Actor {
		return false
	}
	return true
}

// EffectiveLimit returns the limit to apply.
func (f Filter) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}
