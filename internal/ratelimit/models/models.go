package models

import (
	"time"

	dErrors "gatekeeper/pkg/domain-errors"
)

// LimitClass groups security-sensitive operations that share a limit.
type LimitClass string

const (
	// ClassLogin: identity verification attempts (5 per 15 min), keyed by client IP.
	ClassLogin LimitClass = "login"
	// ClassAPI: self-service and administrative calls (100 per min), keyed by actor.
	ClassAPI LimitClass = "api"
	// ClassWhitelistCheck: admission checks (50 per min), keyed by checked email.
	ClassWhitelistCheck LimitClass = "whitelist_check"
)

// IsValid checks if the limit class is one of the supported enum values.
func (c LimitClass) IsValid() bool {
	switch c {
	case ClassLogin, ClassAPI, ClassWhitelistCheck:
		return true
	}
	return false
}

// ParseLimitClass creates a LimitClass from a string, validating it.
func ParseLimitClass(s string) (LimitClass, error) {
	c := LimitClass(s)
	if !c.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "limit class must be 'login', 'api' or 'whitelist_check'")
	}
	return c, nil
}

// Limit is the (window, maxCount) pair configured for a class.
type Limit struct {
	Window   time.Duration
	MaxCount int
}

// Window is the fixed-window counter stored per key.
// Count never exceeds the limit inside [Start, Start+window).
type Window struct {
	Start time.Time
	Count int
}

// ExpiredAt reports whether the window has elapsed at now.
func (w *Window) ExpiredAt(now time.Time, window time.Duration) bool {
	return !now.Before(w.Start.Add(window))
}

// Result represents the outcome of a rate limit check.
type Result struct {
	Allowed    bool      `json:"allowed"`
	Count      int       `json:"count"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}
