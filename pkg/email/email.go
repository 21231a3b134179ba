// Package email holds the syntactic validators and normalization rules for
// identities and domains entering the admission layer.
package email

import (
	"regexp"
	"strings"
)

const (
	MaxEmailLength  = 254
	MaxDomainLength = 253
)

var (
	emailPattern       = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	domainLabelPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*[a-zA-Z0-9]*$`)
)

// Placeholder values rejected at external entry points even though they are
// syntactically valid.
var (
	blacklistedEmails  = map[string]struct{}{"test@test.com": {}, "admin@example.com": {}}
	blacklistedDomains = map[string]struct{}{"test.com": {}, "example.com": {}}
)

// Normalize trims surrounding whitespace and lower-cases the address.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeDomain trims surrounding whitespace, a leading "@" and lower-cases.
func NormalizeDomain(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "@"))
}

// IsValid reports whether s looks like local@domain.tld and fits in 254 bytes.
func IsValid(s string) bool {
	if s == "" || len(s) > MaxEmailLength {
		return false
	}
	return emailPattern.MatchString(s)
}

// IsValidDomain reports whether every dot-separated label of s is made of
// alphanumerics and inner hyphens, and s fits in 253 bytes.
func IsValidDomain(s string) bool {
	if s == "" || len(s) > MaxDomainLength {
		return false
	}
	for label := range strings.SplitSeq(s, ".") {
		if !domainLabelPattern.MatchString(label) {
			return false
		}
	}
	return true
}

// Domain returns the part after the sole "@", or "" when s has no single "@".
func Domain(s string) string {
	local, domain, ok := strings.Cut(s, "@")
	if !ok || local == "" || strings.Contains(domain, "@") {
		return ""
	}
	return domain
}

// IsBlacklisted reports whether a normalized address is a known placeholder.
func IsBlacklisted(s string) bool {
	_, ok := blacklistedEmails[s]
	return ok
}

// IsBlacklistedDomain reports whether a normalized domain is a known placeholder.
func IsBlacklistedDomain(s string) bool {
	_, ok := blacklistedDomains[s]
	return ok
}
