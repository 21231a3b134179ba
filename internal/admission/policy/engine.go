// Package policy evaluates admission for a single identity against the current
// domain policy. The rules are kept in one pure function so they can be tested
// without stores.
package policy

import (
	"gatekeeper/internal/admission/models"
	"gatekeeper/pkg/email"
)

// IsAdmitted decides admission for addr. Rules are applied in order and the
// first match wins:
//
//  1. invalid address                                    -> invalid_email
//  2. listed in AllowedEmails or whitelisted entry       -> explicit_email
//  3. domain listed in AllowedDomains                    -> domain_match
//  4. AllowNewUsers                                      -> eligible_for_request
//  5. otherwise                                          -> denied
//
// entry is the whitelist entry stored for the normalized address, or nil.
// Explicit entries override domains and domains override the new-user
// fallback, so revoking one user of an allowed domain means deleting their
// entry, not editing domains.
func IsAdmitted(addr string, p *models.DomainPolicy, entry *models.WhitelistEntry) models.AdmitResult {
	addr = email.Normalize(addr)
	if !email.IsValid(addr) {
		return models.AdmitResult{Admitted: false, Reason: models.ReasonInvalidEmail}
	}
	if p == nil {
		return models.AdmitResult{Admitted: false, Reason: models.ReasonDenied}
	}

	if p.HasEmail(addr) || (entry != nil && entry.Email == addr && entry.IsWhitelisted) {
		return models.AdmitResult{Admitted: true, Reason: models.ReasonExplicitEmail}
	}

	if domain := email.Domain(addr); domain != "" && p.HasDomain(domain) {
		return models.AdmitResult{Admitted: true, Reason: models.ReasonDomainMatch}
	}

	if p.AllowNewUsers {
		return models.AdmitResult{Admitted: false, Reason: models.ReasonEligibleForRequest}
	}
	return models.AdmitResult{Admitted: false, Reason: models.ReasonDenied}
}
