// Package auth authenticates callers with the identity token from the
// Authorization header and puts the verified email in the request context.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/requestcontext"
)

// IdentityValidator verifies an identity token.
type IdentityValidator interface {
	ValidateToken(tokenString string) (*IdentityClaims, error)
}

// IdentityClaims are the claims the middleware needs from a verified token.
type IdentityClaims struct {
	Email         string
	EmailVerified bool
	TokenID       string
}

// FailureTracker throttles failed verifications per client IP. Failed
// reports whether the client is now over its limit.
type FailureTracker interface {
	Failed(ctx context.Context, clientIP, reason string) (limited bool)
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireIdentity rejects requests without a valid, verified identity token.
// Every rejection is reported to tracker (when set) keyed by client IP; once
// the client is over its limit the response becomes 429.
func RequireIdentity(validator IdentityValidator, tracker FailureTracker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				reject(ctx, w, tracker, logger, "missing token", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				reason := dErrors.MessageOf(err)
				reject(ctx, w, tracker, logger, reason, "Invalid or expired token")
				return
			}
			if !claims.EmailVerified {
				reject(ctx, w, tracker, logger, "email not verified", "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithActor(ctx, claims.Email, claims.EmailVerified)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func reject(ctx context.Context, w http.ResponseWriter, tracker FailureTracker, logger *slog.Logger, reason, description string) {
	clientIP := requestcontext.ClientIP(ctx)
	logger.WarnContext(ctx, "unauthorized access",
		"reason", reason,
		"client_ip", clientIP,
		"request_id", requestcontext.RequestID(ctx),
	)
	if tracker != nil && tracker.Failed(ctx, clientIP, reason) {
		writeJSONError(w, http.StatusTooManyRequests, "rate_limited", "Too many failed attempts")
		return
	}
	writeJSONError(w, http.StatusUnauthorized, "unauthorized", description)
}
