package testutil

import (
	"net/http"

	"gatekeeper/pkg/requestcontext"
)

// WithActor attaches a verified identity to the request, as the identity
// middleware would after a valid token.
func WithActor(req *http.Request, email string) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), email, true))
}

// WithClientIP attaches the resolved client address to the request.
func WithClientIP(req *http.Request, ip string) *http.Request {
	return req.WithContext(requestcontext.WithClientIP(req.Context(), ip))
}
