// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these values; services read them without importing net/http.
//
//	actor := requestcontext.Actor(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Tests inject a fixed clock with requestcontext.WithTime(ctx, fixedTime).
package requestcontext

import (
	"context"
	"time"
)

type (
	actorKey         struct{}
	emailVerifiedKey struct{}
	clientIPKey      struct{}
	requestIDKey     struct{}
	requestTimeKey   struct{}
)

var (
	ContextKeyActor         = actorKey{}
	ContextKeyEmailVerified = emailVerifiedKey{}
	ContextKeyClientIP      = clientIPKey{}
	ContextKeyRequestID     = requestIDKey{}
	ContextKeyRequestTime   = requestTimeKey{}
)

// -----------------------------------------------------------------------------
// Identity (set after the identity token was verified)
// -----------------------------------------------------------------------------

// Actor returns the normalized email of the authenticated caller, or "".
func Actor(ctx context.Context) string {
	if actor, ok := ctx.Value(ContextKeyActor).(string); ok {
		return actor
	}
	return ""
}

// WithActor injects the authenticated caller's email and verified flag.
func WithActor(ctx context.Context, email string, verified bool) context.Context {
	ctx = context.WithValue(ctx, ContextKeyActor, email)
	return context.WithValue(ctx, ContextKeyEmailVerified, verified)
}

// EmailVerified reports whether the identity provider marked the actor's email verified.
func EmailVerified(ctx context.Context) bool {
	v, _ := ctx.Value(ContextKeyEmailVerified).(bool)
	return v
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

// WithClientIP injects the client IP into a context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ContextKeyClientIP, ip)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// -----------------------------------------------------------------------------
// Request time
// -----------------------------------------------------------------------------

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (CLI commands, background publishers).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
