package service

import (
	"context"
	"fmt"

	"gatekeeper/internal/audit"
	"gatekeeper/internal/ratelimit/models"
)

// EventRecorder appends security events.
type EventRecorder interface {
	Record(ctx context.Context, kind audit.EventKind, actor, detail string)
}

// LoginGuard charges failed identity verifications to the login class, keyed
// by client IP, and records each one as a login-failure event.
type LoginGuard struct {
	limiter *Service
	events  EventRecorder
}

func NewLoginGuard(limiter *Service, events EventRecorder) *LoginGuard {
	return &LoginGuard{limiter: limiter, events: events}
}

// Failed records one failed verification and reports whether clientIP is
// now over the login limit. A limiter failure is logged and not treated as
// a lockout: the caller already refused the request.
func (g *LoginGuard) Failed(ctx context.Context, clientIP, reason string) bool {
	res, err := g.limiter.Check(ctx, clientIP, models.ClassLogin)
	if err != nil {
		g.events.Record(ctx, audit.KindLoginFailure, clientIP, reason)
		return false
	}
	if !res.Allowed {
		g.events.Record(ctx, audit.KindLoginFailure, clientIP,
			fmt.Sprintf("%s; locked out for %ds", reason, res.RetryAfter))
		return true
	}
	g.events.Record(ctx, audit.KindLoginFailure, clientIP, reason)
	return false
}
