package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gatekeeper/internal/admission/handler"
	jwttoken "gatekeeper/internal/jwt_token"
	"gatekeeper/pkg/platform/httputil"
	authmw "gatekeeper/pkg/platform/middleware/auth"
	"gatekeeper/pkg/platform/middleware/metadata"
	"gatekeeper/pkg/platform/middleware/request"
	"gatekeeper/pkg/platform/middleware/requesttime"
)

const healthTimeout = 2 * time.Second

// Router mounts the admission API behind identity verification. Health and
// metrics stay unauthenticated.
func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(a.Logger))
	r.Use(request.Logger(a.Logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", a.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))

	h := handler.New(a.Admission, a.Logger)
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireIdentity(jwttoken.NewJWTServiceAdapter(a.Tokens), a.LoginGuard, a.Logger))
		h.Register(r)
	})
	return r
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()
	if err := a.Health(ctx); err != nil {
		a.Logger.WarnContext(ctx, "health check failed", "error", err)
		httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
