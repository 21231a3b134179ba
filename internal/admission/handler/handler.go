// Package handler exposes admission over HTTP: a self-service surface for
// signed-in identities and a capability-gated admin surface.
//
// Self-service responses never say why an identity was refused. Admin
// responses carry the error code and description verbatim.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gatekeeper/internal/admission/models"
	"gatekeeper/internal/admission/service"
	"gatekeeper/internal/audit"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/platform/httputil"
	"gatekeeper/pkg/requestcontext"
)

// Service defines the admission operations the HTTP surface calls.
type Service interface {
	Check(ctx context.Context, addr string) (models.AdmitResult, error)
	RequestAccess(ctx context.Context, addr string) (*service.AccessResult, error)

	GetPolicy(ctx context.Context, actor string) (*models.DomainPolicy, error)
	UpdatePolicy(ctx context.Context, actor string, update service.PolicyUpdate) (*models.DomainPolicy, error)
	AddDomain(ctx context.Context, actor, domain string) (*models.DomainPolicy, error)
	RemoveDomain(ctx context.Context, actor, domain string) (*models.DomainPolicy, error)
	AddEmail(ctx context.Context, actor, addr string) (*models.DomainPolicy, error)
	RemoveEmail(ctx context.Context, actor, addr string) (*models.DomainPolicy, error)

	ListWhitelist(ctx context.Context, actor string) ([]*models.WhitelistEntry, error)
	AddToWhitelist(ctx context.Context, actor, addr string, role models.Role) (*models.WhitelistEntry, error)
	RemoveFromWhitelist(ctx context.Context, actor, addr string) error

	ListRequests(ctx context.Context, actor string, status models.RequestStatus) ([]*models.AdmissionRequest, error)
	ProcessRequest(ctx context.Context, actor, id string, action models.Action) (*models.AdmissionRequest, error)

	Stats(ctx context.Context, actor string) (*models.Stats, error)
	ListEvents(ctx context.Context, actor string, filter audit.Filter) ([]audit.SecurityEvent, error)
}

// Handler handles admission endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a new admission Handler.
func New(svc Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: svc, logger: logger}
}

// Register mounts the routes on r. r must already authenticate callers.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/admission", h.handleCheck)
	r.Post("/v1/admission/requests", h.handleRequestAccess)

	r.Route("/v1/admin", func(r chi.Router) {
		r.Get("/policy", h.handleGetPolicy)
		r.Put("/policy", h.handleUpdatePolicy)
		r.Post("/policy/domains/{domain}", h.handleAddDomain)
		r.Delete("/policy/domains/{domain}", h.handleRemoveDomain)
		r.Post("/policy/emails/{email}", h.handleAddEmail)
		r.Delete("/policy/emails/{email}", h.handleRemoveEmail)

		r.Get("/whitelist", h.handleListWhitelist)
		r.Put("/whitelist/{email}", h.handleAddToWhitelist)
		r.Delete("/whitelist/{email}", h.handleRemoveFromWhitelist)

		r.Get("/requests", h.handleListRequests)
		r.Post("/requests/{id}/approve", h.handleProcess(models.ActionApprove))
		r.Post("/requests/{id}/reject", h.handleProcess(models.ActionReject))

		r.Get("/stats", h.handleStats)
		r.Get("/events", h.handleListEvents)
	})
}

// -----------------------------------------------------------------------------
// Self-service
// -----------------------------------------------------------------------------

type admissionResponse struct {
	Admitted  bool   `json:"admitted"`
	Status    string `json:"status,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)

	res, err := h.service.Check(ctx, actor)
	if err != nil {
		h.writeSelfServiceError(ctx, w, err)
		return
	}
	if !res.Admitted {
		h.logger.InfoContext(ctx, "admission denied",
			"reason", res.Reason,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteGenericDenial(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, admissionResponse{Admitted: true})
}

func (h *Handler) handleRequestAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)

	out, err := h.service.RequestAccess(ctx, actor)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeDuplicateRequest) {
			httputil.WriteJSON(w, http.StatusAccepted, admissionResponse{Status: string(models.StatusPending)})
			return
		}
		h.writeSelfServiceError(ctx, w, err)
		return
	}

	switch {
	case out.Result.Admitted:
		httputil.WriteJSON(w, http.StatusOK, admissionResponse{Admitted: true})
	case out.Request != nil:
		httputil.WriteJSON(w, http.StatusAccepted, admissionResponse{
			Status:    string(out.Request.Status),
			RequestID: out.Request.ID,
		})
	default:
		h.logger.InfoContext(ctx, "access request refused",
			"reason", out.Result.Reason,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteGenericDenial(w)
	}
}

// writeSelfServiceError keeps rate limiting and outages distinguishable and
// collapses everything else into the generic denial.
func (h *Handler) writeSelfServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case dErrors.HasCode(err, dErrors.CodeRateLimited):
		httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]string{
			"error":             string(dErrors.CodeRateLimited),
			"error_description": httputil.GenericDenialMessage,
		})
	case dErrors.HasCode(err, dErrors.CodeUnavailable):
		h.logger.ErrorContext(ctx, "admission unavailable",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
	default:
		h.logger.InfoContext(ctx, "self-service request refused",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteGenericDenial(w)
	}
}

// -----------------------------------------------------------------------------
// Admin: policy
// -----------------------------------------------------------------------------

func (h *Handler) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := h.service.GetPolicy(ctx, requestcontext.Actor(ctx))
	h.respond(ctx, w, http.StatusOK, p, err)
}

func (h *Handler) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var update service.PolicyUpdate
	if !h.decode(ctx, w, r, &update) {
		return
	}
	p, err := h.service.UpdatePolicy(ctx, requestcontext.Actor(ctx), update)
	h.respond(ctx, w, http.StatusOK, p, err)
}

func (h *Handler) handleAddDomain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := h.service.AddDomain(ctx, requestcontext.Actor(ctx), chi.URLParam(r, "domain"))
	h.respond(ctx, w, http.StatusOK, p, err)
}

func (h *Handler) handleRemoveDomain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := h.service.RemoveDomain(ctx, requestcontext.Actor(ctx), chi.URLParam(r, "domain"))
	h.respond(ctx, w, http.StatusOK, p, err)
}

func (h *Handler) handleAddEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := h.service.AddEmail(ctx, requestcontext.Actor(ctx), chi.URLParam(r, "email"))
	h.respond(ctx, w, http.StatusOK, p, err)
}

func (h *Handler) handleRemoveEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := h.service.RemoveEmail(ctx, requestcontext.Actor(ctx), chi.URLParam(r, "email"))
	h.respond(ctx, w, http.StatusOK, p, err)
}

// -----------------------------------------------------------------------------
// Admin: whitelist
// -----------------------------------------------------------------------------

type whitelistRequest struct {
	Role models.Role `json:"role"`
}

func (h *Handler) handleListWhitelist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := h.service.ListWhitelist(ctx, requestcontext.Actor(ctx))
	h.respond(ctx, w, http.StatusOK, map[string]any{"entries": entries}, err)
}

func (h *Handler) handleAddToWhitelist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body whitelistRequest
	if r.ContentLength != 0 && !h.decode(ctx, w, r, &body) {
		return
	}
	entry, err := h.service.AddToWhitelist(ctx, requestcontext.Actor(ctx), chi.URLParam(r, "email"), body.Role)
	h.respond(ctx, w, http.StatusOK, entry, err)
}

func (h *Handler) handleRemoveFromWhitelist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	err := h.service.RemoveFromWhitelist(ctx, requestcontext.Actor(ctx), chi.URLParam(r, "email"))
	if err != nil {
		h.writeAdminError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// -----------------------------------------------------------------------------
// Admin: requests
// -----------------------------------------------------------------------------

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status, err := models.ParseRequestStatus(r.URL.Query().Get("status"))
	if err != nil {
		h.writeAdminError(ctx, w, err)
		return
	}
	reqs, err := h.service.ListRequests(ctx, requestcontext.Actor(ctx), status)
	h.respond(ctx, w, http.StatusOK, map[string]any{"requests": reqs}, err)
}

func (h *Handler) handleProcess(action models.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		req, err := h.service.ProcessRequest(ctx, requestcontext.Actor(ctx), chi.URLParam(r, "id"), action)
		h.respond(ctx, w, http.StatusOK, req, err)
	}
}

// -----------------------------------------------------------------------------
// Admin: analytics
// -----------------------------------------------------------------------------

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.service.Stats(ctx, requestcontext.Actor(ctx))
	h.respond(ctx, w, http.StatusOK, stats, err)
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	kind, err := audit.ParseEventKind(q.Get("kind"))
	if err != nil {
		h.writeAdminError(ctx, w, err)
		return
	}
	filter := audit.Filter{Kind: kind, Actor: q.Get("actor")}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			h.writeAdminError(ctx, w, dErrors.New(dErrors.CodeInvalidInput, "limit must be a positive integer"))
			return
		}
		filter.Limit = limit
	}

	events, err := h.service.ListEvents(ctx, requestcontext.Actor(ctx), filter)
	h.respond(ctx, w, http.StatusOK, map[string]any{"events": events}, err)
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (h *Handler) respond(ctx context.Context, w http.ResponseWriter, status int, body any, err error) {
	if err != nil {
		h.writeAdminError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, status, body)
}

func (h *Handler) writeAdminError(ctx context.Context, w http.ResponseWriter, err error) {
	code, _ := dErrors.CodeOf(err)
	switch code {
	case dErrors.CodeUnavailable, dErrors.CodeInternal, "":
		h.logger.ErrorContext(ctx, "admin request failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	default:
		h.logger.WarnContext(ctx, "admin request rejected",
			"error", err,
			"actor", requestcontext.Actor(ctx),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}

func (h *Handler) decode(ctx context.Context, w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.logger.WarnContext(ctx, "invalid request body",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}
