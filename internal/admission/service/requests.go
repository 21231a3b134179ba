package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/codes"

	adminmodels "gatekeeper/internal/adminauth/models"
	"gatekeeper/internal/admission/models"
	"gatekeeper/internal/admission/ports"
	"gatekeeper/internal/audit"
	rlmodels "gatekeeper/internal/ratelimit/models"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/email"
	"gatekeeper/pkg/platform/sentinel"
	"gatekeeper/pkg/requestcontext"
)

// AccessResult is the outcome of a self-service sign-in. Request is set when
// a pending admission request was created.
type AccessResult struct {
	Result  models.AdmitResult       `json:"result"`
	Request *models.AdmissionRequest `json:"request,omitempty"`
}

// RequestAccess runs the self-service flow for a verified identity. Admitted
// identities pass straight through. An identity eligible for a request either
// gets a pending request (RequireApproval) or is whitelisted immediately with
// AddedBy "self-service". Denied and invalid identities get the result only.
func (s *Service) RequestAccess(ctx context.Context, addr string) (*AccessResult, error) {
	ctx, span := s.tracer.Start(ctx, "admission.RequestAccess")
	defer span.End()

	addr = email.Normalize(addr)
	if err := s.throttle(ctx, addr, rlmodels.ClassAPI); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	s.events.Record(ctx, audit.KindAuthAttempt, addr, "self-service sign-in")

	var out AccessResult
	err := s.store.RunInTx(ctx, func(store ports.Store) error {
		result, err := s.evaluate(ctx, store, addr)
		if err != nil {
			return err
		}
		out.Result = result
		if result.Reason != models.ReasonEligibleForRequest {
			return nil
		}
		if err := validateEmail(addr); err != nil {
			return err
		}

		p, err := store.GetPolicy(ctx)
		if err != nil {
			return err
		}
		if !p.RequireApproval {
			entry, err := models.NewWhitelistEntry(addr, models.RoleUser, models.AddedBySelfService, requestcontext.Now(ctx))
			if err != nil {
				return err
			}
			if err := store.UpsertEntry(ctx, entry); err != nil {
				return err
			}
			out.Result = models.AdmitResult{Admitted: true, Reason: models.ReasonExplicitEmail}
			return nil
		}

		req, err := s.newRequest(ctx, store, addr)
		if err != nil {
			return err
		}
		out.Request = req
		return nil
	})
	if err != nil {
		err = s.translate(ctx, err, "")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if out.Request != nil {
		s.afterCreate(ctx, out.Request)
	}
	s.observe(span, out.Result)
	return &out, nil
}

// CreateRequest opens a pending admission request for addr. A second
// pending request for the same email returns CodeDuplicateRequest.
func (s *Service) CreateRequest(ctx context.Context, addr string) (*models.AdmissionRequest, error) {
	addr = email.Normalize(addr)
	var req *models.AdmissionRequest
	err := s.store.RunInTx(ctx, func(store ports.Store) error {
		var err error
		req, err = s.newRequest(ctx, store, addr)
		return err
	})
	if err != nil {
		return nil, s.translate(ctx, err, "")
	}
	s.afterCreate(ctx, req)
	return req, nil
}

func (s *Service) newRequest(ctx context.Context, store ports.Store, addr string) (*models.AdmissionRequest, error) {
	if err := validateEmail(addr); err != nil {
		return nil, err
	}
	req, err := models.NewAdmissionRequest(addr, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := store.CreateRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Service) afterCreate(ctx context.Context, req *models.AdmissionRequest) {
	if s.metrics != nil {
		s.metrics.IncrementRequestsCreated()
	}
	s.logger.InfoContext(ctx, "admission request created",
		"request_id", req.ID,
		"email", req.Email,
	)
	s.events.Record(ctx, audit.KindAuthAttempt, req.Email, "admission request "+req.ID+" created")
}

// ListPending returns pending requests oldest first.
func (s *Service) ListPending(ctx context.Context) ([]*models.AdmissionRequest, error) {
	reqs, err := s.store.ListRequests(ctx, models.StatusPending)
	if err != nil {
		return nil, s.translate(ctx, err, "")
	}
	return reqs, nil
}

// ListRequests returns requests with status, or all of them when status is
// empty. Requires manageUsers.
func (s *Service) ListRequests(ctx context.Context, actor string, status models.RequestStatus) ([]*models.AdmissionRequest, error) {
	if _, err := s.guard(ctx, actor, adminmodels.CapManageUsers); err != nil {
		return nil, err
	}
	reqs, err := s.store.ListRequests(ctx, status)
	if err != nil {
		return nil, s.translate(ctx, err, "")
	}
	return reqs, nil
}

// ProcessRequest approves or rejects a pending request. Approval writes the
// terminal state and the whitelist entry in one transaction. Exactly one of
// several concurrent calls for the same request succeeds; the others get
// CodeAlreadyProcessed.
func (s *Service) ProcessRequest(ctx context.Context, actor, id string, action models.Action) (*models.AdmissionRequest, error) {
	ctx, span := s.tracer.Start(ctx, "admission.ProcessRequest")
	defer span.End()
	span.SetAttributes(attrRequestID.String(id), attrAction.String(string(action)))

	actor, err := s.guard(ctx, actor, adminmodels.CapManageUsers)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if _, err := models.ParseAction(string(action)); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "request id is required")
	}

	var processed *models.AdmissionRequest
	err = s.store.RunInTx(ctx, func(store ports.Store) error {
		req, err := store.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if err := req.Process(action, actor, requestcontext.Now(ctx)); err != nil {
			return err
		}
		if err := store.CompleteRequest(ctx, req); err != nil {
			return err
		}
		if action == models.ActionApprove {
			if err := grantOnApproval(ctx, store, req.Email, actor); err != nil {
				return err
			}
		}
		processed = req
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			s.logger.WarnContext(ctx, "admission request already processed", "request_id", id, "actor", actor)
		}
		err = s.translate(ctx, err, "admission request not found")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementRequestsProcessed(string(action))
	}
	s.logger.InfoContext(ctx, "admission request processed",
		"request_id", processed.ID,
		"email", processed.Email,
		"status", processed.Status,
		"actor", actor,
		"log_type", "audit",
	)
	s.events.Record(ctx, audit.KindPolicyChange, actor,
		fmt.Sprintf("request %s for %s %s", processed.ID, processed.Email, processed.Status))
	return processed, nil
}

// grantOnApproval whitelists addr as a user. An entry that already exists is
// left as is so approval never changes an existing role.
func grantOnApproval(ctx context.Context, store ports.Store, addr, actor string) error {
	if _, err := store.GetEntry(ctx, addr); err == nil {
		return nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return err
	}
	entry, err := models.NewWhitelistEntry(addr, models.RoleUser, actor, requestcontext.Now(ctx))
	if err != nil {
		return err
	}
	return store.UpsertEntry(ctx, entry)
}
