package crosscountry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/turicert/cert-api/internal/model"
	"github.com/turicert/cert-api/internal/repository"
	apperrors "github.com/turicert/cert-api/pkg/errors"
	"github.com/turicert/cert-api/pkg/logger"
	"github.com/turicert/cert-api/pkg/messaging"
	"github.com/turicert/cert-api/pkg/metrics"
)

// CreateRequest is the input for opening a cross-country audit request.
type CreateRequest struct {
	ApprovingCountryID uuid.UUID  `json:"approving_country_id" validate:"required"`
	DeadlineDate       *time.Time `json:"deadline_date,omitempty"`
	Notes              string     `json:"notes"`
}

// DecisionRequest carries the approving country's verdict.
type DecisionRequest struct {
	AssignedAuditorID *uuid.UUID `json:"assigned_auditor_id,omitempty"`
	Notes             string     `json:"notes"`
}

// Service runs the auditor-sharing workflow between countries:
// Pending moves to Approved or Rejected, Approved may be Revoked, and
// Pending may be Cancelled by the requesting side.
type Service struct {
	requests  repository.CrossCountryRepository
	companies repository.CompanyRepository
	users     repository.UserRepository
	broker    messaging.Broker
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

// NewService builds the workflow service. The broker is optional; when
// set, every lifecycle change is published on the audit-request channel.
func NewService(
	requests repository.CrossCountryRepository,
	companies repository.CompanyRepository,
	users repository.UserRepository,
	broker messaging.Broker,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		requests:  requests,
		companies: companies,
		users:     users,
		broker:    broker,
		logger:    logger,
		metrics:   metrics,
	}
}

func (s *Service) announce(ctx context.Context, action string, req *model.CrossCountryAuditRequest) {
	s.metrics.AuditRequestsTotal.WithLabelValues(action).Inc()
	if s.broker == nil {
		return
	}
	payload := map[string]interface{}{
		"request_id": req.ID.String(),
		"action":     action,
		"status":     string(req.Status),
	}
	if err := s.broker.Publish(ctx, messaging.ChannelAuditRequest, payload); err != nil {
		s.logger.Error(err, "failed to publish audit request event", "request_id", req.ID.String())
	}
}

// Create opens a request on behalf of the actor's country. Duplicate
// open requests between the same country pair with an overlapping
// deadline are rejected.
func (s *Service) Create(ctx context.Context, dto CreateRequest, actor model.Actor) (*model.CrossCountryAuditRequest, error) {
	if !actor.Role.CanManageProcesses() {
		return nil, apperrors.Unauthorized("role may not request cross-country audits")
	}
	if dto.ApprovingCountryID == actor.CountryID {
		return nil, apperrors.BadRequest("approving country must differ from the requesting country", nil)
	}

	conflict, err := s.requests.HasOpenConflict(ctx, actor.CountryID, dto.ApprovingCountryID)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, apperrors.DuplicateRequest("an open request between these countries already exists")
	}

	req := &model.CrossCountryAuditRequest{
		ID:                  uuid.New(),
		RequestingCountryID: actor.CountryID,
		ApprovingCountryID:  dto.ApprovingCountryID,
		Status:              model.RequestPending,
		DeadlineDate:        dto.DeadlineDate,
		Notes:               dto.Notes,
		CreatedByID:         actor.ID,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	s.announce(ctx, "create", req)
	s.logger.Info("cross-country request created",
		"request_id", req.ID.String(),
		"requesting_country", req.RequestingCountryID.String(),
		"approving_country", req.ApprovingCountryID.String())
	return req, nil
}

// Approve accepts a pending request. The assigned auditor must genuinely
// hold the Auditor role in the approving country.
func (s *Service) Approve(ctx context.Context, requestID uuid.UUID, dto DecisionRequest, actor model.Actor) (*model.CrossCountryAuditRequest, error) {
	req, err := s.decidable(ctx, requestID, actor)
	if err != nil {
		return nil, err
	}

	if dto.AssignedAuditorID != nil {
		isAuditor, err := s.users.HasRoleInCountry(ctx, *dto.AssignedAuditorID, model.RoleAuditor, req.ApprovingCountryID)
		if err != nil {
			return nil, err
		}
		if !isAuditor {
			return nil, apperrors.BadRequest("assigned user is not an auditor in the approving country", nil)
		}
		req.AssignedAuditorID = dto.AssignedAuditorID
	}

	req.Status = model.RequestApproved
	if dto.Notes != "" {
		req.Notes = dto.Notes
	}
	if err := s.requests.Update(ctx, req); err != nil {
		return nil, err
	}

	s.announce(ctx, "approve", req)
	return req, nil
}

// Reject declines a pending request.
func (s *Service) Reject(ctx context.Context, requestID uuid.UUID, dto DecisionRequest, actor model.Actor) (*model.CrossCountryAuditRequest, error) {
	req, err := s.decidable(ctx, requestID, actor)
	if err != nil {
		return nil, err
	}

	req.Status = model.RequestRejected
	if dto.Notes != "" {
		req.Notes = dto.Notes
	}
	if err := s.requests.Update(ctx, req); err != nil {
		return nil, err
	}

	s.announce(ctx, "reject", req)
	return req, nil
}

// Revoke withdraws a previously approved request. Only the approving
// country may revoke.
func (s *Service) Revoke(ctx context.Context, requestID uuid.UUID, actor model.Actor) (*model.CrossCountryAuditRequest, error) {
	req, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.requireApprovingActor(req, actor); err != nil {
		return nil, err
	}
	if req.Status != model.RequestApproved {
		return nil, apperrors.InvalidTransition(
			fmt.Sprintf("cannot revoke a request in status %s", req.Status))
	}

	req.Status = model.RequestRevoked
	if err := s.requests.Update(ctx, req); err != nil {
		return nil, err
	}

	s.announce(ctx, "revoke", req)
	return req, nil
}

// Cancel withdraws a still-pending request. Only the requesting country
// may cancel.
func (s *Service) Cancel(ctx context.Context, requestID uuid.UUID, actor model.Actor) (*model.CrossCountryAuditRequest, error) {
	req, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.CanManageProcesses() || actor.CountryID != req.RequestingCountryID {
		return nil, apperrors.Unauthorized("only the requesting country may cancel")
	}
	if req.Status != model.RequestPending {
		return nil, apperrors.InvalidTransition(
			fmt.Sprintf("cannot cancel a request in status %s", req.Status))
	}

	req.Status = model.RequestCancelled
	if err := s.requests.Update(ctx, req); err != nil {
		return nil, err
	}

	s.announce(ctx, "cancel", req)
	return req, nil
}

// List returns the requests visible to the actor's country, either side.
func (s *Service) List(ctx context.Context, actor model.Actor) ([]*model.CrossCountryAuditRequest, error) {
	if !actor.Role.Internal() {
		return nil, apperrors.Unauthorized("role may not list audit requests")
	}
	return s.requests.List(ctx, actor.CountryID)
}

// CanAssignAuditorToCompany reports whether the auditor may audit the
// company: an approved, non-expired request must name this auditor with
// the company's country approving.
func (s *Service) CanAssignAuditorToCompany(ctx context.Context, auditorID, companyID uuid.UUID) (bool, error) {
	company, err := s.companies.Get(ctx, companyID)
	if err != nil {
		return false, err
	}
	return s.requests.HasApprovedForAuditor(ctx, auditorID, company.CountryID, time.Now())
}

func (s *Service) decidable(ctx context.Context, requestID uuid.UUID, actor model.Actor) (*model.CrossCountryAuditRequest, error) {
	req, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.requireApprovingActor(req, actor); err != nil {
		return nil, err
	}
	if req.Status != model.RequestPending {
		return nil, apperrors.InvalidTransition(
			fmt.Sprintf("cannot decide a request in status %s", req.Status))
	}
	return req, nil
}

func (s *Service) requireApprovingActor(req *model.CrossCountryAuditRequest, actor model.Actor) error {
	if !actor.Role.CanManageProcesses() || actor.CountryID != req.ApprovingCountryID {
		return apperrors.Unauthorized("only the approving country may act on this request")
	}
	return nil
}
