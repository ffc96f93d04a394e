package process

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turicert/cert-api/internal/model"
	"github.com/turicert/cert-api/internal/repository"
	apperrors "github.com/turicert/cert-api/pkg/errors"
	"github.com/turicert/cert-api/pkg/logger"
	"github.com/turicert/cert-api/pkg/metrics"
)

// AuditorVerifier answers whether a foreign auditor may work on a
// company, backed by the cross-country request workflow.
type AuditorVerifier interface {
	CanAssignAuditorToCompany(ctx context.Context, auditorID, companyID uuid.UUID) (bool, error)
}

// Service drives the certification process state machine. Status only
// increases, with two sanctioned exceptions: ReopenQuestionnaire and the
// admin-only ChangeStatusDirect override. Every transition is written
// with its actor and, where a notification is due, an outbox event in
// the same transaction.
type Service struct {
	processes      repository.ProcessRepository
	companies      repository.CompanyRepository
	questionnaires repository.QuestionnaireRepository
	gradings       repository.GradingRepository
	distinctives   repository.DistinctiveRepository
	users          repository.UserRepository
	verifier       AuditorVerifier
	logger         *logger.Logger
	metrics        *metrics.Metrics
}

func NewService(
	processes repository.ProcessRepository,
	companies repository.CompanyRepository,
	questionnaires repository.QuestionnaireRepository,
	gradings repository.GradingRepository,
	distinctives repository.DistinctiveRepository,
	users repository.UserRepository,
	verifier AuditorVerifier,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		processes:      processes,
		companies:      companies,
		questionnaires: questionnaires,
		gradings:       gradings,
		distinctives:   distinctives,
		users:          users,
		verifier:       verifier,
		logger:         logger,
		metrics:        metrics,
	}
}

func (s *Service) load(ctx context.Context, processID uuid.UUID) (*model.CertificationProcess, *model.Company, error) {
	process, err := s.processes.Get(ctx, processID)
	if err != nil {
		return nil, nil, err
	}
	company, err := s.companies.Get(ctx, process.CompanyID)
	if err != nil {
		return nil, nil, err
	}
	return process, company, nil
}

func (s *Service) fail(action string, err error) error {
	s.metrics.TransitionsFailed.WithLabelValues(action, fmt.Sprintf("%d", apperrors.CodeOf(err))).Inc()
	return err
}

func (s *Service) applied(action string, processID uuid.UUID, from, to model.Status) {
	s.metrics.TransitionsTotal.WithLabelValues(action).Inc()
	s.logger.Info("process transition",
		"action", action, "process_id", processID.String(),
		"from", int(from), "to", int(to))
}

func newCaseNumber(id uuid.UUID) string {
	return fmt.Sprintf("CP-%d-%s", time.Now().Year(), strings.ToUpper(id.String()[:8]))
}

// BeginProcess opens a new certification cycle for a company. The
// company must not already have an active process; a duplicate active
// process is also rejected at the storage layer, so two concurrent
// begins cannot both succeed.
func (s *Service) BeginProcess(ctx context.Context, companyID uuid.UUID, advisorID *uuid.UUID, actor model.Actor) (*model.CertificationProcess, error) {
	const action = "begin_process"

	if !actor.Role.CanManageProcesses() {
		return nil, s.fail(action, apperrors.Unauthorized("role may not begin certification processes"))
	}

	company, err := s.companies.Get(ctx, companyID)
	if err != nil {
		return nil, s.fail(action, err)
	}

	if _, err := s.processes.GetActiveByCompany(ctx, companyID); err == nil {
		return nil, s.fail(action, apperrors.InvalidCompanyState("company already has an active certification process"))
	} else if !apperrors.IsCode(err, apperrors.ErrNotFound) {
		return nil, s.fail(action, err)
	}

	status := model.StatusInitial
	if advisorID != nil {
		status = model.StatusForConsulting
	}

	id := uuid.New()
	process := &model.CertificationProcess{
		ID:                id,
		CompanyID:         companyID,
		Status:            status,
		StartDate:         time.Now(),
		CaseNumber:        newCaseNumber(id),
		AssignedAdvisorID: advisorID,
		GeneratingUserID:  actor.ID,
	}
	company.CurrentStatus = status

	write := repository.TransitionWrite{
		Process: process,
		Company: company,
		Log: &model.TransitionLog{
			ProcessID:  id,
			FromStatus: status,
			ToStatus:   status,
			Action:     action,
			ActorID:    actor.ID,
		},
		Event: s.statusEvent(process, actor),
	}
	if err := s.processes.Create(ctx, write); err != nil {
		return nil, s.fail(action, err)
	}

	s.applied(action, id, status, status)
	return process, nil
}

// StartConsultancy moves a process from ForConsulting into
// ConsultancyUnderway, binding the advisor who runs it.
func (s *Service) StartConsultancy(ctx context.Context, processID, advisorID uuid.UUID, actor model.Actor) (*model.CertificationProcess, error) {
	const action = "start_consultancy"

	process, company, err := s.load(ctx, processID)
	if err != nil {
		return nil, s.fail(action, err)
	}

	allowed := actor.Role.CanManageProcesses() ||
		(actor.Role == model.RoleAdvisor && actor.ID == advisorID)
	if !allowed {
		return nil, s.fail(action, apperrors.Unauthorized("role may not start consultancy"))
	}
	if process.Status != model.StatusForConsulting {
		return nil, s.fail(action, apperrors.InvalidTransition(
			fmt.Sprintf("cannot start consultancy from status %d", process.Status)))
	}

	from := process.Status
	process.Status = model.StatusConsultancyUnderway
	process.AssignedAdvisorID = &advisorID
	company.CurrentStatus = process.Status

	if err := s.apply(ctx, action, process, company, from, actor, ""); err != nil {
		return nil, err
	}
	s.applied(action, processID, from, process.Status)
	return process, nil
}

// CanFinalize reports whether the questionnaire passes the completeness
// rule for the given role, without side effects. Callers are expected to
// consult it before FinishQuestionnaire.
func (s *Service) CanFinalize(ctx context.Context, questionnaireID uuid.UUID, role model.Role) (bool, error) {
	items, err := s.questionnaires.GetItems(ctx, questionnaireID)
	if err != nil {
		return false, err
	}
	return unansweredMandatory(items, role) == 0, nil
}

func unansweredMandatory(items []*model.QuestionnaireItem, role model.Role) int {
	missing := 0
	for _, item := range items {
		if item.Mandatory && !item.Answered(role) {
			missing++
		}
	}
	return missing
}

// FinishQuestionnaire validates completeness and advances the owning
// process one step: ConsultancyUnderway to ConsultancyCompleted for an
// advisor, AuditingUnderway to AuditCompleted for an auditor. It returns
// the owning process id so the caller can trigger notifications.
func (s *Service) FinishQuestionnaire(ctx context.Context, questionnaireID uuid.UUID, actor model.Actor) (uuid.UUID, error) {
	const action = "finish_questionnaire"

	if actor.Role != model.RoleAdvisor && actor.Role != model.RoleAuditor {
		return uuid.Nil, s.fail(action, apperrors.Unauthorized("only advisors and auditors finish questionnaires"))
	}

	questionnaire, err := s.questionnaires.Get(ctx, questionnaireID)
	if err != nil {
		return uuid.Nil, s.fail(action, err)
	}
	items, err := s.questionnaires.GetItems(ctx, questionnaireID)
	if err != nil {
		return uuid.Nil, s.fail(action, err)
	}
	if missing := unansweredMandatory(items, actor.Role); missing > 0 {
		return uuid.Nil, s.fail(action, apperrors.IncompleteQuestionnaire(
			fmt.Sprintf("%d mandatory items without result", missing)))
	}

	process, company, err := s.load(ctx, questionnaire.ProcessID)
	if err != nil {
		return uuid.Nil, s.fail(action, err)
	}

	from := process.Status
	now := time.Now()
	switch actor.Role {
	case model.RoleAdvisor:
		if process.Status != model.StatusConsultancyUnderway {
			return uuid.Nil, s.fail(action, apperrors.InvalidTransition(
				fmt.Sprintf("cannot finish consultancy questionnaire from status %d", process.Status)))
		}
		process.Status = model.StatusConsultancyCompleted
		questionnaire.VisitDate = &now
	case model.RoleAuditor:
		if process.Status != model.StatusAuditingUnderway {
			return uuid.Nil, s.fail(action, apperrors.InvalidTransition(
				fmt.Sprintf("cannot finish audit questionnaire from status %d", process.Status)))
		}
		process.Status = model.StatusAuditCompleted
		questionnaire.AuditorReviewDate = &now
	}
	company.CurrentStatus = process.Status

	write := repository.TransitionWrite{
		Process:       process,
		Company:       company,
		Log:           s.logEntry(action, process, from, actor, ""),
		Event:         s.statusEvent(process, actor),
		Questionnaire: questionnaire,
	}
	if err := s.processes.ApplyTransition(ctx, write); err != nil {
		return uuid.Nil, s.fail(action, err)
	}

	s.applied(action, process.ID, from, process.Status)
	return process.ID, nil
}

// AssignAuditor schedules the audit. Valid from ForAuditing, and
// re-entrant from AuditingUnderway when the audit is being rescheduled.
// A foreign auditor needs an approved cross-country request.
func (s *Service) AssignAuditor(ctx context.Context, processID, auditorID uuid.UUID, date time.Time, actor model.Actor) (*model.CertificationProcess, error) {
	const action = "assign_auditor"

	if !actor.Role.CanManageProcesses() {
		return nil, s.fail(action, apperrors.Unauthorized("role may not assign auditors"))
	}

	process, company, err := s.load(ctx, processID)
	if err != nil {
		return nil, s.fail(action, err)
	}
	if process.Status != model.StatusForAuditing && process.Status != model.StatusAuditingUnderway {
		return nil, s.fail(action, apperrors.InvalidTransition(
			fmt.Sprintf("cannot assign auditor from status %d", process.Status)))
	}

	auditor, err := s.users.Get(ctx, auditorID)
	if err != nil {
		return nil, s.fail(action, err)
	}
	if auditor.Role != model.RoleAuditor {
		return nil, s.fail(action, apperrors.BadRequest("assigned user is not an auditor", nil))
	}
	if auditor.CountryID != company.CountryID {
		allowed, err := s.verifier.CanAssignAuditorToCompany(ctx, auditorID, company.ID)
		if err != nil {
			return nil, s.fail(action, err)
		}
		if !allowed {
			return nil, s.fail(action, apperrors.Unauthorized("no approved cross-country request for this auditor"))
		}
	}

	from := process.Status
	process.Status = model.StatusAuditingUnderway
	process.AssignedAuditorID = &auditorID
	process.AuditScheduledDate = &date
	company.CurrentStatus = process.Status

	if err := s.apply(ctx, action, process, company, from, actor, ""); err != nil {
		return nil, err
	}
	s.applied(action, processID, from, process.Status)
	return process, nil
}

// ChangeAuditor replaces the assigned advisor or auditor without moving
// the status. It emits its own notification reason rather than a status
// reason.
func (s *Service) ChangeAuditor(ctx context.Context, processID, newUserID uuid.UUID, isAuditor bool, reason string, actor model.Actor) (*model.CertificationProcess, error) {
	action := "change_advisor"
	notifyReason := model.ReasonChangeAdvisor
	wantRole := model.RoleAdvisor
	if isAuditor {
		action = "change_auditor"
		notifyReason = model.ReasonChangeAuditor
		wantRole = model.RoleAuditor
	}

	if !actor.Role.CanManageProcesses() {
		return nil, s.fail(action, apperrors.Unauthorized("role may not change assignments"))
	}

	process, err := s.processes.Get(ctx, processID)
	if err != nil {
		return nil, s.fail(action, err)
	}

	newUser, err := s.users.Get(ctx, newUserID)
	if err != nil {
		return nil, s.fail(action, err)
	}
	if newUser.Role != wantRole {
		return nil, s.fail(action, apperrors.BadRequest(
			fmt.Sprintf("replacement user does not hold the %s role", wantRole), nil))
	}

	if isAuditor {
		process.AssignedAuditorID = &newUserID
	} else {
		process.AssignedAdvisorID = &newUserID
	}

	write := repository.TransitionWrite{
		Process: process,
		Log:     s.logEntry(action, process, process.Status, actor, reason),
		Event: &model.OutboxEvent{
			ProcessID: process.ID,
			Reason:    notifyReason,
			ActorID:   actor.ID,
			Language:  actor.Language,
		},
	}
	if err := s.processes.ApplyTransition(ctx, write); err != nil {
		return nil, s.fail(action, err)
	}

	s.applied(action, processID, process.Status, process.Status)
	return process, nil
}

// EnterCommitteeReview is the explicit, idempotent promotion into
// committee review. The committee read path calls it instead of
// promoting as a side effect of the read.
func (s *Service) EnterCommitteeReview(ctx context.Context, processID uuid.UUID, actor model.Actor) (*model.CertificationProcess, error) {
	const action = "enter_committee_review"

	if actor.Role != model.RoleCommittee && !actor.Role.CanManageProcesses() {
		return nil, s.fail(action, apperrors.Unauthorized("role may not enter committee review"))
	}

	process, company, err := s.load(ctx, processID)
	if err != nil {
		return nil, s.fail(action, err)
	}
	if process.Status == model.StatusUnderCommitteeReview {
		return process, nil
	}
	if process.Status != model.StatusAuditCompleted {
		return nil, s.fail(action, apperrors.InvalidTransition(
			fmt.Sprintf("cannot enter committee review from status %d", process.Status)))
	}

	from := process.Status
	process.Status = model.StatusUnderCommitteeReview
	company.CurrentStatus = process.Status

	if err := s.apply(ctx, action, process, company, from, actor, ""); err != nil {
		return nil, err
	}
	s.applied(action, processID, from, process.Status)
	return process, nil
}

// SaveGrading records the committee verdict and completes the process.
// On approval the company's badge and expiration move with it, inside
// the same transaction.
func (s *Service) SaveGrading(ctx context.Context, processID, distinctiveID uuid.UUID, approved bool, dictamenNo, observations string, actor model.Actor) (*model.CertificationProcess, error) {
	const action = "save_grading"

	if actor.Role != model.RoleCommittee && actor.Role != model.RoleAdmin {
		return nil, s.fail(action, apperrors.Unauthorized("only the committee records gradings"))
	}

	process, company, err := s.load(ctx, processID)
	if err != nil {
		return nil, s.fail(action, err)
	}
	if process.Status != model.StatusUnderCommitteeReview {
		return nil, s.fail(action, apperrors.InvalidTransition(
			fmt.Sprintf("cannot grade a process in status %d", process.Status)))
	}

	now := time.Now()
	from := process.Status
	process.Status = model.StatusCompleted
	process.FinalizationDate = &now
	company.CurrentStatus = process.Status

	if approved {
		distinctive, err := s.distinctives.Get(ctx, distinctiveID)
		if err != nil {
			return nil, s.fail(action, err)
		}
		years := distinctive.ValidityYears
		if years <= 0 {
			years = 2
		}
		expiration := now.AddDate(years, 0, 0)
		process.ExpirationDate = &expiration
		company.CurrentResult = &distinctive.Name
		company.ResultExpiration = &expiration
	}

	write := repository.TransitionWrite{
		Process: process,
		Company: company,
		Log:     s.logEntry(action, process, from, actor, observations),
		Event:   s.statusEvent(process, actor),
		Grading: &model.GradingRecord{
			ProcessID:     process.ID,
			DistinctiveID: distinctiveID,
			Approved:      approved,
			DictamenNo:    dictamenNo,
			Observations:  observations,
			ActorID:       actor.ID,
		},
	}
	if err := s.processes.ApplyTransition(ctx, write); err != nil {
		return nil, s.fail(action, err)
	}

	s.applied(action, processID, from, process.Status)
	return process, nil
}

// ReopenQuestionnaire is the admin-only escape hatch that moves a
// completed leg back to an editable status. This is the documented
// exception to the status-never-decreases rule.
func (s *Service) ReopenQuestionnaire(ctx context.Context, processID uuid.UUID, actor model.Actor) (*model.CertificationProcess, error) {
	const action = "reopen_questionnaire"

	if actor.Role != model.RoleAdmin {
		return nil, s.fail(action, apperrors.Unauthorized("only administrators reopen questionnaires"))
	}

	process, company, err := s.load(ctx, processID)
	if err != nil {
		return nil, s.fail(action, err)
	}

	var target model.Status
	switch process.Status {
	case model.StatusConsultancyCompleted, model.StatusForAuditing:
		target = model.StatusConsultancyUnderway
	case model.StatusAuditCompleted, model.StatusUnderCommitteeReview, model.StatusCompleted:
		target = model.StatusAuditingUnderway
	default:
		return nil, s.fail(action, apperrors.InvalidTransition(
			fmt.Sprintf("cannot reopen a process in status %d", process.Status)))
	}

	from := process.Status
	process.Status = target
	process.FinalizationDate = nil
	company.CurrentStatus = target

	write := repository.TransitionWrite{
		Process: process,
		Company: company,
		Log:     s.logEntry(action, process, from, actor, ""),
		Event:   s.statusEvent(process, actor),
	}

	if questionnaire, err := s.questionnaires.GetActiveByProcess(ctx, processID); err == nil {
		if target == model.StatusConsultancyUnderway {
			questionnaire.VisitDate = nil
		} else {
			questionnaire.AuditorReviewDate = nil
			questionnaire.Result = nil
		}
		write.Questionnaire = questionnaire
	} else if !apperrors.IsCode(err, apperrors.ErrNotFound) {
		return nil, s.fail(action, err)
	}

	if err := s.processes.ApplyTransition(ctx, write); err != nil {
		return nil, s.fail(action, err)
	}

	s.logger.Warn("process reopened", "process_id", processID.String(), "from", int(from), "to", int(target), "actor_id", actor.ID.String())
	s.applied(action, processID, from, target)
	return process, nil
}

// ConvertToRecertification opens a new cycle for a company whose latest
// process completed. The previous badge stays valid until it expires.
func (s *Service) ConvertToRecertification(ctx context.Context, companyID uuid.UUID, actor model.Actor) (*model.CertificationProcess, error) {
	const action = "convert_to_recertification"

	if !actor.Role.CanManageProcesses() {
		return nil, s.fail(action, apperrors.Unauthorized("role may not convert to recertification"))
	}

	company, err := s.companies.Get(ctx, companyID)
	if err != nil {
		return nil, s.fail(action, err)
	}
	latest, err := s.processes.GetLatestByCompany(ctx, companyID)
	if err != nil {
		return nil, s.fail(action, err)
	}
	if latest.Status != model.StatusCompleted {
		return nil, s.fail(action, apperrors.InvalidCompanyState(
			"latest certification process has not completed"))
	}

	id := uuid.New()
	process := &model.CertificationProcess{
		ID:                id,
		CompanyID:         companyID,
		Status:            model.StatusInitial,
		StartDate:         time.Now(),
		IsRecertification: true,
		CaseNumber:        newCaseNumber(id),
		GeneratingUserID:  actor.ID,
	}
	company.CurrentStatus = model.StatusInitial

	write := repository.TransitionWrite{
		Process: process,
		Company: company,
		Log: &model.TransitionLog{
			ProcessID:  id,
			FromStatus: model.StatusInitial,
			ToStatus:   model.StatusInitial,
			Action:     action,
			ActorID:    actor.ID,
		},
		Event: s.statusEvent(process, actor),
	}
	if err := s.processes.Create(ctx, write); err != nil {
		return nil, s.fail(action, err)
	}

	s.applied(action, id, model.StatusInitial, model.StatusInitial)
	return process, nil
}

// ChangeStatusDirect is the administrative override. The target must be
// a known ordinal and every override is logged.
func (s *Service) ChangeStatusDirect(ctx context.Context, processID uuid.UUID, target model.Status, actor model.Actor) (*model.CertificationProcess, error) {
	const action = "change_status_direct"

	if actor.Role != model.RoleAdmin {
		return nil, s.fail(action, apperrors.Unauthorized("only administrators change status directly"))
	}
	if !target.Valid() {
		return nil, s.fail(action, apperrors.BadRequest(
			fmt.Sprintf("unknown status %d", target), nil))
	}

	process, company, err := s.load(ctx, processID)
	if err != nil {
		return nil, s.fail(action, err)
	}

	// Completion still requires a grading verdict on record.
	if target == model.StatusCompleted {
		if _, err := s.gradings.GetLatestByProcess(ctx, processID); err != nil {
			if apperrors.IsCode(err, apperrors.ErrNotFound) {
				return nil, s.fail(action, apperrors.InvalidTransition("process has no grading record"))
			}
			return nil, s.fail(action, err)
		}
	}

	from := process.Status
	process.Status = target
	company.CurrentStatus = target

	if err := s.apply(ctx, action, process, company, from, actor, "administrative override"); err != nil {
		return nil, err
	}

	s.logger.Warn("direct status override", "process_id", processID.String(), "from", int(from), "to", int(target), "actor_id", actor.ID.String())
	s.applied(action, processID, from, target)
	return process, nil
}

// ListTransitions exposes the attribution log for one process.
func (s *Service) ListTransitions(ctx context.Context, processID uuid.UUID) ([]*model.TransitionLog, error) {
	return s.processes.ListTransitions(ctx, processID)
}

func (s *Service) apply(ctx context.Context, action string, process *model.CertificationProcess, company *model.Company, from model.Status, actor model.Actor, reason string) error {
	write := repository.TransitionWrite{
		Process: process,
		Company: company,
		Log:     s.logEntry(action, process, from, actor, reason),
		Event:   s.statusEvent(process, actor),
	}
	if err := s.processes.ApplyTransition(ctx, write); err != nil {
		return s.fail(action, err)
	}
	return nil
}

func (s *Service) logEntry(action string, process *model.CertificationProcess, from model.Status, actor model.Actor, reason string) *model.TransitionLog {
	return &model.TransitionLog{
		ProcessID:  process.ID,
		FromStatus: from,
		ToStatus:   process.Status,
		Action:     action,
		ActorID:    actor.ID,
		Reason:     reason,
	}
}

func (s *Service) statusEvent(process *model.CertificationProcess, actor model.Actor) *model.OutboxEvent {
	return &model.OutboxEvent{
		ProcessID: process.ID,
		Reason:    int(process.Status),
		ActorID:   actor.ID,
		Language:  actor.Language,
	}
}
