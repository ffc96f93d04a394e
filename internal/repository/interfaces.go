package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/turicert/cert-api/internal/model"
)

// TransitionWrite is everything one status transition persists
// atomically: the process row, the company's mirrored status fields, the
// attribution log entry, and optionally the outbox event, questionnaire
// update and grading record produced by the same transition.
type TransitionWrite struct {
	Process       *model.CertificationProcess
	Company       *model.Company
	Log           *model.TransitionLog
	Event         *model.OutboxEvent
	Questionnaire *model.Questionnaire
	Grading       *model.GradingRecord
}

// All repository interfaces in one file
type (
	// ProcessRepository handles certification process persistence.
	// Create and ApplyTransition are single-transaction operations; a
	// competing write on the same process row loses on the optimistic
	// version check and surfaces as an ErrInvalidTransition conflict.
	ProcessRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.CertificationProcess, error)
		GetActiveByCompany(ctx context.Context, companyID uuid.UUID) (*model.CertificationProcess, error)
		GetLatestByCompany(ctx context.Context, companyID uuid.UUID) (*model.CertificationProcess, error)
		Create(ctx context.Context, write TransitionWrite) error
		ApplyTransition(ctx context.Context, write TransitionWrite) error
		ListTransitions(ctx context.Context, processID uuid.UUID) ([]*model.TransitionLog, error)
		ListProjections(ctx context.Context, scope model.VisibilityScope, filter model.ProcessFilter) (model.Page[model.CompanyProjection], error)
	}

	CompanyRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Company, error)
		ListExpiring(ctx context.Context, before time.Time) ([]*model.Company, error)
	}

	QuestionnaireRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Questionnaire, error)
		GetItems(ctx context.Context, questionnaireID uuid.UUID) ([]*model.QuestionnaireItem, error)
		GetActiveByProcess(ctx context.Context, processID uuid.UUID) (*model.Questionnaire, error)
	}

	UserRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByCompany(ctx context.Context, companyID uuid.UUID) (*model.User, error)
		// ListNotifiable returns active, notification-opted-in users
		// holding role; countryID nil means no country scoping.
		ListNotifiable(ctx context.Context, role model.Role, countryID *uuid.UUID) ([]*model.User, error)
		HasRoleInCountry(ctx context.Context, userID uuid.UUID, role model.Role, countryID uuid.UUID) (bool, error)
	}

	TemplateRepository interface {
		GetByReason(ctx context.Context, reason int) (*model.NotificationTemplate, error)
		GetGroupRoles(ctx context.Context, templateID uuid.UUID) ([]model.Role, error)
		ListCustomAccounts(ctx context.Context, countryID uuid.UUID) ([]*model.CustomAccount, error)
	}

	// LedgerRepository is the sent-notification dedup ledger. Append is
	// the serialization point for concurrent sends: it returns false
	// when a record for the same (user, process) cooldown bucket
	// already exists.
	LedgerRepository interface {
		Append(ctx context.Context, record *model.SentNotificationRecord) (bool, error)
		Exists(ctx context.Context, userID, processID uuid.UUID, since time.Time) (bool, error)
	}

	CrossCountryRepository interface {
		Create(ctx context.Context, req *model.CrossCountryAuditRequest) error
		Get(ctx context.Context, id uuid.UUID) (*model.CrossCountryAuditRequest, error)
		Update(ctx context.Context, req *model.CrossCountryAuditRequest) error
		List(ctx context.Context, countryID uuid.UUID) ([]*model.CrossCountryAuditRequest, error)
		// HasOpenConflict reports whether a pending or approved request
		// already exists between the country pair. Open requests run from
		// creation, so any two between the same pair overlap.
		HasOpenConflict(ctx context.Context, requestingCountryID, approvingCountryID uuid.UUID) (bool, error)
		// HasApprovedForAuditor reports whether an approved, non-expired
		// request names the auditor with the given approving country.
		HasApprovedForAuditor(ctx context.Context, auditorID, approvingCountryID uuid.UUID, ref time.Time) (bool, error)
	}

	GradingRepository interface {
		GetLatestByProcess(ctx context.Context, processID uuid.UUID) (*model.GradingRecord, error)
	}

	DistinctiveRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Distinctive, error)
	}

	OutboxRepository interface {
		Insert(ctx context.Context, event *model.OutboxEvent) error
		FetchPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, lastError string, retryCount, maxRetries int) error
		PendingCount(ctx context.Context) (int64, error)
	}
)
