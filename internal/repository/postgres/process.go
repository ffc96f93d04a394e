package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/turicert/cert-api/internal/model"
	"github.com/turicert/cert-api/internal/repository"
	apperrors "github.com/turicert/cert-api/pkg/errors"
)

const pqUniqueViolation = "23505"

type processRepository struct {
	db *sqlx.DB
}

func NewProcessRepository(db *sqlx.DB) repository.ProcessRepository {
	return &processRepository{db: db}
}

const processColumns = `
	id, company_id, status, start_date, finalization_date,
	audit_scheduled_date, expiration_date, is_recertification,
	case_number, assigned_advisor_id, assigned_auditor_id,
	generating_user_id, version, created_at, updated_at
`

func (r *processRepository) Get(ctx context.Context, id uuid.UUID) (*model.CertificationProcess, error) {
	query := `SELECT ` + processColumns + ` FROM certification_processes WHERE id = $1`

	var process model.CertificationProcess
	if err := r.db.GetContext(ctx, &process, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("certification process", err)
		}
		return nil, fmt.Errorf("failed to get process: %w", err)
	}
	return &process, nil
}

func (r *processRepository) GetActiveByCompany(ctx context.Context, companyID uuid.UUID) (*model.CertificationProcess, error) {
	query := `SELECT ` + processColumns + `
		FROM certification_processes
		WHERE company_id = $1 AND status < $2
		ORDER BY created_at DESC
		LIMIT 1`

	var process model.CertificationProcess
	if err := r.db.GetContext(ctx, &process, query, companyID, model.StatusCompleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("active certification process", err)
		}
		return nil, fmt.Errorf("failed to get active process: %w", err)
	}
	return &process, nil
}

func (r *processRepository) GetLatestByCompany(ctx context.Context, companyID uuid.UUID) (*model.CertificationProcess, error) {
	query := `SELECT ` + processColumns + `
		FROM certification_processes
		WHERE company_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	var process model.CertificationProcess
	if err := r.db.GetContext(ctx, &process, query, companyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("certification process", err)
		}
		return nil, fmt.Errorf("failed to get latest process: %w", err)
	}
	return &process, nil
}

// Create inserts a new process and its companion rows in one
// transaction. A partial unique index on (company_id) for non-terminal
// statuses makes a second concurrent create lose with a unique
// violation, which surfaces as InvalidCompanyState.
func (r *processRepository) Create(ctx context.Context, write repository.TransitionWrite) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO certification_processes (
			id, company_id, status, start_date, is_recertification,
			case_number, assigned_advisor_id, assigned_auditor_id,
			generating_user_id, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10, $11)
	`
	now := time.Now()
	p := write.Process
	p.Version = 1
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err = tx.ExecContext(ctx, query,
		p.ID, p.CompanyID, p.Status, p.StartDate, p.IsRecertification,
		p.CaseNumber, p.AssignedAdvisorID, p.AssignedAuditorID,
		p.GeneratingUserID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return apperrors.InvalidCompanyState("company already has an active certification process")
		}
		return fmt.Errorf("failed to create process: %w", err)
	}

	if err := writeCompanions(ctx, tx, write); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit process creation: %w", err)
	}
	return nil
}

// ApplyTransition persists one committed status transition. The process
// row carries an optimistic version; a concurrent transition on the same
// row makes the second writer fail the version check.
func (r *processRepository) ApplyTransition(ctx context.Context, write repository.TransitionWrite) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE certification_processes
		SET status = $1, finalization_date = $2, audit_scheduled_date = $3,
			expiration_date = $4, assigned_advisor_id = $5,
			assigned_auditor_id = $6, version = version + 1, updated_at = $7
		WHERE id = $8 AND version = $9
	`
	p := write.Process
	p.UpdatedAt = time.Now()

	result, err := tx.ExecContext(ctx, query,
		p.Status, p.FinalizationDate, p.AuditScheduledDate,
		p.ExpirationDate, p.AssignedAdvisorID, p.AssignedAuditorID,
		p.UpdatedAt, p.ID, p.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update process: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.InvalidTransition("process was modified concurrently")
	}
	p.Version++

	if err := writeCompanions(ctx, tx, write); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transition: %w", err)
	}
	return nil
}

func writeCompanions(ctx context.Context, tx *sqlx.Tx, write repository.TransitionWrite) error {
	if c := write.Company; c != nil {
		query := `
			UPDATE companies
			SET current_status = $1, current_result = $2,
				suggested_result = $3, result_expiration = $4, updated_at = $5
			WHERE id = $6
		`
		c.UpdatedAt = time.Now()
		if _, err := tx.ExecContext(ctx, query,
			c.CurrentStatus, c.CurrentResult, c.SuggestedResult,
			c.ResultExpiration, c.UpdatedAt, c.ID,
		); err != nil {
			return fmt.Errorf("failed to update company status mirror: %w", err)
		}
	}

	if l := write.Log; l != nil {
		query := `
			INSERT INTO transition_logs (id, process_id, from_status, to_status, action, actor_id, reason, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		l.CreatedAt = time.Now()
		if _, err := tx.ExecContext(ctx, query,
			l.ID, l.ProcessID, l.FromStatus, l.ToStatus, l.Action, l.ActorID, l.Reason, l.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert transition log: %w", err)
		}
	}

	if e := write.Event; e != nil {
		query := `
			INSERT INTO notification_outbox (id, process_id, reason, actor_id, language, status, retry_count, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, 0, $7)
		`
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		e.Status = model.OutboxStatusPending
		e.CreatedAt = time.Now()
		if _, err := tx.ExecContext(ctx, query,
			e.ID, e.ProcessID, e.Reason, e.ActorID, e.Language, e.Status, e.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert outbox event: %w", err)
		}
	}

	if q := write.Questionnaire; q != nil {
		query := `
			UPDATE questionnaires
			SET visit_date = $1, auditor_review_date = $2, result = $3, updated_at = $4
			WHERE id = $5
		`
		q.UpdatedAt = time.Now()
		if _, err := tx.ExecContext(ctx, query,
			q.VisitDate, q.AuditorReviewDate, q.Result, q.UpdatedAt, q.ID,
		); err != nil {
			return fmt.Errorf("failed to update questionnaire: %w", err)
		}
	}

	if g := write.Grading; g != nil {
		query := `
			INSERT INTO grading_records (id, process_id, distinctive_id, approved, dictamen_no, observations, actor_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		if g.ID == uuid.Nil {
			g.ID = uuid.New()
		}
		g.CreatedAt = time.Now()
		if _, err := tx.ExecContext(ctx, query,
			g.ID, g.ProcessID, g.DistinctiveID, g.Approved, g.DictamenNo, g.Observations, g.ActorID, g.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert grading record: %w", err)
		}
	}

	return nil
}

func (r *processRepository) ListTransitions(ctx context.Context, processID uuid.UUID) ([]*model.TransitionLog, error) {
	query := `
		SELECT id, process_id, from_status, to_status, action, actor_id, reason, created_at
		FROM transition_logs
		WHERE process_id = $1
		ORDER BY created_at ASC
	`
	var logs []*model.TransitionLog
	if err := r.db.SelectContext(ctx, &logs, query, processID); err != nil {
		return nil, fmt.Errorf("failed to list transitions: %w", err)
	}
	return logs, nil
}

// ListProjections returns one row per visible company carrying its
// latest certification process. Role scoping comes first, then the user
// filters in their fixed order: country, status, typology, name,
// distinctive.
func (r *processRepository) ListProjections(ctx context.Context, scope model.VisibilityScope, filter model.ProcessFilter) (model.Page[model.CompanyProjection], error) {
	base := `
		FROM companies c
		JOIN LATERAL (
			SELECT p.id, p.status, p.is_recertification, p.start_date,
				   p.expiration_date, p.assigned_advisor_id, p.assigned_auditor_id
			FROM certification_processes p
			WHERE p.company_id = c.id
			ORDER BY p.created_at DESC, p.id DESC
			LIMIT 1
		) latest ON true
		WHERE c.active = true
	`
	args := []interface{}{}
	argCount := 1

	addCond := func(cond string, value interface{}) {
		base += fmt.Sprintf(" AND "+cond, argCount)
		args = append(args, value)
		argCount++
	}

	if scope.AdvisorID != nil {
		addCond("latest.assigned_advisor_id = $%d", *scope.AdvisorID)
	}
	if scope.AuditorID != nil {
		addCond("latest.assigned_auditor_id = $%d", *scope.AuditorID)
	}
	if scope.CountryID != nil {
		addCond("c.country_id = $%d", *scope.CountryID)
	}
	if scope.CompanyID != nil {
		addCond("c.id = $%d", *scope.CompanyID)
	}

	if filter.CountryID != nil {
		addCond("c.country_id = $%d", *filter.CountryID)
	}
	if filter.Status != nil {
		addCond("latest.status = $%d", *filter.Status)
	}
	if filter.TypologyID != nil {
		addCond(`EXISTS (
			SELECT 1 FROM questionnaires q
			WHERE q.company_id = c.id AND q.typology_id = $%d
		)`, *filter.TypologyID)
	}
	if filter.Name != "" {
		addCond("c.name ILIKE $%d", "%"+filter.Name+"%")
	}
	if filter.DistinctiveName != "" {
		addCond("c.current_result ILIKE $%d", filter.DistinctiveName)
	}
	if filter.DistinctiveID != nil {
		addCond(`EXISTS (
			SELECT 1 FROM grading_records g
			JOIN certification_processes gp ON gp.id = g.process_id
			WHERE gp.company_id = c.id AND g.approved = true AND g.distinctive_id = $%d
		)`, *filter.DistinctiveID)
	}

	var page model.Page[model.CompanyProjection]
	countQuery := "SELECT COUNT(*) " + base
	if err := r.db.GetContext(ctx, &page.Total, countQuery, args...); err != nil {
		return page, fmt.Errorf("failed to count projections: %w", err)
	}

	query := `
		SELECT c.id AS company_id, c.name AS company_name, c.country_id,
			   latest.id AS process_id, latest.status, latest.is_recertification,
			   c.current_result, latest.start_date, latest.expiration_date
	` + base + " ORDER BY c.name ASC"

	if filter.PageSize > 0 {
		offset := 0
		if filter.Page > 1 {
			offset = (filter.Page - 1) * filter.PageSize
		}
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1)
		args = append(args, filter.PageSize, offset)
	}

	if err := r.db.SelectContext(ctx, &page.Items, query, args...); err != nil {
		return page, fmt.Errorf("failed to list projections: %w", err)
	}
	return page, nil
}
