package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/turicert/cert-api/internal/model"
	"github.com/turicert/cert-api/internal/repository"
	apperrors "github.com/turicert/cert-api/pkg/errors"
)

type crossCountryRepository struct {
	db *sqlx.DB
}

func NewCrossCountryRepository(db *sqlx.DB) repository.CrossCountryRepository {
	return &crossCountryRepository{db: db}
}

const requestColumns = `
	id, requesting_country_id, approving_country_id, status,
	assigned_auditor_id, deadline_date, notes, created_by_id,
	created_at, updated_at
`

func (r *crossCountryRepository) Create(ctx context.Context, req *model.CrossCountryAuditRequest) error {
	query := `
		INSERT INTO cross_country_audit_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	now := time.Now()
	req.CreatedAt = now
	req.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		req.ID, req.RequestingCountryID, req.ApprovingCountryID, req.Status,
		req.AssignedAuditorID, req.DeadlineDate, req.Notes, req.CreatedByID,
		req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit request: %w", err)
	}
	return nil
}

func (r *crossCountryRepository) Get(ctx context.Context, id uuid.UUID) (*model.CrossCountryAuditRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM cross_country_audit_requests WHERE id = $1`

	var req model.CrossCountryAuditRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("audit request", err)
		}
		return nil, fmt.Errorf("failed to get audit request: %w", err)
	}
	return &req, nil
}

func (r *crossCountryRepository) Update(ctx context.Context, req *model.CrossCountryAuditRequest) error {
	query := `
		UPDATE cross_country_audit_requests
		SET status = $1, assigned_auditor_id = $2, deadline_date = $3,
			notes = $4, updated_at = $5
		WHERE id = $6
	`
	req.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		req.Status, req.AssignedAuditorID, req.DeadlineDate, req.Notes,
		req.UpdatedAt, req.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update audit request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("audit request", nil)
	}
	return nil
}

func (r *crossCountryRepository) List(ctx context.Context, countryID uuid.UUID) ([]*model.CrossCountryAuditRequest, error) {
	query := `SELECT ` + requestColumns + `
		FROM cross_country_audit_requests
		WHERE requesting_country_id = $1 OR approving_country_id = $1
		ORDER BY created_at DESC`

	var requests []*model.CrossCountryAuditRequest
	if err := r.db.SelectContext(ctx, &requests, query, countryID); err != nil {
		return nil, fmt.Errorf("failed to list audit requests: %w", err)
	}
	return requests, nil
}

// Open requests between a pair always overlap: both windows start at
// creation, whatever their deadlines. Any pending or approved request
// therefore conflicts.
func (r *crossCountryRepository) HasOpenConflict(ctx context.Context, requestingCountryID, approvingCountryID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM cross_country_audit_requests
			WHERE requesting_country_id = $1
			  AND approving_country_id = $2
			  AND status IN ($3, $4)
		)
	`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query,
		requestingCountryID, approvingCountryID,
		model.RequestPending, model.RequestApproved,
	)
	if err != nil {
		return false, fmt.Errorf("failed to check request conflict: %w", err)
	}
	return exists, nil
}

func (r *crossCountryRepository) HasApprovedForAuditor(ctx context.Context, auditorID, approvingCountryID uuid.UUID, ref time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM cross_country_audit_requests
			WHERE assigned_auditor_id = $1
			  AND approving_country_id = $2
			  AND status = $3
			  AND (deadline_date IS NULL OR deadline_date >= $4)
		)
	`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query, auditorID, approvingCountryID, model.RequestApproved, ref)
	if err != nil {
		return false, fmt.Errorf("failed to check approved request: %w", err)
	}
	return exists, nil
}
