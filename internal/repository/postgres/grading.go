package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/turicert/cert-api/internal/model"
	"github.com/turicert/cert-api/internal/repository"
	apperrors "github.com/turicert/cert-api/pkg/errors"
)

type gradingRepository struct {
	db *sqlx.DB
}

func NewGradingRepository(db *sqlx.DB) repository.GradingRepository {
	return &gradingRepository{db: db}
}

// GetLatestByProcess returns the authoritative grading record: the most
// recently created one for the process.
func (r *gradingRepository) GetLatestByProcess(ctx context.Context, processID uuid.UUID) (*model.GradingRecord, error) {
	query := `
		SELECT id, process_id, distinctive_id, approved, dictamen_no,
			   observations, actor_id, created_at
		FROM grading_records
		WHERE process_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	var record model.GradingRecord
	if err := r.db.GetContext(ctx, &record, query, processID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("grading record", err)
		}
		return nil, fmt.Errorf("failed to get grading record: %w", err)
	}
	return &record, nil
}

type distinctiveRepository struct {
	db *sqlx.DB
}

func NewDistinctiveRepository(db *sqlx.DB) repository.DistinctiveRepository {
	return &distinctiveRepository{db: db}
}

func (r *distinctiveRepository) Get(ctx context.Context, id uuid.UUID) (*model.Distinctive, error) {
	query := `SELECT id, name, validity_years FROM distinctives WHERE id = $1`

	var distinctive model.Distinctive
	if err := r.db.GetContext(ctx, &distinctive, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("distinctive", err)
		}
		return nil, fmt.Errorf("failed to get distinctive: %w", err)
	}
	return &distinctive, nil
}
