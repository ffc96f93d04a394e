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

type companyRepository struct {
	db *sqlx.DB
}

func NewCompanyRepository(db *sqlx.DB) repository.CompanyRepository {
	return &companyRepository{db: db}
}

const companyColumns = `
	id, country_id, name, email, secondary_email, active, current_status,
	suggested_result, current_result, result_expiration, created_at, updated_at
`

func (r *companyRepository) Get(ctx context.Context, id uuid.UUID) (*model.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1`

	var company model.Company
	if err := r.db.GetContext(ctx, &company, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("company", err)
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &company, nil
}

func (r *companyRepository) ListExpiring(ctx context.Context, before time.Time) ([]*model.Company, error) {
	query := `SELECT ` + companyColumns + `
		FROM companies
		WHERE active = true
		  AND result_expiration IS NOT NULL
		  AND result_expiration <= $1
		ORDER BY result_expiration ASC`

	var companies []*model.Company
	if err := r.db.SelectContext(ctx, &companies, query, before); err != nil {
		return nil, fmt.Errorf("failed to list expiring companies: %w", err)
	}
	return companies, nil
}
