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

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{db: db}
}

const userColumns = `
	id, name, email, country_id, company_id, role, language, active,
	notify_by_email, created_at, updated_at
`

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetByCompany(ctx context.Context, companyID uuid.UUID) (*model.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE company_id = $1 AND active = true
		ORDER BY created_at ASC
		LIMIT 1`

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, companyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("company user", err)
		}
		return nil, fmt.Errorf("failed to get company user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) ListNotifiable(ctx context.Context, role model.Role, countryID *uuid.UUID) ([]*model.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE role = $1 AND active = true AND notify_by_email = true`
	args := []interface{}{role}

	if countryID != nil {
		query += ` AND country_id = $2`
		args = append(args, *countryID)
	}
	query += ` ORDER BY name ASC`

	var users []*model.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list notifiable users: %w", err)
	}
	return users, nil
}

func (r *userRepository) HasRoleInCountry(ctx context.Context, userID uuid.UUID, role model.Role, countryID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM users
			WHERE id = $1 AND role = $2 AND country_id = $3 AND active = true
		)
	`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, role, countryID); err != nil {
		return false, fmt.Errorf("failed to check user role: %w", err)
	}
	return exists, nil
}
