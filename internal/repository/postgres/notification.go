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

type templateRepository struct {
	db *sqlx.DB
}

func NewTemplateRepository(db *sqlx.DB) repository.TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) GetByReason(ctx context.Context, reason int) (*model.NotificationTemplate, error) {
	query := `
		SELECT id, reason, internal_title_es, internal_title_en,
			   internal_body_es, internal_body_en, company_title_es,
			   company_title_en, company_body_es, company_body_en
		FROM notification_templates
		WHERE reason = $1
	`
	var template model.NotificationTemplate
	if err := r.db.GetContext(ctx, &template, query, reason); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.TemplateMissing(reason)
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &template, nil
}

func (r *templateRepository) GetGroupRoles(ctx context.Context, templateID uuid.UUID) ([]model.Role, error) {
	query := `
		SELECT role FROM notification_groups
		WHERE template_id = $1
		ORDER BY role ASC
	`
	var roles []model.Role
	if err := r.db.SelectContext(ctx, &roles, query, templateID); err != nil {
		return nil, fmt.Errorf("failed to get template roles: %w", err)
	}
	return roles, nil
}

func (r *templateRepository) ListCustomAccounts(ctx context.Context, countryID uuid.UUID) ([]*model.CustomAccount, error) {
	query := `
		SELECT id, email, display_name, country_id, active
		FROM custom_accounts
		WHERE active = true AND (country_id IS NULL OR country_id = $1)
		ORDER BY display_name ASC
	`
	var accounts []*model.CustomAccount
	if err := r.db.SelectContext(ctx, &accounts, query, countryID); err != nil {
		return nil, fmt.Errorf("failed to list custom accounts: %w", err)
	}
	return accounts, nil
}

type ledgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) repository.LedgerRepository {
	return &ledgerRepository{db: db}
}

// Append writes one ledger row. The table carries a unique index on
// (user_id, process_id, cooldown_bucket) so two concurrent sends inside
// the same cooldown window cannot both insert; the loser gets false.
func (r *ledgerRepository) Append(ctx context.Context, record *model.SentNotificationRecord) (bool, error) {
	query := `
		INSERT INTO sent_notifications (id, user_id, process_id, sent_at, cooldown_bucket)
		VALUES ($1, $2, $3, $4, date_trunc('month', $4::timestamptz))
		ON CONFLICT (user_id, process_id, cooldown_bucket) DO NOTHING
	`
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.SentAt.IsZero() {
		record.SentAt = time.Now()
	}

	result, err := r.db.ExecContext(ctx, query, record.ID, record.UserID, record.ProcessID, record.SentAt)
	if err != nil {
		return false, fmt.Errorf("failed to append ledger record: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *ledgerRepository) Exists(ctx context.Context, userID, processID uuid.UUID, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM sent_notifications
			WHERE user_id = $1 AND process_id = $2 AND sent_at >= $3
		)
	`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, processID, since); err != nil {
		return false, fmt.Errorf("failed to query ledger: %w", err)
	}
	return exists, nil
}
