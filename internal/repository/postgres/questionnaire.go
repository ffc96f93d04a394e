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

type questionnaireRepository struct {
	db *sqlx.DB
}

func NewQuestionnaireRepository(db *sqlx.DB) repository.QuestionnaireRepository {
	return &questionnaireRepository{db: db}
}

const questionnaireColumns = `
	id, process_id, company_id, typology_id, start_date, visit_date,
	auditor_review_date, result, is_trial, created_at, updated_at
`

func (r *questionnaireRepository) Get(ctx context.Context, id uuid.UUID) (*model.Questionnaire, error) {
	query := `SELECT ` + questionnaireColumns + ` FROM questionnaires WHERE id = $1`

	var questionnaire model.Questionnaire
	if err := r.db.GetContext(ctx, &questionnaire, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("questionnaire", err)
		}
		return nil, fmt.Errorf("failed to get questionnaire: %w", err)
	}
	return &questionnaire, nil
}

func (r *questionnaireRepository) GetItems(ctx context.Context, questionnaireID uuid.UUID) ([]*model.QuestionnaireItem, error) {
	query := `
		SELECT id, questionnaire_id, mandatory, not_applicable, result
		FROM questionnaire_items
		WHERE questionnaire_id = $1
	`
	var items []*model.QuestionnaireItem
	if err := r.db.SelectContext(ctx, &items, query, questionnaireID); err != nil {
		return nil, fmt.Errorf("failed to get questionnaire items: %w", err)
	}
	return items, nil
}

func (r *questionnaireRepository) GetActiveByProcess(ctx context.Context, processID uuid.UUID) (*model.Questionnaire, error) {
	query := `SELECT ` + questionnaireColumns + `
		FROM questionnaires
		WHERE process_id = $1 AND is_trial = false
		ORDER BY created_at DESC
		LIMIT 1`

	var questionnaire model.Questionnaire
	if err := r.db.GetContext(ctx, &questionnaire, query, processID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("questionnaire", err)
		}
		return nil, fmt.Errorf("failed to get active questionnaire: %w", err)
	}
	return &questionnaire, nil
}
