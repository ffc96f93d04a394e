package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/turicert/cert-api/internal/model"
	"github.com/turicert/cert-api/internal/repository"
)

type outboxRepository struct {
	db *sqlx.DB
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Insert(ctx context.Context, event *model.OutboxEvent) error {
	query := `
		INSERT INTO notification_outbox (id, process_id, reason, actor_id, language, status, retry_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7)
	`
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.Status = model.OutboxStatusPending
	event.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.ProcessID, event.Reason, event.ActorID,
		event.Language, event.Status, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// FetchPending claims up to limit pending events by flipping them to
// processing in one statement. The inner SELECT takes its row locks with
// SKIP LOCKED so concurrent workers claim disjoint sets, and the status
// flip keeps a row claimed after the statement's transaction commits.
func (r *outboxRepository) FetchPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	query := `
		UPDATE notification_outbox
		SET status = $1
		WHERE id IN (
			SELECT id FROM notification_outbox
			WHERE status = $2
			ORDER BY created_at ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, process_id, reason, actor_id, language, status,
				  retry_count, last_error, created_at, processed_at
	`
	var events []*model.OutboxEvent
	if err := r.db.SelectContext(ctx, &events, query, model.OutboxStatusProcessing, model.OutboxStatusPending, limit); err != nil {
		return nil, fmt.Errorf("failed to claim pending events: %w", err)
	}
	return events, nil
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE notification_outbox
		SET status = $1, processed_at = $2
		WHERE id = $3
	`
	if _, err := r.db.ExecContext(ctx, query, model.OutboxStatusProcessed, time.Now(), id); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string, retryCount, maxRetries int) error {
	status := model.OutboxStatusPending
	if retryCount >= maxRetries {
		status = model.OutboxStatusFailed
	}
	query := `
		UPDATE notification_outbox
		SET status = $1, retry_count = $2, last_error = $3
		WHERE id = $4
	`
	if _, err := r.db.ExecContext(ctx, query, status, retryCount, lastError, id); err != nil {
		return fmt.Errorf("failed to mark event failed: %w", err)
	}
	return nil
}

func (r *outboxRepository) PendingCount(ctx context.Context) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM notification_outbox WHERE status = $1`
	if err := r.db.GetContext(ctx, &count, query, model.OutboxStatusPending); err != nil {
		return 0, fmt.Errorf("failed to count pending events: %w", err)
	}
	return count, nil
}
