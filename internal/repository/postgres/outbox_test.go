package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestFetchPendingClaimsRows(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOutboxRepository(db)

	id := uuid.New()
	rows := sqlmock.NewRows([]string{
		"id", "process_id", "reason", "actor_id", "language", "status",
		"retry_count", "last_error", "created_at", "processed_at",
	}).AddRow(id.String(), uuid.New().String(), 6, uuid.New().String(), "es", "processing", 0, nil, time.Now(), nil)

	// The lock and the status flip happen in one statement, so a claimed
	// row stays invisible to a second worker after this commit.
	mock.ExpectQuery(`UPDATE notification_outbox SET status = \$1 WHERE id IN \( SELECT id FROM notification_outbox WHERE status = \$2 ORDER BY created_at ASC LIMIT \$3 FOR UPDATE SKIP LOCKED \) RETURNING`).
		WithArgs("processing", "pending", 10).
		WillReturnRows(rows)

	events, err := repo.FetchPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, id, events[0].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkFailedRespectsRetryCap(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOutboxRepository(db)
	id := uuid.New()

	update := `UPDATE notification_outbox SET status = \$1, retry_count = \$2, last_error = \$3 WHERE id = \$4`

	// Below the cap the event goes back to pending for another attempt.
	mock.ExpectExec(update).
		WithArgs("pending", 2, "smtp down", id.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkFailed(context.Background(), id, "smtp down", 2, 3))

	// At the cap it is parked as failed.
	mock.ExpectExec(update).
		WithArgs("failed", 3, "smtp down", id.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkFailed(context.Background(), id, "smtp down", 3, 3))

	assert.NoError(t, mock.ExpectationsWereMet())
}
