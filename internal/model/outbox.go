package model

import (
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusProcessed  OutboxStatus = "processed"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// OutboxEvent is a pending notification dispatch request, written in the
// same transaction as the status change that produced it.
type OutboxEvent struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	ProcessID   uuid.UUID    `json:"process_id" db:"process_id"`
	Reason      int          `json:"reason" db:"reason"`
	ActorID     uuid.UUID    `json:"actor_id" db:"actor_id"`
	Language    Language     `json:"language" db:"language"`
	Status      OutboxStatus `json:"status" db:"status"`
	RetryCount  int          `json:"retry_count" db:"retry_count"`
	LastError   *string      `json:"last_error,omitempty" db:"last_error"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time   `json:"processed_at,omitempty" db:"processed_at"`
}
