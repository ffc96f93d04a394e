package model

import (
	"time"

	"github.com/google/uuid"
)

// Distinctive is an awarded certification badge/level.
type Distinctive struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	ValidityYears int       `json:"validity_years" db:"validity_years"`
}

// GradingRecord is the committee's verdict on a process. The most
// recently created record for a process is the authoritative one.
type GradingRecord struct {
	ID            uuid.UUID `json:"id" db:"id"`
	ProcessID     uuid.UUID `json:"process_id" db:"process_id"`
	DistinctiveID uuid.UUID `json:"distinctive_id" db:"distinctive_id"`
	Approved      bool      `json:"approved" db:"approved"`
	DictamenNo    string    `json:"dictamen_no" db:"dictamen_no"`
	Observations  string    `json:"observations" db:"observations"`
	ActorID       uuid.UUID `json:"actor_id" db:"actor_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
