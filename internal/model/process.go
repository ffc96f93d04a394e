package model

import (
	"time"

	"github.com/google/uuid"
)

// CertificationProcess is one certification cycle for a company.
type CertificationProcess struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	CompanyID          uuid.UUID  `json:"company_id" db:"company_id"`
	Status             Status     `json:"status" db:"status"`
	StartDate          time.Time  `json:"start_date" db:"start_date"`
	FinalizationDate   *time.Time `json:"finalization_date,omitempty" db:"finalization_date"`
	AuditScheduledDate *time.Time `json:"audit_scheduled_date,omitempty" db:"audit_scheduled_date"`
	ExpirationDate     *time.Time `json:"expiration_date,omitempty" db:"expiration_date"`
	IsRecertification  bool       `json:"is_recertification" db:"is_recertification"`
	CaseNumber         string     `json:"case_number" db:"case_number"`
	AssignedAdvisorID  *uuid.UUID `json:"assigned_advisor_id,omitempty" db:"assigned_advisor_id"`
	AssignedAuditorID  *uuid.UUID `json:"assigned_auditor_id,omitempty" db:"assigned_auditor_id"`
	GeneratingUserID   uuid.UUID  `json:"generating_user_id" db:"generating_user_id"`
	Version            int64      `json:"-" db:"version"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// Active reports whether the process still occupies the company's single
// active-process slot.
func (p *CertificationProcess) Active() bool {
	return !p.Status.Terminal()
}

// TransitionLog is the append-only attribution record for every status
// change, including administrative overrides.
type TransitionLog struct {
	ID         uuid.UUID `json:"id" db:"id"`
	ProcessID  uuid.UUID `json:"process_id" db:"process_id"`
	FromStatus Status    `json:"from_status" db:"from_status"`
	ToStatus   Status    `json:"to_status" db:"to_status"`
	Action     string    `json:"action" db:"action"`
	ActorID    uuid.UUID `json:"actor_id" db:"actor_id"`
	Reason     string    `json:"reason" db:"reason"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
