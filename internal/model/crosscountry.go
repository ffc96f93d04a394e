package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RequestStatus is the state of a cross-country audit request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestRejected  RequestStatus = "rejected"
	RequestRevoked   RequestStatus = "revoked"
	RequestCancelled RequestStatus = "cancelled"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected, RequestRevoked, RequestCancelled:
		return true
	}
	return false
}

// CrossCountryAuditRequest lets one country's auditor evaluate companies
// in another country. It references countries and an auditor, never a
// specific certification process.
type CrossCountryAuditRequest struct {
	ID                  uuid.UUID     `json:"id" db:"id"`
	RequestingCountryID uuid.UUID     `json:"requesting_country_id" db:"requesting_country_id"`
	ApprovingCountryID  uuid.UUID     `json:"approving_country_id" db:"approving_country_id"`
	Status              RequestStatus `json:"status" db:"status"`
	AssignedAuditorID   *uuid.UUID    `json:"assigned_auditor_id,omitempty" db:"assigned_auditor_id"`
	DeadlineDate        *time.Time    `json:"deadline_date,omitempty" db:"deadline_date"`
	Notes               string        `json:"notes" db:"notes"`
	CreatedByID         uuid.UUID     `json:"created_by_id" db:"created_by_id"`
	CreatedAt           time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at" db:"updated_at"`
}

// Expired reports whether the request's deadline has passed at ref time.
func (r *CrossCountryAuditRequest) Expired(ref time.Time) bool {
	return r.DeadlineDate != nil && r.DeadlineDate.Before(ref)
}

func (r *CrossCountryAuditRequest) String() string {
	return fmt.Sprintf("audit-request %s (%s)", r.ID, r.Status)
}
