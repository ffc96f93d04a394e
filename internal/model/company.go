package model

import (
	"time"

	"github.com/google/uuid"
)

// Company owns at most one active certification process and mirrors the
// latest process status in CurrentStatus. The mirror is written only
// inside the same transaction as the authoritative process write.
type Company struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	CountryID        uuid.UUID  `json:"country_id" db:"country_id"`
	Name             string     `json:"name" db:"name"`
	Email            string     `json:"email" db:"email"`
	SecondaryEmail   *string    `json:"secondary_email,omitempty" db:"secondary_email"`
	Active           bool       `json:"active" db:"active"`
	CurrentStatus    Status     `json:"current_status" db:"current_status"`
	SuggestedResult  *string    `json:"suggested_result,omitempty" db:"suggested_result"`
	CurrentResult    *string    `json:"current_result,omitempty" db:"current_result"`
	ResultExpiration *time.Time `json:"result_expiration,omitempty" db:"result_expiration"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// CompanyProjection is the company-shaped row returned by the role-scoped
// listing: each company carries only its latest certification process.
type CompanyProjection struct {
	CompanyID         uuid.UUID  `json:"company_id" db:"company_id"`
	CompanyName       string     `json:"company_name" db:"company_name"`
	CountryID         uuid.UUID  `json:"country_id" db:"country_id"`
	ProcessID         uuid.UUID  `json:"process_id" db:"process_id"`
	Status            Status     `json:"status" db:"status"`
	IsRecertification bool       `json:"is_recertification" db:"is_recertification"`
	CurrentResult     *string    `json:"current_result,omitempty" db:"current_result"`
	StartDate         time.Time  `json:"start_date" db:"start_date"`
	ExpirationDate    *time.Time `json:"expiration_date,omitempty" db:"expiration_date"`
}
