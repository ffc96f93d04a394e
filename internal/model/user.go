package model

import (
	"time"

	"github.com/google/uuid"
)

// User is a program actor: staff scoped to a country, or the
// representative of a certified company.
type User struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Name          string     `json:"name" db:"name"`
	Email         string     `json:"email" db:"email"`
	CountryID     uuid.UUID  `json:"country_id" db:"country_id"`
	CompanyID     *uuid.UUID `json:"company_id,omitempty" db:"company_id"`
	Role          Role       `json:"role" db:"role"`
	Language      Language   `json:"language" db:"language"`
	Active        bool       `json:"active" db:"active"`
	NotifyByEmail bool       `json:"notify_by_email" db:"notify_by_email"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// Actor is the authenticated caller of a core operation, as resolved by
// the identity layer.
type Actor struct {
	ID        uuid.UUID `json:"id"`
	CountryID uuid.UUID `json:"country_id"`
	Role      Role      `json:"role"`
	Language  Language  `json:"language"`
}
