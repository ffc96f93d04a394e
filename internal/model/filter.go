package model

import (
	"github.com/google/uuid"
)

// ProcessFilter carries the optional user filters for the role-scoped
// listing. Filters are applied in a fixed order: country, status,
// typology, name, distinctive.
type ProcessFilter struct {
	CountryID       *uuid.UUID `json:"country_id,omitempty" form:"country_id"`
	Status          *Status    `json:"status,omitempty" form:"status"`
	TypologyID      *uuid.UUID `json:"typology_id,omitempty" form:"typology_id"`
	Name            string     `json:"name,omitempty" form:"name"`
	DistinctiveID   *uuid.UUID `json:"distinctive_id,omitempty" form:"distinctive_id"`
	DistinctiveName string     `json:"distinctive_name,omitempty" form:"distinctive_name"`
	Pagination
}

// VisibilityScope is the role-derived pre-filter for listings. Exactly
// the fields the caller's role grants are set; nil fields are unbounded.
type VisibilityScope struct {
	AdvisorID *uuid.UUID
	AuditorID *uuid.UUID
	CountryID *uuid.UUID
	CompanyID *uuid.UUID
}
