package model

import (
	"time"

	"github.com/google/uuid"
)

// Questionnaire holds the audit answers collected during one leg of a
// certification process.
type Questionnaire struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	ProcessID         uuid.UUID  `json:"process_id" db:"process_id"`
	CompanyID         uuid.UUID  `json:"company_id" db:"company_id"`
	TypologyID        uuid.UUID  `json:"typology_id" db:"typology_id"`
	StartDate         time.Time  `json:"start_date" db:"start_date"`
	VisitDate         *time.Time `json:"visit_date,omitempty" db:"visit_date"`
	AuditorReviewDate *time.Time `json:"auditor_review_date,omitempty" db:"auditor_review_date"`
	Result            *float64   `json:"result,omitempty" db:"result"`
	IsTrial           bool       `json:"is_trial" db:"is_trial"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// QuestionnaireItem is one compliance item. Mandatory items must carry a
// result before the questionnaire can be finalized; an auditor may mark
// an item not applicable instead.
type QuestionnaireItem struct {
	ID              uuid.UUID `json:"id" db:"id"`
	QuestionnaireID uuid.UUID `json:"questionnaire_id" db:"questionnaire_id"`
	Mandatory       bool      `json:"mandatory" db:"mandatory"`
	NotApplicable   bool      `json:"not_applicable" db:"not_applicable"`
	Result          *int      `json:"result,omitempty" db:"result"`
}

// Answered reports whether the item counts as complete for the given
// reviewing role. Advisors must score every mandatory item; auditors may
// accept a not-applicable mark in place of a score.
func (i *QuestionnaireItem) Answered(role Role) bool {
	if i.Result != nil {
		return true
	}
	return role == RoleAuditor && i.NotApplicable
}
