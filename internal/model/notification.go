package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification reasons. Non-negative reasons are status ordinals; the
// negative codes cover events that are not plain status changes.
const (
	ReasonChangeAdvisor      = -1
	ReasonChangeAuditor      = -2
	ReasonExpirationReminder = -3
)

// NotificationTemplate holds the localized texts for one reason, with a
// distinct variant per audience (internal staff vs the company itself).
type NotificationTemplate struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Reason          int       `json:"reason" db:"reason"`
	InternalTitleES string    `json:"internal_title_es" db:"internal_title_es"`
	InternalTitleEN string    `json:"internal_title_en" db:"internal_title_en"`
	InternalBodyES  string    `json:"internal_body_es" db:"internal_body_es"`
	InternalBodyEN  string    `json:"internal_body_en" db:"internal_body_en"`
	CompanyTitleES  string    `json:"company_title_es" db:"company_title_es"`
	CompanyTitleEN  string    `json:"company_title_en" db:"company_title_en"`
	CompanyBodyES   string    `json:"company_body_es" db:"company_body_es"`
	CompanyBodyEN   string    `json:"company_body_en" db:"company_body_en"`
}

func (t *NotificationTemplate) InternalTitle(lang Language) string {
	if lang == LanguageEnglish {
		return t.InternalTitleEN
	}
	return t.InternalTitleES
}

func (t *NotificationTemplate) InternalBody(lang Language) string {
	if lang == LanguageEnglish {
		return t.InternalBodyEN
	}
	return t.InternalBodyES
}

func (t *NotificationTemplate) CompanyTitle(lang Language) string {
	if lang == LanguageEnglish {
		return t.CompanyTitleEN
	}
	return t.CompanyTitleES
}

func (t *NotificationTemplate) CompanyBody(lang Language) string {
	if lang == LanguageEnglish {
		return t.CompanyBodyEN
	}
	return t.CompanyBodyES
}

// NotificationGroup binds a role to a template's internal variant.
type NotificationGroup struct {
	TemplateID uuid.UUID `json:"template_id" db:"template_id"`
	Role       Role      `json:"role" db:"role"`
}

// CustomAccount is an operator-configured extra recipient, either scoped
// to one country or global when CountryID is nil.
type CustomAccount struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Email       string     `json:"email" db:"email"`
	DisplayName string     `json:"display_name" db:"display_name"`
	CountryID   *uuid.UUID `json:"country_id,omitempty" db:"country_id"`
	Active      bool       `json:"active" db:"active"`
}

// Recipient is one resolved delivery target.
type Recipient struct {
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	RoleLabel string     `json:"role_label"`
	Language  Language   `json:"language"`
}

// RecipientSet is the output of recipient resolution: internal staff and
// the company-facing audience, already deduplicated.
type RecipientSet struct {
	Internal              []Recipient `json:"internal"`
	Company               []Recipient `json:"company"`
	SecondaryCompanyEmail string      `json:"secondary_company_email,omitempty"`
}

// SentNotificationRecord is one row of the dedup ledger.
type SentNotificationRecord struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ProcessID uuid.UUID `json:"process_id" db:"process_id"`
	SentAt    time.Time `json:"sent_at" db:"sent_at"`
}

// NotificationOutcome summarizes one dispatch batch.
type NotificationOutcome struct {
	ProcessID uuid.UUID `json:"process_id"`
	Reason    int       `json:"reason"`
	Delivered int       `json:"delivered"`
	Failed    int       `json:"failed"`
}
