package model

import (
	"fmt"
	"strings"
)

// Status is the ordinal position of a certification process in its
// workflow. Ordinals are informative; legal moves are enforced by the
// process service, not by arithmetic on these values.
type Status int

const (
	StatusInitial Status = iota
	StatusForConsulting
	StatusConsultancyUnderway
	StatusConsultancyCompleted
	StatusForAuditing
	StatusAuditingUnderway
	StatusAuditCompleted
	StatusUnderCommitteeReview
	StatusCompleted
)

// Valid reports whether s is a known workflow status.
func (s Status) Valid() bool {
	return s >= StatusInitial && s <= StatusCompleted
}

// Terminal reports whether a process in this status has finished its cycle.
func (s Status) Terminal() bool {
	return s == StatusCompleted
}

var statusText = map[Language]map[Status]string{
	LanguageEnglish: {
		StatusInitial:              "Initial",
		StatusForConsulting:        "For consulting",
		StatusConsultancyUnderway:  "Consultancy underway",
		StatusConsultancyCompleted: "Consultancy completed",
		StatusForAuditing:          "For auditing",
		StatusAuditingUnderway:     "Auditing underway",
		StatusAuditCompleted:       "Audit completed",
		StatusUnderCommitteeReview: "Under committee review",
		StatusCompleted:            "Completed",
	},
	LanguageSpanish: {
		StatusInitial:              "Inicial",
		StatusForConsulting:        "Por asesorar",
		StatusConsultancyUnderway:  "Asesoria en proceso",
		StatusConsultancyCompleted: "Asesoria finalizada",
		StatusForAuditing:          "Por auditar",
		StatusAuditingUnderway:     "Auditoria en proceso",
		StatusAuditCompleted:       "Auditoria finalizada",
		StatusUnderCommitteeReview: "En revision del comite",
		StatusCompleted:            "Finalizado",
	},
}

// StatusNames maps statuses to localized display text and back. Built
// once at startup and injected; the maps are never mutated afterwards.
type StatusNames struct {
	text   map[Language]map[Status]string
	lookup map[Language]map[string]Status
}

func NewStatusNames() *StatusNames {
	lookup := make(map[Language]map[string]Status, len(statusText))
	for lang, byStatus := range statusText {
		byText := make(map[string]Status, len(byStatus))
		for status, text := range byStatus {
			byText[strings.ToLower(text)] = status
		}
		lookup[lang] = byText
	}
	return &StatusNames{text: statusText, lookup: lookup}
}

// Text returns the display text for a status in the given language.
func (n *StatusNames) Text(s Status, lang Language) (string, error) {
	byStatus, ok := n.text[lang]
	if !ok {
		return "", fmt.Errorf("unknown language %q", lang)
	}
	text, ok := byStatus[s]
	if !ok {
		return "", fmt.Errorf("unknown status %d", s)
	}
	return text, nil
}

// Parse resolves display text back to its status, case-insensitively.
func (n *StatusNames) Parse(text string, lang Language) (Status, error) {
	byText, ok := n.lookup[lang]
	if !ok {
		return 0, fmt.Errorf("unknown language %q", lang)
	}
	status, ok := byText[strings.ToLower(text)]
	if !ok {
		return 0, fmt.Errorf("unknown status text %q", text)
	}
	return status, nil
}
