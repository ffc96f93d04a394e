package model

// Language identifies a notification/display language.
type Language string

const (
	LanguageSpanish Language = "es"
	LanguageEnglish Language = "en"
)

// Pagination represents common pagination parameters
type Pagination struct {
	Page     int `json:"page" form:"page"`
	PageSize int `json:"page_size" form:"page_size"`
}

// Page wraps a result slice with its total count.
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}
