package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrInternal
	ErrInvalidTransition
	ErrIncompleteQuestionnaire
	ErrInvalidCompanyState
	ErrDuplicateRequest
	ErrTemplateMissing
)

// CodeOf extracts the ErrorCode from err, or ErrInternal if err is not an AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// Error constructors
func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: message,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func InvalidTransition(message string) *AppError {
	return &AppError{
		Code:    ErrInvalidTransition,
		Message: message,
	}
}

func IncompleteQuestionnaire(message string) *AppError {
	return &AppError{
		Code:    ErrIncompleteQuestionnaire,
		Message: message,
	}
}

func InvalidCompanyState(message string) *AppError {
	return &AppError{
		Code:    ErrInvalidCompanyState,
		Message: message,
	}
}

func DuplicateRequest(message string) *AppError {
	return &AppError{
		Code:    ErrDuplicateRequest,
		Message: message,
	}
}

func TemplateMissing(reason int) *AppError {
	return &AppError{
		Code:    ErrTemplateMissing,
		Message: fmt.Sprintf("no notification template for reason %d", reason),
	}
}
