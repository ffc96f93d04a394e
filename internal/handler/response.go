package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/turicert/cert-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// RespondError maps application error codes to HTTP statuses and writes
// the error envelope.
func RespondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperrors.CodeOf(err) {
	case apperrors.ErrNotFound:
		status = http.StatusNotFound
	case apperrors.ErrBadRequest, apperrors.ErrIncompleteQuestionnaire:
		status = http.StatusBadRequest
	case apperrors.ErrUnauthorized:
		status = http.StatusForbidden
	case apperrors.ErrInvalidTransition, apperrors.ErrInvalidCompanyState, apperrors.ErrDuplicateRequest:
		status = http.StatusConflict
	case apperrors.ErrTemplateMissing:
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, NewErrorResponse(err.Error()))
}
