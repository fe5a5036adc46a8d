package http

import (
	"errors"
	"fmt"
	"net/http"

	"FinSignal/internal/domain/models"
)

// AppError represents application-level error with HTTP status.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Field: field, Status: status}
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// NotFoundErrorf creates a 404 error with formatting.
func NotFoundErrorf(format string, a ...interface{}) *AppError {
	return NewAppError("ERR_NOT_FOUND", "", fmt.Sprintf(format, a...), http.StatusNotFound)
}

// BadRequestErrorf creates a 400 error with formatting.
func BadRequestErrorf(format string, a ...interface{}) *AppError {
	return NewAppError("ERR_BAD_REQUEST", "", fmt.Sprintf(format, a...), http.StatusBadRequest)
}

// UnprocessableErrorf creates a 422 error with formatting.
func UnprocessableErrorf(format string, a ...interface{}) *AppError {
	return NewAppError("ERR_UNPROCESSABLE", "", fmt.Sprintf(format, a...), http.StatusUnprocessableEntity)
}

// InternalErrorf creates a 500 error with formatting.
func InternalErrorf(format string, a ...interface{}) *AppError {
	return NewAppError("ERR_INTERNAL", "", fmt.Sprintf(format, a...), http.StatusInternalServerError)
}

// FromDomain maps engine errors onto HTTP errors.
func FromDomain(err error) *AppError {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, models.ErrNotFound):
		return NotFoundErrorf("%v", err).WithError(err)
	case errors.Is(err, models.ErrInvalidRange):
		return BadRequestErrorf("%v", err).WithError(err)
	case errors.Is(err, models.ErrInsufficientData), errors.Is(err, models.ErrInvalidBook):
		return UnprocessableErrorf("%v", err).WithError(err)
	default:
		return InternalErrorf("internal error").WithError(err)
	}
}
