package errors

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations
var (
	// Authentication & Authorization
	ErrForbidden    = errors.New("action forbidden")
	ErrUnauthorized = errors.New("unauthorized")

	// Record store
	ErrCourseNotFound = errors.New("course not found")
	ErrQueueNotFound  = errors.New("queue not found")

	// Statistics
	ErrUnknownOperation = errors.New("unknown batch operation")
	ErrUnknownMetric    = errors.New("unknown metric")
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrPartialFailure   = errors.New("batch operation finished with failures")
	ErrJobRunning       = errors.New("batch operation already running")
)

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Message:    message,
		Code:       "FORBIDDEN",
		StatusCode: 403,
	}
}

// UnitError records the failure of one queue or course during a batch run.
type UnitError struct {
	Operation string
	Unit      string // "queue" or "course"
	ID        int64
	Err       error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("%s: %s %d: %v", e.Operation, e.Unit, e.ID, e.Err)
}

func (e *UnitError) Unwrap() error {
	return e.Err
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) have errors", len(v.Errors))
}
