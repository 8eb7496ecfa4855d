package validation

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/lorrc/ohq-statistics/internal/core/errors"
)

// DateLayout is the calendar date format accepted in query strings.
const DateLayout = "2006-01-02"

// Validator collects field errors from request parameters
type Validator struct {
	errors *apperrors.ValidationErrors
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{
		errors: apperrors.NewValidationErrors(),
	}
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return v.errors.HasErrors()
}

// Errors returns the validation errors
func (v *Validator) Errors() *apperrors.ValidationErrors {
	return v.errors
}

// Err returns the collected errors, or nil when there are none.
func (v *Validator) Err() error {
	if v.HasErrors() {
		return v.errors
	}
	return nil
}

// Required validates that a string is not empty
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.errors.Add(field, "This field is required")
	}
	return v
}

// Range validates integer is within range
func (v *Validator) Range(field string, value, min, max int) *Validator {
	if value < min || value > max {
		v.errors.Add(field, "Must be between "+strconv.Itoa(min)+" and "+strconv.Itoa(max))
	}
	return v
}

// OneOf validates value is one of the allowed values
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" {
		return v // Empty is handled by Required
	}

	for _, a := range allowed {
		if value == a {
			return v
		}
	}

	v.errors.Add(field, "Must be one of: "+strings.Join(allowed, ", "))
	return v
}

// Custom adds a custom validation
func (v *Validator) Custom(field string, valid bool, message string) *Validator {
	if !valid {
		v.errors.Add(field, message)
	}
	return v
}

// ID parses a positive database identifier.
func (v *Validator) ID(field, value string) int64 {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		v.errors.Add(field, "Must be a positive integer")
		return 0
	}
	return id
}

// UUID parses a UUID.
func (v *Validator) UUID(field, value string) uuid.UUID {
	id, err := uuid.Parse(value)
	if err != nil {
		v.errors.Add(field, "Must be a valid UUID")
		return uuid.Nil
	}
	return id
}

// OptionalDate parses a YYYY-MM-DD date as UTC midnight. An empty value
// yields nil.
func (v *Validator) OptionalDate(field, value string) *time.Time {
	if value == "" {
		return nil
	}
	d, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		v.errors.Add(field, "Must be a date formatted as YYYY-MM-DD")
		return nil
	}
	return &d
}

// OptionalInt parses an integer, returning defaultValue when value is empty.
func (v *Validator) OptionalInt(field, value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		v.errors.Add(field, "Must be an integer")
		return defaultValue
	}
	return n
}

// ParseStringQueryParam safely parses a string query parameter
func ParseStringQueryParam(r *http.Request, key string) *string {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil
	}
	return &value
}
