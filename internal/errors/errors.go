// LOCATION: internal/errors/errors.go
// VERSION: 2.0 - Consolidated error definitions for the entire project
//
// This file provides:
// - Sentinel errors for all error conditions
// - Error category checking functions
// - ErrorToStatus mapping for the HTTP surface
// - Error wrapping utilities

package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ============================================================================
// Sentinel errors for common conditions
// ============================================================================

var (
	// Validation errors (rejected before any I/O, mapped to 400)
	ErrInvalidMeasurement = errors.New("invalid measurement type")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidPatientID   = errors.New("invalid patient id")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrMissingField       = errors.New("missing required field")

	// Upstream errors
	ErrStreamResolution = errors.New("stream resolution failed")
	ErrBatchFetch       = errors.New("batch fetch failed")

	// Cache errors (recovered internally, never surfaced to clients)
	ErrCacheRead  = errors.New("cache read failed")
	ErrCacheWrite = errors.New("cache write failed")

	// Internal errors
	ErrInternal = errors.New("internal error")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidMeasurement) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidPatientID) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField)
}

// IsCacheError returns true if err is a cache read or write error.
// Cache errors are recoverable: the merge pipeline proceeds without the
// cached rows (read) or serves unpersisted results (write).
func IsCacheError(err error) bool {
	return errors.Is(err, ErrCacheRead) ||
		errors.Is(err, ErrCacheWrite)
}

// IsUpstream returns true if err originated at the remote measurement API.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrStreamResolution) ||
		errors.Is(err, ErrBatchFetch)
}

// ============================================================================
// Error to HTTP status mapping
// ============================================================================

// ErrorToStatus maps a sentinel error to the HTTP status returned by the
// serving layer.
func ErrorToStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case IsValidation(err):
		return http.StatusBadRequest
	case IsUpstream(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ============================================================================
// Error constructors with context
// ============================================================================

// NewValidation creates a validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// NewInvalidValue creates an invalid value error.
func NewInvalidValue(field string, value interface{}, reason string) error {
	return fmt.Errorf("invalid %s '%v': %s: %w", field, value, reason, ErrInvalidConfig)
}

// ============================================================================
// Validation Errors Collection
// ============================================================================

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors creates a new ValidationErrors collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add adds an error to the collection.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField adds a field validation error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Errors = append(v.Errors, NewValidation(field, reason))
}

// AddMissing adds a missing field error.
func (v *ValidationErrors) AddMissing(field string) {
	v.Errors = append(v.Errors, NewMissingField(field))
}

// HasErrors returns true if there are any errors.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	msg := fmt.Sprintf("validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns nil if no errors, otherwise returns the ValidationErrors.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap returns the first error for errors.Is/As support.
func (v *ValidationErrors) Unwrap() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v.Errors[0]
}
