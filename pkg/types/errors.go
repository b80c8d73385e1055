package types

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeStorage    ErrorType = "storage"
)

// Sentinel errors for lookup paths. The core degrades rather than fails on
// missing data, but callers and tests can still distinguish "not found" from
// "found and valid" through these.
var (
	ErrDoseEventNotFound    = errors.New("dose event not found")
	ErrMedicationNotFound   = errors.New("medication not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrStockItemNotFound    = errors.New("stock item not found")
	ErrNotificationNotFound = errors.New("notification not found")
)

// MediqueError represents a structured error in the adherence service
type MediqueError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *MediqueError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *MediqueError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(code, message string, details map[string]interface{}) *MediqueError {
	return &MediqueError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(code, message string) *MediqueError {
	return &MediqueError{
		Type:    ErrorTypeNotFound,
		Code:    code,
		Message: message,
	}
}

// NewStorageError creates a new storage error
func NewStorageError(code, message string, cause error) *MediqueError {
	return &MediqueError{
		Type:    ErrorTypeStorage,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(code, message string, cause error) *MediqueError {
	return &MediqueError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common error codes
const (
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeConflict       = "CONFLICT"
	ErrCodeInternalError  = "INTERNAL_ERROR"
	ErrCodeStorageFailure = "STORAGE_FAILURE"
)
