// FilePath: internal/errors/errors.go
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Error types
	ErrorTypeValidation       ErrorType = "validation"
	ErrorTypeDatabase         ErrorType = "database"
	ErrorTypeStorage          ErrorType = "storage"
	ErrorTypeAuth             ErrorType = "authentication"
	ErrorTypeNotFound         ErrorType = "not_found"
	ErrorTypeConflict         ErrorType = "conflict"
	ErrorTypeMethodNotAllowed ErrorType = "method_not_allowed"
	ErrorTypeTooLarge         ErrorType = "payload_too_large"
	ErrorTypeInternal         ErrorType = "internal"
)

// APIError represents a structured API error
type APIError struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Code      int       `json:"code"`
	RequestID string    `json:"request_id,omitempty"`
	Details   any       `json:"details,omitempty"`
	err       error     // Internal error for logging
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the internal error to errors.Is / errors.As
func (e *APIError) Unwrap() error {
	return e.err
}

// WithRequestID adds a request ID to the error
func (e *APIError) WithRequestID(id string) *APIError {
	e.RequestID = id
	return e
}

// WithDetails adds additional details to the error
func (e *APIError) WithDetails(details any) *APIError {
	e.Details = details
	return e
}

func newError(t ErrorType, code int, msg string, err error) *APIError {
	return &APIError{Type: t, Message: msg, Code: code, err: err}
}

// NewValidationError creates a new validation error
func NewValidationError(msg string, err error) *APIError {
	return newError(ErrorTypeValidation, http.StatusBadRequest, msg, err)
}

// NewDatabaseError creates a new database error
func NewDatabaseError(msg string, err error) *APIError {
	return newError(ErrorTypeDatabase, http.StatusInternalServerError, msg, err)
}

// NewStorageError creates a new blob storage error
func NewStorageError(msg string, err error) *APIError {
	return newError(ErrorTypeStorage, http.StatusInternalServerError, msg, err)
}

// NewAuthError creates a new authentication error
func NewAuthError(msg string, err error) *APIError {
	return newError(ErrorTypeAuth, http.StatusUnauthorized, msg, err)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(msg string, err error) *APIError {
	return newError(ErrorTypeNotFound, http.StatusNotFound, msg, err)
}

// NewConflictError creates a new conflict error
func NewConflictError(msg string, err error) *APIError {
	return newError(ErrorTypeConflict, http.StatusConflict, msg, err)
}

// NewMethodNotAllowedError creates a new wrong-verb error
func NewMethodNotAllowedError(msg string) *APIError {
	return newError(ErrorTypeMethodNotAllowed, http.StatusMethodNotAllowed, msg, nil)
}

// NewPayloadTooLargeError creates a new oversized-body error
func NewPayloadTooLargeError(msg string, err error) *APIError {
	return newError(ErrorTypeTooLarge, http.StatusRequestEntityTooLarge, msg, err)
}

// NewInternalError creates a new internal server error
func NewInternalError(msg string, err error) *APIError {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, msg, err)
}

// As returns the outermost APIError in err's chain.
func As(err error) (*APIError, bool) {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Is reports whether any APIError in err's chain has the given type.
func Is(err error, t ErrorType) bool {
	for err != nil {
		var apiErr *APIError
		if !stderrors.As(err, &apiErr) {
			return false
		}
		if apiErr.Type == t {
			return true
		}
		err = apiErr.err
	}
	return false
}

// IsNotFound checks if an error is a NotFound error
func IsNotFound(err error) bool {
	return Is(err, ErrorTypeNotFound)
}

// IsValidation checks if an error is a Validation error
func IsValidation(err error) bool {
	return Is(err, ErrorTypeValidation)
}

// IsAuth checks if an error is an authentication error
func IsAuth(err error) bool {
	return Is(err, ErrorTypeAuth)
}

// IsConflict checks if an error is a Conflict error
func IsConflict(err error) bool {
	return Is(err, ErrorTypeConflict)
}
