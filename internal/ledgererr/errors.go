// Package ledgererr defines the categorized error taxonomy shared by the
// storage, service and API layers.
package ledgererr

import (
	"errors"
	"fmt"
	"net/http"
)

// Category classifies an error for propagation and client mapping.
type Category string

const (
	// CategoryNotFound marks a referenced entity that does not exist.
	CategoryNotFound Category = "not_found"
	// CategoryValidation marks rejected user input.
	CategoryValidation Category = "validation"
	// CategoryConflict marks a uniqueness or concurrent-update conflict.
	CategoryConflict Category = "conflict"
	// CategoryIntegrity marks a violated data invariant, e.g. an unexpected
	// affected-row count. These are programming or data errors, not user errors.
	CategoryIntegrity Category = "integrity"
	// CategoryDatabase marks a failed statement or connection problem.
	CategoryDatabase Category = "database"
	// CategoryTimeout marks an exceeded statement or acquire deadline.
	CategoryTimeout Category = "timeout"
	// CategorySystem marks any other internal failure.
	CategorySystem Category = "system"
)

// Error carries a category, a stable code, a human message and an optional
// cause. Details hold structured context for logging.
type Error struct {
	Category Category
	Code     string
	Message  string
	Details  map[string]interface{}
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewNotFound reports a missing entity, e.g. NewNotFound("account", id).
func NewNotFound(entity, id string) *Error {
	return &Error{
		Category: CategoryNotFound,
		Code:     "NOT_FOUND",
		Message:  fmt.Sprintf("%s not found: %s", entity, id),
		Details:  map[string]interface{}{"entity": entity, "id": id},
	}
}

// NewValidation reports rejected input for a named field.
func NewValidation(field, reason string) *Error {
	return &Error{
		Category: CategoryValidation,
		Code:     "INVALID_INPUT",
		Message:  fmt.Sprintf("invalid %s: %s", field, reason),
		Details:  map[string]interface{}{"field": field, "reason": reason},
	}
}

// NewConflict reports a uniqueness conflict.
func NewConflict(message string) *Error {
	return &Error{
		Category: CategoryConflict,
		Code:     "CONFLICT",
		Message:  message,
	}
}

// NewIntegrity reports a violated data invariant during a write, typically
// an affected-row count other than the expected one.
func NewIntegrity(operation string, expected, got int64) *Error {
	return &Error{
		Category: CategoryIntegrity,
		Code:     "INTEGRITY_VIOLATION",
		Message:  fmt.Sprintf("%s affected %d rows, expected %d", operation, got, expected),
		Details:  map[string]interface{}{"operation": operation, "expected": expected, "got": got},
	}
}

// NewDatabase wraps a failed statement.
func NewDatabase(operation string, cause error) *Error {
	return &Error{
		Category: CategoryDatabase,
		Code:     "DATABASE_ERROR",
		Message:  fmt.Sprintf("database error during %s", operation),
		Details:  map[string]interface{}{"operation": operation},
		Cause:    cause,
	}
}

// NewTimeout wraps an exceeded statement or acquire deadline.
func NewTimeout(operation string, cause error) *Error {
	return &Error{
		Category: CategoryTimeout,
		Code:     "TIMEOUT",
		Message:  fmt.Sprintf("timed out during %s", operation),
		Details:  map[string]interface{}{"operation": operation},
		Cause:    cause,
	}
}

// NewInternal wraps any other internal failure.
func NewInternal(message string, cause error) *Error {
	return &Error{
		Category: CategorySystem,
		Code:     "INTERNAL_ERROR",
		Message:  message,
		Cause:    cause,
	}
}

// CategoryOf extracts the category of err, or CategorySystem for plain errors.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return CategorySystem
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool {
	return CategoryOf(err) == CategoryNotFound
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return CategoryOf(err) == CategoryValidation
}

// UserFacing reports whether the error message may be returned to the client
// verbatim. All other errors are generalized before leaving the server.
func UserFacing(err error) bool {
	switch CategoryOf(err) {
	case CategoryNotFound, CategoryValidation, CategoryConflict:
		return true
	default:
		return false
	}
}

// HTTPStatus maps an error to the HTTP status of the transport envelope.
func HTTPStatus(err error) int {
	switch CategoryOf(err) {
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryConflict:
		return http.StatusConflict
	case CategoryTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
