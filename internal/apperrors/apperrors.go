package apperrors

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Category classifies errors for HTTP translation
type Category int

const (
	// CategoryValidation - client supplied a missing or invalid field.
	// Always surfaced as 4xx, never retried.
	CategoryValidation Category = iota

	// CategoryGeneration - the upstream completion service returned empty
	// or unparsable content. Surfaced as 5xx, no retry, no fallback.
	CategoryGeneration

	// CategoryDependency - datastore or upstream network failure.
	CategoryDependency
)

// String returns a human-readable category name
func (c Category) String() string {
	switch c {
	case CategoryValidation:
		return "validation"
	case CategoryGeneration:
		return "generation"
	case CategoryDependency:
		return "dependency"
	default:
		return "unknown"
	}
}

// Error wraps an error with its category for the handler boundary
type Error struct {
	Category Category
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Validation creates a client-input error (HTTP 400)
func Validation(format string, args ...interface{}) *Error {
	return &Error{Category: CategoryValidation, Message: fmt.Sprintf(format, args...)}
}

// Generation creates an upstream-content error (HTTP 500)
func Generation(message string, cause error) *Error {
	return &Error{Category: CategoryGeneration, Message: message, Cause: cause}
}

// Dependency creates a datastore/network error (HTTP 500)
func Dependency(message string, cause error) *Error {
	return &Error{Category: CategoryDependency, Message: message, Cause: cause}
}

// CategoryOf extracts the category from an error chain.
// Unclassified errors are treated as dependency failures.
func CategoryOf(err error) Category {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Category
	}
	return CategoryDependency
}

// IsValidation reports whether err is a client-input error
func IsValidation(err error) bool {
	return CategoryOf(err) == CategoryValidation
}

// HTTPStatus maps an error to its response status code
func HTTPStatus(err error) int {
	if IsValidation(err) {
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

// ClientMessage returns the message safe to surface to the client.
// Validation errors carry their own message; everything else gets the
// supplied generic one so no upstream detail leaks.
func ClientMessage(err error, generic string) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Category == CategoryValidation {
		return appErr.Message
	}
	return generic
}
