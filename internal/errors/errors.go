// Package errors provides shared error types for the ask tools and CLI.
package errors

import (
	"errors"
	"fmt"
)

// NotFoundError indicates a named entity does not exist.
type NotFoundError struct {
	EntityType string // "wiki", "column"
	Identifier string // profile name, column label
	Where      string // where the lookup happened, e.g. "config", "query results"
}

func (e *NotFoundError) Error() string {
	if e.Where != "" {
		return fmt.Sprintf("%s not found in %s: %s", e.EntityType, e.Where, e.Identifier)
	}
	return fmt.Sprintf("%s not found: %s", e.EntityType, e.Identifier)
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(entityType, identifier, where string) *NotFoundError {
	return &NotFoundError{
		EntityType: entityType,
		Identifier: identifier,
		Where:      where,
	}
}

// ValidationError indicates invalid input parameters.
type ValidationError struct {
	Field   string // field name that failed validation
	Value   string // the invalid value (may be empty for sensitive data)
	Message string // human-readable error message
}

func (e *ValidationError) Error() string {
	if e.Field != "" && e.Value != "" {
		return fmt.Sprintf("validation failed for %s=%q: %s", e.Field, e.Value, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// IsNotFound returns true if err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsValidation returns true if err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
