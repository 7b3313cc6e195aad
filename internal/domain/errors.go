package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports input that violates a domain rule. It is always
// surfaced to the caller with the offending value, never silently corrected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NewValidationError builds a ValidationError with a formatted reason
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an unknown entity id
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// NewNotFoundError builds a NotFoundError for the given entity and id
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError reports an operation that would violate a portfolio
// invariant (last asset, active strategy, duplicate name). The operation is
// aborted with no partial mutation.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

// NewConflictError builds a ConflictError with a formatted reason
func NewConflictError(format string, args ...any) *ConflictError {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

// ExternalSourceError reports a failed price or ticker lookup. Callers
// recover locally: the affected item is marked with an error status and the
// overall operation still succeeds for unaffected items.
type ExternalSourceError struct {
	Source string
	Err    error
}

func (e *ExternalSourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *ExternalSourceError) Unwrap() error {
	return e.Err
}

// NewExternalSourceError wraps a provider failure with its source name
func NewExternalSourceError(source string, err error) *ExternalSourceError {
	return &ExternalSourceError{Source: source, Err: err}
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsConflict reports whether err is a ConflictError
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsExternalSource reports whether err is an ExternalSourceError
func IsExternalSource(err error) bool {
	var target *ExternalSourceError
	return errors.As(err, &target)
}
