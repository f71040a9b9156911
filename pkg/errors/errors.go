package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates missing or empty required input
	ErrValidation = errors.New("validation failed")

	// ErrNotTrained indicates a model was used before fit or load
	ErrNotTrained = errors.New("model not trained")

	// ErrNotFound indicates a persisted artifact is missing
	ErrNotFound = errors.New("artifact not found")

	// ErrCorruptData indicates a persisted artifact is unreadable or mismatched
	ErrCorruptData = errors.New("corrupt data")

	// ErrNumericParse indicates a non-numeric age or duration
	ErrNumericParse = errors.New("numeric parse error")

	// ErrUpstream indicates the explanation provider failed
	ErrUpstream = errors.New("upstream error")

	// ErrIO indicates a write to durable storage failed
	ErrIO = errors.New("io error")
)

// ValidationError represents a validation error with field-specific details
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
