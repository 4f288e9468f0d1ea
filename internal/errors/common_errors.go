// Package errors defines the typed application error used by the pipeline
// components. Per-file failures are wrapped in an AppError so that stages can
// log the category next to the filename and keep going.
package errors

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ErrorType classifies an AppError
type ErrorType string

const (
	ErrTypeParsing    ErrorType = "PARSING"    // malformed file content
	ErrTypeStorage    ErrorType = "STORAGE"    // reading or writing a stage file
	ErrTypeValidation ErrorType = "VALIDATION" // data that parses but is unusable
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
	ErrTypeConfig     ErrorType = "CONFIG"
	ErrTypeInversion  ErrorType = "INVERSION" // a DRT backend failed
)

// AppError is a categorized error. Context holds structured details (file,
// line, backend) that LogAttrs turns into log attributes.
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("[%s] %s", e.Type, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches a bare *AppError carrying only a Type, so that
// errors.Is(err, &AppError{Type: ErrTypeParsing}) tests the category
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Message == "" && t.Cause == nil && t.Type == e.Type
}

// WithContext records a detail and returns e for chaining
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates an error of errType
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{Type: errType, Message: message, Cause: cause}
}

// NewParsingError reports a file whose content cannot be parsed
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError reports a failed read or write
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewValidationError reports data that is well formed but unusable
func NewValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError reports a missing file or directory
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, resource+" not found", nil)
}

// NewConfigError reports an unusable setting
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewInversionError reports a DRT backend failure
func NewInversionError(message string, cause error) *AppError {
	return NewAppError(ErrTypeInversion, message, cause)
}

// LogAttrs flattens err for structured logging: the message, then the
// category and context (sorted by key) of the first AppError in its chain.
func LogAttrs(err error) []any {
	attrs := []any{"error", err.Error()}
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return attrs
	}
	attrs = append(attrs, "error_type", string(appErr.Type))
	for _, k := range slices.Sorted(maps.Keys(appErr.Context)) {
		attrs = append(attrs, k, appErr.Context[k])
	}
	return attrs
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or ""
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err's chain holds an AppError of the given type
func IsType(err error, errType ErrorType) bool {
	return TypeOf(err) == errType
}
