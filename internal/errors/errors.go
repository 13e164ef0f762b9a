// Package errors defines the typed application errors raised by the analysis
// pipeline. Structural failures (load, parse, join) abort a run; analysis
// failures are caught by the pipeline runner and degrade to empty results.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeLoad          ErrorType = "LOAD"
	ErrTypeDateParse     ErrorType = "DATE_PARSE"
	ErrTypeNoOverlap     ErrorType = "NO_OVERLAP"
	ErrTypeMissingColumn ErrorType = "MISSING_COLUMN"
	ErrTypeNoMetrics     ErrorType = "NO_METRICS"
	ErrTypeInvalidInput  ErrorType = "INVALID_INPUT"
	ErrTypeConfig        ErrorType = "CONFIG"
	ErrTypeExport        ErrorType = "EXPORT"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewLoadError creates an error for a missing or unreadable input file
func NewLoadError(path string, cause error) *AppError {
	return NewAppError(ErrTypeLoad, fmt.Sprintf("failed to load %s", path), cause).
		WithContext("path", path)
}

// NewDateParseError creates an error for a timestamp that does not match
// the expected format
func NewDateParseError(column, value string, cause error) *AppError {
	return NewAppError(ErrTypeDateParse,
		fmt.Sprintf("failed to parse %s value %q, check the date format in the raw data", column, value), cause).
		WithContext("column", column)
}

// NewNoOverlapError creates an error for a join that matched no dates
func NewNoOverlapError(tradeRows int) *AppError {
	return NewAppError(ErrTypeNoOverlap, "no dates matched between trade and sentiment data", nil).
		WithContext("trade_rows", tradeRows)
}

// NewMissingColumnError creates an error for a required column that is absent
func NewMissingColumnError(column, purpose string) *AppError {
	return NewAppError(ErrTypeMissingColumn,
		fmt.Sprintf("%s column not found for %s", column, purpose), nil).
		WithContext("column", column)
}

// NewNoMetricsError creates an error for an aggregation with no candidate
// columns present
func NewNoMetricsError(purpose string) *AppError {
	return NewAppError(ErrTypeNoMetrics, fmt.Sprintf("no valid columns found for %s", purpose), nil)
}

// NewInvalidInputError creates an error for a malformed table
func NewInvalidInputError(message string) *AppError {
	return NewAppError(ErrTypeInvalidInput, message, nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewExportError creates an error for a failed output write
func NewExportError(path string, cause error) *AppError {
	return NewAppError(ErrTypeExport, fmt.Sprintf("failed to write %s", path), cause).
		WithContext("path", path)
}

// IsType reports whether err wraps an AppError of the given type
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or ""
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}
