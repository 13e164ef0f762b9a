package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorType_Constants(t *testing.T) {
	tests := []struct {
		name     string
		errType  ErrorType
		expected string
	}{
		{"load", ErrTypeLoad, "LOAD"},
		{"date parse", ErrTypeDateParse, "DATE_PARSE"},
		{"no overlap", ErrTypeNoOverlap, "NO_OVERLAP"},
		{"missing column", ErrTypeMissingColumn, "MISSING_COLUMN"},
		{"no metrics", ErrTypeNoMetrics, "NO_METRICS"},
		{"invalid input", ErrTypeInvalidInput, "INVALID_INPUT"},
		{"config", ErrTypeConfig, "CONFIG"},
		{"export", ErrTypeExport, "EXPORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.errType))
		})
	}
}

func TestAppError_Error(t *testing.T) {
	t.Run("with cause", func(t *testing.T) {
		err := NewLoadError("trades.csv", errors.New("no such file"))
		assert.Equal(t, "[LOAD] failed to load trades.csv: no such file", err.Error())
		assert.Equal(t, "trades.csv", err.Context["path"])
	})

	t.Run("without cause", func(t *testing.T) {
		err := NewMissingColumnError("Classification", "sentiment analysis")
		assert.Equal(t, "[MISSING_COLUMN] Classification column not found for sentiment analysis", err.Error())
	})
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("bad value")
	err := NewDateParseError("timestamp_ist", "31/31/2024", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), `"31/31/2024"`)
}

func TestIsType(t *testing.T) {
	wrapped := fmt.Errorf("merge datasets: %w", NewNoOverlapError(10))

	assert.True(t, IsType(wrapped, ErrTypeNoOverlap))
	assert.False(t, IsType(wrapped, ErrTypeLoad))
	assert.False(t, IsType(errors.New("plain"), ErrTypeNoOverlap))
	assert.False(t, IsType(nil, ErrTypeNoOverlap))
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, ErrTypeNoMetrics, TypeOf(fmt.Errorf("x: %w", NewNoMetricsError("trader metrics"))))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
}

func TestWithContext_NilMap(t *testing.T) {
	err := &AppError{Type: ErrTypeInvalidInput, Message: "bad"}
	got := err.WithContext("rows", 0)

	require.NotNil(t, got.Context)
	assert.Equal(t, 0, got.Context["rows"])
}
