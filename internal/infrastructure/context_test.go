package infrastructure

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureRunID(t *testing.T) {
	ctx := EnsureRunID(context.Background())
	runID := GetRunID(ctx)
	require.NotEmpty(t, runID)
	_, err := uuid.Parse(runID)
	assert.NoError(t, err)

	// an existing run ID is kept
	assert.Equal(t, runID, GetRunID(EnsureRunID(ctx)))
	assert.NotEqual(t, GenerateRunID(), GenerateRunID())
}

func TestLoggerWithContext(t *testing.T) {
	assert.NotNil(t, LoggerWithContext(context.Background()))
	assert.NotNil(t, LoggerWithContext(WithRunID(context.Background(), "abc")))
}
