package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestOTelDisabled(t *testing.T) {
	providers, err := InitializeOTel(OTelConfig{}, quietLogger())
	require.NoError(t, err)

	assert.Nil(t, providers.TracerProvider)
	assert.Nil(t, providers.MeterProvider)
	assert.Nil(t, providers.Registry)
	require.NotNil(t, providers.Tracer)
	require.NotNil(t, providers.Meter)

	// no-op instruments must still be usable
	metrics, err := CreatePipelineMetrics(providers.Meter)
	require.NoError(t, err)
	metrics.RecordStep(context.Background(), "load", "completed", time.Second)

	ctx, span := providers.Tracer.Start(context.Background(), "noop")
	span.End()
	assert.Empty(t, TraceIDFromContext(ctx))

	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestOTelTraceFile(t *testing.T) {
	traceFile := filepath.Join(t.TempDir(), "out", "trace.json")
	providers, err := InitializeOTel(OTelConfig{
		RunID:         "run-1",
		EnableTracing: true,
		TraceFile:     traceFile,
		SampleRatio:   1.0,
	}, quietLogger())
	require.NoError(t, err)
	require.NotNil(t, providers.TracerProvider)

	ctx, span := providers.Tracer.Start(context.Background(), "pipeline.step.load")
	SetSpanAttributes(ctx, map[string]interface{}{
		"rows":    10,
		"dataset": "trades",
		"ratio":   0.5,
		"ok":      true,
		"other":   time.Second,
	})
	RecordError(ctx, errors.New("boom"))
	assert.NotEmpty(t, TraceIDFromContext(ctx))
	span.End()

	require.NoError(t, providers.Shutdown(context.Background()))

	content, err := os.ReadFile(traceFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "pipeline.step.load")
	assert.Contains(t, string(content), "boom")
	assert.Contains(t, string(content), "run-1")
}

func TestOTelMetricsTextfile(t *testing.T) {
	metricsFile := filepath.Join(t.TempDir(), "run_metrics.prom")
	providers, err := InitializeOTel(OTelConfig{
		EnableMetrics: true,
		MetricsFile:   metricsFile,
	}, quietLogger())
	require.NoError(t, err)
	require.NotNil(t, providers.Registry)

	metrics, err := CreatePipelineMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordStep(ctx, "load", "completed", 150*time.Millisecond)
	metrics.RecordRows(ctx, "trades", 42)
	metrics.RecordMerge(ctx, 40, 2)
	metrics.RecordTraders(ctx, 5)
	metrics.RecordDegraded(ctx, "cluster")
	metrics.RecordRun(ctx, time.Second, true)

	require.NoError(t, providers.Shutdown(ctx))

	content, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "pipeline_steps_total")
	assert.Contains(t, text, "pipeline_step_duration_seconds")
	assert.Contains(t, text, `step_id="load"`)
	assert.NotContains(t, text, `"step.id"`, "metric labels use legacy names")
	assert.Contains(t, text, "dataset_rows_total")
	assert.Contains(t, text, `dataset="trades"`)
	assert.Contains(t, text, "merge_rows_total")
	assert.Contains(t, text, "traders_analyzed_total")
	assert.Contains(t, text, `analysis="cluster"`)
}

func TestPipelineMetrics_NilSafe(t *testing.T) {
	var m *PipelineMetrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordStep(ctx, "x", "failed", time.Millisecond)
		m.RecordRows(ctx, "x", 1)
		m.RecordMerge(ctx, 1, 1)
		m.RecordTraders(ctx, 1)
		m.RecordDegraded(ctx, "x")
		m.RecordRun(ctx, time.Millisecond, false)
	})
}
