package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"btcsentiment/internal/analysis"
	"btcsentiment/internal/config"
	"btcsentiment/internal/exporter"
	"btcsentiment/internal/infrastructure"
	"btcsentiment/internal/loader"
	"btcsentiment/internal/preprocess"
	"btcsentiment/internal/report"
)

// Runner executes the analysis steps in order
type Runner struct {
	cfg    *config.Config
	steps  []Step
	tracer trace.Tracer
	// metrics is nil when run metrics are disabled
	metrics *infrastructure.PipelineMetrics
	logger  *slog.Logger

	loader    *loader.Loader
	prep      *preprocess.Preprocessor
	analyzer  *analysis.Analyzer
	validator *loader.FileValidator
	csv       *exporter.CSVWriter
	workbook  *exporter.WorkbookWriter
	report    *report.Generator
}

// Option configures a Runner
type Option func(*Runner)

// WithLogger sets the logger; the default is slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithTracer sets the tracer used for run and step spans
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Runner) { r.tracer = tracer }
}

// WithMetrics sets the run metric instruments
func WithMetrics(m *infrastructure.PipelineMetrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithSteps replaces the default step list
func WithSteps(steps ...Step) Option {
	return func(r *Runner) { r.steps = steps }
}

// NewRunner creates a runner for cfg with the default steps
func NewRunner(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		tracer: tracenoop.NewTracerProvider().Tracer(infrastructure.MeterName),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}

	r.loader = loader.NewLoader(cfg.Input.TradesPath, cfg.Input.SentimentPath, r.logger)
	r.prep = preprocess.New(r.logger)
	r.analyzer = analysis.NewAnalyzer(analysis.Options{
		Seed:     cfg.Analysis.Seed,
		Restarts: cfg.Analysis.Restarts,
		Alpha:    cfg.Analysis.Alpha,
	}, r.logger)
	r.validator = loader.NewFileValidator(r.logger)
	r.csv = exporter.NewCSVWriter(cfg.Output.BOMPrefix, r.logger)
	r.workbook = exporter.NewWorkbookWriter(r.logger)
	r.report = report.NewGenerator(r.logger)

	if r.steps == nil {
		r.steps = r.defaultSteps()
	}
	r.logger = r.logger.With(slog.String("component", "pipeline"))
	return r
}

// Steps returns the configured steps in execution order
func (r *Runner) Steps() []Step {
	return append([]Step(nil), r.steps...)
}

// Run executes every step in order. A fatal step failure stops the run and
// is returned; the state is returned in every case.
func (r *Runner) Run(ctx context.Context) (*State, error) {
	ctx = infrastructure.EnsureRunID(ctx)
	state := NewState(infrastructure.GetRunID(ctx))
	for _, step := range r.steps {
		state.Steps = append(state.Steps, NewStepState(step.ID(), step.Name()))
	}

	ctx, span := r.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", state.RunID),
			attribute.Int("run.steps", len(r.steps)),
		),
	)
	defer span.End()

	state.start()
	r.logger.InfoContext(ctx, "Analysis run started",
		slog.String("run_id", state.RunID),
		slog.Int("steps", len(r.steps)))

	for i, step := range r.steps {
		if err := r.executeStep(ctx, state, step, state.Steps[i]); err != nil {
			state.fail(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			r.metrics.RecordRun(ctx, state.Duration(), false)
			r.logger.ErrorContext(ctx, "Analysis run failed",
				slog.String("step", step.ID()),
				slog.String("error", err.Error()),
				slog.Duration("duration", state.Duration()))
			return state, err
		}
	}

	state.complete()
	span.SetStatus(codes.Ok, "")
	r.metrics.RecordRun(ctx, state.Duration(), true)
	r.logger.InfoContext(ctx, "Analysis run completed",
		slog.Duration("duration", state.Duration()),
		slog.Int("skipped_steps", len(state.Skipped())),
		slog.Any("outputs", state.Outputs))
	return state, nil
}

// executeStep runs one step. Only a fatal step failure is returned.
func (r *Runner) executeStep(ctx context.Context, state *State, step Step, st *StepState) error {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("pipeline.step.%s", step.ID()),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", state.RunID),
			attribute.String("step.id", step.ID()),
			attribute.Bool("step.fatal", step.Fatal()),
		),
	)
	defer span.End()

	log := r.logger.With(slog.String("step", step.ID()))
	log.InfoContext(ctx, "Step started", slog.String("name", step.Name()))
	st.Start()

	err := step.Execute(ctx, state)
	switch {
	case err == nil:
		st.Complete()
		span.SetStatus(codes.Ok, "")
		log.InfoContext(ctx, "Step completed", slog.Duration("duration", st.Duration()))
	case step.Fatal():
		st.Fail(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.ErrorContext(ctx, "Step failed", slog.String("error", err.Error()))
	default:
		st.Skip(err)
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("step.skipped", true))
		r.metrics.RecordDegraded(ctx, step.ID())
		log.WarnContext(ctx, "Step skipped, continuing with a default result",
			slog.String("error", err.Error()))
	}
	r.metrics.RecordStep(ctx, step.ID(), string(st.Status), st.Duration())

	if st.Status == StepStatusFailed {
		return fmt.Errorf("step %s failed: %w", step.ID(), err)
	}
	return nil
}
