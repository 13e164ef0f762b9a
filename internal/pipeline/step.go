package pipeline

import "context"

// Step identifiers, in execution order
const (
	StepIDLoad        = "load"
	StepIDMerge       = "merge"
	StepIDMetrics     = "trader_metrics"
	StepIDSentiment   = "sentiment_performance"
	StepIDCorrelation = "correlation"
	StepIDTests       = "statistical_tests"
	StepIDCluster     = "clustering"
	StepIDExport      = "export"
	StepIDReport      = "report"
)

// Step is one stage of the analysis run
type Step interface {
	// ID returns the unique identifier of the step
	ID() string
	// Name returns the human-readable name
	Name() string
	// Fatal reports whether a failure aborts the run. A non-fatal step
	// that fails is marked skipped and the run continues.
	Fatal() bool
	// Execute runs the step against the shared state
	Execute(ctx context.Context, state *State) error
}

// funcStep adapts a function to Step
type funcStep struct {
	id    string
	name  string
	fatal bool
	fn    func(ctx context.Context, state *State) error
}

// NewStep creates a step from a function
func NewStep(id, name string, fatal bool, fn func(ctx context.Context, state *State) error) Step {
	return &funcStep{id: id, name: name, fatal: fatal, fn: fn}
}

func (s *funcStep) ID() string   { return s.id }
func (s *funcStep) Name() string { return s.name }
func (s *funcStep) Fatal() bool  { return s.fatal }

func (s *funcStep) Execute(ctx context.Context, state *State) error {
	return s.fn(ctx, state)
}
