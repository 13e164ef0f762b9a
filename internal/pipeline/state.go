package pipeline

import (
	"time"

	"btcsentiment/internal/analysis"
	"btcsentiment/internal/dataset"
	"btcsentiment/internal/preprocess"
)

// RunStatus is the overall status of a run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// StepStatus is the status of one step
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepState is the runtime state of one step
type StepState struct {
	ID        string
	Name      string
	Status    StepStatus
	StartTime *time.Time
	EndTime   *time.Time
	Message   string
	Error     error
}

// NewStepState creates a pending step state
func NewStepState(id, name string) *StepState {
	return &StepState{ID: id, Name: name, Status: StepStatusPending}
}

// Start marks the step active
func (s *StepState) Start() {
	now := time.Now()
	s.StartTime = &now
	s.Status = StepStatusActive
}

// Complete marks the step completed
func (s *StepState) Complete() {
	s.finish(StepStatusCompleted, nil)
}

// Fail marks the step failed with err
func (s *StepState) Fail(err error) {
	s.finish(StepStatusFailed, err)
}

// Skip marks an optional step that could not produce its result
func (s *StepState) Skip(err error) {
	s.finish(StepStatusSkipped, err)
}

func (s *StepState) finish(status StepStatus, err error) {
	now := time.Now()
	s.EndTime = &now
	s.Status = status
	s.Error = err
	if err != nil {
		s.Message = err.Error()
	}
}

// Duration returns how long the step ran, zero if it never started
func (s *StepState) Duration() time.Duration {
	if s.StartTime == nil {
		return 0
	}
	if s.EndTime == nil {
		return time.Since(*s.StartTime)
	}
	return s.EndTime.Sub(*s.StartTime)
}

// State carries the step results through a run. Steps read earlier
// results from it and store their own.
type State struct {
	RunID     string
	Status    RunStatus
	StartTime time.Time
	EndTime   *time.Time
	Steps     []*StepState
	Error     error

	RawTrades    *dataset.Table
	RawSentiment *dataset.Table
	Merged       *dataset.Table
	MergeStats   preprocess.MergeStats
	Metrics      *analysis.TraderMetrics
	Performance  *analysis.SentimentPerformance
	Correlation  *analysis.CorrelationMatrix
	Tests        analysis.TestResults

	// Outputs lists the files written, in write order
	Outputs []string
}

// NewState creates a pending run state
func NewState(runID string) *State {
	return &State{
		RunID:       runID,
		Status:      RunStatusPending,
		StartTime:   time.Now(),
		Performance: &analysis.SentimentPerformance{},
		Correlation: &analysis.CorrelationMatrix{},
		Tests:       analysis.TestResults{},
	}
}

func (s *State) start() {
	s.Status = RunStatusRunning
	s.StartTime = time.Now()
}

func (s *State) complete() {
	now := time.Now()
	s.EndTime = &now
	s.Status = RunStatusCompleted
}

func (s *State) fail(err error) {
	now := time.Now()
	s.EndTime = &now
	s.Status = RunStatusFailed
	s.Error = err
}

// Duration returns the run duration so far
func (s *State) Duration() time.Duration {
	if s.EndTime != nil {
		return s.EndTime.Sub(s.StartTime)
	}
	return time.Since(s.StartTime)
}

// Step returns the state of the step with the given ID
func (s *State) Step(id string) *StepState {
	for _, st := range s.Steps {
		if st.ID == id {
			return st
		}
	}
	return nil
}

// Skipped returns the optional steps that did not produce a result
func (s *State) Skipped() []*StepState {
	var out []*StepState
	for _, st := range s.Steps {
		if st.Status == StepStatusSkipped {
			out = append(out, st)
		}
	}
	return out
}
