package analysis

import (
	"log/slog"
	"math"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// Column names the analyses consume from the merged table
const (
	ColAccount        = "account"
	ColClosedPnL      = "closedPnL"
	ColTradeValue     = "trade_value"
	ColIsProfitable   = "is_profitable"
	ColClassification = "Classification"
)

// Default analysis parameters
const (
	DefaultClusters = 3
	DefaultSeed     = 42
	DefaultRestarts = 10
	DefaultMaxIter  = 300
	DefaultTol      = 1e-4
	DefaultAlpha    = 0.05

	// RoundPlaces is the number of decimals kept in aggregated results
	RoundPlaces = 4
)

// Options tunes the clustering and the statistical test
type Options struct {
	Seed     uint64
	Restarts int
	MaxIter  int
	Tol      float64
	Alpha    float64
}

// DefaultOptions returns the built-in analysis parameters
func DefaultOptions() Options {
	return Options{
		Seed:     DefaultSeed,
		Restarts: DefaultRestarts,
		MaxIter:  DefaultMaxIter,
		Tol:      DefaultTol,
		Alpha:    DefaultAlpha,
	}
}

// Analyzer computes trader and sentiment statistics over a merged table.
// Every analysis reads its input without modifying it.
type Analyzer struct {
	opts   Options
	logger *slog.Logger
}

// NewAnalyzer creates an analyzer. Zero-valued options take their defaults.
func NewAnalyzer(opts Options, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultOptions()
	if opts.Restarts <= 0 {
		opts.Restarts = def.Restarts
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = def.MaxIter
	}
	if opts.Tol <= 0 {
		opts.Tol = def.Tol
	}
	if opts.Alpha <= 0 || opts.Alpha >= 1 {
		opts.Alpha = def.Alpha
	}
	return &Analyzer{
		opts:   opts,
		logger: logger.With(slog.String("component", "analyzer")),
	}
}

// Options returns the effective options
func (a *Analyzer) Options() Options { return a.opts }

// round4 rounds to RoundPlaces decimals, ties to even. NaN and infinities
// pass through.
func round4(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return decimal.NewFromFloat(x).RoundBank(RoundPlaces).InexactFloat64()
}

// summary holds the aggregates of one group of values, nulls excluded
type summary struct {
	count int
	sum   float64
	mean  float64
	// std is the sample (n-1) standard deviation, NaN below two values
	std float64
}

func summarize(values []float64) summary {
	s := summary{count: len(values), mean: math.NaN(), std: math.NaN()}
	if s.count == 0 {
		return s
	}
	for _, v := range values {
		s.sum += v
	}
	s.mean = stat.Mean(values, nil)
	if s.count > 1 {
		s.std = stat.StdDev(values, nil)
	}
	return s
}

// pick returns the non-null values of fn over the given rows
func pick(rows []int, isNull func(int) bool, value func(int) float64) []float64 {
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		if !isNull(r) {
			out = append(out, value(r))
		}
	}
	return out
}
