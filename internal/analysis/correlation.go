package analysis

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"btcsentiment/internal/dataset"
)

// CorrelationCandidates are the columns considered for the correlation
// matrix, in output order
var CorrelationCandidates = []string{"closedPnL", "size", "size_usd", "sentiment_score", "trade_value", "fee"}

// CorrelationMatrix is a symmetric matrix of Pearson coefficients. NaN
// marks a pair without enough variation or overlapping values.
type CorrelationMatrix struct {
	Columns []string
	Values  [][]float64
}

// Empty reports whether the matrix has no columns
func (m *CorrelationMatrix) Empty() bool {
	return m == nil || len(m.Columns) == 0
}

// At returns the coefficient between two named columns
func (m *CorrelationMatrix) At(a, b string) (float64, bool) {
	i, j := -1, -1
	for k, name := range m.Columns {
		if name == a {
			i = k
		}
		if name == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return math.NaN(), false
	}
	return m.Values[i][j], true
}

// Table renders the matrix with the row labels in an unnamed first column
func (m *CorrelationMatrix) Table() (*dataset.Table, error) {
	if m.Empty() {
		return dataset.Empty(), nil
	}
	cols := []*dataset.Column{dataset.NewStringColumn("", append([]string(nil), m.Columns...), nil)}
	for j, name := range m.Columns {
		values := make([]float64, len(m.Columns))
		for i := range m.Columns {
			values[i] = m.Values[i][j]
		}
		cols = append(cols, dataset.NewFloatColumn(name, values, nil))
	}
	return dataset.New(cols...)
}

// CorrelationPair is one off-diagonal entry of the matrix
type CorrelationPair struct {
	A, B  string
	Value float64
}

// TopPairs returns up to n distinct pairs ordered by absolute coefficient,
// strongest first. Undefined coefficients are skipped.
func (m *CorrelationMatrix) TopPairs(n int) []CorrelationPair {
	if m.Empty() {
		return nil
	}
	var pairs []CorrelationPair
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			if v := m.Values[i][j]; !math.IsNaN(v) {
				pairs = append(pairs, CorrelationPair{A: m.Columns[i], B: m.Columns[j], Value: v})
			}
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].Value) > math.Abs(pairs[j].Value)
	})
	if n >= 0 && len(pairs) > n {
		pairs = pairs[:n]
	}
	return pairs
}

// Correlation computes pairwise Pearson coefficients over the candidate
// columns present as numbers. Each pair uses only the rows where both
// values are present. Fewer than two candidates give an empty matrix.
func (a *Analyzer) Correlation(ctx context.Context, table *dataset.Table) *CorrelationMatrix {
	names := table.Schema().PresentNumeric(CorrelationCandidates...)
	if len(names) < 2 {
		a.logger.InfoContext(ctx, "Not enough numeric columns for correlation analysis",
			slog.Any("available", names))
		return &CorrelationMatrix{}
	}

	cols := make([]*dataset.Column, len(names))
	for i, name := range names {
		cols[i], _ = table.Column(name)
	}

	values := make([][]float64, len(names))
	for i := range values {
		values[i] = make([]float64, len(names))
	}
	for i := range names {
		for j := i; j < len(names); j++ {
			r := pairwiseCorrelation(cols[i], cols[j])
			if i == j && !math.IsNaN(r) {
				r = 1
			}
			values[i][j] = r
			values[j][i] = r
		}
	}

	a.logger.InfoContext(ctx, "Correlation matrix calculated",
		slog.Any("columns", names))
	return &CorrelationMatrix{Columns: names, Values: values}
}

func pairwiseCorrelation(x, y *dataset.Column) float64 {
	xs := make([]float64, 0, x.Len())
	ys := make([]float64, 0, y.Len())
	for r := 0; r < x.Len(); r++ {
		if x.IsNull(r) || y.IsNull(r) {
			continue
		}
		xs = append(xs, x.Float(r))
		ys = append(ys, y.Float(r))
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	if constant(xs) || constant(ys) {
		return math.NaN()
	}
	r := stat.Correlation(xs, ys, nil)
	return math.Max(-1, math.Min(1, r))
}

func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
