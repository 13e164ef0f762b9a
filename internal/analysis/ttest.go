package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"btcsentiment/internal/dataset"
)

// PnLTTestKey names the Fear vs Greed PnL comparison in TestResults
const PnLTTestKey = "pnl_ttest"

// Classes compared by the PnL t-test. Matching is exact.
const (
	FearClass  = "Fear"
	GreedClass = "Greed"
)

// TTestResult is the outcome of a two-sample Student's t-test
type TTestResult struct {
	TStatistic  float64
	PValue      float64
	Significant bool
	DF          int

	FearN     int
	GreedN    int
	FearMean  float64
	GreedMean float64
}

// TestResults maps a test name to its result. Absent keys mean the test
// could not be run.
type TestResults map[string]TTestResult

// Keys returns the test names in sorted order
func (r TestResults) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Table renders one row per test
func (r TestResults) Table() (*dataset.Table, error) {
	keys := r.Keys()
	n := len(keys)
	tstat := make([]float64, n)
	pval := make([]float64, n)
	sig := make([]bool, n)
	df := make([]float64, n)
	for i, k := range keys {
		res := r[k]
		tstat[i] = res.TStatistic
		pval[i] = res.PValue
		sig[i] = res.Significant
		df[i] = float64(res.DF)
	}
	return dataset.New(
		dataset.NewStringColumn("test", keys, nil),
		dataset.NewFloatColumn("t_statistic", tstat, nil),
		dataset.NewFloatColumn("p_value", pval, nil),
		dataset.NewBoolColumn("significant", sig, nil),
		dataset.NewFloatColumn("df", df, nil),
	)
}

// StatisticalTests compares closedPnL between Fear and Greed rows with a
// pooled-variance two-sample t-test. Missing columns, groups smaller than
// two, or a failed test leave the result set without the entry.
func (a *Analyzer) StatisticalTests(ctx context.Context, table *dataset.Table) TestResults {
	results := TestResults{}

	classes, okClass := table.Column(ColClassification)
	pnl, okPnL := table.Column(ColClosedPnL)
	if !okClass || !okPnL || !pnl.IsNumeric() {
		a.logger.InfoContext(ctx, "Statistical tests skipped, Classification or closedPnL unavailable")
		return results
	}

	var fear, greed []float64
	for i := 0; i < table.Len(); i++ {
		if classes.IsNull(i) || pnl.IsNull(i) {
			continue
		}
		switch classes.Format(i) {
		case FearClass:
			fear = append(fear, pnl.Float(i))
		case GreedClass:
			greed = append(greed, pnl.Float(i))
		}
	}

	if len(fear) < 2 || len(greed) < 2 {
		a.logger.InfoContext(ctx, "Statistical tests skipped, not enough observations",
			slog.Int("fear", len(fear)),
			slog.Int("greed", len(greed)))
		return results
	}

	res, err := studentTTest(fear, greed, a.opts.Alpha)
	if err != nil {
		a.logger.WarnContext(ctx, "Statistical test failed",
			slog.String("test", PnLTTestKey),
			slog.String("error", err.Error()))
		return results
	}

	results[PnLTTestKey] = res
	a.logger.InfoContext(ctx, "Statistical test completed",
		slog.String("test", PnLTTestKey),
		slog.Float64("t_statistic", res.TStatistic),
		slog.Float64("p_value", res.PValue),
		slog.Bool("significant", res.Significant))
	return results
}

// studentTTest runs a two-sided two-sample t-test assuming equal variances
func studentTTest(x, y []float64, alpha float64) (TTestResult, error) {
	n1, n2 := float64(len(x)), float64(len(y))
	m1, v1 := stat.MeanVariance(x, nil)
	m2, v2 := stat.MeanVariance(y, nil)

	df := n1 + n2 - 2
	pooled := ((n1-1)*v1 + (n2-1)*v2) / df
	if pooled == 0 || math.IsNaN(pooled) {
		return TTestResult{}, fmt.Errorf("pooled variance is zero, the t statistic is undefined")
	}

	t := (m1 - m2) / math.Sqrt(pooled*(1/n1+1/n2))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.Survival(math.Abs(t))

	return TTestResult{
		TStatistic:  t,
		PValue:      p,
		Significant: p < alpha,
		DF:          int(df),
		FearN:       len(x),
		GreedN:      len(y),
		FearMean:    m1,
		GreedMean:   m2,
	}, nil
}
