package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"btcsentiment/internal/exporter"
	"btcsentiment/internal/infrastructure"
	"btcsentiment/internal/report"
)

// Reasons an optional step keeps its default result
var (
	ErrNoCorrelation = errors.New("not enough numeric columns for a correlation matrix")
	ErrNoTests       = errors.New("statistical tests could not be run")
)

// defaultSteps returns the analysis steps in execution order. Loading,
// merging, trader metrics and export are fatal; the rest degrade to an
// empty result.
func (r *Runner) defaultSteps() []Step {
	return []Step{
		NewStep(StepIDLoad, "Data Loading", true, r.load),
		NewStep(StepIDMerge, "Preprocessing and Merge", true, r.merge),
		NewStep(StepIDMetrics, "Trader Metrics", true, r.traderMetrics),
		NewStep(StepIDSentiment, "Sentiment Performance", false, r.sentimentPerformance),
		NewStep(StepIDCorrelation, "Correlation Analysis", false, r.correlation),
		NewStep(StepIDTests, "Statistical Tests", false, r.statisticalTests),
		NewStep(StepIDCluster, "Trader Clustering", false, r.cluster),
		NewStep(StepIDExport, "Export", true, r.export),
		NewStep(StepIDReport, "Summary Report", false, r.writeReport),
	}
}

func (r *Runner) load(ctx context.Context, state *State) error {
	trades, sentiment, err := r.loader.LoadAll(ctx)
	if err != nil {
		return err
	}
	state.RawTrades, state.RawSentiment = trades, sentiment
	r.metrics.RecordRows(ctx, "trades", trades.Len())
	r.metrics.RecordRows(ctx, "sentiment", sentiment.Len())
	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"trades.rows":    trades.Len(),
		"sentiment.rows": sentiment.Len(),
	})
	return nil
}

func (r *Runner) merge(ctx context.Context, state *State) error {
	merged, stats, err := r.prep.Merge(ctx, state.RawTrades, state.RawSentiment)
	state.MergeStats = stats
	if err != nil {
		return err
	}
	state.Merged = merged
	r.metrics.RecordMerge(ctx, stats.Matched, stats.Unmatched)
	r.metrics.RecordRows(ctx, "merged", merged.Len())
	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"merge.matched":   stats.Matched,
		"merge.unmatched": stats.Unmatched,
	})
	return nil
}

func (r *Runner) traderMetrics(ctx context.Context, state *State) error {
	metrics, err := r.analyzer.TraderMetrics(ctx, state.Merged)
	if err != nil {
		return err
	}
	state.Metrics = metrics
	r.metrics.RecordTraders(ctx, metrics.Len())
	return nil
}

func (r *Runner) sentimentPerformance(ctx context.Context, state *State) error {
	perf, err := r.analyzer.SentimentPerformance(ctx, state.Merged)
	if err != nil {
		return err
	}
	state.Performance = perf
	return nil
}

func (r *Runner) correlation(ctx context.Context, state *State) error {
	state.Correlation = r.analyzer.Correlation(ctx, state.Merged)
	if state.Correlation.Empty() {
		return ErrNoCorrelation
	}
	return nil
}

func (r *Runner) statisticalTests(ctx context.Context, state *State) error {
	state.Tests = r.analyzer.StatisticalTests(ctx, state.Merged)
	if len(state.Tests) == 0 {
		return ErrNoTests
	}
	return nil
}

func (r *Runner) cluster(ctx context.Context, state *State) error {
	clustered, err := r.analyzer.Cluster(ctx, state.Metrics, r.cfg.Analysis.Clusters)
	if err != nil {
		return err
	}
	state.Metrics = clustered
	if clustered.ClusterDegraded {
		r.metrics.RecordDegraded(ctx, StepIDCluster)
	}
	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"cluster.k":        r.cfg.Analysis.Clusters,
		"cluster.degraded": clustered.ClusterDegraded,
	})
	return nil
}

// export writes every result table. Empty results still produce a file so
// a re-run replaces stale output.
func (r *Runner) export(ctx context.Context, state *State) error {
	if err := r.validator.ValidateOutputDirectory(r.cfg.Output.Dir); err != nil {
		return err
	}

	metricsTable, err := state.Metrics.Table()
	if err != nil {
		return err
	}
	perfTable, err := state.Performance.Table()
	if err != nil {
		return err
	}
	corrTable, err := state.Correlation.Table()
	if err != nil {
		return err
	}

	files := []struct {
		path  string
		sheet exporter.Sheet
	}{
		{r.cfg.MergedPath(), exporter.Sheet{Name: "merged_data", Table: state.Merged}},
		{r.cfg.MetricsPath(), exporter.Sheet{Name: "trader_metrics", Table: metricsTable}},
		{r.cfg.SentimentPath(), exporter.Sheet{Name: "sentiment_performance", Table: perfTable}},
		{r.cfg.CorrelationPath(), exporter.Sheet{Name: "correlation_matrix", Table: corrTable}},
	}

	sheets := make([]exporter.Sheet, 0, len(files)+1)
	for _, f := range files {
		if err := r.csv.WriteTable(f.path, f.sheet.Table); err != nil {
			return err
		}
		state.Outputs = append(state.Outputs, f.path)
		sheets = append(sheets, f.sheet)
	}

	if r.cfg.Output.Workbook {
		testsTable, err := state.Tests.Table()
		if err != nil {
			return err
		}
		sheets = append(sheets, exporter.Sheet{Name: "statistical_tests", Table: testsTable})
		path := r.cfg.WorkbookPath()
		if err := r.workbook.Write(path, sheets); err != nil {
			return err
		}
		state.Outputs = append(state.Outputs, path)
	}

	r.logger.InfoContext(ctx, "Results exported",
		slog.Int("files", len(state.Outputs)),
		slog.String("directory", r.cfg.Output.Dir))
	return nil
}

func (r *Runner) writeReport(ctx context.Context, state *State) error {
	path := r.cfg.ReportPath()
	err := r.report.WriteFile(path, report.Input{
		Merged:      state.Merged,
		Stats:       state.MergeStats,
		Metrics:     state.Metrics,
		Sentiment:   state.Performance,
		Correlation: state.Correlation,
		Tests:       state.Tests,
	})
	if err != nil {
		return err
	}
	state.Outputs = append(state.Outputs, path)
	return nil
}
