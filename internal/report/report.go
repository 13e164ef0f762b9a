package report

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"btcsentiment/internal/analysis"
	"btcsentiment/internal/dataset"
	apperrors "btcsentiment/internal/errors"
	"btcsentiment/internal/preprocess"
)

// TopTraders is the number of traders listed in the performance section
const TopTraders = 5

// Input collects the results a report is built from. Any result may be
// missing; its section then says so.
type Input struct {
	Merged      *dataset.Table
	Stats       preprocess.MergeStats
	Metrics     *analysis.TraderMetrics
	Sentiment   *analysis.SentimentPerformance
	Correlation *analysis.CorrelationMatrix
	Tests       analysis.TestResults
}

// Generator renders the plain-text analysis report
type Generator struct {
	logger *slog.Logger
}

// NewGenerator creates a report generator
func NewGenerator(logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{logger: logger.With(slog.String("component", "report"))}
}

// WriteFile renders the report to path, creating the directory if needed
func (g *Generator) WriteFile(path string, in Input) error {
	var buf bytes.Buffer
	if err := g.Write(&buf, in); err != nil {
		return apperrors.NewExportError(path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewExportError(path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return apperrors.NewExportError(path, err)
	}
	g.logger.Info("Summary report saved", slog.String("file_path", path))
	return nil
}

// Write renders the report to w
func (g *Generator) Write(w io.Writer, in Input) error {
	var buf bytes.Buffer

	fmt.Fprintln(&buf, "BITCOIN TRADING ANALYSIS REPORT")
	fmt.Fprintln(&buf, strings.Repeat("=", 50))
	fmt.Fprintln(&buf)

	steps := []func(io.Writer, Input) error{
		writeOverview,
		writeSentiment,
		writeTraders,
		writeFindings,
		writeInsights,
	}
	for _, step := range steps {
		if err := step(&buf, in); err != nil {
			return err
		}
	}

	_, err := w.Write(buf.Bytes())
	return err
}

func writeOverview(w io.Writer, in Input) error {
	heading(w, "1. DATA OVERVIEW")

	period := "unknown"
	if in.Merged != nil {
		if col, ok := in.Merged.Column(preprocess.ColDate); ok && col.Kind() == dataset.KindDate {
			if first, last, ok := preprocess.DateRange(col); ok {
				period = fmt.Sprintf("%s to %s", first, last)
			}
		}
	}
	fmt.Fprintf(w, "Analysis Period: %s\n", period)
	fmt.Fprintf(w, "Total Trades Analyzed: %s\n", count(in.Merged.Len()))
	if total := in.Stats.Total(); total > 0 {
		fmt.Fprintf(w, "Trades Matched to Sentiment: %s (%s)\n",
			count(in.Stats.Matched), percent(float64(in.Stats.Matched)/float64(total)))
	}
	fmt.Fprintf(w, "Unique Traders: %s\n\n", count(in.Metrics.Len()))
	return nil
}

func writeSentiment(w io.Writer, in Input) error {
	heading(w, "2. MARKET SENTIMENT ANALYSIS")
	if in.Sentiment.Len() == 0 {
		fmt.Fprintln(w, "No sentiment data available")
		fmt.Fprintln(w)
		return nil
	}

	fmt.Fprintln(w, "Performance by Sentiment Class:")
	fmt.Fprintln(w)
	if err := sentimentTable(w, in.Sentiment); err != nil {
		return err
	}
	if best, worst, ok := bestWorst(in.Sentiment); ok {
		fmt.Fprintf(w, "\nBest Performing Sentiment: %s\n", best)
		fmt.Fprintf(w, "Worst Performing Sentiment: %s\n", worst)
	}
	fmt.Fprintln(w)
	return nil
}

func sentimentTable(w io.Writer, perf *analysis.SentimentPerformance) error {
	header := append([]string{analysis.ColClassification}, perf.Columns()...)
	tbl, err := perf.Table()
	if err != nil {
		return err
	}
	rows := make([][]string, tbl.Len())
	cols := tbl.Columns()
	for r := range rows {
		row := []string{cols[0].Format(r)}
		for _, col := range cols[1:] {
			row = append(row, num(col.Float(r)))
		}
		rows[r] = row
	}
	return table(w, header, rows)
}

// bestWorst returns the classes with the highest and lowest mean PnL
func bestWorst(perf *analysis.SentimentPerformance) (best, worst string, ok bool) {
	if perf.Len() == 0 || !perf.Schema.PnL {
		return "", "", false
	}
	hi, lo := math.Inf(-1), math.Inf(1)
	for _, r := range perf.Rows {
		if math.IsNaN(r.PnLMean) {
			continue
		}
		if r.PnLMean > hi {
			hi, best = r.PnLMean, r.Classification
		}
		if r.PnLMean < lo {
			lo, worst = r.PnLMean, r.Classification
		}
	}
	return best, worst, best != ""
}

func writeTraders(w io.Writer, in Input) error {
	heading(w, "3. TRADER PERFORMANCE")
	m := in.Metrics
	if m.Len() == 0 {
		fmt.Fprintln(w, "No trader metrics available")
		fmt.Fprintln(w)
		return nil
	}
	if !m.Schema.PnL {
		fmt.Fprintln(w, "PnL metrics unavailable, trader ranking skipped")
		fmt.Fprintln(w)
		return nil
	}

	fmt.Fprintf(w, "Top %d Performing Traders:\n\n", TopTraders)
	top := topTraders(m, TopTraders)
	rows := make([][]string, len(top))
	for i, r := range top {
		rows[i] = []string{r.Account, money(r.PnLSum), percent(r.WinRate), count(r.PnLCount)}
	}
	if err := table(w, []string{"account", "total_pnl", "win_rate", "trade_count"}, rows); err != nil {
		return err
	}

	totals := make([]float64, m.Len())
	winRates := make([]float64, 0, m.Len())
	active := m.Rows[0]
	for i, r := range m.Rows {
		totals[i] = r.PnLSum
		winRates = append(winRates, r.WinRate)
		if r.PnLCount > active.PnLCount {
			active = r
		}
	}

	fmt.Fprintln(w, "\nOverall Performance Statistics:")
	fmt.Fprintf(w, "Average PnL: %s\n", money(stat.Mean(totals, nil)))
	if m.Schema.WinRate {
		fmt.Fprintf(w, "Median Win Rate: %s\n", percent(quantile(finite(winRates), 0.5)))
	}
	fmt.Fprintf(w, "Most Active Trader: %s (%s trades)\n\n", active.Account, count(active.PnLCount))
	return nil
}

// topTraders returns the n traders with the largest total PnL. Ties keep
// account order.
func topTraders(m *analysis.TraderMetrics, n int) []analysis.TraderMetric {
	rows := append([]analysis.TraderMetric(nil), m.Rows...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].PnLSum > rows[j].PnLSum })
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

func writeFindings(w io.Writer, in Input) error {
	heading(w, "4. STATISTICAL FINDINGS")
	if len(in.Tests) == 0 {
		fmt.Fprintln(w, "No statistical test results available")
	}
	for _, key := range in.Tests.Keys() {
		res := in.Tests[key]
		fmt.Fprintf(w, "%s:\n", strings.ToUpper(key))
		fmt.Fprintf(w, "  - t_statistic: %.4f, p_value: %.4g, significant: %t (df=%d)\n",
			res.TStatistic, res.PValue, res.Significant, res.DF)
		fmt.Fprintf(w, "  - %s: n=%s, mean PnL %s; %s: n=%s, mean PnL %s\n",
			analysis.FearClass, count(res.FearN), money(res.FearMean),
			analysis.GreedClass, count(res.GreedN), money(res.GreedMean))
	}

	if pairs := in.Correlation.TopPairs(5); len(pairs) > 0 {
		fmt.Fprintln(w, "\nStrongest Correlations:")
		for _, p := range pairs {
			fmt.Fprintf(w, "  - %s / %s: %.4f\n", p.A, p.B, p.Value)
		}
	}
	fmt.Fprintln(w)
	return nil
}

func writeInsights(w io.Writer, in Input) error {
	heading(w, "5. RECOMMENDATIONS & INSIGHTS")
	if best, _, ok := bestWorst(in.Sentiment); ok {
		fmt.Fprintf(w, "- Strategies performed best during %s market conditions\n", best)
	}

	if m := in.Metrics; m != nil && m.Clustered {
		fmt.Fprintln(w, "\nTrader Cluster Insights:")
		if m.ClusterDegraded {
			fmt.Fprintln(w, "Clustering was not possible with the available metrics; all traders are in cluster 0")
		} else if m.Schema.PnL {
			if err := clusterTable(w, m); err != nil {
				return err
			}
		}
		fmt.Fprintln(w, "- Consider analyzing successful cluster patterns")
	}

	fmt.Fprintln(w, "\n- Review top performers for replicable strategies")
	fmt.Fprintln(w, "- Examine the correlation matrix for significant relationships")
	return nil
}

// clusterTable describes total PnL per cluster
func clusterTable(w io.Writer, m *analysis.TraderMetrics) error {
	groups := make(map[int][]float64)
	for _, r := range m.Rows {
		groups[r.Cluster] = append(groups[r.Cluster], r.PnLSum)
	}
	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		values := groups[id]
		std := math.NaN()
		if len(values) > 1 {
			std = stat.StdDev(values, nil)
		}
		rows = append(rows, []string{
			fmt.Sprint(id),
			count(len(values)),
			money(stat.Mean(values, nil)),
			money(std),
			money(quantile(values, 0)),
			money(quantile(values, 0.25)),
			money(quantile(values, 0.5)),
			money(quantile(values, 0.75)),
			money(quantile(values, 1)),
		})
	}
	return table(w, []string{"cluster", "count", "mean", "std", "min", "25%", "50%", "75%", "max"}, rows)
}
