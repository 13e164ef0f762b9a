package report

import (
	"fmt"
	"io"
	"strings"

	"btcsentiment/internal/analysis"
	"btcsentiment/internal/loader"
)

// TopCorrelations is the number of pairs printed by PrintTopCorrelations
const TopCorrelations = 10

// PrintSentiment writes the per-class performance table
func PrintSentiment(w io.Writer, perf *analysis.SentimentPerformance) error {
	if perf.Len() == 0 {
		_, err := fmt.Fprintln(w, "No valid sentiment classification data available")
		return err
	}
	fmt.Fprintln(w, "Performance by Sentiment:")
	return sentimentTable(w, perf)
}

// PrintTopCorrelations writes the n strongest off-diagonal pairs
func PrintTopCorrelations(w io.Writer, m *analysis.CorrelationMatrix, n int) error {
	pairs := m.TopPairs(n)
	if len(pairs) == 0 {
		_, err := fmt.Fprintln(w, "No correlations available")
		return err
	}
	fmt.Fprintln(w, "Top Correlations:")
	rows := make([][]string, len(pairs))
	for i, p := range pairs {
		rows[i] = []string{p.A, p.B, fmt.Sprintf("%.4f", p.Value)}
	}
	return table(w, []string{"column", "column", "r"}, rows)
}

// PrintTests writes one line per statistical test
func PrintTests(w io.Writer, results analysis.TestResults) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "No statistical test results available")
		return err
	}
	fmt.Fprintln(w, "Statistical Test Results:")
	for _, key := range results.Keys() {
		res := results[key]
		if _, err := fmt.Fprintf(w, "%s: t_statistic=%.4f p_value=%.4g significant=%t\n",
			key, res.TStatistic, res.PValue, res.Significant); err != nil {
			return err
		}
	}
	return nil
}

// WriteInspection renders a loader.Inspection for the inspect command
func WriteInspection(w io.Writer, insp *loader.Inspection) error {
	fmt.Fprintf(w, "%s:\n", strings.ToUpper(insp.Name))
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintf(w, "Shape: (%s, %d)\n", count(insp.Rows), insp.Cols)

	fmt.Fprintln(w, "Columns:")
	rows := make([][]string, len(insp.Columns))
	for i, c := range insp.Columns {
		distinct := ""
		if c.Distinct > 0 {
			distinct = fmt.Sprintf("~%s", count(int(c.Distinct)))
		}
		rows[i] = []string{c.Name, c.Kind.String(), count(c.Nulls), distinct}
	}
	if err := table(w, []string{"name", "type", "nulls", "distinct"}, rows); err != nil {
		return err
	}

	if len(insp.Sample) > 0 {
		fmt.Fprintf(w, "\nFirst %d rows:\n", len(insp.Sample))
		header := make([]string, len(insp.Columns))
		for i, c := range insp.Columns {
			header[i] = c.Name
		}
		if err := table(w, header, insp.Sample); err != nil {
			return err
		}
	}

	if len(insp.Numeric) > 0 {
		fmt.Fprintln(w, "\nNumeric columns:")
		rows := make([][]string, len(insp.Numeric))
		for i, s := range insp.Numeric {
			rows[i] = []string{s.Column, count(s.Count), num(s.Mean), num(s.Std), num(s.Min), num(s.Max)}
		}
		if err := table(w, []string{"column", "count", "mean", "std", "min", "max"}, rows); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "\nPossible PnL columns: %s\n", list(insp.PnLColumns))
	fmt.Fprintf(w, "Time-related columns: %s\n", list(insp.TimeColumns))
	fmt.Fprintf(w, "Possible classification columns: %s\n", list(insp.ClassColumns))

	if len(insp.ClassValues) > 0 {
		fmt.Fprintf(w, "\nUnique values in %s:\n", insp.ClassColumns[0])
		for _, vc := range insp.ClassValues {
			fmt.Fprintf(w, "  %s: %s\n", vc.Value, count(vc.Count))
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

func list(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return "[" + strings.Join(names, ", ") + "]"
}
