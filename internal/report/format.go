package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
)

const na = "n/a"

// count renders an integer with thousands separators
func count(n int) string {
	return humanize.Comma(int64(n))
}

// num renders a value with thousands separators and four decimals
func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return na
	}
	return humanize.FormatFloat("#,###.####", v)
}

// money renders a value with thousands separators and two decimals
func money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return na
	}
	return humanize.FormatFloat("#,###.##", v)
}

func percent(v float64) string {
	if math.IsNaN(v) {
		return na
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

func rule(w io.Writer, ch string) {
	fmt.Fprintln(w, strings.Repeat(ch, 50))
}

func heading(w io.Writer, title string) {
	fmt.Fprintln(w, title)
	rule(w, "-")
}

// table writes tab-aligned rows under a header
func table(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// finite drops NaN and infinite values
func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// quantile returns the q-th quantile of values with linear interpolation
// between the closest ranks. NaN for an empty input.
func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
