package loader

import (
	"math"
	"sort"

	"github.com/axiomhq/hyperloglog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"btcsentiment/internal/dataset"
)

// ColumnInfo describes one column of an inspected table
type ColumnInfo struct {
	Name  string
	Kind  dataset.Kind
	Nulls int
	// Distinct is a HyperLogLog estimate, filled for string columns only
	Distinct uint64
}

// NumericSummary holds the descriptive statistics of a float column.
// Std uses the sample (n-1) estimator and is NaN below two values.
type NumericSummary struct {
	Column string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Max    float64
}

// ValueCount is the frequency of one value
type ValueCount struct {
	Value string
	Count int
}

// Inspection is a structural overview of a raw table
type Inspection struct {
	Name         string
	Rows         int
	Cols         int
	Columns      []ColumnInfo
	Sample       [][]string
	Numeric      []NumericSummary
	PnLColumns   []string
	TimeColumns  []string
	ClassColumns []string
	// ClassValues counts the values of the first classification-like column
	ClassValues []ValueCount
}

// Inspect builds an Inspection of table
func Inspect(name string, table *dataset.Table) *Inspection {
	rows, cols := table.Shape()
	names := table.Names()

	insp := &Inspection{
		Name:         name,
		Rows:         rows,
		Cols:         cols,
		PnLColumns:   PnLLikeColumns(names),
		TimeColumns:  TimeLikeColumns(names),
		ClassColumns: ClassLikeColumns(names),
	}

	records := table.Records()
	if len(records) > sampleSize {
		records = records[:sampleSize]
	}
	insp.Sample = records

	for _, col := range table.Columns() {
		info := ColumnInfo{Name: col.Name(), Kind: col.Kind(), Nulls: col.NullCount()}
		if col.Kind() == dataset.KindString {
			info.Distinct = approxDistinct(col)
		}
		insp.Columns = append(insp.Columns, info)

		if col.IsNumeric() {
			if summary, ok := summarize(col); ok {
				insp.Numeric = append(insp.Numeric, summary)
			}
		}
	}

	if len(insp.ClassColumns) > 0 {
		col, _ := table.Column(insp.ClassColumns[0])
		insp.ClassValues = ValueCounts(col)
	}
	return insp
}

func approxDistinct(col *dataset.Column) uint64 {
	sketch := hyperloglog.New14()
	for i := 0; i < col.Len(); i++ {
		if !col.IsNull(i) {
			sketch.Insert([]byte(col.Str(i)))
		}
	}
	return sketch.Estimate()
}

func summarize(col *dataset.Column) (NumericSummary, bool) {
	values := make([]float64, 0, col.Len())
	for i := 0; i < col.Len(); i++ {
		if !col.IsNull(i) {
			values = append(values, col.Float(i))
		}
	}
	if len(values) == 0 {
		return NumericSummary{}, false
	}

	summary := NumericSummary{
		Column: col.Name(),
		Count:  len(values),
		Mean:   stat.Mean(values, nil),
		Std:    math.NaN(),
		Min:    floats.Min(values),
		Max:    floats.Max(values),
	}
	if len(values) > 1 {
		summary.Std = stat.StdDev(values, nil)
	}
	return summary, true
}

// ValueCounts returns the frequency of each non-null value, most frequent
// first, ties broken by value
func ValueCounts(col *dataset.Column) []ValueCount {
	keys, groups := dataset.SortedKeys(col)
	counts := make([]ValueCount, len(keys))
	for i, k := range keys {
		counts[i] = ValueCount{Value: k, Count: len(groups[k])}
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts
}
