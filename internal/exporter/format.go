package exporter

import (
	"math"
	"strconv"

	"btcsentiment/internal/dataset"
)

// formatCell renders row i of col for CSV output. Nulls and undefined
// numbers are written as empty cells.
func formatCell(col *dataset.Column, i int) string {
	if col.IsNull(i) {
		return ""
	}
	if col.Kind() == dataset.KindFloat {
		return formatFloat(col.Float(i))
	}
	return col.Format(i)
}

// formatFloat uses the shortest representation that round-trips
func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// cellValue returns the value excelize should store for row i of col.
// Numbers and booleans keep their type; nil leaves the cell blank.
func cellValue(col *dataset.Column, i int) interface{} {
	if col.IsNull(i) {
		return nil
	}
	switch col.Kind() {
	case dataset.KindFloat:
		f := col.Float(i)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case dataset.KindBool:
		return col.Bool(i)
	default:
		return col.Format(i)
	}
}

// records renders the table row by row with formatCell
func records(table *dataset.Table) [][]string {
	cols := table.Columns()
	out := make([][]string, table.Len())
	for r := range out {
		record := make([]string, len(cols))
		for c, col := range cols {
			record[c] = formatCell(col, r)
		}
		out[r] = record
	}
	return out
}
