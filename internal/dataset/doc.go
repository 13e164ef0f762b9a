// Package dataset provides the in-memory table used between pipeline stages.
//
// A Table is an ordered list of named, typed columns of equal length. Each
// column carries a validity mask so missing cells survive loading, joining
// and export as nulls rather than zero values.
//
// Columns are immutable. Transformations build new columns and swap them
// into a cloned table, which keeps every stage a pure function of its input:
//
//	prepared := raw.Clone()
//	prepared.Set(dataset.NewFloatColumn("abs_pnl", values, nil))
//
// Schema is the capability query consulted by the analyses. It answers
// "which of these candidate fields exist, and are they numeric" once, so the
// aggregation code never probes column names ad hoc.
package dataset
