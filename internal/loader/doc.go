// Package loader reads the raw trade and sentiment files into tables.
//
// CSV, TSV and XLSX inputs are supported. Every column is typed by
// inference: a column whose non-empty cells all parse as numbers becomes a
// float column, everything else stays text. Inspect produces a structural
// overview used by the inspect command before a full run.
package loader
