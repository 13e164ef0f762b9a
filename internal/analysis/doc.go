// Package analysis computes trader and sentiment statistics over the merged
// trade table.
//
// Every analysis checks which columns the table actually carries through
// dataset.Schema and computes only what it can. Aggregates are rounded to
// four decimals. Clustering is deterministic for a given seed.
package analysis
