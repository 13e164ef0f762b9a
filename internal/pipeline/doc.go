// Package pipeline runs the analysis as a fixed sequence of steps.
//
// Each step reads its inputs from a shared State and stores its results
// there. Loading, merging, trader metrics and export are fatal: their
// failure stops the run. The remaining analyses are optional; when one
// fails it is marked skipped, an empty result is kept and the run goes on.
// Every run and step gets a span and is recorded in the run metrics.
package pipeline
