// Package report renders analysis results as text: the summary report file
// and the tables printed to the console.
package report
