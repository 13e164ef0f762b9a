// Package exporter writes result tables to disk.
//
// CSVWriter produces one file per table; WorkbookWriter collects several
// tables into a single XLSX workbook. Null and undefined values are written
// as empty cells in both formats.
package exporter
