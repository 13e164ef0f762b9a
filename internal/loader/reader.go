package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"btcsentiment/internal/dataset"
)

// ErrEmptyFile is returned for a file with no header row
var ErrEmptyFile = errors.New("file is empty")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type readFunc func(path string) (header []string, rows [][]string, err error)

var readers = map[string]readFunc{
	".csv":  delimitedReader(','),
	".tsv":  delimitedReader('\t'),
	".xlsx": readXLSX,
}

func formatOf(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// ReadTable reads a CSV, TSV or XLSX file into a table of inferred columns.
// A header-only file yields a table with zero rows.
func ReadTable(path string) (*dataset.Table, error) {
	read, ok := readers[formatOf(path)]
	if !ok {
		return nil, fmt.Errorf("unsupported file format %q", filepath.Ext(path))
	}

	header, rows, err := read(path)
	if err != nil {
		return nil, err
	}
	return buildTable(header, rows)
}

func delimitedReader(comma rune) readFunc {
	return func(path string) ([]string, [][]string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		data = bytes.TrimPrefix(data, utf8BOM)

		r := csv.NewReader(bytes.NewReader(data))
		r.Comma = comma

		header, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil, nil, ErrEmptyFile
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read header: %w", err)
		}

		// every record must match the header width
		r.FieldsPerRecord = len(header)
		rows, err := r.ReadAll()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse rows: %w", err)
		}
		return header, rows, nil
	}
}

// readXLSX reads the first sheet of a workbook
func readXLSX(path string) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, ErrEmptyFile
	}

	all, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(all) == 0 || len(all[0]) == 0 {
		return nil, nil, ErrEmptyFile
	}

	header := all[0]
	header[0] = strings.TrimPrefix(header[0], string(utf8BOM))
	rows := make([][]string, 0, len(all)-1)
	for i, row := range all[1:] {
		if len(row) > len(header) {
			return nil, nil, fmt.Errorf("row %d has %d cells, header has %d", i+2, len(row), len(header))
		}
		// excelize trims trailing empty cells
		if len(row) < len(header) {
			padded := make([]string, len(header))
			copy(padded, row)
			row = padded
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func buildTable(header []string, rows [][]string) (*dataset.Table, error) {
	cols := make([]*dataset.Column, len(header))
	for c, name := range header {
		raw := make([]string, len(rows))
		for r, row := range rows {
			raw[r] = row[c]
		}
		cols[c] = dataset.InferColumn(strings.TrimSpace(name), raw)
	}
	return dataset.New(cols...)
}
