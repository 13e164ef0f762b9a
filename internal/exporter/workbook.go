package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"btcsentiment/internal/dataset"
	apperrors "btcsentiment/internal/errors"
)

// maxSheetName is the longest sheet name Excel accepts
const maxSheetName = 31

// Sheet is one named table of a workbook
type Sheet struct {
	Name  string
	Table *dataset.Table
}

// WorkbookWriter writes several tables into a single XLSX file, one sheet
// per table
type WorkbookWriter struct {
	logger *slog.Logger
}

// NewWorkbookWriter creates a workbook writer
func NewWorkbookWriter(logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookWriter{logger: logger.With(slog.String("component", "workbook_writer"))}
}

// Write saves sheets to path in the given order. Sheets with a nil table
// are skipped; an empty table produces a blank sheet.
func (w *WorkbookWriter) Write(path string, sheets []Sheet) error {
	written, err := w.write(path, sheets)
	if err != nil {
		return apperrors.NewExportError(path, err)
	}
	w.logger.Info("Workbook written",
		slog.String("file_path", path),
		slog.Any("sheets", written))
	return nil
}

func (w *WorkbookWriter) write(path string, sheets []Sheet) ([]string, error) {
	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	var written []string
	for _, sheet := range sheets {
		if sheet.Table == nil {
			continue
		}
		name := sheetName(sheet.Name)
		if len(written) == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return nil, fmt.Errorf("failed to name sheet %q: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to add sheet %q: %w", name, err)
		}
		if err := writeSheet(f, name, sheet.Table); err != nil {
			return nil, err
		}
		written = append(written, name)
	}
	if len(written) == 0 {
		return nil, fmt.Errorf("no tables to write")
	}
	f.SetActiveSheet(0)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("failed to save workbook: %w", err)
	}
	return written, nil
}

func writeSheet(f *excelize.File, sheet string, table *dataset.Table) error {
	if table.Width() == 0 {
		return nil
	}

	names := table.Names()
	header := make([]interface{}, len(names))
	for i, n := range names {
		header[i] = n
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header of %q: %w", sheet, err)
	}

	cols := table.Columns()
	for r := 0; r < table.Len(); r++ {
		row := make([]interface{}, len(cols))
		for c, col := range cols {
			row[c] = cellValue(col, r)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %q: %w", r, sheet, err)
		}
	}
	return nil
}

// sheetName truncates name to the Excel limit
func sheetName(name string) string {
	r := []rune(name)
	if len(r) > maxSheetName {
		r = r[:maxSheetName]
	}
	return string(r)
}
