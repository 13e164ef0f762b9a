package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"btcsentiment/internal/dataset"
	apperrors "btcsentiment/internal/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes tables as comma-separated files with a header row
type CSVWriter struct {
	bomPrefix bool
	logger    *slog.Logger
}

// NewCSVWriter creates a CSV writer. With bomPrefix set every file starts
// with a UTF-8 BOM so spreadsheet tools detect the encoding.
func NewCSVWriter(bomPrefix bool, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{
		bomPrefix: bomPrefix,
		logger:    logger.With(slog.String("component", "csv_writer")),
	}
}

// WriteTable writes table to path, replacing any existing file. The parent
// directory is created when missing.
func (w *CSVWriter) WriteTable(path string, table *dataset.Table) error {
	if err := w.write(path, table); err != nil {
		return apperrors.NewExportError(path, err)
	}
	rows, cols := table.Shape()
	w.logger.Info("CSV file written",
		slog.String("file_path", path),
		slog.Int("rows", rows),
		slog.Int("columns", cols))
	return nil
}

func (w *CSVWriter) write(path string, table *dataset.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if w.bomPrefix {
		if _, err := file.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	if table.Width() > 0 {
		if err := writer.Write(table.Names()); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range records(table) {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}
