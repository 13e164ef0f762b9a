package loader

import (
	"context"
	"log/slog"
	"strings"

	"btcsentiment/internal/dataset"
	apperrors "btcsentiment/internal/errors"
)

const sampleSize = 3

// Loader reads the raw trade and sentiment files. Each file is read once per
// call, with no retry and no caching.
type Loader struct {
	tradesPath    string
	sentimentPath string
	validator     *FileValidator
	logger        *slog.Logger
}

// NewLoader creates a loader for the given input files
func NewLoader(tradesPath, sentimentPath string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "loader"))
	return &Loader{
		tradesPath:    tradesPath,
		sentimentPath: sentimentPath,
		validator:     NewFileValidator(logger),
		logger:        logger,
	}
}

// LoadAll reads the trade file, then the sentiment file. The first failure
// is returned as a LOAD error wrapping the cause.
func (l *Loader) LoadAll(ctx context.Context) (trades, sentiment *dataset.Table, err error) {
	trades, err = l.LoadTrades(ctx)
	if err != nil {
		return nil, nil, err
	}
	sentiment, err = l.LoadSentiment(ctx)
	if err != nil {
		return nil, nil, err
	}
	return trades, sentiment, nil
}

// LoadTrades reads the trade file
func (l *Loader) LoadTrades(ctx context.Context) (*dataset.Table, error) {
	return l.load(ctx, "trades", l.tradesPath)
}

// LoadSentiment reads the sentiment file
func (l *Loader) LoadSentiment(ctx context.Context) (*dataset.Table, error) {
	return l.load(ctx, "sentiment", l.sentimentPath)
}

func (l *Loader) load(ctx context.Context, name, path string) (*dataset.Table, error) {
	if err := l.validator.ValidateFile(path); err != nil {
		return nil, apperrors.NewLoadError(path, err).
			WithContext("dataset", name)
	}

	table, err := ReadTable(path)
	if err != nil {
		l.logger.ErrorContext(ctx, "Failed to load data",
			slog.String("dataset", name),
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, apperrors.NewLoadError(path, err).
			WithContext("dataset", name)
	}

	l.logDiagnostics(ctx, name, path, table)
	return table, nil
}

// logDiagnostics reports the table shape and the timestamp-like columns with
// a few sample values. A table without such columns is not an error.
func (l *Loader) logDiagnostics(ctx context.Context, name, path string, table *dataset.Table) {
	rows, cols := table.Shape()
	tsCols := TimeLikeColumns(table.Names())

	attrs := []any{
		slog.String("dataset", name),
		slog.String("path", path),
		slog.Int("rows", rows),
		slog.Int("columns", cols),
		slog.Any("timestamp_columns", tsCols),
	}
	if len(tsCols) > 0 {
		attrs = append(attrs, slog.Any("sample_values", table.Head(tsCols[0], sampleSize)))
	}
	l.logger.InfoContext(ctx, "Data loaded", attrs...)
}

// TimeLikeColumns returns the names containing "time" or "date",
// case-insensitively, in order
func TimeLikeColumns(names []string) []string {
	return columnsContaining(names, "time", "date")
}

// PnLLikeColumns returns the names containing "pnl" or "profit"
func PnLLikeColumns(names []string) []string {
	return columnsContaining(names, "pnl", "profit")
}

// ClassLikeColumns returns the names containing "class" or "sentiment"
func ClassLikeColumns(names []string) []string {
	return columnsContaining(names, "class", "sentiment")
}

func columnsContaining(names []string, needles ...string) []string {
	var out []string
	for _, name := range names {
		lower := strings.ToLower(name)
		for _, needle := range needles {
			if strings.Contains(lower, needle) {
				out = append(out, name)
				break
			}
		}
	}
	return out
}
