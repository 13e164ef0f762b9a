package loader

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"btcsentiment/internal/dataset"
	apperrors "btcsentiment/internal/errors"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const tradesCSV = `Account,Coin,Execution Price,Size Tokens,Size USD,Side,Timestamp IST,Closed PnL
0xa,BTC,100,2,200,BUY,02-12-2024 22:50,10
0xb,ETH,50,1,50,SELL,03-12-2024 01:15,-5
`

const sentimentCSV = `timestamp,value,classification,date
1733097600,20,Extreme Fear,2024-12-02
1733184000,55,Greed,2024-12-03
`

func TestReadTable_CSV(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "trades.csv", tradesCSV)

	table, err := ReadTable(path)
	require.NoError(t, err)

	rows, cols := table.Shape()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 8, cols)

	price, ok := table.Column("Execution Price")
	require.True(t, ok)
	assert.Equal(t, dataset.KindFloat, price.Kind())
	assert.Equal(t, 100.0, price.Float(0))

	side, _ := table.Column("Side")
	assert.Equal(t, dataset.KindString, side.Kind())
	assert.Equal(t, "SELL", side.Str(1))
}

func TestReadTable_Formats(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T, dir string) string
		wantRows int
		wantCols []string
		wantErr  string
	}{
		{
			name: "utf8 bom stripped",
			setup: func(t *testing.T, dir string) string {
				return writeFile(t, dir, "bom.csv", "\xEF\xBB\xBFdate,value\n2024-01-01,1\n")
			},
			wantRows: 1,
			wantCols: []string{"date", "value"},
		},
		{
			name: "tab separated",
			setup: func(t *testing.T, dir string) string {
				return writeFile(t, dir, "data.tsv", "a\tb\n1\tx y\n2\tz\n")
			},
			wantRows: 2,
			wantCols: []string{"a", "b"},
		},
		{
			name: "header only",
			setup: func(t *testing.T, dir string) string {
				return writeFile(t, dir, "empty_rows.csv", "account,closed_pnl\n")
			},
			wantRows: 0,
			wantCols: []string{"account", "closed_pnl"},
		},
		{
			name: "empty file",
			setup: func(t *testing.T, dir string) string {
				return writeFile(t, dir, "empty.csv", "")
			},
			wantErr: "file is empty",
		},
		{
			name: "ragged row",
			setup: func(t *testing.T, dir string) string {
				return writeFile(t, dir, "ragged.csv", "a,b\n1,2\n3\n")
			},
			wantErr: "failed to parse rows",
		},
		{
			name: "duplicate header",
			setup: func(t *testing.T, dir string) string {
				return writeFile(t, dir, "dup.csv", "a,a\n1,2\n")
			},
			wantErr: "duplicate column",
		},
		{
			name: "unsupported extension",
			setup: func(t *testing.T, dir string) string {
				return writeFile(t, dir, "data.json", "{}")
			},
			wantErr: "unsupported file format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.setup(t, t.TempDir())
			table, err := ReadTable(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRows, table.Len())
			assert.Equal(t, tt.wantCols, table.Names())
		})
	}
}

func TestReadTable_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentiment.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"timestamp", "value", "classification"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{1733097600, 20, "Fear"}))
	// trailing empty cell is trimmed by the reader and padded back
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{1733184000, 55}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := ReadTable(path)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())

	ts, _ := table.Column("timestamp")
	assert.Equal(t, dataset.KindFloat, ts.Kind())
	assert.Equal(t, 1733097600.0, ts.Float(0))

	class, _ := table.Column("classification")
	assert.Equal(t, "Fear", class.Str(0))
	assert.True(t, class.IsNull(1))
}

func TestLoader_LoadAll(t *testing.T) {
	dir := t.TempDir()
	tradesPath := writeFile(t, dir, "trades.csv", tradesCSV)
	sentimentPath := writeFile(t, dir, "sentiment.csv", sentimentCSV)

	l := NewLoader(tradesPath, sentimentPath, quietLogger())
	trades, sentiment, err := l.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, trades.Len())
	assert.Equal(t, 2, sentiment.Len())
	assert.True(t, sentiment.Has("classification"))
}

func TestLoader_Errors(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.csv", sentimentCSV)
	empty := writeFile(t, dir, "empty.csv", "")

	tests := []struct {
		name      string
		trades    string
		sentiment string
		wantPath  string
	}{
		{"missing trades", filepath.Join(dir, "absent.csv"), good, filepath.Join(dir, "absent.csv")},
		{"missing sentiment", good, filepath.Join(dir, "absent.csv"), filepath.Join(dir, "absent.csv")},
		{"empty trades", empty, good, empty},
		{"directory", dir, good, dir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewLoader(tt.trades, tt.sentiment, quietLogger()).LoadAll(context.Background())
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeLoad))
			assert.Contains(t, err.Error(), tt.wantPath)
		})
	}
}

func TestLoader_NoTimestampColumns(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "plain.csv", "account,closed_pnl\n0xa,1\n")

	table, err := NewLoader(path, path, quietLogger()).LoadTrades(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
}

func TestColumnHeuristics(t *testing.T) {
	names := []string{"Account", "Timestamp IST", "Closed PnL", "date", "Profit Share", "classification", "Sentiment Score", "Fee"}

	// "sentiment" contains "time"
	assert.Equal(t, []string{"Timestamp IST", "date", "Sentiment Score"}, TimeLikeColumns(names))
	assert.Equal(t, []string{"Closed PnL", "Profit Share"}, PnLLikeColumns(names))
	assert.Equal(t, []string{"classification", "Sentiment Score"}, ClassLikeColumns(names))
	assert.Nil(t, TimeLikeColumns([]string{"account"}))
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	v := NewFileValidator(quietLogger())
	dir := filepath.Join(t.TempDir(), "nested", "out")

	require.NoError(t, v.ValidateOutputDirectory(dir))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "write probe must be removed")
}
