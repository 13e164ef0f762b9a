package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btcsentiment/internal/config"
	apperrors "btcsentiment/internal/errors"
)

const tradesCSV = `Account,Coin,Execution Price,Size Tokens,Size USD,Side,Timestamp IST,Closed PnL
0xA,BTC,100,1,100,BUY,01-12-2024 10:00,10
0xA,BTC,110,2,220,SELL,02-12-2024 10:00,-5
0xB,ETH,50,4,200,BUY,01-12-2024 11:00,20
0xB,ETH,55,3,165,SELL,02-12-2024 11:00,30
0xC,BTC,101,1,101,BUY,01-12-2024 12:00,-2
0xC,BTC,99,5,495,SELL,02-12-2024 12:00,15
`

const sentimentCSV = `timestamp,value,classification,date
1733011200,25,Fear,2024-12-01
1733097600,70,Greed,2024-12-02
`

func writeInputs(t *testing.T) (string, string, string) {
	t.Helper()
	dir := t.TempDir()
	trades := filepath.Join(dir, "trades.csv")
	sentiment := filepath.Join(dir, "sentiment.csv")
	require.NoError(t, os.WriteFile(trades, []byte(tradesCSV), 0644))
	require.NoError(t, os.WriteFile(sentiment, []byte(sentimentCSV), 0644))
	return trades, sentiment, filepath.Join(dir, "out")
}

func TestRun_Success(t *testing.T) {
	trades, sentiment, out := writeInputs(t)
	var stdout, stderr bytes.Buffer

	code := run([]string{
		"-trades", trades, "-sentiment", sentiment, "-out", out,
		"-clusters", "2", "-workbook", "-metrics",
	}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	text := stdout.String()
	assert.Contains(t, text, "Analyzed 3 unique traders")
	assert.Contains(t, text, "Performance by Sentiment:")
	assert.Contains(t, text, "Created 2 trader clusters")
	assert.Contains(t, text, "=== Analysis Complete! ===")

	for _, name := range []string{"merged_data.csv", "trader_metrics.csv", "analysis_report.txt", "analysis.xlsx", "run_metrics.prom"} {
		assert.FileExists(t, filepath.Join(out, name))
	}
	assert.Contains(t, stderr.String(), `"run_id"`)
}

func TestRun_MissingInput(t *testing.T) {
	_, sentiment, out := writeInputs(t)
	missing := filepath.Join(t.TempDir(), "nope.csv")
	var stdout, stderr bytes.Buffer

	code := run([]string{"-trades", missing, "-sentiment", sentiment, "-out", out}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Error during analysis")
	assert.Contains(t, stderr.String(), "Troubleshooting tips:")
	assert.Contains(t, stderr.String(), "Verify the trade file exists: "+missing)
}

func TestRun_InvalidFlags(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run([]string{"-unknown"}, &stdout, &stderr))

	trades, sentiment, out := writeInputs(t)
	stderr.Reset()
	code := run([]string{"-trades", trades, "-sentiment", sentiment, "-out", out, "-clusters", "0"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Invalid configuration")
}

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	opts := &options{trades: "t.csv", outDir: "out", clusters: 5, seed: 9}
	applyFlags(&cfg, opts, map[string]bool{"trades": true, "clusters": true})

	assert.Equal(t, "t.csv", cfg.Input.TradesPath)
	assert.Equal(t, 5, cfg.Analysis.Clusters)
	assert.Equal(t, config.DefaultOutputDir, cfg.Output.Dir, "unset flags keep the config value")
	assert.Equal(t, uint64(config.DefaultSeed), cfg.Analysis.Seed)
}

func TestRemediation(t *testing.T) {
	cfg := config.Default()
	cfg.Input.TradesPath = "custom/trades.csv"
	cfg.Input.SentimentPath = "custom/fgi.csv"
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"load", apperrors.NewLoadError("x.csv", errors.New("missing")), "Verify the trade file exists"},
		{"date", apperrors.NewDateParseError("timestamp_ist", "bad", nil), "DD-MM-YYYY HH:MM"},
		{"overlap", apperrors.NewNoOverlapError(10), "different dates"},
		{"column", apperrors.NewMissingColumnError("account", "trader metrics"), "inspect command"},
		{"export", apperrors.NewExportError("out.csv", errors.New("denied")), "writable"},
		{"other", errors.New("boom"), "-log-level debug"},
		{"other names configured inputs", errors.New("boom"), "custom/trades.csv and custom/fgi.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hints := remediation(&cfg, tt.err)
			require.NotEmpty(t, hints)
			found := false
			for _, h := range hints {
				if bytes.Contains([]byte(h), []byte(tt.want)) {
					found = true
				}
			}
			assert.True(t, found, "%v", hints)
		})
	}
}
