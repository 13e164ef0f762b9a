package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"btcsentiment/internal/config"
	"btcsentiment/internal/infrastructure"
	"btcsentiment/internal/loader"
	"btcsentiment/internal/report"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", "", "YAML config file (defaults to $BTCS_CONFIG_FILE)")
	trades := fs.String("trades", "", "trade history file (overrides the config)")
	sentiment := fs.String("sentiment", "", "fear/greed index file (overrides the config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	if *trades != "" {
		cfg.Input.TradesPath = *trades
	}
	if *sentiment != "" {
		cfg.Input.SentimentPath = *sentiment
	}

	logger, err := infrastructure.NewLogger(cfg.Logging, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer infrastructure.CloseLogFile()

	validator := loader.NewFileValidator(logger)

	fmt.Fprintln(stdout, "=== DATA INSPECTION ===")
	fmt.Fprintln(stdout)

	failures := 0
	inputs := []struct{ name, path string }{
		{"trader data", cfg.Input.TradesPath},
		{"sentiment data", cfg.Input.SentimentPath},
	}
	for _, in := range inputs {
		if err := inspectFile(stdout, validator, in.name, in.path); err != nil {
			failures++
			logger.Error("Inspection failed",
				slog.String("dataset", in.name),
				slog.String("path", in.path),
				slog.String("error", err.Error()))
			fmt.Fprintf(stdout, "%s:\n", strings.ToUpper(in.name))
			fmt.Fprintf(stdout, "Error loading %s: %v\n\n", in.name, err)
		}
		fmt.Fprintln(stdout, strings.Repeat("=", 60))
		fmt.Fprintln(stdout)
	}

	fmt.Fprintln(stdout, "RECOMMENDATIONS:")
	fmt.Fprintln(stdout, "1. Check that the column names match what the analyzer expects")
	fmt.Fprintln(stdout, "2. Verify that the date ranges of both datasets overlap")
	fmt.Fprintln(stdout, "3. Ensure the PnL and classification columns are properly named")
	fmt.Fprintln(stdout, "4. Run this inspection before running the analyzer")

	if failures > 0 {
		return 1
	}
	return 0
}

func inspectFile(w io.Writer, validator *loader.FileValidator, name, path string) error {
	if err := validator.ValidateFile(path); err != nil {
		return err
	}
	table, err := loader.ReadTable(path)
	if err != nil {
		return err
	}
	return report.WriteInspection(w, loader.Inspect(name, table))
}
