package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"btcsentiment/internal/config"
	apperrors "btcsentiment/internal/errors"
	"btcsentiment/internal/infrastructure"
	"btcsentiment/internal/pipeline"
	"btcsentiment/internal/report"
)

// Version is set at build time with -ldflags "-X main.Version=..."
var Version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// options holds the command-line overrides. Only flags that were set
// replace the loaded configuration.
type options struct {
	configFile string
	trades     string
	sentiment  string
	outDir     string
	clusters   int
	seed       uint64
	workbook   bool
	trace      bool
	metrics    bool
	logLevel   string
}

func parseFlags(args []string, stderr io.Writer) (*options, map[string]bool, error) {
	fs := flag.NewFlagSet("analyzer", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.configFile, "config", "", "YAML config file (defaults to $BTCS_CONFIG_FILE)")
	fs.StringVar(&opts.trades, "trades", "", "trade history file (.csv, .tsv or .xlsx)")
	fs.StringVar(&opts.sentiment, "sentiment", "", "fear/greed index file (.csv, .tsv or .xlsx)")
	fs.StringVar(&opts.outDir, "out", "", "output directory")
	fs.IntVar(&opts.clusters, "clusters", config.DefaultClusters, "number of trader clusters")
	fs.Uint64Var(&opts.seed, "seed", config.DefaultSeed, "clustering random seed")
	fs.BoolVar(&opts.workbook, "workbook", false, "also write an XLSX workbook with every table")
	fs.BoolVar(&opts.trace, "trace", false, "export spans to the trace file")
	fs.BoolVar(&opts.metrics, "metrics", false, "write run metrics as a Prometheus textfile")
	fs.StringVar(&opts.logLevel, "log-level", "", "debug | info | warn | error")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return opts, set, nil
}

// applyFlags overlays the flags that were set onto cfg
func applyFlags(cfg *config.Config, opts *options, set map[string]bool) {
	if set["trades"] {
		cfg.Input.TradesPath = opts.trades
	}
	if set["sentiment"] {
		cfg.Input.SentimentPath = opts.sentiment
	}
	if set["out"] {
		cfg.Output.Dir = opts.outDir
	}
	if set["clusters"] {
		cfg.Analysis.Clusters = opts.clusters
	}
	if set["seed"] {
		cfg.Analysis.Seed = opts.seed
	}
	if set["workbook"] {
		cfg.Output.Workbook = opts.workbook
	}
	if set["trace"] {
		cfg.Telemetry.EnableTracing = opts.trace
	}
	if set["metrics"] {
		cfg.Telemetry.EnableMetrics = opts.metrics
	}
	if set["log-level"] {
		cfg.Logging.Level = opts.logLevel
	}
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, set, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}

	cfg, err := config.Load(opts.configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	applyFlags(cfg, opts, set)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Invalid configuration: %v\n", err)
		return 1
	}
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Fprintf(stderr, "Failed to create required directories: %v\n", err)
		return 1
	}

	logger, err := infrastructure.NewLogger(cfg.Logging, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer infrastructure.CloseLogFile()

	runID := infrastructure.GenerateRunID()
	ctx := infrastructure.WithRunID(context.Background(), runID)

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfig{
		ServiceVersion: Version,
		RunID:          runID,
		EnableTracing:  cfg.Telemetry.EnableTracing,
		TraceFile:      cfg.TracePath(),
		SampleRatio:    cfg.Telemetry.SampleRatio,
		EnableMetrics:  cfg.Telemetry.EnableMetrics,
		MetricsFile:    cfg.RunMetricsPath(),
	}, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize telemetry", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	metrics, err := infrastructure.CreatePipelineMetrics(providers.Meter)
	if err != nil {
		logger.WarnContext(ctx, "Run metrics unavailable", slog.String("error", err.Error()))
		metrics = nil
	}

	logger.InfoContext(ctx, "Starting analysis",
		slog.String("trades", cfg.Input.TradesPath),
		slog.String("sentiment", cfg.Input.SentimentPath),
		slog.String("output_dir", cfg.Output.Dir),
		slog.Int("clusters", cfg.Analysis.Clusters))

	fmt.Fprintln(stdout, "=== Bitcoin Trading Analysis ===")
	fmt.Fprintln(stdout)

	runner := pipeline.NewRunner(cfg,
		pipeline.WithLogger(logger),
		pipeline.WithTracer(providers.Tracer),
		pipeline.WithMetrics(metrics),
	)
	state, err := runner.Run(ctx)
	if err != nil {
		printFailure(stderr, cfg, err)
		return 1
	}

	printSummary(stdout, state)
	return 0
}

func printSummary(w io.Writer, state *pipeline.State) {
	rows, cols := state.Merged.Shape()
	fmt.Fprintf(w, "Merged data: %d rows, %d columns (%d matched to sentiment)\n",
		rows, cols, state.MergeStats.Matched)
	fmt.Fprintf(w, "Analyzed %d unique traders\n\n", state.Metrics.Len())

	_ = report.PrintSentiment(w, state.Performance)
	fmt.Fprintln(w)
	_ = report.PrintTopCorrelations(w, state.Correlation, report.TopCorrelations)
	fmt.Fprintln(w)
	_ = report.PrintTests(w, state.Tests)
	fmt.Fprintln(w)

	if state.Metrics.Clustered {
		clusters := make(map[int]bool)
		for _, r := range state.Metrics.Rows {
			clusters[r.Cluster] = true
		}
		fmt.Fprintf(w, "Created %d trader clusters\n", len(clusters))
	}
	for _, st := range state.Skipped() {
		fmt.Fprintf(w, "Skipped %s: %s\n", st.Name, st.Message)
	}

	fmt.Fprintln(w, "\n=== Analysis Complete! ===")
	fmt.Fprintln(w, "Results saved to:")
	for _, path := range state.Outputs {
		fmt.Fprintf(w, "- %s\n", path)
	}
}

func printFailure(w io.Writer, cfg *config.Config, err error) {
	fmt.Fprintf(w, "\nError during analysis: %v\n", err)
	fmt.Fprintln(w, "\nTroubleshooting tips:")
	for _, hint := range remediation(cfg, err) {
		fmt.Fprintf(w, "- %s\n", hint)
	}
}

// remediation returns the hints matching the failure type
func remediation(cfg *config.Config, err error) []string {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrTypeLoad:
		return []string{
			fmt.Sprintf("Verify the trade file exists: %s", cfg.Input.TradesPath),
			fmt.Sprintf("Verify the sentiment file exists: %s", cfg.Input.SentimentPath),
			"Input files must be .csv, .tsv or .xlsx with a header row",
		}
	case apperrors.ErrTypeDateParse:
		return []string{
			"Check that Timestamp IST values are formatted DD-MM-YYYY HH:MM",
			"Check that the sentiment timestamp column holds Unix seconds",
		}
	case apperrors.ErrTypeNoOverlap:
		return []string{
			"The trade and sentiment files cover different dates",
			"Run the inspect command to compare the date ranges",
		}
	case apperrors.ErrTypeMissingColumn, apperrors.ErrTypeNoMetrics:
		return []string{
			"Run the inspect command to list the available columns",
			"Ensure the PnL, account and classification columns are named as expected",
		}
	case apperrors.ErrTypeExport:
		return []string{
			fmt.Sprintf("Check that the output directory is writable: %s", cfg.Output.Dir),
		}
	default:
		return []string{
			fmt.Sprintf("Verify the input files exist: %s and %s", cfg.Input.TradesPath, cfg.Input.SentimentPath),
			"Run with -log-level debug for more detail",
		}
	}
}
