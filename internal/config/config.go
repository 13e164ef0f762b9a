package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Input     InputConfig     `yaml:"input" envconfig:"INPUT"`
	Output    OutputConfig    `yaml:"output" envconfig:"OUTPUT"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// InputConfig locates the two raw input files
type InputConfig struct {
	TradesPath    string `yaml:"trades_path" envconfig:"TRADES_PATH" validate:"required"`
	SentimentPath string `yaml:"sentiment_path" envconfig:"SENTIMENT_PATH" validate:"required"`
}

// OutputConfig controls where result files are written
type OutputConfig struct {
	Dir             string `yaml:"dir" envconfig:"DIR" validate:"required"`
	MergedFile      string `yaml:"merged_file" envconfig:"MERGED_FILE" validate:"required"`
	MetricsFile     string `yaml:"metrics_file" envconfig:"METRICS_FILE" validate:"required"`
	SentimentFile   string `yaml:"sentiment_file" envconfig:"SENTIMENT_FILE" validate:"required"`
	CorrelationFile string `yaml:"correlation_file" envconfig:"CORRELATION_FILE" validate:"required"`
	ReportFile      string `yaml:"report_file" envconfig:"REPORT_FILE" validate:"required"`
	Workbook        bool   `yaml:"workbook" envconfig:"WORKBOOK"`
	WorkbookFile    string `yaml:"workbook_file" envconfig:"WORKBOOK_FILE" validate:"required_if=Workbook true"`
	BOMPrefix       bool   `yaml:"bom_prefix" envconfig:"BOM_PREFIX"`
}

// AnalysisConfig holds the tunable analysis parameters
type AnalysisConfig struct {
	Clusters int     `yaml:"clusters" envconfig:"CLUSTERS" validate:"min=1,max=50"`
	Seed     uint64  `yaml:"seed" envconfig:"SEED"`
	Restarts int     `yaml:"restarts" envconfig:"RESTARTS" validate:"min=1,max=100"`
	Alpha    float64 `yaml:"alpha" envconfig:"ALPHA" validate:"gt=0,lt=1"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_unless=Output console"`
}

// TelemetryConfig controls span and run-metric export
type TelemetryConfig struct {
	EnableTracing bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	TraceFile     string  `yaml:"trace_file" envconfig:"TRACE_FILE" validate:"required_if=EnableTracing true"`
	SampleRatio   float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
	EnableMetrics bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	MetricsFile   string  `yaml:"metrics_file" envconfig:"METRICS_FILE" validate:"required_if=EnableMetrics true"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Input: InputConfig{
			TradesPath:    filepath.Join(DefaultRawDir, DefaultTradesFile),
			SentimentPath: filepath.Join(DefaultRawDir, DefaultSentimentFile),
		},
		Output: OutputConfig{
			Dir:             DefaultOutputDir,
			MergedFile:      "merged_data.csv",
			MetricsFile:     "trader_metrics.csv",
			SentimentFile:   "sentiment_performance.csv",
			CorrelationFile: "correlation_matrix.csv",
			ReportFile:      "analysis_report.txt",
			Workbook:        false,
			WorkbookFile:    "analysis.xlsx",
			BOMPrefix:       false,
		},
		Analysis: AnalysisConfig{
			Clusters: DefaultClusters,
			Seed:     DefaultSeed,
			Restarts: DefaultRestarts,
			Alpha:    DefaultAlpha,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/analysis.log",
		},
		Telemetry: TelemetryConfig{
			EnableTracing: false,
			TraceFile:     "trace.json",
			SampleRatio:   1.0,
			EnableMetrics: false,
			MetricsFile:   "run_metrics.prom",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, in increasing order of precedence. A .env file in
// the working directory is loaded into the environment first if present.
// An empty configFile falls back to BTCS_CONFIG_FILE, then to no file.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if configFile == "" {
		configFile = os.Getenv(EnvPrefix + "_CONFIG_FILE")
	}
	if configFile != "" {
		if err := loadFromFile(configFile, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Keys absent from the file
// keep their current value.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

var validate = validator.New()

// Validate checks the configuration against its struct tags
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%s", strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// OutputPath resolves a result file name against the output directory
func (c *Config) OutputPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Output.Dir, name)
}

// MergedPath returns the merged dataset path
func (c *Config) MergedPath() string { return c.OutputPath(c.Output.MergedFile) }

// MetricsPath returns the trader metrics path
func (c *Config) MetricsPath() string { return c.OutputPath(c.Output.MetricsFile) }

// SentimentPath returns the sentiment performance path
func (c *Config) SentimentPath() string { return c.OutputPath(c.Output.SentimentFile) }

// CorrelationPath returns the correlation matrix path
func (c *Config) CorrelationPath() string { return c.OutputPath(c.Output.CorrelationFile) }

// ReportPath returns the text report path
func (c *Config) ReportPath() string { return c.OutputPath(c.Output.ReportFile) }

// WorkbookPath returns the XLSX workbook path
func (c *Config) WorkbookPath() string { return c.OutputPath(c.Output.WorkbookFile) }

// TracePath returns the span export path
func (c *Config) TracePath() string { return c.OutputPath(c.Telemetry.TraceFile) }

// RunMetricsPath returns the Prometheus textfile path
func (c *Config) RunMetricsPath() string { return c.OutputPath(c.Telemetry.MetricsFile) }
