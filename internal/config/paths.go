package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// EnvPrefix is the prefix of every environment variable read by Load
const EnvPrefix = "BTCS"

// Built-in locations and analysis parameters
const (
	DefaultRawDir        = "data/raw"
	DefaultOutputDir     = "data/processed"
	DefaultTradesFile    = "historical_data.csv"
	DefaultSentimentFile = "fear_greed_index.csv"

	DefaultClusters = 3
	DefaultSeed     = 42
	DefaultRestarts = 10
	DefaultAlpha    = 0.05
)

// EnsureDirectories creates the output directory and, when logging to a
// file, the log directory
func (c *Config) EnsureDirectories() error {
	directories := []string{c.Output.Dir}
	if c.Logging.Output != "console" && c.Logging.FilePath != "" {
		directories = append(directories, filepath.Dir(c.Logging.FilePath))
	}
	if c.Telemetry.EnableTracing && c.Telemetry.TraceFile != "" {
		directories = append(directories, filepath.Dir(c.TracePath()))
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
