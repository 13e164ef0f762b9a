// Package config provides configuration management for the analysis tools.
// It merges several sources into one validated Config value.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//  1. Command-line flags (applied by each cmd after Load)
//  2. Environment variables, including a .env file in the working directory
//  3. A YAML configuration file
//  4. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern BTCS_<SECTION>_<FIELD>:
//
//	BTCS_CONFIG_FILE=config.yaml
//	BTCS_INPUT_TRADES_PATH=data/raw/historical_data.csv
//	BTCS_OUTPUT_DIR=data/processed
//	BTCS_ANALYSIS_CLUSTERS=3
//	BTCS_LOGGING_LEVEL=debug
//	BTCS_TELEMETRY_ENABLE_METRICS=true
//
// # Usage
//
//	cfg, err := config.Load(*configFile)
//	if err != nil {
//	    return err
//	}
//	if err := cfg.EnsureDirectories(); err != nil {
//	    return err
//	}
package config
