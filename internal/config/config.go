// Package config loads pipeline configuration from the environment. A
// .env file, when present, is loaded by the entry point before this runs.
package config

import (
	"fmt"
	"os"
	"strings"
)

// Config is the complete application configuration
type Config struct {
	Paths    PathConfig
	Pipeline PipelineConfig
	Database DatabaseConfig
	Server   ServerConfig
}

// PathConfig holds filesystem locations
type PathConfig struct {
	ManifestFile string // sumstat manifest (xlsx/csv/tsv)
	TraitLogDir  string // trait-vs-metric estimator logs
	MetricLogDir string // metric-vs-metric estimator logs
	OutputDir    string // artifact destination
}

// PipelineConfig holds assembly and axis policy
type PipelineConfig struct {
	Traits       []string // trait display names to include
	Metrics      []string // metric axis order; empty means first-seen
	MetricPrefix string   // stripped from subject B paths
	MetricSuffix string
}

// DatabaseConfig holds optional persistence settings; empty URL disables it
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds the results viewer settings
type ServerConfig struct {
	Port string
}

// Load reads configuration from the environment with defaults suitable for
// a local run
func Load() (*Config, error) {
	cfg := &Config{
		Paths: PathConfig{
			ManifestFile: getEnv("GENCORR_MANIFEST", "data/manifest.csv"),
			TraitLogDir:  getEnv("GENCORR_TRAIT_LOGS", "logs/traits"),
			MetricLogDir: getEnv("GENCORR_METRIC_LOGS", "logs/metrics"),
			OutputDir:    getEnv("GENCORR_OUTPUT", "out"),
		},
		Pipeline: PipelineConfig{
			Traits:       getEnvList("GENCORR_TRAITS"),
			Metrics:      getEnvList("GENCORR_METRICS"),
			MetricPrefix: getEnv("GENCORR_METRIC_PREFIX", "metrics/"),
			MetricSuffix: getEnv("GENCORR_METRIC_SUFFIX", ".sumstats.gz"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Server: ServerConfig{
			Port: getEnv("GENCORR_PORT", "8094"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Paths.ManifestFile == "" {
		return fmt.Errorf("GENCORR_MANIFEST must not be empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// getEnvList parses a semicolon-separated list; display names contain
// commas, so comma cannot be the separator here
func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
