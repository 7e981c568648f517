// CLAUDE:SUMMARY clarity configuration: YAML file merged over defaults, then environment overrides.
// Package config loads the clarity configuration: defaults, then an
// optional YAML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/clarity/analysis"
	"github.com/hazyhaar/clarity/classify"
	"github.com/hazyhaar/clarity/docpipe"
)

// Config holds the full clarity configuration.
type Config struct {
	Listen   string `yaml:"listen"`
	MaxConns int    `yaml:"max_conns"` // concurrent HTTP connections, 0 = unlimited
	LogLevel string `yaml:"log_level"`

	// MetricsDB is the SQLite file receiving metrics. Empty disables them.
	MetricsDB string `yaml:"metrics_db"`

	Classifier classify.Config `yaml:"classifier"`
	Ingest     docpipe.Config  `yaml:"ingest"`
	Analysis   analysis.Config `yaml:"analysis"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:   ":8090",
		MaxConns: 256,
		LogLevel: "info",
		Classifier: classify.Config{
			Provider:    classify.ProviderAnthropic,
			MaxAttempts: 3,
			MaxInFlight: 8,
		},
		Ingest: docpipe.Config{MaxFileSize: 50 << 20},
		Analysis: analysis.Config{
			Concurrency:    4,
			MaxUploadBytes: 50 << 20,
		},
	}
}

// LoadConfig reads and parses a YAML config file over DefaultConfig, then
// applies environment overrides. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from CLARITY_* variables and the provider key
// variables. CLARITY_API_KEY wins over the provider-specific one.
func (c *Config) ApplyEnv() {
	c.Listen = env("CLARITY_LISTEN", c.Listen)
	c.LogLevel = env("LOG_LEVEL", c.LogLevel)
	c.MetricsDB = env("CLARITY_METRICS_DB", c.MetricsDB)
	c.Analysis.OutputDir = env("CLARITY_OUTPUT_DIR", c.Analysis.OutputDir)
	c.MaxConns = envInt("CLARITY_MAX_CONNS", c.MaxConns)
	c.Analysis.Concurrency = envInt("CLARITY_CONCURRENCY", c.Analysis.Concurrency)

	c.Classifier.Provider = env("CLARITY_PROVIDER", c.Classifier.Provider)
	c.Classifier.Model = env("CLARITY_MODEL", c.Classifier.Model)
	c.Classifier.Endpoint = env("CLARITY_ENDPOINT", c.Classifier.Endpoint)
	if key := providerKeyEnv[c.Classifier.Provider]; key != "" {
		c.Classifier.APIKey = env(key, c.Classifier.APIKey)
	}
	c.Classifier.APIKey = env("CLARITY_API_KEY", c.Classifier.APIKey)
}

var providerKeyEnv = map[string]string{
	classify.ProviderAnthropic:   "ANTHROPIC_API_KEY",
	classify.ProviderOpenAI:      "OPENAI_API_KEY",
	classify.ProviderGemini:      "GEMINI_API_KEY",
	classify.ProviderHuggingFace: "HF_API_TOKEN",
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	if c.MaxConns < 0 {
		return fmt.Errorf("max_conns must be >= 0")
	}
	switch c.Classifier.Provider {
	case classify.ProviderAnthropic, classify.ProviderOpenAI, classify.ProviderGemini,
		classify.ProviderHuggingFace, classify.ProviderKeyword:
	default:
		return fmt.Errorf("classifier.provider: unsupported %q", c.Classifier.Provider)
	}
	if c.Classifier.MaxAttempts < 1 || c.Classifier.MaxAttempts > 10 {
		return fmt.Errorf("classifier.max_attempts must be between 1 and 10")
	}
	if c.Classifier.MaxInFlight < 1 {
		return fmt.Errorf("classifier.max_in_flight must be > 0")
	}
	if c.Analysis.Concurrency < 1 {
		return fmt.Errorf("analysis.concurrency must be > 0")
	}
	if c.Ingest.MaxFileSize <= 0 || c.Analysis.MaxUploadBytes <= 0 {
		return fmt.Errorf("ingest.max_file_size and analysis.max_upload_bytes must be > 0")
	}
	if c.Analysis.RateLimit.Enabled && (c.Analysis.RateLimit.MaxRequests <= 0 || c.Analysis.RateLimit.WindowSeconds <= 0) {
		return fmt.Errorf("analysis.rate_limit: max_requests and window_seconds must be > 0")
	}
	return nil
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	n, err := strconv.Atoi(env(key, ""))
	if err != nil {
		return def
	}
	return n
}
