// Package config provides configuration loading for the book translator.
// Supports a YAML file, environment variables, and built-in defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spherical/book-translator/internal/domain"
)

// Config holds all configuration for a translation run.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Retry   RetryConfig   `yaml:"retry"`
	Context ContextConfig `yaml:"context"`
	Capture CaptureConfig `yaml:"capture"`
	Log     LogConfig     `yaml:"log"`
}

// BackendConfig holds inference backend settings. The API key is taken from
// the environment only and never from the YAML file.
type BackendConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Model          string        `yaml:"model"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	APIKey         string        `yaml:"-"`
}

// RetryConfig holds the backoff tunables for the inference client.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	Jitter      bool          `yaml:"jitter"`
}

// ContextConfig holds context-window settings.
type ContextConfig struct {
	WindowSize int `yaml:"window_size"`
}

// CaptureConfig holds live-capture source settings.
type CaptureConfig struct {
	MaxConsecutiveEmpty int `yaml:"max_consecutive_empty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Backend: BackendConfig{
			BaseURL:        "https://openrouter.ai/api/v1/chat/completions",
			Model:          "google/gemini-2.5-flash",
			RequestTimeout: 2 * time.Minute,
		},
		Retry: RetryConfig{
			MaxAttempts: 5,
			BaseDelay:   time.Second,
			MaxDelay:    60 * time.Second,
			Jitter:      true,
		},
		Context: ContextConfig{WindowSize: 1},
		Capture: CaptureConfig{MaxConsecutiveEmpty: 5},
		Log:     LogConfig{Level: "info", Format: "console"},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment overrides, in that order.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, domain.ConfigError(fmt.Sprintf("reading config file %s", path), err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, domain.ConfigError(fmt.Sprintf("parsing config file %s", path), err)
		}
	}

	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.Backend.APIKey = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.Backend.Model = v
	}

	return cfg, nil
}

// Validate checks that the configuration can drive a run.
func (c Config) Validate() error {
	if c.Backend.APIKey == "" {
		return domain.ConfigError("OPENROUTER_API_KEY environment variable not set", nil)
	}
	if c.Retry.MaxAttempts < 1 {
		return domain.ConfigError("retry.max_attempts must be at least 1", nil)
	}
	if c.Retry.BaseDelay <= 0 || c.Retry.MaxDelay < c.Retry.BaseDelay {
		return domain.ConfigError("retry delays must satisfy 0 < base_delay <= max_delay", nil)
	}
	if c.Context.WindowSize < 0 {
		return domain.ConfigError("context.window_size cannot be negative", nil)
	}
	return nil
}
