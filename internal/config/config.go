// Package config provides YAML-based configuration loading for Parley,
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the top-level Parley configuration, loaded from parley.yaml.
type Config struct {
	Port         int            `yaml:"port" env:"PARLEY_PORT"`
	DatabasePath string         `yaml:"database_path" env:"PARLEY_DB_PATH"`
	Provider     ProviderConfig `yaml:"provider"`
	Save         SaveConfig     `yaml:"save"`
}

// ProviderConfig holds settings for the upstream generative-language API.
type ProviderConfig struct {
	// BaseURL points at an OpenAI-compatible chat completions endpoint.
	BaseURL string `yaml:"base_url" env:"PARLEY_BASE_URL"`
	Model   string `yaml:"model" env:"PARLEY_MODEL"`
	// APIKey is never read from the config file.
	APIKey string `yaml:"-" env:"PARLEY_API_KEY"`
}

// SaveConfig holds auto-save and session browser refresh settings.
type SaveConfig struct {
	// DebounceMillis is the quiet period before a pending auto-save fires.
	DebounceMillis int `yaml:"debounce_ms" env:"PARLEY_SAVE_DEBOUNCE_MS"`
	// RefreshCron is a 6-field (seconds-resolution) cron expression for the
	// session browser's poll fallback.
	RefreshCron string `yaml:"refresh_cron" env:"PARLEY_REFRESH_CRON"`
}

// Load reads a YAML config file from path, applies environment overrides,
// and returns a validated Config. A missing file is not an error; env vars
// and defaults alone are enough to run.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			data = nil
		} else {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config. Environment
// variables override file values.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse: %w", err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: env: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "parley.db"
	}
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	}
	if c.Provider.Model == "" {
		c.Provider.Model = "gemini-1.5-flash"
	}
	if c.Save.DebounceMillis == 0 {
		c.Save.DebounceMillis = 2000
	}
	if c.Save.RefreshCron == "" {
		c.Save.RefreshCron = "*/5 * * * * *"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("port %d out of range", c.Port))
	}
	if c.Save.DebounceMillis < 0 {
		errs = append(errs, "save.debounce_ms must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
