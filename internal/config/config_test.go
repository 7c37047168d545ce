package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fullYAML = `
port: 9090
database_path: /tmp/parley-test.db

provider:
  base_url: https://api.example.com/v1/
  model: gemini-1.5-pro

save:
  debounce_ms: 500
  refresh_cron: "*/10 * * * * *"
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.DatabasePath != "/tmp/parley-test.db" {
		t.Errorf("DatabasePath = %q, want /tmp/parley-test.db", cfg.DatabasePath)
	}
	if cfg.Provider.BaseURL != "https://api.example.com/v1/" {
		t.Errorf("Provider.BaseURL = %q, want %q", cfg.Provider.BaseURL, "https://api.example.com/v1/")
	}
	if cfg.Provider.Model != "gemini-1.5-pro" {
		t.Errorf("Provider.Model = %q, want %q", cfg.Provider.Model, "gemini-1.5-pro")
	}
	if cfg.Save.DebounceMillis != 500 {
		t.Errorf("Save.DebounceMillis = %d, want 500", cfg.Save.DebounceMillis)
	}
	if cfg.Save.RefreshCron != "*/10 * * * * *" {
		t.Errorf("Save.RefreshCron = %q, want %q", cfg.Save.RefreshCron, "*/10 * * * * *")
	}
}

func TestParse_EmptyConfig_AppliesDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080 (default)", cfg.Port)
	}
	if cfg.DatabasePath != "parley.db" {
		t.Errorf("DatabasePath = %q, want %q (default)", cfg.DatabasePath, "parley.db")
	}
	if !strings.Contains(cfg.Provider.BaseURL, "generativelanguage.googleapis.com") {
		t.Errorf("Provider.BaseURL = %q, want Gemini compatibility endpoint", cfg.Provider.BaseURL)
	}
	if cfg.Provider.Model != "gemini-1.5-flash" {
		t.Errorf("Provider.Model = %q, want %q (default)", cfg.Provider.Model, "gemini-1.5-flash")
	}
	if cfg.Save.DebounceMillis != 2000 {
		t.Errorf("Save.DebounceMillis = %d, want 2000 (default)", cfg.Save.DebounceMillis)
	}
	if cfg.Save.RefreshCron != "*/5 * * * * *" {
		t.Errorf("Save.RefreshCron = %q, want %q (default)", cfg.Save.RefreshCron, "*/5 * * * * *")
	}
}

func TestParse_EnvOverridesFile(t *testing.T) {
	t.Setenv("PARLEY_PORT", "7070")
	t.Setenv("PARLEY_MODEL", "gemini-2.0-flash")

	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("Port = %d, want 7070 (env override)", cfg.Port)
	}
	if cfg.Provider.Model != "gemini-2.0-flash" {
		t.Errorf("Provider.Model = %q, want %q (env override)", cfg.Provider.Model, "gemini-2.0-flash")
	}
	// File values without env overrides survive.
	if cfg.Save.DebounceMillis != 500 {
		t.Errorf("Save.DebounceMillis = %d, want 500", cfg.Save.DebounceMillis)
	}
}

func TestParse_APIKeyOnlyFromEnv(t *testing.T) {
	t.Setenv("PARLEY_API_KEY", "sk-test-key")

	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Provider.APIKey != "sk-test-key" {
		t.Errorf("Provider.APIKey = %q, want %q", cfg.Provider.APIKey, "sk-test-key")
	}
}

func TestParse_PortOutOfRange(t *testing.T) {
	_, err := Parse([]byte("port: 99999"))
	if err == nil {
		t.Fatal("expected error for out-of-range port")
	}
	if !strings.Contains(err.Error(), "out of range") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "out of range")
	}
}

func TestParse_NegativeDebounce(t *testing.T) {
	_, err := Parse([]byte("save:\n  debounce_ms: -1"))
	if err == nil {
		t.Fatal("expected error for negative debounce")
	}
	if !strings.Contains(err.Error(), "debounce_ms") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "debounce_ms")
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte(":::invalid"))
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "config: parse:") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "config: parse:")
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "parley.yaml")
	if err := os.WriteFile(path, []byte(fullYAML), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
}

func TestLoad_MissingFile_UsesDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/parley.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080 (default)", cfg.Port)
	}
}
