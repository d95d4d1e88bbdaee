package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if got := cfg.Backends.Chain; len(got) != 2 || got[0] != "jina" || got[1] != "chrome" {
		t.Errorf("default chain = %v", got)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("Retry.MaxAttempts = %d, want 3", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.BaseDelayMs != 1000 {
		t.Errorf("Retry.BaseDelayMs = %d, want 1000", cfg.Retry.BaseDelayMs)
	}
	if cfg.Batch.MaxConcurrency != 5 {
		t.Errorf("Batch.MaxConcurrency = %d, want 5", cfg.Batch.MaxConcurrency)
	}
	if !cfg.Chrome.Headless {
		t.Error("Chrome should be headless by default")
	}
	if cfg.Cache.RetryFailures {
		t.Error("cached failures should be served by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `[backends]
chain = ["static", "chrome"]

[jina]
timeout = 60

[logging]
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := cfg.Backends.Chain; len(got) != 2 || got[0] != "static" {
		t.Errorf("chain = %v, want [static chrome]", got)
	}
	if cfg.Jina.Timeout != 60 {
		t.Errorf("Jina.Timeout = %d, want 60", cfg.Jina.Timeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	// Untouched sections keep their defaults.
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("Retry.MaxAttempts = %d, want default 3", cfg.Retry.MaxAttempts)
	}
}

func TestCreateExampleConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	cfg := Default()
	if err := cfg.CreateExampleConfig(path); err != nil {
		t.Fatalf("CreateExampleConfig failed: %v", err)
	}

	// The example must itself be loadable.
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("example config does not load: %v", err)
	}
	if got := loaded.Backends.Chain; len(got) != 2 || got[0] != "jina" {
		t.Errorf("chain = %v", got)
	}
}
