package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingFileReturnsDefaultsAndWritesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigPath, path)

	config, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config != Default() {
		t.Errorf("expected defaults, got %+v", config)
	}

	written, readErr := os.ReadFile(path)
	if readErr != nil {
		t.Fatalf("template was not written: %v", readErr)
	}
	if string(written) != DefaultConfigTemplate {
		t.Errorf("template content mismatch:\n%s", written)
	}
}

func TestLoad_TemplateParsesBackToItsOwnValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigPath, path)

	if err := os.WriteFile(path, []byte(DefaultConfigTemplate), 0o644); err != nil {
		t.Fatalf("writing template: %v", err)
	}

	config, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Model != "gpt-4o" || config.ResourceGroup != "default" || config.LogLevel != "info" {
		t.Errorf("template values corrupted: %+v", config)
	}
	if config.Retry.MaxRetries != 3 {
		t.Errorf("retry.max_retries: got %d, want 3", config.Retry.MaxRetries)
	}
	if config.Retry.InitialBackoff.Std() != time.Second || config.Retry.MaxBackoff.Std() != 30*time.Second {
		t.Errorf("retry backoff durations corrupted: %+v", config.Retry)
	}
}

func TestLoad_PartialFileKeepsDefaultsForOmittedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigPath, path)

	if err := os.WriteFile(path, []byte("model: claude-sonnet\nmax_tokens: 2048\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	config, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Model != "claude-sonnet" {
		t.Errorf("model: got %q", config.Model)
	}
	if config.MaxTokens != 2048 {
		t.Errorf("max_tokens: got %d", config.MaxTokens)
	}
	if config.ResourceGroup != "default" || config.LogLevel != "info" {
		t.Errorf("omitted fields must keep their defaults: %+v", config)
	}
}

func TestLoad_InvalidFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigPath, path)

	if err := os.WriteFile(path, []byte("model: [unclosed"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("a present-but-invalid file must be an error, not silently defaulted")
	}
}

func TestLoad_BadDurationIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigPath, path)

	if err := os.WriteFile(path, []byte("retry:\n  initial_backoff: soon\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error for an unparsable duration")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error should name the bad duration: %v", err)
	}
}
