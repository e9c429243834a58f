// Package config loads optional adapter settings from a YAML file. The file
// is not required: a missing file yields defaults, and on first run a
// commented template is written so users can discover the knobs. Credentials
// are deliberately not part of this file; they live in the service key
// handled by core/credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath overrides the settings file location.
const EnvConfigPath = "GENAIHUB_CONFIG_PATH"

// defaultRelPath is the settings file location relative to the home directory.
const defaultRelPath = ".genaihub/config.yaml"

// Config is the root settings structure.
type Config struct {
	Model         string      `yaml:"model"`
	ResourceGroup string      `yaml:"resource_group"`
	MaxTokens     int         `yaml:"max_tokens"`
	LogLevel      string      `yaml:"log_level"` // debug|info|warn|error
	Retry         RetryConfig `yaml:"retry"`
}

// RetryConfig tunes the retry middleware. Zero values fall back to the
// middleware's documented defaults.
type RetryConfig struct {
	MaxRetries     int      `yaml:"max_retries"`
	InitialBackoff Duration `yaml:"initial_backoff"`
	MaxBackoff     Duration `yaml:"max_backoff"`
}

// Duration wraps time.Duration so YAML values can be written in the human
// form ("1s", "500ms") instead of raw nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (duration *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*duration = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (duration Duration) Std() time.Duration { return time.Duration(duration) }

// Default returns the built-in settings used when no file exists.
func Default() Config {
	return Config{
		Model:         "gpt-4o",
		ResourceGroup: "default",
		LogLevel:      "info",
	}
}

// DefaultConfigTemplate is written on first run so users can discover the
// available settings.
const DefaultConfigTemplate = `model: "gpt-4o"
resource_group: "default"
# max_tokens: 1024
log_level: "info"
retry:
  max_retries: 3
  initial_backoff: 1s
  max_backoff: 30s
`

// Load reads the settings file from GENAIHUB_CONFIG_PATH or
// ~/.genaihub/config.yaml. A missing file returns Default() after writing
// the template; a present-but-invalid file is an error, never silently
// replaced by defaults.
func Load() (Config, error) {
	path, err := configPath()
	if err != nil {
		return Default(), nil
	}

	raw, readErr := os.ReadFile(path)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			writeTemplate(path)
			return Default(), nil
		}
		return Config{}, fmt.Errorf("reading config %s: %w", path, readErr)
	}

	config := Default()
	if err := yaml.Unmarshal(raw, &config); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return config, nil
}

func configPath() (string, error) {
	if override := os.Getenv(EnvConfigPath); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, defaultRelPath), nil
}

// writeTemplate best-effort creates the template file; failures are ignored
// since the defaults are already in hand.
func writeTemplate(path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	_ = os.WriteFile(path, []byte(DefaultConfigTemplate), 0o644)
}
