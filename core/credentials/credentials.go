package credentials

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"

	"genaihub/providers/ai"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// DefaultFileName is the well-known service-key location relative to the
	// user's home directory.
	DefaultFileName = ".aicore/config.json"

	// EnvConfigPath overrides the service-key file location.
	EnvConfigPath = "AICORE_CONFIG_PATH"

	// EnvServiceKey carries the serialized service-key JSON blob for
	// environments where writing a file is not possible.
	EnvServiceKey = "AICORE_SERVICE_KEY"

	// EnvProxyBaseURL supplies the deployment-proxy base URL inside managed
	// build environments. Its presence is what marks such an environment.
	EnvProxyBaseURL = "AICORE_PROXY_BASE_URL"
)

// Credentials is the validated content of an AI Core service key. It is
// written once by Resolve and read by the transports it is passed into;
// it is never installed as process-global state.
type Credentials struct {
	ClientID     string
	ClientSecret string
	AuthURL      string // OAuth token endpoint base
	AIAPIURL     string // serviceurls.AI_API_URL
}

// serviceKey mirrors the on-disk service-key document. All fields are
// required; validation reports every missing one in a single error.
type serviceKey struct {
	ClientID     string `json:"clientid"`
	ClientSecret string `json:"clientsecret"`
	URL          string `json:"url"`
	ServiceURLs  struct {
		AIAPIURL string `json:"AI_API_URL"`
	} `json:"serviceurls"`
}

// Resolution is the outcome of credential resolution. Exactly one of the
// following holds:
//   - Credentials != nil: a valid service key was found (file or env)
//   - ProxyBaseURL != "":  managed-build fallback, use the proxy transport
//   - Err != nil:          a service key was found but is invalid
//   - all zero:            no transport available (soft failure, logged)
type Resolution struct {
	Credentials  *Credentials
	ProxyBaseURL string
	Err          error
}

// Resolve determines which backend transport is reachable, in fixed priority:
// service-key file, env-injected service key, deployment-proxy fallback.
// A present-but-invalid key is a hard failure and never falls through to the
// proxy; a missing key does. Finding nothing is a soft failure surfaced only
// via log output, deferring the error to the first request attempt.
func Resolve() Resolution {
	path := keyFilePath()

	raw, readErr := os.ReadFile(path)
	switch {
	case readErr == nil:
		creds, err := parseServiceKey(raw, "file")
		if err != nil {
			return Resolution{Err: err}
		}
		return Resolution{Credentials: creds}

	case !os.IsNotExist(readErr):
		// The file exists but cannot be read; treat like an invalid key.
		return Resolution{Err: &ai.ConfigurationError{Source: "file", Cause: readErr}}
	}

	if blob := os.Getenv(EnvServiceKey); blob != "" {
		creds, err := parseServiceKey([]byte(blob), "env")
		if err != nil {
			return Resolution{Err: err}
		}
		return Resolution{Credentials: creds}
	}

	if base := os.Getenv(EnvProxyBaseURL); base != "" {
		return Resolution{ProxyBaseURL: base}
	}

	slog.Warn("no AI Core credentials found; requests will fail until configured",
		"file", path, "env", EnvServiceKey)
	return Resolution{}
}

// keyFilePath returns the service-key file location, honoring the
// EnvConfigPath override.
func keyFilePath() string {
	if override := os.Getenv(EnvConfigPath); override != "" {
		return override
	}

	home, err := os.UserHomeDir()
	if err != nil {
		// Fall back to a relative path; the subsequent read will fail and
		// resolution proceeds to the env / proxy steps.
		return DefaultFileName
	}
	return filepath.Join(home, DefaultFileName)
}

// parseServiceKey parses and validates a whole-document service key.
// Every absent required field is reported in one message.
func parseServiceKey(raw []byte, source string) (*Credentials, error) {
	var key serviceKey
	if err := json.Unmarshal(raw, &key); err != nil {
		return nil, &ai.ConfigurationError{Source: source, Cause: fmt.Errorf("parsing service key: %w", err)}
	}

	var missing []string
	if key.ClientID == "" {
		missing = append(missing, "clientid")
	}
	if key.ClientSecret == "" {
		missing = append(missing, "clientsecret")
	}
	if key.URL == "" {
		missing = append(missing, "url")
	}
	if key.ServiceURLs.AIAPIURL == "" {
		missing = append(missing, "serviceurls.AI_API_URL")
	}
	if len(missing) > 0 {
		return nil, &ai.ConfigurationError{Source: source, MissingFields: missing}
	}

	return &Credentials{
		ClientID:     key.ClientID,
		ClientSecret: key.ClientSecret,
		AuthURL:      key.URL,
		AIAPIURL:     key.ServiceURLs.AIAPIURL,
	}, nil
}
