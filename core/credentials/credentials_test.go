package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"genaihub/providers/ai"
)

const validServiceKey = `{
	"clientid": "sb-client",
	"clientsecret": "s3cret",
	"url": "https://auth.example.com",
	"serviceurls": {"AI_API_URL": "https://api.example.com"}
}`

// isolateEnv points the file lookup at a nonexistent path and clears the env
// fallbacks, so each test starts from a clean resolution state.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "does-not-exist.json"))
	t.Setenv(EnvServiceKey, "")
	t.Setenv(EnvProxyBaseURL, "")
}

func writeKeyFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing key file: %v", err)
	}
	return path
}

func TestResolve_ValidKeyFile(t *testing.T) {
	isolateEnv(t)
	t.Setenv(EnvConfigPath, writeKeyFile(t, validServiceKey))

	resolution := Resolve()
	if resolution.Err != nil {
		t.Fatalf("unexpected error: %v", resolution.Err)
	}
	if resolution.Credentials == nil {
		t.Fatal("expected credentials from the key file")
	}

	creds := resolution.Credentials
	if creds.ClientID != "sb-client" || creds.ClientSecret != "s3cret" {
		t.Errorf("client fields corrupted: %+v", creds)
	}
	if creds.AuthURL != "https://auth.example.com" {
		t.Errorf("AuthURL: got %q", creds.AuthURL)
	}
	if creds.AIAPIURL != "https://api.example.com" {
		t.Errorf("AIAPIURL: got %q", creds.AIAPIURL)
	}
}

func TestResolve_MissingFieldsAllNamedAtOnce(t *testing.T) {
	isolateEnv(t)
	t.Setenv(EnvConfigPath, writeKeyFile(t, `{"clientid": "sb-client"}`))

	resolution := Resolve()
	if resolution.Credentials != nil {
		t.Fatal("an incomplete key must not yield credentials")
	}

	var configErr *ai.ConfigurationError
	if !errors.As(resolution.Err, &configErr) {
		t.Fatalf("expected a ConfigurationError, got %v", resolution.Err)
	}

	// One error names every absent field, so the user fixes the key in one
	// round trip instead of replaying the whack-a-mole.
	for _, field := range []string{"clientsecret", "url", "serviceurls.AI_API_URL"} {
		if !strings.Contains(configErr.Error(), field) {
			t.Errorf("error should name %q: %v", field, configErr)
		}
	}
	if strings.Contains(configErr.Error(), "clientid") {
		t.Errorf("error should not name present fields: %v", configErr)
	}
}

func TestResolve_InvalidFileNeverFallsThrough(t *testing.T) {
	isolateEnv(t)
	t.Setenv(EnvConfigPath, writeKeyFile(t, "{not json"))
	// Even with a proxy configured, a present-but-broken key is a hard error:
	// silently switching transports would mask the misconfiguration.
	t.Setenv(EnvProxyBaseURL, "https://proxy.example.com")

	resolution := Resolve()
	if resolution.Err == nil {
		t.Fatal("expected a hard error for a malformed key file")
	}
	if resolution.ProxyBaseURL != "" {
		t.Error("an invalid key must not fall through to the proxy")
	}
}

func TestResolve_EnvServiceKeyBlob(t *testing.T) {
	isolateEnv(t)
	t.Setenv(EnvServiceKey, validServiceKey)

	resolution := Resolve()
	if resolution.Err != nil {
		t.Fatalf("unexpected error: %v", resolution.Err)
	}
	if resolution.Credentials == nil || resolution.Credentials.ClientID != "sb-client" {
		t.Errorf("expected credentials from the env blob, got %+v", resolution.Credentials)
	}
}

func TestResolve_FileTakesPriorityOverEnv(t *testing.T) {
	isolateEnv(t)
	fileKey := strings.Replace(validServiceKey, "sb-client", "from-file", 1)
	envKey := strings.Replace(validServiceKey, "sb-client", "from-env", 1)
	t.Setenv(EnvConfigPath, writeKeyFile(t, fileKey))
	t.Setenv(EnvServiceKey, envKey)

	resolution := Resolve()
	if resolution.Credentials == nil || resolution.Credentials.ClientID != "from-file" {
		t.Errorf("the key file outranks the env blob, got %+v", resolution.Credentials)
	}
}

func TestResolve_ProxyFallback(t *testing.T) {
	isolateEnv(t)
	t.Setenv(EnvProxyBaseURL, "https://proxy.example.com")

	resolution := Resolve()
	if resolution.Err != nil {
		t.Fatalf("unexpected error: %v", resolution.Err)
	}
	if resolution.Credentials != nil {
		t.Error("no credentials expected in a proxy environment")
	}
	if resolution.ProxyBaseURL != "https://proxy.example.com" {
		t.Errorf("ProxyBaseURL: got %q", resolution.ProxyBaseURL)
	}
}

func TestResolve_NothingConfiguredIsSoftFailure(t *testing.T) {
	isolateEnv(t)

	resolution := Resolve()
	if resolution.Err != nil {
		t.Errorf("finding nothing is a soft failure, got error: %v", resolution.Err)
	}
	if resolution.Credentials != nil || resolution.ProxyBaseURL != "" {
		t.Errorf("expected an empty resolution, got %+v", resolution)
	}
}
