package credentials

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// tokenExpirySlack is subtracted from the advertised lifetime so a token is
// refreshed before the backend would reject it.
const tokenExpirySlack = 30 * time.Second

// TokenSource exchanges client credentials for short-lived bearer tokens and
// caches the result until shortly before expiry. It is shared by the direct
// and orchestration transports of one adapter.
type TokenSource struct {
	credentials *Credentials
	client      *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewTokenSource builds a TokenSource for the given credentials. A nil
// httpClient falls back to http.DefaultClient.
func NewTokenSource(creds *Credentials, httpClient *http.Client) *TokenSource {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &TokenSource{credentials: creds, client: httpClient}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Token returns a valid bearer token, fetching a fresh one via the OAuth
// client-credentials flow when the cached token is missing or near expiry.
func (source *TokenSource) Token(ctx context.Context) (string, error) {
	source.mu.Lock()
	defer source.mu.Unlock()

	if source.token != "" && time.Now().Before(source.expiresAt) {
		return source.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	tokenURL := strings.TrimSuffix(source.credentials.AuthURL, "/") + "/oauth/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(source.credentials.ClientID, source.credentials.ClientSecret)

	res, err := source.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting token: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("reading token response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d: %s", res.StatusCode, string(body))
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned an empty access_token")
	}

	source.token = parsed.AccessToken
	source.expiresAt = time.Now().Add(time.Duration(parsed.ExpiresIn)*time.Second - tokenExpirySlack)
	return source.token, nil
}
