package credentials

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestToken_ClientCredentialsFlow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/oauth/token" {
			t.Errorf("token path: got %s", request.URL.Path)
		}
		user, pass, ok := request.BasicAuth()
		if !ok || user != "sb-client" || pass != "s3cret" {
			t.Errorf("basic auth: got %q/%q ok=%t", user, pass, ok)
		}
		if err := request.ParseForm(); err != nil {
			t.Errorf("parsing form: %v", err)
		}
		if got := request.PostForm.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type: got %q", got)
		}
		fmt.Fprint(writer, `{"access_token":"tok-1","expires_in":3600}`)
	}))
	defer server.Close()

	source := NewTokenSource(&Credentials{
		ClientID: "sb-client", ClientSecret: "s3cret", AuthURL: server.URL,
	}, server.Client())

	token, err := source.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "tok-1" {
		t.Errorf("token: got %q, want %q", token, "tok-1")
	}
}

func TestToken_CachedUntilNearExpiry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		calls.Add(1)
		fmt.Fprint(writer, `{"access_token":"tok-long","expires_in":3600}`)
	}))
	defer server.Close()

	source := NewTokenSource(&Credentials{AuthURL: server.URL}, server.Client())

	for range 3 {
		if _, err := source.Token(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("token fetched %d times, want 1", got)
	}
}

func TestToken_ShortLivedTokenIsRefetched(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		calls.Add(1)
		// 5s lifetime is inside the expiry slack, so the cached entry is
		// already stale on the next call.
		fmt.Fprintf(writer, `{"access_token":"tok-%d","expires_in":5}`, calls.Load())
	}))
	defer server.Close()

	source := NewTokenSource(&Credentials{AuthURL: server.URL}, server.Client())

	if _, err := source.Token(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	token, err := source.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "tok-2" {
		t.Errorf("expected a refreshed token, got %q", token)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("token fetched %d times, want 2", got)
	}
}

func TestToken_ErrorStatusSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		http.Error(writer, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	source := NewTokenSource(&Credentials{AuthURL: server.URL}, server.Client())

	if _, err := source.Token(context.Background()); err == nil {
		t.Fatal("expected an error for a 401 token response")
	}
}
