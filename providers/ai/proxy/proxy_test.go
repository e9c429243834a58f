package proxy

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/goleak"

	"genaihub/providers/ai"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newProxyBackend serves both the deployment listing and the chat-completions
// endpoint from one httptest server, the way the real proxy exposes them.
func newProxyBackend(t *testing.T, completions http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)

	mux.HandleFunc("/lm/deployments", func(writer http.ResponseWriter, request *http.Request) {
		fmt.Fprintf(writer, `{"resources":[
			{"id":"d1","deploymentUrl":"%s/v2/inference/deployments/d1","model":"gpt-4o"},
			{"id":"d2","deploymentUrl":"%s/v2/inference/deployments/d2","model":"claude-sonnet"}
		]}`, server.URL, server.URL)
	})
	mux.HandleFunc("/v2/inference/deployments/", completions)

	return server
}

// TestStreamMessage_MatchingDeploymentIsUsed verifies deployment selection by
// model id and the basic SSE contract: data payloads become text events and
// [DONE] ends the stream.
func TestStreamMessage_MatchingDeploymentIsUsed(t *testing.T) {
	server := newProxyBackend(t, func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/v2/inference/deployments/d2/chat/completions" {
			t.Errorf("wrong deployment selected: %s", request.URL.Path)
		}

		writer.Header().Set("Content-Type", "text/event-stream")
		writer.WriteHeader(http.StatusOK)
		fmt.Fprint(writer, "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\n")
		fmt.Fprint(writer, "data: [DONE]\n\n")
	})
	defer server.Close()

	transport := New(server.URL, "default", "claude-sonnet").WithHTTPClient(server.Client())

	stream, err := transport.StreamMessage(context.Background(), ai.StreamRequest{
		Messages: []ai.Message{ai.NewTextMessage(ai.RoleUser, "Hello")},
	})
	if err != nil {
		t.Fatalf("StreamMessage returned unexpected error: %v", err)
	}

	content, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect returned unexpected error: %v", err)
	}
	if content != "Hi" {
		t.Errorf("content: got %q, want %q", content, "Hi")
	}
}

// TestStreamMessage_UnknownModelFallsBackToFirstDeployment verifies that a
// model no deployment names still gets routed, to the first deployment.
func TestStreamMessage_UnknownModelFallsBackToFirstDeployment(t *testing.T) {
	server := newProxyBackend(t, func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/v2/inference/deployments/d1/chat/completions" {
			t.Errorf("expected fallback to the first deployment, got %s", request.URL.Path)
		}
		writer.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(writer, "data: [DONE]\n\n")
	})
	defer server.Close()

	transport := New(server.URL, "default", "unlisted-model").WithHTTPClient(server.Client())

	stream, err := transport.StreamMessage(context.Background(), ai.StreamRequest{
		Messages: []ai.Message{ai.NewTextMessage(ai.RoleUser, "Hello")},
	})
	if err != nil {
		t.Fatalf("StreamMessage returned unexpected error: %v", err)
	}
	if _, err := stream.Collect(); err != nil {
		t.Fatalf("Collect returned unexpected error: %v", err)
	}
}

// TestStreamMessage_MalformedChunkIsSkipped verifies the lenient parsing
// contract: an unusable payload between two valid ones is dropped without
// terminating the stream or surfacing an error.
func TestStreamMessage_MalformedChunkIsSkipped(t *testing.T) {
	server := newProxyBackend(t, func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")
		writer.WriteHeader(http.StatusOK)
		fmt.Fprint(writer, "data: {\"choices\":[{\"delta\":{\"content\":\"first\"}}]}\n\n")
		fmt.Fprint(writer, "data: %%%not json at all%%%\n\n")
		fmt.Fprint(writer, "data: {\"choices\":[{\"delta\":{\"content\":\"second\"}}]}\n\n")
		fmt.Fprint(writer, "data: [DONE]\n\n")
	})
	defer server.Close()

	transport := New(server.URL, "default", "gpt-4o").WithHTTPClient(server.Client())

	stream, err := transport.StreamMessage(context.Background(), ai.StreamRequest{
		Messages: []ai.Message{ai.NewTextMessage(ai.RoleUser, "Hello")},
	})
	if err != nil {
		t.Fatalf("StreamMessage returned unexpected error: %v", err)
	}

	var texts []string
	for event, iterErr := range stream.Iter() {
		if iterErr != nil {
			t.Fatalf("a malformed chunk must not surface an error, got: %v", iterErr)
		}
		texts = append(texts, event.Text)
	}

	if len(texts) != 2 || texts[0] != "first" || texts[1] != "second" {
		t.Errorf("expected the two valid deltas, got %v", texts)
	}
}

// TestStreamMessage_TruncatedChunkIsRepaired verifies that a payload cut off
// mid-object is recovered by JSON repair instead of being dropped.
func TestStreamMessage_TruncatedChunkIsRepaired(t *testing.T) {
	server := newProxyBackend(t, func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")
		writer.WriteHeader(http.StatusOK)
		// Missing the closing brackets; jsonrepair completes them.
		fmt.Fprint(writer, "data: {\"choices\":[{\"delta\":{\"content\":\"whole\"\n\n")
		fmt.Fprint(writer, "data: [DONE]\n\n")
	})
	defer server.Close()

	transport := New(server.URL, "default", "gpt-4o").WithHTTPClient(server.Client())

	stream, err := transport.StreamMessage(context.Background(), ai.StreamRequest{
		Messages: []ai.Message{ai.NewTextMessage(ai.RoleUser, "Hello")},
	})
	if err != nil {
		t.Fatalf("StreamMessage returned unexpected error: %v", err)
	}

	content, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect returned unexpected error: %v", err)
	}
	if content != "whole" {
		t.Errorf("content: got %q, want %q", content, "whole")
	}
}

// TestWarm_FetchesDeploymentListOnce verifies that Warm caches the deployment
// list so the first real request skips discovery.
func TestWarm_FetchesDeploymentListOnce(t *testing.T) {
	var listCalls atomic.Int32

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/lm/deployments", func(writer http.ResponseWriter, request *http.Request) {
		listCalls.Add(1)
		fmt.Fprintf(writer, `{"resources":[{"id":"d1","deploymentUrl":"%s/v2/inference/deployments/d1","model":"gpt-4o"}]}`, server.URL)
	})
	mux.HandleFunc("/v2/inference/deployments/", func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(writer, "data: [DONE]\n\n")
	})

	transport := New(server.URL, "default", "gpt-4o").WithHTTPClient(server.Client())
	transport.Warm(context.Background())

	stream, err := transport.StreamMessage(context.Background(), ai.StreamRequest{
		Messages: []ai.Message{ai.NewTextMessage(ai.RoleUser, "Hello")},
	})
	if err != nil {
		t.Fatalf("StreamMessage returned unexpected error: %v", err)
	}
	if _, err := stream.Collect(); err != nil {
		t.Fatalf("Collect returned unexpected error: %v", err)
	}

	if got := listCalls.Load(); got != 1 {
		t.Errorf("deployment list fetched %d times, want 1", got)
	}
}

// TestStreamMessage_DiscoveryFailureIsTransportError verifies that an
// unreachable deployment listing fails the call before any stream exists.
func TestStreamMessage_DiscoveryFailureIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		http.Error(writer, "proxy down", http.StatusBadGateway)
	}))
	defer server.Close()

	transport := New(server.URL, "default", "gpt-4o").WithHTTPClient(server.Client())

	_, err := transport.StreamMessage(context.Background(), ai.StreamRequest{
		Messages: []ai.Message{ai.NewTextMessage(ai.RoleUser, "Hello")},
	})

	transportErr, ok := err.(*ai.TransportError)
	if !ok {
		t.Fatalf("expected a *ai.TransportError, got %T: %v", err, err)
	}
	if transportErr.Backend != ai.BackendProxy {
		t.Errorf("Backend: got %q, want %q", transportErr.Backend, ai.BackendProxy)
	}
}
