// Package orchestration implements the templating + LLM-module backend
// transport. Each call builds an orchestration config from an LLM module
// (model id plus family-conditional parameters) and a templating module
// carrying the system prompt, then branches on the model's cached streaming
// capability: streaming-capable models get an SSE call, everything else gets
// one buffered call emitted as a single text event. The branch exists because
// some models reject streaming requests outright; checking the capability up
// front avoids a failed round trip.
package orchestration

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"genaihub/core/catalog"
	"genaihub/core/credentials"
	"genaihub/internal/utils"
	"genaihub/providers/ai"
)

const completionEndpoint = "/v2/inference/orchestration/completion"

// Client is the orchestration transport.
type Client struct {
	client        *http.Client
	baseURL       string
	resourceGroup string
	model         string
	maxTokens     int
	tokens        *credentials.TokenSource
	catalog       *catalog.Catalog
}

// New creates an orchestration client. The catalog supplies the per-model
// streaming capability consulted on every call.
func New(creds *credentials.Credentials, tokens *credentials.TokenSource, models *catalog.Catalog, model string) *Client {
	return &Client{
		client:        &http.Client{},
		baseURL:       strings.TrimSuffix(creds.AIAPIURL, "/"),
		resourceGroup: "default",
		model:         model,
		tokens:        tokens,
		catalog:       models,
	}
}

// WithHTTPClient sets a custom HTTP client.
func (transport *Client) WithHTTPClient(httpClient *http.Client) *Client {
	transport.client = httpClient
	return transport
}

// WithBaseURL overrides the AI API base URL. Intended for tests.
func (transport *Client) WithBaseURL(baseURL string) *Client {
	transport.baseURL = strings.TrimSuffix(baseURL, "/")
	return transport
}

// WithResourceGroup sets the AI-Resource-Group header value.
func (transport *Client) WithResourceGroup(resourceGroup string) *Client {
	transport.resourceGroup = resourceGroup
	return transport
}

// WithMaxTokens caps the completion length. Zero leaves the limit unset.
func (transport *Client) WithMaxTokens(maxTokens int) *Client {
	transport.maxTokens = maxTokens
	return transport
}

// Kind implements ai.Transport.
func (transport *Client) Kind() ai.BackendKind { return ai.BackendOrchestration }

// StreamMessage implements ai.Transport.
func (transport *Client) StreamMessage(ctx context.Context, request ai.StreamRequest) (*ai.ChatStream, error) {
	payload, err := requestToCompletion(request, transport.model, transport.maxTokens)
	if err != nil {
		return nil, err
	}

	token, err := transport.tokens.Token(ctx)
	if err != nil {
		return nil, &ai.TransportError{Backend: ai.BackendOrchestration, Cause: err}
	}

	// Capability lookup suspends until the catalog's one-time fetch has
	// resolved. An empty catalog reports false, taking the buffered path.
	if transport.catalog.StreamingSupported(ctx, transport.model) {
		return transport.streamCompletion(ctx, token, payload)
	}
	return transport.bufferedCompletion(ctx, token, payload)
}

// streamCompletion performs an SSE call and forwards each chunk's delta.
func (transport *Client) streamCompletion(ctx context.Context, token string, payload completionRequest) (*ai.ChatStream, error) {
	payload.Stream = true

	httpResponse, err := utils.DoPostStream(ctx, transport.client, transport.baseURL+completionEndpoint, token, payload,
		utils.HeaderOption{Key: "AI-Resource-Group", Value: transport.resourceGroup})
	if err != nil {
		return nil, &ai.TransportError{Backend: ai.BackendOrchestration, StatusCode: statusCode(httpResponse), Cause: err}
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)

	iteratorFunc := func(yield func(ai.StreamEvent, error) bool) {
		defer utils.CloseWithLog(httpResponse.Body)

		for {
			if ctx.Err() != nil {
				yield(ai.StreamEvent{}, ctx.Err())
				return
			}

			chunkPayload, sseErr := sseScanner.Next()
			if sseErr == io.EOF {
				return
			}
			if sseErr != nil {
				yield(ai.StreamEvent{}, fmt.Errorf("SSE read error: %w", sseErr))
				return
			}

			delta, parseErr := unmarshalStreamChunk(chunkPayload)
			if parseErr != nil {
				yield(ai.StreamEvent{}, fmt.Errorf("failed to parse streaming chunk: %w", parseErr))
				return
			}

			if delta != "" && !yield(ai.TextEvent(delta), nil) {
				return
			}
		}
	}

	return ai.NewChatStream(iteratorFunc), nil
}

// bufferedCompletion performs one non-streaming call and emits its entire
// content as a single text event.
func (transport *Client) bufferedCompletion(ctx context.Context, token string, payload completionRequest) (*ai.ChatStream, error) {
	httpResponse, response, err := utils.DoPostSync[completionResponse](ctx, transport.client,
		transport.baseURL+completionEndpoint, token, payload,
		utils.HeaderOption{Key: "AI-Resource-Group", Value: transport.resourceGroup})
	if err != nil {
		return nil, &ai.TransportError{Backend: ai.BackendOrchestration, StatusCode: statusCode(httpResponse), Cause: err}
	}

	return ai.NewSingleEventStream(responseContent(response)), nil
}

// statusCode extracts the HTTP status from a possibly-nil response.
func statusCode(response *http.Response) int {
	if response == nil {
		return 0
	}
	return response.StatusCode
}
