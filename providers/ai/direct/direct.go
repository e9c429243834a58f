// Package direct implements the model-serving backend transport: one HTTP
// request per call against the AI API's chat-completions endpoint, keyed by
// model id.
package direct

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"genaihub/core/credentials"
	"genaihub/internal/utils"
	"genaihub/providers/ai"
)

const (
	chatCompletionsEndpoint = "/chat/completions"
	apiVersion              = "2023-05-15"
)

// Client is the direct model-serving transport.
type Client struct {
	client        *http.Client
	baseURL       string
	resourceGroup string
	model         string
	maxTokens     int
	tokens        *credentials.TokenSource
}

// New creates a direct client for the given credentials and model.
func New(creds *credentials.Credentials, tokens *credentials.TokenSource, model string) *Client {
	return &Client{
		client:        &http.Client{},
		baseURL:       strings.TrimSuffix(creds.AIAPIURL, "/") + "/v2/inference",
		resourceGroup: "default",
		model:         model,
		tokens:        tokens,
	}
}

// WithHTTPClient sets a custom HTTP client.
func (transport *Client) WithHTTPClient(httpClient *http.Client) *Client {
	transport.client = httpClient
	return transport
}

// WithBaseURL overrides the inference base URL. Intended for tests.
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
func (transport *Client) Kind() ai.BackendKind { return ai.BackendDirect }

// StreamMessage implements ai.Transport. It sends one streaming request and
// yields a text event per SSE content delta.
func (transport *Client) StreamMessage(ctx context.Context, request ai.StreamRequest) (*ai.ChatStream, error) {
	payload, err := requestToChatCompletion(request, transport.model, transport.maxTokens)
	if err != nil {
		return nil, err
	}

	token := ""
	if transport.tokens != nil {
		token, err = transport.tokens.Token(ctx)
		if err != nil {
			return nil, &ai.TransportError{Backend: ai.BackendDirect, Cause: err}
		}
	}

	streamURL := fmt.Sprintf("%s%s?api-version=%s", transport.baseURL, chatCompletionsEndpoint, apiVersion)
	httpResponse, err := utils.DoPostStream(ctx, transport.client, streamURL, token, payload,
		utils.HeaderOption{Key: "AI-Resource-Group", Value: transport.resourceGroup})
	if err != nil {
		return nil, &ai.TransportError{Backend: ai.BackendDirect, StatusCode: statusCode(httpResponse), Cause: err}
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)

	iteratorFunc := func(yield func(ai.StreamEvent, error) bool) {
		defer utils.CloseWithLog(httpResponse.Body)

		for {
			if ctx.Err() != nil {
				yield(ai.StreamEvent{}, ctx.Err())
				return
			}

			payload, sseErr := sseScanner.Next()
			if sseErr == io.EOF {
				return
			}
			if sseErr != nil {
				yield(ai.StreamEvent{}, fmt.Errorf("SSE read error: %w", sseErr))
				return
			}

			chunk, parseErr := unmarshalStreamChunk(payload)
			if parseErr != nil {
				yield(ai.StreamEvent{}, fmt.Errorf("failed to parse streaming chunk: %w", parseErr))
				return
			}

			for _, text := range chunkDeltas(chunk) {
				if !yield(ai.TextEvent(text), nil) {
					return
				}
			}
		}
	}

	return ai.NewChatStream(iteratorFunc), nil
}

// statusCode extracts the HTTP status from a possibly-nil response.
func statusCode(response *http.Response) int {
	if response == nil {
		return 0
	}
	return response.StatusCode
}
