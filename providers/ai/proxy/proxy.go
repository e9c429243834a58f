// Package proxy implements the deployment-proxy fallback transport used in
// managed build environments where no service key is available. It discovers
// deployments over plain HTTP and hand-parses the chunked SSE body of the
// chat-completions endpoint.
package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"genaihub/internal/utils"
	"genaihub/providers/ai"
)

const (
	deploymentsEndpoint = "/lm/deployments"
	apiVersion          = "2023-05-15"
)

// Client is the deployment-proxy transport.
type Client struct {
	client        *http.Client
	baseURL       string
	resourceGroup string
	model         string

	mu          sync.Mutex
	deployments []deployment
}

type deploymentsResponse struct {
	Resources []deployment `json:"resources"`
}

type deployment struct {
	ID            string `json:"id"`
	DeploymentURL string `json:"deploymentUrl"`
	Model         string `json:"model"`
}

// New creates a proxy client for the given base URL and model.
func New(baseURL, resourceGroup, model string) *Client {
	return &Client{
		client:        &http.Client{},
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		resourceGroup: resourceGroup,
		model:         model,
	}
}

// WithHTTPClient sets a custom HTTP client.
func (transport *Client) WithHTTPClient(httpClient *http.Client) *Client {
	transport.client = httpClient
	return transport
}

// Kind implements ai.Transport.
func (transport *Client) Kind() ai.BackendKind { return ai.BackendProxy }

// Warm eagerly fetches the deployment list so the first request does not pay
// for discovery. Failures are logged only; the list is re-fetched lazily on
// the first request.
func (transport *Client) Warm(ctx context.Context) {
	if _, err := transport.deploymentFor(ctx); err != nil {
		slog.Warn("proxy deployment warm-up failed", "error", err.Error())
	}
}

// deploymentFor returns the deployment serving the configured model,
// fetching the deployment list on first use. When no deployment names the
// model explicitly, the first deployment is used.
func (transport *Client) deploymentFor(ctx context.Context) (deployment, error) {
	transport.mu.Lock()
	defer transport.mu.Unlock()

	if len(transport.deployments) == 0 {
		_, response, err := utils.DoGetSync[deploymentsResponse](ctx, transport.client,
			transport.baseURL+deploymentsEndpoint, "",
			utils.HeaderOption{Key: "AI-Resource-Group", Value: transport.resourceGroup})
		if err != nil {
			return deployment{}, fmt.Errorf("listing deployments: %w", err)
		}
		transport.deployments = response.Resources
	}

	if len(transport.deployments) == 0 {
		return deployment{}, fmt.Errorf("no deployments available for resource group %q", transport.resourceGroup)
	}

	for _, candidate := range transport.deployments {
		if candidate.Model == transport.model {
			return candidate, nil
		}
	}
	return transport.deployments[0], nil
}

// StreamMessage implements ai.Transport. It issues one POST with stream=true
// and parses the newline-delimited SSE body by hand.
func (transport *Client) StreamMessage(ctx context.Context, request ai.StreamRequest) (*ai.ChatStream, error) {
	payload, err := requestToChatCompletion(request, transport.model)
	if err != nil {
		return nil, err
	}

	target, err := transport.deploymentFor(ctx)
	if err != nil {
		return nil, &ai.TransportError{Backend: ai.BackendProxy, Cause: err}
	}

	streamURL := fmt.Sprintf("%s/chat/completions?api-version=%s",
		strings.TrimSuffix(target.DeploymentURL, "/"), apiVersion)
	httpResponse, err := utils.DoPostStream(ctx, transport.client, streamURL, "", payload,
		utils.HeaderOption{Key: "AI-Resource-Group", Value: transport.resourceGroup})
	if err != nil {
		return nil, &ai.TransportError{Backend: ai.BackendProxy, StatusCode: statusCode(httpResponse), Cause: err}
	}

	return ai.NewChatStream(transport.streamIterator(ctx, httpResponse)), nil
}

// statusCode extracts the HTTP status from a possibly-nil response.
func statusCode(response *http.Response) int {
	if response == nil {
		return 0
	}
	return response.StatusCode
}
