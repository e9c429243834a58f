package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"genaihub/core/adapter/middleware"
	"genaihub/core/catalog"
	"genaihub/core/credentials"
	"genaihub/providers/ai"
	"genaihub/providers/ai/direct"
	"genaihub/providers/ai/orchestration"
	"genaihub/providers/ai/proxy"
)

// DefaultModel is used when Options.Model is empty.
const DefaultModel = "gpt-4o"

// DefaultResourceGroup is the AI-Resource-Group header value used when
// Options.ResourceGroup is empty.
const DefaultResourceGroup = "default"

// Options configures a new Adapter. The zero value is usable: credentials
// are resolved from the environment and defaults fill every field.
type Options struct {
	// Model is the model id requests are issued against.
	Model string

	// ResourceGroup is sent as the AI-Resource-Group header on every
	// discovery and inference request.
	ResourceGroup string

	// MaxTokens caps the completion length. Zero leaves the limit to the
	// backend default.
	MaxTokens int

	// Backend optionally forces a transport variant. Only BackendDirect is a
	// meaningful override: it swaps the default orchestration client for the
	// direct model-serving client when a service key is available.
	Backend ai.BackendKind

	// Retry tunes the retry middleware; zero values take the documented
	// defaults.
	Retry middleware.RetryConfig

	// Logger receives structured request logs. Nil falls back to
	// slog.Default().
	Logger *slog.Logger

	// HTTPClient overrides the HTTP client used by every transport.
	HTTPClient *http.Client
}

// ModelInfo is the result of capability introspection.
type ModelInfo struct {
	ID   string
	Info *ai.ModelDescriptor // nil when the model is unknown to the catalog
}

// Adapter is the public entry point: one normalized chat-completion surface
// over whichever backend transport the credential resolver found reachable.
// The transport is fixed at construction and never re-evaluated per call.
type Adapter struct {
	model    string
	backend  ai.BackendKind
	catalog  *catalog.Catalog
	chain    middleware.StreamFunc
	setupErr error // non-nil when no transport could be configured
}

// New constructs an Adapter. Credential resolution happens here, once, in
// fixed priority (service-key file, env-injected key, deployment proxy); the
// capability catalog's single fetch is kicked off asynchronously.
//
// A missing or invalid configuration does not fail construction: the error
// is logged, the adapter is left transport-less, and the first CreateMessage
// call surfaces it. This keeps a misconfigured host inspectable instead of
// crashing it at startup.
func New(opts Options) *Adapter {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.ResourceGroup == "" {
		opts.ResourceGroup = DefaultResourceGroup
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	resolution := credentials.Resolve()
	built := buildTransport(opts, resolution)

	if built.err != nil {
		logger.Error("adapter setup failed", "error", built.err.Error())
	}

	a := &Adapter{
		model:    opts.Model,
		catalog:  built.catalog,
		setupErr: built.err,
	}

	if built.transport != nil {
		a.backend = built.transport.Kind()
		a.chain = middleware.BuildChain(built.transport, []middleware.Middleware{
			middleware.NewLoggingMiddleware(logger),
			middleware.NewRetryMiddleware(opts.Retry),
		})
	}

	if a.catalog != nil {
		a.catalog.Warm()
	}

	return a
}

// buildResult carries the construction outcome of one resolution.
type buildResult struct {
	transport ai.Transport
	catalog   *catalog.Catalog
	err       error
}

// buildTransport maps a credential resolution onto a concrete transport and
// the capability catalog that serves it.
func buildTransport(opts Options, resolution credentials.Resolution) buildResult {
	switch {
	case resolution.Err != nil:
		return buildResult{err: resolution.Err}

	case resolution.Credentials != nil:
		creds := resolution.Credentials
		tokens := credentials.NewTokenSource(creds, opts.HTTPClient)
		models := catalog.New(discoveryBase(creds.AIAPIURL), opts.ResourceGroup, tokens.Token, opts.HTTPClient)

		if opts.Backend == ai.BackendDirect {
			transport := direct.New(creds, tokens, opts.Model).
				WithResourceGroup(opts.ResourceGroup).
				WithMaxTokens(opts.MaxTokens)
			if opts.HTTPClient != nil {
				transport.WithHTTPClient(opts.HTTPClient)
			}
			return buildResult{transport: transport, catalog: models}
		}

		transport := orchestration.New(creds, tokens, models, opts.Model).
			WithResourceGroup(opts.ResourceGroup).
			WithMaxTokens(opts.MaxTokens)
		if opts.HTTPClient != nil {
			transport.WithHTTPClient(opts.HTTPClient)
		}
		return buildResult{transport: transport, catalog: models}

	case resolution.ProxyBaseURL != "":
		models := catalog.New(resolution.ProxyBaseURL, opts.ResourceGroup, nil, opts.HTTPClient)
		transport := proxy.New(resolution.ProxyBaseURL, opts.ResourceGroup, opts.Model)
		if opts.HTTPClient != nil {
			transport.WithHTTPClient(opts.HTTPClient)
		}
		transport.Warm(context.Background())
		return buildResult{transport: transport, catalog: models}

	default:
		// Soft failure: no credentials anywhere. Already logged by the
		// resolver; remember a descriptive error for the first call.
		return buildResult{err: fmt.Errorf("no backend transport configured: provide a service key file, %s, or %s",
			credentials.EnvServiceKey, credentials.EnvProxyBaseURL)}
	}
}

// discoveryBase derives the discovery API root from the AI API URL.
func discoveryBase(aiAPIURL string) string {
	return strings.TrimSuffix(aiAPIURL, "/") + "/v2"
}

// CreateMessage sends the system prompt plus ordered message history to the
// resolved backend and returns a lazy, cancellable stream of text deltas.
// Events arrive in strict backend order; the consumer may stop iterating at
// any point and the underlying connection is released.
//
// With no usable transport the call yields no events and returns the
// configuration error recorded at construction.
func (a *Adapter) CreateMessage(ctx context.Context, systemPrompt string, messages []ai.Message) (*ai.ChatStream, error) {
	if a.chain == nil {
		return nil, a.setupErr
	}

	return a.chain(ctx, ai.StreamRequest{
		SystemPrompt: systemPrompt,
		Messages:     messages,
	})
}

// GetModel reports the configured model id together with its cached
// capability descriptor. The call suspends until the catalog's one-time
// fetch has resolved; against an empty catalog Info is nil.
func (a *Adapter) GetModel(ctx context.Context) ModelInfo {
	info := ModelInfo{ID: a.model}
	if a.catalog == nil {
		return info
	}
	if descriptor, ok := a.catalog.Descriptor(ctx, a.model); ok {
		info.Info = &descriptor
	}
	return info
}

// Backend reports which transport variant the adapter resolved, or
// BackendNone when setup failed.
func (a *Adapter) Backend() ai.BackendKind { return a.backend }

// SetupError returns the configuration error recorded at construction, or
// nil when a transport was resolved.
func (a *Adapter) SetupError() error { return a.setupErr }
