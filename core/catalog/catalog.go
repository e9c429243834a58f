// Package catalog implements the model capability cache: a one-time fetch of
// the models available on the discovery endpoint together with per-model
// capability flags. The fetch happens at most once per Catalog; every lookup
// suspends until that single fetch has resolved. On any fetch failure the
// catalog degrades to an empty set, and lookups fail toward the safer
// buffered path (streaming unsupported).
package catalog

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"genaihub/internal/utils"
	"genaihub/providers/ai"
)

// modelsEndpoint lists the foundation-model resources of the discovery API.
const modelsEndpoint = "/lm/scenarios/foundation-models/models"

// fetchTimeout bounds the single discovery fetch. The fetch runs detached
// from any caller's context so one cancelled caller cannot poison the shared
// result for everyone else.
const fetchTimeout = 30 * time.Second

// TokenFunc supplies a bearer token for the discovery request. A nil
// TokenFunc sends the request unauthenticated (proxy environments inject
// auth at the network layer).
type TokenFunc func(ctx context.Context) (string, error)

// Catalog is the process-lifetime model capability cache of one adapter.
// It is written exactly once (by the single fetch) and read many times.
type Catalog struct {
	client        *http.Client
	baseURL       string
	resourceGroup string
	token         TokenFunc

	group  singleflight.Group
	done   chan struct{}
	models []ai.ModelDescriptor // immutable once done is closed
}

// New builds a Catalog reading from baseURL with the given resource group.
// No fetch is issued until Warm or the first lookup.
func New(baseURL, resourceGroup string, token TokenFunc, client *http.Client) *Catalog {
	if client == nil {
		client = http.DefaultClient
	}
	return &Catalog{
		client:        client,
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		resourceGroup: resourceGroup,
		token:         token,
		done:          make(chan struct{}),
	}
}

// Warm kicks off the single fetch in the background. Safe to call at
// construction; lookups issued before the fetch completes will suspend on it.
func (catalog *Catalog) Warm() {
	go catalog.ensure()
}

// Models returns every retained model descriptor, sorted by provider name.
// It suspends until the one-time fetch has resolved, or until ctx is
// cancelled, in which case it returns nil.
func (catalog *Catalog) Models(ctx context.Context) []ai.ModelDescriptor {
	select {
	case <-catalog.done:
		return catalog.models
	default:
		go catalog.ensure()
	}

	select {
	case <-ctx.Done():
		return nil
	case <-catalog.done:
		return catalog.models
	}
}

// Descriptor looks up one model by id. The boolean is false when the model is
// unknown or the catalog is empty.
func (catalog *Catalog) Descriptor(ctx context.Context, modelID string) (ai.ModelDescriptor, bool) {
	for _, descriptor := range catalog.Models(ctx) {
		if descriptor.ID == modelID {
			return descriptor, true
		}
	}
	return ai.ModelDescriptor{}, false
}

// StreamingSupported reports whether modelID supports streaming responses.
// Unknown models and an empty catalog report false: the buffered path works
// against every backend, so false is the safe default.
func (catalog *Catalog) StreamingSupported(ctx context.Context, modelID string) bool {
	descriptor, ok := catalog.Descriptor(ctx, modelID)
	return ok && descriptor.StreamingSupported
}

// ensure performs the fetch at most once, coalescing concurrent first
// callers. Failures are absorbed: the catalog resolves to an empty set and
// the error is only logged. The fetch runs under its own timeout, detached
// from every caller's context.
func (catalog *Catalog) ensure() {
	catalog.group.Do("fetch", func() (any, error) {
		select {
		case <-catalog.done:
			return nil, nil
		default:
		}

		fetchCtx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		models, err := catalog.fetch(fetchCtx)
		if err != nil {
			slog.Warn("model discovery failed; continuing with an empty catalog", "error", err.Error())
			models = nil
		}

		catalog.models = models
		close(catalog.done)
		return nil, nil
	})
}

/*
	##### DISCOVERY WIRE FORMAT #####
*/

type modelsResponse struct {
	Resources []modelResource `json:"resources"`
}

type modelResource struct {
	Model            string         `json:"model"`
	DisplayName      string         `json:"displayName"`
	Provider         string         `json:"provider"`
	AllowedScenarios []string       `json:"allowedScenarios"`
	Versions         []modelVersion `json:"versions"`
}

type modelVersion struct {
	Name               string   `json:"name"`
	IsLatest           bool     `json:"isLatest"`
	Capabilities       []string `json:"capabilities"`
	StreamingSupported bool     `json:"streamingSupported"`
}

// fetch retrieves and filters the model list.
func (catalog *Catalog) fetch(ctx context.Context) ([]ai.ModelDescriptor, error) {
	var token string
	if catalog.token != nil {
		fetched, err := catalog.token(ctx)
		if err != nil {
			return nil, err
		}
		token = fetched
	}

	_, response, err := utils.DoGetSync[modelsResponse](ctx, catalog.client, catalog.baseURL+modelsEndpoint, token,
		utils.HeaderOption{Key: "AI-Resource-Group", Value: catalog.resourceGroup})
	if err != nil {
		return nil, err
	}

	var models []ai.ModelDescriptor
	for _, resource := range response.Resources {
		descriptor, ok := describeModel(resource)
		if !ok {
			continue
		}
		models = append(models, descriptor)
	}

	slices.SortFunc(models, func(a, b ai.ModelDescriptor) int {
		return strings.Compare(a.Provider, b.Provider)
	})

	return models, nil
}

// describeModel applies the retention policy to one discovery record and
// derives its capability flags. Retained models must allow the orchestration
// scenario and advertise text generation on their latest version.
func describeModel(resource modelResource) (ai.ModelDescriptor, bool) {
	if !hasCapability(resource.AllowedScenarios, scenarioOrchestration) {
		return ai.ModelDescriptor{}, false
	}

	version, ok := latestVersion(resource.Versions)
	if !ok || !hasCapability(version.Capabilities, capabilityTextGeneration) {
		return ai.ModelDescriptor{}, false
	}

	streaming := version.StreamingSupported
	if streamingDenied(resource.Model) {
		streaming = false
	}

	return ai.ModelDescriptor{
		ID:                 resource.Model,
		Provider:           resource.Provider,
		DisplayName:        resource.DisplayName,
		Capabilities:       version.Capabilities,
		StreamingSupported: streaming,
		HistorySupported:   hasCapability(version.Capabilities, capabilityChatHistory),
		ImageSupported:     hasCapability(version.Capabilities, capabilityImageRecognition),
	}, true
}

// latestVersion returns the version entry flagged as latest. When no entry
// carries the flag the first entry is used; this fallback matches the
// discovery endpoint's historical behavior for single-version models.
func latestVersion(versions []modelVersion) (modelVersion, bool) {
	if len(versions) == 0 {
		return modelVersion{}, false
	}
	for _, version := range versions {
		if version.IsLatest {
			return version, true
		}
	}
	return versions[0], true
}
