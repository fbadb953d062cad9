package providers

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"gatewire/config"
	"gatewire/internal/core"
	"gatewire/internal/pkg/llmclient"
)

// HTTPAdapter issues upstream calls for one provider.
type HTTPAdapter struct {
	id         ID
	spec       Spec
	apiKey     string
	statusPath string
	categories map[Category]bool
	client     *llmclient.Client
}

// NewHTTPAdapter builds an adapter from a Spec and its configuration.
// A nil httpClient uses the default pooled client.
func NewHTTPAdapter(spec Spec, pc config.ProviderConfig, cfg llmclient.Config, httpClient *http.Client) *HTTPAdapter {
	a := &HTTPAdapter{
		id:         spec.ID,
		spec:       spec,
		apiKey:     pc.APIKey,
		statusPath: spec.StatusPath,
		categories: categoriesOf(spec, pc),
	}
	if pc.StatusPath != "" {
		a.statusPath = pc.StatusPath
	}

	cfg.ProviderName = spec.ID.String()
	cfg.BaseURL = strings.TrimRight(spec.DefaultBaseURL, "/")
	if pc.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(pc.BaseURL, "/")
	}
	if httpClient != nil {
		a.client = llmclient.NewWithHTTPClient(httpClient, cfg, a.setHeaders)
	} else {
		a.client = llmclient.New(cfg, a.setHeaders)
	}
	return a
}

func (a *HTTPAdapter) setHeaders(req *http.Request) {
	if a.spec.SetHeaders != nil && a.apiKey != "" {
		a.spec.SetHeaders(req, a.apiKey)
	}
	if requestID := core.GetRequestID(req.Context()); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
}

// ID returns the provider ID.
func (a *HTTPAdapter) ID() ID { return a.id }

// Async reports whether the provider completes work through job polling.
func (a *HTTPAdapter) Async() bool { return a.statusPath != "" }

// Serves reports whether the adapter is configured for category.
func (a *HTTPAdapter) Serves(c Category) bool { return a.categories[c] }

// BaseURL returns the upstream base URL.
func (a *HTTPAdapter) BaseURL() string { return a.client.BaseURL() }

// Build shapes an invocation for the upstream API.
func (a *HTTPAdapter) Build(inv Invocation) (Request, error) {
	if a.spec.Build == nil {
		return Request{}, core.NewConfigurationError("provider " + a.id.String() + " cannot build requests")
	}
	return a.spec.Build(inv)
}

// Invoke sends body to path and returns the reply body.
func (a *HTTPAdapter) Invoke(ctx context.Context, path string, body any) ([]byte, error) {
	resp, err := a.client.DoRaw(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: path,
		Body:     body,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Stream sends body to path and returns the open reply stream.
func (a *HTTPAdapter) Stream(ctx context.Context, path string, body any) (io.ReadCloser, error) {
	return a.client.DoStream(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: path,
		Body:     body,
	})
}

// FetchStatus reads the current state of job id. It sends exactly one
// request; polling cadence belongs to the caller.
func (a *HTTPAdapter) FetchStatus(ctx context.Context, id string) ([]byte, error) {
	if a.statusPath == "" {
		return nil, core.NewInvalidRequestError("provider "+a.id.String()+" has no job status endpoint", nil)
	}
	resp, err := a.client.DoRaw(ctx, llmclient.Request{
		Method:   http.MethodGet,
		Endpoint: strings.ReplaceAll(a.statusPath, "{id}", url.PathEscape(id)),
		NoRetry:  true,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
