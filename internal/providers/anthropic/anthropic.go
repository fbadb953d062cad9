// Package anthropic registers the Anthropic Messages API.
package anthropic

import (
	"fmt"
	"net/http"

	"gatewire/internal/providers"
)

const (
	defaultBaseURL   = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
	defaultMaxTokens = 4096
)

func init() {
	providers.Register(providers.Spec{
		ID:             providers.Anthropic,
		DefaultBaseURL: defaultBaseURL,
		Categories:     []providers.Category{providers.CategoryChat},
		SetHeaders:     setHeaders,
		Build:          Build,
	})
}

func setHeaders(req *http.Request, apiKey string) {
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
}

// Build produces a /messages request. The system prompt travels in the
// top-level system field.
func Build(inv providers.Invocation) (providers.Request, error) {
	if inv.Category != providers.CategoryChat && inv.Category != "" {
		return providers.Request{}, fmt.Errorf("anthropic: unsupported category %q", inv.Category)
	}
	fields := map[string]any{
		"model":    inv.Model,
		"messages": inv.Messages,
	}
	if _, ok := inv.Params["max_tokens"]; !ok {
		fields["max_tokens"] = defaultMaxTokens
	}
	if inv.SystemPrompt != "" {
		fields["system"] = inv.SystemPrompt
	}
	if inv.Stream {
		fields["stream"] = true
	}
	return providers.Request{Path: "/messages", Body: providers.Body(inv.Params, fields)}, nil
}
