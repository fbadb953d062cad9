// Package gemini registers Google AI Studio (the Gemini API).
package gemini

import (
	"fmt"
	"net/http"
	"net/url"

	"gatewire/internal/core"
	"gatewire/internal/providers"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

func init() {
	providers.Register(providers.Spec{
		ID:             providers.GoogleAIStudio,
		DefaultBaseURL: defaultBaseURL,
		Categories:     []providers.Category{providers.CategoryChat},
		SetHeaders: func(req *http.Request, apiKey string) {
			req.Header.Set("x-goog-api-key", apiKey)
		},
		Build: Build,
	})
}

// Build produces a generateContent (or streamGenerateContent) request from
// messages already converted to {role, parts}.
func Build(inv providers.Invocation) (providers.Request, error) {
	if inv.Category != providers.CategoryChat && inv.Category != "" {
		return providers.Request{}, fmt.Errorf("gemini: unsupported category %q", inv.Category)
	}

	contents := make([]map[string]any, 0, len(inv.Messages))
	for _, m := range inv.Messages {
		role := "user"
		if m.Role == core.RoleAssistant {
			role = "model"
		}
		parts := m.Parts
		if parts == nil {
			parts = []any{}
		}
		contents = append(contents, map[string]any{"role": role, "parts": parts})
	}

	fields := map[string]any{"contents": contents}
	if inv.SystemPrompt != "" {
		fields["systemInstruction"] = map[string]any{
			"parts": []any{map[string]any{"text": inv.SystemPrompt}},
		}
	}

	path := "/models/" + url.PathEscape(inv.Model) + ":generateContent"
	if inv.Stream {
		path = "/models/" + url.PathEscape(inv.Model) + ":streamGenerateContent?alt=sse"
	}
	return providers.Request{Path: path, Body: providers.Body(inv.Params, fields)}, nil
}
