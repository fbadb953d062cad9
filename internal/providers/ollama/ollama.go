// Package ollama registers a local Ollama server.
package ollama

import (
	"fmt"

	"gatewire/internal/providers"
)

const defaultBaseURL = "http://localhost:11434"

func init() {
	providers.Register(providers.Spec{
		ID:             providers.Ollama,
		DefaultBaseURL: defaultBaseURL,
		Categories:     []providers.Category{providers.CategoryChat},
		SetHeaders:     providers.BearerAuth,
		Build:          Build,
	})
}

// ollamaMessage carries the single image Ollama accepts as an images list.
type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// Build produces an /api/chat request. Ollama streams unless told not to,
// so stream is always sent.
func Build(inv providers.Invocation) (providers.Request, error) {
	if inv.Category != providers.CategoryChat && inv.Category != "" {
		return providers.Request{}, fmt.Errorf("ollama: unsupported category %q", inv.Category)
	}
	msgs := make([]ollamaMessage, 0, len(inv.Messages))
	for _, m := range inv.Messages {
		om := ollamaMessage{Role: m.Role, Content: m.Content.String()}
		if m.Image != "" {
			om.Images = []string{m.Image}
		}
		msgs = append(msgs, om)
	}
	return providers.Request{Path: "/api/chat", Body: providers.Body(inv.Params, map[string]any{
		"model":    inv.Model,
		"messages": msgs,
		"stream":   inv.Stream,
	})}, nil
}
