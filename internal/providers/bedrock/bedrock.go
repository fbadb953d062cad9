// Package bedrock registers Amazon Bedrock Runtime through its Converse API.
// Authentication uses Bedrock API keys sent as bearer tokens.
package bedrock

import (
	"fmt"
	"net/url"

	"gatewire/internal/providers"
)

const defaultBaseURL = "https://bedrock-runtime.us-east-1.amazonaws.com"

func init() {
	providers.Register(providers.Spec{
		ID:             providers.Bedrock,
		DefaultBaseURL: defaultBaseURL,
		Categories:     []providers.Category{providers.CategoryChat, providers.CategoryImage},
		SetHeaders:     providers.BearerAuth,
		Build:          Build,
	})
}

// Build produces a converse / converse-stream request for chat and a raw
// invoke request for image models.
func Build(inv providers.Invocation) (providers.Request, error) {
	model := url.PathEscape(inv.Model)
	switch inv.Category {
	case providers.CategoryChat, "":
		msgs := make([]map[string]any, 0, len(inv.Messages))
		for _, m := range inv.Messages {
			content := m.Content.Parts()
			if m.Content.IsText() {
				content = []any{map[string]any{"text": m.Content.String()}}
			}
			if content == nil {
				content = []any{}
			}
			msgs = append(msgs, map[string]any{"role": m.Role, "content": content})
		}
		fields := map[string]any{"messages": msgs}
		if inv.SystemPrompt != "" {
			fields["system"] = []any{map[string]any{"text": inv.SystemPrompt}}
		}
		path := "/model/" + model + "/converse"
		if inv.Stream {
			path = "/model/" + model + "/converse-stream"
		}
		return providers.Request{Path: path, Body: providers.Body(inv.Params, fields)}, nil
	case providers.CategoryImage:
		body := providers.Body(nil, inv.Params)
		if _, ok := body["textToImageParams"]; !ok {
			body["taskType"] = "TEXT_IMAGE"
			body["textToImageParams"] = map[string]any{"text": providers.PromptText(inv.Messages)}
		}
		return providers.Request{Path: "/model/" + model + "/invoke", Body: body}, nil
	}
	return providers.Request{}, fmt.Errorf("bedrock: unsupported category %q", inv.Category)
}

