package providers

import (
	"net/http"
	"strings"

	"gatewire/internal/core"
)

// Body merges caller params with the canonical fields. Canonical fields win.
func Body(params map[string]any, fields map[string]any) map[string]any {
	body := make(map[string]any, len(params)+len(fields))
	for k, v := range params {
		body[k] = v
	}
	for k, v := range fields {
		body[k] = v
	}
	return body
}

// PromptText returns the text of the last user message, used as the prompt
// by media and embedding endpoints.
func PromptText(msgs []core.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != core.RoleUser {
			continue
		}
		c := msgs[i].Content
		if c.IsText() {
			return c.String()
		}
		var parts []string
		for _, p := range c.Parts() {
			if core.BlockType(p) != "" && core.BlockType(p) != core.BlockText {
				continue
			}
			if s, ok := core.BlockTextOf(p); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	}
	return ""
}

// BearerAuth sets an Authorization: Bearer header.
func BearerAuth(req *http.Request, apiKey string) {
	req.Header.Set("Authorization", "Bearer "+apiKey)
}
