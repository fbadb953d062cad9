package messages

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/kaptinlin/jsonrepair"

	"gatewire/internal/core"
	"gatewire/internal/providers"
)

// convert rewrites one message for the provider. It returns zero messages
// when the message is dropped and two for anthropic tool responses.
func convert(m core.Message, id providers.ID) []core.Message {
	if m.Role == core.RoleTool {
		if id == providers.Anthropic {
			return anthropicToolExchange(m)
		}
		if m.ToolCallID == "" {
			return nil
		}
		m = core.Message{
			Role:       core.RoleTool,
			Content:    core.Text(toolText(m)),
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
	}

	out := core.Message{
		Role:       m.Role,
		Name:       m.Name,
		ToolCalls:  m.ToolCalls,
		ToolCallID: m.ToolCallID,
	}

	switch id {
	case providers.GoogleAIStudio:
		out.Content = core.Text("")
		out.Parts = googleParts(m.Content)
	case providers.Anthropic:
		out.Content = mapParts(m.Content, anthropicPart)
	case providers.Bedrock:
		out.Content = mapParts(m.Content, bedrockPart)
	case providers.WorkersAI, providers.Ollama, providers.GitHubModels:
		out.Content, out.Image = collapseWithImage(m.Content)
	default:
		out.Content = mapParts(m.Content, keepPart)
	}
	return []core.Message{out}
}

// toolText renders a tool response as one line of text followed by its
// data, when the data serializes.
func toolText(m core.Message) string {
	name := m.Name
	if name == "" {
		name = "unknown"
	}
	text := fmt.Sprintf("[Tool Response: %s] %s", name, contentText(m.Content))
	if m.Data != nil {
		if raw, err := json.Marshal(m.Data); err == nil {
			text += "\n\nData: " + string(raw)
		}
	}
	return text
}

// anthropicToolExchange expands a tool response into the assistant tool_use
// and user tool_result pair Anthropic expects.
func anthropicToolExchange(m core.Message) []core.Message {
	id := m.ToolCallID
	if id == "" {
		id = "toolu_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	name := m.Name
	if name == "" {
		name = "unknown"
	}
	return []core.Message{
		{
			Role: core.RoleAssistant,
			Content: core.Parts(core.Block{
				"type":  core.BlockToolUse,
				"id":    id,
				"name":  name,
				"input": toolInput(m.ToolCallArguments),
			}),
		},
		{
			Role: core.RoleUser,
			Content: core.Parts(core.Block{
				"type":        core.BlockToolResult,
				"tool_use_id": id,
				"content":     toolText(m),
			}),
		},
	}
}

// toolInput parses string arguments as JSON, repairing malformed JSON when
// possible and falling back to an empty object.
func toolInput(args any) any {
	switch v := args.(type) {
	case nil:
		return map[string]any{}
	case string:
		var parsed any
		if err := json.Unmarshal([]byte(v), &parsed); err == nil {
			return parsed
		}
		repaired, err := jsonrepair.JSONRepair(v)
		if err == nil {
			if err := json.Unmarshal([]byte(repaired), &parsed); err == nil {
				return parsed
			}
		}
		slog.Debug("tool call arguments are not JSON", "error", err)
		return map[string]any{}
	default:
		return v
	}
}

// mapParts applies fn to every part of array content. fn drops a part by
// returning nil. A result holding a single bare string collapses to text.
func mapParts(c core.Content, fn func(part any) any) core.Content {
	if !c.IsParts() {
		return c
	}
	parts := make([]any, 0, len(c.Parts()))
	for _, p := range c.Parts() {
		if mapped := fn(p); mapped != nil {
			parts = append(parts, mapped)
		}
	}
	if len(parts) == 1 {
		if s, ok := parts[0].(string); ok {
			return core.Text(s)
		}
	}
	return core.Parts(parts...)
}

func keepPart(p any) any {
	if core.BlockType(p) == core.BlockMarkdownDocument {
		return nil
	}
	return p
}

func anthropicPart(p any) any {
	b, ok := p.(map[string]any)
	if !ok {
		return p
	}
	switch core.BlockType(b) {
	case core.BlockText:
		text, _ := b["text"].(string)
		if text == "" {
			return nil
		}
		return core.TextBlock(text)
	case core.BlockImageURL:
		u := blockURL(b, core.BlockImageURL)
		source := core.Block{"type": "url", "url": u}
		if mediaType, data, ok := core.ParseDataURL(u); ok {
			source = core.Block{"type": "base64", "media_type": mediaType, "data": data}
		}
		return core.Block{
			"type":          "image",
			"source":        source,
			"cache_control": core.Block{"type": "ephemeral"},
		}
	case core.BlockDocumentURL:
		return core.Block{
			"type":          "document",
			"source":        core.Block{"type": "url", "url": blockURL(b, core.BlockDocumentURL)},
			"cache_control": core.Block{"type": "ephemeral"},
		}
	case core.BlockMarkdownDocument:
		return nil
	}
	return p
}

func bedrockPart(p any) any {
	if s, ok := p.(string); ok {
		return core.Block{"text": s}
	}
	switch core.BlockType(p) {
	case core.BlockText:
		text, _ := core.BlockTextOf(p)
		return core.Block{"text": text}
	case core.BlockMarkdownDocument:
		return nil
	}
	return p
}

// googleParts converts content into Gemini parts.
func googleParts(c core.Content) []any {
	if c.IsText() {
		return []any{core.Block{"text": c.String()}}
	}
	parts := make([]any, 0, len(c.Parts()))
	for _, p := range c.Parts() {
		if s, ok := p.(string); ok {
			parts = append(parts, core.Block{"text": s})
			continue
		}
		b, _ := p.(map[string]any)
		switch core.BlockType(p) {
		case core.BlockText:
			text, _ := b["text"].(string)
			parts = append(parts, core.Block{"text": text})
		case core.BlockImageURL:
			u := blockURL(b, core.BlockImageURL)
			if mediaType, data, ok := core.ParseDataURL(u); ok {
				parts = append(parts, core.Block{"inlineData": core.Block{"mimeType": mediaType, "data": data}})
			} else {
				parts = append(parts, core.Block{"fileData": core.Block{"fileUri": u}})
			}
		case core.BlockMarkdownDocument:
		default:
			parts = append(parts, p)
		}
	}
	return parts
}

// collapseWithImage flattens array content to newline-joined text and
// extracts the payload of the first image data URL.
func collapseWithImage(c core.Content) (core.Content, string) {
	if !c.IsParts() {
		return c, ""
	}
	var texts []string
	image := ""
	seenImage := false
	for _, p := range c.Parts() {
		switch core.BlockType(p) {
		case "", core.BlockText:
			if s, ok := core.BlockTextOf(p); ok {
				texts = append(texts, s)
			}
		case core.BlockImageURL:
			if seenImage {
				continue
			}
			seenImage = true
			if _, data, ok := core.ParseDataURL(blockURL(p.(map[string]any), core.BlockImageURL)); ok {
				image = data
			}
		}
	}
	return core.Text(strings.Join(texts, "\n")), image
}

// blockURL reads {key:{url}} or {key:"url"}.
func blockURL(b map[string]any, key string) string {
	switch v := b[key].(type) {
	case string:
		return v
	case map[string]any:
		u, _ := v["url"].(string)
		return u
	}
	return ""
}

// contentText joins the text of content, or returns "" for null.
func contentText(c core.Content) string {
	if c.IsText() {
		return c.String()
	}
	var texts []string
	for _, p := range c.Parts() {
		if t := partText(p); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, "\n")
}
