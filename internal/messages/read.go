package messages

import (
	"strings"

	"gatewire/internal/core"
)

// ReadText returns the text carried by a message in any formatted shape:
// plain strings, text blocks, untyped {text} blocks, tool results and
// Gemini parts.
func ReadText(m core.Message) string {
	if len(m.Parts) > 0 {
		var texts []string
		for _, p := range m.Parts {
			if t := partText(p); t != "" {
				texts = append(texts, t)
			}
		}
		return strings.Join(texts, "\n")
	}
	return contentText(m.Content)
}

func partText(p any) string {
	switch v := p.(type) {
	case string:
		return v
	case map[string]any:
		switch core.BlockType(v) {
		case "", core.BlockText:
			s, _ := v["text"].(string)
			return s
		case core.BlockToolResult:
			s, _ := v["content"].(string)
			return s
		}
	}
	return ""
}
