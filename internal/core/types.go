package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
	RoleDeveloper = "developer"
)

// Content block type tags
const (
	BlockText             = "text"
	BlockImageURL         = "image_url"
	BlockAudioURL         = "audio_url"
	BlockVideoURL         = "video_url"
	BlockDocumentURL      = "document_url"
	BlockMarkdownDocument = "markdown_document"
	BlockInputAudio       = "input_audio"
	BlockToolUse          = "tool_use"
	BlockToolResult       = "tool_result"
	BlockThinking         = "thinking"
)

// Block is one tagged segment of multi-part content. The "type" key selects
// which other keys are meaningful; blocks with unknown tags are carried as-is.
type Block = map[string]any

// TextBlock builds a {type:text,text} block.
func TextBlock(text string) Block {
	return Block{"type": BlockText, "text": text}
}

// BlockType returns the type tag of a content part, or "" for bare strings
// and untagged values.
func BlockType(part any) string {
	b, ok := part.(map[string]any)
	if !ok {
		return ""
	}
	t, _ := b["type"].(string)
	return t
}

// BlockTextOf returns the "text" field of a content part. Bare strings are
// returned unchanged.
func BlockTextOf(part any) (string, bool) {
	switch p := part.(type) {
	case string:
		return p, true
	case map[string]any:
		s, ok := p["text"].(string)
		return s, ok
	}
	return "", false
}

type contentKind uint8

const (
	contentText contentKind = iota
	contentParts
	contentNull
)

// Content is either a plain string, an ordered list of parts, or null.
// The zero value is the empty string. Parts are bare strings or Blocks.
type Content struct {
	kind  contentKind
	text  string
	parts []any
}

// Text returns string content.
func Text(s string) Content {
	return Content{kind: contentText, text: s}
}

// Parts returns array content holding a copy of parts.
func Parts(parts ...any) Content {
	cp := make([]any, len(parts))
	copy(cp, parts)
	return Content{kind: contentParts, parts: cp}
}

// Null returns null content.
func Null() Content {
	return Content{kind: contentNull}
}

// IsNull reports whether the content is null.
func (c Content) IsNull() bool { return c.kind == contentNull }

// IsText reports whether the content is a plain string.
func (c Content) IsText() bool { return c.kind == contentText }

// IsParts reports whether the content is an array of parts.
func (c Content) IsParts() bool { return c.kind == contentParts }

// String returns the string value for text content and "" otherwise.
func (c Content) String() string {
	if c.kind == contentText {
		return c.text
	}
	return ""
}

// Parts returns the parts for array content. The slice must not be modified.
func (c Content) Parts() []any {
	if c.kind == contentParts {
		return c.parts
	}
	return nil
}

// MarshalJSON encodes the content as a string, an array or null.
func (c Content) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case contentNull:
		return []byte("null"), nil
	case contentParts:
		if c.parts == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(c.parts)
	default:
		return json.Marshal(c.text)
	}
}

// UnmarshalJSON decodes a string, an array or null.
func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = Null()
		return nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*c = Text(s)
		return nil
	case '[':
		var parts []any
		if err := json.Unmarshal(trimmed, &parts); err != nil {
			return err
		}
		*c = Content{kind: contentParts, parts: parts}
		return nil
	}
	return fmt.Errorf("content must be a string, an array or null")
}

// Message is one canonical conversation turn.
type Message struct {
	Role              string           `json:"role"`
	Content           Content          `json:"content"`
	Name              string           `json:"name,omitempty"`
	ToolCalls         []map[string]any `json:"tool_calls,omitempty"`
	ToolCallID        string           `json:"tool_call_id,omitempty"`
	ToolCallArguments any              `json:"tool_call_arguments,omitempty"`
	Data              any              `json:"data,omitempty"`

	// Parts holds google-ai-studio shaped content.
	Parts []any `json:"parts,omitempty"`
	// Image holds a base64 image payload for providers that take one image
	// next to plain text content.
	Image string `json:"image,omitempty"`
}

// Response is the canonical reply shape every provider formatter produces.
type Response struct {
	Response  Content          `json:"response"`
	Thinking  string           `json:"thinking"`
	Signature string           `json:"signature"`
	ToolCalls []map[string]any `json:"tool_calls,omitempty"`
	Data      *ResponseData    `json:"data,omitempty"`
}

// ResponseData carries side data produced while formatting a reply.
type ResponseData struct {
	Assets          []AssetMetadata          `json:"assets,omitempty"`
	SearchGrounding json.RawMessage          `json:"searchGrounding,omitempty"`
	AsyncInvocation *AsyncInvocationMetadata `json:"asyncInvocation,omitempty"`
	Citations       json.RawMessage          `json:"citations,omitempty"`
	SearchResults   json.RawMessage          `json:"searchResults,omitempty"`
	Usage           json.RawMessage          `json:"usage,omitempty"`
	Embeddings      [][]float64              `json:"embeddings,omitempty"`
}

// EnsureData returns r.Data, allocating it when needed.
func (r *Response) EnsureData() *ResponseData {
	if r.Data == nil {
		r.Data = &ResponseData{}
	}
	return r.Data
}

// AssetMetadata describes one generated media artifact persisted to storage.
type AssetMetadata struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	OriginalURL string `json:"originalUrl"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Checksum    string `json:"checksum,omitempty"`
}
