package streaming

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ParseSSEBuffer consumes every complete event block in buf and returns the
// trailing incomplete block for the caller to prepend to the next read.
// The data lines of a block are joined and parsed as one JSON payload;
// empty and [DONE] payloads are skipped. A payload that does not parse is
// reported through onError and parsing continues.
func ParseSSEBuffer(buf string, onEvent func(gjson.Result), onError func(error)) string {
	buf = strings.ReplaceAll(buf, "\r\n", "\n")
	blocks := strings.Split(buf, "\n\n")
	rest := blocks[len(blocks)-1]

	for _, block := range blocks[:len(blocks)-1] {
		var data []string
		for _, line := range strings.Split(block, "\n") {
			if v, ok := strings.CutPrefix(line, "data:"); ok {
				data = append(data, strings.TrimPrefix(v, " "))
			}
		}
		payload := strings.TrimSpace(strings.Join(data, "\n"))
		if payload == "" || payload == "[DONE]" {
			continue
		}
		if !gjson.Valid(payload) {
			if onError != nil {
				onError(fmt.Errorf("invalid SSE payload: %.64q", payload))
			}
			continue
		}
		if onEvent != nil {
			onEvent(gjson.Parse(payload))
		}
	}
	return rest
}

// DetectStreaming reports whether a request expects a streamed reply: a
// body with "stream": true, or a streaming endpoint path.
func DetectStreaming(body map[string]any, path string) bool {
	if s, ok := body["stream"].(bool); ok && s {
		return true
	}
	return strings.Contains(path, "streamGenerateContent") || strings.Contains(path, "converse-stream")
}
