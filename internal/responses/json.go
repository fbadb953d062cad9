package responses

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"gatewire/internal/core"
)

// parse validates data as JSON. Replies that must carry content and do not
// parse are provider errors.
func parse(data []byte, provider string) (gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, core.NewProviderError(provider, http.StatusBadGateway, "unparseable response payload", nil)
	}
	return gjson.ParseBytes(data), nil
}

// firstOf returns the first existing result among paths.
func firstOf(r gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

// objects decodes a JSON array of objects, returning nil when it does not
// decode.
func objects(r gjson.Result) []map[string]any {
	if !r.IsArray() {
		return nil
	}
	var out []map[string]any
	if err := json.Unmarshal([]byte(r.Raw), &out); err != nil || len(out) == 0 {
		return nil
	}
	return out
}

// decodeAny decodes a JSON value, returning nil on failure.
func decodeAny(r gjson.Result) any {
	if !r.Exists() {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(r.Raw), &v); err != nil {
		return nil
	}
	return v
}

func rawOf(r gjson.Result) json.RawMessage {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	return json.RawMessage(r.Raw)
}

// blockText reads string or block-array content. Text blocks are joined
// with sep; the first thinking block is returned alongside.
func blockText(r gjson.Result, sep string) (text, thinking, signature string) {
	if r.Type == gjson.String {
		return r.String(), "", ""
	}
	if !r.IsArray() {
		return "", "", ""
	}
	var texts []string
	seenThinking := false
	r.ForEach(func(_, b gjson.Result) bool {
		if b.Type == gjson.String {
			texts = append(texts, b.String())
			return true
		}
		switch b.Get("type").String() {
		case "text", "output_text", "":
			if t := b.Get("text"); t.Exists() {
				texts = append(texts, t.String())
			}
		case "thinking":
			if !seenThinking {
				seenThinking = true
				thinking = firstOf(b, "thinking", "text").String()
				signature = b.Get("signature").String()
			}
		}
		return true
	})
	return strings.Join(texts, sep), thinking, signature
}

func setUsage(resp *core.Response, r gjson.Result) {
	if raw := rawOf(r); raw != nil {
		resp.EnsureData().Usage = raw
	}
}
