package responses

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"gatewire/internal/core"
)

// formatGeneric sniffs the reply structure. A reply that already carries a
// canonical "response" is returned as is.
func formatGeneric(data []byte, opts Options) (*core.Response, error) {
	root, err := parse(data, "unknown")
	if err != nil {
		return nil, err
	}

	if root.Get("response").Exists() {
		var resp core.Response
		if err := json.Unmarshal(data, &resp); err == nil {
			return &resp, nil
		}
	}

	resp := &core.Response{}
	if v := firstOf(root, "choices.0.message.content", "choices.0.delta.content", "choices.0.text"); v.Exists() {
		text, _, _ := blockText(v, "")
		resp.Response = finishText(text, opts)
		resp.ToolCalls = objects(firstOf(root, "choices.0.message.tool_calls", "choices.0.delta.tool_calls"))
		setUsage(resp, root.Get("usage"))
		return resp, nil
	}
	if v := root.Get("delta.text"); v.Exists() {
		resp.Response = core.Text(v.String())
		return resp, nil
	}
	for _, path := range []string{"content", "message.content"} {
		v := root.Get(path)
		if v.Type != gjson.String && !v.IsArray() {
			continue
		}
		text, thinking, signature := blockText(v, " ")
		resp.Response = finishText(text, opts)
		resp.Thinking = thinking
		resp.Signature = signature
		return resp, nil
	}
	return resp, nil
}
