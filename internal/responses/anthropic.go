package responses

import (
	"github.com/tidwall/gjson"

	"gatewire/internal/core"
)

func formatAnthropic(data []byte, opts Options) (*core.Response, error) {
	root, err := parse(data, "anthropic")
	if err != nil {
		return nil, err
	}

	resp := &core.Response{}
	if opts.Stream {
		delta := root.Get("delta")
		resp.Response = core.Text(delta.Get("text").String())
		resp.Thinking = delta.Get("thinking").String()
		resp.Signature = delta.Get("signature").String()
		setUsage(resp, firstOf(root, "usage", "message.usage"))
		return resp, nil
	}

	content := root.Get("content")
	if !content.IsArray() {
		return formatGeneric(data, opts)
	}
	text, thinking, signature := blockText(content, " ")
	resp.Response = finishText(text, opts)
	resp.Thinking = thinking
	resp.Signature = signature

	content.ForEach(func(_, b gjson.Result) bool {
		if b.Get("type").String() != "tool_use" {
			return true
		}
		resp.ToolCalls = append(resp.ToolCalls, map[string]any{
			"id":        b.Get("id").String(),
			"name":      b.Get("name").String(),
			"arguments": decodeAny(b.Get("input")),
		})
		return true
	})
	setUsage(resp, root.Get("usage"))
	return resp, nil
}
