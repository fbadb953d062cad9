package responses

import "gatewire/internal/core"

func formatOllama(data []byte, opts Options) (*core.Response, error) {
	root, err := parse(data, "ollama")
	if err != nil {
		return nil, err
	}
	msg := root.Get("message")
	if !msg.Exists() && !root.Get("response").Exists() {
		return formatGeneric(data, opts)
	}

	resp := &core.Response{
		Response:  finishText(firstOf(root, "message.content", "response").String(), opts),
		Thinking:  firstOf(root, "message.thinking", "thinking").String(),
		ToolCalls: objects(msg.Get("tool_calls")),
	}
	if root.Get("done").Bool() {
		if u := root.Get("{prompt_eval_count,eval_count}"); u.Raw != "{}" {
			resp.EnsureData().Usage = rawOf(u)
		}
	}
	return resp, nil
}
