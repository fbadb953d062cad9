package responses

import (
	"context"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"gatewire/internal/assets"
	"gatewire/internal/core"
)

func (f *Formatter) formatBedrock(ctx context.Context, data []byte, opts Options) (*core.Response, error) {
	root, err := parse(data, "bedrock")
	if err != nil {
		return nil, err
	}

	if opts.typ() == TypeImage {
		var sources []assets.Source
		firstOf(root, "images", "artifacts.#.base64").ForEach(func(_, img gjson.Result) bool {
			if s := img.String(); s != "" {
				sources = append(sources, assets.Source{Base64: s, Kind: assets.KindImage})
			}
			return true
		})
		if len(sources) == 0 {
			msg := "image response contained no images"
			if e := root.Get("error").String(); e != "" {
				msg = e
			}
			return nil, core.NewProviderError("bedrock", http.StatusBadGateway, msg, nil)
		}
		return f.mediaResponse(ctx, "bedrock", assets.KindImage, sources, opts)
	}

	if opts.Stream {
		return bedrockStreamEvent(root), nil
	}

	content := root.Get("output.message.content")
	if !content.IsArray() {
		return formatGeneric(data, opts)
	}
	resp := &core.Response{}
	var texts []string
	content.ForEach(func(_, b gjson.Result) bool {
		switch {
		case b.Get("text").Exists():
			texts = append(texts, b.Get("text").String())
		case b.Get("reasoningContent").Exists():
			if resp.Thinking == "" {
				resp.Thinking = b.Get("reasoningContent.reasoningText.text").String()
				resp.Signature = b.Get("reasoningContent.reasoningText.signature").String()
			}
		case b.Get("toolUse").Exists():
			resp.ToolCalls = append(resp.ToolCalls, map[string]any{
				"id":        b.Get("toolUse.toolUseId").String(),
				"name":      b.Get("toolUse.name").String(),
				"arguments": decodeAny(b.Get("toolUse.input")),
			})
		}
		return true
	})
	resp.Response = finishText(strings.Join(texts, ""), opts)
	setUsage(resp, root.Get("usage"))
	return resp, nil
}

// bedrockStreamEvent reads one converse-stream event, with or without its
// event-type wrapper.
func bedrockStreamEvent(root gjson.Result) *core.Response {
	resp := &core.Response{}
	delta := firstOf(root, "contentBlockDelta.delta", "delta")
	resp.Response = core.Text(delta.Get("text").String())
	resp.Thinking = delta.Get("reasoningContent.text").String()
	resp.Signature = delta.Get("reasoningContent.signature").String()
	setUsage(resp, firstOf(root, "metadata.usage", "usage"))
	return resp
}
