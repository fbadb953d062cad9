package responses

import (
	"context"
	"net/http"

	"github.com/tidwall/gjson"

	"gatewire/internal/assets"
	"gatewire/internal/core"
)

func (f *Formatter) formatWorkersAI(ctx context.Context, data []byte, opts Options) (*core.Response, error) {
	switch opts.typ() {
	case TypeImage:
		if !gjson.ValidBytes(data) {
			// some image models answer with the PNG itself
			return f.mediaResponse(ctx, "workers-ai", assets.KindImage, []assets.Source{{Bytes: data, Kind: assets.KindImage}}, opts)
		}
		img := firstOf(gjson.ParseBytes(data), "result.image", "image").String()
		if img == "" {
			return nil, core.NewProviderError("workers-ai", http.StatusBadGateway, "image response contained no image", nil)
		}
		return f.mediaResponse(ctx, "workers-ai", assets.KindImage, []assets.Source{{Base64: img, Kind: assets.KindImage}}, opts)
	case TypeAudio, TypeSpeech:
		if !gjson.ValidBytes(data) {
			return f.mediaResponse(ctx, "workers-ai", assets.KindAudio, []assets.Source{{Bytes: data, Kind: assets.KindAudio}}, opts)
		}
		audio := firstOf(gjson.ParseBytes(data), "result.audio", "audio").String()
		if audio == "" {
			return nil, core.NewProviderError("workers-ai", http.StatusBadGateway, "audio response contained no audio", nil)
		}
		return f.mediaResponse(ctx, "workers-ai", assets.KindAudio, []assets.Source{{Base64: audio, Kind: assets.KindAudio}}, opts)
	}

	root, err := parse(data, "workers-ai")
	if err != nil {
		return nil, err
	}
	if opts.typ() == TypeTranscription {
		return &core.Response{Response: core.Text(firstOf(root, "result.text", "text").String())}, nil
	}

	text := firstOf(root, "result.response", "response")
	if !text.Exists() {
		return formatGeneric(data, opts)
	}
	resp := &core.Response{
		Response:  finishText(text.String(), opts),
		ToolCalls: objects(firstOf(root, "result.tool_calls", "tool_calls")),
	}
	setUsage(resp, firstOf(root, "result.usage", "usage"))
	return resp, nil
}
