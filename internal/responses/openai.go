package responses

import (
	"context"
	"net/http"

	"github.com/tidwall/gjson"

	"gatewire/internal/assets"
	"gatewire/internal/core"
	"gatewire/internal/providers"
)

// formatOpenAI handles openai and compat, which also serve media,
// transcription and embedding endpoints.
func (f *Formatter) formatOpenAI(ctx context.Context, data []byte, id providers.ID, opts Options) (*core.Response, error) {
	switch opts.typ() {
	case TypeSpeech, TypeAudio:
		if gjson.ValidBytes(data) {
			break
		}
		// speech endpoints answer with raw audio
		return f.mediaResponse(ctx, string(id), assets.KindAudio, []assets.Source{{Bytes: data, Kind: assets.KindAudio}}, opts)
	case TypeImage:
		root, err := parse(data, string(id))
		if err != nil {
			return nil, err
		}
		var sources []assets.Source
		root.Get("data").ForEach(func(_, item gjson.Result) bool {
			if b := item.Get("b64_json"); b.String() != "" {
				sources = append(sources, assets.Source{Base64: b.String(), Kind: assets.KindImage})
			} else if u := item.Get("url"); u.String() != "" {
				sources = append(sources, assets.Source{URL: u.String(), Kind: assets.KindImage})
			}
			return true
		})
		if len(sources) == 0 {
			return nil, core.NewProviderError(string(id), http.StatusBadGateway, "image response contained no images", nil)
		}
		resp, err := f.mediaResponse(ctx, string(id), assets.KindImage, sources, opts)
		if err != nil {
			return nil, err
		}
		setUsage(resp, root.Get("usage"))
		return resp, nil
	case TypeTranscription:
		root, err := parse(data, string(id))
		if err != nil {
			return nil, err
		}
		resp := &core.Response{Response: core.Text(root.Get("text").String())}
		setUsage(resp, root.Get("usage"))
		return resp, nil
	case TypeEmbedding:
		root, err := parse(data, string(id))
		if err != nil {
			return nil, err
		}
		resp := &core.Response{}
		var vectors [][]float64
		root.Get("data").ForEach(func(_, item gjson.Result) bool {
			var vec []float64
			item.Get("embedding").ForEach(func(_, v gjson.Result) bool {
				vec = append(vec, v.Float())
				return true
			})
			vectors = append(vectors, vec)
			return true
		})
		resp.EnsureData().Embeddings = vectors
		setUsage(resp, root.Get("usage"))
		return resp, nil
	}
	return formatOpenAIChat(data, id, opts)
}

// formatOpenAIChat reads chat completions replies and stream chunks.
func formatOpenAIChat(data []byte, id providers.ID, opts Options) (*core.Response, error) {
	root, err := parse(data, string(id))
	if err != nil {
		return nil, err
	}
	choice := root.Get("choices.0")
	if !choice.Exists() {
		return formatGeneric(data, opts)
	}

	msg := choice.Get("message")
	if opts.Stream || !msg.Exists() {
		msg = choice.Get("delta")
	}

	resp := &core.Response{}
	text, _, _ := blockText(msg.Get("content"), "")
	if !msg.Exists() {
		text = choice.Get("text").String()
	}
	resp.Response = finishText(text, opts)
	resp.Thinking = firstOf(msg, "reasoning_content", "reasoning").String()
	resp.ToolCalls = objects(msg.Get("tool_calls"))
	setUsage(resp, root.Get("usage"))

	if id == providers.PerplexityAI {
		if c := rawOf(root.Get("citations")); c != nil {
			resp.EnsureData().Citations = c
		}
		if s := rawOf(root.Get("search_results")); s != nil {
			resp.EnsureData().SearchResults = s
		}
	}
	return resp, nil
}
