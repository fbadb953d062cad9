package responses

import (
	"context"
	"encoding/base64"

	"gatewire/internal/assets"
	"gatewire/internal/core"
)

var defaultContentType = map[string]string{
	assets.KindImage: "image/png",
	assets.KindAudio: "audio/mpeg",
	assets.KindVideo: "video/mp4",
}

// mediaResponse builds the reply for generated media. With an Env every
// source is persisted and referenced by its public URL; without one,
// provider URLs pass through and inline payloads become data URLs.
func (f *Formatter) mediaResponse(ctx context.Context, provider string, kind string, sources []assets.Source, opts Options) (*core.Response, error) {
	resp := &core.Response{}
	if opts.Env == nil {
		parts := make([]any, 0, len(sources))
		for _, src := range sources {
			parts = append(parts, mediaBlock(kind, passthroughURL(src, kind)))
		}
		resp.Response = core.Parts(parts...)
		return resp, nil
	}

	metas, err := f.assets.Persist(ctx, opts.Env, assets.Target{
		Provider:     provider,
		Model:        opts.Model,
		CompletionID: opts.CompletionID,
	}, sources)
	if err != nil {
		return nil, err
	}
	parts := make([]any, 0, len(metas))
	for _, m := range metas {
		parts = append(parts, mediaBlock(kind, m.URL))
	}
	resp.Response = core.Parts(parts...)
	resp.EnsureData().Assets = metas
	return resp, nil
}

func passthroughURL(src assets.Source, kind string) string {
	if src.URL != "" {
		return src.URL
	}
	ct := src.ContentType
	if ct == "" {
		ct = defaultContentType[kind]
	}
	if src.Base64 != "" {
		return core.DataURL(ct, src.Base64)
	}
	return core.DataURL(ct, base64.StdEncoding.EncodeToString(src.Bytes))
}

// mediaBlock builds an {type:<kind>_url, <kind>_url:{url}} block.
func mediaBlock(kind, url string) core.Block {
	tag := kind + "_url"
	return core.Block{"type": tag, tag: map[string]any{"url": url}}
}
