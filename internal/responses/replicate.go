package responses

import (
	"context"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"gatewire/internal/assets"
	"gatewire/internal/core"
)

// formatReplicate classifies a prediction's output. Media requests prefer
// URLs with an extension of the requested kind, then any URL, then the
// joined text. Text requests join every string in the output.
func (f *Formatter) formatReplicate(ctx context.Context, data []byte, opts Options) (*core.Response, error) {
	root, err := parse(data, "replicate")
	if err != nil {
		return nil, err
	}
	output := root.Get("output")
	if !output.Exists() {
		if root.Get("error").String() != "" {
			return nil, core.NewProviderError("replicate", http.StatusBadGateway, root.Get("error").String(), nil)
		}
		return formatGeneric(data, opts)
	}

	leaves := stringLeaves(output, nil)
	kind := assets.KindOf(opts.typ())
	if kind == "" {
		resp := &core.Response{Response: finishText(strings.Join(leaves, ""), opts)}
		setUsage(resp, root.Get("metrics"))
		return resp, nil
	}

	urls, texts := splitURLs(leaves)
	chosen := filterByKind(urls, kind)
	if len(chosen) == 0 {
		chosen = urls
	}
	if len(chosen) == 0 {
		return &core.Response{Response: core.Text(strings.Join(texts, "\n"))}, nil
	}

	sources := make([]assets.Source, 0, len(chosen))
	for _, u := range chosen {
		sources = append(sources, assets.Source{URL: u, Kind: kind})
	}
	return f.mediaResponse(ctx, "replicate", kind, sources, opts)
}

// stringLeaves collects every string in r in document order.
func stringLeaves(r gjson.Result, out []string) []string {
	switch {
	case r.Type == gjson.String:
		return append(out, r.String())
	case r.IsArray() || r.IsObject():
		r.ForEach(func(_, v gjson.Result) bool {
			out = stringLeaves(v, out)
			return true
		})
	}
	return out
}

func splitURLs(leaves []string) (urls, texts []string) {
	for _, s := range leaves {
		if assets.IsURL(strings.TrimSpace(s)) {
			urls = append(urls, strings.TrimSpace(s))
		} else {
			texts = append(texts, s)
		}
	}
	return urls, texts
}

func filterByKind(urls []string, kind string) []string {
	var out []string
	for _, u := range urls {
		if strings.HasPrefix(u, "data:") {
			if mt, _, ok := core.ParseDataURL(u); ok && strings.HasPrefix(mt, kind+"/") {
				out = append(out, u)
			}
			continue
		}
		if assets.HasExtension(u, kind) {
			out = append(out, u)
		}
	}
	return out
}
