// Package assets persists generated media to object storage so that
// canonical responses carry stable URLs instead of provider links or inline
// payloads.
package assets

import (
	"compress/gzip"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"gatewire/internal/core"
	"gatewire/internal/observability"
)

// maxAssetBytes bounds a single download.
const maxAssetBytes = 512 << 20

// Source is one generated asset as the provider returned it. Exactly one of
// URL (remote or data URL), Base64 or Bytes is set.
type Source struct {
	URL         string
	Base64      string
	Bytes       []byte
	ContentType string
	Kind        string
}

// Target names the call the assets belong to.
type Target struct {
	Provider     string
	Model        string
	CompletionID string
}

// Persister fetches or decodes assets and uploads them.
type Persister struct {
	client *http.Client
}

// NewPersister returns a Persister that downloads with client. A nil client
// uses http.DefaultClient.
func NewPersister(client *http.Client) *Persister {
	if client == nil {
		client = http.DefaultClient
	}
	return &Persister{client: client}
}

// Persist uploads every source concurrently and returns their metadata in
// source order. The first failure cancels the rest and is returned; there
// is no partial result.
func (p *Persister) Persist(ctx context.Context, env *core.Env, target Target, sources []Source) ([]core.AssetMetadata, error) {
	if env == nil || env.Storage == nil {
		return nil, core.NewConfigurationError("media persistence requires an object storage binding")
	}
	if env.PublicBaseURL == "" {
		return nil, core.NewConfigurationError("media persistence requires a public base URL")
	}

	out := make([]core.AssetMetadata, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			meta, err := p.persistOne(gctx, env, target, src)
			observability.AssetsPersisted.WithLabelValues(sourceLabel(src), observability.Outcome(err)).Inc()
			if err != nil {
				return err
			}
			out[i] = meta
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Persister) persistOne(ctx context.Context, env *core.Env, target Target, src Source) (core.AssetMetadata, error) {
	body, contentType, err := p.load(ctx, target.Provider, src)
	if err != nil {
		return core.AssetMetadata{}, err
	}
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	contentType = baseContentType(contentType)

	key := Key(target.CompletionID, target.Model, extensionFor(contentType, src.URL, src.Kind))
	stored, err := env.Storage.UploadObject(ctx, key, body, core.UploadOptions{
		ContentType:   contentType,
		ContentLength: int64(len(body)),
	})
	if err != nil {
		return core.AssetMetadata{}, fmt.Errorf("upload asset %s: %w", key, err)
	}
	observability.AssetBytes.Add(float64(len(body)))

	original := src.URL
	if strings.HasPrefix(original, "data:") || original == "" {
		// never echo inline payloads back
		original = ""
	}
	slog.Debug("asset persisted", "key", stored, "content_type", contentType, "size", len(body))
	return core.AssetMetadata{
		Key:         stored,
		URL:         strings.TrimRight(env.PublicBaseURL, "/") + "/" + stored,
		OriginalURL: original,
		ContentType: contentType,
		Size:        int64(len(body)),
		Checksum:    fmt.Sprintf("%016x", xxhash.Sum64(body)),
	}, nil
}

func (p *Persister) load(ctx context.Context, provider string, src Source) ([]byte, string, error) {
	switch {
	case src.Bytes != nil:
		return src.Bytes, src.ContentType, nil
	case src.Base64 != "":
		body, err := decodeBase64(src.Base64)
		if err != nil {
			return nil, "", core.NewProviderError(provider, http.StatusBadGateway, "invalid base64 asset payload", err)
		}
		return body, src.ContentType, nil
	case strings.HasPrefix(src.URL, "data:"):
		mediaType, data, ok := core.ParseDataURL(src.URL)
		if !ok {
			return nil, "", core.NewProviderError(provider, http.StatusBadGateway, "unsupported data URL asset", nil)
		}
		body, err := decodeBase64(data)
		if err != nil {
			return nil, "", core.NewProviderError(provider, http.StatusBadGateway, "invalid base64 asset payload", err)
		}
		return body, mediaType, nil
	case src.URL != "":
		return p.fetch(ctx, provider, src.URL)
	}
	return nil, "", core.NewProviderError(provider, http.StatusBadGateway, "empty asset", nil)
}

// fetch downloads url, decoding brotli and gzip bodies.
func (p *Persister) fetch(ctx context.Context, provider, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", core.NewProviderError(provider, http.StatusBadGateway, "invalid asset URL", err)
	}
	req.Header.Set("Accept-Encoding", "br, gzip")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", core.NewProviderError(provider, http.StatusBadGateway, "failed to fetch asset: "+err.Error(), err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", core.NewProviderError(provider, resp.StatusCode, fmt.Sprintf("failed to fetch asset: upstream status %d", resp.StatusCode), nil)
	}

	var r io.Reader = resp.Body
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "br":
		r = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, "", core.NewProviderError(provider, http.StatusBadGateway, "invalid gzip asset body", err)
		}
		defer func() {
			_ = gz.Close()
		}()
		r = gz
	}

	body, err := io.ReadAll(io.LimitReader(r, maxAssetBytes))
	if err != nil {
		return nil, "", core.NewProviderError(provider, http.StatusBadGateway, "failed to read asset: "+err.Error(), err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// Key builds generations/{completion_id}/{model}/{uuid}.{ext}. Segments are
// kept verbatim; one that is empty or walks out of its directory is replaced
// by a fixed name. The object store validates the final key.
func Key(completionID, model, ext string) string {
	return fmt.Sprintf("generations/%s/%s/%s.%s",
		keySegment(completionID, "completion"), keySegment(model, "model"), uuid.NewString(), ext)
}

func keySegment(s, fallback string) string {
	s = strings.TrimSuffix(strings.TrimSpace(s), "/")
	if s == "" || strings.HasPrefix(s, "/") || strings.Contains(s, "..") {
		return fallback
	}
	for _, elem := range strings.Split(s, "/") {
		if elem == "" || elem == "." || elem == ".." {
			return fallback
		}
	}
	return s
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

func sourceLabel(src Source) string {
	switch {
	case src.Bytes != nil:
		return "bytes"
	case src.Base64 != "" || strings.HasPrefix(src.URL, "data:"):
		return "base64"
	}
	return "url"
}
