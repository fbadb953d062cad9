package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatewire/internal/core"
	"gatewire/internal/objectstore"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

var keyPattern = regexp.MustCompile(`^generations/chatcmpl-1/dall-e-3/[0-9a-f-]{36}\.png$`)

func memoryEnv() (*core.Env, *objectstore.Memory) {
	mem := objectstore.NewMemory()
	return &core.Env{Storage: mem, PublicBaseURL: "https://cdn.example.com/"}, mem
}

func TestPersist_Base64(t *testing.T) {
	env, mem := memoryEnv()
	p := NewPersister(nil)

	assets, err := p.Persist(context.Background(), env, Target{Provider: "openai", Model: "dall-e-3", CompletionID: "chatcmpl-1"}, []Source{
		{Base64: base64.StdEncoding.EncodeToString(pngHeader), Kind: KindImage},
	})
	require.NoError(t, err)
	require.Len(t, assets, 1)

	a := assets[0]
	assert.Regexp(t, keyPattern, a.Key)
	assert.Equal(t, "https://cdn.example.com/"+a.Key, a.URL)
	assert.Equal(t, "image/png", a.ContentType)
	assert.Equal(t, int64(len(pngHeader)), a.Size)
	assert.Len(t, a.Checksum, 16)
	assert.Empty(t, a.OriginalURL)

	obj, ok := mem.Get(a.Key)
	require.True(t, ok)
	assert.Equal(t, pngHeader, obj.Body)
}

func TestPersist_DataURL(t *testing.T) {
	env, _ := memoryEnv()
	assets, err := NewPersister(nil).Persist(context.Background(), env, Target{}, []Source{
		{URL: "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString([]byte("ID3 audio")), Kind: KindAudio},
	})
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.True(t, strings.HasPrefix(assets[0].Key, "generations/completion/model/"))
	assert.True(t, strings.HasSuffix(assets[0].Key, ".mp3"))
	assert.Equal(t, "audio/mpeg", assets[0].ContentType)
	assert.Empty(t, assets[0].OriginalURL)
}

func TestPersist_RemoteBrotli(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "br, gzip", r.Header.Get("Accept-Encoding"))
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		_, _ = bw.Write(pngHeader)
		_ = bw.Close()
		w.Header().Set("Content-Encoding", "br")
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	}))
	defer server.Close()

	env, mem := memoryEnv()
	src := server.URL + "/out/0.png"
	assets, err := NewPersister(server.Client()).Persist(context.Background(), env, Target{Model: "flux", CompletionID: "c1"}, []Source{{URL: src, Kind: KindImage}})
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, src, assets[0].OriginalURL)

	obj, ok := mem.Get(assets[0].Key)
	require.True(t, ok)
	assert.Equal(t, pngHeader, obj.Body)
	assert.Equal(t, "image/png", obj.ContentType)
}

func TestPersist_AllOrNothing(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path == "/missing.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(pngHeader)
	}))
	defer server.Close()

	env, _ := memoryEnv()
	assets, err := NewPersister(server.Client()).Persist(context.Background(), env, Target{}, []Source{
		{URL: server.URL + "/ok.png", Kind: KindImage},
		{URL: server.URL + "/missing.png", Kind: KindImage},
	})
	require.Error(t, err)
	assert.Nil(t, assets)

	var gwErr *core.GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Contains(t, gwErr.Message, "failed to fetch asset")
}

func TestPersist_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  *core.Env
	}{
		{"nil env", nil},
		{"missing storage", &core.Env{PublicBaseURL: "https://cdn.example.com"}},
		{"missing base url", &core.Env{Storage: objectstore.NewMemory()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPersister(nil).Persist(context.Background(), tt.env, Target{}, []Source{{Bytes: pngHeader}})
			assert.ErrorIs(t, err, core.ErrConfiguration)
		})
	}
}

func TestKey_KeepsModelVerbatim(t *testing.T) {
	tests := []struct {
		completionID string
		model        string
		wantPrefix   string
	}{
		{"c1", "@cf/black-forest-labs/flux-1-schnell", "generations/c1/@cf/black-forest-labs/flux-1-schnell/"},
		{"c1", "stability-ai/sdxl:39ed52f2", "generations/c1/stability-ai/sdxl:39ed52f2/"},
		{"c1", "dall-e-3", "generations/c1/dall-e-3/"},
		{"c1", "", "generations/c1/model/"},
		{"", "dall-e-3", "generations/completion/dall-e-3/"},
		{"c1", "../../etc/passwd", "generations/c1/model/"},
		{"c1", "/abs/model", "generations/c1/model/"},
		{"c1", "a//b", "generations/c1/model/"},
		{"c1", "x..y", "generations/c1/model/"},
		{"../c1", "m", "generations/completion/m/"},
	}

	for _, tt := range tests {
		t.Run(tt.completionID+"|"+tt.model, func(t *testing.T) {
			key := Key(tt.completionID, tt.model, "png")
			assert.True(t, strings.HasPrefix(key, tt.wantPrefix), key)
			assert.True(t, strings.HasSuffix(key, ".png"), key)
		})
	}
}

func TestKey_VerbatimModelIsAcceptedByStore(t *testing.T) {
	env, mem := memoryEnv()

	out, err := NewPersister(nil).Persist(context.Background(), env,
		Target{Provider: "workers-ai", Model: "@cf/black-forest-labs/flux-1-schnell", CompletionID: "c1"},
		[]Source{{Base64: base64.StdEncoding.EncodeToString(pngHeader), Kind: KindImage}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, strings.HasPrefix(out[0].Key, "generations/c1/@cf/black-forest-labs/flux-1-schnell/"), out[0].Key)
	_, ok := mem.Get(out[0].Key)
	assert.True(t, ok)
}

func TestHasExtension(t *testing.T) {
	tests := []struct {
		url  string
		kind string
		want bool
	}{
		{"https://x.test/a.PNG", KindImage, true},
		{"https://x.test/a.png?sig=1", KindImage, true},
		{"https://x.test/a.mp4", KindImage, false},
		{"https://x.test/a.mp4", KindVideo, true},
		{"https://x.test/a.wav", KindAudio, true},
		{"https://x.test/a", KindAudio, false},
	}

	for _, tt := range tests {
		t.Run(tt.url+"/"+tt.kind, func(t *testing.T) {
			assert.Equal(t, tt.want, HasExtension(tt.url, tt.kind))
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindAudio, KindOf("speech"))
	assert.Equal(t, KindAudio, KindOf("music"))
	assert.Equal(t, KindImage, KindOf("image"))
	assert.Equal(t, "", KindOf("text"))
}
