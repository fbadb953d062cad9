package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatewire/internal/core"
	"gatewire/internal/providers"
)

func TestBuild(t *testing.T) {
	msgs := []core.Message{{Role: core.RoleUser, Content: core.Text("a red fox")}}

	tests := []struct {
		name     string
		inv      providers.Invocation
		wantPath string
		wantKeys map[string]any
	}{
		{
			name:     "chat stream",
			inv:      providers.Invocation{Category: providers.CategoryChat, Model: "gpt-4o", Messages: msgs, Stream: true, Params: map[string]any{"temperature": 0.2}},
			wantPath: "/chat/completions",
			wantKeys: map[string]any{"model": "gpt-4o", "stream": true, "temperature": 0.2},
		},
		{
			name:     "image",
			inv:      providers.Invocation{Category: providers.CategoryImage, Model: "gpt-image-1", Messages: msgs},
			wantPath: "/images/generations",
			wantKeys: map[string]any{"prompt": "a red fox"},
		},
		{
			name:     "speech",
			inv:      providers.Invocation{Category: providers.CategorySpeech, Model: "tts-1", Messages: msgs, Params: map[string]any{"voice": "alloy"}},
			wantPath: "/audio/speech",
			wantKeys: map[string]any{"input": "a red fox", "voice": "alloy"},
		},
		{
			name:     "embedding",
			inv:      providers.Invocation{Category: providers.CategoryEmbedding, Model: "text-embedding-3-small", Messages: msgs},
			wantPath: "/embeddings",
			wantKeys: map[string]any{"input": "a red fox"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Build(tt.inv)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, req.Path)
			body := req.Body.(map[string]any)
			for k, v := range tt.wantKeys {
				assert.Equal(t, v, body[k], k)
			}
		})
	}
}

func TestBuild_UnsupportedCategory(t *testing.T) {
	_, err := Build(providers.Invocation{Category: providers.CategoryVideo})
	assert.Error(t, err)
}
