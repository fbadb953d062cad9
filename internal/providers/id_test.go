package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want ID
	}{
		{"openai", OpenAI},
		{" Google-AI-Studio ", GoogleAIStudio},
		{"workers-ai", WorkersAI},
		{"replicate", Replicate},
		{"something-else", Unknown},
		{"", Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.in))
		})
	}
}

func TestOpenAIFormatGroup(t *testing.T) {
	for _, id := range []ID{OpenAI, Compat, Groq, Mistral, PerplexityAI, DeepSeek, HuggingFace, GitHubModels, TogetherAI, Parallel, OpenRouter, Cerebras} {
		assert.True(t, id.OpenAIFormat(), id)
	}
	for _, id := range []ID{Anthropic, GoogleAIStudio, Bedrock, WorkersAI, Ollama, Replicate, Unknown} {
		assert.False(t, id.OpenAIFormat(), id)
	}
}

func TestParseCategory(t *testing.T) {
	c, ok := ParseCategory("Image")
	assert.True(t, ok)
	assert.Equal(t, CategoryImage, c)
	assert.Equal(t, "image", c.Modality())
	assert.Equal(t, "audio", CategoryMusic.Modality())
	assert.Equal(t, "text", CategoryChat.Modality())

	_, ok = ParseCategory("guardrail")
	assert.False(t, ok)
}

func TestUnknownString(t *testing.T) {
	assert.Equal(t, "unknown", Unknown.String())
	assert.Equal(t, "bedrock", Bedrock.String())
}
