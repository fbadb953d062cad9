package providers

import "strings"

// ID identifies an upstream provider. The set is closed: every formatter
// switches over these values and treats Unknown through its generic path.
type ID string

const (
	Unknown        ID = ""
	OpenAI         ID = "openai"
	Compat         ID = "compat"
	Anthropic      ID = "anthropic"
	GoogleAIStudio ID = "google-ai-studio"
	Bedrock        ID = "bedrock"
	WorkersAI      ID = "workers-ai"
	Ollama         ID = "ollama"
	GitHubModels   ID = "github-models"
	Groq           ID = "groq"
	Mistral        ID = "mistral"
	PerplexityAI   ID = "perplexity-ai"
	DeepSeek       ID = "deepseek"
	HuggingFace    ID = "huggingface"
	TogetherAI     ID = "together-ai"
	Parallel       ID = "parallel"
	OpenRouter     ID = "openrouter"
	Cerebras       ID = "cerebras"
	Replicate      ID = "replicate"
)

var known = map[string]ID{}

func init() {
	for _, id := range All() {
		known[string(id)] = id
	}
}

// All returns every known provider ID.
func All() []ID {
	return []ID{
		OpenAI, Compat, Anthropic, GoogleAIStudio, Bedrock, WorkersAI, Ollama,
		GitHubModels, Groq, Mistral, PerplexityAI, DeepSeek, HuggingFace,
		TogetherAI, Parallel, OpenRouter, Cerebras, Replicate,
	}
}

// Parse maps a provider name to its ID. Matching ignores case and
// surrounding space; unknown names yield Unknown.
func Parse(name string) ID {
	return known[strings.ToLower(strings.TrimSpace(name))]
}

func (id ID) String() string {
	if id == Unknown {
		return "unknown"
	}
	return string(id)
}

// OpenAIFormat reports whether the provider speaks the OpenAI chat
// completions reply shape.
func (id ID) OpenAIFormat() bool {
	switch id {
	case OpenAI, Compat, Groq, Mistral, PerplexityAI, DeepSeek, HuggingFace,
		GitHubModels, TogetherAI, Parallel, OpenRouter, Cerebras:
		return true
	}
	return false
}

// Category is a provider capability.
type Category string

const (
	CategoryChat          Category = "chat"
	CategoryImage         Category = "image"
	CategoryAudio         Category = "audio"
	CategorySpeech        Category = "speech"
	CategoryTranscription Category = "transcription"
	CategoryEmbedding     Category = "embedding"
	CategoryVideo         Category = "video"
	CategoryMusic         Category = "music"
)

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, bool) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryChat, CategoryImage, CategoryAudio, CategorySpeech,
		CategoryTranscription, CategoryEmbedding, CategoryVideo, CategoryMusic:
		return c, true
	}
	return "", false
}

// Modality is the response type passed to the response formatter for a
// category. Music replies are formatted as audio.
func (c Category) Modality() string {
	switch c {
	case CategoryChat, "":
		return "text"
	case CategoryMusic:
		return "audio"
	}
	return string(c)
}
