// Package openai registers the providers that speak the OpenAI REST API:
// OpenAI itself, self-hosted compatible servers and the hosted services
// that mirror its chat completions endpoint.
package openai

import (
	"fmt"

	"gatewire/internal/providers"
)

var baseURLs = map[providers.ID]string{
	providers.OpenAI:       "https://api.openai.com/v1",
	providers.Compat:       "",
	providers.Groq:         "https://api.groq.com/openai/v1",
	providers.Mistral:      "https://api.mistral.ai/v1",
	providers.PerplexityAI: "https://api.perplexity.ai",
	providers.DeepSeek:     "https://api.deepseek.com",
	providers.HuggingFace:  "https://router.huggingface.co/v1",
	providers.GitHubModels: "https://models.github.ai/inference",
	providers.TogetherAI:   "https://api.together.xyz/v1",
	providers.Parallel:     "https://api.parallel.ai",
	providers.OpenRouter:   "https://openrouter.ai/api/v1",
	providers.Cerebras:     "https://api.cerebras.ai/v1",
}

func init() {
	for id, baseURL := range baseURLs {
		categories := []providers.Category{providers.CategoryChat}
		if id == providers.OpenAI || id == providers.Compat {
			categories = append(categories, providers.CategoryImage, providers.CategorySpeech, providers.CategoryEmbedding)
		}
		providers.Register(providers.Spec{
			ID:             id,
			DefaultBaseURL: baseURL,
			Categories:     categories,
			SetHeaders:     providers.BearerAuth,
			Build:          Build,
		})
	}
}

// Build maps an invocation onto the OpenAI endpoints.
func Build(inv providers.Invocation) (providers.Request, error) {
	switch inv.Category {
	case providers.CategoryChat, "":
		fields := map[string]any{
			"model":    inv.Model,
			"messages": inv.Messages,
		}
		if inv.Stream {
			fields["stream"] = true
		}
		return providers.Request{Path: "/chat/completions", Body: providers.Body(inv.Params, fields)}, nil
	case providers.CategoryImage:
		return providers.Request{Path: "/images/generations", Body: providers.Body(inv.Params, map[string]any{
			"model":  inv.Model,
			"prompt": providers.PromptText(inv.Messages),
		})}, nil
	case providers.CategorySpeech:
		return providers.Request{Path: "/audio/speech", Body: providers.Body(inv.Params, map[string]any{
			"model": inv.Model,
			"input": providers.PromptText(inv.Messages),
		})}, nil
	case providers.CategoryEmbedding:
		return providers.Request{Path: "/embeddings", Body: providers.Body(inv.Params, map[string]any{
			"model": inv.Model,
			"input": providers.PromptText(inv.Messages),
		})}, nil
	}
	return providers.Request{}, fmt.Errorf("openai: unsupported category %q", inv.Category)
}
