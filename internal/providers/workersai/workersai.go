// Package workersai registers Cloudflare Workers AI. The base URL is
// account specific and must be configured, e.g.
// https://api.cloudflare.com/client/v4/accounts/{account_id}/ai/run.
package workersai

import (
	"fmt"

	"gatewire/internal/providers"
)

func init() {
	providers.Register(providers.Spec{
		ID: providers.WorkersAI,
		Categories: []providers.Category{
			providers.CategoryChat,
			providers.CategoryImage,
			providers.CategorySpeech,
			providers.CategoryTranscription,
		},
		SetHeaders: providers.BearerAuth,
		Build:      Build,
	})
}

// Build runs the model at /{model}. Chat models take messages, image and
// speech models take a prompt.
func Build(inv providers.Invocation) (providers.Request, error) {
	if inv.Model == "" {
		return providers.Request{}, fmt.Errorf("workers-ai: model is required")
	}
	path := "/" + inv.Model
	switch inv.Category {
	case providers.CategoryChat, "":
		fields := map[string]any{"messages": inv.Messages}
		if inv.Stream {
			fields["stream"] = true
		}
		return providers.Request{Path: path, Body: providers.Body(inv.Params, fields)}, nil
	case providers.CategoryImage, providers.CategorySpeech:
		return providers.Request{Path: path, Body: providers.Body(inv.Params, map[string]any{
			"prompt": providers.PromptText(inv.Messages),
		})}, nil
	case providers.CategoryTranscription:
		return providers.Request{Path: path, Body: providers.Body(nil, inv.Params)}, nil
	}
	return providers.Request{}, fmt.Errorf("workers-ai: unsupported category %q", inv.Category)
}
