// Package replicate registers Replicate predictions. Replicate completes
// work asynchronously: a prediction is created and later polled by id.
package replicate

import (
	"fmt"
	"strings"

	"gatewire/internal/providers"
)

const (
	defaultBaseURL = "https://api.replicate.com/v1"
	statusPath     = "/predictions/{id}"
)

func init() {
	providers.Register(providers.Spec{
		ID:             providers.Replicate,
		DefaultBaseURL: defaultBaseURL,
		Categories: []providers.Category{
			providers.CategoryChat,
			providers.CategoryImage,
			providers.CategoryVideo,
			providers.CategoryAudio,
			providers.CategoryMusic,
		},
		SetHeaders: providers.BearerAuth,
		Build:      Build,
		StatusPath: statusPath,
	})
}

// Build creates a prediction. "owner/name" models use the model endpoint;
// "owner/name:version" and bare version ids use /predictions.
func Build(inv providers.Invocation) (providers.Request, error) {
	if inv.Model == "" {
		return providers.Request{}, fmt.Errorf("replicate: model is required")
	}

	input := providers.Body(nil, inv.Params)
	if _, ok := input["prompt"]; !ok {
		if prompt := providers.PromptText(inv.Messages); prompt != "" {
			input["prompt"] = prompt
		}
	}
	if inv.SystemPrompt != "" {
		if _, ok := input["system_prompt"]; !ok {
			input["system_prompt"] = inv.SystemPrompt
		}
	}

	if _, version, ok := strings.Cut(inv.Model, ":"); ok {
		return providers.Request{Path: "/predictions", Body: map[string]any{
			"version": version,
			"input":   input,
		}}, nil
	}
	if !strings.Contains(inv.Model, "/") {
		return providers.Request{Path: "/predictions", Body: map[string]any{
			"version": inv.Model,
			"input":   input,
		}}, nil
	}
	return providers.Request{Path: "/models/" + inv.Model + "/predictions", Body: map[string]any{
		"input": input,
	}}, nil
}
