// Package responses converts provider replies into the canonical response
// shape.
package responses

import (
	"context"
	"log/slog"

	"gatewire/internal/assets"
	"gatewire/internal/core"
	"gatewire/internal/observability"
	"gatewire/internal/providers"
)

// Response types.
const (
	TypeText          = "text"
	TypeImage         = "image"
	TypeAudio         = "audio"
	TypeSpeech        = "speech"
	TypeTranscription = "transcription"
	TypeVideo         = "video"
	TypeEmbedding     = "embedding"
)

// Options control how a reply is interpreted.
type Options struct {
	Model        string
	CompletionID string
	// Type is the requested modality. Empty means text.
	Type string
	// Stream marks data as a single decoded stream event.
	Stream bool
	// Env enables media persistence. Nil passes provider URLs through.
	Env *core.Env
}

func (o Options) typ() string {
	if o.Type == "" {
		return TypeText
	}
	return o.Type
}

// Formatter formats provider replies. It is safe for concurrent use.
type Formatter struct {
	assets *assets.Persister
}

// New returns a Formatter that persists media with p. A nil p downloads
// with http.DefaultClient.
func New(p *assets.Persister) *Formatter {
	if p == nil {
		p = assets.NewPersister(nil)
	}
	return &Formatter{assets: p}
}

// Format converts data, a reply from provider, to a canonical response.
// Unknown provider names are handled by structural sniffing.
func (f *Formatter) Format(ctx context.Context, data []byte, provider string, opts Options) (*core.Response, error) {
	id := providers.Parse(provider)
	resp, err := f.dispatch(ctx, data, id, opts)
	observability.ResponsesFormatted.WithLabelValues(id.String(), opts.typ(), observability.Outcome(err)).Inc()
	if err != nil {
		slog.Debug("response formatting failed", "provider", provider, "type", opts.typ(), "error", err)
		return nil, err
	}
	return resp, nil
}

func (f *Formatter) dispatch(ctx context.Context, data []byte, id providers.ID, opts Options) (*core.Response, error) {
	switch id {
	case providers.OpenAI, providers.Compat:
		return f.formatOpenAI(ctx, data, id, opts)
	case providers.Groq, providers.Mistral, providers.PerplexityAI, providers.DeepSeek,
		providers.HuggingFace, providers.GitHubModels, providers.TogetherAI,
		providers.Parallel, providers.OpenRouter, providers.Cerebras:
		return formatOpenAIChat(data, id, opts)
	case providers.Anthropic:
		return formatAnthropic(data, opts)
	case providers.GoogleAIStudio:
		return formatGoogle(data, opts)
	case providers.Bedrock:
		return f.formatBedrock(ctx, data, opts)
	case providers.WorkersAI:
		return f.formatWorkersAI(ctx, data, opts)
	case providers.Ollama:
		return formatOllama(data, opts)
	case providers.Replicate:
		return f.formatReplicate(ctx, data, opts)
	default:
		return formatGeneric(data, opts)
	}
}

// finishText builds the text content of a reply, repairing think tags
// once the whole text is known.
func finishText(text string, opts Options) core.Content {
	if !opts.Stream {
		text = PreprocessThinkTags(text, opts.Model)
	}
	return core.Text(text)
}
