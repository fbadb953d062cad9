// Package messages converts canonical conversations into the message shape
// each upstream provider expects.
package messages

import (
	"gatewire/internal/core"
	"gatewire/internal/providers"
)

// Options controls Format.
type Options struct {
	// MaxTokens enables truncation when positive. It is compared against the
	// serialized character length of the conversation, not real tokens.
	MaxTokens          int
	TruncationStrategy string
	Provider           string
	Model              string
	SystemPrompt       string
}

// Format truncates msgs, converts each message for opts.Provider and
// prepends the system prompt. msgs is not modified.
func Format(msgs []core.Message, opts Options) []core.Message {
	id := providers.Parse(opts.Provider)

	kept := Truncate(msgs, opts.MaxTokens, opts.TruncationStrategy)
	out := make([]core.Message, 0, len(kept))
	for _, m := range kept {
		out = append(out, convert(m, id)...)
	}

	if id == providers.Mistral {
		out = ensureAssistantAfterTool(out)
	}
	if opts.SystemPrompt != "" {
		out = AddSystemPrompt(out, opts.SystemPrompt, opts.Provider)
	}
	return out
}

// AddSystemPrompt returns msgs with the system prompt prepended in the form
// the provider accepts. Providers that take the prompt out of band get msgs
// back unchanged.
func AddSystemPrompt(msgs []core.Message, prompt, provider string) []core.Message {
	var first core.Message
	switch id := providers.Parse(provider); id {
	case providers.Anthropic, providers.Bedrock, providers.GoogleAIStudio:
		return msgs
	case providers.OpenAI, providers.Compat:
		first = core.Message{Role: core.RoleDeveloper, Content: core.Text(prompt)}
	case providers.WorkersAI, providers.Groq, providers.Ollama, providers.GitHubModels, providers.Parallel:
		first = core.Message{Role: core.RoleSystem, Content: core.Text(prompt)}
	default:
		first = core.Message{Role: core.RoleSystem, Content: core.Parts(core.TextBlock(prompt))}
	}

	out := make([]core.Message, 0, len(msgs)+1)
	out = append(out, first)
	return append(out, msgs...)
}

// ensureAssistantAfterTool inserts an empty assistant turn when the
// conversation ends with tool followed by user.
func ensureAssistantAfterTool(msgs []core.Message) []core.Message {
	n := len(msgs)
	if n < 2 || msgs[n-2].Role != core.RoleTool || msgs[n-1].Role != core.RoleUser {
		return msgs
	}
	out := make([]core.Message, 0, n+1)
	out = append(out, msgs[:n-1]...)
	out = append(out, core.Message{Role: core.RoleAssistant, Content: core.Text("")})
	return append(out, msgs[n-1])
}
