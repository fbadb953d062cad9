package anthropic

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatewire/internal/providers"
)

func TestBuild_SystemPromptAndDefaults(t *testing.T) {
	req, err := Build(providers.Invocation{
		Category:     providers.CategoryChat,
		Model:        "claude-sonnet-4-5",
		SystemPrompt: "be brief",
		Stream:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, "/messages", req.Path)

	body := req.Body.(map[string]any)
	assert.Equal(t, "be brief", body["system"])
	assert.Equal(t, defaultMaxTokens, body["max_tokens"])
	assert.Equal(t, true, body["stream"])
}

func TestBuild_KeepsCallerMaxTokens(t *testing.T) {
	req, err := Build(providers.Invocation{Model: "m", Params: map[string]any{"max_tokens": 10}})
	require.NoError(t, err)
	assert.Equal(t, 10, req.Body.(map[string]any)["max_tokens"])
}

func TestSetHeaders(t *testing.T) {
	req := httptest.NewRequest("POST", "/messages", nil)
	setHeaders(req, "key")
	assert.Equal(t, "key", req.Header.Get("x-api-key"))
	assert.Equal(t, anthropicVersion, req.Header.Get("anthropic-version"))
}
