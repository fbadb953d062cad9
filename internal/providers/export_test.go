package providers

import (
	"gatewire/config"
	"gatewire/internal/pkg/llmclient"
)

// DefaultTestConfig is a client config without retry delays.
func DefaultTestConfig() llmclient.Config {
	r := config.Defaults().Resilience
	r.Retry.MaxRetries = 0
	return llmclient.FromResilience("test", "", r)
}
