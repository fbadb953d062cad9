package providers

import (
	"strings"

	"gatewire/config"
)

// usableProviders drops providers without valid credentials. Ollama is
// exempt from the API key requirement when it has a base URL.
func usableProviders(raw map[string]config.ProviderConfig) map[string]config.ProviderConfig {
	result := make(map[string]config.ProviderConfig, len(raw))
	for name, p := range raw {
		if Parse(name) == Ollama && p.BaseURL != "" {
			result[name] = p
			continue
		}
		// unresolved ${VAR} references count as missing
		if p.APIKey != "" && !strings.Contains(p.APIKey, "${") {
			result[name] = p
		}
	}
	return result
}

func categoriesOf(spec Spec, pc config.ProviderConfig) map[Category]bool {
	set := make(map[Category]bool)
	if len(pc.Categories) == 0 {
		for _, c := range spec.Categories {
			set[c] = true
		}
		if len(set) == 0 {
			set[CategoryChat] = true
		}
		return set
	}
	for _, name := range pc.Categories {
		if c, ok := ParseCategory(name); ok {
			set[c] = true
		}
	}
	return set
}
