package providers

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"gatewire/config"
	"gatewire/internal/core"
	"gatewire/internal/pkg/llmclient"
)

// Spec describes how to talk to one provider. Provider packages register
// their Spec from init().
type Spec struct {
	ID             ID
	DefaultBaseURL string
	// Categories served when the configuration does not list any.
	Categories []Category
	// SetHeaders applies authentication and version headers.
	SetHeaders func(req *http.Request, apiKey string)
	// Build turns an invocation into the upstream path and body.
	Build func(inv Invocation) (Request, error)
	// StatusPath is the job status path with {id} as placeholder. A non-empty
	// value marks the provider as job+poll.
	StatusPath string
}

// Invocation is a canonical call routed to a provider. Messages are already
// shaped for the provider by the message formatter.
type Invocation struct {
	Category     Category
	Model        string
	Messages     []core.Message
	SystemPrompt string
	Stream       bool
	Params       map[string]any
}

// Request is the upstream call produced by Spec.Build.
type Request struct {
	Path string
	Body any
}

var (
	specsMu sync.RWMutex
	specs   = make(map[ID]Spec)
)

// Register makes a provider Spec available to NewRegistry.
func Register(spec Spec) {
	specsMu.Lock()
	defer specsMu.Unlock()
	specs[spec.ID] = spec
}

// Registered lists registered provider IDs in name order.
func Registered() []ID {
	specsMu.RLock()
	defer specsMu.RUnlock()
	ids := make([]ID, 0, len(specs))
	for id := range specs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func lookupSpec(id ID) (Spec, bool) {
	specsMu.RLock()
	defer specsMu.RUnlock()
	s, ok := specs[id]
	return s, ok
}

// Registry resolves configured provider adapters by category and name.
type Registry struct {
	adapters map[ID]*HTTPAdapter
}

// NewRegistry builds an adapter for every configured provider that has a
// registered Spec. Providers without usable credentials are skipped.
func NewRegistry(providers map[string]config.ProviderConfig, resilience config.ResilienceConfig, httpClient *http.Client) (*Registry, error) {
	r := &Registry{adapters: make(map[ID]*HTTPAdapter)}
	for name, pc := range usableProviders(providers) {
		id := Parse(name)
		if id == Unknown {
			return nil, fmt.Errorf("unknown provider %q", name)
		}
		spec, ok := lookupSpec(id)
		if !ok {
			return nil, fmt.Errorf("provider %q has no registered adapter", name)
		}
		r.adapters[id] = NewHTTPAdapter(spec, pc, llmclient.FromResilience(id.String(), "", resilience), httpClient)
	}
	return r, nil
}

// Add registers an adapter directly, replacing any existing one.
func (r *Registry) Add(a *HTTPAdapter) {
	r.adapters[a.ID()] = a
}

// Resolve returns the adapter for name if it is configured and serves category.
func (r *Registry) Resolve(category Category, name string) (*HTTPAdapter, error) {
	id := Parse(name)
	a, ok := r.adapters[id]
	if !ok {
		return nil, core.NewNotFoundError(fmt.Sprintf("provider %q is not configured", name))
	}
	if !a.Serves(category) {
		return nil, core.NewInvalidRequestError(fmt.Sprintf("provider %q does not serve category %q", name, category), nil)
	}
	return a, nil
}

// Lookup returns the configured adapter for name regardless of category.
func (r *Registry) Lookup(name string) (*HTTPAdapter, bool) {
	a, ok := r.adapters[Parse(name)]
	return a, ok
}

// Len returns the number of configured adapters.
func (r *Registry) Len() int {
	return len(r.adapters)
}
