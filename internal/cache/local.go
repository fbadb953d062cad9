package cache

import (
	"context"
	"sync"
	"time"

	"gatewire/internal/core"
)

// DefaultLocalTTL bounds how long the local cache keeps a record.
const DefaultLocalTTL = time.Hour

type localEntry struct {
	data    []byte
	expires time.Time
}

// LocalCache implements Cache in process memory.
// This is suitable for single-instance deployments.
type LocalCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]localEntry
	now     func() time.Time
}

// NewLocalCache creates an empty local cache. A zero ttl uses
// DefaultLocalTTL.
func NewLocalCache(ttl time.Duration) *LocalCache {
	if ttl <= 0 {
		ttl = DefaultLocalTTL
	}
	return &LocalCache{
		ttl:     ttl,
		entries: make(map[string]localEntry),
		now:     time.Now,
	}
}

// Get returns a copy of the cached record.
func (c *LocalCache) Get(_ context.Context, id string) (*core.AsyncInvocationMetadata, error) {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if c.now().After(e.expires) {
		c.mu.Lock()
		delete(c.entries, id)
		c.mu.Unlock()
		return nil, nil
	}
	return decode(e.data)
}

// Set stores a copy of meta.
func (c *LocalCache) Set(_ context.Context, meta *core.AsyncInvocationMetadata) error {
	data, err := encode(meta)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[meta.ID] = localEntry{data: data, expires: c.now().Add(c.ttl)}
	return nil
}

// Delete removes id.
func (c *LocalCache) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	return nil
}

// Close is a no-op for local cache.
func (c *LocalCache) Close() error {
	return nil
}
