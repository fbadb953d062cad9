// Package cache keeps recently used async invocation records close to the
// gateway. Redis serves multi-instance deployments; the local cache serves
// a single instance.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"gatewire/config"
	"gatewire/internal/core"
)

// Cache stores invocation metadata by job id.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns nil, nil on a miss.
	Get(ctx context.Context, id string) (*core.AsyncInvocationMetadata, error)
	Set(ctx context.Context, meta *core.AsyncInvocationMetadata) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// New returns a Redis cache when cfg.RedisURL is set and a local cache
// otherwise.
func New(cfg config.CacheConfig) (Cache, error) {
	if cfg.RedisURL == "" {
		return NewLocalCache(cfg.TTL), nil
	}
	c, err := NewRedisCache(RedisConfig{URL: cfg.RedisURL, Prefix: cfg.Prefix, TTL: cfg.TTL})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func encode(meta *core.AsyncInvocationMetadata) ([]byte, error) {
	if meta == nil || meta.ID == "" {
		return nil, fmt.Errorf("invocation id is required")
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invocation: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*core.AsyncInvocationMetadata, error) {
	var meta core.AsyncInvocationMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse cached invocation: %w", err)
	}
	return &meta, nil
}
