package async

import (
	"context"
	"log/slog"

	"gatewire/internal/cache"
	"gatewire/internal/core"
)

// CachedStore reads through a cache in front of a durable store. Cache
// failures are logged and never fail the call.
type CachedStore struct {
	Store
	cache cache.Cache
}

// WithCache wraps store with c. A nil c returns store unchanged.
func WithCache(store Store, c cache.Cache) Store {
	if c == nil {
		return store
	}
	return &CachedStore{Store: store, cache: c}
}

// Create writes to the store, then the cache.
func (s *CachedStore) Create(ctx context.Context, meta *core.AsyncInvocationMetadata) error {
	if err := s.Store.Create(ctx, meta); err != nil {
		return err
	}
	s.remember(ctx, meta)
	return nil
}

// Get serves from the cache when possible.
func (s *CachedStore) Get(ctx context.Context, id string) (*core.AsyncInvocationMetadata, error) {
	if meta, err := s.cache.Get(ctx, id); err != nil {
		slog.Warn("invocation cache read failed", "id", id, "error", err)
	} else if meta != nil {
		return meta, nil
	}

	meta, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, meta)
	return meta, nil
}

// Update writes to the store, then refreshes the cache.
func (s *CachedStore) Update(ctx context.Context, meta *core.AsyncInvocationMetadata) error {
	if err := s.Store.Update(ctx, meta); err != nil {
		if delErr := s.cache.Delete(ctx, meta.ID); delErr != nil {
			slog.Warn("invocation cache delete failed", "id", meta.ID, "error", delErr)
		}
		return err
	}
	s.remember(ctx, meta)
	return nil
}

// Close closes the cache and the store.
func (s *CachedStore) Close() error {
	cacheErr := s.cache.Close()
	if err := s.Store.Close(); err != nil {
		return err
	}
	return cacheErr
}

func (s *CachedStore) remember(ctx context.Context, meta *core.AsyncInvocationMetadata) {
	if err := s.cache.Set(ctx, meta); err != nil {
		slog.Warn("invocation cache write failed", "id", meta.ID, "error", err)
	}
}
