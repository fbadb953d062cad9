package async

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gatewire/internal/core"
)

// MemoryStore keeps invocations in process memory.
// Data survives across requests but not process restarts.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*core.AsyncInvocationMetadata
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]*core.AsyncInvocationMetadata),
	}
}

// Create stores a new invocation.
func (s *MemoryStore) Create(_ context.Context, meta *core.AsyncInvocationMetadata) error {
	c, err := cloneInvocation(meta)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[c.ID]; exists {
		return fmt.Errorf("invocation already exists: %s", c.ID)
	}
	s.items[c.ID] = c
	return nil
}

// Get retrieves one invocation by id.
func (s *MemoryStore) Get(_ context.Context, id string) (*core.AsyncInvocationMetadata, error) {
	s.mu.RLock()
	m, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return cloneInvocation(m)
}

// List returns invocations ordered by created_at desc, id desc.
func (s *MemoryStore) List(_ context.Context, limit int, after string) ([]*core.AsyncInvocationMetadata, error) {
	limit = normalizeLimit(limit)

	s.mu.RLock()
	all := make([]*core.AsyncInvocationMetadata, 0, len(s.items))
	for _, m := range s.items {
		c, err := cloneInvocation(m)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		all = append(all, c)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt == all[j].CreatedAt {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt > all[j].CreatedAt
	})

	start := 0
	if after != "" {
		idx := -1
		for i := range all {
			if all[i].ID == after {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, ErrNotFound
		}
		start = idx + 1
	}

	if start >= len(all) {
		return []*core.AsyncInvocationMetadata{}, nil
	}
	end := min(start+limit, len(all))
	return all[start:end], nil
}

// Update replaces an existing invocation.
func (s *MemoryStore) Update(_ context.Context, meta *core.AsyncInvocationMetadata) error {
	c, err := cloneInvocation(meta)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[c.ID]; !exists {
		return ErrNotFound
	}
	s.items[c.ID] = c
	return nil
}

// Close releases resources (no-op for memory store).
func (s *MemoryStore) Close() error {
	return nil
}
