package async

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gatewire/internal/core"
)

// ErrNotFound indicates a requested invocation was not found.
var ErrNotFound = errors.New("invocation not found")

// Store persists invocation metadata between polls.
type Store interface {
	Create(ctx context.Context, meta *core.AsyncInvocationMetadata) error
	Get(ctx context.Context, id string) (*core.AsyncInvocationMetadata, error)
	List(ctx context.Context, limit int, after string) ([]*core.AsyncInvocationMetadata, error)
	Update(ctx context.Context, meta *core.AsyncInvocationMetadata) error
	Close() error
}

func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return 20
	case limit > 100:
		return 100
	default:
		return limit
	}
}

func cloneInvocation(src *core.AsyncInvocationMetadata) (*core.AsyncInvocationMetadata, error) {
	b, err := serializeInvocation(src)
	if err != nil {
		return nil, err
	}
	return deserializeInvocation(b)
}

func serializeInvocation(meta *core.AsyncInvocationMetadata) ([]byte, error) {
	if meta == nil {
		return nil, fmt.Errorf("invocation is nil")
	}
	if meta.ID == "" {
		return nil, fmt.Errorf("invocation ID is empty")
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal invocation: %w", err)
	}
	return b, nil
}

func deserializeInvocation(raw []byte) (*core.AsyncInvocationMetadata, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty invocation payload")
	}
	var meta core.AsyncInvocationMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal invocation: %w", err)
	}
	return &meta, nil
}
