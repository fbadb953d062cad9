// Package objectstore provides the storage backends that generated media is
// uploaded to.
package objectstore

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"gatewire/config"
	"gatewire/internal/core"
)

// Backend names accepted in config.ObjectStoreConfig.Type.
const (
	TypeNone   = "none"
	TypeLocal  = "local"
	TypeMemory = "memory"
)

// New returns the configured backend, or nil when persistence is disabled.
func New(cfg config.ObjectStoreConfig) (core.ObjectStorage, error) {
	switch cfg.Type {
	case "", TypeNone:
		return nil, nil
	case TypeLocal:
		l, err := NewLocal(cfg.Root)
		if err != nil {
			return nil, err
		}
		return l, nil
	case TypeMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown objectstore type: %s (valid: none, local, memory)", cfg.Type)
	}
}

// cleanKey rejects keys that would escape the store root.
func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") || strings.Contains(key, "..") {
		return "", core.NewInvalidRequestError(fmt.Sprintf("invalid object key %q", key), nil)
	}
	return cleaned, nil
}

// Local stores objects as files below a root directory.
type Local struct {
	root string
}

// NewLocal creates root if needed.
func NewLocal(root string) (*Local, error) {
	if root == "" {
		root = "data/objects"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create objectstore root %s: %w", root, err)
	}
	return &Local{root: root}, nil
}

// Root returns the directory objects are written to.
func (l *Local) Root() string { return l.root }

// UploadObject writes body atomically (temp file + rename).
func (l *Local) UploadObject(ctx context.Context, key string, body []byte, _ core.UploadOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	dst := filepath.Join(l.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create object directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp object: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close object: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store object: %w", err)
	}
	return key, nil
}

// Object is a stored blob.
type Object struct {
	Body        []byte
	ContentType string
}

// Memory keeps objects in process memory. It is meant for tests and
// development.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]Object
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]Object)}
}

func (m *Memory) UploadObject(ctx context.Context, key string, body []byte, opts core.UploadOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	cp := make([]byte, len(body))
	copy(cp, body)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{Body: cp, ContentType: opts.ContentType}
	return key, nil
}

// Get returns the object stored under key.
func (m *Memory) Get(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[key]
	return o, ok
}

// Len returns the number of stored objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
