// Package storage opens the shared database connection used by the
// invocation store.
package storage

import (
	"context"
	"fmt"

	"gatewire/config"
)

// Backend names accepted in config.StorageConfig.Type.
const (
	TypeMemory     = "memory"
	TypeSQLite     = "sqlite"
	TypePostgreSQL = "postgresql"
	TypeMongoDB    = "mongodb"
)

// Storage is an open database connection. Callers type-switch on the
// concrete value (*SQLite, *PostgreSQL, *MongoDB) to reach the driver handle.
type Storage interface {
	Type() string
	Close() error
}

// New opens the backend named by cfg.Type. The memory backend has no
// connection and yields (nil, nil).
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case "", TypeMemory:
		return nil, nil
	case TypeSQLite:
		s, err := NewSQLite(cfg.SQLite)
		if err != nil {
			return nil, err
		}
		return s, nil
	case TypePostgreSQL:
		s, err := NewPostgreSQL(ctx, cfg.PostgreSQL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case TypeMongoDB:
		s, err := NewMongoDB(ctx, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s (valid: memory, sqlite, postgresql, mongodb)", cfg.Type)
	}
}
