package async

import (
	"context"
	"fmt"

	"gatewire/internal/storage"
)

// NewStore creates the store for a shared storage connection. A nil
// connection selects the in-memory store.
func NewStore(ctx context.Context, shared storage.Storage) (Store, error) {
	switch s := shared.(type) {
	case nil:
		return NewMemoryStore(), nil
	case *storage.SQLite:
		return NewSQLiteStore(s.DB)
	case *storage.PostgreSQL:
		return NewPostgreSQLStore(ctx, s.Pool)
	case *storage.MongoDB:
		return NewMongoDBStore(ctx, s.Database)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", shared.Type())
	}
}
