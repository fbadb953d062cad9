package async

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gatewire/internal/core"
)

// SQLiteStore stores invocations in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the invocations table and indexes if needed.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS async_invocations (
			id TEXT PRIMARY KEY,
			provider TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			status TEXT NOT NULL,
			data TEXT NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create async_invocations table: %w", err)
	}

	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_async_invocations_created_at ON async_invocations(created_at DESC)"); err != nil {
		return nil, fmt.Errorf("failed to create async_invocations created_at index: %w", err)
	}
	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_async_invocations_status ON async_invocations(status)"); err != nil {
		return nil, fmt.Errorf("failed to create async_invocations status index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Create inserts a new invocation.
func (s *SQLiteStore) Create(ctx context.Context, meta *core.AsyncInvocationMetadata) error {
	payload, err := serializeInvocation(meta)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO async_invocations (id, provider, created_at, updated_at, status, data)
		VALUES (?, ?, ?, ?, ?, ?)
	`, meta.ID, meta.Provider, meta.CreatedAt, time.Now().Unix(), string(meta.Status), string(payload))
	if err != nil {
		return fmt.Errorf("insert invocation: %w", err)
	}
	return nil
}

// Get returns an invocation by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*core.AsyncInvocationMetadata, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM async_invocations WHERE id = ?", id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query invocation: %w", err)
	}

	meta, err := deserializeInvocation([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("decode invocation: %w", err)
	}
	return meta, nil
}

// List returns invocations ordered by created_at desc, id desc.
func (s *SQLiteStore) List(ctx context.Context, limit int, after string) ([]*core.AsyncInvocationMetadata, error) {
	limit = normalizeLimit(limit)

	var rows *sql.Rows
	var err error
	if after == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT data
			FROM async_invocations
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		`, limit)
	} else {
		var cursorCreatedAt int64
		err = s.db.QueryRowContext(ctx, "SELECT created_at FROM async_invocations WHERE id = ?", after).Scan(&cursorCreatedAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("query after cursor: %w", err)
		}

		rows, err = s.db.QueryContext(ctx, `
			SELECT data
			FROM async_invocations
			WHERE (created_at < ?) OR (created_at = ? AND id < ?)
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		`, cursorCreatedAt, cursorCreatedAt, after, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list invocations: %w", err)
	}
	defer rows.Close()

	items := make([]*core.AsyncInvocationMetadata, 0, limit)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan invocation row: %w", err)
		}
		meta, err := deserializeInvocation([]byte(payload))
		if err != nil {
			return nil, fmt.Errorf("decode invocation row: %w", err)
		}
		items = append(items, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invocation rows: %w", err)
	}

	return items, nil
}

// Update updates a stored invocation.
func (s *SQLiteStore) Update(ctx context.Context, meta *core.AsyncInvocationMetadata) error {
	payload, err := serializeInvocation(meta)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE async_invocations
		SET updated_at = ?, status = ?, data = ?
		WHERE id = ?
	`, time.Now().Unix(), string(meta.Status), string(payload), meta.ID)
	if err != nil {
		return fmt.Errorf("update invocation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read update rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Close is a no-op; DB lifecycle is managed by storage layer.
func (s *SQLiteStore) Close() error {
	return nil
}
