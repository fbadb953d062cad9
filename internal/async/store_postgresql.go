package async

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gatewire/internal/core"
)

// PostgreSQLStore stores invocations in PostgreSQL.
type PostgreSQLStore struct {
	pool *pgxpool.Pool
}

// NewPostgreSQLStore creates the invocations table and indexes if needed.
func NewPostgreSQLStore(ctx context.Context, pool *pgxpool.Pool) (*PostgreSQLStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("connection pool is required")
	}

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS async_invocations (
			id TEXT PRIMARY KEY,
			provider TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL,
			status TEXT NOT NULL,
			data JSONB NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create async_invocations table: %w", err)
	}

	if _, err := pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_async_invocations_created_at ON async_invocations(created_at DESC)"); err != nil {
		return nil, fmt.Errorf("failed to create async_invocations created_at index: %w", err)
	}
	if _, err := pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_async_invocations_status ON async_invocations(status)"); err != nil {
		return nil, fmt.Errorf("failed to create async_invocations status index: %w", err)
	}

	return &PostgreSQLStore{pool: pool}, nil
}

// Create inserts a new invocation.
func (s *PostgreSQLStore) Create(ctx context.Context, meta *core.AsyncInvocationMetadata) error {
	payload, err := serializeInvocation(meta)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO async_invocations (id, provider, created_at, updated_at, status, data)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb)
	`, meta.ID, meta.Provider, meta.CreatedAt, time.Now().Unix(), string(meta.Status), payload)
	if err != nil {
		return fmt.Errorf("insert invocation: %w", err)
	}
	return nil
}

// Get returns an invocation by id.
func (s *PostgreSQLStore) Get(ctx context.Context, id string) (*core.AsyncInvocationMetadata, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, "SELECT data FROM async_invocations WHERE id = $1", id).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query invocation: %w", err)
	}

	meta, err := deserializeInvocation(payload)
	if err != nil {
		return nil, fmt.Errorf("decode invocation: %w", err)
	}
	return meta, nil
}

// List returns invocations ordered by created_at desc, id desc.
func (s *PostgreSQLStore) List(ctx context.Context, limit int, after string) ([]*core.AsyncInvocationMetadata, error) {
	limit = normalizeLimit(limit)

	var rows pgx.Rows
	var err error
	if after == "" {
		rows, err = s.pool.Query(ctx, `
			SELECT data
			FROM async_invocations
			ORDER BY created_at DESC, id DESC
			LIMIT $1
		`, limit)
	} else {
		var cursorCreatedAt int64
		err = s.pool.QueryRow(ctx, "SELECT created_at FROM async_invocations WHERE id = $1", after).Scan(&cursorCreatedAt)
		switch {
		case err == nil:
			rows, err = s.pool.Query(ctx, `
				SELECT data
				FROM async_invocations
				WHERE (created_at < $1) OR (created_at = $1 AND id < $2)
				ORDER BY created_at DESC, id DESC
				LIMIT $3
			`, cursorCreatedAt, after, limit)
		case errors.Is(err, pgx.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, fmt.Errorf("query after cursor: %w", err)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("list invocations: %w", err)
	}
	defer rows.Close()

	items := make([]*core.AsyncInvocationMetadata, 0, limit)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan invocation row: %w", err)
		}
		meta, err := deserializeInvocation(payload)
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
func (s *PostgreSQLStore) Update(ctx context.Context, meta *core.AsyncInvocationMetadata) error {
	payload, err := serializeInvocation(meta)
	if err != nil {
		return err
	}

	cmd, err := s.pool.Exec(ctx, `
		UPDATE async_invocations
		SET updated_at = $1, status = $2, data = $3::jsonb
		WHERE id = $4
	`, time.Now().Unix(), string(meta.Status), payload, meta.ID)
	if err != nil {
		return fmt.Errorf("update invocation: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close is a no-op; pool lifecycle is managed by storage layer.
func (s *PostgreSQLStore) Close() error {
	return nil
}
