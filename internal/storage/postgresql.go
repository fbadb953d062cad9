package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"gatewire/config"
)

// PostgreSQL wraps a pgx connection pool.
type PostgreSQL struct {
	Pool *pgxpool.Pool
}

// NewPostgreSQL creates and pings a connection pool.
func NewPostgreSQL(ctx context.Context, cfg config.PostgreSQLConfig) (*PostgreSQL, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("PostgreSQL URL is required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL URL: %w", err)
	}
	poolCfg.MaxConns = 10
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	return &PostgreSQL{Pool: pool}, nil
}

func (s *PostgreSQL) Type() string { return TypePostgreSQL }

func (s *PostgreSQL) Close() error {
	if s.Pool != nil {
		s.Pool.Close()
	}
	return nil
}
