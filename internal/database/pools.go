package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/catalog-feed/internal/config"
)

// Pools holds database connections for a feed server.
type Pools struct {
	// Postgres holds the ledger, catalog and channel tables.
	Postgres *pgxpool.Pool
}

// NewPools creates the connection pools.
func NewPools(ctx context.Context, cfg config.DatabaseConfig) (*Pools, error) {
	pg, err := Connect(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &Pools{
		Postgres: pg,
	}, nil
}

// Connect creates a single connection pool.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	connStr := BuildConnString(cfg)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Close closes the connection pools.
func (p *Pools) Close() {
	if p.Postgres != nil {
		p.Postgres.Close()
	}
}

// Ping verifies the connections are healthy.
func (p *Pools) Ping(ctx context.Context) error {
	if err := p.Postgres.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}
