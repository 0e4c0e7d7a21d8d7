package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres wraps a connection pool for the relational backend.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a connection pool and verifies it with a ping.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Profiles returns a ProfileRepository over the profiles table.
func (p *Postgres) Profiles() ProfileRepository {
	return &postgresProfileRepository{pool: p.pool}
}

// Stories returns a StoryRepository over the stories table.
func (p *Postgres) Stories() StoryRepository {
	return &postgresStoryRepository{pool: p.pool}
}

// Catalog returns a CatalogRepository over the categories and episodes tables.
func (p *Postgres) Catalog() CatalogRepository {
	return &postgresCatalogRepository{pool: p.pool}
}
