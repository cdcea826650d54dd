// Package postgres provides a PostgreSQL-backed docstore.Store. Documents live
// as JSONB rows of a single documents table keyed by (collection, id).
//
// The schema is managed with goose migrations embedded in the binary;
// [NewStore] applies them on startup.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/prepwise/pkg/docstore"
)

// Store is a PostgreSQL docstore.Store. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to dsn, verifies the connection and runs [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres docstore: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres docstore: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres docstore: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool}, nil
}

// Add implements docstore.Store. Ids are random UUIDs.
func (s *Store) Add(ctx context.Context, collection string, doc any) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("postgres docstore: encode: %w", err)
	}
	id := uuid.NewString()
	const q = `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)`
	if _, err := s.pool.Exec(ctx, q, collection, id, data); err != nil {
		return "", fmt.Errorf("postgres docstore: add %s: %w", collection, err)
	}
	return id, nil
}

// Set implements docstore.Store.
func (s *Store) Set(ctx context.Context, collection, id string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("postgres docstore: encode: %w", err)
	}
	const q = `
		INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`
	if _, err := s.pool.Exec(ctx, q, collection, id, data); err != nil {
		return fmt.Errorf("postgres docstore: set %s/%s: %w", collection, id, err)
	}
	return nil
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, collection, id string, dst any) error {
	var data []byte
	const q = `SELECT data FROM documents WHERE collection = $1 AND id = $2`
	err := s.pool.QueryRow(ctx, q, collection, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("postgres docstore: %s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("postgres docstore: get %s/%s: %w", collection, id, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("postgres docstore: decode %s/%s: %w", collection, id, err)
	}
	return nil
}

// Ping implements docstore.Store.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close implements docstore.Store.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

var _ docstore.Store = (*Store)(nil)
