// Package memstore is an in-process docstore.Store used for development and
// tests. Documents are kept JSON-encoded so callers never share memory with
// the store.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/MrWong99/prepwise/pkg/docstore"
)

// Store is an in-memory docstore.Store. The zero value is not usable; call New.
type Store struct {
	mu   sync.RWMutex
	docs map[string]map[string][]byte
}

// New returns an empty Store.
func New() *Store {
	return &Store{docs: make(map[string]map[string][]byte)}
}

// Add implements docstore.Store.
func (s *Store) Add(ctx context.Context, collection string, doc any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

// Set implements docstore.Store.
func (s *Store) Set(ctx context.Context, collection, id string, doc any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("memstore: encode %s/%s: %w", collection, id, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.docs[collection]
	if !ok {
		c = make(map[string][]byte)
		s.docs[collection] = c
	}
	c[id] = data
	return nil
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, collection, id string, dst any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	data, ok := s.docs[collection][id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("memstore: %s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("memstore: decode %s/%s: %w", collection, id, err)
	}
	return nil
}

// Count returns the number of documents in collection.
func (s *Store) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs[collection])
}

// Ping implements docstore.Store. It always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close implements docstore.Store.
func (s *Store) Close() error { return nil }

var _ docstore.Store = (*Store)(nil)
