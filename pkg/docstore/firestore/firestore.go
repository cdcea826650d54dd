// Package firestore provides a Cloud Firestore docstore.Store. Collections
// map one to one onto Firestore collections and ids are Firestore
// auto-generated document ids.
package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/MrWong99/prepwise/pkg/docstore"
)

// pingCollection is read (never written) by Ping.
const pingCollection = "_health"

// Store is a Firestore docstore.Store.
type Store struct {
	client *firestore.Client
}

// New wraps client. The Store takes ownership and closes client on Close.
func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

// Add implements docstore.Store.
func (s *Store) Add(ctx context.Context, collection string, doc any) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("firestore docstore: add %s: %w", collection, err)
	}
	return ref.ID, nil
}

// Set implements docstore.Store.
func (s *Store) Set(ctx context.Context, collection, id string, doc any) error {
	if _, err := s.client.Collection(collection).Doc(id).Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore docstore: set %s/%s: %w", collection, id, err)
	}
	return nil
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, collection, id string, dst any) error {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("firestore docstore: %s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("firestore docstore: get %s/%s: %w", collection, id, err)
	}
	if err := snap.DataTo(dst); err != nil {
		return fmt.Errorf("firestore docstore: decode %s/%s: %w", collection, id, err)
	}
	return nil
}

// Ping implements docstore.Store by running a one-document query.
func (s *Store) Ping(ctx context.Context) error {
	it := s.client.Collection(pingCollection).Limit(1).Documents(ctx)
	defer it.Stop()
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("firestore docstore: ping: %w", err)
	}
	return nil
}

// Close implements docstore.Store.
func (s *Store) Close() error {
	return s.client.Close()
}

var _ docstore.Store = (*Store)(nil)
