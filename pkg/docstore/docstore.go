// Package docstore defines the DocumentStore contract: schemaless JSON
// documents grouped into named collections and addressed by a store-assigned
// id.
//
// Documents are encoded with encoding/json by the SQL and in-memory backends
// and with the Firestore client's own codec by the Firestore backend, so
// document types carry both `json` and `firestore` struct tags.
package docstore

import (
	"context"
	"errors"
)

// Well-known collection names.
const (
	CollectionInterviews = "interviews"
	CollectionUsers      = "users"
	CollectionFeedback   = "feedback"
)

// ErrNotFound is returned by Get when no document has the requested id.
var ErrNotFound = errors.New("docstore: document not found")

// Store persists documents.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Add stores doc in collection under a new id and returns that id.
	Add(ctx context.Context, collection string, doc any) (string, error)

	// Set stores doc under id, replacing any existing document.
	Set(ctx context.Context, collection, id string, doc any) error

	// Get decodes the document stored under id into dst. It returns an error
	// wrapping ErrNotFound when the document does not exist.
	Get(ctx context.Context, collection, id string, dst any) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
