// Package mock provides a test double for docstore.Store that records every
// call and lets tests inject failures or block writes.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/MrWong99/prepwise/pkg/docstore"
)

// AddCall records a single invocation of Add.
type AddCall struct {
	Collection string
	Doc        any
}

// Store is a mock docstore.Store. Successful writes are kept so Get can read
// them back. Ids are "doc-1", "doc-2", ... in call order.
type Store struct {
	mu sync.Mutex

	// AddErr, if non-nil, is returned by Add.
	AddErr error

	// AddHook, if set, runs at the start of Add without the mutex held.
	// Tests use it to block or observe concurrent writes.
	AddHook func(ctx context.Context, collection string)

	// SetErr, if non-nil, is returned by Set.
	SetErr error

	// PingErr, if non-nil, is returned by Ping.
	PingErr error

	addCalls []AddCall
	docs     map[string][]byte
	seq      int
	closed   bool
}

// Add records the call and stores doc unless AddErr is set.
func (s *Store) Add(ctx context.Context, collection string, doc any) (string, error) {
	s.mu.Lock()
	hook := s.AddHook
	s.mu.Unlock()
	if hook != nil {
		hook(ctx, collection)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.addCalls = append(s.addCalls, AddCall{Collection: collection, Doc: doc})
	if s.AddErr != nil {
		return "", s.AddErr
	}
	s.seq++
	id := fmt.Sprintf("doc-%d", s.seq)
	if err := s.put(collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

// Set stores doc under id unless SetErr is set.
func (s *Store) Set(_ context.Context, collection, id string, doc any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetErr != nil {
		return s.SetErr
	}
	return s.put(collection, id, doc)
}

func (s *Store) put(collection, id string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if s.docs == nil {
		s.docs = make(map[string][]byte)
	}
	s.docs[collection+"/"+id] = data
	return nil
}

// Get decodes a previously stored document.
func (s *Store) Get(_ context.Context, collection, id string, dst any) error {
	s.mu.Lock()
	data, ok := s.docs[collection+"/"+id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("mock: %s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	return json.Unmarshal(data, dst)
}

// Ping returns PingErr.
func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.PingErr
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// AddCalls returns a copy of the recorded Add invocations.
func (s *Store) AddCalls() []AddCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AddCall, len(s.addCalls))
	copy(out, s.addCalls)
	return out
}

// AddCallsTo returns the recorded Add invocations for collection.
func (s *Store) AddCallsTo(collection string) []AddCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []AddCall
	for _, c := range s.addCalls {
		if c.Collection == collection {
			out = append(out, c)
		}
	}
	return out
}

// Closed reports whether Close was called.
func (s *Store) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

var _ docstore.Store = (*Store)(nil)
