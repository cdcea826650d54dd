package memstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/prepwise/pkg/docstore"
	"github.com/MrWong99/prepwise/pkg/docstore/memstore"
)

type doc struct {
	Role      string   `json:"role"`
	Questions []string `json:"questions"`
}

func TestAddGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memstore.New()

	in := doc{Role: "Backend Developer", Questions: []string{"Q1", "Q2"}}
	id, err := s.Add(ctx, docstore.CollectionInterviews, in)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id == "" {
		t.Fatal("Add returned empty id")
	}

	// Mutating the caller's value must not leak into the store.
	in.Questions[0] = "changed"

	var out doc
	if err := s.Get(ctx, docstore.CollectionInterviews, id, &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.Role != "Backend Developer" || len(out.Questions) != 2 || out.Questions[0] != "Q1" {
		t.Errorf("Get = %+v", out)
	}
	if n := s.Count(docstore.CollectionInterviews); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestAdd_UniqueIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memstore.New()

	seen := make(map[string]bool)
	for range 50 {
		id, err := s.Add(ctx, "c", doc{})
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestGet_NotFound(t *testing.T) {
	t.Parallel()
	s := memstore.New()

	var out doc
	err := s.Get(context.Background(), "interviews", "missing", &out)
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSet_Replaces(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memstore.New()

	if err := s.Set(ctx, "users", "u1", doc{Role: "a"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "users", "u1", doc{Role: "b"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var out doc
	if err := s.Get(ctx, "users", "u1", &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.Role != "b" {
		t.Errorf("Role = %q, want b", out.Role)
	}
}

func TestAdd_EncodeError(t *testing.T) {
	t.Parallel()
	s := memstore.New()
	if _, err := s.Add(context.Background(), "c", map[string]any{"ch": make(chan int)}); err == nil {
		t.Fatal("expected encode error")
	}
}

func TestCancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := memstore.New().Add(ctx, "c", doc{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
