package firestore_test

import (
	"context"
	"errors"
	"os"
	"testing"

	gcfirestore "cloud.google.com/go/firestore"

	"github.com/MrWong99/prepwise/pkg/docstore"
	"github.com/MrWong99/prepwise/pkg/docstore/firestore"
)

// newTestStore connects to the Firestore emulator, or skips the test if
// FIRESTORE_EMULATOR_HOST is not set.
func newTestStore(t *testing.T) *firestore.Store {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set, skipping Firestore integration tests")
	}
	client, err := gcfirestore.NewClient(context.Background(), "prepwise-test")
	if err != nil {
		t.Fatalf("firestore client: %v", err)
	}
	s := firestore.New(client)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type record struct {
	Role      string   `firestore:"role"`
	Questions []string `firestore:"questions"`
	Finalized bool     `firestore:"finalized"`
}

func TestStore_AddGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Add(ctx, docstore.CollectionInterviews, record{Role: "Mobile Developer", Questions: []string{"Q1", "Q2"}, Finalized: true})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	var got record
	if err := s.Get(ctx, docstore.CollectionInterviews, id, &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Role != "Mobile Developer" || len(got.Questions) != 2 || !got.Finalized {
		t.Errorf("Get = %+v", got)
	}
}

func TestStore_GetMissing(t *testing.T) {
	s := newTestStore(t)
	var got record
	err := s.Get(context.Background(), docstore.CollectionInterviews, "does-not-exist", &got)
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_Ping(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
