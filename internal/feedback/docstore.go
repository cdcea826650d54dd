package feedback

import (
	"context"

	"github.com/MrWong99/prepwise/pkg/docstore"
)

// DocStore saves records as documents in a [docstore.Store].
type DocStore struct {
	store      docstore.Store
	collection string
}

var _ Store = (*DocStore)(nil)

// NewDocStore returns a DocStore writing to collection, or to
// [docstore.CollectionFeedback] when collection is empty.
func NewDocStore(store docstore.Store, collection string) *DocStore {
	if collection == "" {
		collection = docstore.CollectionFeedback
	}
	return &DocStore{store: store, collection: collection}
}

// Save adds rec to the collection and returns the store-assigned id.
func (d *DocStore) Save(ctx context.Context, rec Record) (string, error) {
	return d.store.Add(ctx, d.collection, rec)
}
