package repository

import (
	"context"

	"cowork-console/internal/console/domain/model"
)

// ItemRepository is the persistence port for named collections of items.
// Upsert replaces the stored item whole when the identifier already exists
// (last writer wins, no version check). Delete of a missing identifier is not
// an error, matching document-store semantics.
type ItemRepository interface {
	// List returns the full current item set of a collection.
	List(ctx context.Context, collection string) ([]model.Item, error)

	// Upsert creates or fully replaces an item and returns its identifier
	// along with whether a new document was created.
	Upsert(ctx context.Context, collection string, item model.Item) (string, bool, error)

	// Delete removes an item by identifier. Returns whether a document was
	// actually removed; a missing identifier yields (false, nil).
	Delete(ctx context.Context, collection string, id string) (bool, error)
}
