package repository

import (
	"context"
	"fmt"

	"github.com/tendant/simple-org-slim/pkg/docstore"
)

// uniqueIndexes close the check-then-insert race between concurrent creates
// and renames.
var uniqueIndexes = []struct {
	collection string
	field      string
}{
	{OrganizationsCollection, "name"},
	{OrganizationsCollection, "slug"},
	{OrganizationsCollection, "collection_name"},
	{AdminsCollection, "email"},
}

// EnsureIndexes creates the unique indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, store docstore.Store) error {
	for _, idx := range uniqueIndexes {
		if err := store.EnsureUniqueIndex(ctx, idx.collection, idx.field); err != nil {
			return fmt.Errorf("ensure unique index %s.%s: %w", idx.collection, idx.field, err)
		}
	}
	return nil
}
