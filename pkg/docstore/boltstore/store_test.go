package boltstore

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-org-slim/pkg/docstore"
)

type widget struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Size  int    `json:"size"`
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(context.Background()) })
	return store
}

func TestStore_Name(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "orgs.db"))
	require.NoError(t, err)
	defer store.Close(context.Background())

	assert.Equal(t, "orgs", store.Name())
}

func TestStore_CollectionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.CreateCollection(ctx, "org_acme"))
	assert.ErrorIs(t, store.CreateCollection(ctx, "org_acme"), docstore.ErrCollectionExists)

	exists, err := store.CollectionExists(ctx, "org_acme")
	require.NoError(t, err)
	assert.True(t, exists)

	names, err := store.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"org_acme"}, names)

	require.NoError(t, store.DropCollection(ctx, "org_acme"))
	assert.ErrorIs(t, store.DropCollection(ctx, "org_acme"), docstore.ErrCollectionNotFound)

	exists, err = store.CollectionExists(ctx, "org_acme")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCollection_CRUD(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	coll := store.Collection("widgets")

	require.NoError(t, coll.InsertOne(ctx, widget{ID: "w1", Name: "alpha", Color: "red", Size: 1}))
	require.NoError(t, coll.InsertOne(ctx, widget{ID: "w2", Name: "beta", Color: "red", Size: 2}))
	require.NoError(t, coll.InsertOne(ctx, widget{ID: "w3", Name: "gamma", Color: "blue", Size: 3}))

	var got widget
	require.NoError(t, coll.FindOne(ctx, docstore.Filter{"name": "beta"}, &got))
	assert.Equal(t, "w2", got.ID)

	err := coll.FindOne(ctx, docstore.Filter{"name": "delta"}, &got)
	assert.ErrorIs(t, err, docstore.ErrNoDocuments)

	n, err := coll.Count(ctx, docstore.Filter{"color": "red"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	matched, err := coll.UpdateOne(ctx, docstore.Filter{"_id": "w3"}, docstore.Fields{"color": "red"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), matched)

	require.NoError(t, coll.FindOne(ctx, docstore.Filter{"_id": "w3"}, &got))
	assert.Equal(t, "red", got.Color)
	assert.Equal(t, "gamma", got.Name)

	matched, err = coll.UpdateOne(ctx, docstore.Filter{"_id": "missing"}, docstore.Fields{"color": "red"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), matched)

	deleted, err := coll.DeleteOne(ctx, docstore.Filter{"_id": "w1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = coll.DeleteMany(ctx, docstore.Filter{"color": "red"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	n, err = coll.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCollection_InsertGeneratesID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	coll := store.Collection("things")

	require.NoError(t, coll.InsertOne(ctx, map[string]any{"label": "x"}))

	var doc docstore.Document
	require.NoError(t, coll.FindOne(ctx, docstore.Filter{"label": "x"}, &doc))
	assert.NotEmpty(t, doc["_id"])
}

func TestCollection_DuplicateID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	coll := store.Collection("widgets")

	require.NoError(t, coll.InsertOne(ctx, widget{ID: "w1", Name: "alpha"}))
	err := coll.InsertOne(ctx, widget{ID: "w1", Name: "again"})
	assert.ErrorIs(t, err, docstore.ErrDuplicateKey)
}

func TestCollection_NullFilterMatchesMissingField(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	coll := store.Collection("things")

	require.NoError(t, coll.InsertOne(ctx, map[string]any{"_id": "a", "owner": nil}))
	require.NoError(t, coll.InsertOne(ctx, map[string]any{"_id": "b"}))
	require.NoError(t, coll.InsertOne(ctx, map[string]any{"_id": "c", "owner": "someone"}))

	n, err := coll.Count(ctx, docstore.Filter{"owner": nil})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestCollection_ReadMissingCollection(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	coll := store.Collection("nothing")

	n, err := coll.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	cur, err := coll.Find(ctx, nil)
	require.NoError(t, err)
	assert.False(t, cur.Next(ctx))
	assert.NoError(t, cur.Err())

	exists, err := store.CollectionExists(ctx, "nothing")
	require.NoError(t, err)
	assert.False(t, exists, "reads must not create the collection")
}

func TestStore_UniqueIndex(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	coll := store.Collection("admins")

	require.NoError(t, store.EnsureUniqueIndex(ctx, "admins", "email"))
	require.NoError(t, store.EnsureUniqueIndex(ctx, "admins", "email"), "ensure should be idempotent")

	require.NoError(t, coll.InsertOne(ctx, map[string]any{"_id": "a1", "email": "a@example.com"}))
	err := coll.InsertOne(ctx, map[string]any{"_id": "a2", "email": "a@example.com"})
	assert.ErrorIs(t, err, docstore.ErrDuplicateKey)
	assert.Equal(t, "email", docstore.DuplicateField(err))

	err = coll.InsertOne(ctx, map[string]any{"_id": "a1", "email": "other@example.com"})
	assert.ErrorIs(t, err, docstore.ErrDuplicateKey)
	assert.Equal(t, docstore.IDField, docstore.DuplicateField(err))

	require.NoError(t, coll.InsertOne(ctx, map[string]any{"_id": "a3", "email": "b@example.com"}))
	_, err = coll.UpdateOne(ctx, docstore.Filter{"_id": "a3"}, docstore.Fields{"email": "a@example.com"})
	assert.ErrorIs(t, err, docstore.ErrDuplicateKey)
	assert.Equal(t, "email", docstore.DuplicateField(err))

	// Rewriting a document with its own value is not a conflict.
	matched, err := coll.UpdateOne(ctx, docstore.Filter{"_id": "a1"}, docstore.Fields{"email": "a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), matched)

	n, err := coll.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestStore_UniqueIndexRejectsExistingDuplicates(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	coll := store.Collection("admins")

	require.NoError(t, coll.InsertOne(ctx, map[string]any{"_id": "a1", "email": "a@example.com"}))
	require.NoError(t, coll.InsertOne(ctx, map[string]any{"_id": "a2", "email": "a@example.com"}))

	err := store.EnsureUniqueIndex(ctx, "admins", "email")
	assert.ErrorIs(t, err, docstore.ErrDuplicateKey)
	assert.Equal(t, "email", docstore.DuplicateField(err))
}

func TestStore_InsertManyIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	coll := store.Collection("admins")
	require.NoError(t, store.EnsureUniqueIndex(ctx, "admins", "email"))

	err := coll.InsertMany(ctx, []any{
		map[string]any{"_id": "a1", "email": "same@example.com"},
		map[string]any{"_id": "a2", "email": "same@example.com"},
	})
	assert.ErrorIs(t, err, docstore.ErrDuplicateKey)

	n, err := coll.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCursor_PagesAndAllowsWrites(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	src := store.Collection("org_src")
	dst := store.Collection("org_dst")

	docs := make([]any, 0, 25)
	for i := 0; i < 25; i++ {
		docs = append(docs, map[string]any{"_id": fmt.Sprintf("doc-%02d", i), "n": i})
	}
	require.NoError(t, src.InsertMany(ctx, docs))

	cur, err := src.Find(ctx, nil, docstore.WithBatchSize(4))
	require.NoError(t, err)

	var copied int
	for cur.Next(ctx) {
		var doc docstore.Document
		require.NoError(t, cur.Decode(&doc))
		// Writing while the cursor is open must not deadlock.
		require.NoError(t, dst.InsertOne(ctx, doc))
		copied++
	}
	require.NoError(t, cur.Err())
	require.NoError(t, cur.Close(ctx))

	assert.Equal(t, 25, copied)
	n, err := dst.Count(ctx, docstore.Filter{"n": 24})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCursor_Filter(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	coll := store.Collection("widgets")

	for i := 0; i < 10; i++ {
		color := "red"
		if i%2 == 0 {
			color = "blue"
		}
		require.NoError(t, coll.InsertOne(ctx, widget{ID: fmt.Sprintf("w%d", i), Color: color, Size: i}))
	}

	cur, err := coll.Find(ctx, docstore.Filter{"color": "blue"}, docstore.WithBatchSize(2))
	require.NoError(t, err)

	var sizes []int
	err = docstore.All(ctx, cur, func(c docstore.Cursor) error {
		var w widget
		if err := c.Decode(&w); err != nil {
			return err
		}
		sizes = append(sizes, w.Size)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 4, 6, 8}, sizes)
}

func TestCursor_ContextCanceled(t *testing.T) {
	store := newTestStore(t)
	coll := store.Collection("widgets")
	require.NoError(t, coll.InsertOne(context.Background(), widget{ID: "w1"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cur, err := coll.Find(ctx, nil)
	require.NoError(t, err)
	assert.False(t, cur.Next(ctx))
	assert.ErrorIs(t, cur.Err(), context.Canceled)
}
