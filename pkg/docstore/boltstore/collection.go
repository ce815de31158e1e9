package boltstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/tendant/simple-org-slim/pkg/docstore"
	"go.etcd.io/bbolt"
)

// Collection is a bucket of JSON documents.
type Collection struct {
	store *Store
	name  string
}

func (c *Collection) Name() string { return c.name }

func (c *Collection) InsertOne(ctx context.Context, doc any) error {
	return c.InsertMany(ctx, []any{doc})
}

// InsertMany writes all documents in one transaction; any failure writes none.
func (c *Collection) InsertMany(_ context.Context, docs []any) error {
	if len(docs) == 0 {
		return nil
	}
	if err := validName(c.name); err != nil {
		return err
	}
	return c.store.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(c.name))
		if err != nil {
			return err
		}
		unique, err := uniqueFields(tx, c.name)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			id, raw, err := docstore.EncodeJSON(doc)
			if err != nil {
				return err
			}
			if b.Get([]byte(id)) != nil {
				return &docstore.DuplicateKeyError{Collection: c.name, Field: docstore.IDField, Err: fmt.Errorf("%q exists", id)}
			}
			if err := checkUnique(b, c.name, unique, id, raw); err != nil {
				return err
			}
			data, err := raw.Bytes()
			if err != nil {
				return err
			}
			if err := b.Put([]byte(id), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *Collection) FindOne(_ context.Context, filter docstore.Filter, out any) error {
	var found []byte
	err := c.store.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(c.name))
		if b == nil {
			return nil
		}
		cur := b.Cursor()
		for k, v := cur.First(); k != nil; k, v = cur.Next() {
			ok, err := matches(v, filter)
			if err != nil {
				return err
			}
			if ok {
				found = bytes.Clone(v)
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if found == nil {
		return docstore.ErrNoDocuments
	}
	return docstore.DecodeJSON(found, out)
}

func (c *Collection) Find(_ context.Context, filter docstore.Filter, opts ...docstore.FindOption) (docstore.Cursor, error) {
	o := docstore.ApplyFindOptions(opts...)
	return &cursor{coll: c, filter: filter, batchSize: o.BatchSize}, nil
}

func (c *Collection) UpdateOne(_ context.Context, filter docstore.Filter, set docstore.Fields) (int64, error) {
	var matched int64
	err := c.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(c.name))
		if b == nil {
			return nil
		}
		key, raw, err := firstMatch(b, filter)
		if err != nil || key == nil {
			return err
		}
		matched = 1
		if err := raw.Apply(set); err != nil {
			return err
		}
		unique, err := uniqueFields(tx, c.name)
		if err != nil {
			return err
		}
		if err := checkUnique(b, c.name, unique, string(key), raw); err != nil {
			return err
		}
		data, err := raw.Bytes()
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
	return matched, err
}

func (c *Collection) DeleteOne(_ context.Context, filter docstore.Filter) (int64, error) {
	var deleted int64
	err := c.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(c.name))
		if b == nil {
			return nil
		}
		key, _, err := firstMatch(b, filter)
		if err != nil || key == nil {
			return err
		}
		deleted = 1
		return b.Delete(key)
	})
	return deleted, err
}

func (c *Collection) DeleteMany(_ context.Context, filter docstore.Filter) (int64, error) {
	var deleted int64
	err := c.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(c.name))
		if b == nil {
			return nil
		}
		var keys [][]byte
		err := b.ForEach(func(k, v []byte) error {
			ok, err := matches(v, filter)
			if err != nil {
				return err
			}
			if ok {
				keys = append(keys, bytes.Clone(k))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		deleted = int64(len(keys))
		return nil
	})
	return deleted, err
}

func (c *Collection) Count(_ context.Context, filter docstore.Filter) (int64, error) {
	var n int64
	err := c.store.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(c.name))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			ok, err := matches(v, filter)
			if ok {
				n++
			}
			return err
		})
	})
	return n, err
}

func firstMatch(b *bbolt.Bucket, filter docstore.Filter) ([]byte, docstore.RawDocument, error) {
	cur := b.Cursor()
	for k, v := cur.First(); k != nil; k, v = cur.Next() {
		var raw docstore.RawDocument
		if err := json.Unmarshal(v, &raw); err != nil {
			return nil, nil, err
		}
		ok, err := raw.Matches(filter)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			return bytes.Clone(k), raw, nil
		}
	}
	return nil, nil, nil
}

func matches(data []byte, filter docstore.Filter) (bool, error) {
	if len(filter) == 0 {
		return true, nil
	}
	var raw docstore.RawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return false, err
	}
	return raw.Matches(filter)
}

// checkUnique scans the bucket for another document repeating an indexed value.
func checkUnique(b *bbolt.Bucket, collection string, fields []string, id string, doc docstore.RawDocument) error {
	if len(fields) == 0 {
		return nil
	}
	return b.ForEach(func(k, v []byte) error {
		if string(k) == id {
			return nil
		}
		var other docstore.RawDocument
		if err := json.Unmarshal(v, &other); err != nil {
			return err
		}
		for _, f := range fields {
			value := doc.Field(f)
			if value != nil && bytes.Equal(value, other.Field(f)) {
				return &docstore.DuplicateKeyError{Collection: collection, Field: f, Err: fmt.Errorf("value %s exists", value)}
			}
		}
		return nil
	})
}

var _ docstore.Collection = (*Collection)(nil)
