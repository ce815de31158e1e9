// Package boltstore implements docstore on an embedded bbolt database. Each
// collection is a top-level bucket holding JSON documents keyed by "_id".
package boltstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/tendant/simple-org-slim/pkg/docstore"
	"go.etcd.io/bbolt"
)

// indexBucket records the unique indexes of every collection.
var indexBucket = []byte("__docstore_indexes")

// Store is a docstore backed by a single bbolt file.
type Store struct {
	db   *bbolt.DB
	name string
}

// Open opens (creating if needed) the bbolt file at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database %s: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(indexBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bolt database: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &Store{db: db, name: name}, nil
}

// Name returns the database file name without extension.
func (s *Store) Name() string { return s.name }

// Close closes the database file.
func (s *Store) Close(context.Context) error { return s.db.Close() }

func (s *Store) CreateCollection(_ context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(name)) != nil {
			return docstore.ErrCollectionExists
		}
		_, err := tx.CreateBucket([]byte(name))
		return err
	})
}

func (s *Store) DropCollection(_ context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(name)) == nil {
			return docstore.ErrCollectionNotFound
		}
		if err := tx.DeleteBucket([]byte(name)); err != nil {
			return err
		}
		return tx.Bucket(indexBucket).Delete([]byte(name))
	})
}

func (s *Store) CollectionExists(_ context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		exists = tx.Bucket([]byte(name)) != nil
		return nil
	})
	return exists, err
}

func (s *Store) ListCollections(context.Context) ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			if !bytes.Equal(name, indexBucket) {
				names = append(names, string(name))
			}
			return nil
		})
	})
	return names, err
}

// EnsureUniqueIndex records field as unique for collection. It fails with
// ErrDuplicateKey if existing documents already repeat a value.
func (s *Store) EnsureUniqueIndex(_ context.Context, collection, field string) error {
	if err := validName(collection); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return err
		}
		fields, err := uniqueFields(tx, collection)
		if err != nil {
			return err
		}
		if slices.Contains(fields, field) {
			return nil
		}

		seen := make(map[string]struct{})
		err = b.ForEach(func(_, v []byte) error {
			var doc docstore.RawDocument
			if err := json.Unmarshal(v, &doc); err != nil {
				return err
			}
			value := doc.Field(field)
			if value == nil {
				return nil
			}
			if _, dup := seen[string(value)]; dup {
				return &docstore.DuplicateKeyError{Collection: collection, Field: field, Err: fmt.Errorf("value %s repeated", value)}
			}
			seen[string(value)] = struct{}{}
			return nil
		})
		if err != nil {
			return err
		}

		data, err := json.Marshal(append(fields, field))
		if err != nil {
			return err
		}
		return tx.Bucket(indexBucket).Put([]byte(collection), data)
	})
}

// Collection returns a handle to the named collection.
func (s *Store) Collection(name string) docstore.Collection {
	return &Collection{store: s, name: name}
}

func uniqueFields(tx *bbolt.Tx, collection string) ([]string, error) {
	data := tx.Bucket(indexBucket).Get([]byte(collection))
	if data == nil {
		return nil, nil
	}
	var fields []string
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode index metadata for %s: %w", collection, err)
	}
	return fields, nil
}

func validName(name string) error {
	if name == "" || name == string(indexBucket) {
		return fmt.Errorf("invalid collection name %q", name)
	}
	return nil
}

var _ docstore.Store = (*Store)(nil)
