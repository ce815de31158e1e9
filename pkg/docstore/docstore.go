// Package docstore defines a small schema-less document store contract with
// MongoDB semantics: named collections of documents keyed by "_id", scalar
// equality filters, "$set" updates and unique single-field indexes.
//
// Three backends implement it:
//
//   - boltstore: embedded, a bbolt file (default)
//   - mongostore: MongoDB through the official driver
//   - pgstore: PostgreSQL, one JSONB table per collection
package docstore

import (
	"context"
	"errors"
)

// IDField is the primary key field of every document.
const IDField = "_id"

var (
	ErrCollectionExists   = errors.New("collection already exists")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrNoDocuments        = errors.New("no documents in result")
	ErrDuplicateKey       = errors.New("duplicate key")
)

// DuplicateKeyError reports a write rejected by a unique index. Field is the
// indexed field, or empty when the backend does not say which index fired.
type DuplicateKeyError struct {
	Collection string
	Field      string
	Err        error
}

func (e *DuplicateKeyError) Error() string {
	msg := "duplicate key"
	if e.Field != "" {
		msg += " on " + e.Collection + "." + e.Field
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DuplicateKeyError) Is(target error) bool { return target == ErrDuplicateKey }

func (e *DuplicateKeyError) Unwrap() error { return e.Err }

// DuplicateField returns the field named by a DuplicateKeyError in err's
// chain, or "".
func DuplicateField(err error) string {
	var dup *DuplicateKeyError
	if errors.As(err, &dup) {
		return dup.Field
	}
	return ""
}

// Filter selects documents whose top-level fields equal the given values.
// A nil or empty filter selects every document.
type Filter map[string]any

// Fields are top-level field assignments applied by UpdateOne.
type Fields map[string]any

// Document is a schema-less document used when copying opaque tenant data.
type Document map[string]any

// Store is a handle to one database.
type Store interface {
	// Name returns the database name recorded in organization connection details.
	Name() string
	// CreateCollection fails with ErrCollectionExists if name already exists.
	CreateCollection(ctx context.Context, name string) error
	// DropCollection fails with ErrCollectionNotFound if name does not exist.
	DropCollection(ctx context.Context, name string) error
	CollectionExists(ctx context.Context, name string) (bool, error)
	ListCollections(ctx context.Context) ([]string, error)
	// EnsureUniqueIndex is idempotent. Later writes that repeat a value of
	// field fail with ErrDuplicateKey.
	EnsureUniqueIndex(ctx context.Context, collection, field string) error
	Collection(name string) Collection
	Close(ctx context.Context) error
}

// Collection is a named set of documents. Writing to a missing collection
// creates it; reading from one behaves as if it were empty.
type Collection interface {
	Name() string
	InsertOne(ctx context.Context, doc any) error
	InsertMany(ctx context.Context, docs []any) error
	// FindOne decodes the first match into out or returns ErrNoDocuments.
	FindOne(ctx context.Context, filter Filter, out any) error
	Find(ctx context.Context, filter Filter, opts ...FindOption) (Cursor, error)
	// UpdateOne sets fields on the first match and returns the matched count.
	UpdateOne(ctx context.Context, filter Filter, set Fields) (int64, error)
	DeleteOne(ctx context.Context, filter Filter) (int64, error)
	DeleteMany(ctx context.Context, filter Filter) (int64, error)
	Count(ctx context.Context, filter Filter) (int64, error)
}

// Cursor streams query results. It mirrors *mongo.Cursor.
type Cursor interface {
	Next(ctx context.Context) bool
	Decode(out any) error
	Err() error
	Close(ctx context.Context) error
}

// DefaultBatchSize is the page size a cursor fetches when none is given.
const DefaultBatchSize = 500

// FindOptions tune a Find call.
type FindOptions struct {
	BatchSize int
}

// FindOption configures FindOptions.
type FindOption func(*FindOptions)

// WithBatchSize sets how many documents a cursor fetches per round trip.
func WithBatchSize(n int) FindOption {
	return func(o *FindOptions) {
		if n > 0 {
			o.BatchSize = n
		}
	}
}

// ApplyFindOptions resolves opts over the defaults.
func ApplyFindOptions(opts ...FindOption) FindOptions {
	o := FindOptions{BatchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// All drains a cursor, decoding each document with decode.
func All(ctx context.Context, cur Cursor, decode func(Cursor) error) error {
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		if err := decode(cur); err != nil {
			return err
		}
	}
	return cur.Err()
}
