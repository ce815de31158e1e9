// Package mongostore implements docstore on MongoDB using the official driver.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tendant/simple-org-slim/pkg/docstore"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// namespaceExists is the server error code for creating an existing collection.
const namespaceExists = 48

// Config holds MongoDB connection settings.
type Config struct {
	URI      string
	Database string
}

// Store is a docstore backed by one MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	owned  bool
}

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Database == "" {
		return nil, errors.New("mongo database name is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Store{client: client, db: client.Database(cfg.Database), owned: true}, nil
}

// New wraps an existing database handle. Close leaves the client connected.
func New(db *mongo.Database) *Store {
	return &Store{client: db.Client(), db: db}
}

func (s *Store) Name() string { return s.db.Name() }

func (s *Store) Close(ctx context.Context) error {
	if !s.owned {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *Store) CreateCollection(ctx context.Context, name string) error {
	err := s.db.CreateCollection(ctx, name)
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == namespaceExists {
		return docstore.ErrCollectionExists
	}
	return err
}

func (s *Store) DropCollection(ctx context.Context, name string) error {
	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return docstore.ErrCollectionNotFound
	}
	return s.db.Collection(name).Drop(ctx)
}

func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	return s.db.ListCollectionNames(ctx, bson.M{})
}

func (s *Store) EnsureUniqueIndex(ctx context.Context, collection, field string) error {
	_, err := s.db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetUnique(true).SetName(field + "_unique"),
	})
	return mapError(err)
}

func (s *Store) Collection(name string) docstore.Collection {
	return &Collection{coll: s.db.Collection(name)}
}

var _ docstore.Store = (*Store)(nil)

// Collection wraps a *mongo.Collection.
type Collection struct {
	coll *mongo.Collection
}

func (c *Collection) Name() string { return c.coll.Name() }

func (c *Collection) InsertOne(ctx context.Context, doc any) error {
	_, err := c.coll.InsertOne(ctx, doc)
	return mapError(err)
}

func (c *Collection) InsertMany(ctx context.Context, docs []any) error {
	if len(docs) == 0 {
		return nil
	}
	_, err := c.coll.InsertMany(ctx, docs)
	return mapError(err)
}

func (c *Collection) FindOne(ctx context.Context, filter docstore.Filter, out any) error {
	err := c.coll.FindOne(ctx, toBSON(filter)).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return docstore.ErrNoDocuments
	}
	return err
}

// Find returns the driver cursor, which already satisfies docstore.Cursor.
func (c *Collection) Find(ctx context.Context, filter docstore.Filter, opts ...docstore.FindOption) (docstore.Cursor, error) {
	o := docstore.ApplyFindOptions(opts...)
	cur, err := c.coll.Find(ctx, toBSON(filter), options.Find().SetBatchSize(int32(o.BatchSize)))
	if err != nil {
		return nil, err
	}
	return cur, nil
}

func (c *Collection) UpdateOne(ctx context.Context, filter docstore.Filter, set docstore.Fields) (int64, error) {
	res, err := c.coll.UpdateOne(ctx, toBSON(filter), bson.M{"$set": bson.M(set)})
	if err != nil {
		return 0, mapError(err)
	}
	return res.MatchedCount, nil
}

func (c *Collection) DeleteOne(ctx context.Context, filter docstore.Filter) (int64, error) {
	res, err := c.coll.DeleteOne(ctx, toBSON(filter))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (c *Collection) DeleteMany(ctx context.Context, filter docstore.Filter) (int64, error) {
	res, err := c.coll.DeleteMany(ctx, toBSON(filter))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (c *Collection) Count(ctx context.Context, filter docstore.Filter) (int64, error) {
	return c.coll.CountDocuments(ctx, toBSON(filter))
}

var _ docstore.Collection = (*Collection)(nil)

func toBSON(filter docstore.Filter) bson.M {
	if filter == nil {
		return bson.M{}
	}
	return bson.M(filter)
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		collection, field := duplicateIndex(err.Error())
		return &docstore.DuplicateKeyError{Collection: collection, Field: field, Err: err}
	}
	return err
}

// duplicateIndex reads the collection and indexed field out of an E11000
// message such as
//
//	E11000 duplicate key error collection: db.organizations index: slug_unique dup key: { ... }
func duplicateIndex(msg string) (collection, field string) {
	if _, rest, ok := strings.Cut(msg, "collection: "); ok {
		ns, _, _ := strings.Cut(rest, " ")
		if _, coll, ok := strings.Cut(ns, "."); ok {
			collection = coll
		}
	}
	_, rest, ok := strings.Cut(msg, " index: ")
	if !ok {
		return collection, ""
	}
	name, _, _ := strings.Cut(rest, " ")
	if name == "_id_" {
		return collection, docstore.IDField
	}
	field, _ = strings.CutSuffix(name, "_unique")
	if field == name {
		field = ""
	}
	return collection, field
}
