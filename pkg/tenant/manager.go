// Package tenant manages the per-organization data collections. It knows
// nothing about organizations; collections are addressed by name.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tendant/simple-org-slim/pkg/docstore"
	"github.com/tendant/simple-org-slim/pkg/domain"
)

// DefaultCopyBatchSize bounds how many documents a copy holds in memory.
const DefaultCopyBatchSize = 500

// Manager creates, moves and drops tenant collections.
type Manager struct {
	store     docstore.Store
	batchSize int
	logger    *slog.Logger
	onCopied  func(n int)
}

// Option configures a Manager.
type Option func(*Manager)

// WithBatchSize sets the copy batch size.
func WithBatchSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.batchSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithCopyObserver registers a callback invoked after each copied batch.
func WithCopyObserver(fn func(n int)) Option {
	return func(m *Manager) { m.onCopied = fn }
}

// NewManager creates a tenant collection manager over store.
func NewManager(store docstore.Store, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		batchSize: DefaultCopyBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateEmpty creates a new, empty collection. It fails with
// docstore.ErrCollectionExists if the name is taken.
func (m *Manager) CreateEmpty(ctx context.Context, name string) error {
	if err := m.store.CreateCollection(ctx, name); err != nil {
		if errors.Is(err, docstore.ErrCollectionExists) {
			return err
		}
		return domain.NewStorageError("create collection", err)
	}
	return nil
}

// CopyAndRetarget creates to, copies every document of from into it in
// batches, then drops from. It fails with docstore.ErrCollectionExists before
// touching from if to is taken. On a copy failure from is left intact and to
// holds whatever was copied. It returns the number of documents copied.
func (m *Manager) CopyAndRetarget(ctx context.Context, from, to string) (int64, error) {
	if err := m.CreateEmpty(ctx, to); err != nil {
		return 0, err
	}

	copied, err := m.copyAll(ctx, from, to)
	if err != nil {
		return copied, err
	}

	if err := m.Drop(ctx, from); err != nil {
		return copied, err
	}

	m.logger.Debug("tenant collection moved", "from", from, "to", to, "documents", copied)
	return copied, nil
}

func (m *Manager) copyAll(ctx context.Context, from, to string) (int64, error) {
	src := m.store.Collection(from)
	dst := m.store.Collection(to)

	cur, err := src.Find(ctx, nil, docstore.WithBatchSize(m.batchSize))
	if err != nil {
		return 0, domain.NewStorageError("read collection", err)
	}
	defer cur.Close(ctx)

	var copied int64
	batch := make([]any, 0, m.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := dst.InsertMany(ctx, batch); err != nil {
			return domain.NewStorageError("write collection", fmt.Errorf("after %d documents: %w", copied, err))
		}
		copied += int64(len(batch))
		if m.onCopied != nil {
			m.onCopied(len(batch))
		}
		batch = make([]any, 0, m.batchSize)
		return nil
	}

	for cur.Next(ctx) {
		var doc docstore.Document
		if err := cur.Decode(&doc); err != nil {
			return copied, domain.NewStorageError("decode document", err)
		}
		batch = append(batch, doc)
		if len(batch) >= m.batchSize {
			if err := flush(); err != nil {
				return copied, err
			}
		}
	}
	if err := cur.Err(); err != nil {
		return copied, domain.NewStorageError("read collection", err)
	}
	if err := flush(); err != nil {
		return copied, err
	}
	return copied, nil
}

// Drop removes a collection. A missing collection counts as success.
func (m *Manager) Drop(ctx context.Context, name string) error {
	err := m.store.DropCollection(ctx, name)
	if err == nil || errors.Is(err, docstore.ErrCollectionNotFound) {
		return nil
	}
	return domain.NewStorageError("drop collection", err)
}

// Exists reports whether a collection exists.
func (m *Manager) Exists(ctx context.Context, name string) (bool, error) {
	exists, err := m.store.CollectionExists(ctx, name)
	if err != nil {
		return false, domain.NewStorageError("check collection", err)
	}
	return exists, nil
}

// List returns the names of every tenant collection.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	names, err := m.store.ListCollections(ctx)
	if err != nil {
		return nil, domain.NewStorageError("list collections", err)
	}
	var tenants []string
	for _, name := range names {
		if domain.IsTenantCollection(name) {
			tenants = append(tenants, name)
		}
	}
	return tenants, nil
}

// Count returns the number of documents in a collection.
func (m *Manager) Count(ctx context.Context, name string) (int64, error) {
	n, err := m.store.Collection(name).Count(ctx, nil)
	if err != nil {
		return 0, domain.NewStorageError("count collection", err)
	}
	return n, nil
}
