package boltstore

import (
	"bytes"
	"context"
	"errors"

	"github.com/tendant/simple-org-slim/pkg/docstore"
	"go.etcd.io/bbolt"
)

// cursor reads a bucket one page at a time. Each page is fetched in its own
// read transaction so callers may write between pages.
type cursor struct {
	coll      *Collection
	filter    docstore.Filter
	batchSize int

	page    [][]byte
	current []byte
	lastKey []byte
	done    bool
	closed  bool
	err     error
}

func (c *cursor) Next(ctx context.Context) bool {
	if c.closed || c.err != nil {
		return false
	}
	if len(c.page) == 0 && !c.done {
		if err := ctx.Err(); err != nil {
			c.err = err
			return false
		}
		c.err = c.fetch()
		if c.err != nil {
			return false
		}
	}
	if len(c.page) == 0 {
		return false
	}
	c.current, c.page = c.page[0], c.page[1:]
	return true
}

func (c *cursor) fetch() error {
	return c.coll.store.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(c.coll.name))
		if b == nil {
			c.done = true
			return nil
		}

		cur := b.Cursor()
		var k, v []byte
		if c.lastKey == nil {
			k, v = cur.First()
		} else {
			k, v = cur.Seek(c.lastKey)
			if k != nil && bytes.Equal(k, c.lastKey) {
				k, v = cur.Next()
			}
		}

		for ; k != nil; k, v = cur.Next() {
			c.lastKey = bytes.Clone(k)
			ok, err := matches(v, c.filter)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			c.page = append(c.page, bytes.Clone(v))
			if len(c.page) >= c.batchSize {
				return nil
			}
		}
		c.done = true
		return nil
	})
}

func (c *cursor) Decode(out any) error {
	if c.current == nil {
		return errors.New("cursor has no current document")
	}
	return docstore.DecodeJSON(c.current, out)
}

func (c *cursor) Err() error { return c.err }

func (c *cursor) Close(context.Context) error {
	c.closed = true
	c.page = nil
	c.current = nil
	return nil
}
