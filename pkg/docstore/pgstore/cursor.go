package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/tendant/simple-org-slim/pkg/docstore"
)

// cursor pages through a table by primary key.
type cursor struct {
	coll      *Collection
	filter    string
	batchSize int

	page    [][]byte
	current []byte
	lastID  string
	done    bool
	closed  bool
	err     error
}

func (c *cursor) Next(ctx context.Context) bool {
	if c.closed || c.err != nil {
		return false
	}
	if len(c.page) == 0 && !c.done {
		c.err = c.fetch(ctx)
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

func (c *cursor) fetch(ctx context.Context) error {
	query := fmt.Sprintf(`
		SELECT id, doc FROM %s
		WHERE doc @> $1::jsonb AND id > $2
		ORDER BY id
		LIMIT $3
	`, c.coll.table())

	rows, err := c.coll.db.QueryContext(ctx, query, c.filter, c.lastID, c.batchSize)
	if hasCode(err, codeUndefinedTable) {
		c.done = true
		return nil
	}
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return err
		}
		c.lastID = id
		c.page = append(c.page, data)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(c.page) < c.batchSize {
		c.done = true
	}
	return nil
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
