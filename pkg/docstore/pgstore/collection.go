package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/tendant/simple-org-slim/pkg/docstore"
)

// Collection is a JSONB document table.
type Collection struct {
	db    *sql.DB
	name  string
	store *Store
}

func (c *Collection) Name() string { return c.name }

func (c *Collection) table() string { return pq.QuoteIdentifier(c.name) }

func (c *Collection) InsertOne(ctx context.Context, doc any) error {
	return c.InsertMany(ctx, []any{doc})
}

// InsertMany writes every document in one transaction. A missing table is
// created and the batch retried once.
func (c *Collection) InsertMany(ctx context.Context, docs []any) error {
	if len(docs) == 0 {
		return nil
	}

	type row struct {
		id   string
		data []byte
	}
	rows := make([]row, 0, len(docs))
	for _, doc := range docs {
		id, raw, err := docstore.EncodeJSON(doc)
		if err != nil {
			return err
		}
		data, err := raw.Bytes()
		if err != nil {
			return err
		}
		rows = append(rows, row{id: id, data: data})
	}

	insert := func() error {
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		query := fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1, $2::jsonb)`, c.table())
		for _, r := range rows {
			if _, err := tx.ExecContext(ctx, query, r.id, string(r.data)); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	}

	err := insert()
	if hasCode(err, codeUndefinedTable) {
		if err := c.store.ensureTable(ctx, c.name); err != nil {
			return err
		}
		err = insert()
	}
	return mapError(err)
}

func (c *Collection) FindOne(ctx context.Context, filter docstore.Filter, out any) error {
	filterJSON, err := docstore.FilterJSON(filter)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE doc @> $1::jsonb ORDER BY id LIMIT 1`, c.table())

	var data []byte
	err = c.db.QueryRowContext(ctx, query, string(filterJSON)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) || hasCode(err, codeUndefinedTable) {
		return docstore.ErrNoDocuments
	}
	if err != nil {
		return err
	}
	return docstore.DecodeJSON(data, out)
}

func (c *Collection) Find(ctx context.Context, filter docstore.Filter, opts ...docstore.FindOption) (docstore.Cursor, error) {
	filterJSON, err := docstore.FilterJSON(filter)
	if err != nil {
		return nil, err
	}
	o := docstore.ApplyFindOptions(opts...)
	return &cursor{coll: c, filter: string(filterJSON), batchSize: o.BatchSize}, nil
}

func (c *Collection) UpdateOne(ctx context.Context, filter docstore.Filter, set docstore.Fields) (int64, error) {
	if _, ok := set[docstore.IDField]; ok {
		return 0, fmt.Errorf("%s is immutable", docstore.IDField)
	}
	filterJSON, err := docstore.FilterJSON(filter)
	if err != nil {
		return 0, err
	}
	patch, err := json.Marshal(map[string]any(set))
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`
		UPDATE %[1]s SET doc = doc || $2::jsonb
		WHERE id = (SELECT id FROM %[1]s WHERE doc @> $1::jsonb ORDER BY id LIMIT 1)
	`, c.table())
	result, err := c.db.ExecContext(ctx, query, string(filterJSON), string(patch))
	if hasCode(err, codeUndefinedTable) {
		return 0, nil
	}
	if err != nil {
		return 0, mapError(err)
	}
	return result.RowsAffected()
}

func (c *Collection) DeleteOne(ctx context.Context, filter docstore.Filter) (int64, error) {
	query := fmt.Sprintf(`
		DELETE FROM %[1]s
		WHERE id = (SELECT id FROM %[1]s WHERE doc @> $1::jsonb ORDER BY id LIMIT 1)
	`, c.table())
	return c.exec(ctx, query, filter)
}

func (c *Collection) DeleteMany(ctx context.Context, filter docstore.Filter) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE doc @> $1::jsonb`, c.table())
	return c.exec(ctx, query, filter)
}

func (c *Collection) Count(ctx context.Context, filter docstore.Filter) (int64, error) {
	filterJSON, err := docstore.FilterJSON(filter)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE doc @> $1::jsonb`, c.table())

	var n int64
	err = c.db.QueryRowContext(ctx, query, string(filterJSON)).Scan(&n)
	if hasCode(err, codeUndefinedTable) {
		return 0, nil
	}
	return n, err
}

func (c *Collection) exec(ctx context.Context, query string, filter docstore.Filter) (int64, error) {
	filterJSON, err := docstore.FilterJSON(filter)
	if err != nil {
		return 0, err
	}
	result, err := c.db.ExecContext(ctx, query, string(filterJSON))
	if hasCode(err, codeUndefinedTable) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

var _ docstore.Collection = (*Collection)(nil)
