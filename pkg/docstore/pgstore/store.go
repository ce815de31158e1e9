// Package pgstore implements docstore on PostgreSQL. Each collection is a table
// (id TEXT PRIMARY KEY, doc JSONB NOT NULL); filters use JSONB containment, so
// a null filter value matches only an explicit null.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/tendant/simple-org-slim/pkg/docstore"
)

// PostgreSQL error codes
const (
	codeDuplicateTable  = "42P07"
	codeUndefinedTable  = "42P01"
	codeUniqueViolation = "23505"
)

// Config holds database connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the lib/pq connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// Store is a docstore backed by one PostgreSQL database.
type Store struct {
	db   *sql.DB
	name string
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return New(db, cfg.DBName), nil
}

// New wraps an existing connection pool.
func New(db *sql.DB, name string) *Store {
	return &Store{db: db, name: name}
}

func (s *Store) Name() string { return s.name }

func (s *Store) Close(context.Context) error { return s.db.Close() }

func (s *Store) CreateCollection(ctx context.Context, name string) error {
	query := fmt.Sprintf(`CREATE TABLE %s (id TEXT PRIMARY KEY, doc JSONB NOT NULL)`, pq.QuoteIdentifier(name))
	_, err := s.db.ExecContext(ctx, query)
	if hasCode(err, codeDuplicateTable) {
		return docstore.ErrCollectionExists
	}
	return err
}

func (s *Store) DropCollection(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE %s`, pq.QuoteIdentifier(name)))
	if hasCode(err, codeUndefinedTable) {
		return docstore.ErrCollectionNotFound
	}
	return err
}

func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)
	`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, name).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema()
		ORDER BY table_name
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// EnsureUniqueIndex creates an expression index on doc->>'field'.
func (s *Store) EnsureUniqueIndex(ctx context.Context, collection, field string) error {
	if err := s.ensureTable(ctx, collection); err != nil {
		return err
	}
	query := fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s ((doc->>%s))`,
		pq.QuoteIdentifier(collection+"_"+field+"_unique"),
		pq.QuoteIdentifier(collection),
		pq.QuoteLiteral(field),
	)
	_, err := s.db.ExecContext(ctx, query)
	return mapError(err)
}

func (s *Store) Collection(name string) docstore.Collection {
	return &Collection{db: s.db, name: name, store: s}
}

func (s *Store) ensureTable(ctx context.Context, name string) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, doc JSONB NOT NULL)`, pq.QuoteIdentifier(name))
	_, err := s.db.ExecContext(ctx, query)
	return err
}

var _ docstore.Store = (*Store)(nil)

func hasCode(err error, code string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == code
}

func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == codeUniqueViolation {
		return &docstore.DuplicateKeyError{
			Collection: pqErr.Table,
			Field:      constraintField(pqErr.Table, pqErr.Constraint),
			Err:        err,
		}
	}
	return err
}

// constraintField maps a violated constraint back to its document field:
// <table>_pkey is the primary key and <table>_<field>_unique comes from
// EnsureUniqueIndex.
func constraintField(table, constraint string) string {
	name, ok := strings.CutPrefix(constraint, table+"_")
	if table == "" || !ok {
		return ""
	}
	if name == "pkey" {
		return docstore.IDField
	}
	field, ok := strings.CutSuffix(name, "_unique")
	if !ok {
		return ""
	}
	return field
}
