// Package sqlite provides the SQLite-backed persistent store using the pure Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"experimentdb/internal/infra/persistence/relational"
)

// DefaultPath is used when no database path is configured.
const DefaultPath = "experimentdb.db"

// Store persists records to a single SQLite database file.
type Store struct {
	*relational.Store
	path string
}

// NewStore opens (creating if needed) the database at path and applies the
// schema.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serializes transactions and keeps per-connection
	// pragmas in effect.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	s := &Store{Store: relational.New(db, Dialect{}), path: path}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func dsn(path string) string {
	if path == ":memory:" {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Dialect implements relational.Dialect for SQLite.
type Dialect struct{}

// Name implements relational.Dialect.
func (Dialect) Name() string { return "sqlite" }

// Placeholder implements relational.Dialect.
func (Dialect) Placeholder(int) string { return "?" }

// AfterExplicitInsert implements relational.Dialect. INTEGER PRIMARY KEY
// columns continue after the largest id without help.
func (Dialect) AfterExplicitInsert(context.Context, *sql.Tx, string) error { return nil }

// Classify implements relational.Dialect.
func (Dialect) Classify(err error) relational.ErrorKind {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return relational.ErrOther
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return relational.ErrUnique
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return relational.ErrForeignKey
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return relational.ErrNotNull
	case sqlite3.SQLITE_CONSTRAINT_CHECK:
		return relational.ErrCheck
	}
	// Without extended result codes only the message tells them apart.
	msg := se.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return relational.ErrUnique
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return relational.ErrForeignKey
	case strings.Contains(msg, "NOT NULL constraint failed"):
		return relational.ErrNotNull
	case strings.Contains(msg, "CHECK constraint failed"):
		return relational.ErrCheck
	}
	return relational.ErrOther
}
