// Package postgres provides the PostgreSQL-backed persistent store. It opens
// the database through the pgx database/sql driver and applies the embedded
// schema on startup.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"experimentdb/internal/infra/persistence/relational"
)

const (
	defaultDriver = "pgx"
	// DefaultDSN keeps parity with the configuration defaults.
	DefaultDSN = "postgres://localhost/experimentdb?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists records to PostgreSQL.
type Store struct {
	*relational.Store
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back
// to DefaultDSN), verifies connectivity and applies the schema.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &Store{Store: relational.New(db, Dialect{})}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}

// Dialect implements relational.Dialect for PostgreSQL.
type Dialect struct{}

// Name implements relational.Dialect.
func (Dialect) Name() string { return "postgres" }

// Placeholder implements relational.Dialect.
func (Dialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

// AfterExplicitInsert moves the serial sequence past the largest id so later
// generated ids do not collide with explicitly inserted ones.
func (Dialect) AfterExplicitInsert(ctx context.Context, tx *sql.Tx, table string) error {
	q := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), GREATEST((SELECT MAX(id) FROM %s), 1))", table, table)
	_, err := tx.ExecContext(ctx, q)
	return err
}

// SQLSTATE codes of integrity constraint violations.
const (
	codeNotNull    = "23502"
	codeForeignKey = "23503"
	codeUnique     = "23505"
	codeCheck      = "23514"
)

// Classify implements relational.Dialect.
func (Dialect) Classify(err error) relational.ErrorKind {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return relational.ErrOther
	}
	switch pgErr.Code {
	case codeUnique:
		return relational.ErrUnique
	case codeForeignKey:
		return relational.ErrForeignKey
	case codeNotNull:
		return relational.ErrNotNull
	case codeCheck:
		return relational.ErrCheck
	default:
		return relational.ErrOther
	}
}
