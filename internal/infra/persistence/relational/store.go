// Package relational implements the domain store contract over database/sql.
// The SQLite and Postgres packages supply a Dialect and an opened *sql.DB;
// everything else (DDL application, CRUD, join tables, error translation)
// is shared.
package relational

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"experimentdb/internal/entitymodel/sqlbundle"
	"experimentdb/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

// ErrorKind classifies driver errors raised by constraint checks.
type ErrorKind int

// Constraint violation kinds.
const (
	ErrOther ErrorKind = iota
	ErrUnique
	ErrForeignKey
	ErrNotNull
	ErrCheck
)

// Dialect captures what differs between the supported SQL engines.
type Dialect interface {
	// Name selects the DDL bundle ("sqlite" or "postgres").
	Name() string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder(n int) string
	// Classify maps a driver error to a constraint kind.
	Classify(err error) ErrorKind
	// AfterExplicitInsert runs after a row was inserted with a caller
	// supplied id into an auto-id table.
	AfterExplicitInsert(ctx context.Context, tx *sql.Tx, table string) error
}

// Store is a transactional domain store backed by a relational database.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an opened database. Call Migrate before first use on an empty
// database.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the store's dialect.
func (s *Store) Dialect() Dialect { return s.dialect }

// Migrate applies the embedded DDL bundle of the dialect. Statements are
// idempotent so Migrate may run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	ddl, err := sqlbundle.ForDialect(s.dialect.Name())
	if err != nil {
		return err
	}
	for _, stmt := range sqlbundle.SplitStatements(ddl) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

// RunInTransaction executes fn inside a database transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&txn{ctx: ctx, tx: tx, dialect: s.dialect}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// View executes fn against a consistent read scope. Any writes are rolled
// back.
func (s *Store) View(ctx context.Context, fn func(domain.View) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin view: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	return fn(&txn{ctx: ctx, tx: tx, dialect: s.dialect})
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// txn implements domain.Transaction on a *sql.Tx.
type txn struct {
	ctx     context.Context
	tx      *sql.Tx
	dialect Dialect
}

// bind rewrites "?" placeholders into the dialect's form.
func (t *txn) bind(query string) string {
	if t.dialect.Placeholder(1) == "?" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(t.dialect.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (t *txn) exec(query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(t.ctx, t.bind(query), args...)
}

func (t *txn) query(query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(t.ctx, t.bind(query), args...)
}

func (t *txn) queryRow(query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(t.ctx, t.bind(query), args...)
}

// translate converts constraint violations into domain errors.
func (t *txn) translate(entity domain.EntityType, key any, err error) error {
	if err == nil {
		return nil
	}
	k := keyString(key)
	switch t.dialect.Classify(err) {
	case ErrUnique:
		return fmt.Errorf("%w: %v", domain.ErrConflict{Entity: entity, Key: k, Reason: "already exists"}, err)
	case ErrForeignKey:
		return fmt.Errorf("%w: %v", domain.ErrConflict{Entity: entity, Key: k, Reason: "references a missing row or is still referenced"}, err)
	case ErrNotNull, ErrCheck:
		return fmt.Errorf("%w: %v", &domain.ValidationError{Entity: entity, Field: "-", Reason: "violates a column constraint"}, err)
	default:
		return fmt.Errorf("%s %s: %w", entity, k, err)
	}
}

func keyString(key any) string {
	switch v := key.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
