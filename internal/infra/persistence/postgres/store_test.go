package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"experimentdb/internal/entitymodel/sqlbundle"
	"experimentdb/internal/infra/persistence/postgres/testutil"
	"experimentdb/internal/infra/persistence/relational"
	"experimentdb/pkg/domain"
)

func TestNewStoreAppliesDDL(t *testing.T) {
	db, conn := testutil.NewStubDB()
	var gotDSN string
	restore := OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		assert.Equal(t, "pgx", driverName)
		gotDSN = dsn
		return db, nil
	})
	defer restore()

	store, err := NewStore(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	assert.Equal(t, DefaultDSN, gotDSN)

	expected := sqlbundle.SplitStatements(sqlbundle.Postgres())
	require.Len(t, conn.Execs, len(expected))
	for i, stmt := range expected {
		assert.Equal(t, strings.TrimSpace(stmt), strings.TrimSpace(conn.Execs[i]))
	}
}

func TestNewStoreErrors(t *testing.T) {
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("boom") })
	_, err := NewStore(context.Background(), "postgres://x")
	restore()
	require.ErrorContains(t, err, "open postgres")

	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore = OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	_, err = NewStore(context.Background(), "postgres://x")
	restore()
	require.ErrorContains(t, err, "ping postgres")

	db, conn = testutil.NewStubDB()
	conn.FailExec = true
	restore = OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	_, err = NewStore(context.Background(), "postgres://x")
	restore()
	require.ErrorContains(t, err, "execute ddl")
}

func TestStatementsUseNumberedPlaceholders(t *testing.T) {
	db, conn := testutil.NewStubDB()
	store := &Store{Store: relational.New(db, Dialect{})}

	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		rel, _ := domain.LookupRelation(domain.EntityCloning, "researcher")
		return tx.RemoveLink(rel, int64(1), 2)
	})
	require.NoError(t, err)
	require.NotEmpty(t, conn.Execs)
	last := conn.Execs[len(conn.Execs)-1]
	assert.Equal(t, "DELETE FROM cloning_researcher WHERE owner_id = $1 AND target_id = $2", last)
	assert.Equal(t, 1, conn.Commits)
}

func TestExplicitReferenceInsertSyncsSequence(t *testing.T) {
	db, conn := testutil.NewStubDB()
	store := &Store{Store: relational.New(db, Dialect{})}

	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.InsertReference(domain.RefPrimer, domain.Ref{ID: 7, Name: "T7"})
		return err
	})
	require.NoError(t, err)
	require.Len(t, conn.Execs, 2)
	assert.Equal(t, "INSERT INTO primers (id, name) VALUES ($1, $2)", conn.Execs[0])
	assert.Contains(t, conn.Execs[1], "pg_get_serial_sequence('primers', 'id')")
}

func TestFailedTransactionRollsBack(t *testing.T) {
	db, conn := testutil.NewStubDB()
	store := &Store{Store: relational.New(db, Dialect{})}
	err := store.RunInTransaction(context.Background(), func(domain.Transaction) error {
		return errors.New("abort")
	})
	require.Error(t, err)
	assert.Equal(t, 0, conn.Commits)
	assert.Equal(t, 1, conn.Rollbacks)
}

func TestClassify(t *testing.T) {
	cases := map[string]relational.ErrorKind{
		"23505": relational.ErrUnique,
		"23503": relational.ErrForeignKey,
		"23502": relational.ErrNotNull,
		"23514": relational.ErrCheck,
		"42P01": relational.ErrOther,
	}
	for code, want := range cases {
		err := fmt.Errorf("exec: %w", &pgconn.PgError{Code: code})
		assert.Equal(t, want, Dialect{}.Classify(err), code)
	}
	assert.Equal(t, relational.ErrOther, Dialect{}.Classify(errors.New("plain")))
	assert.Equal(t, "$3", Dialect{}.Placeholder(3))
}
