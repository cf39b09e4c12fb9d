package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"modernc.org/sqlite"

	"experimentdb/internal/infra/persistence/relational"
	"experimentdb/internal/infra/persistence/storetest"
	"experimentdb/pkg/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(context.Background(), filepath.Join(t.TempDir(), "nested", "state.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	return store
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.PersistentStore { return newTestStore(t) })
}

func TestStoreAppliesSchema(t *testing.T) {
	store := newTestStore(t)
	t.Cleanup(func() { _ = store.Close() })
	for _, table := range []string{"clonings", "mutageneses", "experiment_protocol", "literature_references"} {
		var name string
		err := store.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
	// Migrating again is a no-op.
	require.NoError(t, store.Migrate(context.Background()))
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := NewStore(context.Background(), path)
	require.NoError(t, err)
	err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.InsertAnimalCohort(domain.AnimalCohort{Name: "Persist"})
		return err
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewStore(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	assert.Equal(t, path, reopened.Path())
	err = reopened.View(context.Background(), func(v domain.View) error {
		all, err := v.ListAnimalCohorts()
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "Persist", all[0].Name)
		return nil
	})
	require.NoError(t, err)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, ":memory:", dsn(":memory:"))
	assert.Equal(t, "a.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dsn("a.db"))
	assert.Equal(t, "a.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dsn("a.db?mode=rwc"))
}

func TestClassify(t *testing.T) {
	store := newTestStore(t)
	t.Cleanup(func() { _ = store.Close() })
	db := store.DB()

	_, err := db.Exec("INSERT INTO constructs (id, name) VALUES (1, 'a')")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO constructs (id, name) VALUES (1, 'b')")
	assert.Equal(t, relational.ErrUnique, Dialect{}.Classify(err))

	_, err = db.Exec("INSERT INTO clonings (construct_id, cloning_type) VALUES (99, 'PCR')")
	assert.Equal(t, relational.ErrForeignKey, Dialect{}.Classify(err))

	_, err = db.Exec("INSERT INTO clonings (construct_id, cloning_type) VALUES (1, 'gibson')")
	assert.Equal(t, relational.ErrCheck, Dialect{}.Classify(err))

	_, err = db.Exec("INSERT INTO constructs (name) VALUES (NULL)")
	assert.Equal(t, relational.ErrNotNull, Dialect{}.Classify(err))

	assert.Equal(t, relational.ErrOther, Dialect{}.Classify(errors.New("plain")))
	var se *sqlite.Error
	assert.False(t, errors.As(fmt.Errorf("wrapped: %w", errors.New("x")), &se))
}
