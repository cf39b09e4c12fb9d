package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"experimentdb/internal/infra/persistence/storetest"
	"experimentdb/pkg/domain"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(*testing.T) domain.PersistentStore { return NewStore() })
}

func TestCallerCannotMutateStoredRecords(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	comments := "original"
	require.NoError(t, store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.InsertAnimalCohort(domain.AnimalCohort{Name: "Cohort", Notes: &comments})
		return err
	}))
	comments = "changed"

	require.NoError(t, store.View(ctx, func(v domain.View) error {
		got, err := v.GetAnimalCohort(1)
		require.NoError(t, err)
		assert.Equal(t, "original", *got.Notes)
		*got.Notes = "changed again"
		again, err := v.GetAnimalCohort(1)
		require.NoError(t, err)
		assert.Equal(t, "original", *again.Notes)
		return nil
	}))
}

func TestSequencingRefNameRendersConstructAndClone(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	var seq domain.Sequencing
	require.NoError(t, store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		c, err := tx.InsertReference(domain.RefConstruct, domain.Ref{Name: "pcDNA3"})
		require.NoError(t, err)
		p, err := tx.InsertReference(domain.RefPrimer, domain.Ref{Name: "T7"})
		require.NoError(t, err)
		seq, err = tx.InsertSequencing(domain.Sequencing{CloneName: "4", Construct: c, Primer: p, Sequence: "ATG"})
		return err
	}))
	require.NoError(t, store.View(ctx, func(v domain.View) error {
		name, err := v.(*transaction).refName(domain.RefSequencing, seq.ID)
		require.NoError(t, err)
		assert.Equal(t, "pcDNA3-4", name)
		assert.Equal(t, seq.String(), name)
		return nil
	}))
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewStore()
	err := store.RunInTransaction(ctx, func(domain.Transaction) error { return nil })
	assert.True(t, errors.Is(err, context.Canceled))
	err = store.View(ctx, func(domain.View) error { return nil })
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestConcurrentInsertsAssignDistinctIDs(t *testing.T) {
	store := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
				_, err := tx.InsertReference(domain.RefPrimer, domain.Ref{Name: "p"})
				return err
			})
		}()
	}
	wg.Wait()
	require.NoError(t, store.View(context.Background(), func(v domain.View) error {
		refs, err := v.ListReferences(domain.RefPrimer)
		require.NoError(t, err)
		require.Len(t, refs, 20)
		assert.Equal(t, int64(20), refs[19].ID)
		return nil
	}))
}
