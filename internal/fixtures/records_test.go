package fixtures_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"experimentdb/internal/core"
	"experimentdb/internal/fixtures"
	"experimentdb/pkg/domain"
)

// backends runs fn once per store backend on a fresh database loaded with
// the named fixtures.
func backends(t *testing.T, names []string, fn func(t *testing.T, svc *core.Service)) {
	t.Helper()
	stores(t, func(t *testing.T, store domain.PersistentStore) {
		_, err := fixtures.Load(context.Background(), store, names...)
		require.NoError(t, err)
		fn(t, core.NewService(store))
	})
}

// stores runs fn once per store backend on an empty database.
func stores(t *testing.T, fn func(t *testing.T, store domain.PersistentStore)) {
	t.Helper()
	opts := map[string]core.StorageOptions{
		"memory": {Driver: core.StorageMemory},
		"sqlite": {Driver: core.StorageSQLite},
	}
	for name, o := range opts {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if o.Driver == core.StorageSQLite {
				o.SQLitePath = filepath.Join(t.TempDir(), "records.db")
			}
			store, err := core.OpenPersistentStore(ctx, o)
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })
			fn(t, store)
		})
	}
}

func relation(owner domain.EntityType, name string) domain.Relation {
	rel, ok := domain.LookupRelation(owner, name)
	if !ok {
		panic("no relation " + string(owner) + "." + name)
	}
	return rel
}

var cloningFixtures = []string{"test_construct", "test_primer", "test_external", "test_sequencing"}

func saveCloning(t *testing.T, svc *core.Service, c domain.Cloning) domain.Cloning {
	t.Helper()
	ctx := context.Background()
	saved, err := svc.SaveCloning(ctx, c)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.DeleteCloning(ctx, saved.ID) })
	return saved
}

func TestCloningMinimal(t *testing.T) {
	backends(t, cloningFixtures, func(t *testing.T, svc *core.Service) {
		c := saveCloning(t, svc, domain.Cloning{Construct: domain.RefTo(1), CloningType: domain.CloningPCR})
		assert.Equal(t, "Fixture Construct cloning", c.String())
	})
}

func TestCloningFull(t *testing.T) {
	backends(t, cloningFixtures, func(t *testing.T, svc *core.Service) {
		ctx := context.Background()
		ligation, err := domain.ParseTimeOfDay("18:00")
		require.NoError(t, err)
		c := saveCloning(t, svc, domain.Cloning{
			Construct:                     domain.RefTo(1),
			CloningType:                   domain.CloningPCR,
			DateCompleted:                 domain.DatePtr(domain.NewDate(2012, 1, 1)),
			Vector:                        domain.RefPtr(1),
			VectorCIP:                     true,
			Insert:                        domain.Ptr("Rab5 ORF"),
			Primer5Prime:                  domain.RefPtr(1),
			Primer3Prime:                  domain.RefPtr(1),
			RestrictionEnzyme5Prime:       domain.Ptr("EcoRI"),
			RestrictionEnzyme3Prime:       domain.Ptr("BamHI"),
			VectorRestrictionEnzyme5Prime: domain.Ptr("EcoRI"),
			VectorRestrictionEnzyme3Prime: domain.Ptr("BamHI"),
			Destroyed5Prime:               true,
			LigationTemperature:           domain.Ptr(15),
			LigationTime:                  &ligation,
			Notes:                         domain.Ptr("Some Notes"),
		})
		require.NoError(t, svc.Link(ctx, relation(domain.EntityCloning, "researcher"), c.ID, 1))
		require.NoError(t, svc.Link(ctx, relation(domain.EntityCloning, "sequencing"), c.ID, 1))
		assert.Equal(t, "Fixture Construct cloning", c.String())
		assert.Equal(t, "Fixture Primer", c.Primer5Prime.Name)

		researchers, err := svc.LinkedRefs(ctx, relation(domain.EntityCloning, "researcher"), c.ID)
		require.NoError(t, err)
		assert.Equal(t, []domain.Ref{{ID: 1, Name: "Fixture Contact"}}, researchers)
		reads, err := svc.LinkedRefs(ctx, relation(domain.EntityCloning, "sequencing"), c.ID)
		require.NoError(t, err)
		assert.Equal(t, []domain.Ref{{ID: 1, Name: "Fixture Construct-1"}}, reads)
	})
}

func TestCloningAbsoluteURL(t *testing.T) {
	backends(t, cloningFixtures, func(t *testing.T, svc *core.Service) {
		c := saveCloning(t, svc, domain.Cloning{Construct: domain.RefTo(1), CloningType: domain.CloningPCR})
		assert.Equal(t, "/cloning/cloning/1/", c.AbsoluteURL())
	})
}

func minimalMutagenesis() domain.Mutagenesis {
	return domain.Mutagenesis{
		Construct:     domain.RefTo(1),
		Template:      domain.RefTo(1),
		Mutation:      "Ser85Ala",
		Method:        "Stratagene Quickchange",
		DateCompleted: domain.NewDate(2012, 1, 1),
	}
}

func saveMutagenesis(t *testing.T, svc *core.Service, m domain.Mutagenesis) domain.Mutagenesis {
	t.Helper()
	ctx := context.Background()
	saved, err := svc.SaveMutagenesis(ctx, m)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.DeleteMutagenesis(ctx, saved.ID) })
	return saved
}

func TestMutagenesisMinimal(t *testing.T) {
	backends(t, fixtures.Default, func(t *testing.T, svc *core.Service) {
		m := saveMutagenesis(t, svc, minimalMutagenesis())
		assert.Equal(t, "Fixture Construct ", m.String())
	})
}

func TestMutagenesisFull(t *testing.T) {
	backends(t, fixtures.Default, func(t *testing.T, svc *core.Service) {
		ctx := context.Background()
		full := minimalMutagenesis()
		full.Protocol = domain.RefPtr(1)
		full.SensePrimer = domain.RefPtr(1)
		full.AntisensePrimer = domain.RefPtr(1)
		full.Colonies = domain.Ptr(123)
		full.Notes = "Some notes."
		m := saveMutagenesis(t, svc, full)
		require.NoError(t, svc.Link(ctx, relation(domain.EntityMutagenesis, "sequencing"), m.ID, 1))
		require.NoError(t, svc.Link(ctx, relation(domain.EntityMutagenesis, "researcher"), m.ID, 1))
		assert.Equal(t, "Fixture Construct ", m.String())
		assert.Equal(t, "Fixture Protocol", m.Protocol.Name)

		reads, err := svc.LinkedRefs(ctx, relation(domain.EntityMutagenesis, "sequencing"), m.ID)
		require.NoError(t, err)
		assert.Len(t, reads, 1)
	})
}

func TestMutagenesisAbsoluteURL(t *testing.T) {
	backends(t, fixtures.Default, func(t *testing.T, svc *core.Service) {
		m := saveMutagenesis(t, svc, minimalMutagenesis())
		assert.Equal(t, "/experimentdb/clones/mutagenesis/1/", m.AbsoluteURL())
	})
}

func TestMutagenesisDefaultMethod(t *testing.T) {
	backends(t, fixtures.Default, func(t *testing.T, svc *core.Service) {
		m := minimalMutagenesis()
		m.Method = ""
		saved := saveMutagenesis(t, svc, m)
		assert.Equal(t, domain.DefaultMutagenesisMethod, saved.Method)
	})
}

func TestProtocolSlugIsStable(t *testing.T) {
	backends(t, fixtures.Default, func(t *testing.T, svc *core.Service) {
		ctx := context.Background()
		p, err := svc.SaveProtocol(ctx, domain.Protocol{Name: "Western Blot"})
		require.NoError(t, err)
		t.Cleanup(func() { _ = svc.DeleteProtocol(ctx, p.ID) })
		assert.Equal(t, "western-blot", p.SlugValue())
		assert.Equal(t, "Western Blot ", p.String())

		p.Name = "Western Blotting (wet transfer)"
		p, err = svc.SaveProtocol(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, "western-blot", p.SlugValue())

		bySlug, err := svc.ResolveProtocol(ctx, "western-blot")
		require.NoError(t, err)
		assert.Equal(t, p.ID, bySlug.ID)
	})
}

func TestProtocolSlugKeptWithExplicitID(t *testing.T) {
	stores(t, func(t *testing.T, store domain.PersistentStore) {
		ctx := context.Background()
		objs, err := fixtures.Decode([]byte(`[
			{"model": "data.protocol", "pk": 7, "fields": {"protocol": "Western Blot", "protocol_slug": "wb-legacy"}},
			{"model": "data.protocol", "pk": 8, "fields": {"protocol": "Lysis"}}
		]`))
		require.NoError(t, err)
		_, err = fixtures.Install(ctx, store, objs)
		require.NoError(t, err)

		svc := core.NewService(store)
		p, err := svc.ResolveProtocol(ctx, "wb-legacy")
		require.NoError(t, err)
		assert.Equal(t, int64(7), p.ID)
		assert.Equal(t, "Western Blot", p.Name)
		_, err = svc.ResolveProtocol(ctx, "western-blot")
		assert.True(t, domain.IsNotFound(err), "got %v", err)

		bare, err := svc.GetProtocol(ctx, 8)
		require.NoError(t, err)
		assert.Nil(t, bare.Slug)

		fresh, err := svc.SaveProtocol(ctx, domain.Protocol{Name: "Lysis"})
		require.NoError(t, err)
		assert.Equal(t, "lysis", fresh.SlugValue())
	})
}

func TestProtocolReferencesFromFixture(t *testing.T) {
	backends(t, fixtures.Default, func(t *testing.T, svc *core.Service) {
		refs, err := svc.LinkedRefs(context.Background(), relation(domain.EntityProtocol, "reference"), int64(1))
		require.NoError(t, err)
		assert.Equal(t, []domain.Ref{{ID: 1, Name: "Fixture Reference"}}, refs)
	})
}

func TestExperimentAndResult(t *testing.T) {
	backends(t, fixtures.Default, func(t *testing.T, svc *core.Service) {
		ctx := context.Background()
		e, err := svc.CreateExperiment(ctx, domain.Experiment{
			ExperimentID:   "DB-2012-01-01-A",
			Name:           "Rab5 knockdown",
			Assay:          domain.Ptr("Western"),
			ExperimentDate: domain.NewDate(2012, 1, 1),
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = svc.DeleteExperiment(ctx, e.ExperimentID) })
		assert.Equal(t, "Rab5 knockdown on Western; 2012-01-01", e.String())
		assert.Equal(t, "/experiment/DB-2012-01-01-A/", e.AbsoluteURL())
		require.NoError(t, svc.Link(ctx, relation(domain.EntityExperiment, "protocol"), e.ExperimentID, 1))
		protocols, err := svc.LinkedRefs(ctx, relation(domain.EntityExperiment, "protocol"), e.ExperimentID)
		require.NoError(t, err)
		assert.Equal(t, []domain.Ref{{ID: 1, Name: "Fixture Protocol"}}, protocols)

		r, err := svc.SaveResult(ctx, domain.Result{Experiment: domain.ExperimentRef{ID: e.ExperimentID}, Conclusions: "Rab5 reduced"})
		require.NoError(t, err)
		t.Cleanup(func() { _ = svc.DeleteResult(ctx, r.ID) })
		assert.Equal(t, "Rab5 knockdown on Western; 2012-01-01 ", r.String())
		assert.Equal(t, "/result/1/", r.AbsoluteURL())

		_, err = svc.CreateExperiment(ctx, domain.Experiment{ExperimentID: "DB-2012-01-01-A", Name: "dup", ExperimentDate: domain.NewDate(2012, 1, 1)})
		assert.True(t, domain.IsConflict(err), "got %v", err)
	})
}

func TestSequencingAndCohort(t *testing.T) {
	backends(t, fixtures.Default, func(t *testing.T, svc *core.Service) {
		ctx := context.Background()
		s, err := svc.GetSequencing(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Fixture Construct-1", s.String())
		assert.Equal(t, "/sequencing/1/", s.AbsoluteURL())

		a, err := svc.SaveAnimalCohort(ctx, domain.AnimalCohort{Name: "HFD 2012"})
		require.NoError(t, err)
		t.Cleanup(func() { _ = svc.DeleteAnimalCohort(ctx, a.ID) })
		assert.Equal(t, "HFD 2012", a.String())
		assert.Equal(t, "/cohort/1/", a.AbsoluteURL())
	})
}
