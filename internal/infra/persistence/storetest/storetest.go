// Package storetest is a behavioural suite run against every
// domain.PersistentStore implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"experimentdb/pkg/domain"
)

// Opener returns a fresh, empty store. The suite closes it.
type Opener func(t *testing.T) domain.PersistentStore

// Seed holds the reference rows inserted before each case.
type Seed struct {
	Construct domain.Ref
	Template  domain.Ref
	Primer    domain.Ref
	Contact   domain.Ref
	Reference domain.Ref
	Strain    domain.Ref
}

func seed(t *testing.T, store domain.PersistentStore) Seed {
	t.Helper()
	var s Seed
	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		if s.Construct, err = tx.InsertReference(domain.RefConstruct, domain.Ref{Name: "Fixture Construct"}); err != nil {
			return err
		}
		if s.Template, err = tx.InsertReference(domain.RefConstruct, domain.Ref{Name: "Template Construct"}); err != nil {
			return err
		}
		if s.Primer, err = tx.InsertReference(domain.RefPrimer, domain.Ref{Name: "T7 forward"}); err != nil {
			return err
		}
		if s.Contact, err = tx.InsertReference(domain.RefContact, domain.Ref{Name: "Dave Bridges"}); err != nil {
			return err
		}
		if s.Reference, err = tx.InsertReference(domain.RefReference, domain.Ref{Name: "Bridges 2008"}); err != nil {
			return err
		}
		s.Strain, err = tx.InsertReference(domain.RefAnimalStrain, domain.Ref{Name: "C57BL/6J"})
		return err
	})
	require.NoError(t, err)
	return s
}

// Run executes every case against stores produced by open.
func Run(t *testing.T, open Opener) {
	cases := []struct {
		name string
		fn   func(*testing.T, domain.PersistentStore, Seed)
	}{
		{"CloningMinimal", testCloningMinimal},
		{"CloningFull", testCloningFull},
		{"MutagenesisDefaults", testMutagenesis},
		{"ProtocolSlugImmutable", testProtocolSlug},
		{"ExperimentKeyUnique", testExperimentUnique},
		{"ExperimentOrdering", testExperimentOrdering},
		{"ResultRendersExperiment", testResult},
		{"DeleteProtocolCascades", testDeleteProtocolCascades},
		{"SequencingAndCohort", testSequencingAndCohort},
		{"LinksAttachAndCascade", testLinks},
		{"MissingRecords", testMissing},
		{"RollbackOnError", testRollback},
		{"References", testReferences},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := open(t)
			t.Cleanup(func() { _ = store.Close() })
			tc.fn(t, store, seed(t, store))
		})
	}
}

func inTx(t *testing.T, store domain.PersistentStore, fn func(domain.Transaction) error) {
	t.Helper()
	require.NoError(t, store.RunInTransaction(context.Background(), fn))
}

func inView(t *testing.T, store domain.PersistentStore, fn func(domain.View) error) {
	t.Helper()
	require.NoError(t, store.View(context.Background(), fn))
}

func testCloningMinimal(t *testing.T, store domain.PersistentStore, s Seed) {
	var created domain.Cloning
	inTx(t, store, func(tx domain.Transaction) error {
		var err error
		created, err = tx.InsertCloning(domain.Cloning{Construct: domain.RefTo(s.Construct.ID), CloningType: domain.CloningPCR})
		return err
	})
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "Fixture Construct cloning", created.String())
	assert.Equal(t, "/cloning/cloning/1/", created.AbsoluteURL())

	inTx(t, store, func(tx domain.Transaction) error {
		_, err := tx.InsertCloning(domain.Cloning{CloningType: domain.CloningPCR})
		assert.True(t, domain.IsValidation(err), "missing construct: %v", err)
		return nil
	})
	// A failed statement aborts the whole transaction on some engines.
	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.InsertCloning(domain.Cloning{Construct: domain.RefTo(999), CloningType: domain.CloningPCR})
		return err
	})
	assert.True(t, domain.IsConflict(err), "dangling construct: %v", err)
}

func testCloningFull(t *testing.T, store domain.PersistentStore, s Seed) {
	date := domain.NewDate(2009, time.March, 2)
	in := domain.Cloning{
		DateCompleted:           &date,
		Construct:               domain.RefTo(s.Construct.ID),
		CloningType:             domain.CloningDigest,
		Vector:                  domain.RefPtr(s.Template.ID),
		VectorCIP:               true,
		Insert:                  domain.Ptr("Akt1"),
		Primer5Prime:            domain.RefPtr(s.Primer.ID),
		RestrictionEnzyme5Prime: domain.Ptr("EcoRI"),
		RestrictionEnzyme3Prime: domain.Ptr("XhoI"),
		Destroyed3Prime:         true,
		LigationTemperature:     domain.Ptr(16),
		LigationTime:            &domain.TimeOfDay{Hour: 1, Minute: 30},
		Gel:                     "cloning/2009/03/02/gel.jpg",
		Notes:                   domain.Ptr("overnight"),
	}
	var created domain.Cloning
	inTx(t, store, func(tx domain.Transaction) error {
		var err error
		created, err = tx.InsertCloning(in)
		return err
	})
	inView(t, store, func(v domain.View) error {
		got, err := v.GetCloning(created.ID)
		require.NoError(t, err)
		require.NotNil(t, got.DateCompleted)
		assert.Equal(t, "2009-03-02", got.DateCompleted.String())
		require.NotNil(t, got.Vector)
		assert.Equal(t, "Template Construct", got.Vector.Name)
		require.NotNil(t, got.Primer5Prime)
		assert.Equal(t, "T7 forward", got.Primer5Prime.Name)
		assert.Nil(t, got.Primer3Prime)
		assert.True(t, got.VectorCIP)
		assert.True(t, got.Destroyed3Prime)
		assert.False(t, got.Destroyed5Prime)
		assert.Equal(t, "Akt1", *got.Insert)
		assert.Equal(t, 16, *got.LigationTemperature)
		assert.Equal(t, "01:30", got.LigationTime.String())
		assert.Equal(t, in.Gel, got.Gel)
		assert.Nil(t, got.VectorRestrictionEnzyme5Prime)
		return nil
	})

	created.CloningType = domain.CloningLIC
	created.Vector = nil
	inTx(t, store, func(tx domain.Transaction) error {
		updated, err := tx.UpdateCloning(created)
		require.NoError(t, err)
		assert.Equal(t, domain.CloningLIC, updated.CloningType)
		assert.Nil(t, updated.Vector)
		return nil
	})
}

func testMutagenesis(t *testing.T, store domain.PersistentStore, s Seed) {
	var created domain.Mutagenesis
	inTx(t, store, func(tx domain.Transaction) error {
		var err error
		created, err = tx.InsertMutagenesis(domain.Mutagenesis{
			Construct:     domain.RefTo(s.Construct.ID),
			Template:      domain.RefTo(s.Template.ID),
			Mutation:      "K179M",
			DateCompleted: domain.NewDate(2010, time.June, 1),
		})
		return err
	})
	assert.Equal(t, domain.DefaultMutagenesisMethod, created.Method)
	assert.Equal(t, "Fixture Construct ", created.String())
	assert.Equal(t, "/experimentdb/clones/mutagenesis/1/", created.AbsoluteURL())
	assert.Equal(t, "Template Construct", created.Template.Name)

	inTx(t, store, func(tx domain.Transaction) error {
		_, err := tx.InsertMutagenesis(domain.Mutagenesis{Construct: domain.RefTo(s.Construct.ID), Template: domain.RefTo(s.Template.ID), Mutation: "A1B"})
		assert.True(t, domain.IsValidation(err), "missing completion date: %v", err)
		return nil
	})
}

func testProtocolSlug(t *testing.T, store domain.PersistentStore, _ Seed) {
	var created domain.Protocol
	inTx(t, store, func(tx domain.Transaction) error {
		var err error
		created, err = tx.InsertProtocol(domain.Protocol{Name: "Western Blot", Slug: domain.Ptr("ignored")})
		return err
	})
	assert.Equal(t, "western-blot", created.SlugValue())
	assert.Equal(t, "Western Blot ", created.String())

	created.Name = "Far Western Blot"
	created.Slug = domain.Ptr("far-western-blot")
	inTx(t, store, func(tx domain.Transaction) error {
		updated, err := tx.UpdateProtocol(created)
		require.NoError(t, err)
		assert.Equal(t, "Far Western Blot", updated.Name)
		assert.Equal(t, "western-blot", updated.SlugValue())
		return nil
	})
	inView(t, store, func(v domain.View) error {
		bySlug, err := v.GetProtocolBySlug("western-blot")
		require.NoError(t, err)
		assert.Equal(t, created.ID, bySlug.ID)
		_, err = v.GetProtocolBySlug("far-western-blot")
		assert.True(t, domain.IsNotFound(err))
		return nil
	})

	inTx(t, store, func(tx domain.Transaction) error {
		_, err := tx.InsertProtocol(domain.Protocol{Name: "Lysis"})
		require.NoError(t, err)
		restored, err := tx.InsertProtocol(domain.Protocol{ID: 7, Name: "Transfection", Slug: domain.Ptr("tfx-legacy")})
		require.NoError(t, err)
		assert.Equal(t, "tfx-legacy", restored.SlugValue())
		return nil
	})
	inView(t, store, func(v domain.View) error {
		all, err := v.ListProtocols()
		require.NoError(t, err)
		var names []string
		for _, p := range all {
			names = append(names, p.Name)
		}
		assert.Equal(t, []string{"Transfection", "Lysis", "Far Western Blot"}, names)
		return nil
	})
}

func newExperiment(id string, date domain.Date) domain.Experiment {
	return domain.Experiment{ExperimentID: id, Name: "Insulin time course", Assay: domain.Ptr("pAkt"), ExperimentDate: date}
}

func testExperimentUnique(t *testing.T, store domain.PersistentStore, _ Seed) {
	exp := newExperiment("DB-2008-11-11-A", domain.NewDate(2008, time.November, 11))
	inTx(t, store, func(tx domain.Transaction) error {
		created, err := tx.InsertExperiment(exp)
		require.NoError(t, err)
		assert.Equal(t, "Insulin time course on pAkt; 2008-11-11", created.String())
		assert.Equal(t, "/experiment/DB-2008-11-11-A/", created.AbsoluteURL())
		return nil
	})
	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.InsertExperiment(exp)
		return err
	})
	assert.True(t, domain.IsConflict(err), "duplicate identifier: %v", err)

	exp.Comments = domain.Ptr("repeat")
	inTx(t, store, func(tx domain.Transaction) error {
		updated, err := tx.UpdateExperiment(exp)
		require.NoError(t, err)
		assert.Equal(t, "repeat", *updated.Comments)
		return nil
	})
}

func testExperimentOrdering(t *testing.T, store domain.PersistentStore, _ Seed) {
	inTx(t, store, func(tx domain.Transaction) error {
		for _, e := range []domain.Experiment{
			newExperiment("DB-2008-01-01-A", domain.NewDate(2008, time.January, 1)),
			newExperiment("DB-2009-01-01-A", domain.NewDate(2009, time.January, 1)),
			newExperiment("DB-2008-06-01-A", domain.NewDate(2008, time.June, 1)),
		} {
			if _, err := tx.InsertExperiment(e); err != nil {
				return err
			}
		}
		return nil
	})
	inView(t, store, func(v domain.View) error {
		all, err := v.ListExperiments()
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "DB-2009-01-01-A", all[0].ExperimentID)
		assert.Equal(t, "DB-2008-06-01-A", all[1].ExperimentID)
		assert.Equal(t, "DB-2008-01-01-A", all[2].ExperimentID)
		return nil
	})
}

func testResult(t *testing.T, store domain.PersistentStore, _ Seed) {
	var created domain.Result
	inTx(t, store, func(tx domain.Transaction) error {
		if _, err := tx.InsertExperiment(newExperiment("DB-1", domain.NewDate(2011, time.May, 5))); err != nil {
			return err
		}
		var err error
		created, err = tx.InsertResult(domain.Result{Experiment: domain.ExperimentRef{ID: "DB-1"}, RawScan1: "raw/2011/05/05/scan.tif"})
		return err
	})
	assert.Equal(t, "Insulin time course on pAkt; 2011-05-05 ", created.String())
	assert.Equal(t, "/result/1/", created.AbsoluteURL())
	assert.Equal(t, "raw/2011/05/05/scan.tif", created.RawScan1)

	inTx(t, store, func(tx domain.Transaction) error {
		return tx.DeleteExperiment("DB-1")
	})
	inView(t, store, func(v domain.View) error {
		_, err := v.GetResult(created.ID)
		assert.True(t, domain.IsNotFound(err), "result outlived its experiment: %v", err)
		all, err := v.ListResults()
		require.NoError(t, err)
		assert.Empty(t, all)
		return nil
	})
}

func testDeleteProtocolCascades(t *testing.T, store domain.PersistentStore, s Seed) {
	var kept, dropped domain.Mutagenesis
	var protocol domain.Protocol
	inTx(t, store, func(tx domain.Transaction) error {
		var err error
		if protocol, err = tx.InsertProtocol(domain.Protocol{Name: "QuikChange"}); err != nil {
			return err
		}
		m := domain.Mutagenesis{
			Construct: domain.RefTo(s.Construct.ID), Template: domain.RefTo(s.Template.ID),
			Mutation: "S473A", DateCompleted: domain.NewDate(2010, time.January, 2),
		}
		if kept, err = tx.InsertMutagenesis(m); err != nil {
			return err
		}
		m.Mutation = "T308A"
		m.Protocol = domain.RefPtr(protocol.ID)
		if dropped, err = tx.InsertMutagenesis(m); err != nil {
			return err
		}
		rel, _ := domain.LookupRelation(domain.EntityMutagenesis, "researcher")
		return tx.AddLink(rel, dropped.ID, s.Contact.ID)
	})

	inTx(t, store, func(tx domain.Transaction) error {
		return tx.DeleteProtocol(protocol.ID)
	})
	inView(t, store, func(v domain.View) error {
		_, err := v.GetMutagenesis(dropped.ID)
		assert.True(t, domain.IsNotFound(err), "mutagenesis outlived its protocol: %v", err)
		all, err := v.ListMutageneses()
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, kept.ID, all[0].ID)
		rel, _ := domain.LookupRelation(domain.EntityMutagenesis, "researcher")
		ids, err := v.Links(rel, dropped.ID)
		require.NoError(t, err)
		assert.Empty(t, ids)
		return nil
	})
}

func testSequencingAndCohort(t *testing.T, store domain.PersistentStore, s Seed) {
	inTx(t, store, func(tx domain.Transaction) error {
		seq, err := tx.InsertSequencing(domain.Sequencing{
			CloneName: "A1", Construct: domain.RefTo(s.Construct.ID), Primer: domain.RefTo(s.Primer.ID),
			Sequence: "ATGC", Correct: true, LaneNumber: domain.Ptr(3),
		})
		require.NoError(t, err)
		assert.Equal(t, "Fixture Construct-A1", seq.String())
		assert.Equal(t, "/sequencing/1/", seq.AbsoluteURL())
		assert.Equal(t, 3, *seq.LaneNumber)
		assert.Nil(t, seq.Date)

		start := domain.NewDate(2012, time.January, 9)
		cohort, err := tx.InsertAnimalCohort(domain.AnimalCohort{Name: "HFD cohort", DateStart: &start})
		require.NoError(t, err)
		assert.Equal(t, "HFD cohort", cohort.String())
		assert.Equal(t, "/cohort/1/", cohort.AbsoluteURL())
		assert.Equal(t, "2012-01-09", cohort.DateStart.String())
		return nil
	})
}

func testLinks(t *testing.T, store domain.PersistentStore, s Seed) {
	cloningSeq, _ := domain.LookupRelation(domain.EntityCloning, "sequencing")
	cloningResearcher, _ := domain.LookupRelation(domain.EntityCloning, "researcher")
	protocolRef, _ := domain.LookupRelation(domain.EntityProtocol, "reference")
	expProtocol, _ := domain.LookupRelation(domain.EntityExperiment, "protocol")
	cohortModel, _ := domain.LookupRelation(domain.EntityCohort, "animal_model")

	var cloning domain.Cloning
	var seq domain.Sequencing
	var proto domain.Protocol
	var cohort domain.AnimalCohort
	inTx(t, store, func(tx domain.Transaction) error {
		var err error
		if cloning, err = tx.InsertCloning(domain.Cloning{Construct: domain.RefTo(s.Construct.ID), CloningType: domain.CloningPCR}); err != nil {
			return err
		}
		if seq, err = tx.InsertSequencing(domain.Sequencing{CloneName: "B2", Construct: domain.RefTo(s.Construct.ID), Primer: domain.RefTo(s.Primer.ID), Sequence: "GG"}); err != nil {
			return err
		}
		if proto, err = tx.InsertProtocol(domain.Protocol{Name: "Lysis"}); err != nil {
			return err
		}
		if cohort, err = tx.InsertAnimalCohort(domain.AnimalCohort{Name: "Cohort"}); err != nil {
			return err
		}
		if _, err = tx.InsertExperiment(newExperiment("DB-L", domain.NewDate(2013, time.April, 4))); err != nil {
			return err
		}
		for _, link := range []struct {
			rel    domain.Relation
			owner  any
			target int64
		}{
			{cloningSeq, cloning.ID, seq.ID},
			{cloningResearcher, cloning.ID, s.Contact.ID},
			{cloningResearcher, cloning.ID, s.Contact.ID},
			{protocolRef, proto.ID, s.Reference.ID},
			{expProtocol, "DB-L", proto.ID},
			{cohortModel, cohort.ID, s.Strain.ID},
		} {
			if err := tx.AddLink(link.rel, link.owner, link.target); err != nil {
				return err
			}
		}
		return nil
	})

	inView(t, store, func(v domain.View) error {
		ids, err := v.Links(cloningResearcher, cloning.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{s.Contact.ID}, ids)
		ids, err = v.Links(cloningSeq, cloning.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{seq.ID}, ids)
		ids, err = v.Links(expProtocol, "DB-L")
		require.NoError(t, err)
		assert.Equal(t, []int64{proto.ID}, ids)
		ids, err = v.Links(cohortModel, cohort.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{s.Strain.ID}, ids)
		return nil
	})

	inTx(t, store, func(tx domain.Transaction) error {
		err := tx.AddLink(cloningSeq, cloning.ID, 999)
		assert.True(t, domain.IsNotFound(err), "missing target: %v", err)
		err = tx.AddLink(cloningSeq, int64(999), seq.ID)
		assert.True(t, domain.IsNotFound(err), "missing owner: %v", err)
		err = tx.RemoveLink(cloningResearcher, cloning.ID, 999)
		assert.True(t, domain.IsNotFound(err), "missing link: %v", err)
		require.NoError(t, tx.RemoveLink(cloningResearcher, cloning.ID, s.Contact.ID))
		// Deleting either end removes its join rows.
		require.NoError(t, tx.DeleteSequencing(seq.ID))
		return tx.DeleteProtocol(proto.ID)
	})

	inView(t, store, func(v domain.View) error {
		ids, err := v.Links(cloningResearcher, cloning.ID)
		require.NoError(t, err)
		assert.Empty(t, ids)
		ids, err = v.Links(cloningSeq, cloning.ID)
		require.NoError(t, err)
		assert.Empty(t, ids)
		ids, err = v.Links(expProtocol, "DB-L")
		require.NoError(t, err)
		assert.Empty(t, ids)
		ids, err = v.Links(protocolRef, proto.ID)
		require.NoError(t, err)
		assert.Empty(t, ids)
		return nil
	})
}

func testMissing(t *testing.T, store domain.PersistentStore, _ Seed) {
	inTx(t, store, func(tx domain.Transaction) error {
		_, err := tx.GetCloning(42)
		assert.True(t, domain.IsNotFound(err))
		_, err = tx.GetExperiment("nope")
		assert.True(t, domain.IsNotFound(err))
		_, err = tx.UpdateAnimalCohort(domain.AnimalCohort{ID: 42, Name: "ghost"})
		assert.True(t, domain.IsNotFound(err))
		assert.True(t, domain.IsNotFound(tx.DeleteResult(42)))
		assert.True(t, domain.IsNotFound(tx.DeleteExperiment("nope")))
		_, err = tx.GetReference(domain.RefConstruct, 42)
		assert.True(t, domain.IsNotFound(err))
		return nil
	})
}

func testRollback(t *testing.T, store domain.PersistentStore, s Seed) {
	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.InsertCloning(domain.Cloning{Construct: domain.RefTo(s.Construct.ID), CloningType: domain.CloningPCR}); err != nil {
			return err
		}
		_, err := tx.InsertExperiment(domain.Experiment{ExperimentID: "bad id"})
		return err
	})
	require.Error(t, err)
	inView(t, store, func(v domain.View) error {
		all, err := v.ListClonings()
		require.NoError(t, err)
		assert.Empty(t, all)
		return nil
	})
}

func testReferences(t *testing.T, store domain.PersistentStore, s Seed) {
	inTx(t, store, func(tx domain.Transaction) error {
		ref, err := tx.InsertReference(domain.RefConstruct, domain.Ref{ID: 50, Name: "pcDNA3"})
		require.NoError(t, err)
		assert.Equal(t, int64(50), ref.ID)
		next, err := tx.InsertReference(domain.RefConstruct, domain.Ref{Name: "pGEX"})
		require.NoError(t, err)
		assert.Greater(t, next.ID, int64(50))
		_, err = tx.InsertReference(domain.RefConstruct, domain.Ref{})
		assert.True(t, domain.IsValidation(err))
		_, err = tx.InsertReference(domain.RefProtocol, domain.Ref{Name: "x"})
		assert.Error(t, err)
		return nil
	})
	inView(t, store, func(v domain.View) error {
		refs, err := v.ListReferences(domain.RefConstruct)
		require.NoError(t, err)
		require.Len(t, refs, 4)
		assert.Equal(t, s.Construct, refs[0])
		got, err := v.GetReference(domain.RefContact, s.Contact.ID)
		require.NoError(t, err)
		assert.Equal(t, "Dave Bridges", got.Name)
		return nil
	})
}
