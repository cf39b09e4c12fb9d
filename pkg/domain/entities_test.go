package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRendering(t *testing.T) {
	construct := Ref{ID: 1, Name: "Fixture Construct"}
	date := NewDate(2008, time.November, 11)

	cases := []struct {
		name string
		got  string
		want string
	}{
		{"cloning", Cloning{Construct: construct, CloningType: CloningPCR}.String(), "Fixture Construct cloning"},
		{"mutagenesis", Mutagenesis{Construct: construct}.String(), "Fixture Construct "},
		{"protocol", Protocol{Name: "Western Blot"}.String(), "Western Blot "},
		{"experiment", Experiment{Name: "Blot", Assay: Ptr("pAkt"), ExperimentDate: date}.String(), "Blot on pAkt; 2008-11-11"},
		{"experiment without assay", Experiment{Name: "Blot", ExperimentDate: date}.String(), "Blot on None; 2008-11-11"},
		{"result", Result{Experiment: ExperimentRef{ID: "DB-1", Name: "Blot on pAkt; 2008-11-11"}}.String(), "Blot on pAkt; 2008-11-11 "},
		{"result unresolved", Result{Experiment: ExperimentRef{ID: "DB-1"}}.String(), "DB-1 "},
		{"sequencing", Sequencing{Construct: construct, CloneName: "A1"}.String(), "Fixture Construct-A1"},
		{"cohort", AnimalCohort{Name: "Cohort 1"}.String(), "Cohort 1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.got)
		})
	}
}

func TestAbsoluteURLs(t *testing.T) {
	assert.Equal(t, "/cloning/cloning/1/", Cloning{ID: 1}.AbsoluteURL())
	assert.Equal(t, "/experimentdb/clones/mutagenesis/1/", Mutagenesis{ID: 1}.AbsoluteURL())
	assert.Equal(t, "/protocol/3/", Protocol{ID: 3}.AbsoluteURL())
	assert.Equal(t, "/experiment/DB-2008-11-11-A/", Experiment{ExperimentID: "DB-2008-11-11-A"}.AbsoluteURL())
	assert.Equal(t, "/result/4/", Result{ID: 4}.AbsoluteURL())
	assert.Equal(t, "/sequencing/5/", Sequencing{ID: 5}.AbsoluteURL())
	assert.Equal(t, "/cohort/6/", AnimalCohort{ID: 6}.AbsoluteURL())
}

func TestProtocolAssignSlug(t *testing.T) {
	p := Protocol{Name: "Western Blot (Revised)"}
	p.AssignSlug()
	require.NotNil(t, p.Slug)
	assert.Equal(t, "western-blot-revised", p.SlugValue())

	long := Protocol{Name: "Immunoprecipitation of Phosphorylated Proteins"}
	long.AssignSlug()
	assert.LessOrEqual(t, len(long.SlugValue()), ProtocolSlugMaxLen)
	assert.False(t, strings.HasSuffix(long.SlugValue(), "-"))
	assert.Equal(t, "immunoprecipitation-of-ph", long.SlugValue())

	dashed := Protocol{Name: "Immunohistochemistry Day Two"}
	dashed.AssignSlug()
	assert.Equal(t, "immunohistochemistry-day", dashed.SlugValue())
}

func TestProtocolWikiPermalink(t *testing.T) {
	p := Protocol{WikiPage: Ptr("Western Blot"), Revision: Ptr(42)}
	assert.Equal(t, "http://wiki.example.org/index.php?title=Western_Blot&oldid=42", p.WikiPermalink("http://wiki.example.org/"))
	assert.Empty(t, Protocol{}.WikiPermalink("http://wiki.example.org"))
	noRev := Protocol{WikiPage: Ptr("Lysis")}
	assert.Equal(t, "http://w/index.php?title=Lysis", noRev.WikiPermalink("http://w"))
}

func TestMutagenesisDefaults(t *testing.T) {
	m := PrepareMutagenesisInsert(Mutagenesis{})
	assert.Equal(t, DefaultMutagenesisMethod, m.Method)
	kept := PrepareMutagenesisInsert(Mutagenesis{Method: "Kunkel"})
	assert.Equal(t, "Kunkel", kept.Method)
}

func TestValidation(t *testing.T) {
	date := NewDate(2009, time.January, 2)

	require.NoError(t, Cloning{Construct: RefTo(1), CloningType: CloningLIC}.Validate())

	err := Cloning{CloningType: CloningPCR}.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, EntityCloning, verr.Entity)
	assert.Equal(t, "construct", verr.Field)

	err = Cloning{Construct: RefTo(1), CloningType: "gibson"}.Validate()
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "cloning_type", verr.Field)

	err = Cloning{Construct: RefTo(1), CloningType: CloningPCR, RestrictionEnzyme5Prime: Ptr("EcoRIEcoRI")}.Validate()
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "restriction_enzyme_5prime", verr.Field)

	m := Mutagenesis{Construct: RefTo(1), Template: RefTo(2), Mutation: "K45A", Method: DefaultMutagenesisMethod}
	err = m.Validate()
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "date_completed", verr.Field)
	m.DateCompleted = date
	assert.NoError(t, m.Validate())

	assert.True(t, IsValidation(Experiment{ExperimentID: "bad id", Name: "x", ExperimentDate: date}.Validate()))
	assert.NoError(t, Experiment{ExperimentID: "DB-2009-01-02-A", Name: "x", ExperimentDate: date}.Validate())
	assert.True(t, IsValidation(Result{}.Validate()))
	assert.NoError(t, Result{Experiment: ExperimentRef{ID: "DB-1"}}.Validate())
	assert.True(t, IsValidation(Sequencing{CloneName: "A1", Construct: RefTo(1), Primer: RefTo(1)}.Validate()))
	assert.True(t, IsValidation(AnimalCohort{}.Validate()))
	assert.True(t, IsValidation(Protocol{}.Validate()))
}

func TestRefJSON(t *testing.T) {
	var c Cloning
	require.NoError(t, json.Unmarshal([]byte(`{"construct": 7, "cloning_type": "PCR", "vector": {"id": 8, "name": "pcDNA3"}, "date_completed": "2010-05-06", "ligation_time": "01:30"}`), &c))
	assert.Equal(t, int64(7), c.Construct.ID)
	require.NotNil(t, c.Vector)
	assert.Equal(t, "pcDNA3", c.Vector.Name)
	require.NotNil(t, c.DateCompleted)
	assert.Equal(t, "2010-05-06", c.DateCompleted.String())
	require.NotNil(t, c.LigationTime)
	assert.Equal(t, TimeOfDay{Hour: 1, Minute: 30}, *c.LigationTime)

	var r Result
	require.NoError(t, json.Unmarshal([]byte(`{"experiment": "DB-1"}`), &r))
	assert.Equal(t, "DB-1", r.Experiment.ID)

	out, err := json.Marshal(Mutagenesis{Construct: Ref{ID: 1, Name: "c"}, DateCompleted: NewDate(2011, time.March, 4)})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"date_completed":"2011-03-04"`)
	assert.Contains(t, string(out), `"construct":{"id":1,"name":"c"}`)
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan("2012-12-24"))
	assert.Equal(t, "2012-12-24", d.String())
	require.NoError(t, d.Scan(time.Date(2013, time.July, 1, 15, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2013-07-01", d.String())
	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())
	assert.Error(t, d.Scan(42))

	v, err := NewDate(2014, time.February, 3).Value()
	require.NoError(t, err)
	assert.Equal(t, "2014-02-03", v)

	var tod TimeOfDay
	require.NoError(t, tod.Scan([]byte("23:05")))
	assert.Equal(t, "23:05", tod.String())
}

func TestRelations(t *testing.T) {
	rels := RelationsFor(EntityExperiment)
	assert.Len(t, rels, 13)

	rel, ok := LookupRelation(EntityCloning, "researcher")
	require.True(t, ok)
	assert.Equal(t, RefContact, rel.Target)
	assert.Equal(t, "cloning_researcher", rel.Table())

	_, ok = LookupRelation(EntityCloning, "protein")
	assert.False(t, ok)

	v, err := rel.OwnerValue(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	_, err = rel.OwnerValue("1")
	assert.Error(t, err)

	exp, _ := LookupRelation(EntityExperiment, "protocol")
	v, err = exp.OwnerValue("DB-1")
	require.NoError(t, err)
	assert.Equal(t, "DB-1", v)
	_, err = exp.OwnerValue(int64(1))
	assert.Error(t, err)
}

func TestRefSlotsAndFiles(t *testing.T) {
	c := Cloning{Construct: RefTo(1), Vector: RefPtr(2)}
	slots := c.RefSlots()
	require.Len(t, slots, 4)
	slots[1].Ref.Name = "vector"
	assert.Equal(t, "vector", c.Vector.Name)
	assert.Nil(t, slots[2].Ref)

	var r Result
	f, ok := LookupFileField(&r, "rawscan3")
	require.True(t, ok)
	assert.Equal(t, UploadRaw, f.UploadTo)
	*f.Key = "raw/2020/01/01/scan.tif"
	assert.Equal(t, "raw/2020/01/01/scan.tif", r.RawScan3)
	_, ok = LookupFileField(&r, "gel")
	assert.False(t, ok)
}

func TestRefKinds(t *testing.T) {
	assert.Equal(t, "literature_references", RefReference.Table())
	assert.True(t, RefProtocol.Internal())
	assert.False(t, RefConstruct.Internal())
	_, err := ParseRefKind("antibody")
	assert.NoError(t, err)
	_, err = ParseRefKind("plasmid")
	assert.Error(t, err)
	assert.Len(t, ExternalRefKinds(), 12)
}
