// Package domain defines the persistent lab records, their value types and
// the storage contract implemented by the persistence backends.
package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gosimple/slug"

	"experimentdb/pkg/routes"
)

// EntityType identifies the type of record stored in the domain.
type EntityType string

// Supported entity type identifiers used in errors, relations and metrics.
const (
	// EntityCloning identifies a cloning record.
	EntityCloning EntityType = "cloning"
	// EntityMutagenesis identifies a mutagenesis record.
	EntityMutagenesis EntityType = "mutagenesis"
	// EntityProtocol identifies a protocol record.
	EntityProtocol EntityType = "protocol"
	// EntityExperiment identifies an experiment record keyed by its
	// human-assigned identifier.
	EntityExperiment EntityType = "experiment"
	EntityResult     EntityType = "result"
	EntitySequencing EntityType = "sequencing"
	EntityCohort     EntityType = "animal_cohort"
	// EntityReference identifies rows of the external reference tables.
	EntityReference EntityType = "reference"
)

// CloningType enumerates the supported cloning procedures.
type CloningType string

// Canonical cloning types.
const (
	CloningPCR    CloningType = "PCR"
	CloningDigest CloningType = "digest"
	CloningLIC    CloningType = "LIC"
)

// Label returns the human readable description of the cloning type.
func (t CloningType) Label() string {
	switch t {
	case CloningPCR:
		return "PCR Based"
	case CloningDigest:
		return "Digestion and Ligation"
	case CloningLIC:
		return "Ligation Independent Cloning"
	default:
		return string(t)
	}
}

// DefaultMutagenesisMethod is assigned to mutagenesis records inserted
// without a method.
const DefaultMutagenesisMethod = "Stratagene QuickChange"

// ProtocolSlugMaxLen bounds generated protocol slugs.
const ProtocolSlugMaxLen = 25

// Cloning stores details about the generation of a recombinant DNA molecule.
type Cloning struct {
	ID                            int64       `json:"id"`
	DateCompleted                 *Date       `json:"date_completed,omitempty"`
	Construct                     Ref         `json:"construct" validate:"required"`
	CloningType                   CloningType `json:"cloning_type" validate:"required,oneof=PCR digest LIC"`
	Vector                        *Ref        `json:"vector,omitempty"`
	VectorCIP                     bool        `json:"vector_cip"`
	Insert                        *string     `json:"insert,omitempty" validate:"omitempty,max=100"`
	Primer5Prime                  *Ref        `json:"primer_5prime,omitempty"`
	Primer3Prime                  *Ref        `json:"primer_3prime,omitempty"`
	RestrictionEnzyme5Prime       *string     `json:"restriction_enzyme_5prime,omitempty" validate:"omitempty,max=7"`
	RestrictionEnzyme3Prime       *string     `json:"restriction_enzyme_3prime,omitempty" validate:"omitempty,max=7"`
	VectorRestrictionEnzyme5Prime *string     `json:"vector_restriction_enzyme_5prime,omitempty" validate:"omitempty,max=7"`
	VectorRestrictionEnzyme3Prime *string     `json:"vector_restriction_enzyme_3prime,omitempty" validate:"omitempty,max=7"`
	Destroyed5Prime               bool        `json:"destroyed_5prime"`
	Destroyed3Prime               bool        `json:"destroyed_3prime"`
	LigationTemperature           *int        `json:"ligation_temperature,omitempty"`
	LigationTime                  *TimeOfDay  `json:"ligation_time,omitempty"`
	Gel                           string      `json:"gel,omitempty"`
	Notes                         *string     `json:"notes,omitempty" validate:"omitempty,max=250"`
}

// String renders the construct name followed by the word cloning.
func (c Cloning) String() string {
	return fmt.Sprintf("%s cloning", c.Construct)
}

// AbsoluteURL returns the cloning detail permalink.
func (c Cloning) AbsoluteURL() string {
	return routes.MustReverse(routes.Cloning+"-detail", strconv.FormatInt(c.ID, 10))
}

// RefSlots exposes the reference fields of the record for name resolution.
func (c *Cloning) RefSlots() []RefSlot {
	return []RefSlot{
		{Field: "construct", Kind: RefConstruct, Ref: &c.Construct},
		{Field: "vector", Kind: RefConstruct, Ref: c.Vector},
		{Field: "primer_5prime", Kind: RefPrimer, Ref: c.Primer5Prime},
		{Field: "primer_3prime", Kind: RefPrimer, Ref: c.Primer3Prime},
	}
}

// Mutagenesis describes the generation of a mutation in a construct relative
// to a template construct.
type Mutagenesis struct {
	ID              int64  `json:"id"`
	Construct       Ref    `json:"construct" validate:"required"`
	Mutation        string `json:"mutation" validate:"required,max=25"`
	Template        Ref    `json:"template" validate:"required"`
	DateCompleted   Date   `json:"date_completed" validate:"required"`
	Method          string `json:"method" validate:"required,max=50"`
	Protocol        *Ref   `json:"protocol,omitempty"`
	SensePrimer     *Ref   `json:"sense_primer,omitempty"`
	AntisensePrimer *Ref   `json:"antisense_primer,omitempty"`
	Colonies        *int   `json:"colonies,omitempty"`
	Notes           string `json:"notes" validate:"max=250"`
}

// String renders the construct name with a trailing space.
func (m Mutagenesis) String() string {
	return fmt.Sprintf("%s ", m.Construct)
}

// AbsoluteURL returns the fixed mutagenesis permalink.
func (m Mutagenesis) AbsoluteURL() string {
	return fmt.Sprintf("/experimentdb/clones/mutagenesis/%d/", m.ID)
}

// ApplyDefaults fills the method when the record is created without one.
func (m *Mutagenesis) ApplyDefaults() {
	if strings.TrimSpace(m.Method) == "" {
		m.Method = DefaultMutagenesisMethod
	}
}

// RefSlots exposes the reference fields of the record for name resolution.
func (m *Mutagenesis) RefSlots() []RefSlot {
	return []RefSlot{
		{Field: "construct", Kind: RefConstruct, Ref: &m.Construct},
		{Field: "template", Kind: RefConstruct, Ref: &m.Template},
		{Field: "protocol", Kind: RefProtocol, Ref: m.Protocol},
		{Field: "sense_primer", Kind: RefPrimer, Ref: m.SensePrimer},
		{Field: "antisense_primer", Kind: RefPrimer, Ref: m.AntisensePrimer},
	}
}

// Protocol describes a procedure used in experiments. A protocol may point at
// a specific revision of a wiki page so a permalink to the exact text used can
// be generated.
type Protocol struct {
	ID        int64   `json:"id"`
	Name      string  `json:"protocol" validate:"required,max=50"`
	Slug      *string `json:"protocol_slug,omitempty" validate:"omitempty,max=25"`
	File      string  `json:"protocol_file,omitempty"`
	Revision  *int    `json:"protocol_revision,omitempty"`
	WikiPage  *string `json:"wiki_page,omitempty" validate:"omitempty,max=75"`
	Comments  *string `json:"comments,omitempty" validate:"omitempty,max=500"`
	Public    bool    `json:"public"`
	Published bool    `json:"published"`
	Inactive  bool    `json:"inactive"`
}

// String renders the protocol name with a trailing space.
func (p Protocol) String() string {
	return fmt.Sprintf("%s ", p.Name)
}

// AbsoluteURL returns the protocol detail permalink, addressed by id.
func (p Protocol) AbsoluteURL() string {
	return routes.MustReverse(routes.Protocol+"-detail", strconv.FormatInt(p.ID, 10))
}

// AssignSlug derives the slug from the current name. Stores call it only when
// a protocol without an id is inserted, so renaming never changes an existing
// slug.
func (p *Protocol) AssignSlug() {
	s := slug.Make(p.Name)
	if len(s) > ProtocolSlugMaxLen {
		s = strings.TrimRight(s[:ProtocolSlugMaxLen], "-")
	}
	p.Slug = &s
}

// SlugValue returns the slug or the empty string.
func (p Protocol) SlugValue() string {
	if p.Slug == nil {
		return ""
	}
	return *p.Slug
}

// WikiPermalink links to the recorded revision of the protocol's wiki page
// under base. It returns "" when no wiki page is recorded.
func (p Protocol) WikiPermalink(base string) string {
	if p.WikiPage == nil || *p.WikiPage == "" {
		return ""
	}
	u := strings.TrimRight(base, "/") + "/index.php?title=" + strings.ReplaceAll(*p.WikiPage, " ", "_")
	if p.Revision != nil {
		u += "&oldid=" + strconv.Itoa(*p.Revision)
	}
	return u
}

// Experiment is the central record of the database. It is keyed by a
// human-assigned identifier such as DB-2008-11-11-A.
type Experiment struct {
	ExperimentID   string  `json:"experiment_id" validate:"required,max=50,slug"`
	Name           string  `json:"experiment" validate:"required,max=100"`
	Assay          *string `json:"assay,omitempty" validate:"omitempty,max=100"`
	ExperimentDate Date    `json:"experiment_date" validate:"required"`
	Comments       *string `json:"comments,omitempty" validate:"omitempty,max=500"`
	Public         bool    `json:"public"`
	Published      bool    `json:"published"`
	SampleStorage  string  `json:"sample_storage" validate:"max=100"`
}

// String renders "name on assay; date". A missing assay renders as "None".
func (e Experiment) String() string {
	assay := "None"
	if e.Assay != nil {
		assay = *e.Assay
	}
	return fmt.Sprintf("%s on %s; %s", e.Name, assay, e.ExperimentDate)
}

// AbsoluteURL returns the experiment detail permalink.
func (e Experiment) AbsoluteURL() string {
	return routes.MustReverse(routes.Experiment+"-detail", e.ExperimentID)
}

// Result holds the outcome files and conclusions of an experiment.
type Result struct {
	ID            int64         `json:"id"`
	Experiment    ExperimentRef `json:"experiment" validate:"required"`
	Conclusions   string        `json:"conclusions" validate:"max=500"`
	File1         string        `json:"file1,omitempty"`
	File2         string        `json:"file2,omitempty"`
	File3         string        `json:"file3,omitempty"`
	RawScan1      string        `json:"rawscan1,omitempty"`
	RawScan2      string        `json:"rawscan2,omitempty"`
	RawScan3      string        `json:"rawscan3,omitempty"`
	RawScan4      string        `json:"rawscan4,omitempty"`
	RawScan5      string        `json:"rawscan5,omitempty"`
	ResultFigure1 string        `json:"result_figure1,omitempty"`
	ResultFigure2 string        `json:"result_figure2,omitempty"`
	Public        bool          `json:"public"`
	Published     bool          `json:"published"`
}

// String renders the owning experiment with a trailing space.
func (r Result) String() string {
	return fmt.Sprintf("%s ", r.Experiment)
}

// AbsoluteURL returns the fixed result permalink.
func (r Result) AbsoluteURL() string {
	return fmt.Sprintf("/result/%d/", r.ID)
}

// Sequencing is a single sequencing read of a construct.
type Sequencing struct {
	ID           int64  `json:"id"`
	CloneName    string `json:"clone_name" validate:"required,max=15"`
	Construct    Ref    `json:"construct" validate:"required"`
	Primer       Ref    `json:"primer" validate:"required"`
	File         string `json:"file,omitempty"`
	Sequence     string `json:"sequence" validate:"required,max=1500"`
	Correct      bool   `json:"correct"`
	Notes        string `json:"notes" validate:"max=250"`
	Date         *Date  `json:"date,omitempty"`
	SampleNumber *int   `json:"sample_number,omitempty"`
	GelNumber    *int   `json:"gel_number,omitempty"`
	LaneNumber   *int   `json:"lane_number,omitempty"`
}

// String renders "construct-clone".
func (s Sequencing) String() string {
	return fmt.Sprintf("%s-%s", s.Construct, s.CloneName)
}

// AbsoluteURL returns the sequencing detail permalink.
func (s Sequencing) AbsoluteURL() string {
	return routes.MustReverse(routes.Sequencing+"-detail", strconv.FormatInt(s.ID, 10))
}

// RefSlots exposes the reference fields of the record for name resolution.
func (s *Sequencing) RefSlots() []RefSlot {
	return []RefSlot{
		{Field: "construct", Kind: RefConstruct, Ref: &s.Construct},
		{Field: "primer", Kind: RefPrimer, Ref: &s.Primer},
	}
}

// AnimalCohort is a named group of animals followed over a date range.
type AnimalCohort struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name" validate:"required,max=50"`
	DateStart *Date   `json:"date_start,omitempty"`
	DateEnd   *Date   `json:"date_end,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

func (a AnimalCohort) String() string {
	return a.Name
}

// AbsoluteURL returns the fixed cohort permalink.
func (a AnimalCohort) AbsoluteURL() string {
	return fmt.Sprintf("/cohort/%d/", a.ID)
}
