package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RefKind names a family of records that lab records point at. Most kinds
// are owned by sibling modules (reagents, contacts, projects); only their
// identifiers are stored here.
type RefKind string

// Reference kinds.
const (
	RefConstruct    RefKind = "construct"
	RefPrimer       RefKind = "primer"
	RefCell         RefKind = "cell"
	RefAntibody     RefKind = "antibody"
	RefChemical     RefKind = "chemical"
	RefStrain       RefKind = "strain"
	RefAnimalStrain RefKind = "animal_strain"
	RefProtein      RefKind = "protein"
	RefContact      RefKind = "contact"
	RefReference    RefKind = "reference"
	RefProject      RefKind = "project"
	RefSubProject   RefKind = "subproject"

	// Kinds backed by records of this module.
	RefProtocol   RefKind = "protocol"
	RefSequencing RefKind = "sequencing"
	RefCohort     RefKind = "animal_cohort"
)

var refTables = map[RefKind]string{
	RefConstruct:    "constructs",
	RefPrimer:       "primers",
	RefCell:         "cell_lines",
	RefAntibody:     "antibodies",
	RefChemical:     "chemicals",
	RefStrain:       "strains",
	RefAnimalStrain: "animal_strains",
	RefProtein:      "proteins",
	RefContact:      "contacts",
	RefReference:    "literature_references",
	RefProject:      "projects",
	RefSubProject:   "subprojects",
	RefProtocol:     "protocols",
	RefSequencing:   "sequencing",
	RefCohort:       "animal_cohorts",
}

// ExternalRefKinds lists the kinds whose rows are owned outside this module,
// in schema order.
func ExternalRefKinds() []RefKind {
	return []RefKind{
		RefConstruct, RefPrimer, RefCell, RefAntibody, RefChemical, RefStrain,
		RefAnimalStrain, RefProtein, RefContact, RefReference, RefProject, RefSubProject,
	}
}

// Table returns the relational table holding rows of the kind.
func (k RefKind) Table() string {
	return refTables[k]
}

// Valid reports whether k is a known kind.
func (k RefKind) Valid() bool {
	_, ok := refTables[k]
	return ok
}

// Internal reports whether the kind is backed by one of this module's own
// entities rather than a plain (id, name) reference table.
func (k RefKind) Internal() bool {
	switch k {
	case RefProtocol, RefSequencing, RefCohort:
		return true
	default:
		return false
	}
}

// ParseRefKind converts s into a known kind.
func ParseRefKind(s string) (RefKind, error) {
	k := RefKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown reference kind %q", s)
	}
	return k, nil
}

// Ref points at a row of a reference table. Only ID is persisted; Name is
// filled in by the stores when a record is read.
type Ref struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// String renders the referenced row by name.
func (r Ref) String() string {
	return r.Name
}

// RefTo is shorthand for a Ref with only the identifier set.
func RefTo(id int64) Ref { return Ref{ID: id} }

// RefPtr is shorthand for an optional Ref with only the identifier set.
func RefPtr(id int64) *Ref { return &Ref{ID: id} }

// UnmarshalJSON accepts either a bare identifier or an {"id", "name"} object.
func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		var id int64
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("reference id: %w", err)
		}
		*r = Ref{ID: id}
		return nil
	}
	type plain Ref
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Ref(p)
	return nil
}

// ExperimentRef points at an experiment by its identifier. Name carries the
// experiment's rendering once resolved by a store.
type ExperimentRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

func (r ExperimentRef) String() string {
	if r.Name == "" {
		return r.ID
	}
	return r.Name
}

// UnmarshalJSON accepts either a bare identifier string or an object.
func (r *ExperimentRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = ExperimentRef{ID: id}
		return nil
	}
	type plain ExperimentRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = ExperimentRef(p)
	return nil
}

// RefSlot binds one reference field of a record to its kind. Ref is nil when
// an optional field is unset.
type RefSlot struct {
	Field string
	Kind  RefKind
	Ref   *Ref
}

// RefHolder is implemented by records carrying reference fields.
type RefHolder interface {
	RefSlots() []RefSlot
}
