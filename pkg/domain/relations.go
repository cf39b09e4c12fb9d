package domain

import (
	"fmt"
	"sort"
)

// Relation describes a many-to-many association between an owner record and
// rows of a reference kind. Each relation is stored in its own join table.
type Relation struct {
	Owner  EntityType
	Name   string
	Target RefKind
}

// Table returns the join table name, e.g. cloning_sequencing.
func (r Relation) Table() string {
	return string(r.Owner) + "_" + r.Name
}

func (r Relation) String() string {
	return string(r.Owner) + "." + r.Name
}

// OwnerValue normalizes an owner key to the type stored in the join table:
// string identifiers for experiments and int64 ids otherwise.
func (r Relation) OwnerValue(owner any) (any, error) {
	if r.Owner == EntityExperiment {
		s, ok := owner.(string)
		if !ok || s == "" {
			return nil, fmt.Errorf("%s: owner key must be an experiment identifier, got %T", r, owner)
		}
		return s, nil
	}
	switch v := owner.(type) {
	case int64:
		if v > 0 {
			return v, nil
		}
	case int:
		if v > 0 {
			return int64(v), nil
		}
	}
	return nil, fmt.Errorf("%s: owner key must be a positive id, got %v", r, owner)
}

var relations = []Relation{
	{Owner: EntityCloning, Name: "sequencing", Target: RefSequencing},
	{Owner: EntityCloning, Name: "researcher", Target: RefContact},
	{Owner: EntityMutagenesis, Name: "sequencing", Target: RefSequencing},
	{Owner: EntityMutagenesis, Name: "researcher", Target: RefContact},
	{Owner: EntityProtocol, Name: "reference", Target: RefReference},
	{Owner: EntityExperiment, Name: "project", Target: RefProject},
	{Owner: EntityExperiment, Name: "subproject", Target: RefSubProject},
	{Owner: EntityExperiment, Name: "protocol", Target: RefProtocol},
	{Owner: EntityExperiment, Name: "cellline", Target: RefCell},
	{Owner: EntityExperiment, Name: "antibodies", Target: RefAntibody},
	{Owner: EntityExperiment, Name: "chemicals", Target: RefChemical},
	{Owner: EntityExperiment, Name: "constructs", Target: RefConstruct},
	{Owner: EntityExperiment, Name: "sirna", Target: RefPrimer},
	{Owner: EntityExperiment, Name: "strain", Target: RefStrain},
	{Owner: EntityExperiment, Name: "animal_model", Target: RefAnimalStrain},
	{Owner: EntityExperiment, Name: "animal_cohort", Target: RefCohort},
	{Owner: EntityExperiment, Name: "researcher", Target: RefContact},
	{Owner: EntityExperiment, Name: "protein", Target: RefProtein},
	{Owner: EntityCohort, Name: "animal_model", Target: RefAnimalStrain},
}

// Relations returns every many-to-many relation.
func Relations() []Relation {
	out := make([]Relation, len(relations))
	copy(out, relations)
	return out
}

// RelationsFor returns the relations owned by the entity, sorted by name.
func RelationsFor(owner EntityType) []Relation {
	var out []Relation
	for _, r := range relations {
		if r.Owner == owner {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LookupRelation finds the named relation of owner.
func LookupRelation(owner EntityType, name string) (Relation, bool) {
	for _, r := range relations {
		if r.Owner == owner && r.Name == name {
			return r, true
		}
	}
	return Relation{}, false
}
