package domain

import "context"

// View provides read access to persisted records. Reference fields of
// returned records carry resolved names.
type View interface {
	GetCloning(id int64) (Cloning, error)
	ListClonings() ([]Cloning, error)
	GetMutagenesis(id int64) (Mutagenesis, error)
	ListMutageneses() ([]Mutagenesis, error)
	GetProtocol(id int64) (Protocol, error)
	GetProtocolBySlug(slug string) (Protocol, error)
	ListProtocols() ([]Protocol, error)
	GetExperiment(id string) (Experiment, error)
	ListExperiments() ([]Experiment, error)
	GetResult(id int64) (Result, error)
	ListResults() ([]Result, error)
	GetSequencing(id int64) (Sequencing, error)
	ListSequencings() ([]Sequencing, error)
	GetAnimalCohort(id int64) (AnimalCohort, error)
	ListAnimalCohorts() ([]AnimalCohort, error)

	GetReference(kind RefKind, id int64) (Ref, error)
	ListReferences(kind RefKind) ([]Ref, error)
	// Links returns the target ids attached to owner through rel, ascending.
	Links(rel Relation, owner any) ([]int64, error)
}

// Transaction exposes the write operations a persistence implementation must
// support within an atomic scope. Inserts of auto-id records ignore a zero ID
// and return the record with its assigned ID; a non-zero ID is kept.
type Transaction interface {
	View

	// InsertReference stores a row of an external reference table.
	InsertReference(kind RefKind, ref Ref) (Ref, error)

	InsertCloning(Cloning) (Cloning, error)
	UpdateCloning(Cloning) (Cloning, error)
	DeleteCloning(id int64) error
	InsertMutagenesis(Mutagenesis) (Mutagenesis, error)
	UpdateMutagenesis(Mutagenesis) (Mutagenesis, error)
	DeleteMutagenesis(id int64) error
	// InsertProtocol assigns the slug from the name before storing.
	InsertProtocol(Protocol) (Protocol, error)
	// UpdateProtocol keeps the stored slug regardless of the given one.
	UpdateProtocol(Protocol) (Protocol, error)
	DeleteProtocol(id int64) error
	InsertExperiment(Experiment) (Experiment, error)
	UpdateExperiment(Experiment) (Experiment, error)
	DeleteExperiment(id string) error
	InsertResult(Result) (Result, error)
	UpdateResult(Result) (Result, error)
	DeleteResult(id int64) error
	InsertSequencing(Sequencing) (Sequencing, error)
	UpdateSequencing(Sequencing) (Sequencing, error)
	DeleteSequencing(id int64) error
	InsertAnimalCohort(AnimalCohort) (AnimalCohort, error)
	UpdateAnimalCohort(AnimalCohort) (AnimalCohort, error)
	DeleteAnimalCohort(id int64) error

	AddLink(rel Relation, owner any, target int64) error
	RemoveLink(rel Relation, owner any, target int64) error
}

// PersistentStore is the abstraction over durable backends used by the
// service layer.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) error
	View(ctx context.Context, fn func(View) error) error
	Close() error
}

// PrepareProtocolInsert applies the insert-time derivations of a protocol.
// The slug is derived only for records without an id; an explicit id (a
// fixture or a restore) keeps whatever slug it carries.
func PrepareProtocolInsert(p Protocol) Protocol {
	if p.ID == 0 {
		p.AssignSlug()
	}
	return p
}

// PrepareMutagenesisInsert applies the insert-time defaults of a mutagenesis
// record.
func PrepareMutagenesisInsert(m Mutagenesis) Mutagenesis {
	m.ApplyDefaults()
	return m
}
