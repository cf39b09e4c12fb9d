// Package core exposes the transactional record operations used by the HTTP
// layer and the command line. Every call runs inside a store transaction and
// is logged, audited and measured.
package core

import (
	"context"
	"fmt"
	"strconv"

	"experimentdb/internal/infra/persistence/memory"
	"experimentdb/pkg/domain"
)

// Service exposes higher-level transactional CRUD operations over the lab
// records.
type Service struct {
	store   PersistentStore
	logger  Logger
	clock   Clock
	audit   AuditRecorder
	metrics MetricsRecorder
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger; nil keeps the silent default.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithAuditRecorder sets the audit sink.
func WithAuditRecorder(a AuditRecorder) Option {
	return func(s *Service) {
		if a != nil {
			s.audit = a
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		logger:  noopLogger{},
		clock:   systemClock{},
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store.
func NewInMemoryService(opts ...Option) *Service {
	return NewService(memory.NewStore(), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// mutate runs fn in a transaction and reports the outcome to the logger,
// metrics and audit sinks. key renders the affected record's identifier.
func mutate[T any](ctx context.Context, s *Service, op string, entity EntityType, action Action, fn func(Transaction) (T, error), key func(T) string) (T, error) {
	start := s.clock.Now()
	var out T
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		out, err = fn(tx)
		return err
	})
	duration := s.clock.Now().Sub(start)
	entry := AuditEntry{
		Operation: op,
		Entity:    entity,
		Action:    action,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: start,
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
		s.logger.Error("operation failed", "operation", op, "err", err)
	} else {
		entry.EntityID = key(out)
		s.logger.Debug("operation succeeded", "operation", op, "id", entry.EntityID, "duration", duration)
	}
	s.metrics.Observe(ctx, op, err == nil, duration)
	s.audit.Record(ctx, entry)
	return out, err
}

// read runs fn against a read-only view. Misses are not logged as failures.
func read[T any](ctx context.Context, s *Service, op string, fn func(View) (T, error)) (T, error) {
	start := s.clock.Now()
	var out T
	err := s.store.View(ctx, func(v View) error {
		var err error
		out, err = fn(v)
		return err
	})
	if err != nil && !domain.IsNotFound(err) {
		s.logger.Error("operation failed", "operation", op, "err", err)
	}
	s.metrics.Observe(ctx, op, err == nil, s.clock.Now().Sub(start))
	return out, err
}

func idKey(id int64) string { return strconv.FormatInt(id, 10) }

func saveAction(id int64) Action {
	if id == 0 {
		return ActionCreate
	}
	return ActionUpdate
}

// none is the result of mutations that return no record.
type none struct{}

// Cloning

// SaveCloning inserts c when it has no ID and updates it otherwise.
func (s *Service) SaveCloning(ctx context.Context, c domain.Cloning) (domain.Cloning, error) {
	return mutate(ctx, s, "save_cloning", EntityCloning, saveAction(c.ID), func(tx Transaction) (domain.Cloning, error) {
		if c.ID == 0 {
			return tx.InsertCloning(c)
		}
		return tx.UpdateCloning(c)
	}, func(c domain.Cloning) string { return idKey(c.ID) })
}

// GetCloning fetches a cloning by ID.
func (s *Service) GetCloning(ctx context.Context, id int64) (domain.Cloning, error) {
	return read(ctx, s, "get_cloning", func(v View) (domain.Cloning, error) { return v.GetCloning(id) })
}

// ListClonings returns every cloning by ID.
func (s *Service) ListClonings(ctx context.Context) ([]domain.Cloning, error) {
	return read(ctx, s, "list_clonings", View.ListClonings)
}

// DeleteCloning removes a cloning and its join rows.
func (s *Service) DeleteCloning(ctx context.Context, id int64) error {
	_, err := mutate(ctx, s, "delete_cloning", EntityCloning, ActionDelete, func(tx Transaction) (none, error) {
		return none{}, tx.DeleteCloning(id)
	}, func(none) string { return idKey(id) })
	return err
}

// Mutagenesis

// SaveMutagenesis inserts m when it has no ID and updates it otherwise. New
// records without a method get the default method.
func (s *Service) SaveMutagenesis(ctx context.Context, m domain.Mutagenesis) (domain.Mutagenesis, error) {
	return mutate(ctx, s, "save_mutagenesis", EntityMutagenesis, saveAction(m.ID), func(tx Transaction) (domain.Mutagenesis, error) {
		if m.ID == 0 {
			return tx.InsertMutagenesis(m)
		}
		return tx.UpdateMutagenesis(m)
	}, func(m domain.Mutagenesis) string { return idKey(m.ID) })
}

func (s *Service) GetMutagenesis(ctx context.Context, id int64) (domain.Mutagenesis, error) {
	return read(ctx, s, "get_mutagenesis", func(v View) (domain.Mutagenesis, error) { return v.GetMutagenesis(id) })
}

func (s *Service) ListMutageneses(ctx context.Context) ([]domain.Mutagenesis, error) {
	return read(ctx, s, "list_mutageneses", View.ListMutageneses)
}

func (s *Service) DeleteMutagenesis(ctx context.Context, id int64) error {
	_, err := mutate(ctx, s, "delete_mutagenesis", EntityMutagenesis, ActionDelete, func(tx Transaction) (none, error) {
		return none{}, tx.DeleteMutagenesis(id)
	}, func(none) string { return idKey(id) })
	return err
}

// Protocol

// SaveProtocol inserts p when it has no ID, deriving its slug from the name.
// Updates keep the stored slug.
func (s *Service) SaveProtocol(ctx context.Context, p domain.Protocol) (domain.Protocol, error) {
	return mutate(ctx, s, "save_protocol", EntityProtocol, saveAction(p.ID), func(tx Transaction) (domain.Protocol, error) {
		if p.ID == 0 {
			return tx.InsertProtocol(p)
		}
		return tx.UpdateProtocol(p)
	}, func(p domain.Protocol) string { return idKey(p.ID) })
}

func (s *Service) GetProtocol(ctx context.Context, id int64) (domain.Protocol, error) {
	return read(ctx, s, "get_protocol", func(v View) (domain.Protocol, error) { return v.GetProtocol(id) })
}

// GetProtocolBySlug fetches a protocol by its slug.
func (s *Service) GetProtocolBySlug(ctx context.Context, slug string) (domain.Protocol, error) {
	return read(ctx, s, "get_protocol", func(v View) (domain.Protocol, error) { return v.GetProtocolBySlug(slug) })
}

// ResolveProtocol looks a protocol up by numeric id first and by slug
// otherwise.
func (s *Service) ResolveProtocol(ctx context.Context, param string) (domain.Protocol, error) {
	return read(ctx, s, "get_protocol", func(v View) (domain.Protocol, error) {
		if id, err := strconv.ParseInt(param, 10, 64); err == nil && id > 0 {
			p, err := v.GetProtocol(id)
			if err == nil || !domain.IsNotFound(err) {
				return p, err
			}
		}
		return v.GetProtocolBySlug(param)
	})
}

// ListProtocols returns protocols by name, descending.
func (s *Service) ListProtocols(ctx context.Context) ([]domain.Protocol, error) {
	return read(ctx, s, "list_protocols", View.ListProtocols)
}

func (s *Service) DeleteProtocol(ctx context.Context, id int64) error {
	_, err := mutate(ctx, s, "delete_protocol", EntityProtocol, ActionDelete, func(tx Transaction) (none, error) {
		return none{}, tx.DeleteProtocol(id)
	}, func(none) string { return idKey(id) })
	return err
}

// Experiment

// CreateExperiment inserts a new experiment; a taken identifier is a
// conflict.
func (s *Service) CreateExperiment(ctx context.Context, e domain.Experiment) (domain.Experiment, error) {
	return mutate(ctx, s, "create_experiment", EntityExperiment, ActionCreate, func(tx Transaction) (domain.Experiment, error) {
		return tx.InsertExperiment(e)
	}, func(e domain.Experiment) string { return e.ExperimentID })
}

// SaveExperiment updates the experiment carrying e's identifier, inserting
// it when absent.
func (s *Service) SaveExperiment(ctx context.Context, e domain.Experiment) (domain.Experiment, error) {
	return mutate(ctx, s, "save_experiment", EntityExperiment, ActionUpdate, func(tx Transaction) (domain.Experiment, error) {
		if _, err := tx.GetExperiment(e.ExperimentID); err != nil {
			if domain.IsNotFound(err) {
				return tx.InsertExperiment(e)
			}
			return e, err
		}
		return tx.UpdateExperiment(e)
	}, func(e domain.Experiment) string { return e.ExperimentID })
}

func (s *Service) GetExperiment(ctx context.Context, id string) (domain.Experiment, error) {
	return read(ctx, s, "get_experiment", func(v View) (domain.Experiment, error) { return v.GetExperiment(id) })
}

// ListExperiments returns experiments by date, most recent first.
func (s *Service) ListExperiments(ctx context.Context) ([]domain.Experiment, error) {
	return read(ctx, s, "list_experiments", View.ListExperiments)
}

// DeleteExperiment removes an experiment. Experiments that still own results
// cannot be deleted.
func (s *Service) DeleteExperiment(ctx context.Context, id string) error {
	_, err := mutate(ctx, s, "delete_experiment", EntityExperiment, ActionDelete, func(tx Transaction) (none, error) {
		return none{}, tx.DeleteExperiment(id)
	}, func(none) string { return id })
	return err
}

// Result

func (s *Service) SaveResult(ctx context.Context, r domain.Result) (domain.Result, error) {
	return mutate(ctx, s, "save_result", EntityResult, saveAction(r.ID), func(tx Transaction) (domain.Result, error) {
		if r.ID == 0 {
			return tx.InsertResult(r)
		}
		return tx.UpdateResult(r)
	}, func(r domain.Result) string { return idKey(r.ID) })
}

func (s *Service) GetResult(ctx context.Context, id int64) (domain.Result, error) {
	return read(ctx, s, "get_result", func(v View) (domain.Result, error) { return v.GetResult(id) })
}

func (s *Service) ListResults(ctx context.Context) ([]domain.Result, error) {
	return read(ctx, s, "list_results", View.ListResults)
}

func (s *Service) DeleteResult(ctx context.Context, id int64) error {
	_, err := mutate(ctx, s, "delete_result", EntityResult, ActionDelete, func(tx Transaction) (none, error) {
		return none{}, tx.DeleteResult(id)
	}, func(none) string { return idKey(id) })
	return err
}

// Sequencing

func (s *Service) SaveSequencing(ctx context.Context, q domain.Sequencing) (domain.Sequencing, error) {
	return mutate(ctx, s, "save_sequencing", EntitySequencing, saveAction(q.ID), func(tx Transaction) (domain.Sequencing, error) {
		if q.ID == 0 {
			return tx.InsertSequencing(q)
		}
		return tx.UpdateSequencing(q)
	}, func(q domain.Sequencing) string { return idKey(q.ID) })
}

func (s *Service) GetSequencing(ctx context.Context, id int64) (domain.Sequencing, error) {
	return read(ctx, s, "get_sequencing", func(v View) (domain.Sequencing, error) { return v.GetSequencing(id) })
}

func (s *Service) ListSequencings(ctx context.Context) ([]domain.Sequencing, error) {
	return read(ctx, s, "list_sequencing", View.ListSequencings)
}

func (s *Service) DeleteSequencing(ctx context.Context, id int64) error {
	_, err := mutate(ctx, s, "delete_sequencing", EntitySequencing, ActionDelete, func(tx Transaction) (none, error) {
		return none{}, tx.DeleteSequencing(id)
	}, func(none) string { return idKey(id) })
	return err
}

// Animal cohort

func (s *Service) SaveAnimalCohort(ctx context.Context, a domain.AnimalCohort) (domain.AnimalCohort, error) {
	return mutate(ctx, s, "save_animal_cohort", EntityCohort, saveAction(a.ID), func(tx Transaction) (domain.AnimalCohort, error) {
		if a.ID == 0 {
			return tx.InsertAnimalCohort(a)
		}
		return tx.UpdateAnimalCohort(a)
	}, func(a domain.AnimalCohort) string { return idKey(a.ID) })
}

func (s *Service) GetAnimalCohort(ctx context.Context, id int64) (domain.AnimalCohort, error) {
	return read(ctx, s, "get_animal_cohort", func(v View) (domain.AnimalCohort, error) { return v.GetAnimalCohort(id) })
}

func (s *Service) ListAnimalCohorts(ctx context.Context) ([]domain.AnimalCohort, error) {
	return read(ctx, s, "list_animal_cohorts", View.ListAnimalCohorts)
}

func (s *Service) DeleteAnimalCohort(ctx context.Context, id int64) error {
	_, err := mutate(ctx, s, "delete_animal_cohort", EntityCohort, ActionDelete, func(tx Transaction) (none, error) {
		return none{}, tx.DeleteAnimalCohort(id)
	}, func(none) string { return idKey(id) })
	return err
}

// References

// CreateReference stores a row of an external reference table.
func (s *Service) CreateReference(ctx context.Context, kind domain.RefKind, ref domain.Ref) (domain.Ref, error) {
	return mutate(ctx, s, "create_"+string(kind), EntityReference, ActionCreate, func(tx Transaction) (domain.Ref, error) {
		return tx.InsertReference(kind, ref)
	}, func(r domain.Ref) string { return idKey(r.ID) })
}

func (s *Service) GetReference(ctx context.Context, kind domain.RefKind, id int64) (domain.Ref, error) {
	return read(ctx, s, "get_"+string(kind), func(v View) (domain.Ref, error) { return v.GetReference(kind, id) })
}

func (s *Service) ListReferences(ctx context.Context, kind domain.RefKind) ([]domain.Ref, error) {
	return read(ctx, s, "list_"+string(kind), func(v View) ([]domain.Ref, error) { return v.ListReferences(kind) })
}

// Links

func linkOp(prefix string, rel domain.Relation) string {
	return fmt.Sprintf("%s_%s_%s", prefix, rel.Owner, rel.Name)
}

// Link attaches target to owner through rel. Repeating a link is a no-op.
func (s *Service) Link(ctx context.Context, rel domain.Relation, owner any, target int64) error {
	_, err := mutate(ctx, s, linkOp("link", rel), rel.Owner, ActionLink, func(tx Transaction) (none, error) {
		return none{}, tx.AddLink(rel, owner, target)
	}, func(none) string { return fmt.Sprint(owner) })
	return err
}

// Unlink detaches target from owner.
func (s *Service) Unlink(ctx context.Context, rel domain.Relation, owner any, target int64) error {
	_, err := mutate(ctx, s, linkOp("unlink", rel), rel.Owner, ActionUnlink, func(tx Transaction) (none, error) {
		return none{}, tx.RemoveLink(rel, owner, target)
	}, func(none) string { return fmt.Sprint(owner) })
	return err
}

// LinkedRefs returns the records attached to owner through rel with their
// display names, ordered by id.
func (s *Service) LinkedRefs(ctx context.Context, rel domain.Relation, owner any) ([]domain.Ref, error) {
	return read(ctx, s, linkOp("links", rel), func(v View) ([]domain.Ref, error) {
		ids, err := v.Links(rel, owner)
		if err != nil {
			return nil, err
		}
		refs := make([]domain.Ref, 0, len(ids))
		for _, id := range ids {
			name, err := displayName(v, rel.Target, id)
			if err != nil {
				return nil, err
			}
			refs = append(refs, domain.Ref{ID: id, Name: name})
		}
		return refs, nil
	})
}

func displayName(v View, kind domain.RefKind, id int64) (string, error) {
	switch kind {
	case domain.RefProtocol:
		p, err := v.GetProtocol(id)
		return p.Name, err
	case domain.RefSequencing:
		q, err := v.GetSequencing(id)
		return q.String(), err
	case domain.RefCohort:
		a, err := v.GetAnimalCohort(id)
		return a.Name, err
	default:
		r, err := v.GetReference(kind, id)
		return r.Name, err
	}
}
