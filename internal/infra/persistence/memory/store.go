// Package memory provides an in-memory implementation of the domain
// persistence store used for tests and ephemeral environments. It enforces
// the same reference, uniqueness and delete rules as the relational stores.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"experimentdb/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type linkKey struct {
	owner  string
	target int64
}

type memoryState struct {
	refs        map[domain.RefKind]map[int64]string
	lastID      map[string]int64
	clonings    map[int64]domain.Cloning
	mutageneses map[int64]domain.Mutagenesis
	protocols   map[int64]domain.Protocol
	experiments map[string]domain.Experiment
	results     map[int64]domain.Result
	sequencing  map[int64]domain.Sequencing
	cohorts     map[int64]domain.AnimalCohort
	links       map[string]map[linkKey]struct{}
}

func newMemoryState() memoryState {
	s := memoryState{
		refs:        make(map[domain.RefKind]map[int64]string),
		lastID:      make(map[string]int64),
		clonings:    make(map[int64]domain.Cloning),
		mutageneses: make(map[int64]domain.Mutagenesis),
		protocols:   make(map[int64]domain.Protocol),
		experiments: make(map[string]domain.Experiment),
		results:     make(map[int64]domain.Result),
		sequencing:  make(map[int64]domain.Sequencing),
		cohorts:     make(map[int64]domain.AnimalCohort),
		links:       make(map[string]map[linkKey]struct{}),
	}
	for _, kind := range domain.ExternalRefKinds() {
		s.refs[kind] = make(map[int64]string)
	}
	for _, rel := range domain.Relations() {
		s.links[rel.Table()] = make(map[linkKey]struct{})
	}
	return s
}

// clone copies every map. Stored records never share pointer fields with
// callers, so copying the values is enough.
func (s memoryState) clone() memoryState {
	c := memoryState{
		refs:        make(map[domain.RefKind]map[int64]string, len(s.refs)),
		lastID:      cloneMap(s.lastID),
		clonings:    cloneMap(s.clonings),
		mutageneses: cloneMap(s.mutageneses),
		protocols:   cloneMap(s.protocols),
		experiments: cloneMap(s.experiments),
		results:     cloneMap(s.results),
		sequencing:  cloneMap(s.sequencing),
		cohorts:     cloneMap(s.cohorts),
		links:       make(map[string]map[linkKey]struct{}, len(s.links)),
	}
	for k, v := range s.refs {
		c.refs[k] = cloneMap(v)
	}
	for k, v := range s.links {
		c.links[k] = cloneMap(v)
	}
	return c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Store is an in-memory transactional store. Transactions run on a copy of
// the state that replaces it on commit.
type Store struct {
	mu    sync.RWMutex
	state memoryState
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{state: newMemoryState()}
}

// RunInTransaction executes fn against a copy of the state. The copy is kept
// only when fn returns nil.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	draft := s.state.clone()
	if err := fn(&transaction{state: &draft}); err != nil {
		return err
	}
	s.state = draft
	return nil
}

// View executes fn against the committed state.
func (s *Store) View(ctx context.Context, fn func(domain.View) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := s.state.clone()
	return fn(&transaction{state: &snapshot})
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

type transaction struct {
	state *memoryState
}

var _ domain.Transaction = (*transaction)(nil)

func notFound(entity domain.EntityType, id int64) error {
	return domain.ErrNotFound{Entity: entity, Key: strconv.FormatInt(id, 10)}
}

// assignID picks the next id for table, or claims an explicit one.
func (tx *transaction) assignID(entity domain.EntityType, table string, id int64, taken bool) (int64, error) {
	if id == 0 {
		tx.state.lastID[table]++
		return tx.state.lastID[table], nil
	}
	if taken {
		return 0, domain.ErrConflict{Entity: entity, Key: strconv.FormatInt(id, 10), Reason: "already exists"}
	}
	if id > tx.state.lastID[table] {
		tx.state.lastID[table] = id
	}
	return id, nil
}

func (tx *transaction) refExists(kind domain.RefKind, id int64) bool {
	switch kind {
	case domain.RefProtocol:
		_, ok := tx.state.protocols[id]
		return ok
	case domain.RefSequencing:
		_, ok := tx.state.sequencing[id]
		return ok
	case domain.RefCohort:
		_, ok := tx.state.cohorts[id]
		return ok
	default:
		_, ok := tx.state.refs[kind][id]
		return ok
	}
}

func (tx *transaction) refName(kind domain.RefKind, id int64) (string, error) {
	switch kind {
	case domain.RefProtocol:
		if p, ok := tx.state.protocols[id]; ok {
			return p.Name, nil
		}
	case domain.RefSequencing:
		if s, ok := tx.state.sequencing[id]; ok {
			s.Construct.Name = tx.state.refs[domain.RefConstruct][s.Construct.ID]
			return s.String(), nil
		}
	case domain.RefCohort:
		if c, ok := tx.state.cohorts[id]; ok {
			return c.Name, nil
		}
	default:
		if name, ok := tx.state.refs[kind][id]; ok {
			return name, nil
		}
	}
	return "", notFound(domain.EntityType(kind), id)
}

// checkRefs rejects records pointing at missing rows.
func (tx *transaction) checkRefs(entity domain.EntityType, key string, h domain.RefHolder) error {
	for _, slot := range h.RefSlots() {
		if slot.Ref == nil {
			continue
		}
		if !tx.refExists(slot.Kind, slot.Ref.ID) {
			return domain.ErrConflict{Entity: entity, Key: key, Reason: fmt.Sprintf("%s references a missing %s", slot.Field, slot.Kind)}
		}
	}
	return nil
}

func (tx *transaction) resolveRefs(h domain.RefHolder) error {
	for _, slot := range h.RefSlots() {
		if slot.Ref == nil {
			continue
		}
		name, err := tx.refName(slot.Kind, slot.Ref.ID)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", slot.Field, err)
		}
		slot.Ref.Name = name
	}
	return nil
}

func sortedKeys[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// dropLinks removes join rows whose owner or target is the deleted record.
func (tx *transaction) dropLinks(owner domain.EntityType, target domain.RefKind, key string, id int64) {
	for _, rel := range domain.Relations() {
		rows := tx.state.links[rel.Table()]
		for k := range rows {
			if (rel.Owner == owner && k.owner == key) || (rel.Target == target && k.target == id) {
				delete(rows, k)
			}
		}
	}
}
