package memory

import (
	"fmt"
	"sort"
	"strconv"

	"experimentdb/pkg/domain"
)

func externalKind(op string, kind domain.RefKind) error {
	if !kind.Valid() || kind.Internal() {
		return fmt.Errorf("%s reference: unsupported kind %q", op, kind)
	}
	return nil
}

func (tx *transaction) GetReference(kind domain.RefKind, id int64) (domain.Ref, error) {
	if err := externalKind("get", kind); err != nil {
		return domain.Ref{}, err
	}
	name, err := tx.refName(kind, id)
	if err != nil {
		return domain.Ref{}, err
	}
	return domain.Ref{ID: id, Name: name}, nil
}

func (tx *transaction) ListReferences(kind domain.RefKind) ([]domain.Ref, error) {
	if err := externalKind("list", kind); err != nil {
		return nil, err
	}
	rows := tx.state.refs[kind]
	out := make([]domain.Ref, 0, len(rows))
	for _, id := range sortedKeys(rows) {
		out = append(out, domain.Ref{ID: id, Name: rows[id]})
	}
	return out, nil
}

func (tx *transaction) InsertReference(kind domain.RefKind, ref domain.Ref) (domain.Ref, error) {
	if err := externalKind("insert", kind); err != nil {
		return ref, err
	}
	if ref.Name == "" {
		return ref, &domain.ValidationError{Entity: domain.EntityReference, Field: "name", Reason: "is required"}
	}
	_, taken := tx.state.refs[kind][ref.ID]
	id, err := tx.assignID(domain.EntityReference, kind.Table(), ref.ID, taken)
	if err != nil {
		return ref, err
	}
	ref.ID = id
	tx.state.refs[kind][id] = ref.Name
	return ref, nil
}

func ownerKey(owner any) string {
	if s, ok := owner.(string); ok {
		return s
	}
	return strconv.FormatInt(owner.(int64), 10)
}

func (tx *transaction) ownerExists(rel domain.Relation, owner any) bool {
	var ok bool
	switch rel.Owner {
	case domain.EntityExperiment:
		_, ok = tx.state.experiments[owner.(string)]
	case domain.EntityCloning:
		_, ok = tx.state.clonings[owner.(int64)]
	case domain.EntityMutagenesis:
		_, ok = tx.state.mutageneses[owner.(int64)]
	case domain.EntityProtocol:
		_, ok = tx.state.protocols[owner.(int64)]
	case domain.EntityCohort:
		_, ok = tx.state.cohorts[owner.(int64)]
	}
	return ok
}

func (tx *transaction) Links(rel domain.Relation, owner any) ([]int64, error) {
	key, err := rel.OwnerValue(owner)
	if err != nil {
		return nil, err
	}
	k := ownerKey(key)
	var ids []int64
	for link := range tx.state.links[rel.Table()] {
		if link.owner == k {
			ids = append(ids, link.target)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// AddLink attaches target to owner. Attaching an existing link is a no-op.
func (tx *transaction) AddLink(rel domain.Relation, owner any, target int64) error {
	key, err := rel.OwnerValue(owner)
	if err != nil {
		return err
	}
	k := ownerKey(key)
	if !tx.ownerExists(rel, key) {
		return domain.ErrNotFound{Entity: rel.Owner, Key: k}
	}
	if !tx.refExists(rel.Target, target) {
		return notFound(domain.EntityType(rel.Target), target)
	}
	tx.state.links[rel.Table()][linkKey{owner: k, target: target}] = struct{}{}
	return nil
}

func (tx *transaction) RemoveLink(rel domain.Relation, owner any, target int64) error {
	key, err := rel.OwnerValue(owner)
	if err != nil {
		return err
	}
	lk := linkKey{owner: ownerKey(key), target: target}
	rows := tx.state.links[rel.Table()]
	if _, ok := rows[lk]; !ok {
		return domain.ErrNotFound{Entity: domain.EntityType(rel.Table()), Key: lk.owner + "/" + strconv.FormatInt(target, 10)}
	}
	delete(rows, lk)
	return nil
}
