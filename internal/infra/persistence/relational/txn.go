package relational

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"experimentdb/pkg/domain"
)

var _ domain.Transaction = (*txn)(nil)

func (t *txn) GetCloning(id int64) (domain.Cloning, error) { return get(t, clonings, id) }

func (t *txn) ListClonings() ([]domain.Cloning, error) { return list(t, clonings) }

func (t *txn) InsertCloning(c domain.Cloning) (domain.Cloning, error) { return insert(t, clonings, c) }

func (t *txn) UpdateCloning(c domain.Cloning) (domain.Cloning, error) { return update(t, clonings, c) }

func (t *txn) DeleteCloning(id int64) error { return remove(t, clonings, id) }

func (t *txn) GetMutagenesis(id int64) (domain.Mutagenesis, error) { return get(t, mutageneses, id) }

func (t *txn) ListMutageneses() ([]domain.Mutagenesis, error) { return list(t, mutageneses) }

func (t *txn) InsertMutagenesis(m domain.Mutagenesis) (domain.Mutagenesis, error) {
	return insert(t, mutageneses, m)
}

func (t *txn) UpdateMutagenesis(m domain.Mutagenesis) (domain.Mutagenesis, error) {
	return update(t, mutageneses, m)
}

func (t *txn) DeleteMutagenesis(id int64) error { return remove(t, mutageneses, id) }

func (t *txn) GetProtocol(id int64) (domain.Protocol, error) { return get(t, protocols, id) }

func (t *txn) GetProtocolBySlug(slug string) (domain.Protocol, error) {
	return getWhere(t, protocols, "protocol_slug", slug)
}

func (t *txn) ListProtocols() ([]domain.Protocol, error) { return list(t, protocols) }

func (t *txn) InsertProtocol(p domain.Protocol) (domain.Protocol, error) { return insert(t, protocols, p) }

// UpdateProtocol never rewrites protocol_slug; the returned record carries
// the stored slug.
func (t *txn) UpdateProtocol(p domain.Protocol) (domain.Protocol, error) {
	return update(t, protocols, p)
}

func (t *txn) DeleteProtocol(id int64) error { return remove(t, protocols, id) }

func (t *txn) GetExperiment(id string) (domain.Experiment, error) { return get(t, experiments, id) }

func (t *txn) ListExperiments() ([]domain.Experiment, error) { return list(t, experiments) }

func (t *txn) InsertExperiment(e domain.Experiment) (domain.Experiment, error) {
	return insert(t, experiments, e)
}

func (t *txn) UpdateExperiment(e domain.Experiment) (domain.Experiment, error) {
	return update(t, experiments, e)
}

func (t *txn) DeleteExperiment(id string) error { return remove(t, experiments, id) }

func (t *txn) GetResult(id int64) (domain.Result, error) { return get(t, results, id) }

func (t *txn) ListResults() ([]domain.Result, error) { return list(t, results) }

func (t *txn) InsertResult(r domain.Result) (domain.Result, error) { return insert(t, results, r) }

func (t *txn) UpdateResult(r domain.Result) (domain.Result, error) { return update(t, results, r) }

func (t *txn) DeleteResult(id int64) error { return remove(t, results, id) }

func (t *txn) GetSequencing(id int64) (domain.Sequencing, error) { return get(t, sequencings, id) }

func (t *txn) ListSequencings() ([]domain.Sequencing, error) { return list(t, sequencings) }

func (t *txn) InsertSequencing(s domain.Sequencing) (domain.Sequencing, error) {
	return insert(t, sequencings, s)
}

func (t *txn) UpdateSequencing(s domain.Sequencing) (domain.Sequencing, error) {
	return update(t, sequencings, s)
}

func (t *txn) DeleteSequencing(id int64) error { return remove(t, sequencings, id) }

func (t *txn) GetAnimalCohort(id int64) (domain.AnimalCohort, error) { return get(t, cohorts, id) }

func (t *txn) ListAnimalCohorts() ([]domain.AnimalCohort, error) { return list(t, cohorts) }

func (t *txn) InsertAnimalCohort(a domain.AnimalCohort) (domain.AnimalCohort, error) {
	return insert(t, cohorts, a)
}

func (t *txn) UpdateAnimalCohort(a domain.AnimalCohort) (domain.AnimalCohort, error) {
	return update(t, cohorts, a)
}

func (t *txn) DeleteAnimalCohort(id int64) error { return remove(t, cohorts, id) }

// GetReference reads a row of an external reference table.
func (t *txn) GetReference(kind domain.RefKind, id int64) (domain.Ref, error) {
	if !kind.Valid() || kind.Internal() {
		return domain.Ref{}, fmt.Errorf("get reference: unsupported kind %q", kind)
	}
	name, err := t.refName(kind, id)
	if err != nil {
		return domain.Ref{}, err
	}
	return domain.Ref{ID: id, Name: name}, nil
}

// ListReferences lists an external reference table by id.
func (t *txn) ListReferences(kind domain.RefKind) ([]domain.Ref, error) {
	if !kind.Valid() || kind.Internal() {
		return nil, fmt.Errorf("list references: unsupported kind %q", kind)
	}
	rows, err := t.query(fmt.Sprintf("SELECT id, name FROM %s ORDER BY id", kind.Table()))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Ref
	for rows.Next() {
		var r domain.Ref
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertReference stores a row of an external reference table. A zero ID
// is assigned by the database.
func (t *txn) InsertReference(kind domain.RefKind, ref domain.Ref) (domain.Ref, error) {
	if !kind.Valid() || kind.Internal() {
		return ref, fmt.Errorf("insert reference: unsupported kind %q", kind)
	}
	if ref.Name == "" {
		return ref, &domain.ValidationError{Entity: domain.EntityReference, Field: "name", Reason: "is required"}
	}
	if ref.ID == 0 {
		err := t.queryRow(fmt.Sprintf("INSERT INTO %s (name) VALUES (?) RETURNING id", kind.Table()), ref.Name).Scan(&ref.ID)
		return ref, t.translate(domain.EntityReference, nil, err)
	}
	if _, err := t.exec(fmt.Sprintf("INSERT INTO %s (id, name) VALUES (?, ?)", kind.Table()), ref.ID, ref.Name); err != nil {
		return ref, t.translate(domain.EntityReference, ref.ID, err)
	}
	if err := t.dialect.AfterExplicitInsert(t.ctx, t.tx, kind.Table()); err != nil {
		return ref, fmt.Errorf("sync %s id sequence: %w", kind.Table(), err)
	}
	return ref, nil
}

// ownerTable returns the table and key column of a relation's owner.
func ownerTable(owner domain.EntityType) (string, string) {
	switch owner {
	case domain.EntityCloning:
		return clonings.name, clonings.key
	case domain.EntityMutagenesis:
		return mutageneses.name, mutageneses.key
	case domain.EntityProtocol:
		return protocols.name, protocols.key
	case domain.EntityExperiment:
		return experiments.name, experiments.key
	case domain.EntityCohort:
		return cohorts.name, cohorts.key
	default:
		return "", ""
	}
}

func (t *txn) exists(table, column string, value any) (bool, error) {
	var one int
	err := t.queryRow(fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ?", table, column), value).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// checkLinkEnds reports ErrNotFound when either side of a link is missing.
func (t *txn) checkLinkEnds(rel domain.Relation, owner any, target int64) error {
	table, column := ownerTable(rel.Owner)
	ok, err := t.exists(table, column, owner)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound{Entity: rel.Owner, Key: keyString(owner)}
	}
	ok, err = t.exists(rel.Target.Table(), "id", target)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntityType(rel.Target), Key: strconv.FormatInt(target, 10)}
	}
	return nil
}

// Links lists target ids attached to owner, ascending.
func (t *txn) Links(rel domain.Relation, owner any) ([]int64, error) {
	key, err := rel.OwnerValue(owner)
	if err != nil {
		return nil, err
	}
	rows, err := t.query(fmt.Sprintf("SELECT target_id FROM %s WHERE owner_id = ? ORDER BY target_id", rel.Table()), key)
	if err != nil {
		return nil, fmt.Errorf("links %s: %w", rel, err)
	}
	defer func() { _ = rows.Close() }()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s: %w", rel, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddLink attaches target to owner. Attaching an existing link is a no-op.
func (t *txn) AddLink(rel domain.Relation, owner any, target int64) error {
	key, err := rel.OwnerValue(owner)
	if err != nil {
		return err
	}
	if err := t.checkLinkEnds(rel, key, target); err != nil {
		return err
	}
	q := fmt.Sprintf("INSERT INTO %s (owner_id, target_id) VALUES (?, ?) ON CONFLICT DO NOTHING", rel.Table())
	if _, err := t.exec(q, key, target); err != nil {
		return t.translate(rel.Owner, key, err)
	}
	return nil
}

// RemoveLink detaches target from owner.
func (t *txn) RemoveLink(rel domain.Relation, owner any, target int64) error {
	key, err := rel.OwnerValue(owner)
	if err != nil {
		return err
	}
	res, err := t.exec(fmt.Sprintf("DELETE FROM %s WHERE owner_id = ? AND target_id = ?", rel.Table()), key, target)
	if err != nil {
		return t.translate(rel.Owner, key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound{Entity: domain.EntityType(rel.Table()), Key: keyString(key) + "/" + strconv.FormatInt(target, 10)}
	}
	return nil
}
