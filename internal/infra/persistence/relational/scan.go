package relational

import (
	"database/sql"
	"fmt"
	"strconv"

	"experimentdb/pkg/domain"
)

// optionalRef scans a nullable foreign key column into a *domain.Ref.
type optionalRef struct{ dst **domain.Ref }

func (o optionalRef) Scan(src any) error {
	if src == nil {
		*o.dst = nil
		return nil
	}
	id, err := toInt64(src)
	if err != nil {
		return err
	}
	*o.dst = &domain.Ref{ID: id}
	return nil
}

func toInt64(src any) (int64, error) {
	switch v := src.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("scan reference id: unsupported type %T", src)
	}
}

var _ sql.Scanner = optionalRef{}

// refValue is the bind value of an optional reference.
func refValue(r *domain.Ref) any {
	if r == nil {
		return nil
	}
	return r.ID
}

// resolveRefs fills the names of every reference field of h.
func (t *txn) resolveRefs(h domain.RefHolder) error {
	for _, slot := range h.RefSlots() {
		if slot.Ref == nil {
			continue
		}
		name, err := t.refName(slot.Kind, slot.Ref.ID)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", slot.Field, err)
		}
		slot.Ref.Name = name
	}
	return nil
}

func (t *txn) refName(kind domain.RefKind, id int64) (string, error) {
	var (
		name string
		err  error
	)
	switch kind {
	case domain.RefProtocol:
		err = t.queryRow("SELECT protocol FROM protocols WHERE id = ?", id).Scan(&name)
	case domain.RefSequencing:
		var q domain.Sequencing
		err = t.queryRow("SELECT c.name, s.clone_name FROM sequencing s JOIN constructs c ON c.id = s.construct_id WHERE s.id = ?", id).
			Scan(&q.Construct.Name, &q.CloneName)
		name = q.String()
	default:
		err = t.queryRow(fmt.Sprintf("SELECT name FROM %s WHERE id = ?", kind.Table()), id).Scan(&name)
	}
	if err == sql.ErrNoRows {
		return "", domain.ErrNotFound{Entity: domain.EntityType(kind), Key: strconv.FormatInt(id, 10)}
	}
	return name, err
}
