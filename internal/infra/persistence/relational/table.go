package relational

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"experimentdb/pkg/domain"
)

// table maps one entity to its relational table.
type table[T any] struct {
	entity domain.EntityType
	name   string
	// key is the primary key column; autoID tables assign it on insert.
	key    string
	autoID bool
	// columns excludes the key; values and the tail of dest follow its order.
	columns []string
	// fixed columns are written on insert only.
	fixed   map[string]bool
	orderBy string

	values func(*T) []any
	dest   func(*T) []any
	keyOf  func(*T) any
	setID  func(*T, int64)
	// prepare runs before insert, e.g. to derive slugs and defaults.
	prepare  func(*T)
	validate func(T) error
	// resolve fills display names of references after reads.
	resolve func(*txn, *T) error
}

func (tb *table[T]) selectList() string {
	return tb.key + ", " + strings.Join(tb.columns, ", ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func get[T any](t *txn, tb *table[T], key any) (T, error) {
	var rec T
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", tb.selectList(), tb.name, tb.key)
	err := t.queryRow(q, key).Scan(tb.dest(&rec)...)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, domain.ErrNotFound{Entity: tb.entity, Key: keyString(key)}
	}
	if err != nil {
		return rec, fmt.Errorf("get %s %s: %w", tb.entity, keyString(key), err)
	}
	if tb.resolve != nil {
		if err := tb.resolve(t, &rec); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

func getWhere[T any](t *txn, tb *table[T], column string, value any) (T, error) {
	var rec T
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY %s LIMIT 1", tb.selectList(), tb.name, column, tb.key)
	err := t.queryRow(q, value).Scan(tb.dest(&rec)...)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, domain.ErrNotFound{Entity: tb.entity, Key: keyString(value)}
	}
	if err != nil {
		return rec, fmt.Errorf("get %s by %s: %w", tb.entity, column, err)
	}
	if tb.resolve != nil {
		if err := tb.resolve(t, &rec); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

func list[T any](t *txn, tb *table[T]) ([]T, error) {
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", tb.selectList(), tb.name, tb.orderBy)
	rows, err := t.query(q)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", tb.entity, err)
	}
	var out []T
	for rows.Next() {
		var rec T
		if err := rows.Scan(tb.dest(&rec)...); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan %s: %w", tb.entity, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate %s: %w", tb.entity, err)
	}
	// Close before resolving: some drivers allow a single open result set
	// per connection.
	_ = rows.Close()
	if tb.resolve != nil {
		for i := range out {
			if err := tb.resolve(t, &out[i]); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func insert[T any](t *txn, tb *table[T], rec T) (T, error) {
	if tb.prepare != nil {
		tb.prepare(&rec)
	}
	if err := tb.validate(rec); err != nil {
		return rec, err
	}
	key := tb.keyOf(&rec)
	cols := tb.columns
	vals := tb.values(&rec)
	explicit := !tb.autoID || key.(int64) != 0
	if explicit {
		cols = append([]string{tb.key}, cols...)
		vals = append([]any{key}, vals...)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", tb.name, strings.Join(cols, ", "), placeholders(len(cols)))
	if !explicit {
		var id int64
		if err := t.queryRow(q+" RETURNING "+tb.key, vals...).Scan(&id); err != nil {
			return rec, t.translate(tb.entity, nil, err)
		}
		tb.setID(&rec, id)
		key = id
	} else {
		if _, err := t.exec(q, vals...); err != nil {
			return rec, t.translate(tb.entity, key, err)
		}
		if tb.autoID {
			if err := t.dialect.AfterExplicitInsert(t.ctx, t.tx, tb.name); err != nil {
				return rec, fmt.Errorf("sync %s id sequence: %w", tb.name, err)
			}
		}
	}
	return get(t, tb, key)
}

func update[T any](t *txn, tb *table[T], rec T) (T, error) {
	if err := tb.validate(rec); err != nil {
		return rec, err
	}
	key := tb.keyOf(&rec)
	vals := tb.values(&rec)
	var sets []string
	var args []any
	for i, col := range tb.columns {
		if tb.fixed[col] {
			continue
		}
		sets = append(sets, col+" = ?")
		args = append(args, vals[i])
	}
	args = append(args, key)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", tb.name, strings.Join(sets, ", "), tb.key)
	res, err := t.exec(q, args...)
	if err != nil {
		return rec, t.translate(tb.entity, key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return rec, domain.ErrNotFound{Entity: tb.entity, Key: keyString(key)}
	}
	return get(t, tb, key)
}

func remove[T any](t *txn, tb *table[T], key any) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", tb.name, tb.key)
	res, err := t.exec(q, key)
	if err != nil {
		return t.translate(tb.entity, key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound{Entity: tb.entity, Key: keyString(key)}
	}
	return nil
}
