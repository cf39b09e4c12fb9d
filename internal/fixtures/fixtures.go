// Package fixtures loads canned datasets into a store. Files use the
// model/pk/fields layout of Django fixtures so existing dumps load as is.
package fixtures

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"experimentdb/pkg/domain"
)

//go:embed data/*.json
var embedded embed.FS

// Default is the fixture set the record tests depend on, in load order.
var Default = []string{"test_construct", "test_primer", "test_external", "test_sequencing", "test_protocol"}

// Object is one serialized row.
type Object struct {
	Model  string          `json:"model"`
	PK     json.RawMessage `json:"pk"`
	Fields json.RawMessage `json:"fields"`
}

var referenceModels = map[string]domain.RefKind{
	"reagents.construct":  domain.RefConstruct,
	"reagents.primer":     domain.RefPrimer,
	"reagents.cell":       domain.RefCell,
	"reagents.antibody":   domain.RefAntibody,
	"reagents.chemical":   domain.RefChemical,
	"reagents.strain":     domain.RefStrain,
	"reagents.protein":    domain.RefProtein,
	"mouse.strain":        domain.RefAnimalStrain,
	"external.contact":    domain.RefContact,
	"external.reference":  domain.RefReference,
	"projects.project":    domain.RefProject,
	"projects.subproject": domain.RefSubProject,
}

// Names lists the embedded fixtures.
func Names() []string {
	entries, _ := fs.Glob(embedded, "data/*.json")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(path.Base(e), ".json"))
	}
	sort.Strings(names)
	return names
}

// Read decodes the named embedded fixture.
func Read(name string) ([]Object, error) {
	b, err := embedded.ReadFile("data/" + name + ".json")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("unknown fixture %q", name)
	}
	if err != nil {
		return nil, err
	}
	return Decode(b)
}

// Decode parses a fixture document.
func Decode(b []byte) ([]Object, error) {
	var objs []Object
	if err := json.Unmarshal(b, &objs); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return objs, nil
}

// Load installs the named embedded fixtures in a single transaction and
// returns the number of objects written. Existing rows with the same key are
// overwritten, so loading twice is harmless.
func Load(ctx context.Context, store domain.PersistentStore, names ...string) (int, error) {
	var all []Object
	for _, name := range names {
		objs, err := Read(name)
		if err != nil {
			return 0, err
		}
		all = append(all, objs...)
	}
	return Install(ctx, store, all)
}

// Install writes objs in order in a single transaction.
func Install(ctx context.Context, store domain.PersistentStore, objs []Object) (int, error) {
	err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		for i, obj := range objs {
			if err := install(tx, obj); err != nil {
				return fmt.Errorf("object %d (%s): %w", i, obj.Model, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(objs), nil
}

func install(tx domain.Transaction, obj Object) error {
	if kind, ok := referenceModels[obj.Model]; ok {
		return installReference(tx, kind, obj)
	}
	switch obj.Model {
	case "cloning.cloning":
		return installRecord(tx, obj, domain.EntityCloning,
			func(c *domain.Cloning, id int64) { c.ID = id }, tx.GetCloning, tx.InsertCloning, tx.UpdateCloning)
	case "cloning.mutagenesis":
		return installRecord(tx, obj, domain.EntityMutagenesis,
			func(m *domain.Mutagenesis, id int64) { m.ID = id }, tx.GetMutagenesis, tx.InsertMutagenesis, tx.UpdateMutagenesis)
	case "data.protocol":
		return installRecord(tx, obj, domain.EntityProtocol,
			func(p *domain.Protocol, id int64) { p.ID = id }, tx.GetProtocol, tx.InsertProtocol, tx.UpdateProtocol)
	case "data.result":
		return installRecord(tx, obj, domain.EntityResult,
			func(r *domain.Result, id int64) { r.ID = id }, tx.GetResult, tx.InsertResult, tx.UpdateResult)
	case "data.sequencing":
		return installRecord(tx, obj, domain.EntitySequencing,
			func(s *domain.Sequencing, id int64) { s.ID = id }, tx.GetSequencing, tx.InsertSequencing, tx.UpdateSequencing)
	case "mouse.animalcohort":
		return installRecord(tx, obj, domain.EntityCohort,
			func(a *domain.AnimalCohort, id int64) { a.ID = id }, tx.GetAnimalCohort, tx.InsertAnimalCohort, tx.UpdateAnimalCohort)
	case "data.experiment":
		return installExperiment(tx, obj)
	default:
		return fmt.Errorf("unsupported model %q", obj.Model)
	}
}

func intPK(obj Object) (int64, error) {
	var id int64
	if err := json.Unmarshal(obj.PK, &id); err != nil || id <= 0 {
		return 0, fmt.Errorf("pk must be a positive integer, got %s", obj.PK)
	}
	return id, nil
}

func installReference(tx domain.Transaction, kind domain.RefKind, obj Object) error {
	id, err := intPK(obj)
	if err != nil {
		return err
	}
	var fields struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(obj.Fields, &fields); err != nil {
		return err
	}
	// reference tables are insert only
	if _, err := tx.GetReference(kind, id); err == nil {
		return nil
	} else if !domain.IsNotFound(err) {
		return err
	}
	_, err = tx.InsertReference(kind, domain.Ref{ID: id, Name: fields.Name})
	return err
}

func installRecord[T any](
	tx domain.Transaction,
	obj Object,
	entity domain.EntityType,
	setID func(*T, int64),
	get func(int64) (T, error),
	insert, update func(T) (T, error),
) error {
	id, err := intPK(obj)
	if err != nil {
		return err
	}
	var rec T
	if err := json.Unmarshal(obj.Fields, &rec); err != nil {
		return err
	}
	setID(&rec, id)
	if err := upsert(func() error { _, err := get(id); return err }, insert, update, rec); err != nil {
		return err
	}
	return installLinks(tx, entity, id, obj.Fields)
}

func installExperiment(tx domain.Transaction, obj Object) error {
	var id string
	if err := json.Unmarshal(obj.PK, &id); err != nil || id == "" {
		return fmt.Errorf("pk must be an experiment identifier, got %s", obj.PK)
	}
	var rec domain.Experiment
	if err := json.Unmarshal(obj.Fields, &rec); err != nil {
		return err
	}
	rec.ExperimentID = id
	if err := upsert(func() error { _, err := tx.GetExperiment(id); return err }, tx.InsertExperiment, tx.UpdateExperiment, rec); err != nil {
		return err
	}
	return installLinks(tx, domain.EntityExperiment, id, obj.Fields)
}

func upsert[T any](probe func() error, insert, update func(T) (T, error), rec T) error {
	err := probe()
	switch {
	case err == nil:
		_, err = update(rec)
	case domain.IsNotFound(err):
		_, err = insert(rec)
	}
	return err
}

// installLinks attaches the many-to-many ids listed under relation names.
func installLinks(tx domain.Transaction, entity domain.EntityType, owner any, fields json.RawMessage) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(fields, &raw); err != nil {
		return err
	}
	for _, rel := range domain.RelationsFor(entity) {
		list, ok := raw[rel.Name]
		if !ok {
			continue
		}
		var ids []int64
		if err := json.Unmarshal(list, &ids); err != nil {
			return fmt.Errorf("%s: %w", rel, err)
		}
		for _, id := range ids {
			if err := tx.AddLink(rel, owner, id); err != nil {
				return fmt.Errorf("%s: %w", rel, err)
			}
		}
	}
	return nil
}
