package relational

import (
	"experimentdb/pkg/domain"
)

var clonings = &table[domain.Cloning]{
	entity: domain.EntityCloning,
	name:   "clonings",
	key:    "id",
	autoID: true,
	columns: []string{
		"date_completed", "construct_id", "cloning_type", "vector_id", "vector_cip", "insert_name",
		"primer_5prime_id", "primer_3prime_id", "restriction_enzyme_5prime", "restriction_enzyme_3prime",
		"vector_restriction_enzyme_5prime", "vector_restriction_enzyme_3prime", "destroyed_5prime",
		"destroyed_3prime", "ligation_temperature", "ligation_time", "gel", "notes",
	},
	orderBy: "id",
	values: func(c *domain.Cloning) []any {
		return []any{
			c.DateCompleted, c.Construct.ID, string(c.CloningType), refValue(c.Vector), c.VectorCIP, c.Insert,
			refValue(c.Primer5Prime), refValue(c.Primer3Prime), c.RestrictionEnzyme5Prime, c.RestrictionEnzyme3Prime,
			c.VectorRestrictionEnzyme5Prime, c.VectorRestrictionEnzyme3Prime, c.Destroyed5Prime,
			c.Destroyed3Prime, c.LigationTemperature, c.LigationTime, c.Gel, c.Notes,
		}
	},
	dest: func(c *domain.Cloning) []any {
		return []any{
			&c.ID, &c.DateCompleted, &c.Construct.ID, &c.CloningType, optionalRef{&c.Vector}, &c.VectorCIP, &c.Insert,
			optionalRef{&c.Primer5Prime}, optionalRef{&c.Primer3Prime}, &c.RestrictionEnzyme5Prime, &c.RestrictionEnzyme3Prime,
			&c.VectorRestrictionEnzyme5Prime, &c.VectorRestrictionEnzyme3Prime, &c.Destroyed5Prime,
			&c.Destroyed3Prime, &c.LigationTemperature, &c.LigationTime, &c.Gel, &c.Notes,
		}
	},
	keyOf:    func(c *domain.Cloning) any { return c.ID },
	setID:    func(c *domain.Cloning, id int64) { c.ID = id },
	validate: domain.Cloning.Validate,
	resolve:  func(t *txn, c *domain.Cloning) error { return t.resolveRefs(c) },
}

var mutageneses = &table[domain.Mutagenesis]{
	entity: domain.EntityMutagenesis,
	name:   "mutageneses",
	key:    "id",
	autoID: true,
	columns: []string{
		"construct_id", "mutation", "template_id", "date_completed", "method", "protocol_id",
		"sense_primer_id", "antisense_primer_id", "colonies", "notes",
	},
	orderBy: "id",
	values: func(m *domain.Mutagenesis) []any {
		return []any{
			m.Construct.ID, m.Mutation, m.Template.ID, m.DateCompleted, m.Method, refValue(m.Protocol),
			refValue(m.SensePrimer), refValue(m.AntisensePrimer), m.Colonies, m.Notes,
		}
	},
	dest: func(m *domain.Mutagenesis) []any {
		return []any{
			&m.ID, &m.Construct.ID, &m.Mutation, &m.Template.ID, &m.DateCompleted, &m.Method, optionalRef{&m.Protocol},
			optionalRef{&m.SensePrimer}, optionalRef{&m.AntisensePrimer}, &m.Colonies, &m.Notes,
		}
	},
	keyOf:    func(m *domain.Mutagenesis) any { return m.ID },
	setID:    func(m *domain.Mutagenesis, id int64) { m.ID = id },
	prepare:  func(m *domain.Mutagenesis) { m.ApplyDefaults() },
	validate: domain.Mutagenesis.Validate,
	resolve:  func(t *txn, m *domain.Mutagenesis) error { return t.resolveRefs(m) },
}

var protocols = &table[domain.Protocol]{
	entity: domain.EntityProtocol,
	name:   "protocols",
	key:    "id",
	autoID: true,
	columns: []string{
		"protocol", "protocol_slug", "protocol_file", "protocol_revision", "wiki_page", "comments",
		"public", "published", "inactive",
	},
	fixed:   map[string]bool{"protocol_slug": true},
	orderBy: "protocol DESC, id",
	values: func(p *domain.Protocol) []any {
		return []any{p.Name, p.Slug, p.File, p.Revision, p.WikiPage, p.Comments, p.Public, p.Published, p.Inactive}
	},
	dest: func(p *domain.Protocol) []any {
		return []any{&p.ID, &p.Name, &p.Slug, &p.File, &p.Revision, &p.WikiPage, &p.Comments, &p.Public, &p.Published, &p.Inactive}
	},
	keyOf:    func(p *domain.Protocol) any { return p.ID },
	setID:    func(p *domain.Protocol, id int64) { p.ID = id },
	prepare:  func(p *domain.Protocol) { *p = domain.PrepareProtocolInsert(*p) },
	validate: domain.Protocol.Validate,
}

var experiments = &table[domain.Experiment]{
	entity:  domain.EntityExperiment,
	name:    "experiments",
	key:     "experiment_id",
	columns: []string{"experiment", "assay", "experiment_date", "comments", "public", "published", "sample_storage"},
	orderBy: "experiment_date DESC, experiment_id",
	values: func(e *domain.Experiment) []any {
		return []any{e.Name, e.Assay, e.ExperimentDate, e.Comments, e.Public, e.Published, e.SampleStorage}
	},
	dest: func(e *domain.Experiment) []any {
		return []any{&e.ExperimentID, &e.Name, &e.Assay, &e.ExperimentDate, &e.Comments, &e.Public, &e.Published, &e.SampleStorage}
	},
	keyOf:    func(e *domain.Experiment) any { return e.ExperimentID },
	validate: domain.Experiment.Validate,
}

var results = &table[domain.Result]{
	entity: domain.EntityResult,
	name:   "results",
	key:    "id",
	autoID: true,
	columns: []string{
		"experiment_id", "conclusions", "file1", "file2", "file3", "rawscan1", "rawscan2", "rawscan3",
		"rawscan4", "rawscan5", "result_figure1", "result_figure2", "public", "published",
	},
	orderBy: "id",
	values: func(r *domain.Result) []any {
		return []any{
			r.Experiment.ID, r.Conclusions, r.File1, r.File2, r.File3, r.RawScan1, r.RawScan2, r.RawScan3,
			r.RawScan4, r.RawScan5, r.ResultFigure1, r.ResultFigure2, r.Public, r.Published,
		}
	},
	dest: func(r *domain.Result) []any {
		return []any{
			&r.ID, &r.Experiment.ID, &r.Conclusions, &r.File1, &r.File2, &r.File3, &r.RawScan1, &r.RawScan2, &r.RawScan3,
			&r.RawScan4, &r.RawScan5, &r.ResultFigure1, &r.ResultFigure2, &r.Public, &r.Published,
		}
	},
	keyOf:    func(r *domain.Result) any { return r.ID },
	setID:    func(r *domain.Result, id int64) { r.ID = id },
	validate: domain.Result.Validate,
	resolve: func(t *txn, r *domain.Result) error {
		exp, err := get(t, experiments, r.Experiment.ID)
		if err != nil {
			return err
		}
		r.Experiment.Name = exp.String()
		return nil
	},
}

var sequencings = &table[domain.Sequencing]{
	entity: domain.EntitySequencing,
	name:   "sequencing",
	key:    "id",
	autoID: true,
	columns: []string{
		"clone_name", "construct_id", "primer_id", "file", "sequence", "correct", "notes", "date",
		"sample_number", "gel_number", "lane_number",
	},
	orderBy: "id",
	values: func(s *domain.Sequencing) []any {
		return []any{
			s.CloneName, s.Construct.ID, s.Primer.ID, s.File, s.Sequence, s.Correct, s.Notes, s.Date,
			s.SampleNumber, s.GelNumber, s.LaneNumber,
		}
	},
	dest: func(s *domain.Sequencing) []any {
		return []any{
			&s.ID, &s.CloneName, &s.Construct.ID, &s.Primer.ID, &s.File, &s.Sequence, &s.Correct, &s.Notes, &s.Date,
			&s.SampleNumber, &s.GelNumber, &s.LaneNumber,
		}
	},
	keyOf:    func(s *domain.Sequencing) any { return s.ID },
	setID:    func(s *domain.Sequencing, id int64) { s.ID = id },
	validate: domain.Sequencing.Validate,
	resolve:  func(t *txn, s *domain.Sequencing) error { return t.resolveRefs(s) },
}

var cohorts = &table[domain.AnimalCohort]{
	entity:  domain.EntityCohort,
	name:    "animal_cohorts",
	key:     "id",
	autoID:  true,
	columns: []string{"name", "date_start", "date_end", "notes"},
	orderBy: "id",
	values: func(a *domain.AnimalCohort) []any {
		return []any{a.Name, a.DateStart, a.DateEnd, a.Notes}
	},
	dest: func(a *domain.AnimalCohort) []any {
		return []any{&a.ID, &a.Name, &a.DateStart, &a.DateEnd, &a.Notes}
	},
	keyOf:    func(a *domain.AnimalCohort) any { return a.ID },
	setID:    func(a *domain.AnimalCohort, id int64) { a.ID = id },
	validate: domain.AnimalCohort.Validate,
}
