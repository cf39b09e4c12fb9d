package memory

import (
	"sort"
	"strconv"

	"experimentdb/pkg/domain"
)

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneCloning(c domain.Cloning) domain.Cloning {
	c.DateCompleted = clonePtr(c.DateCompleted)
	c.Vector = clonePtr(c.Vector)
	c.Insert = clonePtr(c.Insert)
	c.Primer5Prime = clonePtr(c.Primer5Prime)
	c.Primer3Prime = clonePtr(c.Primer3Prime)
	c.RestrictionEnzyme5Prime = clonePtr(c.RestrictionEnzyme5Prime)
	c.RestrictionEnzyme3Prime = clonePtr(c.RestrictionEnzyme3Prime)
	c.VectorRestrictionEnzyme5Prime = clonePtr(c.VectorRestrictionEnzyme5Prime)
	c.VectorRestrictionEnzyme3Prime = clonePtr(c.VectorRestrictionEnzyme3Prime)
	c.LigationTemperature = clonePtr(c.LigationTemperature)
	c.LigationTime = clonePtr(c.LigationTime)
	c.Notes = clonePtr(c.Notes)
	return c
}

func cloneMutagenesis(m domain.Mutagenesis) domain.Mutagenesis {
	m.Protocol = clonePtr(m.Protocol)
	m.SensePrimer = clonePtr(m.SensePrimer)
	m.AntisensePrimer = clonePtr(m.AntisensePrimer)
	m.Colonies = clonePtr(m.Colonies)
	return m
}

func cloneProtocol(p domain.Protocol) domain.Protocol {
	p.Slug = clonePtr(p.Slug)
	p.Revision = clonePtr(p.Revision)
	p.WikiPage = clonePtr(p.WikiPage)
	p.Comments = clonePtr(p.Comments)
	return p
}

func cloneExperiment(e domain.Experiment) domain.Experiment {
	e.Assay = clonePtr(e.Assay)
	e.Comments = clonePtr(e.Comments)
	return e
}

func cloneSequencing(s domain.Sequencing) domain.Sequencing {
	s.Date = clonePtr(s.Date)
	s.SampleNumber = clonePtr(s.SampleNumber)
	s.GelNumber = clonePtr(s.GelNumber)
	s.LaneNumber = clonePtr(s.LaneNumber)
	return s
}

func cloneCohort(a domain.AnimalCohort) domain.AnimalCohort {
	a.DateStart = clonePtr(a.DateStart)
	a.DateEnd = clonePtr(a.DateEnd)
	a.Notes = clonePtr(a.Notes)
	return a
}

// Cloning

func (tx *transaction) GetCloning(id int64) (domain.Cloning, error) {
	c, ok := tx.state.clonings[id]
	if !ok {
		return domain.Cloning{}, notFound(domain.EntityCloning, id)
	}
	c = cloneCloning(c)
	return c, tx.resolveRefs(&c)
}

func (tx *transaction) ListClonings() ([]domain.Cloning, error) {
	out := make([]domain.Cloning, 0, len(tx.state.clonings))
	for _, id := range sortedKeys(tx.state.clonings) {
		c, err := tx.GetCloning(id)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (tx *transaction) InsertCloning(c domain.Cloning) (domain.Cloning, error) {
	if err := c.Validate(); err != nil {
		return c, err
	}
	c = cloneCloning(c)
	if err := tx.checkRefs(domain.EntityCloning, strconv.FormatInt(c.ID, 10), &c); err != nil {
		return c, err
	}
	_, taken := tx.state.clonings[c.ID]
	id, err := tx.assignID(domain.EntityCloning, "clonings", c.ID, taken)
	if err != nil {
		return c, err
	}
	c.ID = id
	tx.state.clonings[id] = c
	return tx.GetCloning(id)
}

func (tx *transaction) UpdateCloning(c domain.Cloning) (domain.Cloning, error) {
	if err := c.Validate(); err != nil {
		return c, err
	}
	if _, ok := tx.state.clonings[c.ID]; !ok {
		return c, notFound(domain.EntityCloning, c.ID)
	}
	c = cloneCloning(c)
	if err := tx.checkRefs(domain.EntityCloning, strconv.FormatInt(c.ID, 10), &c); err != nil {
		return c, err
	}
	tx.state.clonings[c.ID] = c
	return tx.GetCloning(c.ID)
}

func (tx *transaction) DeleteCloning(id int64) error {
	if _, ok := tx.state.clonings[id]; !ok {
		return notFound(domain.EntityCloning, id)
	}
	delete(tx.state.clonings, id)
	tx.dropLinks(domain.EntityCloning, "", strconv.FormatInt(id, 10), 0)
	return nil
}

// Mutagenesis

func (tx *transaction) GetMutagenesis(id int64) (domain.Mutagenesis, error) {
	m, ok := tx.state.mutageneses[id]
	if !ok {
		return domain.Mutagenesis{}, notFound(domain.EntityMutagenesis, id)
	}
	m = cloneMutagenesis(m)
	return m, tx.resolveRefs(&m)
}

func (tx *transaction) ListMutageneses() ([]domain.Mutagenesis, error) {
	out := make([]domain.Mutagenesis, 0, len(tx.state.mutageneses))
	for _, id := range sortedKeys(tx.state.mutageneses) {
		m, err := tx.GetMutagenesis(id)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (tx *transaction) InsertMutagenesis(m domain.Mutagenesis) (domain.Mutagenesis, error) {
	m = domain.PrepareMutagenesisInsert(cloneMutagenesis(m))
	if err := m.Validate(); err != nil {
		return m, err
	}
	if err := tx.checkRefs(domain.EntityMutagenesis, strconv.FormatInt(m.ID, 10), &m); err != nil {
		return m, err
	}
	_, taken := tx.state.mutageneses[m.ID]
	id, err := tx.assignID(domain.EntityMutagenesis, "mutageneses", m.ID, taken)
	if err != nil {
		return m, err
	}
	m.ID = id
	tx.state.mutageneses[id] = m
	return tx.GetMutagenesis(id)
}

func (tx *transaction) UpdateMutagenesis(m domain.Mutagenesis) (domain.Mutagenesis, error) {
	if err := m.Validate(); err != nil {
		return m, err
	}
	if _, ok := tx.state.mutageneses[m.ID]; !ok {
		return m, notFound(domain.EntityMutagenesis, m.ID)
	}
	m = cloneMutagenesis(m)
	if err := tx.checkRefs(domain.EntityMutagenesis, strconv.FormatInt(m.ID, 10), &m); err != nil {
		return m, err
	}
	tx.state.mutageneses[m.ID] = m
	return tx.GetMutagenesis(m.ID)
}

func (tx *transaction) DeleteMutagenesis(id int64) error {
	if _, ok := tx.state.mutageneses[id]; !ok {
		return notFound(domain.EntityMutagenesis, id)
	}
	delete(tx.state.mutageneses, id)
	tx.dropLinks(domain.EntityMutagenesis, "", strconv.FormatInt(id, 10), 0)
	return nil
}

// Protocol

func (tx *transaction) GetProtocol(id int64) (domain.Protocol, error) {
	p, ok := tx.state.protocols[id]
	if !ok {
		return domain.Protocol{}, notFound(domain.EntityProtocol, id)
	}
	return cloneProtocol(p), nil
}

// GetProtocolBySlug returns the lowest-id protocol carrying slug.
func (tx *transaction) GetProtocolBySlug(slug string) (domain.Protocol, error) {
	for _, id := range sortedKeys(tx.state.protocols) {
		if p := tx.state.protocols[id]; p.SlugValue() == slug {
			return cloneProtocol(p), nil
		}
	}
	return domain.Protocol{}, domain.ErrNotFound{Entity: domain.EntityProtocol, Key: slug}
}

// ListProtocols orders by name descending.
func (tx *transaction) ListProtocols() ([]domain.Protocol, error) {
	out := make([]domain.Protocol, 0, len(tx.state.protocols))
	for _, id := range sortedKeys(tx.state.protocols) {
		out = append(out, cloneProtocol(tx.state.protocols[id]))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	return out, nil
}

func (tx *transaction) InsertProtocol(p domain.Protocol) (domain.Protocol, error) {
	p = domain.PrepareProtocolInsert(cloneProtocol(p))
	if err := p.Validate(); err != nil {
		return p, err
	}
	_, taken := tx.state.protocols[p.ID]
	id, err := tx.assignID(domain.EntityProtocol, "protocols", p.ID, taken)
	if err != nil {
		return p, err
	}
	p.ID = id
	tx.state.protocols[id] = p
	return tx.GetProtocol(id)
}

func (tx *transaction) UpdateProtocol(p domain.Protocol) (domain.Protocol, error) {
	if err := p.Validate(); err != nil {
		return p, err
	}
	current, ok := tx.state.protocols[p.ID]
	if !ok {
		return p, notFound(domain.EntityProtocol, p.ID)
	}
	p = cloneProtocol(p)
	p.Slug = clonePtr(current.Slug)
	tx.state.protocols[p.ID] = p
	return tx.GetProtocol(p.ID)
}

func (tx *transaction) DeleteProtocol(id int64) error {
	if _, ok := tx.state.protocols[id]; !ok {
		return notFound(domain.EntityProtocol, id)
	}
	// Mutageneses performed with the protocol go with it.
	for mid, m := range tx.state.mutageneses {
		if m.Protocol != nil && m.Protocol.ID == id {
			if err := tx.DeleteMutagenesis(mid); err != nil {
				return err
			}
		}
	}
	delete(tx.state.protocols, id)
	tx.dropLinks(domain.EntityProtocol, domain.RefProtocol, strconv.FormatInt(id, 10), id)
	return nil
}

// Experiment

func (tx *transaction) GetExperiment(id string) (domain.Experiment, error) {
	e, ok := tx.state.experiments[id]
	if !ok {
		return domain.Experiment{}, domain.ErrNotFound{Entity: domain.EntityExperiment, Key: id}
	}
	return cloneExperiment(e), nil
}

// ListExperiments orders by date descending, then identifier.
func (tx *transaction) ListExperiments() ([]domain.Experiment, error) {
	out := make([]domain.Experiment, 0, len(tx.state.experiments))
	for _, e := range tx.state.experiments {
		out = append(out, cloneExperiment(e))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].ExperimentDate.Time, out[j].ExperimentDate.Time
		if !a.Equal(b) {
			return a.After(b)
		}
		return out[i].ExperimentID < out[j].ExperimentID
	})
	return out, nil
}

func (tx *transaction) InsertExperiment(e domain.Experiment) (domain.Experiment, error) {
	if err := e.Validate(); err != nil {
		return e, err
	}
	if _, exists := tx.state.experiments[e.ExperimentID]; exists {
		return e, domain.ErrConflict{Entity: domain.EntityExperiment, Key: e.ExperimentID, Reason: "already exists"}
	}
	tx.state.experiments[e.ExperimentID] = cloneExperiment(e)
	return tx.GetExperiment(e.ExperimentID)
}

func (tx *transaction) UpdateExperiment(e domain.Experiment) (domain.Experiment, error) {
	if err := e.Validate(); err != nil {
		return e, err
	}
	if _, ok := tx.state.experiments[e.ExperimentID]; !ok {
		return e, domain.ErrNotFound{Entity: domain.EntityExperiment, Key: e.ExperimentID}
	}
	tx.state.experiments[e.ExperimentID] = cloneExperiment(e)
	return tx.GetExperiment(e.ExperimentID)
}

func (tx *transaction) DeleteExperiment(id string) error {
	if _, ok := tx.state.experiments[id]; !ok {
		return domain.ErrNotFound{Entity: domain.EntityExperiment, Key: id}
	}
	for rid, r := range tx.state.results {
		if r.Experiment.ID == id {
			delete(tx.state.results, rid)
		}
	}
	delete(tx.state.experiments, id)
	tx.dropLinks(domain.EntityExperiment, "", id, 0)
	return nil
}

// Result

func (tx *transaction) GetResult(id int64) (domain.Result, error) {
	r, ok := tx.state.results[id]
	if !ok {
		return domain.Result{}, notFound(domain.EntityResult, id)
	}
	exp, err := tx.GetExperiment(r.Experiment.ID)
	if err != nil {
		return r, err
	}
	r.Experiment.Name = exp.String()
	return r, nil
}

func (tx *transaction) ListResults() ([]domain.Result, error) {
	out := make([]domain.Result, 0, len(tx.state.results))
	for _, id := range sortedKeys(tx.state.results) {
		r, err := tx.GetResult(id)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (tx *transaction) checkResult(r domain.Result) error {
	if _, ok := tx.state.experiments[r.Experiment.ID]; !ok {
		return domain.ErrConflict{Entity: domain.EntityResult, Key: strconv.FormatInt(r.ID, 10), Reason: "experiment references a missing experiment"}
	}
	return nil
}

func (tx *transaction) InsertResult(r domain.Result) (domain.Result, error) {
	if err := r.Validate(); err != nil {
		return r, err
	}
	if err := tx.checkResult(r); err != nil {
		return r, err
	}
	_, taken := tx.state.results[r.ID]
	id, err := tx.assignID(domain.EntityResult, "results", r.ID, taken)
	if err != nil {
		return r, err
	}
	r.ID = id
	r.Experiment.Name = ""
	tx.state.results[id] = r
	return tx.GetResult(id)
}

func (tx *transaction) UpdateResult(r domain.Result) (domain.Result, error) {
	if err := r.Validate(); err != nil {
		return r, err
	}
	if _, ok := tx.state.results[r.ID]; !ok {
		return r, notFound(domain.EntityResult, r.ID)
	}
	if err := tx.checkResult(r); err != nil {
		return r, err
	}
	r.Experiment.Name = ""
	tx.state.results[r.ID] = r
	return tx.GetResult(r.ID)
}

func (tx *transaction) DeleteResult(id int64) error {
	if _, ok := tx.state.results[id]; !ok {
		return notFound(domain.EntityResult, id)
	}
	delete(tx.state.results, id)
	return nil
}

// Sequencing

func (tx *transaction) GetSequencing(id int64) (domain.Sequencing, error) {
	s, ok := tx.state.sequencing[id]
	if !ok {
		return domain.Sequencing{}, notFound(domain.EntitySequencing, id)
	}
	s = cloneSequencing(s)
	return s, tx.resolveRefs(&s)
}

func (tx *transaction) ListSequencings() ([]domain.Sequencing, error) {
	out := make([]domain.Sequencing, 0, len(tx.state.sequencing))
	for _, id := range sortedKeys(tx.state.sequencing) {
		s, err := tx.GetSequencing(id)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (tx *transaction) InsertSequencing(s domain.Sequencing) (domain.Sequencing, error) {
	if err := s.Validate(); err != nil {
		return s, err
	}
	s = cloneSequencing(s)
	if err := tx.checkRefs(domain.EntitySequencing, strconv.FormatInt(s.ID, 10), &s); err != nil {
		return s, err
	}
	_, taken := tx.state.sequencing[s.ID]
	id, err := tx.assignID(domain.EntitySequencing, "sequencing", s.ID, taken)
	if err != nil {
		return s, err
	}
	s.ID = id
	tx.state.sequencing[id] = s
	return tx.GetSequencing(id)
}

func (tx *transaction) UpdateSequencing(s domain.Sequencing) (domain.Sequencing, error) {
	if err := s.Validate(); err != nil {
		return s, err
	}
	if _, ok := tx.state.sequencing[s.ID]; !ok {
		return s, notFound(domain.EntitySequencing, s.ID)
	}
	s = cloneSequencing(s)
	if err := tx.checkRefs(domain.EntitySequencing, strconv.FormatInt(s.ID, 10), &s); err != nil {
		return s, err
	}
	tx.state.sequencing[s.ID] = s
	return tx.GetSequencing(s.ID)
}

func (tx *transaction) DeleteSequencing(id int64) error {
	if _, ok := tx.state.sequencing[id]; !ok {
		return notFound(domain.EntitySequencing, id)
	}
	delete(tx.state.sequencing, id)
	tx.dropLinks("", domain.RefSequencing, "", id)
	return nil
}

// Animal cohort

func (tx *transaction) GetAnimalCohort(id int64) (domain.AnimalCohort, error) {
	a, ok := tx.state.cohorts[id]
	if !ok {
		return domain.AnimalCohort{}, notFound(domain.EntityCohort, id)
	}
	return cloneCohort(a), nil
}

func (tx *transaction) ListAnimalCohorts() ([]domain.AnimalCohort, error) {
	out := make([]domain.AnimalCohort, 0, len(tx.state.cohorts))
	for _, id := range sortedKeys(tx.state.cohorts) {
		out = append(out, cloneCohort(tx.state.cohorts[id]))
	}
	return out, nil
}

func (tx *transaction) InsertAnimalCohort(a domain.AnimalCohort) (domain.AnimalCohort, error) {
	if err := a.Validate(); err != nil {
		return a, err
	}
	_, taken := tx.state.cohorts[a.ID]
	id, err := tx.assignID(domain.EntityCohort, "animal_cohorts", a.ID, taken)
	if err != nil {
		return a, err
	}
	a = cloneCohort(a)
	a.ID = id
	tx.state.cohorts[id] = a
	return tx.GetAnimalCohort(id)
}

func (tx *transaction) UpdateAnimalCohort(a domain.AnimalCohort) (domain.AnimalCohort, error) {
	if err := a.Validate(); err != nil {
		return a, err
	}
	if _, ok := tx.state.cohorts[a.ID]; !ok {
		return a, notFound(domain.EntityCohort, a.ID)
	}
	tx.state.cohorts[a.ID] = cloneCohort(a)
	return tx.GetAnimalCohort(a.ID)
}

func (tx *transaction) DeleteAnimalCohort(id int64) error {
	if _, ok := tx.state.cohorts[id]; !ok {
		return notFound(domain.EntityCohort, id)
	}
	delete(tx.state.cohorts, id)
	key := strconv.FormatInt(id, 10)
	tx.dropLinks(domain.EntityCohort, domain.RefCohort, key, id)
	return nil
}
