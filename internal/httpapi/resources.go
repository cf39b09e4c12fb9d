package httpapi

import (
	"context"
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"experimentdb/pkg/domain"
	"experimentdb/pkg/routes"
)

// idGetter adapts an int64 lookup to the string parameter of id routes.
func idGetter[T any](get func(context.Context, int64) (T, error)) func(context.Context, string) (T, error) {
	return func(ctx context.Context, p string) (T, error) {
		id, _ := strconv.ParseInt(p, 10, 64)
		return get(ctx, id)
	}
}

func (s *Server) resourceHandlers() map[string]map[routes.Action]echo.HandlerFunc {
	svc := s.svc
	out := make(map[string]map[routes.Action]echo.HandlerFunc)

	cloning := &resource[domain.Cloning]{
		entity: domain.EntityCloning,
		get:    idGetter(svc.GetCloning),
		list:   svc.ListClonings,
		create: svc.SaveCloning,
		save:   svc.SaveCloning,
		remove: func(ctx context.Context, c domain.Cloning) error { return svc.DeleteCloning(ctx, c.ID) },
		key:    func(c domain.Cloning) any { return c.ID },
		reset:  func(c, stored *domain.Cloning) { c.ID = storedID(stored, func(x *domain.Cloning) int64 { return x.ID }) },
	}
	out[routes.Cloning] = bind(cloning, routes.Cloning, s)

	mutagenesis := &resource[domain.Mutagenesis]{
		entity: domain.EntityMutagenesis,
		get:    idGetter(svc.GetMutagenesis),
		list:   svc.ListMutageneses,
		create: svc.SaveMutagenesis,
		save:   svc.SaveMutagenesis,
		remove: func(ctx context.Context, m domain.Mutagenesis) error { return svc.DeleteMutagenesis(ctx, m.ID) },
		key:    func(m domain.Mutagenesis) any { return m.ID },
		reset: func(m, stored *domain.Mutagenesis) {
			m.ID = storedID(stored, func(x *domain.Mutagenesis) int64 { return x.ID })
		},
	}
	out[routes.Mutagenesis] = bind(mutagenesis, routes.Mutagenesis, s)

	protocol := &resource[domain.Protocol]{
		entity: domain.EntityProtocol,
		get:    svc.ResolveProtocol,
		list:   svc.ListProtocols,
		create: svc.SaveProtocol,
		save:   svc.SaveProtocol,
		remove: func(ctx context.Context, p domain.Protocol) error { return svc.DeleteProtocol(ctx, p.ID) },
		key:    func(p domain.Protocol) any { return p.ID },
		reset: func(p, stored *domain.Protocol) {
			p.ID = storedID(stored, func(x *domain.Protocol) int64 { return x.ID })
			if stored != nil {
				p.Slug = stored.Slug
			}
		},
		decorate: func(env *envelope, p domain.Protocol) {
			if s.wikiBase != "" {
				env.WikiURL = p.WikiPermalink(s.wikiBase)
			}
		},
	}
	out[routes.Protocol] = bind(protocol, routes.Protocol, s)

	experiment := &resource[domain.Experiment]{
		entity: domain.EntityExperiment,
		get:    svc.GetExperiment,
		list:   svc.ListExperiments,
		create: svc.CreateExperiment,
		save:   svc.SaveExperiment,
		remove: func(ctx context.Context, e domain.Experiment) error { return svc.DeleteExperiment(ctx, e.ExperimentID) },
		key:    func(e domain.Experiment) any { return e.ExperimentID },
		reset: func(e, stored *domain.Experiment) {
			if stored != nil {
				e.ExperimentID = stored.ExperimentID
			}
		},
	}
	out[routes.Experiment] = bind(experiment, routes.Experiment, s)

	result := &resource[domain.Result]{
		entity: domain.EntityResult,
		get:    idGetter(svc.GetResult),
		list:   svc.ListResults,
		create: svc.SaveResult,
		save:   svc.SaveResult,
		remove: func(ctx context.Context, r domain.Result) error { return svc.DeleteResult(ctx, r.ID) },
		key:    func(r domain.Result) any { return r.ID },
		reset:  func(r, stored *domain.Result) { r.ID = storedID(stored, func(x *domain.Result) int64 { return x.ID }) },
	}
	out[routes.Result] = bind(result, routes.Result, s)

	sequencing := &resource[domain.Sequencing]{
		entity: domain.EntitySequencing,
		get:    idGetter(svc.GetSequencing),
		list:   svc.ListSequencings,
		create: svc.SaveSequencing,
		save:   svc.SaveSequencing,
		remove: func(ctx context.Context, q domain.Sequencing) error { return svc.DeleteSequencing(ctx, q.ID) },
		key:    func(q domain.Sequencing) any { return q.ID },
		reset: func(q, stored *domain.Sequencing) {
			q.ID = storedID(stored, func(x *domain.Sequencing) int64 { return x.ID })
		},
	}
	out[routes.Sequencing] = bind(sequencing, routes.Sequencing, s)

	cohort := &resource[domain.AnimalCohort]{
		entity: domain.EntityCohort,
		get:    idGetter(svc.GetAnimalCohort),
		list:   svc.ListAnimalCohorts,
		create: svc.SaveAnimalCohort,
		save:   svc.SaveAnimalCohort,
		remove: func(ctx context.Context, a domain.AnimalCohort) error { return svc.DeleteAnimalCohort(ctx, a.ID) },
		key:    func(a domain.AnimalCohort) any { return a.ID },
		reset: func(a, stored *domain.AnimalCohort) {
			a.ID = storedID(stored, func(x *domain.AnimalCohort) int64 { return x.ID })
		},
	}
	out[routes.Cohort] = bind(cohort, routes.Cohort, s)

	return out
}

// storedID is the id to save under: zero for new records so the store
// assigns one, the stored id for edits.
func storedID[T any](stored *T, id func(*T) int64) int64 {
	if stored == nil {
		return 0
	}
	return id(stored)
}

func bind[T record](r *resource[T], name string, s *Server) map[routes.Action]echo.HandlerFunc {
	for _, res := range routes.Resources {
		if res.Name == name {
			r.route = res
		}
	}
	return r.handlers(s)
}

// registerResources mounts every route of the table that has a handler.
func (s *Server) registerResources() error {
	handlers := s.resourceHandlers()
	for _, rt := range routes.Table() {
		h, ok := handlers[rt.Resource][rt.Action]
		if !ok {
			continue
		}
		for _, method := range rt.Methods {
			s.echo.Add(method, rt.Pattern, h).Name = rt.Name
		}
	}
	for name := range handlers {
		if _, ok := routes.Lookup(name + "-detail"); !ok {
			return fmt.Errorf("no routes for resource %s", name)
		}
	}
	return nil
}
