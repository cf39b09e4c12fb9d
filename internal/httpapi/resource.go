package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"experimentdb/pkg/domain"
	"experimentdb/pkg/routes"
)

// record is what every resource renders.
type record interface {
	fmt.Stringer
	AbsoluteURL() string
}

// envelope wraps a record with its rendering and permalink.
type envelope struct {
	Object  any    `json:"object"`
	Display string `json:"display"`
	URL     string `json:"url"`
	WikiURL string `json:"wiki_url,omitempty"`
}

// resource binds one entity to the generic handlers.
type resource[T record] struct {
	route  routes.Resource
	entity domain.EntityType

	get    func(ctx context.Context, param string) (T, error)
	list   func(ctx context.Context) ([]T, error)
	create func(ctx context.Context, rec T) (T, error)
	save   func(ctx context.Context, rec T) (T, error)
	remove func(ctx context.Context, rec T) error
	// key returns the owner key used by link routes.
	key func(T) any
	// reset clears server assigned fields of a new record and pins the
	// key of an edited one to the stored value.
	reset    func(rec *T, stored *T)
	decorate func(*envelope, T)
}

func (r *resource[T]) wrap(rec T) envelope {
	env := envelope{Object: rec, Display: rec.String(), URL: rec.AbsoluteURL()}
	if r.decorate != nil {
		r.decorate(&env, rec)
	}
	return env
}

// param reads the record parameter; malformed values are reported as misses.
func (r *resource[T]) param(c echo.Context) (string, error) {
	if r.route.Param == routes.ParamID {
		p := c.Param("id")
		if _, ok := routes.ParseID(p); !ok {
			return "", domain.ErrNotFound{Entity: r.entity, Key: p}
		}
		return p, nil
	}
	p := c.Param("slug")
	if !routes.ValidSlug(p) {
		return "", domain.ErrNotFound{Entity: r.entity, Key: p}
	}
	return p, nil
}

func (r *resource[T]) load(c echo.Context) (T, error) {
	p, err := r.param(c)
	if err != nil {
		var zero T
		return zero, err
	}
	return r.get(c.Request().Context(), p)
}

func decodeBody(c echo.Context, dst any) error {
	b, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body").WithInternal(err)
	}
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed JSON body").WithInternal(err)
	}
	return nil
}

func (r *resource[T]) handleNew(c echo.Context) error {
	var rec T
	if err := decodeBody(c, &rec); err != nil {
		return err
	}
	r.reset(&rec, nil)
	saved, err := r.create(c.Request().Context(), rec)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderLocation, saved.AbsoluteURL())
	return c.JSON(http.StatusCreated, r.wrap(saved))
}

func (r *resource[T]) handleDetail(c echo.Context) error {
	rec, err := r.load(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r.wrap(rec))
}

// handleEdit merges the body onto the stored record, so omitted fields keep
// their values.
func (r *resource[T]) handleEdit(c echo.Context) error {
	stored, err := r.load(c)
	if err != nil {
		return err
	}
	rec := stored
	if err := decodeBody(c, &rec); err != nil {
		return err
	}
	r.reset(&rec, &stored)
	saved, err := r.save(c.Request().Context(), rec)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r.wrap(saved))
}

func (r *resource[T]) handleDelete(c echo.Context) error {
	rec, err := r.load(c)
	if err != nil {
		return err
	}
	if err := r.remove(c.Request().Context(), rec); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (r *resource[T]) handleList(c echo.Context) error {
	recs, err := r.list(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]envelope, 0, len(recs))
	for _, rec := range recs {
		out = append(out, r.wrap(rec))
	}
	return c.JSON(http.StatusOK, out)
}

// handlers returns the handler for each action of the route table.
func (r *resource[T]) handlers(s *Server) map[routes.Action]echo.HandlerFunc {
	h := map[routes.Action]echo.HandlerFunc{
		routes.ActionNew:    r.handleNew,
		routes.ActionDetail: r.handleDetail,
		routes.ActionEdit:   r.handleEdit,
		routes.ActionDelete: r.handleDelete,
		routes.ActionList:   r.handleList,
	}
	if len(domain.RelationsFor(r.entity)) > 0 {
		h[routes.ActionLinks] = func(c echo.Context) error { return r.handleLinks(c, s) }
		h[routes.ActionLink] = func(c echo.Context) error { return r.handleUnlink(c, s) }
	}
	var zero T
	if _, ok := any(&zero).(domain.FileHolder); ok && s.uploads != nil {
		h[routes.ActionFile] = func(c echo.Context) error { return r.handleFile(c, s) }
	}
	return h
}
