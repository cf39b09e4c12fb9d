package httpapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"experimentdb/pkg/domain"
)

type linkRequest struct {
	ID int64 `json:"id" validate:"required,gt=0"`
}

func (r *resource[T]) relation(c echo.Context) (domain.Relation, error) {
	name := c.Param("relation")
	rel, ok := domain.LookupRelation(r.entity, name)
	if !ok {
		return domain.Relation{}, echo.NewHTTPError(http.StatusNotFound, "unknown relation "+name)
	}
	return rel, nil
}

// handleLinks lists (GET) or attaches (POST) related records.
func (r *resource[T]) handleLinks(c echo.Context, s *Server) error {
	rel, err := r.relation(c)
	if err != nil {
		return err
	}
	owner, err := r.load(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	status := http.StatusOK
	if c.Request().Method == http.MethodPost {
		var req linkRequest
		if err := c.Bind(&req); err != nil {
			return err
		}
		if err := c.Validate(&req); err != nil {
			return err
		}
		if err := s.svc.Link(ctx, rel, r.key(owner), req.ID); err != nil {
			return err
		}
		status = http.StatusCreated
	}
	refs, err := s.svc.LinkedRefs(ctx, rel, r.key(owner))
	if err != nil {
		return err
	}
	if refs == nil {
		refs = []domain.Ref{}
	}
	return c.JSON(status, refs)
}

func (r *resource[T]) handleUnlink(c echo.Context, s *Server) error {
	rel, err := r.relation(c)
	if err != nil {
		return err
	}
	target, err := strconv.ParseInt(c.Param("target"), 10, 64)
	if err != nil || target <= 0 {
		return echo.NewHTTPError(http.StatusNotFound, "malformed target id")
	}
	owner, err := r.load(c)
	if err != nil {
		return err
	}
	if err := s.svc.Unlink(c.Request().Context(), rel, r.key(owner), target); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
