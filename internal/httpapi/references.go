package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"experimentdb/pkg/domain"
)

// referenceRequest creates a row of an external reference table. ID is
// optional and lets callers mirror the owning module's identifiers.
type referenceRequest struct {
	ID   int64  `json:"id" validate:"gte=0"`
	Name string `json:"name" validate:"required"`
}

func (s *Server) registerReferences() {
	s.echo.GET("/references/:kind/", s.listReferences).Name = "reference-list"
	s.echo.POST("/references/:kind/", s.createReference).Name = "reference-new"
}

func externalKind(c echo.Context) (domain.RefKind, error) {
	kind, err := domain.ParseRefKind(c.Param("kind"))
	if err != nil || kind.Internal() {
		return "", echo.NewHTTPError(http.StatusNotFound, "unknown reference kind "+c.Param("kind"))
	}
	return kind, nil
}

func (s *Server) listReferences(c echo.Context) error {
	kind, err := externalKind(c)
	if err != nil {
		return err
	}
	refs, err := s.svc.ListReferences(c.Request().Context(), kind)
	if err != nil {
		return err
	}
	if refs == nil {
		refs = []domain.Ref{}
	}
	return c.JSON(http.StatusOK, refs)
}

func (s *Server) createReference(c echo.Context) error {
	kind, err := externalKind(c)
	if err != nil {
		return err
	}
	var req referenceRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ref, err := s.svc.CreateReference(c.Request().Context(), kind, domain.Ref{ID: req.ID, Name: req.Name})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ref)
}
