package httpapi

import (
	"fmt"
	"mime"
	"net/http"
	"path"

	"github.com/labstack/echo/v4"

	"experimentdb/pkg/domain"
)

// formField is the multipart field carrying the uploaded file.
const formField = "file"

// handleFile uploads (POST) or downloads (GET) the named file field.
func (r *resource[T]) handleFile(c echo.Context, s *Server) error {
	rec, err := r.load(c)
	if err != nil {
		return err
	}
	field := c.Param("field")
	holder := any(&rec).(domain.FileHolder)
	slot, ok := domain.LookupFileField(holder, field)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown file field "+field)
	}
	if c.Request().Method == http.MethodPost {
		return r.uploadFile(c, s, rec, field)
	}
	if *slot.Key == "" {
		return echo.NewHTTPError(http.StatusNotFound, "no file stored in "+field)
	}
	ctx := c.Request().Context()
	dl, err := s.uploads.Open(ctx, *slot.Key)
	if err != nil {
		return err
	}
	if dl.URL != "" {
		return c.Redirect(http.StatusFound, dl.URL)
	}
	defer dl.Body.Close()
	name := dl.Info.OriginalName
	if name == "" {
		name = path.Base(dl.Info.Key)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	contentType := dl.Info.ContentType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	return c.Stream(http.StatusOK, contentType, dl.Body)
}

func (r *resource[T]) uploadFile(c echo.Context, s *Server, rec T, field string) error {
	fh, err := c.FormFile(formField)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("multipart field %q is required", formField)).WithInternal(err)
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	ctx := c.Request().Context()
	info, err := s.uploads.Attach(ctx, any(&rec).(domain.FileHolder), field, fh.Filename, fh.Header.Get(echo.HeaderContentType), f)
	if err != nil {
		return err
	}
	saved, err := r.save(ctx, rec)
	if err != nil {
		s.uploads.Discard(ctx, info.Key)
		return err
	}
	return c.JSON(http.StatusOK, r.wrap(saved))
}
