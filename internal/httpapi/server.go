// Package httpapi serves the record resources over HTTP with echo. Every
// resource shares one generic handler set; routes come from pkg/routes.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"experimentdb/internal/blob"
	"experimentdb/internal/core"
	"experimentdb/internal/upload"
	"experimentdb/pkg/domain"
)

const shutdownTimeout = 10 * time.Second

// Server wires the service to an echo instance.
type Server struct {
	echo     *echo.Echo
	svc      *core.Service
	uploads  *upload.Uploader
	logger   *slog.Logger
	wikiBase string
	registry prometheus.Registerer
	gatherer prometheus.Gatherer
}

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithUploader enables the file routes.
func WithUploader(u *upload.Uploader) Option {
	return func(s *Server) { s.uploads = u }
}

// WithWikiBaseURL makes protocol responses carry a wiki permalink.
func WithWikiBaseURL(base string) Option {
	return func(s *Server) { s.wikiBase = base }
}

// WithMetrics registers HTTP metrics on reg and serves g at /metrics.
func WithMetrics(reg prometheus.Registerer, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.registry = reg
		s.gatherer = g
	}
}

// New builds the echo instance and registers every route.
func New(svc *core.Service, opts ...Option) (*Server, error) {
	s := &Server{svc: svc, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.DefaultRegisterer
		s.gatherer = prometheus.DefaultGatherer
	}
	metrics, err := newHTTPMetrics(s.registry)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = requestValidator{}
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(s.requestLogger())
	e.Use(metrics.middleware())
	s.echo = e

	e.GET("/healthz", s.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	if err := s.registerResources(); err != nil {
		return nil, err
	}
	s.registerReferences()
	return s, nil
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.echo.ServeHTTP(w, r) }

// Echo exposes the underlying router.
func (s *Server) Echo() *echo.Echo { return s.echo }

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errc <- s.echo.Start(addr)
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) health(c echo.Context) error {
	err := s.svc.Store().View(c.Request().Context(), func(core.View) error { return nil })
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "storage unavailable").WithInternal(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err == nil && c.Path() != "/healthz" {
				s.logger.Info("handled request",
					"method", c.Request().Method,
					"path", c.Request().URL.Path,
					"route", c.Path(),
					"status", c.Response().Status,
					"duration", time.Since(start))
			}
			return err
		}
	}
}

// httpError maps domain and storage errors onto status codes.
func httpError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he
	case domain.IsNotFound(err), errors.Is(err, blob.ErrNotFound), errors.Is(err, upload.ErrUnknownField):
		return echo.NewHTTPError(http.StatusNotFound, err.Error()).WithInternal(err)
	case domain.IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).WithInternal(err)
	case domain.IsConflict(err):
		return echo.NewHTTPError(http.StatusConflict, err.Error()).WithInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)).WithInternal(err)
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	he := httpError(err)
	attrs := []any{"method", c.Request().Method, "path", c.Request().URL.Path, "status", he.Code}
	if he.Internal != nil {
		attrs = append(attrs, "err", he.Internal)
	}
	if he.Code >= http.StatusInternalServerError {
		s.logger.Error("request failed", attrs...)
	} else {
		s.logger.Debug("request rejected", attrs...)
	}
	if c.Response().Committed {
		return
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(he.Code)
		return
	}
	if err := c.JSON(he.Code, map[string]any{"message": he.Message}); err != nil {
		s.logger.Error("could not send error response", "err", err)
	}
}

// requestValidator validates request bodies with the domain rules.
type requestValidator struct{}

func (requestValidator) Validate(i any) error {
	return domain.Validate("request", i)
}
