// Package server assembles the HTTP server around the registered handlers.
//
// The server owns the echo instance, its middleware chain, and graceful
// shutdown. Handlers are registered by the caller before Run.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	kerrors "github.com/kinemetry/kinemetry/internal/errors"
	"github.com/kinemetry/kinemetry/internal/logging"
)

var log = logging.Component("server")

// =============================================================================
// Server Configuration
// =============================================================================

// Config holds server configuration.
type Config struct {
	// Listen is the address to listen on (e.g., "0.0.0.0:8000").
	Listen string

	// CORSOrigins are the allowed CORS origins for browser clients.
	CORSOrigins []string

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// =============================================================================
// Server
// =============================================================================

// RouteRegistrar registers routes on an echo instance.
type RouteRegistrar interface {
	RegisterRoutes(e *echo.Echo)
}

// Server is the HTTP server.
type Server struct {
	cfg  *Config
	echo *echo.Echo
}

// New creates a new server and registers the given handlers.
func New(cfg *Config, handlers ...RouteRegistrar) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestContext())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(requestLogger())

	e.HTTPErrorHandler = errorHandler(e)

	for _, h := range handlers {
		h.RegisterRoutes(e)
	}

	return &Server{cfg: cfg, echo: e}
}

// Echo exposes the underlying echo instance for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Run starts the server and blocks until ctx is cancelled, then shuts
// down gracefully within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "address", s.cfg.Listen)
		if err := s.echo.Start(s.cfg.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}

// =============================================================================
// Middleware
// =============================================================================

// requestContext carries the assigned request ID into the request
// context so downstream log lines can attach it.
func requestContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			if rid != "" {
				ctx := logging.ContextWithRequestID(c.Request().Context(), rid)
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	}
}

// requestLogger logs one line per request with method, path, status and
// latency.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogMethod:  true,
		LogURI:     true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
				log.Warn("request", attrs...)
			} else {
				log.Info("request", attrs...)
			}
			return nil
		},
	})
}

// errorHandler maps domain errors to HTTP statuses and renders a JSON
// error body. echo.HTTPError passes through unchanged.
func errorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var httpErr *echo.HTTPError
		if !errors.As(err, &httpErr) {
			httpErr = echo.NewHTTPError(kerrors.ErrorToStatus(err), err.Error())
		}
		e.DefaultHTTPErrorHandler(httpErr, c)
	}
}
