package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	kerrors "github.com/kinemetry/kinemetry/internal/errors"
	"github.com/kinemetry/kinemetry/internal/logging"
)

type testRoutes struct{}

func (testRoutes) RegisterRoutes(e *echo.Echo) {
	e.GET("/ok", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/validation", func(c echo.Context) error {
		return kerrors.Wrap(kerrors.ErrInvalidDate, "bad input")
	})
	e.GET("/upstream", func(c echo.Context) error {
		return kerrors.ErrStreamResolution
	})
	e.GET("/boom", func(c echo.Context) error {
		panic("boom")
	})
}

func newTestServer() *Server {
	return New(&Config{
		Listen:          "127.0.0.1:0",
		CORSOrigins:     []string{"http://localhost:3000"},
		ShutdownTimeout: time.Second,
	}, testRoutes{})
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	return rec
}

func TestServerRoutes(t *testing.T) {
	srv := newTestServer()

	if rec := get(t, srv, "/ok"); rec.Code != http.StatusOK {
		t.Errorf("/ok status = %d", rec.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer()

	if rec := get(t, srv, "/validation"); rec.Code != http.StatusBadRequest {
		t.Errorf("validation status = %d, want 400", rec.Code)
	}
	if rec := get(t, srv, "/upstream"); rec.Code != http.StatusBadGateway {
		t.Errorf("upstream status = %d, want 502", rec.Code)
	}
	if rec := get(t, srv, "/missing"); rec.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", rec.Code)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	srv := newTestServer()

	if rec := get(t, srv, "/boom"); rec.Code != http.StatusInternalServerError {
		t.Errorf("panic status = %d, want 500", rec.Code)
	}
}

func TestRequestIDInContext(t *testing.T) {
	var buf bytes.Buffer
	logging.InitWithHandler(slog.NewJSONHandler(&buf, nil))

	srv := New(&Config{
		Listen:          "127.0.0.1:0",
		ShutdownTimeout: time.Second,
	}, testRoutes{})
	srv.Echo().GET("/logged", func(c echo.Context) error {
		logging.WithContext(c.Request().Context()).Info("handling")
		return c.NoContent(http.StatusOK)
	})

	rec := get(t, srv, "/logged")
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("response missing request id header")
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	rid, _ := entry["request_id"].(string)
	if rid == "" {
		t.Error("log line missing request_id attribute")
	}
	if rid != rec.Header().Get(echo.HeaderXRequestID) {
		t.Errorf("logged request_id %q != header %q", rid, rec.Header().Get(echo.HeaderXRequestID))
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodOptions, "/ok", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:3000")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "http://localhost:3000" {
		t.Errorf("allow-origin = %q", got)
	}
}
