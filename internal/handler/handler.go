// Package handler wires the HTTP surface to the ingest pipeline.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	kerrors "github.com/kinemetry/kinemetry/internal/errors"
	"github.com/kinemetry/kinemetry/internal/ingest"
	"github.com/kinemetry/kinemetry/internal/loader"
	"github.com/kinemetry/kinemetry/internal/logging"
	"github.com/kinemetry/kinemetry/internal/measure"
	"github.com/kinemetry/kinemetry/internal/summary"
)

// WindowService serves patient measurement windows.
type WindowService interface {
	GetPatientWindow(ctx context.Context, req ingest.Request) ([]measure.Sample, error)
}

// Summarizer aggregates a patient's persisted window into hourly buckets.
type Summarizer interface {
	WindowSummary(ctx context.Context, patientID string, w measure.Window, kind measure.Kind) ([]summary.Bucket, bool, error)
}

// Handler holds the HTTP handlers.
type Handler struct {
	windows    WindowService
	summaries  Summarizer
	windowDays int
	resample   string
	log        *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(windows WindowService, summaries Summarizer, windowDays int, resample string) *Handler {
	return &Handler{
		windows:    windows,
		summaries:  summaries,
		windowDays: windowDays,
		resample:   resample,
		log:        logging.Component("handler"),
	}
}

// RegisterRoutes registers all routes on the echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/patient-data", h.GetPatientData)
	e.GET("/api/patient-summary", h.GetPatientSummary)
	e.GET("/health", h.Health)
}

// patientDataRequest is the POST /api/patient-data body.
type patientDataRequest struct {
	PatientID       string `json:"patient_id"`
	SelectedDate    string `json:"selected_date"`
	MeasurementType string `json:"measurement_type"`
	RepullAll       bool   `json:"repull_all"`
	Severity        string `json:"severity,omitempty"`
}

// sampleJSON is one row of the served window.
type sampleJSON struct {
	Time        time.Time `json:"time"`
	Measurement string    `json:"measurement,omitempty"`
	Severity    string    `json:"severity,omitempty"`
	Percentage  *float64  `json:"percentage"`
	DurationNs  int64     `json:"measurement_duration_ns,omitempty"`
	DeviceID    string    `json:"device_id,omitempty"`
}

func toSampleJSON(samples []measure.Sample) []sampleJSON {
	out := make([]sampleJSON, len(samples))
	for i, s := range samples {
		out[i] = sampleJSON{
			Time:        s.Time,
			Measurement: s.Measurement,
			Severity:    s.Severity,
			Percentage:  s.Percentage,
			DurationNs:  s.DurationNs,
			DeviceID:    s.DeviceID,
		}
	}
	return out
}

// dateLayouts are the accepted selected_date formats.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
}

func parseSelectedDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, kerrors.Wrapf(kerrors.ErrInvalidDate, "%q", s)
}

// GetPatientData serves the patient's trailing measurement window.
// POST /api/patient-data
func (h *Handler) GetPatientData(c echo.Context) error {
	var req patientDataRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	selectedDate, err := parseSelectedDate(req.SelectedDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	samples, err := h.windows.GetPatientWindow(c.Request().Context(), ingest.Request{
		PatientID:       req.PatientID,
		SelectedDate:    selectedDate,
		MeasurementType: req.MeasurementType,
		RepullAll:       req.RepullAll,
		Severity:        req.Severity,
	})
	if err != nil {
		return echo.NewHTTPError(kerrors.ErrorToStatus(err), err.Error())
	}

	if h.resample == loader.ResampleHourlyMean {
		samples = summary.HourlyMean(samples)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": toSampleJSON(samples),
	})
}

// summaryResponse is the GET /api/patient-summary body.
type summaryResponse struct {
	PatientID       string           `json:"patient_id"`
	MeasurementType string           `json:"measurement_type"`
	WindowLower     time.Time        `json:"window_lower"`
	WindowUpper     time.Time        `json:"window_upper"`
	Buckets         []summary.Bucket `json:"buckets"`
}

// GetPatientSummary serves hourly statistics for the patient's window.
// GET /api/patient-summary?patient_id=&selected_date=&measurement_type=
func (h *Handler) GetPatientSummary(c echo.Context) error {
	patientID := c.QueryParam("patient_id")
	measurementType := c.QueryParam("measurement_type")

	selectedDate, err := parseSelectedDate(c.QueryParam("selected_date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	kind, err := measure.ParseKind(measurementType)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// Refresh the window first so the summary covers current data.
	samples, err := h.windows.GetPatientWindow(c.Request().Context(), ingest.Request{
		PatientID:       patientID,
		SelectedDate:    selectedDate,
		MeasurementType: measurementType,
	})
	if err != nil {
		return echo.NewHTTPError(kerrors.ErrorToStatus(err), err.Error())
	}

	window, _ := ingest.Plan(selectedDate, h.windowDays, false, nil)

	buckets, ok, err := h.summaries.WindowSummary(c.Request().Context(), patientID, window, kind)
	if err != nil {
		h.log.Error("summary query failed",
			"patient_id", patientID,
			"error", err)
		ok = false
	}
	if !ok {
		// No cache file yet (or the scan failed): aggregate the window
		// we just served.
		buckets = summary.FromSamples(samples)
	}

	return c.JSON(http.StatusOK, summaryResponse{
		PatientID:       patientID,
		MeasurementType: measurementType,
		WindowLower:     window.Lower,
		WindowUpper:     window.Upper,
		Buckets:         buckets,
	})
}

// Health reports service liveness.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}
