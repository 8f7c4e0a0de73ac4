// Package ingest implements the windowed incremental fetch pipeline.
//
// A request for a patient window runs through three stages: plan the
// trailing window and the fetch start point, fan out batch fetches for
// the patient's resolved streams, then merge the fresh rows with the
// on-disk cache, persist, and filter to the caller's view. The load →
// merge → persist sequence holds a per-patient lock so concurrent
// requests for the same patient cannot lose updates.
package ingest

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kinemetry/kinemetry/internal/errors"
	"github.com/kinemetry/kinemetry/internal/logging"
	"github.com/kinemetry/kinemetry/internal/measure"
	"github.com/kinemetry/kinemetry/internal/runeapi"
)

// StreamResolver resolves a patient's measurement streams.
type StreamResolver interface {
	ResolveStreams(ctx context.Context, f runeapi.StreamFilter) ([]runeapi.Stream, error)
}

// SampleSource fetches raw samples for a set of streams.
type SampleSource interface {
	FetchSamples(ctx context.Context, streamIDs []string, start time.Time) ([]measure.Sample, error)
}

// CacheStore persists the per-patient sample table.
type CacheStore interface {
	Load(patientID string) ([]measure.Sample, error)
	Save(patientID string, samples []measure.Sample) error
}

// Options configures the pipeline.
type Options struct {
	// WindowDays is the trailing window length.
	WindowDays int

	// BatchSize is the number of stream IDs per fetch group.
	BatchSize int

	// Workers caps concurrent batch fetches. 0 means unbounded.
	Workers int

	// BatchTimeout bounds a single batch fetch. 0 disables the bound.
	BatchTimeout time.Duration

	// Algorithm, DeviceID and StreamTypeID select the streams resolved
	// for a patient.
	Algorithm    string
	DeviceID     string
	StreamTypeID string
}

// Request is one patient-window request.
type Request struct {
	PatientID       string
	SelectedDate    time.Time
	MeasurementType string
	RepullAll       bool

	// Severity optionally restricts the result to one severity label.
	Severity string
}

// Service orchestrates the fetch pipeline.
type Service struct {
	resolver StreamResolver
	source   SampleSource
	cache    CacheStore
	opts     Options

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a pipeline service with injected collaborators.
func NewService(resolver StreamResolver, source SampleSource, cache CacheStore, opts Options) *Service {
	return &Service{
		resolver: resolver,
		source:   source,
		cache:    cache,
		opts:     opts,
		locks:    make(map[string]*sync.Mutex),
	}
}

// requestLogger builds the per-request logger. The patient ID and any
// request ID stamped by the HTTP layer ride along as attributes.
func requestLogger(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx).With("component", "ingest")
}

// patientLock returns the mutex guarding one patient's cache entry.
func (s *Service) patientLock(patientID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[patientID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[patientID] = l
	}
	return l
}

// validateRequest rejects malformed requests before any I/O.
func validateRequest(req *Request) (measure.Kind, error) {
	kind, err := measure.ParseKind(req.MeasurementType)
	if err != nil {
		return 0, err
	}
	if req.PatientID == "" || strings.ContainsAny(req.PatientID, `/\`) {
		return 0, errors.Wrapf(errors.ErrInvalidPatientID, "%q", req.PatientID)
	}
	if req.SelectedDate.IsZero() {
		return 0, errors.Wrap(errors.ErrInvalidDate, "selected date")
	}
	return kind, nil
}

// GetPatientWindow returns the patient's samples for the trailing window
// ending at the selected date, filtered to the requested measurement kind.
//
// The cache is reused where it covers the window; only the incremental
// delta is fetched from the remote source. Batch failures degrade to
// partial data, cache failures degrade to a full re-fetch or an
// unpersisted response. Only validation failures and stream resolution
// failures surface as errors.
func (s *Service) GetPatientWindow(ctx context.Context, req Request) ([]measure.Sample, error) {
	kind, err := validateRequest(&req)
	if err != nil {
		return nil, err
	}

	ctx = logging.ContextWithPatientID(ctx, req.PatientID)
	log := requestLogger(ctx)

	lock := s.patientLock(req.PatientID)
	lock.Lock()
	defer lock.Unlock()

	// Load the cache. Unreadable or corrupt caches degrade to empty,
	// which widens the fetch back to the full window.
	var cached []measure.Sample
	if !req.RepullAll {
		cached, err = s.cache.Load(req.PatientID)
		if err != nil {
			if errors.IsCacheError(err) {
				log.Error("cache unreadable, refetching full window", "error", err)
			} else {
				log.Error("cache load failed", "error", err)
			}
			cached = nil
		}
		cached = measure.NormalizeUTC(cached)
	}

	window, fetchStart := Plan(req.SelectedDate, s.opts.WindowDays, req.RepullAll, cached)

	streams, err := s.resolver.ResolveStreams(ctx, runeapi.StreamFilter{
		PatientID:    req.PatientID,
		Algorithm:    s.opts.Algorithm,
		DeviceID:     s.opts.DeviceID,
		StreamTypeID: s.opts.StreamTypeID,
	})
	if err != nil {
		log.Error("stream resolution failed", "error", err)
		return nil, errors.Wrapf(errors.ErrStreamResolution, "patient %s", req.PatientID)
	}

	if len(streams) == 0 {
		log.Info("no streams for patient", "algorithm", s.opts.Algorithm)
		return windowResult(cached, window, kind, req.Severity), nil
	}

	streamIDs := make([]string, len(streams))
	for i, st := range streams {
		streamIDs[i] = st.ID
	}

	fresh := s.fetchBatches(ctx, streamIDs, fetchStart)

	combined := mergeSamples(cached, fresh)

	// Persist the merged table. A write failure leaves a stale cache but
	// still serves the in-memory result.
	if err := s.cache.Save(req.PatientID, combined); err != nil {
		log.Error("cache save failed", "error", err)
	}

	result := windowResult(combined, window, kind, req.Severity)
	log.Debug("patient window served",
		"measurement", kind.String(),
		"cached", len(cached),
		"fetched", len(fresh),
		"returned", len(result))
	return result, nil
}
