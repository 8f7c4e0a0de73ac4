// Package config provides configuration defaults and utilities
// for the kinemetry application.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via config.yaml or environment variables.
package config

import "time"

// =============================================================================
// Network Defaults
// =============================================================================

const (
	// DefaultListenAddress is the default HTTP listen address.
	// Override via config: server.listen (or HOST/PORT environment variables)
	DefaultListenAddress = "0.0.0.0:8000"

	// DefaultCORSOrigin is the dashboard origin allowed by default.
	// Override via config: server.cors_origins
	DefaultCORSOrigin = "http://localhost:3000"

	// DefaultShutdownTimeoutSec is how long to wait for in-flight requests
	// during shutdown before forcing the listener closed.
	// Override via config: server.shutdown_timeout
	DefaultShutdownTimeoutSec = 30
)

// =============================================================================
// Window Defaults
// =============================================================================

const (
	// DefaultWindowDays is the length of the trailing measurement window
	// served for a patient, ending at the selected date.
	// Override via config: fetch.window_days
	DefaultWindowDays = 30
)

// =============================================================================
// Fetch Defaults
// =============================================================================

const (
	// DefaultBatchSize is the number of stream IDs fetched per upstream call.
	// Override via config: fetch.batch_size
	DefaultBatchSize = 10

	// DefaultFetchWorkers caps the number of batch fetches in flight at once.
	// Override via config: fetch.workers
	DefaultFetchWorkers = 8

	// DefaultBatchTimeout bounds a single batch fetch against the remote API.
	// A batch that exceeds this contributes no rows; its siblings proceed.
	// Override via config: fetch.batch_timeout
	DefaultBatchTimeout = 60 * time.Second

	// DefaultFetchPageSize is the number of points requested per page when
	// paginating a stream batch.
	// Override via config: fetch.page_size
	DefaultFetchPageSize = 10000
)

// =============================================================================
// Remote API Defaults
// =============================================================================

const (
	// DefaultAlgorithm selects the measurement pipeline whose streams are
	// resolved for a patient.
	// Override via config: api.algorithm
	DefaultAlgorithm = "ingest-strive-applewatch-md.0"

	// DefaultDeviceID selects which of the patient's devices to include.
	// Override via config: api.device_id
	DefaultDeviceID = "all"

	// DefaultStreamTypeID selects the stream type resolved for a patient.
	// Override via config: api.stream_type_id
	DefaultStreamTypeID = "percentage"

	// DefaultAPITimeoutSec is the timeout for a single remote API request.
	// Override via config: api.timeout
	DefaultAPITimeoutSec = 30

	// DefaultAPIRetries is the number of retry attempts after a failed
	// remote API request.
	// Override via config: api.retries
	DefaultAPIRetries = 2
)

// =============================================================================
// Cache Defaults
// =============================================================================

const (
	// DefaultCacheDir is where per-patient measurement caches are stored.
	// Override via config: cache.dir
	DefaultCacheDir = "data/api"

	// DefaultCacheCompression is the parquet compression codec for cache files.
	// Override via config: cache.compression
	DefaultCacheCompression = "zstd"
)
