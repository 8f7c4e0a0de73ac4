// Package loader - Configuration Types
//
// LOCATION: internal/loader/types.go
//
// Defines the YAML configuration structure for kinemetryd.
//
// ARCHITECTURE:
//
//	┌────────────────────────────────────────────────────────────┐
//	│                       config.yaml                          │
//	├────────────────────────────────────────────────────────────┤
//	│                                                            │
//	│  server:  Listen address, CORS, shutdown behavior          │
//	│  api:     Remote measurement API (base URL, token,         │
//	│           stream selection defaults, timeouts)             │
//	│  cache:   Per-patient parquet cache (dir, compression)     │
//	│  fetch:   Window length, batch fan-out, resample mode      │
//	│  log:     Level, output format                             │
//	│                                                            │
//	└────────────────────────────────────────────────────────────┘

package loader

import (
	"time"

	"github.com/kinemetry/kinemetry/config"
)

// =============================================================================
// Root Configuration
// =============================================================================

// Config is the root configuration structure for kinemetryd.
type Config struct {
	// Server configures the HTTP serving surface.
	Server ServerConfig `yaml:"server"`

	// API configures the remote measurement API client.
	API APIConfig `yaml:"api"`

	// Cache configures the per-patient measurement cache.
	Cache CacheConfig `yaml:"cache"`

	// Fetch configures the windowed fetch pipeline.
	Fetch FetchConfig `yaml:"fetch"`

	// Log configures logging output.
	Log LogConfig `yaml:"log"`
}

// =============================================================================
// Server Configuration
// =============================================================================

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Listen is the HTTP listen address.
	// Format: "host:port" or ":port"
	// Default: "0.0.0.0:8000"
	Listen string `yaml:"listen"`

	// CORSOrigins lists the origins allowed by the CORS middleware.
	// Default: ["http://localhost:3000"]
	CORSOrigins []string `yaml:"cors_origins"`

	// ShutdownTimeout is how long to wait for in-flight requests
	// during shutdown.
	// Default: 30s
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// =============================================================================
// Remote API Configuration
// =============================================================================

// APIConfig configures the remote measurement API client.
type APIConfig struct {
	// BaseURL is the root URL of the measurement API.
	BaseURL string `yaml:"base_url"`

	// Token is the bearer token for API access.
	// Use environment variables: "${KINEMETRY_TOKEN}"
	Token string `yaml:"token"`

	// Algorithm selects the measurement pipeline whose streams
	// are resolved for a patient.
	// Default: "ingest-strive-applewatch-md.0"
	Algorithm string `yaml:"algorithm"`

	// DeviceID selects which of the patient's devices to include.
	// Default: "all"
	DeviceID string `yaml:"device_id"`

	// StreamTypeID selects the stream type resolved for a patient.
	// Default: "percentage"
	StreamTypeID string `yaml:"stream_type_id"`

	// Timeout is the timeout for a single API request.
	// Default: 30s
	Timeout Duration `yaml:"timeout"`

	// Retries is the number of retry attempts after a failed request.
	// Default: 2
	Retries int `yaml:"retries"`
}

// =============================================================================
// Cache Configuration
// =============================================================================

// CacheConfig configures the per-patient parquet cache.
type CacheConfig struct {
	// Dir is the cache directory. One parquet file per patient.
	// Default: "data/api"
	Dir string `yaml:"dir"`

	// Compression is the parquet compression algorithm.
	//   snappy - Fast compression/decompression, moderate ratio
	//   zstd   - Best ratio, good speed (recommended)
	//   lz4    - Fastest, lowest ratio
	//   none   - No compression
	// Default: zstd
	Compression string `yaml:"compression"`
}

// =============================================================================
// Fetch Configuration
// =============================================================================

// FetchConfig configures the windowed fetch pipeline.
type FetchConfig struct {
	// WindowDays is the length of the trailing window served for
	// a patient, ending at the selected date.
	// Default: 30
	WindowDays int `yaml:"window_days"`

	// BatchSize is the number of stream IDs fetched per upstream call.
	// Default: 10
	BatchSize int `yaml:"batch_size"`

	// Workers caps the number of batch fetches in flight at once.
	// Default: 8
	Workers int `yaml:"workers"`

	// BatchTimeout bounds a single batch fetch. A batch that exceeds
	// this contributes no rows; its siblings proceed.
	// Default: 60s
	BatchTimeout Duration `yaml:"batch_timeout"`

	// PageSize is the number of points requested per page when
	// paginating a stream batch.
	// Default: 10000
	PageSize int `yaml:"page_size"`

	// Resample selects the shape of the served window.
	//   rawSamples - every deduplicated sample in the window (default)
	//   hourlyMean - one row per hour with the mean percentage
	Resample string `yaml:"resample"`
}

// Resample modes.
const (
	ResampleRaw        = "rawSamples"
	ResampleHourlyMean = "hourlyMean"
)

// =============================================================================
// Log Configuration
// =============================================================================

// LogConfig configures logging output.
type LogConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	// Default: info
	Level string `yaml:"level"`

	// JSON selects JSON output instead of human-readable text.
	// Default: false
	JSON bool `yaml:"json"`
}

// =============================================================================
// Defaults
// =============================================================================

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:          config.DefaultListenAddress,
			CORSOrigins:     []string{config.DefaultCORSOrigin},
			ShutdownTimeout: Duration(config.DefaultShutdownTimeoutSec * time.Second),
		},

		API: APIConfig{
			Algorithm:    config.DefaultAlgorithm,
			DeviceID:     config.DefaultDeviceID,
			StreamTypeID: config.DefaultStreamTypeID,
			Timeout:      Duration(config.DefaultAPITimeoutSec * time.Second),
			Retries:      config.DefaultAPIRetries,
		},

		Cache: CacheConfig{
			Dir:         config.DefaultCacheDir,
			Compression: config.DefaultCacheCompression,
		},

		Fetch: FetchConfig{
			WindowDays:   config.DefaultWindowDays,
			BatchSize:    config.DefaultBatchSize,
			Workers:      config.DefaultFetchWorkers,
			BatchTimeout: Duration(config.DefaultBatchTimeout),
			PageSize:     config.DefaultFetchPageSize,
			Resample:     ResampleRaw,
		},

		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// Custom Types
// =============================================================================

// Duration is a time.Duration that can be unmarshaled from YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		// Try as int (seconds)
		var i int
		if err := unmarshal(&i); err != nil {
			return err
		}
		*d = Duration(time.Duration(i) * time.Second)
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
