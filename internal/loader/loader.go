// Package loader handles configuration file loading and validation.
//
// LOCATION: internal/loader/loader.go
//
// This package is responsible for:
//   - Loading YAML configuration files
//   - Expanding environment variables
//   - Applying environment overrides (HOST, PORT)
//   - Validating the resulting configuration

package loader

import (
	"fmt"
	"net"
	"os"

	"github.com/kinemetry/kinemetry/internal/errors"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Load
// =============================================================================

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	// Start with defaults
	cfg := DefaultConfig()

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyEnvOverrides()

	return cfg, nil
}

// ApplyEnvOverrides applies HOST/PORT environment overrides to the listen
// address. Either side may be overridden independently.
func (c *Config) ApplyEnvOverrides() {
	host, port := os.Getenv("HOST"), os.Getenv("PORT")
	if host == "" && port == "" {
		return
	}

	curHost, curPort, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		curHost, curPort = "0.0.0.0", "8000"
	}
	if host == "" {
		host = curHost
	}
	if port == "" {
		port = curPort
	}
	c.Server.Listen = net.JoinHostPort(host, port)
}

// =============================================================================
// Validate
// =============================================================================

// Validate validates the configuration.
func Validate(cfg *Config) error {
	errs := errors.NewValidationErrors()

	// Server validation
	if cfg.Server.Listen == "" {
		errs.AddField("server.listen", "cannot be empty")
	}

	// API validation
	if cfg.API.BaseURL == "" {
		errs.AddField("api.base_url", "cannot be empty")
	}
	if cfg.API.Token == "" {
		errs.AddField("api.token", "cannot be empty")
	}
	if cfg.API.Algorithm == "" {
		errs.AddField("api.algorithm", "cannot be empty")
	}
	if cfg.API.StreamTypeID == "" {
		errs.AddField("api.stream_type_id", "cannot be empty")
	}
	if cfg.API.Retries < 0 {
		errs.AddField("api.retries", "cannot be negative")
	}

	// Cache validation
	if cfg.Cache.Dir == "" {
		errs.AddField("cache.dir", "cannot be empty")
	}

	// Fetch validation
	if cfg.Fetch.WindowDays <= 0 {
		errs.AddField("fetch.window_days", "must be positive")
	}
	if cfg.Fetch.BatchSize <= 0 {
		errs.AddField("fetch.batch_size", "must be positive")
	}
	if cfg.Fetch.Workers <= 0 {
		errs.AddField("fetch.workers", "must be positive")
	}
	if cfg.Fetch.BatchTimeout <= 0 {
		errs.AddField("fetch.batch_timeout", "must be positive")
	}
	if cfg.Fetch.PageSize <= 0 {
		errs.AddField("fetch.page_size", "must be positive")
	}
	switch cfg.Fetch.Resample {
	case ResampleRaw, ResampleHourlyMean:
	default:
		errs.Add(errors.NewInvalidValue("fetch.resample", cfg.Fetch.Resample,
			fmt.Sprintf("must be %q or %q", ResampleRaw, ResampleHourlyMean)))
	}

	// Log validation
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs.Add(errors.NewInvalidValue("log.level", cfg.Log.Level,
			"must be one of debug, info, warn, error"))
	}

	return errs.Err()
}
