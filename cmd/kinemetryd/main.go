// kinemetryd serves patient measurement windows over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kinemetry/kinemetry/internal/cache"
	"github.com/kinemetry/kinemetry/internal/handler"
	"github.com/kinemetry/kinemetry/internal/ingest"
	"github.com/kinemetry/kinemetry/internal/loader"
	"github.com/kinemetry/kinemetry/internal/logging"
	"github.com/kinemetry/kinemetry/internal/runeapi"
	"github.com/kinemetry/kinemetry/internal/server"
	"github.com/kinemetry/kinemetry/internal/summary"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// CLI flags
	cfgPath := flag.String("config", "config.yaml", "config file path")
	listen := flag.String("listen", "", "listen address (overrides config)")
	cacheDir := flag.String("cache-dir", "", "cache directory (overrides config)")
	token := flag.String("token", "", "API token (or KINEMETRY_TOKEN env)")
	flag.Parse()

	// Load config
	cfg, err := loader.Load(*cfgPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg = loader.DefaultConfig()
			cfg.ApplyEnvOverrides()
		} else {
			logging.Error("load config", "path", *cfgPath, "error", err)
			os.Exit(1)
		}
	}

	// CLI overrides
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	if *cacheDir != "" {
		cfg.Cache.Dir = *cacheDir
	}

	// Token from flag or env
	apiToken := *token
	if apiToken == "" {
		apiToken = os.Getenv("KINEMETRY_TOKEN")
	}
	if apiToken != "" {
		cfg.API.Token = apiToken
	}

	if err := loader.Validate(cfg); err != nil {
		logging.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logging.Init(parseLevel(cfg.Log.Level), cfg.Log.JSON)
	logging.Info("kinemetryd starting", "version", Version)

	// =========================================================================
	// Remote API Client
	// =========================================================================

	client := runeapi.New(runeapi.Config{
		BaseURL:  cfg.API.BaseURL,
		Token:    cfg.API.Token,
		Timeout:  cfg.API.Timeout.Duration(),
		Retries:  cfg.API.Retries,
		PageSize: cfg.Fetch.PageSize,
	})

	// =========================================================================
	// Patient Cache (parquet, one file per patient)
	// =========================================================================

	store := cache.NewStore(cfg.Cache.Dir, cache.Options{
		Compression: cache.ParseCompressionType(cfg.Cache.Compression),
	})

	// =========================================================================
	// Fetch Pipeline and Summary Service
	// =========================================================================

	windows := ingest.NewService(client, client, store, ingest.Options{
		WindowDays:   cfg.Fetch.WindowDays,
		BatchSize:    cfg.Fetch.BatchSize,
		Workers:      cfg.Fetch.Workers,
		BatchTimeout: cfg.Fetch.BatchTimeout.Duration(),
		Algorithm:    cfg.API.Algorithm,
		DeviceID:     cfg.API.DeviceID,
		StreamTypeID: cfg.API.StreamTypeID,
	})

	summaries, err := summary.New(store)
	if err != nil {
		logging.Error("create summary service", "error", err)
		os.Exit(1)
	}
	defer summaries.Close()

	// =========================================================================
	// HTTP Server
	// =========================================================================

	h := handler.NewHandler(windows, summaries, cfg.Fetch.WindowDays, cfg.Fetch.Resample)

	srv := server.New(&server.Config{
		Listen:          cfg.Server.Listen,
		CORSOrigins:     cfg.Server.CORSOrigins,
		ShutdownTimeout: cfg.Server.ShutdownTimeout.Duration(),
	}, h)

	// =========================================================================
	// Signal Handling and Run
	// =========================================================================

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info("serving",
		"address", cfg.Server.Listen,
		"cache_dir", cfg.Cache.Dir,
		"window_days", cfg.Fetch.WindowDays,
		"resample", cfg.Fetch.Resample)

	if err := srv.Run(ctx); err != nil {
		logging.Error("server error", "error", err)
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
