// SPDX-License-Identifier: MIT

// Command studiod runs the recording studio daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/loomverse/studio/internal/ai"
	"github.com/loomverse/studio/internal/api"
	"github.com/loomverse/studio/internal/cache"
	"github.com/loomverse/studio/internal/config"
	"github.com/loomverse/studio/internal/log"
	"github.com/loomverse/studio/internal/media"
	"github.com/loomverse/studio/internal/output"
	"github.com/loomverse/studio/internal/session"
	"github.com/loomverse/studio/internal/store"
	"github.com/loomverse/studio/internal/studio"
	"github.com/loomverse/studio/internal/telemetry"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe defaults until the config is loaded.
	log.Configure(log.Config{
		Level:   "info",
		Service: "studiod",
		Version: version,
	})
	logger := log.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath, version)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", *configPath).
			Msg("failed to load configuration")
	}

	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Service: "studiod",
		Version: version,
	})

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.ListenAddr).
		Str("data_dir", cfg.DataDir).
		Msg("starting studiod")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "startup.data_dir_failed").
			Str("path", cfg.DataDir).
			Msg("cannot create data directory")
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.OTELEnabled,
		ServiceName:    "studiod",
		ServiceVersion: version,
		ExporterType:   cfg.OTELExporter,
		Endpoint:       cfg.OTELEndpoint,
		SamplingRate:   cfg.OTELSampling,
	})
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "telemetry.init_failed").
			Msg("failed to initialise tracing")
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	repo := openRepository(cfg, logger)
	defer func() { _ = repo.Close() }()

	blobs, err := store.NewBlobStore(cfg.BlobsPath())
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "store.blobs_failed").
			Str("path", cfg.BlobsPath()).
			Msg("cannot open blob store")
	}
	defer func() { _ = blobs.Close() }()

	c := openCache(cfg, logger)
	defer c.Close()

	enricher := output.NewEnricher(ai.NewStandIn(ai.StandInOptions{
		Latency: cfg.AILatency,
		Seed:    cfg.AISeed,
		Limiter: rate.NewLimiter(5, 10),
	}))

	st := studio.New(media.NewGateway(media.NewSimDevice()), repo, blobs,
		enricher, c, session.RealClock{}, studio.Options{
			CountdownTicks: cfg.CountdownTicks,
			ChunkInterval:  cfg.ChunkInterval,
		})

	server := api.NewServer(st, api.Options{
		RequestsPerMinute: cfg.RequestsPerMinute,
		Version:           version,
	})

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      server.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("event", "http.listening").
			Str("addr", cfg.ListenAddr).
			Msg("http server listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().
			Str("event", "shutdown.signal").
			Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().
				Err(err).
				Str("event", "http.failed").
				Msg("http server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().
			Err(err).
			Str("event", "shutdown.http_failed").
			Msg("http server shutdown failed")
	}

	// Discard any session still in flight so the capture pipeline tears down.
	if sess, err := st.Session(); err == nil && sess.State().Active() {
		if err := st.DiscardSession(); err != nil {
			logger.Warn().
				Err(err).
				Str("event", "shutdown.session_discard_failed").
				Msg("could not discard active session")
		}
	}

	logger.Info().
		Str("event", "shutdown.complete").
		Msg("studiod stopped")
}

// openRepository opens the SQLite catalog, falling back to the JSON file
// repository when SQLite cannot be opened.
func openRepository(cfg *config.Config, logger zerolog.Logger) store.Repository {
	repo, err := store.NewSQLiteRepository(cfg.RecordsPath())
	if err == nil {
		logger.Info().
			Str("event", "store.opened").
			Str("backend", "sqlite").
			Str("path", cfg.RecordsPath()).
			Msg("recording catalog ready")
		return repo
	}

	logger.Warn().
		Err(err).
		Str("event", "store.sqlite_failed").
		Str("path", cfg.RecordsPath()).
		Msg("sqlite unavailable, using file fallback")

	fb, err := store.NewFallbackRepository(cfg.FallbackPath())
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "store.fallback_failed").
			Str("path", cfg.FallbackPath()).
			Msg("cannot open fallback repository")
	}
	return fb
}

// openCache connects to Redis when configured, otherwise serves from memory.
func openCache(cfg *config.Config, logger zerolog.Logger) cache.Cache {
	if cfg.RedisAddr == "" {
		logger.Info().
			Str("event", "cache.opened").
			Str("backend", "memory").
			Msg("using in-memory cache")
		return cache.NewMemoryCache(time.Minute)
	}

	c, err := cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Warn().
			Err(err).
			Str("event", "cache.redis_failed").
			Str("addr", cfg.RedisAddr).
			Msg("redis unavailable, using in-memory cache")
		return cache.NewMemoryCache(time.Minute)
	}

	logger.Info().
		Str("event", "cache.opened").
		Str("backend", "redis").
		Str("addr", cfg.RedisAddr).
		Msg("using redis cache")
	return c
}
