// Package main provides the tracker outbox worker. It replays status writes
// that the shells queued while the backend was unreachable.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trackerhq/tracker/internal/app"
	"github.com/trackerhq/tracker/internal/collab"
	"github.com/trackerhq/tracker/internal/config"
	"github.com/trackerhq/tracker/internal/logging"
	"github.com/trackerhq/tracker/internal/telemetry"
	"github.com/trackerhq/tracker/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "tracker-worker"

	cfg, err := config.Load()
	log := logging.New(logging.Options{
		Service: serviceName,
		Version: Version,
		Level:   cfg.LogLevel,
		Format:  config.LogFormatJSON,
		Output:  os.Stdout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.OutboxDSN == "" {
		log.Fatal().Msg("DATABASE_URL is required: the worker reads the shared postgres outbox")
	}

	workerCfg, err := worker.ConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid worker configuration")
	}

	log.Info().
		Str("build_time", BuildTime).
		Dur("interval", workerCfg.Interval).
		Msg("starting tracker worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TelemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	// The worker never opens timelines, so no shared-document connection.
	a, err := app.New(ctx, app.Options{
		Config:  cfg,
		Logger:  log,
		Version: Version,
		Opener:  collab.NewMemoryOpener(),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to start client")
		return
	}
	defer a.Close()

	job := worker.NewFlushJob(worker.FlushJobConfig{
		Config:  workerCfg,
		Flusher: a.Reconciler,
		Logger:  log,
	})

	mux := http.NewServeMux()
	mux.Handle("/health", worker.HealthHandler(Version, job))
	server := &http.Server{
		Addr:         ":" + workerCfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
			stop()
		}
	}()

	job.Run(ctx)

	log.Info().Msg("shutting down worker")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}
	log.Info().Msg("worker stopped")
}
