// Package main provides the tracker command-line client.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/trackerhq/tracker/internal/app"
	"github.com/trackerhq/tracker/internal/cli"
	"github.com/trackerhq/tracker/internal/config"
	"github.com/trackerhq/tracker/internal/logging"
	"github.com/trackerhq/tracker/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "tracker"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "tracker:", err)
		return 1
	}

	global := pflag.NewFlagSet("tracker", pflag.ContinueOnError)
	global.SetInterspersed(false)
	global.StringVar(&cfg.APIURL, "api-url", cfg.APIURL, "Tracker backend base URL")
	global.StringVar(&cfg.CollabAddr, "collab-addr", cfg.CollabAddr, "shared timeline endpoint (empty keeps timelines locally)")
	global.StringVar(&cfg.SettingsPath, "settings", cfg.SettingsPath, "settings file")
	global.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	global.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "console or json")
	if err := global.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, "tracker:", err)
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "tracker:", err)
		return 2
	}

	log := logging.New(logging.Options{
		Service: serviceName,
		Version: Version,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
	log.Debug().Str("build_time", BuildTime).Str("api_url", cfg.APIURL).Msg("starting tracker")

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
		log.Error().Err(err).Msg("failed to initialize telemetry")
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	a, err := app.New(ctx, app.Options{Config: cfg, Logger: log, Version: Version})
	if err != nil {
		log.Error().Err(err).Msg("failed to start client")
		return 1
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close client")
		}
	}()

	shell := cli.NewShell(cli.ShellConfig{App: a})
	if err := cli.Root(shell).Execute(ctx, os.Stderr, global.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "tracker:", err)
		if errors.Is(err, cli.ErrUsage) {
			return 2
		}
		return 1
	}
	return 0
}
