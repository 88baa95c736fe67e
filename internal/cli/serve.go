package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/pflag"

	"github.com/trackerhq/tracker/internal/web/middleware"
)

func (s *Shell) serveCommand() *Command {
	var (
		addr        string
		allowRemote bool
	)
	return &Command{
		Name:    "serve",
		Summary: "Run the local web shell",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
			fs.StringVar(&addr, "addr", s.app.Config.ListenAddr, "listen address")
			fs.BoolVar(&allowRemote, "allow-remote", false, "answer requests for non-loopback host names")
			return fs
		},
		Run: func(ctx context.Context, _ *pflag.FlagSet, _ []string) error {
			metrics, err := middleware.NewMetrics()
			if err != nil {
				return fmt.Errorf("initialize metrics: %w", err)
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			s.printf("Serving on http://%s\n", ln.Addr())
			return s.serve(ctx, ln, s.app.Router(metrics, !allowRemote))
		},
	}
}

// serve runs the web shell with the health poller and outbox reconciler
// until ctx is cancelled, then shuts the server down gracefully.
func (s *Shell) serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	log := s.app.Logger
	server := &http.Server{
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	bgCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := s.app.Poller.Run(bgCtx); err != nil {
			log.Error().Err(err).Msg("health poller failed")
		}
	}()
	go func() {
		if err := s.app.Reconciler.Run(bgCtx); err != nil {
			log.Error().Err(err).Msg("outbox reconciler failed")
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("web shell listening")
		serveErr <- server.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down web shell")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("web shell stopped")
	return nil
}
