package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/trackerhq/tracker/internal/healthcheck"
)

func (s *Shell) healthCommand() *Command {
	return &Command{
		Name:    "health",
		Summary: "Monitor health endpoints",
		Subcommands: []*Command{
			{
				Name:    "list",
				Summary: "Show endpoint status",
				Run: func(ctx context.Context, _ *pflag.FlagSet, _ []string) error {
					snap := s.app.Poller.Poll(ctx)
					s.printSnapshot(snap)
					return snap.Err
				},
			},
			s.healthRegisterCommand(),
			s.healthUpdateCommand(),
			s.deleteCommand("Stop monitoring an endpoint", "endpoint", s.app.Health.Delete, func(ctx context.Context) error {
				snap := s.app.Poller.Poll(ctx)
				s.printSnapshot(snap)
				return snap.Err
			}),
			{
				Name:    "watch",
				Summary: "Poll endpoint status until interrupted",
				Run: func(ctx context.Context, _ *pflag.FlagSet, _ []string) error {
					snaps, unsubscribe := s.app.Poller.Subscribe()
					defer unsubscribe()

					done := make(chan error, 1)
					go func() { done <- s.app.Poller.Run(ctx) }()

					for {
						select {
						case snap := <-snaps:
							s.printSnapshot(snap)
							s.printf("\n")
						case err := <-done:
							return err
						}
					}
				},
			},
		},
	}
}

func registrationFlags(name string, reg *healthcheck.Registration) func() *pflag.FlagSet {
	return func() *pflag.FlagSet {
		fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
		fs.StringVarP(&reg.Name, "name", "n", "", "display name")
		fs.StringVarP(&reg.URL, "url", "u", "", "absolute http(s) URL to check")
		fs.IntVar(&reg.Threshold, "threshold", 0, fmt.Sprintf("failures before the endpoint is down (default %d)", healthcheck.DefaultThreshold))
		fs.IntVar(&reg.Interval, "interval", 0, fmt.Sprintf("seconds between checks (default %d)", healthcheck.DefaultInterval))
		return fs
	}
}

func (s *Shell) healthRegisterCommand() *Command {
	var reg healthcheck.Registration
	return &Command{
		Name:    "register",
		Summary: "Start monitoring an endpoint",
		Flags:   registrationFlags("register", &reg),
		Run: func(ctx context.Context, _ *pflag.FlagSet, _ []string) error {
			ep, err := s.app.Health.Register(ctx, reg)
			if err != nil {
				return registrationErr(err)
			}
			s.printEndpoint(ep)
			return nil
		},
	}
}

func (s *Shell) healthUpdateCommand() *Command {
	var reg healthcheck.Registration
	return &Command{
		Name:    "update",
		Summary: "Change an endpoint's name, URL or check settings",
		Usage:   "<id>",
		Flags:   registrationFlags("update", &reg),
		Run: func(ctx context.Context, fs *pflag.FlagSet, args []string) error {
			if err := exactArgs(args, 1, "<id>"); err != nil {
				return err
			}
			current, err := s.app.Health.Find(ctx, args[0])
			if err != nil {
				return err
			}

			merged := healthcheck.Registration{
				Name:      current.Name,
				URL:       current.URL,
				Threshold: current.Threshold,
				Interval:  current.Interval,
			}
			if fs.Changed("name") {
				merged.Name = reg.Name
			}
			if fs.Changed("url") {
				merged.URL = reg.URL
			}
			if fs.Changed("threshold") {
				merged.Threshold = reg.Threshold
			}
			if fs.Changed("interval") {
				merged.Interval = reg.Interval
			}

			if err := s.app.Health.Update(ctx, args[0], merged); err != nil {
				return registrationErr(err)
			}
			s.faint("endpoint %s updated", args[0])
			return nil
		},
	}
}

func registrationErr(err error) error {
	for _, usage := range []error{
		healthcheck.ErrNameRequired,
		healthcheck.ErrURLRequired,
		healthcheck.ErrInvalidURL,
		healthcheck.ErrInvalidSettings,
	} {
		if errors.Is(err, usage) {
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
	}
	return err
}

func (s *Shell) printSnapshot(snap healthcheck.Snapshot) {
	if snap.Err != nil {
		s.printf("%s\n", s.styles.Error.Render("could not load endpoints: "+snap.Err.Error()))
		return
	}
	if len(snap.Endpoints) == 0 {
		s.faint("No endpoints registered.")
	}
	for _, ep := range snap.Endpoints {
		s.printEndpoint(ep)
	}
	s.faint("updated %s, next check in %s", formatTime(snap.FetchedAt), snap.Cadence)
}

func (s *Shell) printEndpoint(ep healthcheck.Endpoint) {
	s.printf("%s  %s  %s  %s\n", s.endpointBadge(ep.Status), ep.Name, s.styles.Faint.Render(ep.URL), s.styles.Faint.Render(ep.ID))
	detail := fmt.Sprintf("failures %d/%d, every %ds", ep.FailCount, ep.Threshold, ep.Interval)
	if ep.Reason != "" {
		detail += ", " + ep.Reason
	}
	s.printf("    %s\n", s.styles.Faint.Render(detail))
}
