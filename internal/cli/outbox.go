package cli

import (
	"context"

	"github.com/spf13/pflag"
)

func (s *Shell) outboxCommand() *Command {
	return &Command{
		Name:    "outbox",
		Summary: "Inspect and replay queued backend writes",
		Subcommands: []*Command{
			{
				Name:    "list",
				Summary: "Show pending status writes",
				Run: func(ctx context.Context, _ *pflag.FlagSet, _ []string) error {
					entries, err := s.app.Outbox.Pending(ctx)
					if err != nil {
						return err
					}
					if len(entries) == 0 {
						s.faint("Nothing pending.")
					}
					for _, e := range entries {
						s.printf("  %s  %s  %s\n", e.IssueID, s.issueBadge(e.Status),
							s.styles.Faint.Render(formatTime(e.UpdatedAt)))
						if e.LastError != "" {
							s.printf("    %s\n", s.styles.Faint.Render(e.LastError))
						}
					}
					return nil
				},
			},
			{
				Name:    "flush",
				Summary: "Replay pending status writes now",
				Run: func(ctx context.Context, _ *pflag.FlagSet, _ []string) error {
					result, err := s.app.Reconciler.Flush(ctx)
					if err != nil {
						return err
					}
					s.printf("attempted %d, written %d, dropped %d, failed %d\n",
						result.Attempted, result.Succeeded, result.Dropped, result.Failed)
					return nil
				},
			},
		},
	}
}
