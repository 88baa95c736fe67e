package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/pflag"
)

func (s *Shell) checklistCommand() *Command {
	return &Command{
		Name:    "checklist",
		Summary: "Track playbook progress on an issue",
		Subcommands: []*Command{
			{
				Name:    "toggle",
				Summary: "Check or uncheck a playbook step for an issue",
				Usage:   "<issue-id> <playbook-id> <step>",
				Run: func(ctx context.Context, _ *pflag.FlagSet, args []string) error {
					if err := exactArgs(args, 3, "<issue-id> <playbook-id> <step>"); err != nil {
						return err
					}
					step, err := strconv.Atoi(args[2])
					if err != nil || step < 0 {
						return fmt.Errorf("%w: step must be a non-negative integer", ErrUsage)
					}
					checked, err := s.app.Checklists.Toggle(ctx, args[0], args[1], step)
					if err != nil {
						return err
					}
					state := "unchecked"
					if checked[step] {
						state = "checked"
					}
					s.printf("step %d %s\n", step, state)
					return nil
				},
			},
		},
	}
}
