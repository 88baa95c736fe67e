package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/trackerhq/tracker/internal/playbook"
)

func (s *Shell) playbooksCommand() *Command {
	return &Command{
		Name:    "playbooks",
		Summary: "Manage response playbooks",
		Subcommands: []*Command{
			{
				Name:    "list",
				Summary: "List playbooks",
				Run: func(ctx context.Context, _ *pflag.FlagSet, _ []string) error {
					pbs, err := s.app.Playbooks.List(ctx)
					if err != nil {
						return err
					}
					if len(pbs) == 0 {
						s.faint("No playbooks.")
					}
					for _, pb := range pbs {
						s.printf("  %s  %s  %s\n", s.styles.Faint.Render(pb.ID), pb.Name,
							s.styles.Faint.Render(fmt.Sprintf("%d steps", len(pb.Steps))))
					}
					return nil
				},
			},
			s.playbookCreateCommand(),
			{
				Name:    "show",
				Summary: "Show a playbook's steps",
				Usage:   "<id>",
				Run: func(ctx context.Context, _ *pflag.FlagSet, args []string) error {
					if err := exactArgs(args, 1, "<id>"); err != nil {
						return err
					}
					pb, err := s.app.Playbooks.Get(ctx, args[0])
					if err != nil {
						return err
					}
					s.printPlaybook(pb)
					return nil
				},
			},
			s.playbookUpdateCommand(),
		},
	}
}

func (s *Shell) playbookCreateCommand() *Command {
	var name string
	var steps []string
	return &Command{
		Name:    "create",
		Summary: "Create a playbook",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("create", pflag.ContinueOnError)
			fs.StringVarP(&name, "name", "n", "", "playbook name")
			fs.StringArrayVarP(&steps, "step", "s", nil, "step text, repeat for each step")
			return fs
		},
		Run: func(ctx context.Context, _ *pflag.FlagSet, _ []string) error {
			pbSteps := make([]playbook.Step, len(steps))
			for i, text := range steps {
				pbSteps[i] = playbook.Step{Content: text}
			}
			pb, err := s.app.Playbooks.Create(ctx, name, pbSteps)
			if errors.Is(err, playbook.ErrNameRequired) {
				return fmt.Errorf("%w: --name is required", ErrUsage)
			}
			if err != nil {
				return err
			}
			s.printPlaybook(pb)
			return nil
		},
	}
}

func (s *Shell) playbookUpdateCommand() *Command {
	var (
		name   string
		steps  []string
		add    []string
		remove []int
	)
	return &Command{
		Name:    "update",
		Summary: "Rename a playbook or change its steps",
		Usage:   "<id>",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("update", pflag.ContinueOnError)
			fs.StringVarP(&name, "name", "n", "", "new name")
			fs.StringArrayVarP(&steps, "step", "s", nil, "replace all steps, repeat for each step")
			fs.StringArrayVar(&add, "add-step", nil, "append a step")
			fs.IntSliceVar(&remove, "remove-step", nil, "remove the step at this index")
			return fs
		},
		Run: func(ctx context.Context, fs *pflag.FlagSet, args []string) error {
			if err := exactArgs(args, 1, "<id>"); err != nil {
				return err
			}
			pb, err := s.app.Playbooks.Get(ctx, args[0])
			if err != nil {
				return err
			}

			editor := playbook.NewEditor(s.app.Playbooks, pb)
			editor.Begin()
			if err := applyPlaybookEdits(editor, fs, name, steps, add, remove); err != nil {
				editor.Cancel()
				return fmt.Errorf("%w: %v", ErrUsage, err)
			}

			saved, err := editor.Save(ctx)
			if errors.Is(err, playbook.ErrNameRequired) {
				editor.Cancel()
				return fmt.Errorf("%w: playbook name must not be blank", ErrUsage)
			}
			if err != nil {
				return err
			}
			s.printPlaybook(saved)
			return nil
		},
	}
}

// applyPlaybookEdits replays flag edits on the editor buffer: rename, then
// replace, then remove by index (highest first), then append.
func applyPlaybookEdits(editor *playbook.Editor, fs *pflag.FlagSet, name string, steps, add []string, remove []int) error {
	if fs.Changed("name") {
		if err := editor.SetName(name); err != nil {
			return err
		}
	}

	if len(steps) > 0 {
		_, current := editor.Draft()
		for i, text := range steps {
			if i >= len(current) {
				if err := editor.AddStep(); err != nil {
					return err
				}
			}
			if err := editor.SetStep(i, text); err != nil {
				return err
			}
		}
		for i := len(current) - 1; i >= len(steps); i-- {
			if err := editor.RemoveStep(i); err != nil {
				return err
			}
		}
	}

	sorted := slices.Clone(remove)
	slices.Sort(sorted)
	slices.Reverse(sorted)
	for _, i := range sorted {
		if err := editor.RemoveStep(i); err != nil {
			return err
		}
	}

	for _, text := range add {
		if err := editor.AddStep(); err != nil {
			return err
		}
		_, current := editor.Draft()
		if err := editor.SetStep(len(current)-1, text); err != nil {
			return err
		}
	}
	return nil
}

func (s *Shell) printPlaybook(pb playbook.Playbook) {
	s.printf("%s  %s\n", s.styles.Title.Render(pb.Name), s.styles.Faint.Render(pb.ID))
	for i, step := range pb.Steps {
		s.printf("  %s %s\n", s.styles.Faint.Render(strconv.Itoa(i)+"."), step.Content)
	}
}
