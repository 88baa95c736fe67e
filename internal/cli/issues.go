package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/trackerhq/tracker/internal/issue"
	"github.com/trackerhq/tracker/internal/markdown"
	"github.com/trackerhq/tracker/internal/timeline"
)

func (s *Shell) issuesCommand() *Command {
	return &Command{
		Name:    "issues",
		Summary: "List, open and update incident issues",
		Subcommands: []*Command{
			{
				Name:    "list",
				Summary: "Show open and closed issues",
				Run: func(ctx context.Context, _ *pflag.FlagSet, _ []string) error {
					board, err := s.app.Issues.Board(ctx)
					if err != nil {
						return err
					}
					s.printBoard(board)
					return nil
				},
			},
			{
				Name:    "create",
				Summary: "Open a new issue",
				Usage:   "<name>",
				Run: func(ctx context.Context, _ *pflag.FlagSet, args []string) error {
					board, err := s.app.Issues.CreateAndRefresh(ctx, strings.Join(args, " "))
					if errors.Is(err, issue.ErrNameRequired) {
						return fmt.Errorf("%w: issue name is required", ErrUsage)
					}
					if err != nil {
						return err
					}
					s.printBoard(board)
					return nil
				},
			},
			s.issueShowCommand(),
			{
				Name:    "status",
				Summary: "Mark an issue ongoing or resolved",
				Usage:   "<id> ongoing|resolved",
				Run: func(ctx context.Context, _ *pflag.FlagSet, args []string) error {
					if err := exactArgs(args, 2, "<id> ongoing|resolved"); err != nil {
						return err
					}
					status, err := issue.ParseStatus(args[1])
					if err != nil {
						return fmt.Errorf("%w: %v", ErrUsage, err)
					}
					feed, err := s.app.Feeds.Feed(ctx, args[0])
					if err != nil {
						return err
					}

					err = feed.ChangeStatus(ctx, status)
					var writeErr *timeline.StatusWriteError
					if errors.As(err, &writeErr) && writeErr.Queued {
						s.printf("%s %s\n", s.issueBadge(status), s.styles.Faint.Render("backend unreachable, write queued"))
						return nil
					}
					if err != nil {
						return err
					}
					s.printf("%s\n", s.issueBadge(status))
					return nil
				},
			},
			{
				Name:        "event",
				Summary:     "Add or edit timeline events",
				Subcommands: []*Command{s.eventAddCommand(), s.eventEditCommand()},
			},
		},
	}
}

func (s *Shell) issueShowCommand() *Command {
	var playbookID string
	return &Command{
		Name:    "show",
		Summary: "Show an issue with its timeline",
		Usage:   "<id>",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("show", pflag.ContinueOnError)
			fs.StringVarP(&playbookID, "playbook", "p", "", "also show this playbook's checklist")
			return fs
		},
		Run: func(ctx context.Context, _ *pflag.FlagSet, args []string) error {
			if err := exactArgs(args, 1, "<id>"); err != nil {
				return err
			}
			feed, err := s.app.Feeds.Feed(ctx, args[0])
			if err != nil {
				return err
			}
			_ = feed.LoadIssue(ctx)
			s.printTimeline(feed.View())

			if playbookID == "" {
				return nil
			}
			pb, err := s.app.Playbooks.Get(ctx, playbookID)
			if err != nil {
				return err
			}
			s.printf("\n")
			s.heading("Checklist: " + pb.Name)
			for _, item := range s.app.Checklists.Items(feed.IssueID(), pb) {
				box := "[ ]"
				if item.Checked {
					box = "[x]"
				}
				s.printf("%s %d. %s\n", box, item.Index, item.Content)
			}
			return nil
		},
	}
}

func (s *Shell) eventAddCommand() *Command {
	var author string
	return &Command{
		Name:    "add",
		Summary: "Append an event to an issue timeline",
		Usage:   "<issue-id> <text>",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("add", pflag.ContinueOnError)
			fs.StringVarP(&author, "author", "a", "", "event author (defaults to the saved author)")
			return fs
		},
		Run: func(ctx context.Context, _ *pflag.FlagSet, args []string) error {
			if len(args) < 2 {
				return fmt.Errorf("%w: expected <issue-id> <text>", ErrUsage)
			}
			feed, err := s.app.Feeds.Feed(ctx, args[0])
			if err != nil {
				return err
			}

			name := author
			if name == "" {
				name = feed.Author()
			}
			added, err := feed.Append(ctx, name, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			if !added {
				return fmt.Errorf("%w: author and text must not be blank", ErrUsage)
			}
			s.faint("event added to %s as %s", feed.IssueID(), strings.TrimSpace(name))
			return nil
		},
	}
}

func (s *Shell) eventEditCommand() *Command {
	var file string
	return &Command{
		Name:    "edit",
		Summary: "Replace the text of a timeline event",
		Usage:   "<issue-id> <event-id> [text]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("edit", pflag.ContinueOnError)
			fs.StringVarP(&file, "file", "f", "", "read the new text from a file, or - for stdin")
			return fs
		},
		Run: func(ctx context.Context, _ *pflag.FlagSet, args []string) error {
			if len(args) < 2 {
				return fmt.Errorf("%w: expected <issue-id> <event-id> [text]", ErrUsage)
			}
			feed, err := s.app.Feeds.Feed(ctx, args[0])
			if err != nil {
				return err
			}

			feed.BeginEdit(args[1])
			text, err := s.editText(args[2:], file)
			if err != nil {
				feed.CancelEdit()
				return err
			}
			if text == "" {
				// No replacement given: show the current text for copying.
				_, current, _ := feed.Editing()
				feed.CancelEdit()
				s.printf("%s\n", current)
				return nil
			}
			feed.SetEditText(text)
			return feed.SaveEdit(ctx)
		},
	}
}

func (s *Shell) editText(args []string, file string) (string, error) {
	switch file {
	case "":
		return strings.Join(args, " "), nil
	case "-":
		b, err := io.ReadAll(s.in)
		return string(b), err
	default:
		b, err := os.ReadFile(file)
		return string(b), err
	}
}

func (s *Shell) printBoard(board issue.Board) {
	s.heading(fmt.Sprintf("Open (%d)", len(board.Open)))
	for _, i := range board.Open {
		s.printIssueLine(i)
	}
	s.printf("\n")
	s.heading(fmt.Sprintf("Closed (%d)", len(board.Closed)))
	for _, i := range board.Closed {
		s.printIssueLine(i)
	}
}

func (s *Shell) printIssueLine(i issue.Issue) {
	s.printf("  %s  %s  %s\n", s.styles.Faint.Render(i.ID), i.Name, s.styles.Faint.Render(formatTime(i.CreatedAt)))
}

func (s *Shell) printTimeline(v timeline.View) {
	title := v.Name
	if title == "" {
		title = v.IssueID
	}
	s.printf("%s  %s\n", s.styles.Title.Render(title), s.issueBadge(v.Status))
	if !v.CreatedAt.IsZero() {
		s.field("opened", formatTime(v.CreatedAt))
	}
	if v.IssueErr != nil {
		s.printf("%s\n", s.styles.Error.Render("issue details unavailable: "+v.IssueErr.Error()))
	}
	if v.DocErr != nil {
		s.printf("%s\n", s.styles.Error.Render("timeline unavailable: "+v.DocErr.Error()))
	}

	if len(v.Events) == 0 {
		s.printf("\n")
		s.faint("No events yet.")
		return
	}
	for _, ev := range v.Events {
		s.printf("\n%s  %s  %s\n", s.styles.Title.Render(ev.Author), s.styles.Faint.Render(formatTime(ev.CreatedAt)), s.styles.Faint.Render(ev.ID))
		s.printf("%s\n", markdown.Terminal(ev.Text, s.styles, s.width))
	}
}
