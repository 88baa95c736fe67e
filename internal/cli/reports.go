package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/trackerhq/tracker/internal/markdown"
	"github.com/trackerhq/tracker/internal/report"
)

func (s *Shell) reportsCommand() *Command {
	return &Command{
		Name:    "reports",
		Summary: "Write and read post-incident reports",
		Subcommands: []*Command{
			{
				Name:    "list",
				Summary: "List reports",
				Run: func(ctx context.Context, _ *pflag.FlagSet, _ []string) error {
					return s.listReports(ctx)
				},
			},
			s.reportWriteCommand("create", "Create a report", ""),
			{
				Name:    "show",
				Summary: "Render a report",
				Usage:   "<id>",
				Run: func(ctx context.Context, _ *pflag.FlagSet, args []string) error {
					if err := exactArgs(args, 1, "<id>"); err != nil {
						return err
					}
					r, err := s.app.Reports.Get(ctx, args[0])
					if err != nil {
						return err
					}
					s.printReport(r)
					return nil
				},
			},
			s.reportWriteCommand("update", "Replace a report's title and content", "<id>"),
			s.deleteCommand("Delete a report", "report", s.app.Reports.Delete, s.listReports),
			{
				Name:    "upload",
				Summary: "Upload an image and print its markdown reference",
				Usage:   "<file>",
				Run: func(ctx context.Context, _ *pflag.FlagSet, args []string) error {
					if err := exactArgs(args, 1, "<file>"); err != nil {
						return err
					}
					f, err := os.Open(args[0])
					if err != nil {
						return err
					}
					defer f.Close()

					url, err := s.app.Reports.UploadImage(ctx, args[0], f)
					if errors.Is(err, report.ErrNotAnImage) {
						return fmt.Errorf("%w: %v", ErrUsage, err)
					}
					if err != nil {
						return err
					}
					s.printf("%s\n", report.ImageMarkdown(url))
					return nil
				},
			},
		},
	}
}

// reportWriteCommand builds create (no args) and update (<id>), which share
// their flags.
func (s *Shell) reportWriteCommand(name, summary, usage string) *Command {
	var title, file string
	return &Command{
		Name:    name,
		Summary: summary,
		Usage:   usage,
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
			fs.StringVarP(&title, "title", "t", "", "report title")
			fs.StringVarP(&file, "file", "f", "-", "markdown content file, or - for stdin")
			return fs
		},
		Run: func(ctx context.Context, _ *pflag.FlagSet, args []string) error {
			want := 0
			if usage != "" {
				want = 1
			}
			if err := exactArgs(args, want, "arguments: "+usage); err != nil {
				return err
			}

			content, err := s.readContent(file)
			if err != nil {
				return err
			}

			var r report.Report
			if want == 0 {
				r, err = s.app.Reports.Create(ctx, title, content)
			} else {
				err = s.app.Reports.Update(ctx, args[0], title, content)
				if err == nil {
					r, err = s.app.Reports.Get(ctx, args[0])
				}
			}
			if errors.Is(err, report.ErrTitleRequired) || errors.Is(err, report.ErrContentRequired) {
				return fmt.Errorf("%w: %v", ErrUsage, err)
			}
			if err != nil {
				return err
			}
			s.printReport(r)
			return nil
		},
	}
}

func (s *Shell) readContent(file string) (string, error) {
	if file == "-" {
		b, err := io.ReadAll(s.in)
		return string(b), err
	}
	b, err := os.ReadFile(file)
	return string(b), err
}

func (s *Shell) printReport(r report.Report) {
	s.heading(r.Title)
	meta := r.CreatedBy
	if meta != "" {
		meta += ", "
	}
	meta += formatTime(r.CreatedAt)
	if !r.UpdatedAt.IsZero() && !r.UpdatedAt.Equal(r.CreatedAt) {
		meta += ", edited " + formatTime(r.UpdatedAt)
	}
	s.faint("%s  %s", r.ID, meta)
	s.printf("\n%s\n", markdown.Terminal(r.Content, s.styles, s.width))
}

func (s *Shell) listReports(ctx context.Context) error {
	reports, err := s.app.Reports.List(ctx)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		s.faint("No reports.")
	}
	for _, r := range reports {
		s.printf("  %s  %s  %s\n", s.styles.Faint.Render(r.ID), r.Title,
			s.styles.Faint.Render(r.CreatedBy+", "+formatTime(r.CreatedAt)))
	}
	return nil
}
