package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/trackerhq/tracker/internal/app"
	"github.com/trackerhq/tracker/internal/healthcheck"
	"github.com/trackerhq/tracker/internal/issue"
	"github.com/trackerhq/tracker/internal/theme"
)

const defaultWidth = 80

// ShellConfig configures NewShell.
type ShellConfig struct {
	App *app.App
	Out io.Writer
	// In supplies passwords read with --password-file - and answers to
	// confirmation prompts.
	In io.Reader

	// Profile pins the color profile. Nil detects it from Out, and the
	// system theme then consults the terminal background.
	Profile *termenv.Profile
	// Width wraps rendered markdown. Zero uses the terminal width.
	Width int
}

// Shell holds what every command needs to talk to the backend and print.
type Shell struct {
	app    *app.App
	out    io.Writer
	in     io.Reader
	styles theme.Styles
	width  int
}

// NewShell creates a Shell whose palette follows the stored theme preference.
func NewShell(cfg ShellConfig) *Shell {
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	in := cfg.In
	if in == nil {
		in = os.Stdin
	}

	pref := cfg.App.Settings.Snapshot().EffectiveTheme()
	var palette theme.Palette
	var renderer *lipgloss.Renderer
	if cfg.Profile != nil {
		renderer = theme.NewRenderer(out, *cfg.Profile)
		palette = theme.Resolve(pref, nil)
	} else {
		termOut := termenv.NewOutput(out)
		renderer = theme.NewRenderer(out, termOut.Profile)
		palette = theme.ForOutput(pref, termOut)
	}

	width := cfg.Width
	if width <= 0 {
		width = terminalWidth(out)
	}

	return &Shell{
		app:    cfg.App,
		out:    out,
		in:     in,
		styles: theme.NewStyles(renderer, palette),
		width:  width,
	}
}

func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return defaultWidth
}

// confirm asks a y/N question on the shell input. Anything but y or yes is a
// no. An input that is a file but not a terminal cannot be asked, so the
// caller must pass --yes instead.
func (s *Shell) confirm(question string) (bool, error) {
	if f, ok := s.in.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return false, fmt.Errorf("%w: no terminal to confirm, use --yes", ErrUsage)
	}
	s.printf("%s [y/N] ", question)
	line, err := bufio.NewReader(s.in).ReadString('\n')
	s.printf("\n")
	if err != nil && line == "" {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// deleteCommand asks before running del and then shows the remaining list.
func (s *Shell) deleteCommand(summary, noun string, del func(context.Context, string) error, list func(context.Context) error) *Command {
	var yes bool
	return &Command{
		Name:    "delete",
		Summary: summary,
		Usage:   "<id>",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("delete", pflag.ContinueOnError)
			fs.BoolVarP(&yes, "yes", "y", false, "delete without asking")
			return fs
		},
		Run: func(ctx context.Context, _ *pflag.FlagSet, args []string) error {
			if err := exactArgs(args, 1, "<id>"); err != nil {
				return err
			}
			if !yes {
				ok, err := s.confirm(fmt.Sprintf("Delete %s %s?", noun, args[0]))
				if err != nil {
					return err
				}
				if !ok {
					s.faint("%s %s kept", noun, args[0])
					return nil
				}
			}
			if err := del(ctx, args[0]); err != nil {
				return err
			}
			s.faint("%s %s deleted", noun, args[0])
			return list(ctx)
		},
	}
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func (s *Shell) heading(text string) {
	s.printf("%s\n", s.styles.Title.Render(text))
}

func (s *Shell) field(label, value string) {
	s.printf("%s %s\n", s.styles.Label.Render(label), s.styles.Text.Render(value))
}

func (s *Shell) faint(format string, args ...any) {
	s.printf("%s\n", s.styles.Faint.Render(fmt.Sprintf(format, args...)))
}

func (s *Shell) issueBadge(status issue.Status) string {
	color := s.styles.Palette.Ongoing
	if status == issue.StatusResolved {
		color = s.styles.Palette.Resolved
	}
	return s.styles.Badge(strings.ToUpper(status.String()), color)
}

func (s *Shell) endpointBadge(status healthcheck.Status) string {
	color := s.styles.Palette.Unknown
	switch status {
	case healthcheck.StatusUp:
		color = s.styles.Palette.Up
	case healthcheck.StatusDown:
		color = s.styles.Palette.Down
	}
	return s.styles.Badge(strings.ToUpper(status.String()), color)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
