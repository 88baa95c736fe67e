package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/trackerhq/tracker/internal/backend"
	"github.com/trackerhq/tracker/internal/session"
	"github.com/trackerhq/tracker/internal/settings"
)

func (s *Shell) loginCommand() *Command {
	var username, passwordFile string
	return &Command{
		Name:    "login",
		Summary: "Sign in and store the session token",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("login", pflag.ContinueOnError)
			fs.StringVarP(&username, "username", "u", "", "account name")
			fs.StringVar(&passwordFile, "password-file", "", "read the password from a file, or - for stdin")
			return fs
		},
		Run: func(ctx context.Context, _ *pflag.FlagSet, _ []string) error {
			if strings.TrimSpace(username) == "" {
				return fmt.Errorf("%w: --username is required", ErrUsage)
			}
			password, err := s.readPassword(passwordFile)
			if err != nil {
				return err
			}

			state, err := s.app.Gate.Login(ctx, username, password)
			switch {
			case errors.Is(err, session.ErrCredentialsRequired):
				return fmt.Errorf("%w: %v", ErrUsage, err)
			case errors.Is(err, backend.ErrUnauthorized):
				return errors.New("invalid username or password")
			case err != nil:
				return err
			}
			s.printf("Signed in as %s\n", s.styles.Title.Render(state.Username))
			return nil
		},
	}
}

// readPassword reads from path, from the shell input when path is "-", or
// from an echo-free terminal prompt when path is empty.
func (s *Shell) readPassword(path string) (string, error) {
	switch path {
	case "":
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return "", fmt.Errorf("%w: no terminal for a password prompt, use --password-file", ErrUsage)
		}
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	case "-":
		line, err := bufio.NewReader(s.in).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	default:
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(string(b), "\r\n"), nil
	}
}

func (s *Shell) logoutCommand() *Command {
	return &Command{
		Name:    "logout",
		Summary: "Forget the stored session token",
		Run: func(ctx context.Context, _ *pflag.FlagSet, _ []string) error {
			if err := s.app.Gate.Logout(ctx); err != nil {
				return err
			}
			s.printf("Signed out\n")
			return nil
		},
	}
}

func (s *Shell) whoamiCommand() *Command {
	return &Command{
		Name:    "whoami",
		Summary: "Show the current session",
		Run: func(_ context.Context, _ *pflag.FlagSet, _ []string) error {
			state := s.app.Gate.Current()
			if !state.Authenticated {
				s.printf("Not signed in\n")
				return nil
			}
			name := state.Username
			if name == "" {
				name = "(unknown user)"
			}
			s.field("user", name)
			if !state.ExpiresAt.IsZero() {
				s.field("expires", formatTime(state.ExpiresAt))
			}
			return nil
		},
	}
}

func (s *Shell) prefsCommand() *Command {
	var author, themeName string
	return &Command{
		Name:    "prefs",
		Summary: "Show or change the author name and theme",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("prefs", pflag.ContinueOnError)
			fs.StringVar(&author, "author", "", "default author for timeline events")
			fs.StringVar(&themeName, "theme", "", "light, dark or system")
			return fs
		},
		Run: func(ctx context.Context, fs *pflag.FlagSet, _ []string) error {
			var theme settings.Theme
			if fs.Changed("theme") {
				t, err := settings.ParseTheme(themeName)
				if err != nil {
					return fmt.Errorf("%w: %v", ErrUsage, err)
				}
				theme = t
			}
			if fs.Changed("author") || fs.Changed("theme") {
				err := s.app.Settings.Update(ctx, func(st *settings.Settings) {
					if fs.Changed("author") {
						st.Author = strings.TrimSpace(author)
					}
					if fs.Changed("theme") {
						st.Theme = theme
					}
				})
				if err != nil {
					return err
				}
			}

			snap := s.app.Settings.Snapshot()
			s.field("author", snap.Author)
			s.field("theme", string(snap.EffectiveTheme()))
			return nil
		},
	}
}
