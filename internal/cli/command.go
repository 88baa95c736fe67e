// Package cli implements the tracker command-line shell: a tree of
// subcommands, each parsing its own pflag set, over the wired client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// ErrUsage marks errors caused by bad arguments rather than a failed operation.
var ErrUsage = errors.New("usage")

// Command is a CLI command or a group of subcommands.
type Command struct {
	Name    string
	Summary string
	// Usage is the argument synopsis after the command path, e.g. "<id> <text>".
	Usage string

	// Flags returns a fresh flag set. Nil means the command takes no flags.
	Flags func() *pflag.FlagSet

	Subcommands []*Command

	// Run receives the parsed flag set and the remaining positional args.
	Run func(ctx context.Context, flags *pflag.FlagSet, args []string) error

	parent *Command
}

// Execute dispatches args down the tree and runs the matched command.
func (c *Command) Execute(ctx context.Context, stderr io.Writer, args []string) error {
	if len(args) > 0 && isHelpFlag(args[0]) {
		c.PrintHelp(stderr)
		return nil
	}

	if len(c.Subcommands) > 0 {
		if len(args) == 0 || strings.HasPrefix(args[0], "-") {
			c.PrintHelp(stderr)
			return fmt.Errorf("%w: %s needs a subcommand", ErrUsage, c.fullName())
		}
		for _, sub := range c.Subcommands {
			if sub.Name == args[0] {
				sub.parent = c
				return sub.Execute(ctx, stderr, args[1:])
			}
		}
		return fmt.Errorf("%w: unknown command %q, run '%s --help'", ErrUsage, args[0], c.fullName())
	}

	flags := pflag.NewFlagSet(c.fullName(), pflag.ContinueOnError)
	if c.Flags != nil {
		flags = c.Flags()
	}
	flags.SetOutput(io.Discard)
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %s, run '%s --help'", ErrUsage, err.Error(), c.fullName())
	}

	if c.Run == nil {
		return fmt.Errorf("%w: no action defined for %q", ErrUsage, c.fullName())
	}
	return c.Run(ctx, flags, flags.Args())
}

// PrintHelp writes the command's synopsis, subcommands and flags.
func (c *Command) PrintHelp(w io.Writer) {
	if c.Summary != "" {
		fmt.Fprintf(w, "%s\n\n", c.Summary)
	}

	name := c.fullName()
	switch {
	case len(c.Subcommands) > 0:
		fmt.Fprintf(w, "Usage:\n  %s <command> [flags]\n", name)
	case c.Usage != "":
		fmt.Fprintf(w, "Usage:\n  %s [flags] %s\n", name, c.Usage)
	default:
		fmt.Fprintf(w, "Usage:\n  %s [flags]\n", name)
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nCommands:\n")
		tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
		for _, sub := range c.Subcommands {
			fmt.Fprintf(tw, "  %s\t%s\n", sub.Name, sub.Summary)
		}
		tw.Flush()
	}

	if c.Flags != nil {
		var sb strings.Builder
		fs := c.Flags()
		fs.SetOutput(&sb)
		fs.PrintDefaults()
		if sb.Len() > 0 {
			fmt.Fprintf(w, "\nFlags:\n%s", sb.String())
		}
	}
}

func (c *Command) fullName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.fullName() + " " + c.Name
}

func isHelpFlag(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

// exactArgs checks the positional argument count for a command.
func exactArgs(args []string, n int, synopsis string) error {
	if len(args) != n {
		return fmt.Errorf("%w: expected %s", ErrUsage, synopsis)
	}
	return nil
}
