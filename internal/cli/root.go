package cli

// Root returns the full command tree bound to s.
func Root(s *Shell) *Command {
	return &Command{
		Name:    "tracker",
		Summary: "Incident tracker client",
		Subcommands: []*Command{
			s.loginCommand(),
			s.logoutCommand(),
			s.whoamiCommand(),
			s.prefsCommand(),
			s.issuesCommand(),
			s.playbooksCommand(),
			s.checklistCommand(),
			s.healthCommand(),
			s.reportsCommand(),
			s.outboxCommand(),
			s.serveCommand(),
		},
	}
}
