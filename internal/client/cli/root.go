package cli

import (
	"github.com/spf13/cobra"
)

// RootCommand собирает дерево команд gradectl
func (c *Cli) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "gradectl",
		Short: "Command line client for the grade submission API",
		Long: `gradectl talks to the grade submission server.

Login once to store a bearer token locally, then browse students,
courses and grades. The token is sent with every protected request
until it expires.

Password priority (highest to lowest):
  1. GRADES_PASSWORD environment variable
  2. --password-file (file path)
  3. Interactive prompt`,
		Version:       c.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.connect(cmd.Context())
		},
	}

	root.SetOut(c.io)
	root.SetErr(c.io)
	root.SetVersionTemplate("gradectl {{.Version}}\n")

	root.PersistentFlags().StringVar(&c.serverURL, "server", DefaultServerURL, "server URL")
	root.PersistentFlags().StringVar(&c.dbPath, "db", DefaultDBPath, "path to local session database")
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		c.registerCommand(),
		c.loginCommand(),
		c.logoutCommand(),
		c.whoamiCommand(),
		c.statusCommand(),
		c.studentsCommand(),
		c.coursesCommand(),
		c.gradesCommand(),
	)

	return root
}
