package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mikan-dev/splice/internal/app"
)

// newInitCommand creates the init command.
func newInitCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:     "init",
		Short:   "Initialize repository for splice",
		GroupID: groupSetup,
		Long: `Initialize a repository for splice.

This command creates the .git/splice/ directory with:
- tasks.json: empty task store
- logs/: directory for log files

Preconditions:
- Current directory must be inside a git repository`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.InitRepoUseCase().Execute(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Initialized splice in %s\n", out.SpliceDir)
			return nil
		},
	}
}
