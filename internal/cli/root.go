// Package cli provides the command-line interface for splice.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/mikan-dev/splice/internal/app"
)

// Command group IDs.
const (
	groupSetup    = "setup"
	groupTask     = "task"
	groupPrompt   = "prompt"
	groupWorktree = "worktree"
)

// NewRootCommand creates the root command for splice.
// It receives the container for dependency injection and version for display.
func NewRootCommand(c *app.Container, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "splice",
		Short: "AI coding task coordinator",
		Long: `splice coordinates long-running AI-assisted coding tasks.
Each task carries its own conversation and, in worktree mode, its own
git worktree, so agent edits stay isolated until you merge them back.`,
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		// SilenceErrors prevents Cobra from printing errors (we handle it in main)
		SilenceErrors: true,
	}

	root.AddGroup(
		&cobra.Group{ID: groupSetup, Title: "Setup Commands:"},
		&cobra.Group{ID: groupTask, Title: "Task Commands:"},
		&cobra.Group{ID: groupPrompt, Title: "Prompt Commands:"},
		&cobra.Group{ID: groupWorktree, Title: "Worktree Commands:"},
	)

	root.AddCommand(
		newInitCommand(c),
		newConfigCommand(c),
		newLogsCommand(c),
		newNewCommand(c),
		newListCommand(c),
		newShowCommand(c),
		newUpdateCommand(c),
		newDeleteCommand(c),
		newPruneCommand(c),
		newPromptCommand(c),
		newRedoCommand(c),
		newInterruptCommand(c),
		newCompactCommand(c),
		newHandoffCommand(c),
		newStatusCommand(c),
		newMergeCommand(c),
		newRevertCommand(c),
		newApplyCommand(c),
		newRebaseCommand(c),
		newResolveCommand(c),
	)

	return root
}
