package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mikan-dev/splice/internal/app"
	"github.com/mikan-dev/splice/internal/usecase"
)

// newStatusCommand creates the status command.
func newStatusCommand(c *app.Container) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:     "status <task-id>",
		Short:   "Show a worktree task's integration status",
		GroupID: groupWorktree,
		Long: `Show how far a worktree task has diverged from its target branch:
commits ahead, uncommitted changes, predicted merge conflicts, and any
rebase in progress.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.WorktreeStatusUseCase().Execute(cmd.Context(), usecase.WorktreeStatusInput{
				TaskID: args[0],
				Target: target,
			})
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(stdout, "Target: %s\n", out.Target)
			_, _ = fmt.Fprintf(stdout, "Ahead: %d commit(s)\n", len(out.Unmerged.AheadCommits))
			_, _ = fmt.Fprintf(stdout, "Uncommitted changes: %v\n", out.Unmerged.HasUncommitted)
			if out.Rebase.InProgress {
				_, _ = fmt.Fprintf(stdout, "Rebase in progress, conflicts: %s\n",
					strings.Join(out.Rebase.ConflictingFiles, ", "))
			}
			if out.Prediction.HasConflicts {
				approx := ""
				if out.Prediction.Approximate {
					approx = " (approximate)"
				}
				_, _ = fmt.Fprintf(stdout, "Predicted conflicts%s: %s\n",
					approx, strings.Join(out.Prediction.ConflictingFiles, ", "))
			} else {
				_, _ = fmt.Fprintln(stdout, "No conflicts predicted")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Target branch (default: repository default branch)")
	return cmd
}

// newMergeCommand creates the merge command.
func newMergeCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Target  string
		Message string
		Squash  bool
	}

	cmd := &cobra.Command{
		Use:     "merge <task-id>",
		Short:   "Merge a task's worktree branch into the target branch",
		GroupID: groupWorktree,
		Long: `Merge a task's worktree branch into the target branch.

Uncommitted changes in the worktree are transplanted along with the
commits and the merge is recorded so 'splice revert' can undo it
exactly.

Examples:
  # Squash-merge into the worktree's base branch
  splice merge 1a2b3c4d --squash --message "Add retry logic"

  # Merge into a different branch
  splice merge 1a2b3c4d --target release/1.2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.MergeWorktreeUseCase().Execute(cmd.Context(), usecase.MergeWorktreeInput{
				TaskID:  args[0],
				Target:  opts.Target,
				Message: opts.Message,
				Squash:  opts.Squash,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Merged into %s\n", out.Target)
			if out.MergeState != nil {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Uncommitted changes transplanted; 'splice revert' undoes this merge")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Target, "target", "", "Target branch (default: worktree base branch)")
	cmd.Flags().StringVar(&opts.Message, "message", "", "Squash commit message")
	cmd.Flags().BoolVar(&opts.Squash, "squash", false, "Squash the branch into one commit")
	return cmd
}

// newRevertCommand creates the revert command.
func newRevertCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:     "revert <task-id>",
		Short:   "Undo the most recent merge of a task's worktree",
		GroupID: groupWorktree,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.RevertMergeUseCase().Execute(cmd.Context(), usecase.RevertMergeInput{TaskID: args[0]}); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Merge reverted")
			return nil
		},
	}
}

// newApplyCommand creates the apply command.
func newApplyCommand(c *app.Container) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:     "apply <task-id>",
		Short:   "Copy only uncommitted worktree changes to the target branch",
		GroupID: groupWorktree,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.ApplyUncommittedUseCase().Execute(cmd.Context(), usecase.ApplyUncommittedInput{
				TaskID: args[0],
				Target: target,
			}); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Uncommitted changes applied")
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Target branch (default: worktree base branch)")
	return cmd
}

// newRebaseCommand creates the rebase command with its continue/abort
// subcommands.
func newRebaseCommand(c *app.Container) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:     "rebase <task-id>",
		Short:   "Rebase a task's worktree onto the target branch",
		GroupID: groupWorktree,
		Long: `Rebase a task's worktree branch onto the target branch.

On conflict the rebase stays in progress: resolve the files and run
'splice rebase continue', abandon with 'splice rebase abort', or let
the resolver handle them with 'splice resolve'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.RebaseWorktreeUseCase().Execute(cmd.Context(), usecase.RebaseWorktreeInput{
				TaskID: args[0],
				Target: target,
			})
			if err != nil {
				if out != nil && out.Rebase.HasConflicts {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Rebase stopped on conflicts: %s\n",
						strings.Join(out.Rebase.ConflictingFiles, ", "))
				}
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Rebased onto %s\n", out.Target)
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Target branch (default: worktree base branch)")

	cmd.AddCommand(&cobra.Command{
		Use:   "continue <task-id>",
		Short: "Continue a conflicted rebase after resolving",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.ContinueRebaseUseCase().Execute(cmd.Context(), usecase.ContinueRebaseInput{TaskID: args[0]}); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Rebase continued")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "abort <task-id>",
		Short: "Abort an in-progress rebase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.AbortRebaseUseCase().Execute(cmd.Context(), usecase.AbortRebaseInput{TaskID: args[0]}); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Rebase aborted")
			return nil
		},
	})

	return cmd
}

// newResolveCommand creates the resolve command.
func newResolveCommand(c *app.Container) *cobra.Command {
	var cont bool

	cmd := &cobra.Command{
		Use:     "resolve <task-id>",
		Short:   "Resolve rebase conflicts with the AI resolver",
		GroupID: groupWorktree,
		Long: `Resolve the conflicted files of an in-progress rebase one by one with
the AI resolver. Each file runs concurrently and can be interrupted
individually.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.ResolveConflictsUseCase().Execute(cmd.Context(), usecase.ResolveConflictsInput{
				TaskID:   args[0],
				Continue: cont,
			})
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(stdout, "Resolved: %d  Failed: %d  Interrupted: %d\n",
				len(out.Report.Resolved), len(out.Report.Failed), len(out.Report.Interrupted))
			for _, f := range out.Report.Failed {
				_, _ = fmt.Fprintf(stdout, "  failed: %s\n", f)
			}
			if out.Continued {
				_, _ = fmt.Fprintln(stdout, "Rebase continued")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&cont, "continue", false, "Continue the rebase when every file resolves")
	return cmd
}
