package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mikan-dev/splice/internal/app"
	"github.com/mikan-dev/splice/internal/domain"
	"github.com/mikan-dev/splice/internal/usecase"
)

// newNewCommand creates the new command for creating tasks.
func newNewCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Title   string
		Model   string
		Profile string
		Base    string
		Mode    string
	}

	cmd := &cobra.Command{
		Use:     "new",
		Short:   "Create a new task",
		GroupID: groupTask,
		Long: `Create a new task for splice to manage.

The task is created with status 'todo'. In worktree mode an isolation
worktree and branch are created immediately.

Examples:
  # Create a task working directly in the checkout
  splice new --title "Auth refactoring"

  # Create a task with an isolated worktree based on main
  splice new --title "Risky migration" --mode worktree --base main`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.NewTaskUseCase().Execute(cmd.Context(), usecase.NewTaskInput{
				Title:       opts.Title,
				Model:       opts.Model,
				Profile:     opts.Profile,
				WorkingMode: domain.WorkingMode(opts.Mode),
				BaseRef:     opts.Base,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created task %s\n", out.Task.ID)
			if out.Task.Worktree != nil {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Worktree: %s\n", out.Task.Worktree.Path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "Task title (required)")
	cmd.Flags().StringVar(&opts.Model, "model", "", "Model reference for the agent")
	cmd.Flags().StringVar(&opts.Profile, "profile", "", "Executor profile")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "Working mode: local or worktree (default: local)")
	cmd.Flags().StringVar(&opts.Base, "base", "", "Base ref for the worktree (default: current branch)")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

// newListCommand creates the list command.
func newListCommand(c *app.Container) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		GroupID: groupTask,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.ListTasksUseCase().Execute(cmd.Context(), usecase.ListTasksInput{
				Status: domain.Status(status),
			})
			if err != nil {
				return err
			}
			if len(out.Tasks) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No tasks")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tSTATUS\tMODE\tTITLE")
			for _, task := range out.Tasks {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					shortID(task.ID), task.Status.Display(), task.WorkingMode, task.Title)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	return cmd
}

// newShowCommand creates the show command.
func newShowCommand(c *app.Container) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:     "show <task-id>",
		Short:   "Show a task and its conversation",
		GroupID: groupTask,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.ShowTaskUseCase().Execute(cmd.Context(), usecase.ShowTaskInput{TaskID: args[0]})
			if err != nil {
				return err
			}
			task := out.Task

			stdout := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(stdout, "Task: %s\n", task.ID)
			_, _ = fmt.Fprintf(stdout, "Title: %s\n", task.Title)
			_, _ = fmt.Fprintf(stdout, "Status: %s\n", task.Status.Display())
			_, _ = fmt.Fprintf(stdout, "Mode: %s\n", task.WorkingMode)
			if task.Worktree != nil {
				_, _ = fmt.Fprintf(stdout, "Worktree: %s (base %s)\n", task.Worktree.Path, task.Worktree.BaseBranch)
			}
			if out.Rebase.InProgress {
				_, _ = fmt.Fprintf(stdout, "Rebase: in progress, conflicts in %s\n",
					strings.Join(out.Rebase.ConflictingFiles, ", "))
			}
			if task.Cost.TotalUSD > 0 {
				_, _ = fmt.Fprintf(stdout, "Cost: $%.4f (%d in / %d out tokens)\n",
					task.Cost.TotalUSD, task.Cost.InputTokens, task.Cost.OutputTokens)
			}

			for _, m := range task.Messages {
				text := m.PlainText()
				if !full && len(text) > 200 {
					text = text[:200] + "..."
				}
				_, _ = fmt.Fprintf(stdout, "\n[%s]\n%s\n", m.Role, text)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Print full message bodies")
	return cmd
}

// newUpdateCommand creates the update command.
func newUpdateCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Title   string
		Model   string
		Profile string
		Status  string
		Mode    string
		Base    string
	}

	cmd := &cobra.Command{
		Use:     "update <task-id>",
		Short:   "Update task fields",
		GroupID: groupTask,
		Long: `Update task fields. Only the provided flags change.

Switching --mode moves the task's filesystem changes: to 'worktree' an
isolation worktree is created, to 'local' the worktree is removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := c.UpdateTaskUseCase().Execute(cmd.Context(), usecase.UpdateTaskInput{
				TaskID:      args[0],
				Title:       opts.Title,
				Model:       opts.Model,
				Profile:     opts.Profile,
				Status:      domain.Status(opts.Status),
				WorkingMode: domain.WorkingMode(opts.Mode),
				BaseRef:     opts.Base,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s\n", task.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "New title")
	cmd.Flags().StringVar(&opts.Model, "model", "", "New model reference")
	cmd.Flags().StringVar(&opts.Profile, "profile", "", "New executor profile")
	cmd.Flags().StringVar(&opts.Status, "status", "", "New status")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "New working mode: local or worktree")
	cmd.Flags().StringVar(&opts.Base, "base", "", "Base ref when switching to worktree mode")
	return cmd
}

// newDeleteCommand creates the delete command.
func newDeleteCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <task-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a task and its worktree",
		GroupID: groupTask,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.DeleteTaskUseCase().Execute(cmd.Context(), usecase.DeleteTaskInput{TaskID: args[0]}); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", args[0])
			return nil
		},
	}
}

// newPruneCommand creates the prune command.
func newPruneCommand(c *app.Container) *cobra.Command {
	var includeDone bool

	cmd := &cobra.Command{
		Use:     "prune",
		Short:   "Remove empty and finished tasks",
		GroupID: groupTask,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.PruneTasksUseCase().Execute(cmd.Context(), usecase.PruneTasksInput{IncludeDone: includeDone})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d task(s)\n", len(out.Removed))
			return nil
		},
	}

	cmd.Flags().BoolVar(&includeDone, "done", false, "Also remove tasks marked done")
	return cmd
}

// shortID abbreviates a task id for table output.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
