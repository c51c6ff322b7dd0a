package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mikan-dev/splice/internal/app"
	"github.com/mikan-dev/splice/internal/domain"
	"github.com/mikan-dev/splice/internal/usecase"
)

// newPromptCommand creates the prompt command, the main entry point for
// driving a task.
func newPromptCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Mode    string
		Profile string
		Files   []string
	}

	cmd := &cobra.Command{
		Use:     "prompt <task-id> <text>",
		Short:   "Send a prompt to a task",
		GroupID: groupPrompt,
		Long: `Send a prompt to a task and wait for the run to finish.

Prompts are single-flight per task: if a run is already in progress the
command waits for it before starting.

Examples:
  # Let the agent do the work
  splice prompt 1a2b3c4d "Add retry logic to the uploader"

  # Route the prompt to the pair session instead of the agent
  splice prompt 1a2b3c4d "Review my changes" --mode pair`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.RunPromptUseCase().Execute(cmd.Context(), usecase.RunPromptInput{
				TaskID:       args[0],
				Prompt:       args[1],
				Mode:         domain.ExecutionMode(opts.Mode),
				Profile:      opts.Profile,
				ContextFiles: opts.Files,
			})
			if err != nil {
				return err
			}
			printMessages(cmd, out.Messages)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\nStatus: %s\n", out.Status.Display())
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", string(domain.ExecAgent), "Executor: agent or pair")
	cmd.Flags().StringVar(&opts.Profile, "profile", "", "Profile override for this prompt")
	cmd.Flags().StringSliceVar(&opts.Files, "file", nil, "Extra context file (repeatable)")
	return cmd
}

// newRedoCommand creates the redo command.
func newRedoCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Mode   string
		Prompt string
	}

	cmd := &cobra.Command{
		Use:     "redo <task-id>",
		Short:   "Redo the last conversational turn",
		GroupID: groupPrompt,
		Long: `Truncate the conversation back to the last user message and resubmit
it, optionally with replacement text.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.RedoPromptUseCase().Execute(cmd.Context(), usecase.RedoPromptInput{
				TaskID:        args[0],
				Mode:          domain.ExecutionMode(opts.Mode),
				UpdatedPrompt: opts.Prompt,
			})
			if err != nil {
				return err
			}
			printMessages(cmd, out.Messages)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\nStatus: %s\n", out.Status.Display())
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", string(domain.ExecAgent), "Executor: agent or pair")
	cmd.Flags().StringVar(&opts.Prompt, "prompt", "", "Replacement prompt text")
	return cmd
}

// newInterruptCommand creates the interrupt command.
func newInterruptCommand(c *app.Container) *cobra.Command {
	var interruptID string

	cmd := &cobra.Command{
		Use:     "interrupt <task-id>",
		Short:   "Cancel in-flight work on a task",
		GroupID: groupPrompt,
		Long: `Cancel in-flight work on a task.

Without --id every running operation of the task is cancelled and the
task is marked interrupted. With --id only the targeted sub-operation
stops and the task keeps running.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.InterruptResponseUseCase().Execute(cmd.Context(), usecase.InterruptResponseInput{
				TaskID:      args[0],
				InterruptID: interruptID,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Cancelled %d operation(s)\n", out.Cancelled)
			return nil
		},
	}

	cmd.Flags().StringVar(&interruptID, "id", "", "Interrupt only this sub-operation")
	return cmd
}

// newCompactCommand creates the compact command.
func newCompactCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:     "compact <task-id>",
		Short:   "Replace the conversation with a summary",
		GroupID: groupPrompt,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.CompactConversationUseCase().Execute(cmd.Context(), usecase.CompactConversationInput{TaskID: args[0]})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Compacted %d message(s) into a summary\n", out.Replaced)
			return nil
		},
	}
}

// newHandoffCommand creates the handoff command.
func newHandoffCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:     "handoff <task-id>",
		Short:   "Export a handoff prompt for continuing elsewhere",
		GroupID: groupPrompt,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.HandoffConversationUseCase().Execute(cmd.Context(), usecase.HandoffConversationInput{TaskID: args[0]})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Handoff written to %s\n", out.Path)
			return nil
		},
		Args: cobra.ExactArgs(1),
	}
}

// printMessages writes completed response messages to the command output.
func printMessages(cmd *cobra.Command, messages []domain.ContextMessage) {
	for _, m := range messages {
		if text := m.PlainText(); text != "" {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), text)
		}
	}
}
