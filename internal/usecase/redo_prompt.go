package usecase

import (
	"context"
	"fmt"

	"github.com/mikan-dev/splice/internal/domain"
)

// RedoPromptInput contains the parameters for re-running the last prompt.
// Fields are ordered to minimize memory padding.
type RedoPromptInput struct {
	TaskID        string               // Task ID (required)
	Mode          domain.ExecutionMode // Executor selection (required)
	UpdatedPrompt string               // Replacement text (optional, empty = original)
}

// RedoPrompt is the use case for redoing the last conversational turn:
// it truncates the conversation back to just before the last user
// message and resubmits it, optionally with replacement text.
type RedoPrompt struct {
	tasks    domain.TaskRepository
	run      *RunPrompt
	logger   domain.Logger
	repoRoot string
}

// NewRedoPrompt creates a new RedoPrompt use case.
func NewRedoPrompt(tasks domain.TaskRepository, run *RunPrompt, logger domain.Logger, repoRoot string) *RedoPrompt {
	return &RedoPrompt{
		tasks:    tasks,
		run:      run,
		logger:   logger,
		repoRoot: repoRoot,
	}
}

// Execute truncates the conversation and resubmits the prompt.
func (uc *RedoPrompt) Execute(ctx context.Context, in RedoPromptInput) (*RunPromptOutput, error) {
	task, err := uc.tasks.Load(uc.repoRoot, in.TaskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}

	idx := task.LastUserMessageIndex()
	if idx < 0 {
		return nil, domain.ErrNoUserMessage
	}

	prompt := in.UpdatedPrompt
	if prompt == "" {
		prompt = task.Messages[idx].PlainText()
	}

	task.Messages = task.Messages[:idx]
	if err := uc.tasks.Save(task); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}
	if uc.logger != nil {
		uc.logger.Info(task.ID, "task", fmt.Sprintf("redo from message %d", idx))
	}

	return uc.run.Execute(ctx, RunPromptInput{
		TaskID: task.ID,
		Prompt: prompt,
		Mode:   in.Mode,
	})
}
