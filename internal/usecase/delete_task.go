package usecase

import (
	"context"
	"fmt"

	"github.com/mikan-dev/splice/internal/domain"
	"github.com/mikan-dev/splice/internal/usecase/shared"
)

// DeleteTaskInput contains the parameters for deleting a task.
type DeleteTaskInput struct {
	TaskID string // Task ID (required)
}

// DeleteTask is the use case for deleting a task: in-flight work is
// cancelled, the isolation worktree is removed, then the record goes.
type DeleteTask struct {
	tasks      domain.TaskRepository
	worktrees  domain.WorktreeManager
	hooks      domain.Hooks
	publisher  domain.EventPublisher
	interrupts *shared.Interrupts
	streams    []StreamCanceler
	logger     domain.Logger
	repoRoot   string
}

// NewDeleteTask creates a new DeleteTask use case.
func NewDeleteTask(tasks domain.TaskRepository, worktrees domain.WorktreeManager, hooks domain.Hooks, publisher domain.EventPublisher, interrupts *shared.Interrupts, streams []StreamCanceler, logger domain.Logger, repoRoot string) *DeleteTask {
	return &DeleteTask{
		tasks:      tasks,
		worktrees:  worktrees,
		hooks:      hooks,
		publisher:  publisher,
		interrupts: interrupts,
		streams:    streams,
		logger:     logger,
		repoRoot:   repoRoot,
	}
}

// Execute deletes the task and its worktree.
func (uc *DeleteTask) Execute(ctx context.Context, in DeleteTaskInput) error {
	task, err := uc.tasks.Load(uc.repoRoot, in.TaskID)
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return domain.ErrTaskNotFound
	}

	if uc.interrupts != nil {
		uc.interrupts.CancelTask(task.ID)
	}
	// A task deleted mid-stream must not flush leftover chunks afterwards.
	for _, s := range uc.streams {
		s.CancelTask(task.ID)
	}

	if task.Worktree != nil {
		if err := uc.worktrees.Remove(ctx, task.Worktree); err != nil {
			return fmt.Errorf("remove worktree: %w", err)
		}
	}

	if err := uc.tasks.Delete(uc.repoRoot, task.ID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	if uc.hooks != nil {
		if _, err := uc.hooks.Run(ctx, domain.HookEvent{
			Point:    domain.HookTaskClosed,
			RepoRoot: uc.repoRoot,
			TaskID:   task.ID,
		}); err != nil && uc.logger != nil {
			uc.logger.Warn(task.ID, "hooks", fmt.Sprintf("%s: %v", domain.HookTaskClosed, err))
		}
	}
	if uc.publisher != nil {
		uc.publisher.SendTaskUpdated(domain.TaskUpdatedEvent{Task: nil, RepoRoot: uc.repoRoot, TaskID: task.ID})
	}
	if uc.logger != nil {
		uc.logger.Info(task.ID, "task", "deleted")
	}
	return nil
}
