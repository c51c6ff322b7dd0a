package usecase

import (
	"context"
	"fmt"

	"github.com/mikan-dev/splice/internal/domain"
)

// AbortRebaseInput contains the parameters for abandoning a rebase.
type AbortRebaseInput struct {
	TaskID string // Task ID (required)
}

// AbortRebase is the use case for abandoning an in-progress rebase and
// restoring the worktree to its pre-rebase state.
type AbortRebase struct {
	tasks     domain.TaskRepository
	worktrees domain.WorktreeManager
	logger    domain.Logger
	repoRoot  string
}

// NewAbortRebase creates a new AbortRebase use case.
func NewAbortRebase(tasks domain.TaskRepository, worktrees domain.WorktreeManager, logger domain.Logger, repoRoot string) *AbortRebase {
	return &AbortRebase{
		tasks:     tasks,
		worktrees: worktrees,
		logger:    logger,
		repoRoot:  repoRoot,
	}
}

// Execute aborts the rebase.
func (uc *AbortRebase) Execute(ctx context.Context, in AbortRebaseInput) error {
	task, err := uc.tasks.Load(uc.repoRoot, in.TaskID)
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return domain.ErrTaskNotFound
	}
	if !task.InWorktreeMode() || task.Worktree == nil {
		return domain.ErrWorktreeNotFound
	}

	if err := uc.worktrees.AbortRebase(ctx, task.Worktree); err != nil {
		return fmt.Errorf("abort rebase: %w", err)
	}
	if uc.logger != nil {
		uc.logger.Info(task.ID, "rebase", "rebase aborted")
	}
	return nil
}
