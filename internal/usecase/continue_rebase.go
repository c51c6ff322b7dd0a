package usecase

import (
	"context"
	"fmt"

	"github.com/mikan-dev/splice/internal/domain"
)

// ContinueRebaseInput contains the parameters for resuming a rebase.
type ContinueRebaseInput struct {
	TaskID string // Task ID (required)
}

// ContinueRebase is the use case for resuming a conflicted rebase after
// the conflicts were resolved and staged.
type ContinueRebase struct {
	tasks     domain.TaskRepository
	worktrees domain.WorktreeManager
	clock     domain.Clock
	logger    domain.Logger
	repoRoot  string
}

// NewContinueRebase creates a new ContinueRebase use case.
func NewContinueRebase(tasks domain.TaskRepository, worktrees domain.WorktreeManager, clock domain.Clock, logger domain.Logger, repoRoot string) *ContinueRebase {
	return &ContinueRebase{
		tasks:     tasks,
		worktrees: worktrees,
		clock:     clock,
		logger:    logger,
		repoRoot:  repoRoot,
	}
}

// Execute resumes the rebase. On clean completion the recorded merge
// state is cleared: the branch history it referenced has been rewritten.
func (uc *ContinueRebase) Execute(ctx context.Context, in ContinueRebaseInput) error {
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

	if err := uc.worktrees.ContinueRebase(ctx, task.Worktree); err != nil {
		return fmt.Errorf("continue rebase: %w", err)
	}

	if task.LastMergeState != nil {
		task.LastMergeState = nil
		task.Updated = uc.clock.Now()
		if err := uc.tasks.Save(task); err != nil {
			return fmt.Errorf("save task: %w", err)
		}
	}
	if uc.logger != nil {
		uc.logger.Info(task.ID, "rebase", "rebase continued to completion")
	}
	return nil
}
