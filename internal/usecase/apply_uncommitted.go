package usecase

import (
	"context"
	"fmt"

	"github.com/mikan-dev/splice/internal/domain"
)

// ApplyUncommittedInput contains the parameters for transplanting
// uncommitted changes.
type ApplyUncommittedInput struct {
	TaskID string // Task ID (required)
	Target string // Target branch (optional, empty = worktree base branch)
}

// ApplyUncommitted is the use case for transplanting only the worktree's
// uncommitted changes onto the target branch's working tree, without
// integrating any commits.
type ApplyUncommitted struct {
	tasks     domain.TaskRepository
	git       domain.Git
	worktrees domain.WorktreeManager
	logger    domain.Logger
	repoRoot  string
}

// NewApplyUncommitted creates a new ApplyUncommitted use case.
func NewApplyUncommitted(tasks domain.TaskRepository, git domain.Git, worktrees domain.WorktreeManager, logger domain.Logger, repoRoot string) *ApplyUncommitted {
	return &ApplyUncommitted{
		tasks:     tasks,
		git:       git,
		worktrees: worktrees,
		logger:    logger,
		repoRoot:  repoRoot,
	}
}

// Execute transplants the uncommitted changes.
func (uc *ApplyUncommitted) Execute(ctx context.Context, in ApplyUncommittedInput) error {
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

	target := in.Target
	if target == "" {
		target = task.Worktree.BaseBranch
	}
	if target == "" {
		if target, err = uc.git.DefaultBranch(); err != nil {
			return fmt.Errorf("resolve target branch: %w", err)
		}
	}

	if err := uc.worktrees.ApplyUncommittedToMain(ctx, task.Worktree, target); err != nil {
		return fmt.Errorf("apply uncommitted changes: %w", err)
	}
	if uc.logger != nil {
		uc.logger.Info(task.ID, "merge", "applied uncommitted changes to "+target)
	}
	return nil
}
