package usecase

import (
	"context"
	"fmt"

	"github.com/mikan-dev/splice/internal/domain"
)

// RevertMergeInput contains the parameters for reverting a merge.
type RevertMergeInput struct {
	TaskID string // Task ID (required)
}

// RevertMerge is the use case for exactly undoing the most recent
// integration of a task's worktree. The recorded merge state is consumed
// and cleared on success.
type RevertMerge struct {
	tasks     domain.TaskRepository
	worktrees domain.WorktreeManager
	publisher domain.EventPublisher
	clock     domain.Clock
	logger    domain.Logger
	repoRoot  string
}

// NewRevertMerge creates a new RevertMerge use case.
func NewRevertMerge(tasks domain.TaskRepository, worktrees domain.WorktreeManager, publisher domain.EventPublisher, clock domain.Clock, logger domain.Logger, repoRoot string) *RevertMerge {
	return &RevertMerge{
		tasks:     tasks,
		worktrees: worktrees,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		repoRoot:  repoRoot,
	}
}

// Execute reverts the last merge recorded for the task.
func (uc *RevertMerge) Execute(ctx context.Context, in RevertMergeInput) error {
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
	if task.LastMergeState == nil {
		return domain.ErrNoMergeState
	}

	if err := uc.worktrees.RevertMerge(ctx, task.Worktree, task.LastMergeState); err != nil {
		return fmt.Errorf("revert merge: %w", err)
	}

	task.LastMergeState = nil
	task.Updated = uc.clock.Now()
	if err := uc.tasks.Save(task); err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	if uc.publisher != nil {
		uc.publisher.SendTaskUpdated(domain.TaskUpdatedEvent{Task: task, RepoRoot: uc.repoRoot, TaskID: task.ID})
	}
	if uc.logger != nil {
		uc.logger.Info(task.ID, "merge", "reverted last merge")
	}
	return nil
}
