// Package usecase contains application use cases.
package usecase

import (
	"context"
	"fmt"

	"github.com/mikan-dev/splice/internal/domain"
)

// WorktreeStatusInput contains the parameters for a status refresh.
type WorktreeStatusInput struct {
	TaskID string // Task ID (required)
	Target string // Target branch (optional, empty = repository default)
}

// WorktreeStatusOutput contains the refreshed integration status.
type WorktreeStatusOutput struct {
	Unmerged   domain.UnmergedWork
	Prediction domain.ConflictPrediction
	Rebase     domain.RebaseState
	Target     string
}

// WorktreeStatus is the use case for refreshing a task's integration
// status: ahead/uncommitted summary, conflict prediction, and rebase
// state. It is read-only and may race harmlessly with a concurrent
// mutation; callers tolerate stale results.
type WorktreeStatus struct {
	tasks     domain.TaskRepository
	git       domain.Git
	worktrees domain.WorktreeManager
	publisher domain.EventPublisher
	repoRoot  string
}

// NewWorktreeStatus creates a new WorktreeStatus use case.
func NewWorktreeStatus(tasks domain.TaskRepository, git domain.Git, worktrees domain.WorktreeManager, publisher domain.EventPublisher, repoRoot string) *WorktreeStatus {
	return &WorktreeStatus{
		tasks:     tasks,
		git:       git,
		worktrees: worktrees,
		publisher: publisher,
		repoRoot:  repoRoot,
	}
}

// Execute computes the status and publishes it to subscribers.
func (uc *WorktreeStatus) Execute(ctx context.Context, in WorktreeStatusInput) (*WorktreeStatusOutput, error) {
	task, err := uc.tasks.Load(uc.repoRoot, in.TaskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}
	if !task.InWorktreeMode() || task.Worktree == nil {
		return nil, domain.ErrWorktreeNotFound
	}

	target := in.Target
	if target == "" {
		target = task.Worktree.BaseBranch
	}
	if target == "" {
		if target, err = uc.git.DefaultBranch(); err != nil {
			return nil, fmt.Errorf("resolve target branch: %w", err)
		}
	}

	unmerged, err := uc.worktrees.CheckUnmergedWork(ctx, task.Worktree, target)
	if err != nil {
		return nil, fmt.Errorf("check unmerged work: %w", err)
	}
	prediction, err := uc.worktrees.CheckRebaseConflicts(ctx, task.Worktree, target)
	if err != nil {
		return nil, fmt.Errorf("check rebase conflicts: %w", err)
	}
	rebase, err := uc.worktrees.ReadRebaseState(ctx, task.Worktree)
	if err != nil {
		return nil, fmt.Errorf("read rebase state: %w", err)
	}

	if uc.publisher != nil {
		uc.publisher.SendWorktreeStatusUpdated(domain.WorktreeStatusEvent{
			Unmerged:   unmerged,
			Prediction: prediction,
			RepoRoot:   uc.repoRoot,
			TaskID:     task.ID,
		})
	}

	return &WorktreeStatusOutput{
		Unmerged:   unmerged,
		Prediction: prediction,
		Rebase:     rebase,
		Target:     target,
	}, nil
}
