package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikan-dev/splice/internal/domain"
)

// RebaseWorktreeInput contains the parameters for rebasing a worktree.
type RebaseWorktreeInput struct {
	TaskID string // Task ID (required)
	Target string // Target branch (optional, empty = worktree base branch)
}

// RebaseWorktreeOutput contains the rebase state after the attempt.
type RebaseWorktreeOutput struct {
	Rebase domain.RebaseState
	Target string
}

// RebaseWorktree is the use case for rebasing the target branch into a
// task's worktree. A conflict leaves the rebase in progress for the
// caller to abort, continue manually, or hand to the conflict resolver.
type RebaseWorktree struct {
	tasks     domain.TaskRepository
	git       domain.Git
	worktrees domain.WorktreeManager
	publisher domain.EventPublisher
	clock     domain.Clock
	logger    domain.Logger
	repoRoot  string
}

// NewRebaseWorktree creates a new RebaseWorktree use case.
func NewRebaseWorktree(tasks domain.TaskRepository, git domain.Git, worktrees domain.WorktreeManager, publisher domain.EventPublisher, clock domain.Clock, logger domain.Logger, repoRoot string) *RebaseWorktree {
	return &RebaseWorktree{
		tasks:     tasks,
		git:       git,
		worktrees: worktrees,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		repoRoot:  repoRoot,
	}
}

// Execute rebases the worktree onto the target branch.
func (uc *RebaseWorktree) Execute(ctx context.Context, in RebaseWorktreeInput) (*RebaseWorktreeOutput, error) {
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

	rebaseErr := uc.worktrees.Rebase(ctx, task.Worktree, target)
	state, stateErr := uc.worktrees.ReadRebaseState(ctx, task.Worktree)
	if stateErr != nil && uc.logger != nil {
		uc.logger.Warn(task.ID, "rebase", fmt.Sprintf("read rebase state: %v", stateErr))
	}

	if rebaseErr != nil {
		if domain.IsConflict(rebaseErr) {
			uc.notifyConflict(task, rebaseErr)
			return &RebaseWorktreeOutput{Rebase: state, Target: target}, fmt.Errorf("rebase onto %s: %w", target, rebaseErr)
		}
		return nil, fmt.Errorf("rebase onto %s: %w", target, rebaseErr)
	}

	uc.clearMergeState(task)
	if uc.logger != nil {
		uc.logger.Info(task.ID, "rebase", "rebased onto "+target)
	}
	return &RebaseWorktreeOutput{Rebase: state, Target: target}, nil
}

func (uc *RebaseWorktree) notifyConflict(task *domain.Task, err error) {
	if uc.publisher == nil {
		return
	}
	ev := domain.NotificationEvent{
		RepoRoot: uc.repoRoot,
		TaskID:   task.ID,
		Title:    "Rebase stopped on conflicts",
		Body:     err.Error(),
	}
	var ce *domain.ConflictError
	if errors.As(err, &ce) {
		ev.Actions = ce.Actions
	}
	uc.publisher.SendNotification(ev)
}

// clearMergeState drops the recorded merge state after a clean rebase;
// the commits it referenced no longer describe the branch.
func (uc *RebaseWorktree) clearMergeState(task *domain.Task) {
	if task.LastMergeState == nil {
		return
	}
	task.LastMergeState = nil
	task.Updated = uc.clock.Now()
	if err := uc.tasks.Save(task); err != nil && uc.logger != nil {
		uc.logger.Error(task.ID, "rebase", fmt.Sprintf("save task: %v", err))
	}
}
