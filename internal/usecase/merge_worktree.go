package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikan-dev/splice/internal/domain"
)

// MergeWorktreeInput contains the parameters for merging a task's
// worktree into the target branch.
// Fields are ordered to minimize memory padding.
type MergeWorktreeInput struct {
	TaskID  string // Task ID (required)
	Target  string // Target branch (optional, empty = worktree base branch)
	Message string // Squash commit message (optional, empty = generated)
	Squash  bool   // Squash commit vs. fast-forward-only merge
}

// MergeWorktreeOutput contains the result of the merge.
type MergeWorktreeOutput struct {
	MergeState *domain.MergeState // Non-nil when uncommitted changes were transplanted
	Target     string
}

// MergeWorktree is the use case for integrating a task's worktree branch
// into the target branch. Uncommitted changes route through the
// stash-transplanting transaction so they survive in both trees and the
// merge stays revertible.
type MergeWorktree struct {
	tasks     domain.TaskRepository
	git       domain.Git
	worktrees domain.WorktreeManager
	publisher domain.EventPublisher
	clock     domain.Clock
	logger    domain.Logger
	repoRoot  string
}

// NewMergeWorktree creates a new MergeWorktree use case.
func NewMergeWorktree(tasks domain.TaskRepository, git domain.Git, worktrees domain.WorktreeManager, publisher domain.EventPublisher, clock domain.Clock, logger domain.Logger, repoRoot string) *MergeWorktree {
	return &MergeWorktree{
		tasks:     tasks,
		git:       git,
		worktrees: worktrees,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		repoRoot:  repoRoot,
	}
}

// Execute merges the worktree into the target branch and records the
// merge state for revert.
func (uc *MergeWorktree) Execute(ctx context.Context, in MergeWorktreeInput) (*MergeWorktreeOutput, error) {
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

	target, err := uc.resolveTarget(task, in.Target)
	if err != nil {
		return nil, err
	}

	unmerged, err := uc.worktrees.CheckUnmergedWork(ctx, task.Worktree, target)
	if err != nil {
		return nil, fmt.Errorf("check unmerged work: %w", err)
	}

	opts := domain.MergeOptions{
		TargetBranch: target,
		Message:      in.Message,
		TaskTitle:    task.Title,
		Squash:       in.Squash,
	}

	var state *domain.MergeState
	if unmerged.HasUncommitted {
		state, err = uc.worktrees.MergeToMainWithUncommitted(ctx, task.Worktree, opts)
	} else {
		err = uc.worktrees.MergeToMain(ctx, task.Worktree, opts)
	}
	if err != nil {
		uc.notifyFailure(task, err)
		return nil, fmt.Errorf("merge worktree: %w", err)
	}

	// Any previous merge state is invalidated by this merge.
	task.LastMergeState = state
	task.Updated = uc.clock.Now()
	if err := uc.tasks.Save(task); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}
	if uc.publisher != nil {
		uc.publisher.SendTaskUpdated(domain.TaskUpdatedEvent{Task: task, RepoRoot: uc.repoRoot, TaskID: task.ID})
	}
	if uc.logger != nil {
		uc.logger.Info(task.ID, "merge", fmt.Sprintf("merged into %s (squash=%t)", target, in.Squash))
	}

	return &MergeWorktreeOutput{MergeState: state, Target: target}, nil
}

func (uc *MergeWorktree) resolveTarget(task *domain.Task, target string) (string, error) {
	if target != "" {
		return target, nil
	}
	if task.Worktree.BaseBranch != "" {
		return task.Worktree.BaseBranch, nil
	}
	branch, err := uc.git.DefaultBranch()
	if err != nil {
		return "", fmt.Errorf("resolve target branch: %w", err)
	}
	return branch, nil
}

func (uc *MergeWorktree) notifyFailure(task *domain.Task, err error) {
	if uc.publisher == nil {
		return
	}
	ev := domain.NotificationEvent{
		RepoRoot: uc.repoRoot,
		TaskID:   task.ID,
		Title:    "Merge failed",
		Body:     err.Error(),
	}
	var ce *domain.ConflictError
	if errors.As(err, &ce) {
		ev.Actions = ce.Actions
	}
	uc.publisher.SendNotification(ev)
}
