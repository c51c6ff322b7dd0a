package usecase

import (
	"context"
	"fmt"

	"github.com/mikan-dev/splice/internal/domain"
	"github.com/mikan-dev/splice/internal/infra/conflict"
)

// ConflictCoordinator resolves every unmerged file in a conflicted tree.
type ConflictCoordinator interface {
	ResolveAll(ctx context.Context, taskID, dir string) (conflict.Report, error)
}

// ResolveConflictsInput contains the parameters for AI conflict resolution.
type ResolveConflictsInput struct {
	TaskID   string // Task ID (required)
	Continue bool   // Continue the rebase when every file resolves
}

// ResolveConflictsOutput reports the outcome per file and whether the
// rebase can proceed.
type ResolveConflictsOutput struct {
	Report    conflict.Report
	Continued bool // True when the rebase was continued to completion
}

// ResolveConflicts is the use case for resolving a conflicted rebase in a
// task's worktree with the AI resolver, file by file.
type ResolveConflicts struct {
	tasks       domain.TaskRepository
	worktrees   domain.WorktreeManager
	coordinator ConflictCoordinator
	cont        *ContinueRebase
	publisher   domain.EventPublisher
	logger      domain.Logger
	repoRoot    string
}

// NewResolveConflicts creates a new ResolveConflicts use case.
func NewResolveConflicts(tasks domain.TaskRepository, worktrees domain.WorktreeManager, coordinator ConflictCoordinator, cont *ContinueRebase, publisher domain.EventPublisher, logger domain.Logger, repoRoot string) *ResolveConflicts {
	return &ResolveConflicts{
		tasks:       tasks,
		worktrees:   worktrees,
		coordinator: coordinator,
		cont:        cont,
		publisher:   publisher,
		logger:      logger,
		repoRoot:    repoRoot,
	}
}

// Execute resolves the conflicted files and, if requested and everything
// resolved, continues the rebase.
func (uc *ResolveConflicts) Execute(ctx context.Context, in ResolveConflictsInput) (*ResolveConflictsOutput, error) {
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

	state, err := uc.worktrees.ReadRebaseState(ctx, task.Worktree)
	if err != nil {
		return nil, fmt.Errorf("read rebase state: %w", err)
	}
	if !state.InProgress {
		return nil, domain.ErrNoRebaseInProgress
	}

	report, err := uc.coordinator.ResolveAll(ctx, task.ID, task.Worktree.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve conflicts: %w", err)
	}

	out := &ResolveConflictsOutput{Report: report}
	if report.AllResolved() && in.Continue && uc.cont != nil {
		if err := uc.cont.Execute(ctx, ContinueRebaseInput{TaskID: task.ID}); err != nil {
			return out, fmt.Errorf("continue rebase: %w", err)
		}
		out.Continued = true
	}

	uc.notify(task, report, out.Continued)
	return out, nil
}

func (uc *ResolveConflicts) notify(task *domain.Task, report conflict.Report, continued bool) {
	if uc.publisher == nil {
		return
	}
	ev := domain.NotificationEvent{
		RepoRoot: uc.repoRoot,
		TaskID:   task.ID,
		Title:    "Conflict resolution finished",
		Body: fmt.Sprintf("%d resolved, %d failed, %d interrupted",
			len(report.Resolved), len(report.Failed), len(report.Interrupted)),
	}
	if !report.AllResolved() {
		ev.Actions = []string{domain.ActionAbortRebase, domain.ActionResolveWithAgent}
	} else if !continued {
		ev.Body += "; rebase ready to continue"
	}
	uc.publisher.SendNotification(ev)
}
