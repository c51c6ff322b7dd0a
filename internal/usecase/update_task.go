package usecase

import (
	"context"
	"fmt"

	"github.com/mikan-dev/splice/internal/domain"
	"github.com/mikan-dev/splice/internal/usecase/shared"
)

// UpdateTaskInput contains the field updates to apply. Empty fields are
// left unchanged.
// Fields are ordered to minimize memory padding.
type UpdateTaskInput struct {
	TaskID      string             // Task ID (required)
	Title       string             // New title (optional)
	Model       string             // New model reference (optional)
	Profile     string             // New executor profile (optional)
	Status      domain.Status      // New status (optional)
	WorkingMode domain.WorkingMode // New working mode (optional)
	BaseRef     string             // Base ref for a new worktree (optional)
}

// UpdateTask is the use case for applying field updates to a task. A
// working-mode change waits for any in-flight prompt, then creates or
// removes the isolation worktree before the rest of the update persists.
type UpdateTask struct {
	tasks     domain.TaskRepository
	worktrees domain.WorktreeManager
	publisher domain.EventPublisher
	flight    *shared.Flight
	clock     domain.Clock
	logger    domain.Logger
	repoRoot  string
}

// NewUpdateTask creates a new UpdateTask use case.
func NewUpdateTask(tasks domain.TaskRepository, worktrees domain.WorktreeManager, publisher domain.EventPublisher, flight *shared.Flight, clock domain.Clock, logger domain.Logger, repoRoot string) *UpdateTask {
	return &UpdateTask{
		tasks:     tasks,
		worktrees: worktrees,
		publisher: publisher,
		flight:    flight,
		clock:     clock,
		logger:    logger,
		repoRoot:  repoRoot,
	}
}

// Execute applies the updates and persists the task.
func (uc *UpdateTask) Execute(ctx context.Context, in UpdateTaskInput) (*domain.Task, error) {
	if in.WorkingMode != "" && !in.WorkingMode.IsValid() {
		return nil, domain.ErrInvalidMode
	}

	task, err := uc.tasks.Load(uc.repoRoot, in.TaskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}

	if in.WorkingMode != "" && in.WorkingMode != task.WorkingMode {
		// A mode switch moves the task's filesystem changes; it must not
		// race a prompt that is editing them.
		release, err := uc.flight.Acquire(ctx, task.ID)
		if err != nil {
			return nil, fmt.Errorf("wait for in-flight prompt: %w", err)
		}
		defer release()

		if err := uc.switchMode(ctx, task, in.WorkingMode, in.BaseRef); err != nil {
			return nil, err
		}
	}

	if in.Title != "" {
		task.Title = in.Title
	}
	if in.Model != "" {
		task.Model = in.Model
	}
	if in.Profile != "" {
		task.Profile = in.Profile
	}
	if in.Status != "" {
		if !in.Status.IsValid() {
			return nil, fmt.Errorf("unknown status %q", in.Status)
		}
		if !task.Status.CanTransitionTo(in.Status) {
			return nil, fmt.Errorf("cannot transition %s to %s", task.Status, in.Status)
		}
		task.Status = in.Status
	}

	task.Updated = uc.clock.Now()
	if err := uc.tasks.Save(task); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}
	if uc.publisher != nil {
		uc.publisher.SendTaskUpdated(domain.TaskUpdatedEvent{Task: task, RepoRoot: uc.repoRoot, TaskID: task.ID})
	}
	return task, nil
}

// switchMode creates or removes the isolation worktree to match the
// requested mode.
func (uc *UpdateTask) switchMode(ctx context.Context, task *domain.Task, mode domain.WorkingMode, baseRef string) error {
	switch mode {
	case domain.ModeWorktree:
		wt, err := uc.worktrees.Create(ctx, task.ID, domain.BranchName(task.ID), baseRef)
		if err != nil {
			return fmt.Errorf("create worktree: %w", err)
		}
		task.Worktree = wt
	case domain.ModeLocal:
		if task.Worktree != nil {
			if err := uc.worktrees.Remove(ctx, task.Worktree); err != nil {
				return fmt.Errorf("remove worktree: %w", err)
			}
			task.Worktree = nil
			task.LastMergeState = nil
		}
	}
	task.WorkingMode = mode
	if uc.logger != nil {
		uc.logger.Info(task.ID, "task", fmt.Sprintf("working mode switched to %s", mode))
	}
	return nil
}
