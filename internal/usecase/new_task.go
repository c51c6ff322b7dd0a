package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mikan-dev/splice/internal/domain"
)

// NewTaskInput contains the parameters for creating a new task.
// Fields are ordered to minimize memory padding.
type NewTaskInput struct {
	Title       string             // Task title (required)
	Model       string             // Model reference (optional)
	Profile     string             // Executor profile (optional)
	WorkingMode domain.WorkingMode // Isolation mode (optional, default local)
	BaseRef     string             // Base ref for the worktree (optional)
}

// NewTaskOutput contains the result of creating a new task.
type NewTaskOutput struct {
	Task *domain.Task
}

// NewTask is the use case for creating a new task.
type NewTask struct {
	tasks     domain.TaskRepository
	worktrees domain.WorktreeManager
	hooks     domain.Hooks
	clock     domain.Clock
	logger    domain.Logger
	repoRoot  string
}

// NewNewTask creates a new NewTask use case.
func NewNewTask(tasks domain.TaskRepository, worktrees domain.WorktreeManager, hooks domain.Hooks, clock domain.Clock, logger domain.Logger, repoRoot string) *NewTask {
	return &NewTask{
		tasks:     tasks,
		worktrees: worktrees,
		hooks:     hooks,
		clock:     clock,
		logger:    logger,
		repoRoot:  repoRoot,
	}
}

// Execute creates a new task with the given input.
func (uc *NewTask) Execute(ctx context.Context, in NewTaskInput) (*NewTaskOutput, error) {
	if in.Title == "" {
		return nil, domain.ErrEmptyTitle
	}
	mode := in.WorkingMode
	if mode == "" {
		mode = domain.ModeLocal
	}
	if !mode.IsValid() {
		return nil, domain.ErrInvalidMode
	}

	now := uc.clock.Now()
	task := &domain.Task{
		Created:     now,
		Updated:     now,
		ID:          uuid.NewString(),
		RepoRoot:    uc.repoRoot,
		Title:       in.Title,
		Model:       in.Model,
		Profile:     in.Profile,
		Status:      domain.StatusTodo,
		WorkingMode: mode,
	}

	if mode == domain.ModeWorktree {
		wt, err := uc.worktrees.Create(ctx, task.ID, domain.BranchName(task.ID), in.BaseRef)
		if err != nil {
			return nil, fmt.Errorf("create worktree: %w", err)
		}
		task.Worktree = wt
	}

	if err := uc.tasks.Save(task); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}

	if uc.hooks != nil {
		if _, err := uc.hooks.Run(ctx, domain.HookEvent{
			Point:    domain.HookTaskInitialized,
			RepoRoot: uc.repoRoot,
			TaskID:   task.ID,
			Text:     task.Title,
		}); err != nil && uc.logger != nil {
			uc.logger.Warn(task.ID, "hooks", fmt.Sprintf("%s: %v", domain.HookTaskInitialized, err))
		}
	}

	if uc.logger != nil {
		uc.logger.Info(task.ID, "task", fmt.Sprintf("created: %q (%s mode)", in.Title, mode))
	}
	return &NewTaskOutput{Task: task}, nil
}
