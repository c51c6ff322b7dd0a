package usecase

import (
	"context"
	"fmt"

	"github.com/mikan-dev/splice/internal/domain"
)

// ShowTaskInput contains the parameters for showing a task.
type ShowTaskInput struct {
	TaskID string // Task ID (required)
}

// ShowTaskOutput contains the task and, for worktree tasks, its current
// rebase state.
type ShowTaskOutput struct {
	Task   *domain.Task
	Rebase domain.RebaseState
}

// ShowTask is the use case for displaying one task with its conversation
// and worktree state.
type ShowTask struct {
	tasks     domain.TaskRepository
	worktrees domain.WorktreeManager
	repoRoot  string
}

// NewShowTask creates a new ShowTask use case.
func NewShowTask(tasks domain.TaskRepository, worktrees domain.WorktreeManager, repoRoot string) *ShowTask {
	return &ShowTask{tasks: tasks, worktrees: worktrees, repoRoot: repoRoot}
}

// Execute loads the task.
func (uc *ShowTask) Execute(ctx context.Context, in ShowTaskInput) (*ShowTaskOutput, error) {
	task, err := uc.tasks.Load(uc.repoRoot, in.TaskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}

	out := &ShowTaskOutput{Task: task}
	if task.InWorktreeMode() && task.Worktree != nil {
		// Rebase state is transient; derive it fresh on every show.
		state, err := uc.worktrees.ReadRebaseState(ctx, task.Worktree)
		if err == nil {
			out.Rebase = state
		}
	}
	return out, nil
}
