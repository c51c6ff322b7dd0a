package usecase

import (
	"context"
	"fmt"

	"github.com/mikan-dev/splice/internal/domain"
)

// PruneTasksInput contains the parameters for pruning.
type PruneTasksInput struct {
	IncludeDone bool // Also remove tasks marked done
}

// PruneTasksOutput reports what was removed.
type PruneTasksOutput struct {
	Removed []string // Task IDs removed
}

// PruneTasks is the use case for removing stale tasks: empty transient
// tasks always, done tasks on request. Worktrees belonging to removed
// tasks are removed with them.
type PruneTasks struct {
	tasks     domain.TaskRepository
	worktrees domain.WorktreeManager
	logger    domain.Logger
	repoRoot  string
}

// NewPruneTasks creates a new PruneTasks use case.
func NewPruneTasks(tasks domain.TaskRepository, worktrees domain.WorktreeManager, logger domain.Logger, repoRoot string) *PruneTasks {
	return &PruneTasks{
		tasks:     tasks,
		worktrees: worktrees,
		logger:    logger,
		repoRoot:  repoRoot,
	}
}

// Execute removes prunable tasks.
func (uc *PruneTasks) Execute(ctx context.Context, in PruneTasksInput) (*PruneTasksOutput, error) {
	all, err := uc.tasks.List(uc.repoRoot)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	out := &PruneTasksOutput{}
	for _, task := range all {
		if task.Status == domain.StatusInProgress {
			continue
		}
		prunable := task.IsEmpty() || (in.IncludeDone && task.Status == domain.StatusDone)
		if !prunable {
			continue
		}

		if task.Worktree != nil {
			if err := uc.worktrees.Remove(ctx, task.Worktree); err != nil {
				if uc.logger != nil {
					uc.logger.Warn(task.ID, "prune", fmt.Sprintf("remove worktree: %v", err))
				}
				continue
			}
		}
		if err := uc.tasks.Delete(uc.repoRoot, task.ID); err != nil {
			return out, fmt.Errorf("delete task %s: %w", task.ID, err)
		}
		out.Removed = append(out.Removed, task.ID)
		if uc.logger != nil {
			uc.logger.Info(task.ID, "prune", "removed")
		}
	}
	return out, nil
}
