package usecase

import (
	"context"
	"fmt"

	"github.com/mikan-dev/splice/internal/domain"
)

// ListTasksInput contains the parameters for listing tasks.
type ListTasksInput struct {
	Status domain.Status // Filter (optional, empty = all)
}

// ListTasksOutput contains the matching tasks in creation order.
type ListTasksOutput struct {
	Tasks []*domain.Task
}

// ListTasks is the use case for listing a repository's tasks.
type ListTasks struct {
	tasks    domain.TaskRepository
	repoRoot string
}

// NewListTasks creates a new ListTasks use case.
func NewListTasks(tasks domain.TaskRepository, repoRoot string) *ListTasks {
	return &ListTasks{tasks: tasks, repoRoot: repoRoot}
}

// Execute lists the tasks, optionally filtered by status.
func (uc *ListTasks) Execute(_ context.Context, in ListTasksInput) (*ListTasksOutput, error) {
	all, err := uc.tasks.List(uc.repoRoot)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if in.Status == "" {
		return &ListTasksOutput{Tasks: all}, nil
	}

	var filtered []*domain.Task
	for _, t := range all {
		if t.Status == in.Status {
			filtered = append(filtered, t)
		}
	}
	return &ListTasksOutput{Tasks: filtered}, nil
}
