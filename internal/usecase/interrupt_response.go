package usecase

import (
	"context"
	"fmt"

	"github.com/mikan-dev/splice/internal/domain"
	"github.com/mikan-dev/splice/internal/usecase/shared"
)

// InterruptResponseInput contains the parameters for interrupting work.
// Fields are ordered to minimize memory padding.
type InterruptResponseInput struct {
	TaskID      string // Task ID (required)
	InterruptID string // Scoped interrupt (optional, empty = task-wide)
}

// InterruptResponseOutput reports what was cancelled.
type InterruptResponseOutput struct {
	Cancelled int  // Sub-operations cancelled
	Scoped    bool // True when only one sub-operation was targeted
}

// StreamCanceler drops any buffered streaming state held for a task, so a
// task-wide cancel also silences chunks still waiting to flush.
type StreamCanceler interface {
	CancelTask(taskID string)
}

// InterruptResponse is the use case for cancelling in-flight work. With
// an interrupt id it aborts exactly one sub-operation (one file's
// conflict resolution); without one it cancels everything registered for
// the task, answers any pending question negatively, and flips the task
// to interrupted.
type InterruptResponse struct {
	tasks      domain.TaskRepository
	pair       domain.PairExecutor
	hooks      domain.Hooks
	publisher  domain.EventPublisher
	interrupts *shared.Interrupts
	streams    []StreamCanceler
	clock      domain.Clock
	logger     domain.Logger
	repoRoot   string
}

// NewInterruptResponse creates a new InterruptResponse use case.
func NewInterruptResponse(tasks domain.TaskRepository, pair domain.PairExecutor, hooks domain.Hooks, publisher domain.EventPublisher, interrupts *shared.Interrupts, streams []StreamCanceler, clock domain.Clock, logger domain.Logger, repoRoot string) *InterruptResponse {
	return &InterruptResponse{
		tasks:      tasks,
		pair:       pair,
		hooks:      hooks,
		publisher:  publisher,
		interrupts: interrupts,
		streams:    streams,
		clock:      clock,
		logger:     logger,
		repoRoot:   repoRoot,
	}
}

// Execute cancels in-flight work for the task.
func (uc *InterruptResponse) Execute(ctx context.Context, in InterruptResponseInput) (*InterruptResponseOutput, error) {
	if in.InterruptID != "" {
		if !uc.interrupts.CancelID(in.InterruptID) {
			return &InterruptResponseOutput{Scoped: true}, nil
		}
		if uc.logger != nil {
			uc.logger.Info(in.TaskID, "interrupt", fmt.Sprintf("cancelled sub-operation %s", in.InterruptID))
		}
		return &InterruptResponseOutput{Cancelled: 1, Scoped: true}, nil
	}

	task, err := uc.tasks.Load(uc.repoRoot, in.TaskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}

	cancelled := uc.interrupts.CancelTask(task.ID)
	for _, s := range uc.streams {
		s.CancelTask(task.ID)
	}

	if uc.pair != nil {
		if err := uc.pair.Interrupt(task.ID); err != nil && uc.logger != nil {
			uc.logger.Warn(task.ID, "interrupt", fmt.Sprintf("pair interrupt: %v", err))
		}
	}

	// Any question the assistant left open is answered with the negative
	// default so the external process does not wait forever.
	if uc.hooks != nil {
		if _, err := uc.hooks.Run(ctx, domain.HookEvent{
			Point:    domain.HookQuestionAnswered,
			RepoRoot: uc.repoRoot,
			TaskID:   task.ID,
			Text:     "no",
		}); err != nil && uc.logger != nil {
			uc.logger.Warn(task.ID, "hooks", fmt.Sprintf("%s: %v", domain.HookQuestionAnswered, err))
		}
	}

	if task.Status == domain.StatusInProgress {
		now := uc.clock.Now()
		task.Status = domain.StatusInterrupted
		task.Interrupted = now
		task.Updated = now
		if err := uc.tasks.Save(task); err != nil {
			return nil, fmt.Errorf("save task: %w", err)
		}
		if uc.publisher != nil {
			uc.publisher.SendTaskUpdated(domain.TaskUpdatedEvent{Task: task, RepoRoot: uc.repoRoot, TaskID: task.ID})
		}
	}

	if uc.logger != nil {
		uc.logger.Info(task.ID, "interrupt", fmt.Sprintf("cancelled %d sub-operations", cancelled))
	}
	return &InterruptResponseOutput{Cancelled: cancelled}, nil
}
