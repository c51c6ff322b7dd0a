package shared

import (
	"context"
	"sync"
)

// Interrupts tracks the cancel functions of every in-flight sub-operation,
// keyed by interrupt id and grouped by task. A task-wide interrupt cancels
// everything registered under the task; a scoped interrupt cancels exactly
// one sub-operation (one file's conflict resolution, one prompt group).
type Interrupts struct {
	mu     sync.Mutex
	byID   map[string]context.CancelFunc
	byTask map[string]map[string]struct{}
}

// NewInterrupts creates an empty table.
func NewInterrupts() *Interrupts {
	return &Interrupts{
		byID:   make(map[string]context.CancelFunc),
		byTask: make(map[string]map[string]struct{}),
	}
}

// Register derives a cancellable context for one sub-operation of a task.
// The returned cancel removes the registration; callers defer it so
// completed operations do not accumulate in the table.
func (t *Interrupts) Register(ctx context.Context, taskID, interruptID string) (context.Context, context.CancelFunc) {
	child, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	t.byID[interruptID] = cancel
	if t.byTask[taskID] == nil {
		t.byTask[taskID] = make(map[string]struct{})
	}
	t.byTask[taskID][interruptID] = struct{}{}
	t.mu.Unlock()

	return child, func() {
		t.remove(taskID, interruptID)
		cancel()
	}
}

// CancelID cancels the single sub-operation registered under interruptID.
// It reports whether the id was known.
func (t *Interrupts) CancelID(interruptID string) bool {
	t.mu.Lock()
	cancel, ok := t.byID[interruptID]
	t.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// CancelTask cancels every sub-operation registered under the task and
// returns how many were cancelled.
func (t *Interrupts) CancelTask(taskID string) int {
	t.mu.Lock()
	var cancels []context.CancelFunc
	for id := range t.byTask[taskID] {
		if cancel, ok := t.byID[id]; ok {
			cancels = append(cancels, cancel)
		}
	}
	t.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	return len(cancels)
}

func (t *Interrupts) remove(taskID, interruptID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byID, interruptID)
	if ids := t.byTask[taskID]; ids != nil {
		delete(ids, interruptID)
		if len(ids) == 0 {
			delete(t.byTask, taskID)
		}
	}
}
