// Package shared provides shared utilities for use cases.
package shared

import (
	"context"
	"sync"
)

// Flight serializes prompt execution per task: at most one run is in
// flight for a task, and a second caller either waits for the current
// run to finish or gives up with its context.
type Flight struct {
	mu     sync.Mutex
	active map[string]chan struct{}
}

// NewFlight creates an empty Flight.
func NewFlight() *Flight {
	return &Flight{active: make(map[string]chan struct{})}
}

// Acquire blocks until no run is in flight for the task, then claims the
// slot. The returned release function must be called exactly once when
// the run finishes; it is safe to call from a deferred statement.
func (f *Flight) Acquire(ctx context.Context, taskID string) (func(), error) {
	for {
		f.mu.Lock()
		done, busy := f.active[taskID]
		if !busy {
			ch := make(chan struct{})
			f.active[taskID] = ch
			f.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					f.mu.Lock()
					delete(f.active, taskID)
					f.mu.Unlock()
					close(ch)
				})
			}, nil
		}
		f.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// InFlight reports whether a run is currently active for the task.
func (f *Flight) InFlight(taskID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, busy := f.active[taskID]
	return busy
}
