package stream

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of triggers into one trailing-edge call.
// Each Trigger restarts the wait; fn runs once the triggers go quiet for
// the full delay.
type Debouncer struct {
	mu    sync.Mutex
	timer *time.Timer
	fn    func()
	delay time.Duration
}

// NewDebouncer creates a Debouncer invoking fn after delay of quiet.
func NewDebouncer(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{fn: fn, delay: delay}
}

// Trigger schedules (or reschedules) the trailing call.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fn)
}

// Stop cancels any pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
