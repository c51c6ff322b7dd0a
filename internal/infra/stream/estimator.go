package stream

import (
	"sync"
	"time"
)

// Crude chars-per-token ratio. The authoritative usage arrives with the
// completed response; this only prices the stream while it runs.
const charsPerToken = 4

// DefaultEstimateDelay is the quiet period before an estimate is reported.
const DefaultEstimateDelay = 500 * time.Millisecond

// CostEstimator accumulates streamed output volume per task and reports a
// rough token estimate once the stream goes quiet. Bursts of chunks
// coalesce into one trailing report per task.
type CostEstimator struct {
	mu     sync.Mutex
	tasks  map[string]*taskEstimate
	report func(taskID string, tokens int)
	delay  time.Duration
}

type taskEstimate struct {
	debounce *Debouncer
	chars    int
}

// NewCostEstimator creates a CostEstimator reporting through fn. A zero
// delay uses DefaultEstimateDelay.
func NewCostEstimator(delay time.Duration, fn func(taskID string, tokens int)) *CostEstimator {
	if delay <= 0 {
		delay = DefaultEstimateDelay
	}
	return &CostEstimator{
		tasks:  make(map[string]*taskEstimate),
		report: fn,
		delay:  delay,
	}
}

// Observe records a streamed fragment and schedules the trailing report.
func (c *CostEstimator) Observe(taskID, text string) {
	if text == "" {
		return
	}
	c.mu.Lock()
	e, ok := c.tasks[taskID]
	if !ok {
		e = &taskEstimate{}
		e.debounce = NewDebouncer(c.delay, func() { c.emit(taskID) })
		c.tasks[taskID] = e
	}
	e.chars += len(text)
	c.mu.Unlock()

	e.debounce.Trigger()
}

// CancelTask drops the task's pending estimate without reporting it.
func (c *CostEstimator) CancelTask(taskID string) {
	c.mu.Lock()
	e, ok := c.tasks[taskID]
	delete(c.tasks, taskID)
	c.mu.Unlock()
	if ok {
		e.debounce.Stop()
	}
}

func (c *CostEstimator) emit(taskID string) {
	c.mu.Lock()
	e, ok := c.tasks[taskID]
	if !ok {
		c.mu.Unlock()
		return
	}
	chars := e.chars
	delete(c.tasks, taskID)
	c.mu.Unlock()

	if c.report != nil {
		c.report(taskID, chars/charsPerToken)
	}
}
