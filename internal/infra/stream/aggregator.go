// Package stream smooths high-frequency executor output into paced chunk
// deliveries and debounced status notifications.
package stream

import (
	"sync"
	"time"
)

// DeliverFunc receives an aggregated chunk for a message.
type DeliverFunc func(taskID, messageID, text string)

// Aggregator batches streamed response fragments per message id. The first
// fragment of a message is delivered immediately; later fragments
// accumulate and are released on a fixed-interval tick. An empty tick
// stops the timer, and a finished or cancelled message discards whatever
// is buffered, so no fragment is ever delivered after the terminal signal.
type Aggregator struct {
	mu            sync.Mutex
	entries       map[string]*aggEntry
	byTask        map[string]map[string]struct{}
	finished      map[string]struct{}
	finishedOrder []string
	deliver       DeliverFunc
	interval      time.Duration
}

type aggEntry struct {
	taskID string
	buf    string
	stop   chan struct{}
}

// DefaultInterval is the release period for buffered fragments.
const DefaultInterval = 10 * time.Millisecond

// finishedHistory bounds how many terminal message ids are remembered so a
// late fragment racing its terminal signal is recognized and dropped.
const finishedHistory = 128

// NewAggregator creates an Aggregator delivering through fn. A zero
// interval uses DefaultInterval.
func NewAggregator(interval time.Duration, fn DeliverFunc) *Aggregator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Aggregator{
		entries:  make(map[string]*aggEntry),
		byTask:   make(map[string]map[string]struct{}),
		finished: make(map[string]struct{}),
		deliver:  fn,
		interval: interval,
	}
}

// Push adds a fragment for a message, delivering it immediately if it is
// the first and buffering it otherwise.
func (a *Aggregator) Push(taskID, messageID, text string) {
	a.mu.Lock()
	if _, done := a.finished[messageID]; done {
		a.mu.Unlock()
		return
	}
	if e, ok := a.entries[messageID]; ok {
		e.buf += text
		a.mu.Unlock()
		return
	}

	e := &aggEntry{taskID: taskID, stop: make(chan struct{})}
	a.entries[messageID] = e
	if a.byTask[taskID] == nil {
		a.byTask[taskID] = make(map[string]struct{})
	}
	a.byTask[taskID][messageID] = struct{}{}
	a.mu.Unlock()

	a.deliver(taskID, messageID, text)
	go a.run(messageID, e)
}

// run releases buffered fragments on each tick until a tick finds the
// buffer empty or the entry is stopped.
func (a *Aggregator) run(messageID string, e *aggEntry) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.mu.Lock()
			if _, ok := a.entries[messageID]; !ok {
				a.mu.Unlock()
				return
			}
			if e.buf == "" {
				a.removeLocked(messageID, e)
				a.mu.Unlock()
				return
			}
			out := e.buf
			e.buf = ""
			a.mu.Unlock()
			a.deliver(e.taskID, messageID, out)
		case <-e.stop:
			return
		}
	}
}

// Finish signals the terminal event for a message: the timer is cancelled
// and any buffered remainder is discarded.
func (a *Aggregator) Finish(messageID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.entries[messageID]; ok {
		a.removeLocked(messageID, e)
	}
	a.markFinishedLocked(messageID)
}

// CancelTask discards every in-flight buffer belonging to a task. Used
// when the task is closed or interrupted so no timers leak.
func (a *Aggregator) CancelTask(taskID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for messageID := range a.byTask[taskID] {
		if e, ok := a.entries[messageID]; ok {
			a.removeLocked(messageID, e)
		}
		a.markFinishedLocked(messageID)
	}
}

// markFinishedLocked remembers a terminal message id, evicting the oldest
// entry past the history bound. Callers hold a.mu.
func (a *Aggregator) markFinishedLocked(messageID string) {
	if _, ok := a.finished[messageID]; ok {
		return
	}
	a.finished[messageID] = struct{}{}
	a.finishedOrder = append(a.finishedOrder, messageID)
	if len(a.finishedOrder) > finishedHistory {
		delete(a.finished, a.finishedOrder[0])
		a.finishedOrder = a.finishedOrder[1:]
	}
}

// removeLocked drops an entry and stops its timer goroutine. Callers hold
// a.mu.
func (a *Aggregator) removeLocked(messageID string, e *aggEntry) {
	select {
	case <-e.stop:
	default:
		close(e.stop)
	}
	delete(a.entries, messageID)
	if set, ok := a.byTask[e.taskID]; ok {
		delete(set, messageID)
		if len(set) == 0 {
			delete(a.byTask, e.taskID)
		}
	}
}
