// Package pairexec runs the line-edit-style executor: prompts are handed
// to an external pair-programming process through a file-based mailbox and
// completion arrives asynchronously as a prompt-finished signal.
package pairexec

import (
	"sync"

	"github.com/mikan-dev/splice/internal/domain"
)

// Waiter correlates asynchronous prompt-finished signals with the run
// waiting on them. Channels are buffered so a Resolve never blocks even
// if the waiter gave up.
type Waiter struct {
	mu      sync.Mutex
	pending map[string]chan domain.PairResult
}

var _ domain.PromptWaiter = (*Waiter)(nil)

// NewWaiter creates an empty Waiter.
func NewWaiter() *Waiter {
	return &Waiter{pending: make(map[string]chan domain.PairResult)}
}

// Register returns a channel that yields exactly once when the prompt
// with the given id finishes. Registering the same id twice replaces the
// earlier registration.
func (w *Waiter) Register(promptID string) <-chan domain.PairResult {
	ch := make(chan domain.PairResult, 1)
	w.mu.Lock()
	w.pending[promptID] = ch
	w.mu.Unlock()
	return ch
}

// Resolve delivers the finished signal for a prompt. Unknown ids are
// dropped silently; the external process may signal prompts the
// orchestrator already abandoned.
func (w *Waiter) Resolve(promptID string, result domain.PairResult) {
	w.mu.Lock()
	ch, ok := w.pending[promptID]
	if ok {
		delete(w.pending, promptID)
	}
	w.mu.Unlock()
	if ok {
		ch <- result
	}
}

// Cancel discards a registration without delivering a result.
func (w *Waiter) Cancel(promptID string) {
	w.mu.Lock()
	delete(w.pending, promptID)
	w.mu.Unlock()
}
