package pairexec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/mikan-dev/splice/internal/domain"
)

const defaultPollInterval = 200 * time.Millisecond

// promptFile is the request written into the mailbox for the external
// pair process.
type promptFile struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
	TaskID    string    `json:"taskId"`
	Prompt    string    `json:"prompt"`
}

// resultFile is the prompt-finished signal the external process writes
// back. Either Messages or Error is set.
type resultFile struct {
	ID       string                  `json:"id"`
	Error    string                  `json:"error,omitempty"`
	Messages []domain.ContextMessage `json:"messages,omitempty"`
}

// Executor implements domain.PairExecutor over a per-task file mailbox.
// Prompts are enqueued under prompts/, results are polled from results/,
// and interrupts are signalled through interrupts/. Files are written via
// temp-and-rename so the other side never reads a partial JSON document.
type Executor struct {
	waiter       *Waiter
	logger       domain.Logger
	watchCancels map[string]context.CancelFunc
	spliceDir    string
	pollInterval time.Duration
	mu           sync.Mutex
}

var _ domain.PairExecutor = (*Executor)(nil)

// New creates an Executor writing mailboxes under spliceDir.
func New(spliceDir string, waiter *Waiter, logger domain.Logger) *Executor {
	return &Executor{
		waiter:       waiter,
		logger:       logger,
		watchCancels: make(map[string]context.CancelFunc),
		spliceDir:    spliceDir,
		pollInterval: defaultPollInterval,
	}
}

func (e *Executor) taskDir(taskID string) string {
	return filepath.Join(e.spliceDir, "pair", "task-"+taskID)
}

// SendPrompt enqueues a prompt for the external process and ensures a
// result watcher is running for the task. The caller must have registered
// req.PromptID with the Waiter; completion arrives on that channel, or
// never, if the external process never signals.
func (e *Executor) SendPrompt(ctx context.Context, req domain.PairRequest) error {
	if req.Prompt == "" {
		return domain.ErrEmptyPrompt
	}
	dir := filepath.Join(e.taskDir(req.Task.ID), "prompts")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create prompts dir: %w", err)
	}

	payload, err := json.Marshal(promptFile{
		CreatedAt: time.Now().UTC(),
		ID:        req.PromptID,
		TaskID:    req.Task.ID,
		Prompt:    req.Prompt,
	})
	if err != nil {
		return fmt.Errorf("marshal prompt: %w", err)
	}

	if err := writeAtomic(dir, req.PromptID+".json", payload); err != nil {
		return err
	}

	e.ensureWatcher(req.Task.ID)
	return ctx.Err()
}

// Interrupt signals the external process to stop the task's current work.
func (e *Executor) Interrupt(taskID string) error {
	dir := filepath.Join(e.taskDir(taskID), "interrupts")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create interrupts dir: %w", err)
	}
	name := fmt.Sprintf("%020d.json", time.Now().UTC().UnixNano())
	return writeAtomic(dir, name, []byte("{}"))
}

// Close stops all result watchers.
func (e *Executor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, cancel := range e.watchCancels {
		cancel()
		delete(e.watchCancels, id)
	}
}

// ensureWatcher starts the per-task result polling goroutine once.
func (e *Executor) ensureWatcher(taskID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.watchCancels[taskID]; ok {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.watchCancels[taskID] = cancel
	go e.watchResults(ctx, taskID)
}

// watchResults polls the results directory and resolves finished prompts
// through the Waiter. Consumed files are removed; unreadable files are
// parked so they cannot wedge the poll loop.
func (e *Executor) watchResults(ctx context.Context, taskID string) {
	dir := filepath.Join(e.taskDir(taskID), "results")
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(e.pollInterval):
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			e.warn(taskID, fmt.Sprintf("read results dir: %v", err))
			continue
		}

		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
				names = append(names, entry.Name())
			}
		}
		sort.Strings(names)

		for _, name := range names {
			path := filepath.Join(dir, name)
			data, err := os.ReadFile(path)
			if err != nil {
				moveToFailed(path)
				continue
			}
			var res resultFile
			if err := json.Unmarshal(data, &res); err != nil || res.ID == "" {
				moveToFailed(path)
				continue
			}
			// The external process wrote this JSON; fragments outside the
			// closed content union fail the prompt instead of slipping
			// through half-decoded.
			if err := validateMessages(res.Messages); err != nil {
				moveToFailed(path)
				e.warn(taskID, fmt.Sprintf("invalid result %s: %v", name, err))
				e.waiter.Resolve(res.ID, domain.PairResult{Err: err})
				continue
			}
			if err := os.Remove(path); err != nil {
				continue
			}

			result := domain.PairResult{Messages: res.Messages}
			if res.Error != "" {
				result.Err = errors.New(res.Error)
			}
			e.waiter.Resolve(res.ID, result)
		}
	}
}

// validateMessages enforces the content fragment union on every message.
func validateMessages(msgs []domain.ContextMessage) error {
	for _, m := range msgs {
		for _, f := range m.Content {
			if err := f.Validate(); err != nil {
				return fmt.Errorf("message %s: %w", m.ID, err)
			}
		}
	}
	return nil
}

func (e *Executor) warn(taskID, msg string) {
	if e.logger != nil {
		e.logger.Warn(taskID, "pair", msg)
	}
}

func writeAtomic(dir, name string, payload []byte) error {
	tmpPath := filepath.Join(dir, ".tmp-"+name)
	finalPath := filepath.Join(dir, name)
	if err := os.WriteFile(tmpPath, payload, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("finalize file: %w", err)
	}
	return nil
}

func moveToFailed(path string) {
	failedDir := filepath.Join(filepath.Dir(path), "failed")
	if err := os.MkdirAll(failedDir, 0o750); err == nil {
		if err := os.Rename(path, filepath.Join(failedDir, filepath.Base(path))); err == nil {
			return
		}
	}
	_ = os.Rename(path, path+".bad")
}
