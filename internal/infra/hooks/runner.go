// Package hooks runs user-configured lifecycle hook commands. Each hook
// point maps to a shell command in the [hooks] config table; the event is
// delivered as JSON on stdin and the command may answer with a JSON
// result on stdout.
package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/mikan-dev/splice/internal/domain"
)

// blockedExitCode is the exit status a hook uses to block the operation
// without printing a result document.
const blockedExitCode = 2

// defaultTimeout bounds a single hook command.
const defaultTimeout = 30 * time.Second

// Runner implements domain.Hooks over external commands.
// Fields are ordered to minimize memory padding.
type Runner struct {
	commands map[string]string
	logger   domain.Logger
	workdir  string
	timeout  time.Duration
}

var _ domain.Hooks = (*Runner)(nil)

// NewRunner creates a Runner. commands maps hook point names to shell
// command lines; points without an entry pass through.
func NewRunner(workdir string, commands map[string]string, logger domain.Logger) *Runner {
	return &Runner{
		commands: commands,
		logger:   logger,
		workdir:  workdir,
		timeout:  defaultTimeout,
	}
}

// Run executes the command registered for the event's point. A missing
// command, empty output, or malformed output all pass the event through
// unchanged; only exit status 2 or an explicit result changes the outcome.
func (r *Runner) Run(ctx context.Context, ev domain.HookEvent) (domain.HookResult, error) {
	command := r.commands[string(ev.Point)]
	if command == "" {
		return domain.PassThrough(ev), nil
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return domain.HookResult{}, fmt.Errorf("encode hook event: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// #nosec G204 - command comes from trusted repository configuration
	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = r.workdir
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == blockedExitCode {
			r.logf(ev, "blocked by hook command")
			return domain.HookResult{Event: ev, Blocked: true}, nil
		}
		return domain.HookResult{}, fmt.Errorf("hook %s: %w: %s", ev.Point, err, strings.TrimSpace(stderr.String()))
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return domain.PassThrough(ev), nil
	}

	var result domain.HookResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		r.logf(ev, fmt.Sprintf("ignoring non-JSON hook output: %v", err))
		return domain.PassThrough(ev), nil
	}
	// The hook must not relabel the event; pin the point it was called for.
	result.Event.Point = ev.Point
	return result, nil
}

func (r *Runner) logf(ev domain.HookEvent, msg string) {
	if r.logger != nil {
		r.logger.Debug(ev.TaskID, "hooks", fmt.Sprintf("%s: %s", ev.Point, msg))
	}
}
