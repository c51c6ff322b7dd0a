package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors.
var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrWorktreeNotFound   = errors.New("worktree not found")
	ErrNoMergeState       = errors.New("no merge state to revert")
	ErrNotGitRepository   = errors.New("not a git repository (or any of the parent directories)")
	ErrNotInitialized     = errors.New("splice not initialized (run 'splice init' first)")
	ErrAlreadyInitialized = errors.New("splice already initialized")
	ErrPromptBlocked      = errors.New("prompt blocked by hook")
	ErrPromptInFlight     = errors.New("another prompt is already in flight")
	ErrEmptyPrompt        = errors.New("prompt cannot be empty")
	ErrNoUserMessage      = errors.New("conversation has no user message")
	ErrInvalidMode        = errors.New("invalid working mode")
	ErrInvalidExecMode    = errors.New("invalid execution mode")
	ErrInvalidFragment    = errors.New("invalid content fragment")
	ErrInterrupted        = errors.New("operation interrupted")
	ErrRebaseInProgress   = errors.New("rebase already in progress")
	ErrNoRebaseInProgress = errors.New("no rebase in progress")
	ErrEmptyTitle         = errors.New("title cannot be empty")
)

// GitError carries the full context of a failed git invocation: the
// arguments attempted, the raw combined output, and the working directory.
// It exists so failure messages surfacing to a human contain enough detail
// to recover manually.
type GitError struct {
	Err    error
	Dir    string
	Output string
	Args   []string
}

// NewGitError wraps a failed git command with its invocation context.
func NewGitError(err error, dir string, output string, args ...string) *GitError {
	return &GitError{Err: err, Dir: dir, Output: output, Args: args}
}

// Error formats the failure with command and captured output.
func (e *GitError) Error() string {
	msg := fmt.Sprintf("git %s (in %s): %v", strings.Join(e.Args, " "), e.Dir, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *GitError) Unwrap() error {
	return e.Err
}

// ConflictError marks a git failure caused by merge/rebase conflicts.
// It wraps the originating GitError and carries suggested follow-up
// actions a UI can render as buttons.
type ConflictError struct {
	Git     *GitError
	Actions []string
}

// conflict follow-up action identifiers.
const (
	ActionAbortRebase      = "abort-rebase"
	ActionResolveWithAgent = "resolve-conflicts-with-agent"
)

// NewConflictError wraps a conflicting git failure with default follow-ups.
func NewConflictError(git *GitError) *ConflictError {
	return &ConflictError{
		Git:     git,
		Actions: []string{ActionAbortRebase, ActionResolveWithAgent},
	}
}

// Error reports the conflict with the underlying git context.
func (e *ConflictError) Error() string {
	return "conflicts must be resolved first: " + e.Git.Error()
}

// Unwrap returns the wrapped GitError.
func (e *ConflictError) Unwrap() error {
	return e.Git
}

// IsConflict reports whether err represents a merge/rebase conflict.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
