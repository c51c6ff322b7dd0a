package domain

import (
	"context"
	"time"
)

// StoreInitializer initializes the data store.
type StoreInitializer interface {
	// Initialize creates the store if it doesn't exist.
	Initialize() error
}

// TaskRepository manages task persistence, keyed by (repository root, task id).
// Records are durable across process restarts.
type TaskRepository interface {
	// Load retrieves a task. Returns nil if not found.
	Load(repoRoot, id string) (*Task, error)

	// List retrieves all tasks for a repository.
	List(repoRoot string) ([]*Task, error)

	// Save creates or updates a task.
	Save(task *Task) error

	// Delete removes a task.
	Delete(repoRoot, id string) error
}

// Git provides read-only repository queries.
type Git interface {
	// CurrentBranch returns the name of the checked-out branch.
	CurrentBranch() (string, error)

	// BranchExists checks if a local branch exists.
	BranchExists(branch string) (bool, error)

	// ResolveCommit resolves a revision (branch, HEAD, hash) to a full hash.
	ResolveCommit(rev string) (string, error)

	// DefaultBranch returns the repository's default branch (main or master).
	DefaultBranch() (string, error)

	// HasCommits reports whether HEAD points at any commit.
	HasCommits() (bool, error)
}

// WorktreeManager performs all mutating git sequences for a task's
// isolation worktree. Implementations serialize operations per worktree
// path; callers never hold the lock themselves.
type WorktreeManager interface {
	// Create idempotently creates the worktree for a task. An empty branch
	// name produces a detached worktree; baseRef defaults to HEAD.
	Create(ctx context.Context, taskID, branch, baseRef string) (*Worktree, error)

	// Remove force-removes the worktree and best-effort deletes its branch.
	// A worktree that is already gone is success, not an error.
	Remove(ctx context.Context, wt *Worktree) error

	// CheckUnmergedWork reports ahead commits and uncommitted changes
	// relative to the target branch. Read-only, fails open.
	CheckUnmergedWork(ctx context.Context, wt *Worktree, target string) (UnmergedWork, error)

	// CheckRebaseConflicts predicts whether rebasing onto target would
	// conflict. Read-only, fails open.
	CheckRebaseConflicts(ctx context.Context, wt *Worktree, target string) (ConflictPrediction, error)

	// MergeToMain rebases the worktree onto target, then integrates via
	// squash commit or fast-forward-only merge.
	MergeToMain(ctx context.Context, wt *Worktree, opts MergeOptions) error

	// MergeToMainWithUncommitted performs the full stash-transplanting
	// merge transaction and returns the MergeState needed for revert.
	MergeToMainWithUncommitted(ctx context.Context, wt *Worktree, opts MergeOptions) (*MergeState, error)

	// RevertMerge exactly undoes the integration recorded in state while
	// preserving work created since.
	RevertMerge(ctx context.Context, wt *Worktree, state *MergeState) error

	// ApplyUncommittedToMain transplants only uncommitted changes to the
	// target branch's working tree.
	ApplyUncommittedToMain(ctx context.Context, wt *Worktree, target string) error

	// Rebase rebases target into the worktree, wrapping uncommitted
	// changes in a temporary commit. On conflict it returns a structured
	// error without aborting; the caller decides abort vs. resolution.
	Rebase(ctx context.Context, wt *Worktree, target string) error

	// ContinueRebase resumes a conflicted rebase after resolution.
	ContinueRebase(ctx context.Context, wt *Worktree) error

	// AbortRebase abandons an in-progress rebase.
	AbortRebase(ctx context.Context, wt *Worktree) error

	// ReadRebaseState derives the current rebase state from the worktree.
	ReadRebaseState(ctx context.Context, wt *Worktree) (RebaseState, error)
}

// MergeOptions configures a merge integration.
// Fields are ordered to minimize memory padding.
type MergeOptions struct {
	TargetBranch string // Branch to integrate into
	Message      string // Squash commit message; generated if empty
	TaskTitle    string // Fallback commit message
	Squash       bool   // Squash commit vs. fast-forward-only merge
}

// AgentRequest carries everything the agent-style executor needs for one run.
// Fields are ordered to minimize memory padding.
type AgentRequest struct {
	Task            *Task
	PromptContext   PromptContext
	Profile         string
	Prompt          string
	SystemPrompt    string
	ContextMessages []ContextMessage
	ContextFiles    []string
	Waitable        bool
}

// AgentExecutor runs the iterative, tool-using executor. It emits streamed
// text/tool events through the EventPublisher as it runs and honors
// cancellation via ctx.
type AgentExecutor interface {
	RunAgent(ctx context.Context, req AgentRequest) ([]ContextMessage, error)
}

// PairRequest is one prompt sent to the external pair-programming process.
type PairRequest struct {
	Task     *Task
	PromptID string
	Prompt   string
}

// PairExecutor sends prompts to the external line-edit process. Completion
// arrives asynchronously as a "prompt finished" signal correlated by
// prompt id; the signal is resolved through a PromptWaiter.
type PairExecutor interface {
	SendPrompt(ctx context.Context, req PairRequest) error
	Interrupt(taskID string) error
}

// PairResult is the payload of a "prompt finished" signal.
type PairResult struct {
	Messages []ContextMessage
	Err      error
}

// PromptWaiter correlates asynchronous prompt-finished signals with the
// run that is waiting for them. If the external process never signals,
// the returned channel never yields; timeouts are the caller's concern.
type PromptWaiter interface {
	// Register returns a channel that yields exactly once when the prompt
	// with the given id finishes.
	Register(promptID string) <-chan PairResult

	// Resolve delivers the finished signal for a prompt. Unknown ids are
	// dropped.
	Resolve(promptID string, result PairResult)

	// Cancel discards a registration without delivering a result.
	Cancel(promptID string)
}

// EventPublisher delivers events to clients. All methods are
// fire-and-forget, at-most-once-per-call, no acknowledgement.
type EventPublisher interface {
	SendLog(ev LogEvent)
	SendResponseChunk(ev ResponseChunkEvent)
	SendResponseCompleted(ev ResponseCompletedEvent)
	SendTaskUpdated(ev TaskUpdatedEvent)
	SendWorktreeStatusUpdated(ev WorktreeStatusEvent)
	SendUpdatedFilesUpdated(ev UpdatedFilesEvent)
	SendNotification(ev NotificationEvent)
}

// Hooks runs named extension points. A nil Hooks implementation behaves
// as if every hook passed the event through unchanged.
type Hooks interface {
	Run(ctx context.Context, ev HookEvent) (HookResult, error)
}

// TextGenerator produces short completions: squash commit messages,
// conversation summaries, handoff prompts.
type TextGenerator interface {
	Generate(ctx context.Context, profile, prompt string) (string, error)
}

// ConflictFileRequest carries the three-way content for one conflicted file.
type ConflictFileRequest struct {
	Path        string
	BasePath    string // Temp file holding the merge-base version
	OursPath    string // Temp file holding our side
	TheirsPath  string // Temp file holding their side
	CurrentPath string // The working copy with conflict markers
	InterruptID string // Cancels only this file's resolution
}

// ConflictResolver performs the AI resolution pass for one file and
// returns the merged content. It must honor ctx cancellation.
type ConflictResolver interface {
	ResolveConflict(ctx context.Context, req ConflictFileRequest) (string, error)
}

// ResponseClassifier inspects the final assistant message of a run and
// decides the post-run status: ready_for_review by default,
// more_info_needed or ready_for_implementation when the message warrants.
type ResponseClassifier interface {
	Classify(ctx context.Context, msg *ContextMessage) (Status, error)
}

// Logger writes leveled, task-scoped log lines.
type Logger interface {
	Debug(taskID, category, msg string)
	Info(taskID, category, msg string)
	Warn(taskID, category, msg string)
	Error(taskID, category, msg string)
}

// Clock provides time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}
