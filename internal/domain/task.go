// Package domain contains core business entities and interfaces.
package domain

import "time"

// WorkingMode determines where a task's filesystem changes land.
type WorkingMode string

const (
	// ModeLocal runs prompts directly against the repository working tree.
	ModeLocal WorkingMode = "local"
	// ModeWorktree isolates the task's changes in a dedicated git worktree.
	ModeWorktree WorkingMode = "worktree"
)

// IsValid returns true if the mode is a known value.
func (m WorkingMode) IsValid() bool {
	return m == ModeLocal || m == ModeWorktree
}

// Task represents one conversational unit of work against a repository.
// Fields are ordered to minimize memory padding.
type Task struct {
	Created        time.Time        `json:"created"`
	Started        time.Time        `json:"started,omitempty"`     // When status last became in_progress
	Interrupted    time.Time        `json:"interrupted,omitempty"` // When the task was last interrupted
	Completed      time.Time        `json:"completed,omitempty"`   // When the last prompt run finished
	Updated        time.Time        `json:"updated"`
	Worktree       *Worktree        `json:"worktree,omitempty"`       // Non-nil iff WorkingMode is worktree
	LastMergeState *MergeState      `json:"lastMergeState,omitempty"` // Enables revert of the most recent merge
	ID             string           `json:"-"`                        // Task ID (stored as map key, not in value)
	RepoRoot       string           `json:"repoRoot"`                 // Owning repository root
	Title          string           `json:"title"`
	Model          string           `json:"model,omitempty"`   // Selected model reference
	Profile        string           `json:"profile,omitempty"` // Selected executor profile
	Status         Status           `json:"status"`
	WorkingMode    WorkingMode      `json:"workingMode"`
	Messages       []ContextMessage `json:"messages,omitempty"`
	Cost           CostUsage        `json:"cost"`
}

// CostUsage accumulates token and dollar cost across all prompt runs.
type CostUsage struct {
	InputTokens  int     `json:"inputTokens"`
	OutputTokens int     `json:"outputTokens"`
	TotalUSD     float64 `json:"totalUSD"`
}

// Add accumulates another usage sample.
func (c *CostUsage) Add(other CostUsage) {
	c.InputTokens += other.InputTokens
	c.OutputTokens += other.OutputTokens
	c.TotalUSD += other.TotalUSD
}

// IsEmpty returns true if the task has no conversation yet.
// Empty tasks are transient: they are not persisted and are removed at shutdown.
func (t *Task) IsEmpty() bool {
	return len(t.Messages) == 0
}

// InWorktreeMode returns true if the task isolates changes in a worktree.
func (t *Task) InWorktreeMode() bool {
	return t.WorkingMode == ModeWorktree
}

// LastUserMessageIndex returns the index of the last user message,
// or -1 if the conversation contains none.
func (t *Task) LastUserMessageIndex() int {
	for i := len(t.Messages) - 1; i >= 0; i-- {
		if t.Messages[i].Role == RoleUser {
			return i
		}
	}
	return -1
}

// LastAssistantMessage returns the most recent assistant message, or nil.
func (t *Task) LastAssistantMessage() *ContextMessage {
	for i := len(t.Messages) - 1; i >= 0; i-- {
		if t.Messages[i].Role == RoleAssistant {
			return &t.Messages[i]
		}
	}
	return nil
}

// Worktree is the isolation unit for a task running in worktree mode.
// Fields are ordered to minimize memory padding.
type Worktree struct {
	Path       string `json:"path"`       // Absolute filesystem path
	BaseBranch string `json:"baseBranch"` // Branch the worktree was created from
	BaseCommit string `json:"baseCommit"` // Commit hash the worktree started at
	Prunable   bool   `json:"prunable"`   // Set when the backing task is gone
}

// MergeState captures everything needed to exactly undo the most recent
// integration of a worktree branch into the target branch.
// Created at the end of a successful merge, consumed by revert,
// invalidated by any subsequent merge.
type MergeState struct {
	Timestamp            time.Time `json:"timestamp"`
	BeforeMergeCommit    string    `json:"beforeMergeCommit"`    // Target branch HEAD before the merge
	WorktreeBranchCommit string    `json:"worktreeBranchCommit"` // Worktree branch HEAD at merge time
	MainStashID          string    `json:"mainStashID,omitempty"` // Stash holding the target's pre-merge uncommitted changes
	TargetBranch         string    `json:"targetBranch"`
}

// RebaseState is derived by inspecting a worktree; it is never persisted.
type RebaseState struct {
	ConflictingFiles []string `json:"conflictingFiles,omitempty"`
	InProgress       bool     `json:"inProgress"`
	HasConflicts     bool     `json:"hasConflicts"`
}

// UnmergedWork summarizes what a worktree holds relative to its target branch.
type UnmergedWork struct {
	AheadCommits   []string `json:"aheadCommits,omitempty"` // Commit subjects in worktree not on target
	HasUncommitted bool     `json:"hasUncommitted"`         // Uncommitted changes in the worktree
}

// HasWork returns true if merging the worktree would change the target.
func (u UnmergedWork) HasWork() bool {
	return len(u.AheadCommits) > 0 || u.HasUncommitted
}

// ConflictPrediction reports whether rebasing the worktree onto the target
// would conflict, and which files are implicated.
// Fields are ordered to minimize memory padding.
type ConflictPrediction struct {
	ConflictingFiles []string `json:"conflictingFiles,omitempty"`
	WorktreeCommits  []string `json:"worktreeCommits,omitempty"` // Commit subjects on the worktree side
	TargetCommits    []string `json:"targetCommits,omitempty"`   // Commit subjects on the target side
	HasConflicts     bool     `json:"hasConflicts"`
	Approximate      bool     `json:"approximate"` // True when the merge-tree dry run was unavailable
}
