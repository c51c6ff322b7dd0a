// Package testutil provides shared test utilities and mock implementations.
package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/mikan-dev/splice/internal/domain"
)

// MockClock is a test double for domain.Clock.
type MockClock struct {
	NowTime time.Time
}

// Now returns the configured time.
func (m *MockClock) Now() time.Time {
	return m.NowTime
}

// MockTaskRepository is a test double for domain.TaskRepository.
// Fields are ordered to minimize memory padding.
type MockTaskRepository struct {
	Tasks   map[string]*domain.Task
	LoadErr error
	SaveErr error
	Saved   []string // IDs in save order
}

// NewMockTaskRepository creates a new MockTaskRepository with initialized maps.
func NewMockTaskRepository() *MockTaskRepository {
	return &MockTaskRepository{Tasks: make(map[string]*domain.Task)}
}

// Load retrieves a task. Returns nil if not found.
func (m *MockTaskRepository) Load(_, id string) (*domain.Task, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.Tasks[id], nil
}

// List returns all tasks sorted by creation time.
func (m *MockTaskRepository) List(string) ([]*domain.Task, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	tasks := make([]*domain.Task, 0, len(m.Tasks))
	for _, t := range m.Tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].Created.Equal(tasks[j].Created) {
			return tasks[i].Created.Before(tasks[j].Created)
		}
		return tasks[i].ID < tasks[j].ID
	})
	return tasks, nil
}

// Save creates or updates a task.
func (m *MockTaskRepository) Save(task *domain.Task) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Tasks[task.ID] = task
	m.Saved = append(m.Saved, task.ID)
	return nil
}

// Delete removes a task.
func (m *MockTaskRepository) Delete(_, id string) error {
	delete(m.Tasks, id)
	return nil
}

// MockGit is a test double for domain.Git.
// Fields are ordered to minimize memory padding.
type MockGit struct {
	Branches      map[string]string // branch name -> commit hash
	Branch        string
	Default       string
	BranchErr     error
	HasCommitsVal bool
}

// NewMockGit creates a MockGit on branch main with one commit.
func NewMockGit() *MockGit {
	return &MockGit{
		Branches:      map[string]string{"main": "abc123"},
		Branch:        "main",
		Default:       "main",
		HasCommitsVal: true,
	}
}

// CurrentBranch returns the configured branch.
func (m *MockGit) CurrentBranch() (string, error) {
	return m.Branch, m.BranchErr
}

// BranchExists checks the configured branch map.
func (m *MockGit) BranchExists(branch string) (bool, error) {
	_, ok := m.Branches[branch]
	return ok, nil
}

// ResolveCommit resolves a branch from the configured map.
func (m *MockGit) ResolveCommit(rev string) (string, error) {
	if hash, ok := m.Branches[rev]; ok {
		return hash, nil
	}
	return rev, nil
}

// DefaultBranch returns the configured default branch.
func (m *MockGit) DefaultBranch() (string, error) {
	return m.Default, nil
}

// HasCommits returns the configured value.
func (m *MockGit) HasCommits() (bool, error) {
	return m.HasCommitsVal, nil
}

// MockWorktreeManager is a test double for domain.WorktreeManager.
// Every call is recorded; errors are injected per method.
// Fields are ordered to minimize memory padding.
type MockWorktreeManager struct {
	Worktree      *domain.Worktree
	MergeState    *domain.MergeState
	Unmerged      domain.UnmergedWork
	Prediction    domain.ConflictPrediction
	RebaseState   domain.RebaseState
	CreateErr     error
	RemoveErr     error
	MergeErr      error
	RevertErr     error
	RebaseErr     error
	ApplyErr      error
	Calls         []string
	LastMergeOpts domain.MergeOptions
}

// Create returns the configured worktree.
func (m *MockWorktreeManager) Create(_ context.Context, taskID, branch, _ string) (*domain.Worktree, error) {
	m.Calls = append(m.Calls, "Create")
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	if m.Worktree != nil {
		return m.Worktree, nil
	}
	return &domain.Worktree{Path: "/tmp/wt/" + taskID, BaseBranch: branch, BaseCommit: "abc123"}, nil
}

// Remove records the call.
func (m *MockWorktreeManager) Remove(context.Context, *domain.Worktree) error {
	m.Calls = append(m.Calls, "Remove")
	return m.RemoveErr
}

// CheckUnmergedWork returns the configured summary.
func (m *MockWorktreeManager) CheckUnmergedWork(context.Context, *domain.Worktree, string) (domain.UnmergedWork, error) {
	m.Calls = append(m.Calls, "CheckUnmergedWork")
	return m.Unmerged, nil
}

// CheckRebaseConflicts returns the configured prediction.
func (m *MockWorktreeManager) CheckRebaseConflicts(context.Context, *domain.Worktree, string) (domain.ConflictPrediction, error) {
	m.Calls = append(m.Calls, "CheckRebaseConflicts")
	return m.Prediction, nil
}

// MergeToMain records the options used.
func (m *MockWorktreeManager) MergeToMain(_ context.Context, _ *domain.Worktree, opts domain.MergeOptions) error {
	m.Calls = append(m.Calls, "MergeToMain")
	m.LastMergeOpts = opts
	return m.MergeErr
}

// MergeToMainWithUncommitted returns the configured merge state.
func (m *MockWorktreeManager) MergeToMainWithUncommitted(_ context.Context, _ *domain.Worktree, opts domain.MergeOptions) (*domain.MergeState, error) {
	m.Calls = append(m.Calls, "MergeToMainWithUncommitted")
	m.LastMergeOpts = opts
	if m.MergeErr != nil {
		return nil, m.MergeErr
	}
	if m.MergeState != nil {
		return m.MergeState, nil
	}
	return &domain.MergeState{BeforeMergeCommit: "abc123", WorktreeBranchCommit: "def456", TargetBranch: opts.TargetBranch}, nil
}

// RevertMerge records the call.
func (m *MockWorktreeManager) RevertMerge(context.Context, *domain.Worktree, *domain.MergeState) error {
	m.Calls = append(m.Calls, "RevertMerge")
	return m.RevertErr
}

// ApplyUncommittedToMain records the call.
func (m *MockWorktreeManager) ApplyUncommittedToMain(context.Context, *domain.Worktree, string) error {
	m.Calls = append(m.Calls, "ApplyUncommittedToMain")
	return m.ApplyErr
}

// Rebase records the call.
func (m *MockWorktreeManager) Rebase(context.Context, *domain.Worktree, string) error {
	m.Calls = append(m.Calls, "Rebase")
	return m.RebaseErr
}

// ContinueRebase records the call.
func (m *MockWorktreeManager) ContinueRebase(context.Context, *domain.Worktree) error {
	m.Calls = append(m.Calls, "ContinueRebase")
	return m.RebaseErr
}

// AbortRebase records the call.
func (m *MockWorktreeManager) AbortRebase(context.Context, *domain.Worktree) error {
	m.Calls = append(m.Calls, "AbortRebase")
	return m.RebaseErr
}

// ReadRebaseState returns the configured state.
func (m *MockWorktreeManager) ReadRebaseState(context.Context, *domain.Worktree) (domain.RebaseState, error) {
	return m.RebaseState, nil
}

// MockAgentExecutor is a test double for domain.AgentExecutor.
// Fields are ordered to minimize memory padding.
type MockAgentExecutor struct {
	// RunFunc, when set, replaces the canned response.
	RunFunc  func(ctx context.Context, req domain.AgentRequest) ([]domain.ContextMessage, error)
	RunErr   error
	Response []domain.ContextMessage
	Requests []domain.AgentRequest
}

// RunAgent records the request and returns the canned response.
func (m *MockAgentExecutor) RunAgent(ctx context.Context, req domain.AgentRequest) ([]domain.ContextMessage, error) {
	m.Requests = append(m.Requests, req)
	if m.RunFunc != nil {
		return m.RunFunc(ctx, req)
	}
	if m.RunErr != nil {
		return nil, m.RunErr
	}
	return m.Response, nil
}

// MockPairExecutor is a test double for domain.PairExecutor.
// Fields are ordered to minimize memory padding.
type MockPairExecutor struct {
	// Sent, when non-nil, receives every request as it arrives so a test
	// goroutine can react without polling.
	Sent        chan domain.PairRequest
	SendErr     error
	Requests    []domain.PairRequest
	Interrupted []string
}

// SendPrompt records the request.
func (m *MockPairExecutor) SendPrompt(_ context.Context, req domain.PairRequest) error {
	if m.SendErr != nil {
		return m.SendErr
	}
	m.Requests = append(m.Requests, req)
	if m.Sent != nil {
		m.Sent <- req
	}
	return nil
}

// Interrupt records the task id.
func (m *MockPairExecutor) Interrupt(taskID string) error {
	m.Interrupted = append(m.Interrupted, taskID)
	return nil
}

// MockEventPublisher is a test double for domain.EventPublisher that
// records every published event.
type MockEventPublisher struct {
	Logs          []domain.LogEvent
	Chunks        []domain.ResponseChunkEvent
	Completed     []domain.ResponseCompletedEvent
	TaskUpdates   []domain.TaskUpdatedEvent
	StatusUpdates []domain.WorktreeStatusEvent
	FileUpdates   []domain.UpdatedFilesEvent
	Notifications []domain.NotificationEvent
}

// SendLog records the event.
func (m *MockEventPublisher) SendLog(ev domain.LogEvent) { m.Logs = append(m.Logs, ev) }

// SendResponseChunk records the event.
func (m *MockEventPublisher) SendResponseChunk(ev domain.ResponseChunkEvent) {
	m.Chunks = append(m.Chunks, ev)
}

// SendResponseCompleted records the event.
func (m *MockEventPublisher) SendResponseCompleted(ev domain.ResponseCompletedEvent) {
	m.Completed = append(m.Completed, ev)
}

// SendTaskUpdated records the event.
func (m *MockEventPublisher) SendTaskUpdated(ev domain.TaskUpdatedEvent) {
	m.TaskUpdates = append(m.TaskUpdates, ev)
}

// SendWorktreeStatusUpdated records the event.
func (m *MockEventPublisher) SendWorktreeStatusUpdated(ev domain.WorktreeStatusEvent) {
	m.StatusUpdates = append(m.StatusUpdates, ev)
}

// SendUpdatedFilesUpdated records the event.
func (m *MockEventPublisher) SendUpdatedFilesUpdated(ev domain.UpdatedFilesEvent) {
	m.FileUpdates = append(m.FileUpdates, ev)
}

// SendNotification records the event.
func (m *MockEventPublisher) SendNotification(ev domain.NotificationEvent) {
	m.Notifications = append(m.Notifications, ev)
}

// MockHooks is a test double for domain.Hooks.
// Fields are ordered to minimize memory padding.
type MockHooks struct {
	RunErr error
	Block  map[domain.HookPoint]bool
	Events []domain.HookEvent
}

// Run records the event and blocks if configured for its point.
func (m *MockHooks) Run(_ context.Context, ev domain.HookEvent) (domain.HookResult, error) {
	m.Events = append(m.Events, ev)
	if m.RunErr != nil {
		return domain.HookResult{}, m.RunErr
	}
	if m.Block[ev.Point] {
		return domain.HookResult{Event: ev, Blocked: true}, nil
	}
	return domain.PassThrough(ev), nil
}

// MockTextGenerator is a test double for domain.TextGenerator.
// Fields are ordered to minimize memory padding.
type MockTextGenerator struct {
	GenErr   error
	Response string
	Prompts  []string
	Profiles []string
}

// Generate records the call and returns the canned response.
func (m *MockTextGenerator) Generate(_ context.Context, profile, prompt string) (string, error) {
	m.Profiles = append(m.Profiles, profile)
	m.Prompts = append(m.Prompts, prompt)
	if m.GenErr != nil {
		return "", m.GenErr
	}
	return m.Response, nil
}

// MockClassifier is a test double for domain.ResponseClassifier.
// Fields are ordered to minimize memory padding.
type MockClassifier struct {
	ClassifyErr error
	Status      domain.Status
	Calls       int
}

// Classify returns the configured status.
func (m *MockClassifier) Classify(context.Context, *domain.ContextMessage) (domain.Status, error) {
	m.Calls++
	if m.ClassifyErr != nil {
		return "", m.ClassifyErr
	}
	if m.Status == "" {
		return domain.StatusReadyForReview, nil
	}
	return m.Status, nil
}

// NopLogger is a domain.Logger that discards everything.
type NopLogger struct{}

// Debug discards the line.
func (NopLogger) Debug(string, string, string) {}

// Info discards the line.
func (NopLogger) Info(string, string, string) {}

// Warn discards the line.
func (NopLogger) Warn(string, string, string) {}

// Error discards the line.
func (NopLogger) Error(string, string, string) {}
