package domain

import "time"

// EventKind identifies a published event. Subscribers filter server-side
// by (repo root, task id) rather than registering per-listener closures.
type EventKind string

const (
	EventLog                       EventKind = "log"
	EventResponseChunk             EventKind = "response_chunk"
	EventResponseCompleted         EventKind = "response_completed"
	EventTaskUpdated               EventKind = "task_updated"
	EventWorktreeStatusUpdated     EventKind = "worktree_integration_status_updated"
	EventUpdatedFilesUpdated       EventKind = "updated_files_updated"
	EventNotification              EventKind = "notification"
)

// LogEvent is a human-readable log line scoped to a task.
type LogEvent struct {
	Time     time.Time `json:"time"`
	RepoRoot string    `json:"repoRoot"`
	TaskID   string    `json:"taskID"`
	Level    string    `json:"level"`
	Message  string    `json:"message"`
}

// ResponseChunkEvent delivers a coalesced streamed text fragment for one
// in-flight assistant message.
type ResponseChunkEvent struct {
	RepoRoot  string `json:"repoRoot"`
	TaskID    string `json:"taskID"`
	MessageID string `json:"messageID"`
	Text      string `json:"text"`
}

// ResponseCompletedEvent is the terminal signal for one in-flight message.
// No chunk for that message may be delivered after it.
type ResponseCompletedEvent struct {
	Message  ContextMessage `json:"message"`
	RepoRoot string         `json:"repoRoot"`
	TaskID   string         `json:"taskID"`
}

// TaskUpdatedEvent announces a persisted task mutation.
type TaskUpdatedEvent struct {
	Task     *Task  `json:"task"`
	RepoRoot string `json:"repoRoot"`
	TaskID   string `json:"taskID"`
}

// WorktreeStatusEvent carries refreshed ahead/conflict analysis.
type WorktreeStatusEvent struct {
	Unmerged   UnmergedWork       `json:"unmerged"`
	Prediction ConflictPrediction `json:"prediction"`
	RepoRoot   string             `json:"repoRoot"`
	TaskID     string             `json:"taskID"`
}

// UpdatedFilesEvent lists files touched by the last run.
type UpdatedFilesEvent struct {
	RepoRoot string   `json:"repoRoot"`
	TaskID   string   `json:"taskID"`
	Files    []string `json:"files"`
}

// NotificationEvent is a user-visible message, optionally with suggested
// follow-up actions a UI can render deterministically as buttons.
type NotificationEvent struct {
	RepoRoot string   `json:"repoRoot"`
	TaskID   string   `json:"taskID"`
	Title    string   `json:"title"`
	Body     string   `json:"body,omitempty"`
	Actions  []string `json:"actions,omitempty"`
}
