package domain

// HookPoint names an extension point in the prompt/task lifecycle.
type HookPoint string

const (
	HookPromptSubmitted          HookPoint = "onPromptSubmitted"
	HookPromptStarted            HookPoint = "onPromptStarted"
	HookTaskInitialized          HookPoint = "onTaskInitialized"
	HookTaskClosed               HookPoint = "onTaskClosed"
	HookFileAdded                HookPoint = "onFileAdded"
	HookCommandExecuted          HookPoint = "onCommandExecuted"
	HookQuestionAsked            HookPoint = "onQuestionAsked"
	HookQuestionAnswered         HookPoint = "onQuestionAnswered"
	HookSubagentStarted          HookPoint = "onSubagentStarted"
	HookSubagentFinished         HookPoint = "onSubagentFinished"
	HookResponseMessageProcessed HookPoint = "onResponseMessageProcessed"
)

// HookEvent is the payload delivered to a hook. Text carries the
// prompt/answer/command string relevant to the point; Files carries paths
// for file-related points.
type HookEvent struct {
	Point    HookPoint `json:"point"`
	RepoRoot string    `json:"repoRoot"`
	TaskID   string    `json:"taskID"`
	Text     string    `json:"text,omitempty"`
	Files    []string  `json:"files,omitempty"`
}

// HookResult is what a hook returns. Blocked aborts the in-progress
// operation cleanly; it is an explicit signal, not an error. ShortCircuit
// carries a replacement result when the hook fully handled the event.
// Otherwise Event (possibly mutated) continues down the chain.
type HookResult struct {
	Event        HookEvent `json:"event"`
	ShortCircuit string    `json:"shortCircuit,omitempty"`
	Blocked      bool      `json:"blocked"`
}

// PassThrough returns an unmodified, unblocked result for the event.
func PassThrough(ev HookEvent) HookResult {
	return HookResult{Event: ev}
}
