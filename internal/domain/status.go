package domain

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusTodo            Status = "todo"             // New user message recorded, awaiting run
	StatusInProgress      Status = "in_progress"      // Prompt run executing
	StatusReadyForReview  Status = "ready_for_review" // Run completed, awaiting review
	StatusInterrupted     Status = "interrupted"      // Cancelled while in progress
	StatusMoreInfoNeeded  Status = "more_info_needed" // Assistant asked for clarification
	StatusReadyForImpl    Status = "ready_for_implementation"
	StatusDone            Status = "done"
)

// AllStatuses returns all valid status values.
func AllStatuses() []Status {
	return []Status{
		StatusTodo,
		StatusInProgress,
		StatusReadyForReview,
		StatusInterrupted,
		StatusMoreInfoNeeded,
		StatusReadyForImpl,
		StatusDone,
	}
}

// transitions defines the allowed status transitions.
// Flow: todo → in_progress → {ready_for_review | interrupted |
// more_info_needed | ready_for_implementation} → done. Recording a new
// user message returns any non-terminal state to todo.
var transitions = map[Status][]Status{
	StatusTodo:           {StatusInProgress, StatusDone},
	StatusInProgress:     {StatusReadyForReview, StatusInterrupted, StatusMoreInfoNeeded, StatusReadyForImpl, StatusTodo, StatusDone},
	StatusReadyForReview: {StatusTodo, StatusInProgress, StatusDone},
	StatusInterrupted:    {StatusTodo, StatusInProgress, StatusDone},
	StatusMoreInfoNeeded: {StatusTodo, StatusInProgress, StatusDone},
	StatusReadyForImpl:   {StatusTodo, StatusInProgress, StatusDone},
	StatusDone:           {},
}

// CanTransitionTo returns true if the status can transition to the target status.
func (s Status) CanTransitionTo(target Status) bool {
	allowed, ok := transitions[s]
	if !ok {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	return s == StatusDone
}

// IsValid returns true if the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReadyForReview, StatusInterrupted,
		StatusMoreInfoNeeded, StatusReadyForImpl, StatusDone:
		return true
	default:
		return false
	}
}

// Display returns a human-readable representation of the status.
func (s Status) Display() string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusReadyForReview:
		return "Ready for Review"
	case StatusInterrupted:
		return "Interrupted"
	case StatusMoreInfoNeeded:
		return "More Info Needed"
	case StatusReadyForImpl:
		return "Ready for Implementation"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}
