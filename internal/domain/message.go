package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role identifies the author of a ContextMessage.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// FragmentKind identifies the variant carried by a ContentFragment.
type FragmentKind string

const (
	FragmentText      FragmentKind = "text"
	FragmentTool      FragmentKind = "tool"
	FragmentReasoning FragmentKind = "reasoning"
)

// ContentFragment is one piece of assistant output. Exactly one payload
// field is set, selected by Kind. Decoding rejects unknown kinds so new
// variants cannot pass through silently.
type ContentFragment struct {
	Text      *TextFragment      `json:"text,omitempty"`
	Tool      *ToolFragment      `json:"tool,omitempty"`
	Reasoning *ReasoningFragment `json:"reasoning,omitempty"`
	Kind      FragmentKind       `json:"kind"`
}

// TextFragment is plain assistant prose.
type TextFragment struct {
	Content string `json:"content"`
}

// ToolFragment records one tool invocation and its result.
type ToolFragment struct {
	Name   string          `json:"name"`
	Input  json.RawMessage `json:"input,omitempty"`
	Output string          `json:"output,omitempty"`
	Failed bool            `json:"failed,omitempty"`
}

// ReasoningFragment is model reasoning not shown as final prose.
type ReasoningFragment struct {
	Content string `json:"content"`
}

// Validate checks that exactly the payload matching Kind is present.
func (f ContentFragment) Validate() error {
	switch f.Kind {
	case FragmentText:
		if f.Text == nil {
			return fmt.Errorf("%w: text fragment without payload", ErrInvalidFragment)
		}
	case FragmentTool:
		if f.Tool == nil {
			return fmt.Errorf("%w: tool fragment without payload", ErrInvalidFragment)
		}
	case FragmentReasoning:
		if f.Reasoning == nil {
			return fmt.Errorf("%w: reasoning fragment without payload", ErrInvalidFragment)
		}
	default:
		return fmt.Errorf("%w: unknown fragment kind %q", ErrInvalidFragment, f.Kind)
	}
	return nil
}

// PlainText flattens the fragment to displayable text, empty for tools.
func (f ContentFragment) PlainText() string {
	switch f.Kind {
	case FragmentText:
		if f.Text != nil {
			return f.Text.Content
		}
	case FragmentReasoning:
		if f.Reasoning != nil {
			return f.Reasoning.Content
		}
	}
	return ""
}

// TokenUsage records the cost of producing one assistant message.
type TokenUsage struct {
	InputTokens  int     `json:"inputTokens"`
	OutputTokens int     `json:"outputTokens"`
	CostUSD      float64 `json:"costUSD"`
}

// ContextMessage is one entry in a task's conversation. The Role field
// selects which of the optional payloads are meaningful: user and tool
// messages carry only Content, assistant messages additionally carry the
// files they edited, the commit they produced, the diff, and token usage.
// Seq is assigned by the executor and defines delivery order; streamed
// chunks from an external process may arrive interleaved, so arrival
// order is not authoritative.
// Fields are ordered to minimize memory padding.
type ContextMessage struct {
	Time          time.Time         `json:"time"`
	Usage         *TokenUsage       `json:"usage,omitempty"`
	ID            string            `json:"id"`
	Content       []ContentFragment `json:"content,omitempty"`
	EditedFiles   []string          `json:"editedFiles,omitempty"`
	CommitHash    string            `json:"commitHash,omitempty"`
	CommitMessage string            `json:"commitMessage,omitempty"`
	Diff          string            `json:"diff,omitempty"`
	PromptContext PromptContext     `json:"promptContext"`
	Role          Role              `json:"role"`
	Seq           int               `json:"seq"`
}

// PlainText flattens the message content for display and classification.
func (m ContextMessage) PlainText() string {
	var out string
	for _, f := range m.Content {
		out += f.PlainText()
	}
	return out
}

// PromptContext correlates a logical conversational turn with UI grouping.
// Fields are ordered to minimize memory padding.
type PromptContext struct {
	Group *PromptGroup `json:"group,omitempty"`
	ID    string       `json:"id"`
}

// PromptGroup carries optional interruptible-group metadata.
type PromptGroup struct {
	Name        string `json:"name"`
	Color       string `json:"color,omitempty"`
	InterruptID string `json:"interruptID,omitempty"` // Cancels only this group's work
	Finished    bool   `json:"finished"`
}

// ExecutionMode selects which executor runs a prompt.
type ExecutionMode string

const (
	// ExecAgent dispatches to the iterative, tool-using agent executor.
	ExecAgent ExecutionMode = "agent"
	// ExecPair dispatches a single request to the external
	// pair-programming process and waits for its finished signal.
	ExecPair ExecutionMode = "pair"
)

// IsValid returns true if the mode is a known value.
func (m ExecutionMode) IsValid() bool {
	return m == ExecAgent || m == ExecPair
}
