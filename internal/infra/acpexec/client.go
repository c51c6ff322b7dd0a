package acpexec

import (
	"context"
	"fmt"
	"sync"

	acpsdk "github.com/coder/acp-go-sdk"

	"github.com/mikan-dev/splice/internal/domain"
)

// collector assembles streamed session updates into ordered content
// fragments. Adjacent chunks of the same kind coalesce into one fragment.
type collector struct {
	mu        sync.Mutex
	fragments []domain.ContentFragment
	toolIndex map[string]int
	onText    func(text string)
}

func newCollector(onText func(string)) *collector {
	return &collector{
		toolIndex: make(map[string]int),
		onText:    onText,
	}
}

func (c *collector) Text(text string) {
	if text == "" {
		return
	}
	c.mu.Lock()
	if n := len(c.fragments); n > 0 && c.fragments[n-1].Kind == domain.FragmentText {
		c.fragments[n-1].Text.Content += text
	} else {
		c.fragments = append(c.fragments, domain.ContentFragment{
			Kind: domain.FragmentText,
			Text: &domain.TextFragment{Content: text},
		})
	}
	c.mu.Unlock()

	if c.onText != nil {
		c.onText(text)
	}
}

func (c *collector) Thought(text string) {
	if text == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := len(c.fragments); n > 0 && c.fragments[n-1].Kind == domain.FragmentReasoning {
		c.fragments[n-1].Reasoning.Content += text
		return
	}
	c.fragments = append(c.fragments, domain.ContentFragment{
		Kind:      domain.FragmentReasoning,
		Reasoning: &domain.ReasoningFragment{Content: text},
	})
}

func (c *collector) ToolStart(id, title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fragments = append(c.fragments, domain.ContentFragment{
		Kind: domain.FragmentTool,
		Tool: &domain.ToolFragment{Name: title},
	})
	if id != "" {
		c.toolIndex[id] = len(c.fragments) - 1
	}
}

func (c *collector) ToolStatus(id, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, ok := c.toolIndex[id]
	if !ok {
		return
	}
	if status == "failed" {
		c.fragments[idx].Tool.Failed = true
	}
}

// Fragments returns a copy of the collected fragments.
func (c *collector) Fragments() []domain.ContentFragment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.ContentFragment(nil), c.fragments...)
}

// acpClient is the client side of the ACP connection. Permission requests
// are auto-approved with the first offered option; filesystem and terminal
// capabilities are not advertised and therefore rejected.
type acpClient struct {
	collector *collector
	logger    domain.Logger
	taskID    string
}

var _ acpsdk.Client = (*acpClient)(nil)

func (c *acpClient) RequestPermission(_ context.Context, params acpsdk.RequestPermissionRequest) (acpsdk.RequestPermissionResponse, error) {
	if len(params.Options) == 0 {
		return acpsdk.RequestPermissionResponse{
			Outcome: acpsdk.RequestPermissionOutcome{
				Cancelled: &acpsdk.RequestPermissionOutcomeCancelled{},
			},
		}, nil
	}
	if c.logger != nil {
		c.logger.Debug(c.taskID, "agent", fmt.Sprintf("auto-approving permission request with option %s", params.Options[0].OptionId))
	}
	return acpsdk.RequestPermissionResponse{
		Outcome: acpsdk.RequestPermissionOutcome{
			Selected: &acpsdk.RequestPermissionOutcomeSelected{
				OptionId: params.Options[0].OptionId,
			},
		},
	}, nil
}

func (c *acpClient) SessionUpdate(_ context.Context, params acpsdk.SessionNotification) error {
	update := params.Update
	switch {
	case update.AgentMessageChunk != nil:
		if update.AgentMessageChunk.Content.Text != nil {
			c.collector.Text(update.AgentMessageChunk.Content.Text.Text)
		}
	case update.AgentThoughtChunk != nil:
		if update.AgentThoughtChunk.Content.Text != nil {
			c.collector.Thought(update.AgentThoughtChunk.Content.Text.Text)
		}
	case update.ToolCall != nil:
		c.collector.ToolStart(string(update.ToolCall.ToolCallId), update.ToolCall.Title)
	case update.ToolCallUpdate != nil:
		if update.ToolCallUpdate.Status != nil {
			c.collector.ToolStatus(string(update.ToolCallUpdate.ToolCallId), string(*update.ToolCallUpdate.Status))
		}
	}
	return nil
}

func (c *acpClient) WriteTextFile(_ context.Context, _ acpsdk.WriteTextFileRequest) (acpsdk.WriteTextFileResponse, error) {
	return acpsdk.WriteTextFileResponse{}, acpsdk.NewMethodNotFound(acpsdk.ClientMethodFsWriteTextFile)
}

func (c *acpClient) ReadTextFile(_ context.Context, _ acpsdk.ReadTextFileRequest) (acpsdk.ReadTextFileResponse, error) {
	return acpsdk.ReadTextFileResponse{}, acpsdk.NewMethodNotFound(acpsdk.ClientMethodFsReadTextFile)
}

func (c *acpClient) CreateTerminal(_ context.Context, _ acpsdk.CreateTerminalRequest) (acpsdk.CreateTerminalResponse, error) {
	return acpsdk.CreateTerminalResponse{}, acpsdk.NewMethodNotFound(acpsdk.ClientMethodTerminalCreate)
}

func (c *acpClient) TerminalOutput(_ context.Context, _ acpsdk.TerminalOutputRequest) (acpsdk.TerminalOutputResponse, error) {
	return acpsdk.TerminalOutputResponse{}, acpsdk.NewMethodNotFound(acpsdk.ClientMethodTerminalOutput)
}

func (c *acpClient) ReleaseTerminal(_ context.Context, _ acpsdk.ReleaseTerminalRequest) (acpsdk.ReleaseTerminalResponse, error) {
	return acpsdk.ReleaseTerminalResponse{}, acpsdk.NewMethodNotFound(acpsdk.ClientMethodTerminalRelease)
}

func (c *acpClient) WaitForTerminalExit(_ context.Context, _ acpsdk.WaitForTerminalExitRequest) (acpsdk.WaitForTerminalExitResponse, error) {
	return acpsdk.WaitForTerminalExitResponse{}, acpsdk.NewMethodNotFound(acpsdk.ClientMethodTerminalWaitForExit)
}

func (c *acpClient) KillTerminalCommand(_ context.Context, _ acpsdk.KillTerminalCommandRequest) (acpsdk.KillTerminalCommandResponse, error) {
	return acpsdk.KillTerminalCommandResponse{}, acpsdk.NewMethodNotFound(acpsdk.ClientMethodTerminalKill)
}
