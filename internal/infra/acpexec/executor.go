// Package acpexec runs the agent-style executor: an external coding agent
// spoken to over the Agent Client Protocol on stdin/stdout. One subprocess
// and one ACP session serve one prompt run.
package acpexec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	acpsdk "github.com/coder/acp-go-sdk"
	"github.com/google/uuid"

	"github.com/mikan-dev/splice/internal/domain"
	"github.com/mikan-dev/splice/internal/infra/stream"
)

// Executor implements domain.AgentExecutor over an ACP subprocess.
// Fields are ordered to minimize memory padding.
type Executor struct {
	aggregator *stream.Aggregator
	publisher  domain.EventPublisher
	logger     domain.Logger
	commandFor func(profile string) string
	repoRoot   string
}

var _ domain.AgentExecutor = (*Executor)(nil)

// New creates an Executor. commandFor resolves a profile to the agent
// command line from configuration, e.g. "claude-code-acp" or
// "gemini --experimental-acp".
func New(repoRoot string, commandFor func(profile string) string, aggregator *stream.Aggregator, publisher domain.EventPublisher, logger domain.Logger) *Executor {
	return &Executor{
		aggregator: aggregator,
		publisher:  publisher,
		logger:     logger,
		commandFor: commandFor,
		repoRoot:   repoRoot,
	}
}

// RunAgent executes one prompt turn against the agent subprocess, streaming
// partial text through the aggregator as it arrives. It returns the
// completed response messages ordered by sequence number.
func (e *Executor) RunAgent(ctx context.Context, req domain.AgentRequest) ([]domain.ContextMessage, error) {
	command := e.commandFor(req.Profile)
	if command == "" {
		return nil, fmt.Errorf("no agent command configured for profile %q", req.Profile)
	}

	workdir := e.repoRoot
	if req.Task.InWorktreeMode() && req.Task.Worktree != nil {
		workdir = req.Task.Worktree.Path
	}

	messageID := uuid.NewString()
	col := newCollector(func(text string) {
		if e.aggregator != nil {
			e.aggregator.Push(req.Task.ID, messageID, text)
		}
	})

	cmdCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	args := strings.Fields(command)
	// #nosec G204 - command comes from trusted agent configuration
	cmd := exec.CommandContext(cmdCtx, args[0], args[1:]...)
	cmd.Dir = workdir
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start agent process: %w", err)
	}
	procErrCh := make(chan error, 1)
	go func() { procErrCh <- cmd.Wait() }()
	defer func() {
		cancel()
		<-procErrCh
	}()

	client := &acpClient{collector: col, logger: e.logger, taskID: req.Task.ID}
	conn := acpsdk.NewClientSideConnection(client, stdin, stdout)

	if _, err := conn.Initialize(ctx, acpsdk.InitializeRequest{
		ProtocolVersion: acpsdk.ProtocolVersionNumber,
		ClientCapabilities: acpsdk.ClientCapabilities{
			Fs:       acpsdk.FileSystemCapability{ReadTextFile: false, WriteTextFile: false},
			Terminal: false,
		},
	}); err != nil {
		return nil, fmt.Errorf("acp initialize: %w", err)
	}

	session, err := conn.NewSession(ctx, acpsdk.NewSessionRequest{
		Cwd:        workdir,
		McpServers: []acpsdk.McpServer{},
	})
	if err != nil {
		return nil, fmt.Errorf("acp new session: %w", err)
	}

	e.logf(req.Task.ID, fmt.Sprintf("agent session %s started in %s", session.SessionId, workdir))

	resp, err := conn.Prompt(ctx, acpsdk.PromptRequest{
		SessionId: session.SessionId,
		Prompt:    buildPromptBlocks(req),
	})

	if e.aggregator != nil {
		e.aggregator.Finish(messageID)
	}

	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			_ = conn.Cancel(context.Background(), acpsdk.CancelNotification{SessionId: session.SessionId})
			return nil, fmt.Errorf("agent run: %w", domain.ErrInterrupted)
		}
		return nil, fmt.Errorf("agent prompt: %w", err)
	}
	if resp.StopReason != acpsdk.StopReasonEndTurn {
		e.logf(req.Task.ID, fmt.Sprintf("agent stopped early: %s", resp.StopReason))
	}

	msg := domain.ContextMessage{
		ID:      messageID,
		Role:    domain.RoleAssistant,
		Seq:     0,
		Content: col.Fragments(),
	}
	if req.PromptContext.ID != "" {
		msg.PromptContext = req.PromptContext
	}

	if e.publisher != nil {
		e.publisher.SendResponseCompleted(domain.ResponseCompletedEvent{
			Message:  msg,
			RepoRoot: req.Task.RepoRoot,
			TaskID:   req.Task.ID,
		})
	}

	return []domain.ContextMessage{msg}, nil
}

// buildPromptBlocks flattens the system prompt, prior conversation, and
// the new prompt into content blocks. Each run is a fresh ACP session, so
// history travels with the prompt.
func buildPromptBlocks(req domain.AgentRequest) []acpsdk.ContentBlock {
	var blocks []acpsdk.ContentBlock
	if req.SystemPrompt != "" {
		blocks = append(blocks, acpsdk.TextBlock(req.SystemPrompt))
	}
	if transcript := flattenHistory(req.ContextMessages); transcript != "" {
		blocks = append(blocks, acpsdk.TextBlock("Conversation so far:\n\n"+transcript))
	}
	for _, f := range req.ContextFiles {
		blocks = append(blocks, acpsdk.TextBlock("Relevant file: "+f))
	}
	blocks = append(blocks, acpsdk.TextBlock(req.Prompt))
	return blocks
}

func flattenHistory(messages []domain.ContextMessage) string {
	var b strings.Builder
	for _, m := range messages {
		text := m.PlainText()
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, text)
	}
	return strings.TrimSpace(b.String())
}

func (e *Executor) logf(taskID, msg string) {
	if e.logger != nil {
		e.logger.Debug(taskID, "agent", msg)
	}
}
