package acpexec

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	acpsdk "github.com/coder/acp-go-sdk"

	"github.com/mikan-dev/splice/internal/domain"
)

// Generator produces short one-shot completions (commit messages,
// summaries, handoff prompts) over a throwaway ACP session. It streams
// nothing: the caller only sees the final text.
// Fields are ordered to minimize memory padding.
type Generator struct {
	commandFor func(profile string) string
	logger     domain.Logger
	workdir    string
}

var _ domain.TextGenerator = (*Generator)(nil)

// NewGenerator creates a Generator. commandFor maps a profile name to the
// agent command line for that profile.
func NewGenerator(workdir string, commandFor func(profile string) string, logger domain.Logger) *Generator {
	return &Generator{
		commandFor: commandFor,
		logger:     logger,
		workdir:    workdir,
	}
}

// Generate runs one prompt against a fresh agent session and returns the
// trimmed text of its response.
func (g *Generator) Generate(ctx context.Context, profile, prompt string) (string, error) {
	command := g.commandFor(profile)
	if command == "" {
		return "", fmt.Errorf("no agent command configured for profile %q", profile)
	}

	col := newCollector(nil)

	cmdCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	args := strings.Fields(command)
	// #nosec G204 - command comes from trusted agent configuration
	cmd := exec.CommandContext(cmdCtx, args[0], args[1:]...)
	cmd.Dir = g.workdir
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start agent process: %w", err)
	}
	procErrCh := make(chan error, 1)
	go func() { procErrCh <- cmd.Wait() }()
	defer func() {
		cancel()
		<-procErrCh
	}()

	client := &acpClient{collector: col, logger: g.logger}
	conn := acpsdk.NewClientSideConnection(client, stdin, stdout)

	if _, err := conn.Initialize(ctx, acpsdk.InitializeRequest{
		ProtocolVersion: acpsdk.ProtocolVersionNumber,
		ClientCapabilities: acpsdk.ClientCapabilities{
			Fs:       acpsdk.FileSystemCapability{ReadTextFile: false, WriteTextFile: false},
			Terminal: false,
		},
	}); err != nil {
		return "", fmt.Errorf("acp initialize: %w", err)
	}

	session, err := conn.NewSession(ctx, acpsdk.NewSessionRequest{
		Cwd:        g.workdir,
		McpServers: []acpsdk.McpServer{},
	})
	if err != nil {
		return "", fmt.Errorf("acp new session: %w", err)
	}

	if _, err := conn.Prompt(ctx, acpsdk.PromptRequest{
		SessionId: session.SessionId,
		Prompt:    []acpsdk.ContentBlock{acpsdk.TextBlock(prompt)},
	}); err != nil {
		return "", fmt.Errorf("agent prompt: %w", err)
	}

	var b strings.Builder
	for _, frag := range col.Fragments() {
		if frag.Text != nil {
			b.WriteString(frag.Text.Content)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("agent returned no text")
	}
	return text, nil
}
