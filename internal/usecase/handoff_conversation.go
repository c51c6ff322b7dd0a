package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mikan-dev/splice/internal/domain"
	"github.com/mikan-dev/splice/internal/usecase/shared"
)

// HandoffConversationInput contains the parameters for a handoff export.
type HandoffConversationInput struct {
	TaskID string // Task ID (required)
}

// HandoffConversationOutput contains the generated handoff.
type HandoffConversationOutput struct {
	Prompt string // Generated handoff prompt
	Path   string // File the snapshot was written to
}

// handoffSnapshot is the exported YAML document.
// Fields are ordered to minimize memory padding.
type handoffSnapshot struct {
	Task        string   `yaml:"task"`
	Title       string   `yaml:"title"`
	Status      string   `yaml:"status"`
	Prompt      string   `yaml:"prompt"`
	EditedFiles []string `yaml:"editedFiles,omitempty"`
}

// HandoffConversation is the use case for exporting a task as a handoff
// prompt another session can pick up. The conversation itself is left
// untouched; only the generated snapshot is written.
type HandoffConversation struct {
	tasks     domain.TaskRepository
	gen       domain.TextGenerator
	flight    *shared.Flight
	config    *domain.Config
	logger    domain.Logger
	repoRoot  string
	spliceDir string
}

// NewHandoffConversation creates a new HandoffConversation use case.
func NewHandoffConversation(tasks domain.TaskRepository, gen domain.TextGenerator, flight *shared.Flight, config *domain.Config, logger domain.Logger, repoRoot, spliceDir string) *HandoffConversation {
	return &HandoffConversation{
		tasks:     tasks,
		gen:       gen,
		flight:    flight,
		config:    config,
		logger:    logger,
		repoRoot:  repoRoot,
		spliceDir: spliceDir,
	}
}

// Execute generates and writes the handoff snapshot.
func (uc *HandoffConversation) Execute(ctx context.Context, in HandoffConversationInput) (*HandoffConversationOutput, error) {
	release, err := uc.flight.Acquire(ctx, in.TaskID)
	if err != nil {
		return nil, fmt.Errorf("wait for in-flight prompt: %w", err)
	}
	defer release()

	task, err := uc.tasks.Load(uc.repoRoot, in.TaskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}
	if task.IsEmpty() {
		return nil, domain.ErrNoUserMessage
	}

	profile := "reduced"
	if uc.config != nil && uc.config.Agent.ReducedProfile != "" {
		profile = uc.config.Agent.ReducedProfile
	}

	prompt, err := uc.gen.Generate(ctx, profile, handoffPrompt(task))
	if err != nil {
		if uc.logger != nil {
			uc.logger.Error(task.ID, "handoff", fmt.Sprintf("handoff generation failed, conversation kept: %v", err))
		}
		return nil, fmt.Errorf("generate handoff: %w", err)
	}

	snapshot := handoffSnapshot{
		Task:        task.ID,
		Title:       task.Title,
		Status:      string(task.Status),
		Prompt:      prompt,
		EditedFiles: collectEditedFiles(task),
	}
	data, err := yaml.Marshal(&snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode handoff: %w", err)
	}

	path := domain.HandoffPath(uc.spliceDir, task.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create handoff dir: %w", err)
	}
	// Temp-and-rename so a reader never sees a half-written snapshot.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return nil, fmt.Errorf("write handoff: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("finalize handoff: %w", err)
	}

	if uc.logger != nil {
		uc.logger.Info(task.ID, "handoff", "exported to "+path)
	}
	return &HandoffConversationOutput{Prompt: prompt, Path: path}, nil
}

func handoffPrompt(task *domain.Task) string {
	out := "Write a handoff prompt for another engineer taking over the task below. " +
		"State the goal, what has been done, what remains, and any gotchas. " +
		"Respond with the handoff prompt only.\n\n"
	out += "Task: " + task.Title + "\n\n"
	for _, m := range task.Messages {
		if text := m.PlainText(); text != "" {
			out += fmt.Sprintf("[%s]\n%s\n\n", m.Role, text)
		}
	}
	return out
}

func collectEditedFiles(task *domain.Task) []string {
	seen := make(map[string]struct{})
	var files []string
	for _, m := range task.Messages {
		for _, f := range m.EditedFiles {
			if _, ok := seen[f]; !ok {
				seen[f] = struct{}{}
				files = append(files, f)
			}
		}
	}
	return files
}
