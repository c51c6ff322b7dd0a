package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mikan-dev/splice/internal/domain"
	"github.com/mikan-dev/splice/internal/usecase/shared"
)

// CompactConversationInput contains the parameters for compaction.
type CompactConversationInput struct {
	TaskID string // Task ID (required)
}

// CompactConversationOutput contains the result of compaction.
type CompactConversationOutput struct {
	Summary  string
	Replaced int // Messages replaced by the summary
}

// CompactConversation is the use case for replacing a long conversation
// with a generated summary, using the reduced executor profile. Failure
// never loses the original conversation: the error is logged and the
// single-flight slot is released explicitly.
type CompactConversation struct {
	tasks     domain.TaskRepository
	gen       domain.TextGenerator
	publisher domain.EventPublisher
	flight    *shared.Flight
	config    *domain.Config
	clock     domain.Clock
	logger    domain.Logger
	repoRoot  string
}

// NewCompactConversation creates a new CompactConversation use case.
func NewCompactConversation(tasks domain.TaskRepository, gen domain.TextGenerator, publisher domain.EventPublisher, flight *shared.Flight, config *domain.Config, clock domain.Clock, logger domain.Logger, repoRoot string) *CompactConversation {
	return &CompactConversation{
		tasks:     tasks,
		gen:       gen,
		publisher: publisher,
		flight:    flight,
		config:    config,
		clock:     clock,
		logger:    logger,
		repoRoot:  repoRoot,
	}
}

// Execute summarizes and replaces the task's conversation.
func (uc *CompactConversation) Execute(ctx context.Context, in CompactConversationInput) (*CompactConversationOutput, error) {
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
		return &CompactConversationOutput{}, nil
	}

	summary, err := uc.gen.Generate(ctx, uc.reducedProfile(), compactionPrompt(task))
	if err != nil {
		if uc.logger != nil {
			uc.logger.Error(task.ID, "compact", fmt.Sprintf("summary generation failed, conversation kept: %v", err))
		}
		return nil, fmt.Errorf("generate summary: %w", err)
	}

	replaced := len(task.Messages)
	now := uc.clock.Now()
	task.Messages = []domain.ContextMessage{{
		Time:    now,
		ID:      uuid.NewString(),
		Role:    domain.RoleAssistant,
		Content: []domain.ContentFragment{{Kind: domain.FragmentText, Text: &domain.TextFragment{Content: summary}}},
		Seq:     0,
	}}
	task.Updated = now
	if err := uc.tasks.Save(task); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}
	if uc.publisher != nil {
		uc.publisher.SendTaskUpdated(domain.TaskUpdatedEvent{Task: task, RepoRoot: uc.repoRoot, TaskID: task.ID})
	}
	if uc.logger != nil {
		uc.logger.Info(task.ID, "compact", fmt.Sprintf("replaced %d messages with summary", replaced))
	}

	return &CompactConversationOutput{Summary: summary, Replaced: replaced}, nil
}

func (uc *CompactConversation) reducedProfile() string {
	if uc.config != nil && uc.config.Agent.ReducedProfile != "" {
		return uc.config.Agent.ReducedProfile
	}
	return "reduced"
}

func compactionPrompt(task *domain.Task) string {
	var b strings.Builder
	b.WriteString("Summarize the following coding conversation so work can continue from the summary alone. ")
	b.WriteString("Keep decisions, constraints, file paths, and unfinished items. Respond with the summary only.\n\n")
	for _, m := range task.Messages {
		text := m.PlainText()
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, text)
	}
	return b.String()
}
