package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mikan-dev/splice/internal/domain"
	"github.com/mikan-dev/splice/internal/usecase/shared"
)

// Differ reports what changed in a working tree after a prompt run.
type Differ interface {
	UncommittedChanges(ctx context.Context, dir string) (files []string, diff string, err error)
}

// RunPromptInput contains the parameters for running a prompt.
// Fields are ordered to minimize memory padding.
type RunPromptInput struct {
	TaskID       string               // Task ID (required)
	Prompt       string               // User prompt text (required)
	Mode         domain.ExecutionMode // Executor selection (required)
	Profile      string               // Profile override (optional)
	ContextFiles []string             // Extra file paths handed to the executor
}

// RunPromptOutput contains the completed response records in sequence order.
type RunPromptOutput struct {
	Messages []domain.ContextMessage
	Status   domain.Status
}

// RunPrompt is the use case for executing one prompt against a task.
// Execution is single-flight per task: a second caller waits for the
// current run to finish before starting.
// Fields are ordered to minimize memory padding.
type RunPrompt struct {
	tasks      domain.TaskRepository
	agent      domain.AgentExecutor
	pair       domain.PairExecutor
	waiter     domain.PromptWaiter
	hooks      domain.Hooks
	classifier domain.ResponseClassifier
	publisher  domain.EventPublisher
	differ     Differ
	status     *WorktreeStatus
	flight     *shared.Flight
	interrupts *shared.Interrupts
	config     *domain.Config
	clock      domain.Clock
	logger     domain.Logger
	repoRoot   string
}

// RunPromptDeps bundles the collaborators of RunPrompt.
// Fields are ordered to minimize memory padding.
type RunPromptDeps struct {
	Tasks      domain.TaskRepository
	Agent      domain.AgentExecutor
	Pair       domain.PairExecutor
	Waiter     domain.PromptWaiter
	Hooks      domain.Hooks
	Classifier domain.ResponseClassifier
	Publisher  domain.EventPublisher
	Differ     Differ
	Status     *WorktreeStatus
	Flight     *shared.Flight
	Interrupts *shared.Interrupts
	Config     *domain.Config
	Clock      domain.Clock
	Logger     domain.Logger
	RepoRoot   string
}

// NewRunPrompt creates a new RunPrompt use case.
func NewRunPrompt(deps RunPromptDeps) *RunPrompt {
	return &RunPrompt{
		tasks:      deps.Tasks,
		agent:      deps.Agent,
		pair:       deps.Pair,
		waiter:     deps.Waiter,
		hooks:      deps.Hooks,
		classifier: deps.Classifier,
		publisher:  deps.Publisher,
		differ:     deps.Differ,
		status:     deps.Status,
		flight:     deps.Flight,
		interrupts: deps.Interrupts,
		config:     deps.Config,
		clock:      deps.Clock,
		logger:     deps.Logger,
		repoRoot:   deps.RepoRoot,
	}
}

// Execute runs one prompt end to end: hook check, single-flight wait,
// user message append, executor dispatch, response recording, and
// post-run classification.
func (uc *RunPrompt) Execute(ctx context.Context, in RunPromptInput) (*RunPromptOutput, error) {
	if in.Prompt == "" {
		return nil, domain.ErrEmptyPrompt
	}
	if !in.Mode.IsValid() {
		return nil, domain.ErrInvalidExecMode
	}

	task, err := uc.tasks.Load(uc.repoRoot, in.TaskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}
	if task.Status.IsTerminal() {
		return nil, fmt.Errorf("task %s is done: %w", task.ID, domain.ErrTaskNotFound)
	}

	prompt := in.Prompt
	if uc.hooks != nil {
		result, err := uc.hooks.Run(ctx, domain.HookEvent{
			Point:    domain.HookPromptSubmitted,
			RepoRoot: uc.repoRoot,
			TaskID:   task.ID,
			Text:     prompt,
		})
		if err != nil {
			return nil, fmt.Errorf("prompt hook: %w", err)
		}
		if result.Blocked {
			return nil, domain.ErrPromptBlocked
		}
		if result.Event.Text != "" {
			prompt = result.Event.Text
		}
	}

	release, err := uc.flight.Acquire(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("wait for in-flight prompt: %w", err)
	}
	defer release()

	// The flight wait may have outlasted a mutation; reload.
	task, err = uc.tasks.Load(uc.repoRoot, in.TaskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}

	runCtx, done := uc.interrupts.Register(ctx, task.ID, "prompt-"+uuid.NewString())
	defer done()

	promptCtx := domain.PromptContext{ID: uuid.NewString()}
	if err := uc.recordUserMessage(task, prompt, promptCtx); err != nil {
		return nil, err
	}
	uc.runHook(ctx, domain.HookPromptStarted, task.ID, prompt)

	messages, runErr := uc.dispatch(runCtx, task, in, prompt, promptCtx)
	now := uc.clock.Now()

	if runErr != nil {
		if errors.Is(runErr, domain.ErrInterrupted) || runCtx.Err() != nil {
			uc.markInterrupted(task, now)
			return nil, fmt.Errorf("prompt run: %w", domain.ErrInterrupted)
		}
		uc.failRun(task, now, runErr)
		return nil, fmt.Errorf("prompt run: %w", runErr)
	}

	sort.SliceStable(messages, func(i, j int) bool { return messages[i].Seq < messages[j].Seq })
	uc.recordResponses(ctx, task, messages)

	// Classification runs under the same interrupt scope; a cancellation
	// arriving here lands on ready_for_review rather than interrupted so
	// the completed run is not orphaned.
	status := uc.classify(runCtx, task)

	task.Status = status
	task.Completed = now
	task.Updated = now
	if err := uc.tasks.Save(task); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}
	uc.publishTaskUpdated(task)

	if task.InWorktreeMode() && uc.status != nil {
		if _, err := uc.status.Execute(ctx, WorktreeStatusInput{TaskID: task.ID}); err != nil && uc.logger != nil {
			uc.logger.Warn(task.ID, "worktree", fmt.Sprintf("status refresh: %v", err))
		}
	}

	return &RunPromptOutput{Messages: messages, Status: status}, nil
}

// dispatch routes the prompt to the selected executor and blocks until
// the response records are complete.
func (uc *RunPrompt) dispatch(ctx context.Context, task *domain.Task, in RunPromptInput, prompt string, promptCtx domain.PromptContext) ([]domain.ContextMessage, error) {
	switch in.Mode {
	case domain.ExecAgent:
		profile := in.Profile
		if profile == "" {
			profile = task.Profile
		}
		if profile == "" && uc.config != nil {
			profile = uc.config.Agent.Profile
		}
		return uc.agent.RunAgent(ctx, domain.AgentRequest{
			Task:            task,
			PromptContext:   promptCtx,
			Profile:         profile,
			Prompt:          prompt,
			ContextMessages: task.Messages,
			ContextFiles:    in.ContextFiles,
			Waitable:        true,
		})
	case domain.ExecPair:
		promptID := uuid.NewString()
		ch := uc.waiter.Register(promptID)
		if err := uc.pair.SendPrompt(ctx, domain.PairRequest{
			Task:     task,
			PromptID: promptID,
			Prompt:   prompt,
		}); err != nil {
			uc.waiter.Cancel(promptID)
			return nil, fmt.Errorf("send pair prompt: %w", err)
		}
		// The run resolves only when the external process signals; if it
		// never does, the caller's context is the sole way out.
		select {
		case res := <-ch:
			return res.Messages, res.Err
		case <-ctx.Done():
			uc.waiter.Cancel(promptID)
			return nil, domain.ErrInterrupted
		}
	default:
		return nil, domain.ErrInvalidExecMode
	}
}

func (uc *RunPrompt) recordUserMessage(task *domain.Task, prompt string, promptCtx domain.PromptContext) error {
	now := uc.clock.Now()
	task.Messages = append(task.Messages, domain.ContextMessage{
		Time:          now,
		ID:            uuid.NewString(),
		Content:       []domain.ContentFragment{{Kind: domain.FragmentText, Text: &domain.TextFragment{Content: prompt}}},
		PromptContext: promptCtx,
		Role:          domain.RoleUser,
		Seq:           nextSeq(task),
	})
	task.Status = domain.StatusInProgress
	task.Started = now
	task.Updated = now
	if err := uc.tasks.Save(task); err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	uc.publishTaskUpdated(task)
	return nil
}

// recordResponses appends the executor's messages, renumbering them after
// the existing conversation, and annotates the final assistant message
// with the working tree's changes.
func (uc *RunPrompt) recordResponses(ctx context.Context, task *domain.Task, messages []domain.ContextMessage) {
	base := nextSeq(task)
	now := uc.clock.Now()
	for i := range messages {
		messages[i].Seq = base + i
		if messages[i].Time.IsZero() {
			messages[i].Time = now
		}
		if messages[i].Usage != nil {
			task.Cost.Add(domain.CostUsage{
				InputTokens:  messages[i].Usage.InputTokens,
				OutputTokens: messages[i].Usage.OutputTokens,
				TotalUSD:     messages[i].Usage.CostUSD,
			})
		}
	}

	if uc.differ != nil {
		if last := lastAssistantIndex(messages); last >= 0 {
			files, diff, err := uc.differ.UncommittedChanges(ctx, uc.workdir(task))
			if err == nil && len(files) > 0 {
				messages[last].EditedFiles = files
				messages[last].Diff = diff
				if uc.publisher != nil {
					uc.publisher.SendUpdatedFilesUpdated(domain.UpdatedFilesEvent{
						RepoRoot: uc.repoRoot,
						TaskID:   task.ID,
						Files:    files,
					})
				}
			}
		}
	}

	task.Messages = append(task.Messages, messages...)
	uc.runHook(ctx, domain.HookResponseMessageProcessed, task.ID, "")
}

func (uc *RunPrompt) classify(ctx context.Context, task *domain.Task) domain.Status {
	if uc.classifier == nil || (uc.config != nil && !uc.config.ClassifyEnabled()) {
		return domain.StatusReadyForReview
	}
	status, err := uc.classifier.Classify(ctx, task.LastAssistantMessage())
	if err != nil || !status.IsValid() {
		if err != nil && uc.logger != nil {
			uc.logger.Warn(task.ID, "classify", fmt.Sprintf("classification failed: %v", err))
		}
		return domain.StatusReadyForReview
	}
	return status
}

func (uc *RunPrompt) markInterrupted(task *domain.Task, now time.Time) {
	task.Status = domain.StatusInterrupted
	task.Interrupted = now
	task.Updated = now
	if err := uc.tasks.Save(task); err != nil && uc.logger != nil {
		uc.logger.Error(task.ID, "task", fmt.Sprintf("save after interrupt: %v", err))
	}
	uc.publishTaskUpdated(task)
}

// failRun records a failed run: the conversation keeps the user message,
// the task returns to todo so the prompt can be retried.
func (uc *RunPrompt) failRun(task *domain.Task, now time.Time, runErr error) {
	task.Status = domain.StatusTodo
	task.Updated = now
	if err := uc.tasks.Save(task); err != nil && uc.logger != nil {
		uc.logger.Error(task.ID, "task", fmt.Sprintf("save after failure: %v", err))
	}
	uc.publishTaskUpdated(task)
	if uc.publisher != nil {
		uc.publisher.SendNotification(domain.NotificationEvent{
			RepoRoot: uc.repoRoot,
			TaskID:   task.ID,
			Title:    "Prompt run failed",
			Body:     runErr.Error(),
		})
	}
}

func (uc *RunPrompt) publishTaskUpdated(task *domain.Task) {
	if uc.publisher != nil {
		uc.publisher.SendTaskUpdated(domain.TaskUpdatedEvent{
			Task:     task,
			RepoRoot: uc.repoRoot,
			TaskID:   task.ID,
		})
	}
}

func (uc *RunPrompt) runHook(ctx context.Context, point domain.HookPoint, taskID, text string) {
	if uc.hooks == nil {
		return
	}
	if _, err := uc.hooks.Run(ctx, domain.HookEvent{
		Point:    point,
		RepoRoot: uc.repoRoot,
		TaskID:   taskID,
		Text:     text,
	}); err != nil && uc.logger != nil {
		uc.logger.Warn(taskID, "hooks", fmt.Sprintf("%s: %v", point, err))
	}
}

func (uc *RunPrompt) workdir(task *domain.Task) string {
	if task.InWorktreeMode() && task.Worktree != nil {
		return task.Worktree.Path
	}
	return uc.repoRoot
}

func nextSeq(task *domain.Task) int {
	highest := -1
	for _, m := range task.Messages {
		if m.Seq > highest {
			highest = m.Seq
		}
	}
	return highest + 1
}

func lastAssistantIndex(messages []domain.ContextMessage) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleAssistant {
			return i
		}
	}
	return -1
}
