// Package app provides the dependency injection container for the application.
package app

import (
	"fmt"

	"github.com/mikan-dev/splice/internal/domain"
	"github.com/mikan-dev/splice/internal/infra/acpexec"
	"github.com/mikan-dev/splice/internal/infra/config"
	"github.com/mikan-dev/splice/internal/infra/conflict"
	"github.com/mikan-dev/splice/internal/infra/events"
	"github.com/mikan-dev/splice/internal/infra/git"
	"github.com/mikan-dev/splice/internal/infra/hooks"
	"github.com/mikan-dev/splice/internal/infra/jsonstore"
	"github.com/mikan-dev/splice/internal/infra/logging"
	"github.com/mikan-dev/splice/internal/infra/pairexec"
	"github.com/mikan-dev/splice/internal/infra/stream"
	"github.com/mikan-dev/splice/internal/infra/worktree"
	"github.com/mikan-dev/splice/internal/usecase"
	"github.com/mikan-dev/splice/internal/usecase/shared"
)

// Paths holds the filesystem layout around one repository.
type Paths struct {
	RepoRoot  string // Root directory of the git repository
	SpliceDir string // Per-repository state directory, typically .git/splice
	StorePath string // Path to tasks.json
}

// Container provides dependency injection for the application.
// It holds all port implementations and provides factory methods for use cases.
type Container struct {
	Tasks            domain.TaskRepository
	StoreInitializer domain.StoreInitializer
	Clock            domain.Clock
	Git              domain.Git
	Worktrees        domain.WorktreeManager
	Agent            domain.AgentExecutor
	Pair             domain.PairExecutor
	Hooks            domain.Hooks
	Publisher        domain.EventPublisher
	Generator        domain.TextGenerator
	Classifier       domain.ResponseClassifier
	Logger           domain.Logger

	Waiter     *pairexec.Waiter
	Flight     *shared.Flight
	Interrupts *shared.Interrupts
	Streams    []usecase.StreamCanceler
	Differ     usecase.Differ
	Resolver   *conflict.Coordinator

	Config *domain.Config
	Paths  Paths
}

// New creates a Container rooted at the repository containing dir.
func New(dir string) (*Container, error) {
	repoRoot, err := git.FindRoot(dir)
	if err != nil {
		return nil, err
	}
	gitDir, err := git.FindCommonDir(dir)
	if err != nil {
		return nil, err
	}
	spliceDir := domain.RepoSpliceDir(gitDir)

	cfg, err := config.NewLoader(spliceDir).Load()
	if err != nil {
		return nil, err
	}

	inspector, err := git.NewInspector(repoRoot)
	if err != nil {
		return nil, err
	}

	logger := logging.New(spliceDir, logging.ParseLevel(cfg.Log.Level))
	publisher := events.NewFilePublisher(spliceDir, logger)
	store := jsonstore.New(domain.TasksStorePath(spliceDir))

	estimator := stream.NewCostEstimator(stream.DefaultEstimateDelay, func(taskID string, tokens int) {
		logger.Debug(taskID, "cost", fmt.Sprintf("streamed output so far ~%d tokens", tokens))
	})
	aggregator := stream.NewAggregator(stream.DefaultInterval, func(taskID, messageID, text string) {
		publisher.SendResponseChunk(domain.ResponseChunkEvent{
			RepoRoot:  repoRoot,
			TaskID:    taskID,
			MessageID: messageID,
			Text:      text,
		})
		estimator.Observe(taskID, text)
	})

	generator := acpexec.NewGenerator(repoRoot, cfg.Agent.CommandFor, logger)
	worktrees := worktree.NewManager(repoRoot, spliceDir, worktree.Options{
		Generator:     generator,
		Logger:        logger,
		GenProfile:    cfg.Agent.ReducedProfile,
		SharedFolders: cfg.SharedFolders,
	})

	waiter := pairexec.NewWaiter()
	interrupts := shared.NewInterrupts()

	runner := git.NewRunner()
	resolver := conflict.NewGeneratorResolver(generator, cfg.Agent.ReducedProfile)

	return &Container{
		Tasks:            store,
		StoreInitializer: store,
		Clock:            domain.RealClock{},
		Git:              inspector,
		Worktrees:        worktrees,
		Agent:            acpexec.New(repoRoot, cfg.Agent.CommandFor, aggregator, publisher, logger),
		Pair:             pairexec.New(spliceDir, waiter, logger),
		Hooks:            hooks.NewRunner(repoRoot, cfg.Hooks, logger),
		Publisher:        publisher,
		Generator:        generator,
		Classifier:       shared.NewHeuristicClassifier(),
		Logger:           logger,
		Waiter:           waiter,
		Flight:           shared.NewFlight(),
		Interrupts:       interrupts,
		Streams:          []usecase.StreamCanceler{aggregator, estimator},
		Differ:           git.NewDiffReader(runner),
		Resolver:         conflict.NewCoordinator(runner, resolver, interrupts, logger),
		Config:           cfg,
		Paths: Paths{
			RepoRoot:  repoRoot,
			SpliceDir: spliceDir,
			StorePath: domain.TasksStorePath(spliceDir),
		},
	}, nil
}

// UseCase factory methods

// InitRepoUseCase returns a new InitRepo use case.
func (c *Container) InitRepoUseCase() *usecase.InitRepo {
	return usecase.NewInitRepo(c.StoreInitializer, c.Logger, c.Paths.SpliceDir)
}

// NewTaskUseCase returns a new NewTask use case.
func (c *Container) NewTaskUseCase() *usecase.NewTask {
	return usecase.NewNewTask(c.Tasks, c.Worktrees, c.Hooks, c.Clock, c.Logger, c.Paths.RepoRoot)
}

// ListTasksUseCase returns a new ListTasks use case.
func (c *Container) ListTasksUseCase() *usecase.ListTasks {
	return usecase.NewListTasks(c.Tasks, c.Paths.RepoRoot)
}

// ShowTaskUseCase returns a new ShowTask use case.
func (c *Container) ShowTaskUseCase() *usecase.ShowTask {
	return usecase.NewShowTask(c.Tasks, c.Worktrees, c.Paths.RepoRoot)
}

// UpdateTaskUseCase returns a new UpdateTask use case.
func (c *Container) UpdateTaskUseCase() *usecase.UpdateTask {
	return usecase.NewUpdateTask(c.Tasks, c.Worktrees, c.Publisher, c.Flight, c.Clock, c.Logger, c.Paths.RepoRoot)
}

// DeleteTaskUseCase returns a new DeleteTask use case.
func (c *Container) DeleteTaskUseCase() *usecase.DeleteTask {
	return usecase.NewDeleteTask(c.Tasks, c.Worktrees, c.Hooks, c.Publisher, c.Interrupts, c.Streams, c.Logger, c.Paths.RepoRoot)
}

// PruneTasksUseCase returns a new PruneTasks use case.
func (c *Container) PruneTasksUseCase() *usecase.PruneTasks {
	return usecase.NewPruneTasks(c.Tasks, c.Worktrees, c.Logger, c.Paths.RepoRoot)
}

// ShowLogsUseCase returns a new ShowLogs use case.
func (c *Container) ShowLogsUseCase() *usecase.ShowLogs {
	return usecase.NewShowLogs(c.Tasks, c.Paths.SpliceDir, c.Paths.RepoRoot)
}

// WorktreeStatusUseCase returns a new WorktreeStatus use case.
func (c *Container) WorktreeStatusUseCase() *usecase.WorktreeStatus {
	return usecase.NewWorktreeStatus(c.Tasks, c.Git, c.Worktrees, c.Publisher, c.Paths.RepoRoot)
}

// RunPromptUseCase returns a new RunPrompt use case.
func (c *Container) RunPromptUseCase() *usecase.RunPrompt {
	return usecase.NewRunPrompt(usecase.RunPromptDeps{
		Tasks:      c.Tasks,
		Agent:      c.Agent,
		Pair:       c.Pair,
		Waiter:     c.Waiter,
		Hooks:      c.Hooks,
		Classifier: c.Classifier,
		Publisher:  c.Publisher,
		Differ:     c.Differ,
		Status:     c.WorktreeStatusUseCase(),
		Flight:     c.Flight,
		Interrupts: c.Interrupts,
		Config:     c.Config,
		Clock:      c.Clock,
		Logger:     c.Logger,
		RepoRoot:   c.Paths.RepoRoot,
	})
}

// RedoPromptUseCase returns a new RedoPrompt use case.
func (c *Container) RedoPromptUseCase() *usecase.RedoPrompt {
	return usecase.NewRedoPrompt(c.Tasks, c.RunPromptUseCase(), c.Logger, c.Paths.RepoRoot)
}

// InterruptResponseUseCase returns a new InterruptResponse use case.
func (c *Container) InterruptResponseUseCase() *usecase.InterruptResponse {
	return usecase.NewInterruptResponse(c.Tasks, c.Pair, c.Hooks, c.Publisher, c.Interrupts, c.Streams, c.Clock, c.Logger, c.Paths.RepoRoot)
}

// CompactConversationUseCase returns a new CompactConversation use case.
func (c *Container) CompactConversationUseCase() *usecase.CompactConversation {
	return usecase.NewCompactConversation(c.Tasks, c.Generator, c.Publisher, c.Flight, c.Config, c.Clock, c.Logger, c.Paths.RepoRoot)
}

// HandoffConversationUseCase returns a new HandoffConversation use case.
func (c *Container) HandoffConversationUseCase() *usecase.HandoffConversation {
	return usecase.NewHandoffConversation(c.Tasks, c.Generator, c.Flight, c.Config, c.Logger, c.Paths.RepoRoot, c.Paths.SpliceDir)
}

// MergeWorktreeUseCase returns a new MergeWorktree use case.
func (c *Container) MergeWorktreeUseCase() *usecase.MergeWorktree {
	return usecase.NewMergeWorktree(c.Tasks, c.Git, c.Worktrees, c.Publisher, c.Clock, c.Logger, c.Paths.RepoRoot)
}

// RevertMergeUseCase returns a new RevertMerge use case.
func (c *Container) RevertMergeUseCase() *usecase.RevertMerge {
	return usecase.NewRevertMerge(c.Tasks, c.Worktrees, c.Publisher, c.Clock, c.Logger, c.Paths.RepoRoot)
}

// ApplyUncommittedUseCase returns a new ApplyUncommitted use case.
func (c *Container) ApplyUncommittedUseCase() *usecase.ApplyUncommitted {
	return usecase.NewApplyUncommitted(c.Tasks, c.Git, c.Worktrees, c.Logger, c.Paths.RepoRoot)
}

// RebaseWorktreeUseCase returns a new RebaseWorktree use case.
func (c *Container) RebaseWorktreeUseCase() *usecase.RebaseWorktree {
	return usecase.NewRebaseWorktree(c.Tasks, c.Git, c.Worktrees, c.Publisher, c.Clock, c.Logger, c.Paths.RepoRoot)
}

// ContinueRebaseUseCase returns a new ContinueRebase use case.
func (c *Container) ContinueRebaseUseCase() *usecase.ContinueRebase {
	return usecase.NewContinueRebase(c.Tasks, c.Worktrees, c.Clock, c.Logger, c.Paths.RepoRoot)
}

// AbortRebaseUseCase returns a new AbortRebase use case.
func (c *Container) AbortRebaseUseCase() *usecase.AbortRebase {
	return usecase.NewAbortRebase(c.Tasks, c.Worktrees, c.Logger, c.Paths.RepoRoot)
}

// ResolveConflictsUseCase returns a new ResolveConflicts use case.
func (c *Container) ResolveConflictsUseCase() *usecase.ResolveConflicts {
	return usecase.NewResolveConflicts(c.Tasks, c.Worktrees, c.Resolver, c.ContinueRebaseUseCase(), c.Publisher, c.Logger, c.Paths.RepoRoot)
}
