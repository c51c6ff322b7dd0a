package conflict

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mikan-dev/splice/internal/domain"
	gitinfra "github.com/mikan-dev/splice/internal/infra/git"
)

// Registrar issues a cancellable context for one sub-operation, keyed by
// an interrupt id so a UI can cancel a single file's resolution.
type Registrar interface {
	Register(ctx context.Context, taskID, interruptID string) (context.Context, context.CancelFunc)
}

// passthroughRegistrar ignores the ids and derives directly from the parent.
type passthroughRegistrar struct{}

func (passthroughRegistrar) Register(ctx context.Context, _, _ string) (context.Context, context.CancelFunc) {
	return context.WithCancel(ctx)
}

// Report summarizes one resolution pass over a conflicted tree.
type Report struct {
	Resolved    []string // Staged and ready for rebase --continue
	Failed      []string // Resolution errored; file left conflicted
	Interrupted []string // Cancelled; file left conflicted
}

// AllResolved reports whether the rebase can continue without further work.
func (r Report) AllResolved() bool {
	return len(r.Failed) == 0 && len(r.Interrupted) == 0
}

// Coordinator enumerates unmerged files in a conflicted rebase and resolves
// each concurrently and independently.
// Fields are ordered to minimize memory padding.
type Coordinator struct {
	runner    *gitinfra.Runner
	resolver  domain.ConflictResolver
	registrar Registrar
	logger    domain.Logger
}

// NewCoordinator creates a Coordinator. A nil registrar derives per-file
// contexts directly from the caller's context.
func NewCoordinator(runner *gitinfra.Runner, resolver domain.ConflictResolver, registrar Registrar, logger domain.Logger) *Coordinator {
	if registrar == nil {
		registrar = passthroughRegistrar{}
	}
	return &Coordinator{
		runner:    runner,
		resolver:  resolver,
		registrar: registrar,
		logger:    logger,
	}
}

// ResolveAll resolves every unmerged file in dir. Files resolve in
// parallel; one file's failure or cancellation never affects siblings.
func (c *Coordinator) ResolveAll(ctx context.Context, taskID, dir string) (Report, error) {
	out, err := c.runner.Run(ctx, dir, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return Report{}, fmt.Errorf("list unmerged files: %w", err)
	}
	files := gitinfra.Lines(out)
	if len(files) == 0 {
		return Report{}, nil
	}

	tmpRoot, err := os.MkdirTemp("", "splice-conflict-")
	if err != nil {
		return Report{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpRoot)

	var (
		mu     sync.Mutex
		report Report
		wg     sync.WaitGroup
	)
	for i, file := range files {
		wg.Add(1)
		go func(idx int, path string) {
			defer wg.Done()
			err := c.resolveFile(ctx, taskID, dir, filepath.Join(tmpRoot, fmt.Sprintf("f%d", idx)), path)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				report.Resolved = append(report.Resolved, path)
			case errors.Is(err, context.Canceled):
				report.Interrupted = append(report.Interrupted, path)
			default:
				report.Failed = append(report.Failed, path)
				if c.logger != nil {
					c.logger.Warn(taskID, "conflict", fmt.Sprintf("resolve %s: %v", path, err))
				}
			}
		}(i, file)
	}
	wg.Wait()

	sort.Strings(report.Resolved)
	sort.Strings(report.Failed)
	sort.Strings(report.Interrupted)
	return report, nil
}

// resolveFile runs one file's resolution end to end: extract the three-way
// versions, invoke the resolver under its own interrupt id, write the
// merged content, and stage it.
func (c *Coordinator) resolveFile(ctx context.Context, taskID, dir, tmpDir, path string) error {
	if err := os.MkdirAll(tmpDir, 0o750); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}

	req := domain.ConflictFileRequest{
		Path:        path,
		BasePath:    c.extractStage(ctx, dir, tmpDir, path, 1, "base"),
		OursPath:    c.extractStage(ctx, dir, tmpDir, path, 2, "ours"),
		TheirsPath:  c.extractStage(ctx, dir, tmpDir, path, 3, "theirs"),
		CurrentPath: filepath.Join(dir, path),
		InterruptID: uuid.NewString(),
	}

	fileCtx, cancel := c.registrar.Register(ctx, taskID, req.InterruptID)
	defer cancel()

	if c.logger != nil {
		c.logger.Info(taskID, "conflict", fmt.Sprintf("resolving %s (interrupt id %s)", path, req.InterruptID))
	}

	merged, err := c.resolver.ResolveConflict(fileCtx, req)
	if err != nil {
		if fileCtx.Err() != nil {
			return context.Canceled
		}
		return err
	}

	if !strings.HasSuffix(merged, "\n") {
		merged += "\n"
	}
	if err := os.WriteFile(req.CurrentPath, []byte(merged), 0o600); err != nil {
		return fmt.Errorf("write merged content: %w", err)
	}
	if _, err := c.runner.Run(ctx, dir, "add", "--", path); err != nil {
		return fmt.Errorf("stage resolved file: %w", err)
	}
	return nil
}

// extractStage writes one index stage of a conflicted file to tmpDir and
// returns its path. A missing stage (add/add or delete conflicts) returns
// the empty string.
func (c *Coordinator) extractStage(ctx context.Context, dir, tmpDir, path string, stage int, name string) string {
	out, err := c.runner.Output(ctx, dir, "show", fmt.Sprintf(":%d:%s", stage, path))
	if err != nil {
		return ""
	}
	dest := filepath.Join(tmpDir, name)
	if err := os.WriteFile(dest, []byte(out), 0o600); err != nil {
		return ""
	}
	return dest
}
