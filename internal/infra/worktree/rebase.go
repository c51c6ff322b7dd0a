package worktree

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mikan-dev/splice/internal/domain"
	gitinfra "github.com/mikan-dev/splice/internal/infra/git"
)

// Rebase rebases the target branch into the worktree. Uncommitted changes
// are wrapped in a marked temporary commit so the rebase sees a clean
// tree; on success the temp commit is unwound back into uncommitted state.
// On conflict the error is returned structured and the rebase is left in
// progress: aborting versus resolving is the caller's decision.
func (m *Manager) Rebase(ctx context.Context, wt *domain.Worktree, target string) error {
	unlock := m.locks.Lock(wt.Path)
	defer unlock()

	if err := m.wrapUncommitted(ctx, wt); err != nil {
		return err
	}

	if _, err := m.runner.Run(ctx, wt.Path, "rebase", target); err != nil {
		return gitinfra.ClassifyError(err)
	}

	if err := m.unwindTempCommit(ctx, wt); err != nil {
		return err
	}
	m.info(filepath.Base(wt.Path), fmt.Sprintf("rebased onto %s", target))
	return nil
}

// ContinueRebase resumes a conflicted rebase after the conflicts have been
// resolved and staged, then unwinds any temp commit the rebase carried.
func (m *Manager) ContinueRebase(ctx context.Context, wt *domain.Worktree) error {
	unlock := m.locks.Lock(wt.Path)
	defer unlock()

	state, err := m.readRebaseStateLocked(ctx, wt)
	if err != nil {
		return err
	}
	if !state.InProgress {
		return domain.ErrNoRebaseInProgress
	}

	// core.editor=true keeps git from opening an editor for the
	// continued commit's message.
	if _, err := m.runner.Run(ctx, wt.Path, "-c", "core.editor=true", "rebase", "--continue"); err != nil {
		return gitinfra.ClassifyError(err)
	}

	return m.unwindTempCommit(ctx, wt)
}

// AbortRebase abandons an in-progress rebase and restores any uncommitted
// changes that were wrapped in a temp commit before it started.
func (m *Manager) AbortRebase(ctx context.Context, wt *domain.Worktree) error {
	unlock := m.locks.Lock(wt.Path)
	defer unlock()

	state, err := m.readRebaseStateLocked(ctx, wt)
	if err != nil {
		return err
	}
	if !state.InProgress {
		return domain.ErrNoRebaseInProgress
	}

	if _, err := m.runner.Run(ctx, wt.Path, "rebase", "--abort"); err != nil {
		return fmt.Errorf("abort rebase: %w", err)
	}

	// The abort restores the pre-rebase HEAD, which may be the temp
	// commit; unwind it so the changes are uncommitted again.
	return m.unwindTempCommit(ctx, wt)
}

// wrapUncommitted commits any dirty state under a recognizable marker so a
// rebase can run on a clean tree.
func (m *Manager) wrapUncommitted(ctx context.Context, wt *domain.Worktree) error {
	dirty, err := m.hasUncommitted(ctx, wt.Path)
	if err != nil {
		return err
	}
	if !dirty {
		return nil
	}
	if _, err := m.runner.Run(ctx, wt.Path, "add", "-A"); err != nil {
		return fmt.Errorf("stage uncommitted changes: %w", err)
	}
	marker := domain.TempCommitMarker(m.clock.Now().UnixMilli())
	if _, err := m.runner.Run(ctx, wt.Path, "commit", "-m", marker); err != nil {
		return fmt.Errorf("create temp commit: %w", err)
	}
	return nil
}

// unwindTempCommit turns a temp commit at HEAD back into uncommitted
// changes via a mixed reset. A HEAD that is not a temp commit is left
// alone.
func (m *Manager) unwindTempCommit(ctx context.Context, wt *domain.Worktree) error {
	out, err := m.runner.Run(ctx, wt.Path, "log", "-1", "--format=%s")
	if err != nil {
		return fmt.Errorf("read head subject: %w", err)
	}
	if !domain.IsTempCommitMarker(strings.TrimSpace(out)) {
		return nil
	}
	if _, err := m.runner.Run(ctx, wt.Path, "reset", "--mixed", "HEAD~1"); err != nil {
		return fmt.Errorf("unwind temp commit: %w", err)
	}
	return nil
}

// readRebaseStateLocked is ReadRebaseState for callers already holding the
// worktree lock.
func (m *Manager) readRebaseStateLocked(ctx context.Context, wt *domain.Worktree) (domain.RebaseState, error) {
	var state domain.RebaseState
	for _, name := range []string{"rebase-merge", "rebase-apply"} {
		out, err := m.runner.Run(ctx, wt.Path, "rev-parse", "--git-path", name)
		if err != nil {
			return state, fmt.Errorf("locate %s: %w", name, err)
		}
		if dirExists(wt.Path, strings.TrimSpace(out)) {
			state.InProgress = true
			return state, nil
		}
	}
	return state, nil
}
