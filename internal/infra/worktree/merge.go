package worktree

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mikan-dev/splice/internal/domain"
	gitinfra "github.com/mikan-dev/splice/internal/infra/git"
)

// MergeToMain rebases the worktree onto the target branch, then integrates
// the worktree HEAD into the target via squash commit or fast-forward-only
// merge. The worktree must have a clean tree; use
// MergeToMainWithUncommitted when it does not.
func (m *Manager) MergeToMain(ctx context.Context, wt *domain.Worktree, opts domain.MergeOptions) error {
	unlock := m.locks.Lock(wt.Path)
	defer unlock()

	return m.integrate(ctx, wt, opts)
}

// integrate runs the shared merge core. Callers hold the worktree lock.
// The pre-rebase runs inside the worktree so any conflict surfaces there,
// never in the shared target checkout.
func (m *Manager) integrate(ctx context.Context, wt *domain.Worktree, opts domain.MergeOptions) error {
	taskID := filepath.Base(wt.Path)

	if _, err := m.runner.Run(ctx, wt.Path, "rebase", opts.TargetBranch); err != nil {
		return gitinfra.ClassifyError(err)
	}

	headOut, err := m.runner.Run(ctx, wt.Path, "rev-parse", "HEAD")
	if err != nil {
		return fmt.Errorf("resolve worktree head: %w", err)
	}
	head := strings.TrimSpace(headOut)

	if _, err := m.runner.Run(ctx, m.repoRoot, "checkout", opts.TargetBranch); err != nil {
		return fmt.Errorf("checkout %s: %w", opts.TargetBranch, err)
	}

	if !opts.Squash {
		// Fast-forward-only keeps the target's history append-only; any
		// divergence fails loudly instead of minting a merge commit.
		if _, err := m.runner.Run(ctx, m.repoRoot, "merge", "--ff-only", head); err != nil {
			return gitinfra.ClassifyError(err)
		}
		m.info(taskID, fmt.Sprintf("fast-forwarded %s to %s", opts.TargetBranch, head[:8]))
		return nil
	}

	if _, err := m.runner.Run(ctx, m.repoRoot, "merge", "--squash", head); err != nil {
		return gitinfra.ClassifyError(err)
	}

	// An empty squash means the worktree contributed nothing new; success
	// without a commit.
	if err := m.runner.RunQuiet(ctx, m.repoRoot, "diff", "--cached", "--quiet"); err == nil {
		m.info(taskID, "squash produced no changes, skipping commit")
		return nil
	}

	message := opts.Message
	if message == "" {
		message = m.generateCommitMessage(ctx, opts.TaskTitle)
	}
	if _, err := m.runner.Run(ctx, m.repoRoot, "commit", "-m", message); err != nil {
		return fmt.Errorf("commit squashed changes: %w", err)
	}
	m.info(taskID, fmt.Sprintf("squash-merged into %s: %s", opts.TargetBranch, message))
	return nil
}

// generateCommitMessage asks the text generator for a squash commit
// message based on the staged diff, falling back to the task title.
func (m *Manager) generateCommitMessage(ctx context.Context, taskTitle string) string {
	fallback := taskTitle
	if fallback == "" {
		fallback = "Apply task changes"
	}
	if m.gen == nil {
		return fallback
	}

	diff, err := m.runner.Run(ctx, m.repoRoot, "diff", "--cached", "--stat")
	if err != nil {
		return fallback
	}
	prompt := fmt.Sprintf(
		"Write a one-line conventional commit message for the following change summary. Respond with the message only.\n\n%s",
		truncate(diff, 4000),
	)
	msg, err := m.gen.Generate(ctx, m.genProfile, prompt)
	if err != nil || strings.TrimSpace(msg) == "" {
		m.warn("merge", fmt.Sprintf("commit message generation failed, using task title: %v", err))
		return fallback
	}
	return firstLine(msg)
}

// MergeToMainWithUncommitted performs the full transactional integration:
// both sides' uncommitted changes are stashed, the merge runs, and the
// worktree's uncommitted work is transplanted so it survives the
// integration in both the target checkout and the worktree. The returned
// MergeState carries everything RevertMerge needs to undo it.
//
// Ordering is load-bearing: the commit hashes are captured before any
// stash or rebase mutates either tree, because those are the hashes the
// revert resets back to.
func (m *Manager) MergeToMainWithUncommitted(ctx context.Context, wt *domain.Worktree, opts domain.MergeOptions) (state *domain.MergeState, err error) {
	unlock := m.locks.Lock(wt.Path)
	defer unlock()

	beforeOut, err := m.runner.Run(ctx, m.repoRoot, "rev-parse", opts.TargetBranch)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", opts.TargetBranch, err)
	}
	wtHeadOut, err := m.runner.Run(ctx, wt.Path, "rev-parse", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("resolve worktree head: %w", err)
	}

	uid := uniqueID()
	wtMarker := domain.StashMarker("worktree", uid)
	mainMarker := domain.StashMarker("main", uid)

	wtStashed, err := m.stashPush(ctx, wt.Path, wtMarker, m.sharedFolders)
	if err != nil {
		return nil, err
	}
	mainStashed, err := m.stashPush(ctx, m.repoRoot, mainMarker, nil)
	if err != nil {
		if wtStashed {
			m.recoverStash(ctx, wt.Path, wtMarker)
		}
		return nil, err
	}

	// From here on, a failure must put the stashed work back before
	// rethrowing; a false "success" or silently parked stash is worse
	// than the original error.
	defer func() {
		if err == nil {
			return
		}
		if wtStashed {
			m.recoverStash(ctx, wt.Path, wtMarker)
		}
		if mainStashed {
			m.recoverStash(ctx, m.repoRoot, mainMarker)
		}
	}()

	if err = m.integrate(ctx, wt, opts); err != nil {
		return nil, err
	}

	if wtStashed {
		// The stash list is shared across worktrees, so the entry is
		// applied into both trees and dropped exactly once.
		if err = m.applyStash(ctx, m.repoRoot, wtMarker); err != nil {
			return nil, err
		}
		if err = m.applyStash(ctx, wt.Path, wtMarker); err != nil {
			return nil, err
		}
		if err = m.dropStash(ctx, wt.Path, wtMarker); err != nil {
			return nil, err
		}
		wtStashed = false
	}

	if mainStashed {
		// Applied but deliberately not dropped: RevertMerge needs this
		// entry verbatim to restore the target's pre-merge dirty state.
		if err = m.applyStash(ctx, m.repoRoot, mainMarker); err != nil {
			return nil, err
		}
		mainStashed = false
	} else {
		mainMarker = ""
	}

	return &domain.MergeState{
		Timestamp:            m.clock.Now(),
		BeforeMergeCommit:    strings.TrimSpace(beforeOut),
		WorktreeBranchCommit: strings.TrimSpace(wtHeadOut),
		MainStashID:          mainMarker,
		TargetBranch:         opts.TargetBranch,
	}, nil
}

// RevertMerge exactly undoes the integration recorded in state while
// preserving any work created since the merge.
func (m *Manager) RevertMerge(ctx context.Context, wt *domain.Worktree, state *domain.MergeState) (err error) {
	unlock := m.locks.Lock(wt.Path)
	defer unlock()

	uid := uniqueID()
	freshWTMarker := domain.StashMarker("revert_worktree", uid)
	freshMainMarker := domain.StashMarker("revert_main", uid)

	// Park whatever is dirty right now so the hard resets cannot destroy
	// edits made after the merge.
	wtStashed, err := m.stashPush(ctx, wt.Path, freshWTMarker, m.sharedFolders)
	if err != nil {
		return err
	}
	mainStashed, err := m.stashPush(ctx, m.repoRoot, freshMainMarker, nil)
	if err != nil {
		if wtStashed {
			m.recoverStash(ctx, wt.Path, freshWTMarker)
		}
		return err
	}

	// A failure past this point must put the parked work back before
	// rethrowing, the same contract the merge transaction honors.
	defer func() {
		if err == nil {
			return
		}
		if wtStashed {
			m.recoverStash(ctx, wt.Path, freshWTMarker)
		}
		if mainStashed {
			m.recoverStash(ctx, m.repoRoot, freshMainMarker)
		}
	}()

	if _, err = m.runner.Run(ctx, m.repoRoot, "checkout", state.TargetBranch); err != nil {
		return fmt.Errorf("checkout %s: %w", state.TargetBranch, err)
	}
	if _, err = m.runner.Run(ctx, m.repoRoot, "reset", "--hard", state.BeforeMergeCommit); err != nil {
		return fmt.Errorf("reset %s: %w", state.TargetBranch, err)
	}
	if _, err = m.runner.Run(ctx, wt.Path, "reset", "--hard", state.WorktreeBranchCommit); err != nil {
		return fmt.Errorf("reset worktree branch: %w", err)
	}

	// Restore the target's original pre-merge dirty state and retire the
	// entry; the revert consumed it.
	if state.MainStashID != "" {
		if err = m.applyStash(ctx, m.repoRoot, state.MainStashID); err != nil {
			return err
		}
		if err = m.dropStash(ctx, m.repoRoot, state.MainStashID); err != nil {
			return err
		}
	}

	if wtStashed {
		if err = m.applyStash(ctx, wt.Path, freshWTMarker); err != nil {
			return err
		}
		if err = m.dropStash(ctx, wt.Path, freshWTMarker); err != nil {
			return err
		}
		wtStashed = false
	}

	// The target-side snapshot taken above contains the transplanted
	// uncommitted changes from the merge; reapplying it would reintroduce
	// what was just reverted. Discard it.
	if mainStashed {
		if err = m.dropStash(ctx, m.repoRoot, freshMainMarker); err != nil {
			return err
		}
		mainStashed = false
	}

	m.info(filepath.Base(wt.Path), fmt.Sprintf("reverted merge, %s reset to %s", state.TargetBranch, state.BeforeMergeCommit[:8]))
	return nil
}

// ApplyUncommittedToMain transplants only the worktree's uncommitted
// changes into the target branch's working tree, leaving commits alone.
func (m *Manager) ApplyUncommittedToMain(ctx context.Context, wt *domain.Worktree, target string) (err error) {
	unlock := m.locks.Lock(wt.Path)
	defer unlock()

	marker := domain.StashMarker("transplant", uniqueID())
	stashed, err := m.stashPush(ctx, wt.Path, marker, m.sharedFolders)
	if err != nil {
		return err
	}
	if !stashed {
		return nil
	}

	defer func() {
		if err != nil && stashed {
			m.recoverStash(ctx, wt.Path, marker)
		}
	}()

	if _, err = m.runner.Run(ctx, m.repoRoot, "checkout", target); err != nil {
		return fmt.Errorf("checkout %s: %w", target, err)
	}
	if err = m.applyStash(ctx, m.repoRoot, marker); err != nil {
		return err
	}
	if err = m.applyStash(ctx, wt.Path, marker); err != nil {
		return err
	}
	if err = m.dropStash(ctx, wt.Path, marker); err != nil {
		return err
	}
	stashed = false
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
