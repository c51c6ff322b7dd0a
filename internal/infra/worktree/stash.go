package worktree

import (
	"context"
	"fmt"
	"strings"
)

// stashPush stashes uncommitted changes (including untracked files) in dir
// under a marker message. excludes are pathspec-excluded so symlinked
// shared folders are never swept into a stash. Returns false when there
// was nothing to stash.
func (m *Manager) stashPush(ctx context.Context, dir, marker string, excludes []string) (bool, error) {
	dirty, err := m.hasUncommitted(ctx, dir)
	if err != nil {
		return false, fmt.Errorf("check for uncommitted changes: %w", err)
	}
	if !dirty {
		return false, nil
	}

	args := []string{"stash", "push", "--include-untracked", "-m", marker}
	if len(excludes) > 0 {
		args = append(args, "--", ".")
		for _, e := range excludes {
			args = append(args, ":(exclude)"+e)
		}
	}
	out, err := m.runner.Run(ctx, dir, args...)
	if err != nil {
		return false, fmt.Errorf("stash push: %w", err)
	}
	if strings.Contains(out, "No local changes to save") {
		return false, nil
	}
	return true, nil
}

// findStash locates a stash entry by its marker. Entries are looked up by
// message, never by index, because indexes shift whenever a stash is
// dropped and the list is shared across all worktrees of the repository.
func (m *Manager) findStash(ctx context.Context, dir, marker string) (string, bool, error) {
	out, err := m.runner.Run(ctx, dir, "stash", "list")
	if err != nil {
		return "", false, fmt.Errorf("stash list: %w", err)
	}
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, marker) {
			continue
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		return line[:idx], true, nil
	}
	return "", false, nil
}

// applyStash re-applies the stash entry with the given marker into dir's
// working tree without dropping it.
func (m *Manager) applyStash(ctx context.Context, dir, marker string) error {
	ref, ok, err := m.findStash(ctx, dir, marker)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("stash %s not found", marker)
	}
	if _, err := m.runner.Run(ctx, dir, "stash", "apply", ref); err != nil {
		return fmt.Errorf("stash apply %s: %w", marker, err)
	}
	return nil
}

// dropStash removes the stash entry with the given marker. Dropping a
// marker that no longer exists is not an error.
func (m *Manager) dropStash(ctx context.Context, dir, marker string) error {
	ref, ok, err := m.findStash(ctx, dir, marker)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if _, err := m.runner.Run(ctx, dir, "stash", "drop", ref); err != nil {
		return fmt.Errorf("stash drop %s: %w", marker, err)
	}
	return nil
}

// recoverStash best-effort restores a stash into dir after a failed
// transaction: apply, then drop only if the apply succeeded.
func (m *Manager) recoverStash(ctx context.Context, dir, marker string) {
	if err := m.applyStash(ctx, dir, marker); err != nil {
		m.warn("merge", fmt.Sprintf("recovery apply of %s failed, stash preserved: %v", marker, err))
		return
	}
	if err := m.dropStash(ctx, dir, marker); err != nil {
		m.warn("merge", fmt.Sprintf("recovery drop of %s failed: %v", marker, err))
	}
}
