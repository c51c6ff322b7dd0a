// Package worktree implements git worktree isolation for tasks: creation,
// removal, status analysis, and the merge/rebase/revert sequences that move
// work between a task's worktree branch and the shared target branch.
package worktree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/mikan-dev/splice/internal/domain"
	gitinfra "github.com/mikan-dev/splice/internal/infra/git"
	"github.com/mikan-dev/splice/internal/infra/locking"
)

// Manager performs all git sequences for task worktrees. Mutating
// operations acquire a lock keyed by the worktree path so sequences on the
// same worktree never interleave; status queries run unlocked and may
// return stale results during a concurrent mutation.
type Manager struct {
	runner        *gitinfra.Runner
	locks         *locking.Registry
	gen           domain.TextGenerator
	logger        domain.Logger
	clock         domain.Clock
	repoRoot      string
	spliceDir     string
	genProfile    string
	sharedFolders []string
}

var _ domain.WorktreeManager = (*Manager)(nil)

// Options configures optional Manager collaborators.
// Fields are ordered to minimize memory padding.
type Options struct {
	Generator     domain.TextGenerator
	Logger        domain.Logger
	Clock         domain.Clock
	GenProfile    string
	SharedFolders []string
}

// NewManager creates a Manager rooted at the main repository checkout.
// spliceDir is the per-repository state directory, typically .git/splice;
// task worktrees are created under its worktrees subdirectory.
func NewManager(repoRoot, spliceDir string, opts Options) *Manager {
	m := &Manager{
		runner:        gitinfra.NewRunner(),
		locks:         locking.NewRegistry(),
		gen:           opts.Generator,
		logger:        opts.Logger,
		clock:         opts.Clock,
		repoRoot:      repoRoot,
		spliceDir:     spliceDir,
		genProfile:    opts.GenProfile,
		sharedFolders: opts.SharedFolders,
	}
	if m.clock == nil {
		m.clock = domain.RealClock{}
	}
	return m
}

// Create idempotently creates the worktree for a task. Stale directories
// and registrations from earlier attempts are removed first. An empty
// branch name produces a detached worktree; baseRef defaults to HEAD.
func (m *Manager) Create(ctx context.Context, taskID, branch, baseRef string) (*domain.Worktree, error) {
	path := domain.WorktreePath(m.spliceDir, taskID)
	unlock := m.locks.Lock(path)
	defer unlock()

	if baseRef == "" {
		baseRef = "HEAD"
	}

	if err := m.ensureInitialCommit(ctx); err != nil {
		return nil, err
	}

	baseCommit, err := m.runner.Run(ctx, m.repoRoot, "rev-parse", baseRef)
	if err != nil {
		return nil, fmt.Errorf("resolve base ref %s: %w", baseRef, err)
	}
	baseBranch := baseRef
	if baseRef == "HEAD" {
		out, err := m.runner.Run(ctx, m.repoRoot, "rev-parse", "--abbrev-ref", "HEAD")
		if err != nil {
			return nil, fmt.Errorf("resolve base branch: %w", err)
		}
		baseBranch = strings.TrimSpace(out)
	}

	wt := &domain.Worktree{
		Path:       path,
		BaseBranch: baseBranch,
		BaseCommit: strings.TrimSpace(baseCommit),
	}

	// Reuse a worktree left over from a previous attempt with the same id.
	if m.isValidWorktree(ctx, path) {
		return wt, nil
	}

	// A directory that is not a registered worktree is stale debris.
	if _, statErr := os.Stat(path); statErr == nil {
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("remove stale worktree directory: %w", err)
		}
	}
	_, _ = m.runner.Run(ctx, m.repoRoot, "worktree", "prune")

	args := m.addArgs(path, branch, baseRef)
	if out, err := m.runner.Run(ctx, m.repoRoot, args...); err != nil {
		if !strings.Contains(out, "already registered") {
			return nil, fmt.Errorf("create worktree: %w", err)
		}
		// Registered but directory missing; prune and retry once.
		if _, pruneErr := m.runner.Run(ctx, m.repoRoot, "worktree", "prune"); pruneErr != nil {
			return nil, fmt.Errorf("prune stale worktrees: %w", pruneErr)
		}
		if _, err := m.runner.Run(ctx, m.repoRoot, args...); err != nil {
			return nil, fmt.Errorf("create worktree after prune: %w", err)
		}
	}

	m.linkSharedFolders(path)

	return wt, nil
}

func (m *Manager) addArgs(path, branch, baseRef string) []string {
	if branch == "" {
		return []string{"worktree", "add", "--detach", path, baseRef}
	}
	if m.localBranchExists(branch) {
		return []string{"worktree", "add", path, branch}
	}
	return []string{"worktree", "add", "-b", branch, path, baseRef}
}

// Remove force-removes the worktree and best-effort deletes its branch.
// A worktree that was already removed by hand is success, not an error.
func (m *Manager) Remove(ctx context.Context, wt *domain.Worktree) error {
	unlock := m.locks.Lock(wt.Path)
	defer unlock()

	if out, err := m.runner.Run(ctx, m.repoRoot, "worktree", "remove", "--force", wt.Path); err != nil {
		if !strings.Contains(out, "is not a working tree") && !strings.Contains(out, "No such file") {
			return fmt.Errorf("remove worktree: %w", err)
		}
	}
	_, _ = m.runner.Run(ctx, m.repoRoot, "worktree", "prune")

	branch := domain.BranchName(filepath.Base(wt.Path))
	if m.localBranchExists(branch) {
		if _, err := m.runner.Run(ctx, m.repoRoot, "branch", "-D", branch); err != nil {
			m.warn("worktree", fmt.Sprintf("failed to delete branch %s: %v", branch, err))
		}
	}
	return nil
}

// CheckUnmergedWork reports how far the worktree branch is ahead of target
// and whether it has uncommitted changes. Advisory: any git failure yields
// an empty result rather than an error.
func (m *Manager) CheckUnmergedWork(ctx context.Context, wt *domain.Worktree, target string) (domain.UnmergedWork, error) {
	var work domain.UnmergedWork

	out, err := m.runner.Run(ctx, wt.Path, "log", "--format=%h %s", target+"..HEAD")
	if err != nil {
		m.warn("worktree", fmt.Sprintf("unmerged-work check failed: %v", err))
		return work, nil
	}
	work.AheadCommits = gitinfra.Lines(out)

	dirty, err := m.hasUncommitted(ctx, wt.Path)
	if err != nil {
		m.warn("worktree", fmt.Sprintf("uncommitted check failed: %v", err))
		return work, nil
	}
	work.HasUncommitted = dirty
	return work, nil
}

// CheckRebaseConflicts predicts whether rebasing the worktree onto target
// would conflict, using a merge-tree dry run against the merge base. When
// the dry run is unavailable the prediction degrades to the intersection
// of changed-file sets, marked approximate. Advisory, fails open.
func (m *Manager) CheckRebaseConflicts(ctx context.Context, wt *domain.Worktree, target string) (domain.ConflictPrediction, error) {
	var pred domain.ConflictPrediction

	baseOut, err := m.runner.Run(ctx, wt.Path, "merge-base", target, "HEAD")
	if err != nil {
		m.warn("worktree", fmt.Sprintf("merge-base failed: %v", err))
		return pred, nil
	}
	base := strings.TrimSpace(baseOut)

	oursFiles, err := m.changedFiles(ctx, wt.Path, base, "HEAD")
	if err != nil {
		m.warn("worktree", fmt.Sprintf("changed-file listing failed: %v", err))
		return pred, nil
	}
	theirsFiles, err := m.changedFiles(ctx, wt.Path, base, target)
	if err != nil {
		m.warn("worktree", fmt.Sprintf("changed-file listing failed: %v", err))
		return pred, nil
	}
	overlap := intersect(oursFiles, theirsFiles)

	mergeOut, mergeErr := m.runner.Run(ctx, wt.Path, "merge-tree", base, "HEAD", target)
	if mergeErr != nil {
		// Dry run unavailable; over-reporting beats missing a conflict.
		pred.ConflictingFiles = overlap
		pred.HasConflicts = len(overlap) > 0
		pred.Approximate = true
	} else if strings.Contains(mergeOut, "<<<<<<<") || gitinfra.IsConflictOutput(mergeOut) {
		pred.ConflictingFiles = overlap
		pred.HasConflicts = true
	}

	if pred.HasConflicts {
		if out, err := m.runner.Run(ctx, wt.Path, "log", "--format=%h %s", target+"..HEAD"); err == nil {
			pred.WorktreeCommits = gitinfra.Lines(out)
		}
		if out, err := m.runner.Run(ctx, wt.Path, "log", "--format=%h %s", "HEAD.."+target); err == nil {
			pred.TargetCommits = gitinfra.Lines(out)
		}
	}
	return pred, nil
}

// ReadRebaseState derives the current rebase state by inspecting the
// worktree's git directory and index.
func (m *Manager) ReadRebaseState(ctx context.Context, wt *domain.Worktree) (domain.RebaseState, error) {
	var state domain.RebaseState

	for _, name := range []string{"rebase-merge", "rebase-apply"} {
		out, err := m.runner.Run(ctx, wt.Path, "rev-parse", "--git-path", name)
		if err != nil {
			return state, fmt.Errorf("locate %s: %w", name, err)
		}
		if dirExists(wt.Path, strings.TrimSpace(out)) {
			state.InProgress = true
			break
		}
	}
	if !state.InProgress {
		return state, nil
	}

	out, err := m.runner.Run(ctx, wt.Path, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return state, fmt.Errorf("list unmerged files: %w", err)
	}
	state.ConflictingFiles = gitinfra.Lines(out)
	state.HasConflicts = len(state.ConflictingFiles) > 0
	return state, nil
}

// ensureInitialCommit guarantees the repository has at least one commit so
// worktree add has something to point at.
func (m *Manager) ensureInitialCommit(ctx context.Context) error {
	if err := m.runner.RunQuiet(ctx, m.repoRoot, "rev-parse", "--verify", "HEAD"); err == nil {
		return nil
	}
	if _, err := m.runner.Run(ctx, m.repoRoot, "commit", "--allow-empty", "-m", "Initial commit"); err != nil {
		return fmt.Errorf("create initial commit: %w", err)
	}
	return nil
}

// isValidWorktree reports whether path is a live, registered worktree.
// The command exits 0 even inside a bare directory under .git, printing
// "false" there, so the output is what decides.
func (m *Manager) isValidWorktree(ctx context.Context, path string) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}
	out, err := m.runner.Run(ctx, path, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

func (m *Manager) localBranchExists(branch string) bool {
	return m.runner.RunQuiet(context.Background(), m.repoRoot, "show-ref", "--verify", "--quiet", "refs/heads/"+branch) == nil
}

// linkSharedFolders materializes symlinks so configured folders (caches,
// local env files) are shared between the main checkout and the worktree
// instead of duplicated. Failures are logged, not fatal.
func (m *Manager) linkSharedFolders(wtPath string) {
	for _, folder := range m.sharedFolders {
		src := filepath.Join(m.repoRoot, folder)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		dst := filepath.Join(wtPath, folder)
		if _, err := os.Lstat(dst); err == nil {
			if err := os.RemoveAll(dst); err != nil {
				m.warn("worktree", fmt.Sprintf("failed to clear %s for shared link: %v", folder, err))
				continue
			}
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			m.warn("worktree", fmt.Sprintf("failed to prepare shared link for %s: %v", folder, err))
			continue
		}
		if err := os.Symlink(src, dst); err != nil {
			m.warn("worktree", fmt.Sprintf("failed to link shared folder %s: %v", folder, err))
		}
	}
}

func (m *Manager) changedFiles(ctx context.Context, dir, from, to string) ([]string, error) {
	out, err := m.runner.Run(ctx, dir, "diff", "--name-only", from+".."+to)
	if err != nil {
		return nil, err
	}
	return gitinfra.Lines(out), nil
}

func (m *Manager) hasUncommitted(ctx context.Context, dir string) (bool, error) {
	out, err := m.runner.Run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

func (m *Manager) warn(category, msg string) {
	if m.logger != nil {
		m.logger.Warn("", category, msg)
	}
}

func (m *Manager) info(taskID, msg string) {
	if m.logger != nil {
		m.logger.Info(taskID, "worktree", msg)
	}
}

// dirExists resolves a possibly relative git path against the worktree
// and reports whether it exists.
func dirExists(wtPath, dir string) bool {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(wtPath, dir)
	}
	_, err := os.Stat(dir)
	return err == nil
}

func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(a))
	for _, f := range a {
		set[f] = struct{}{}
	}
	var out []string
	for _, f := range b {
		if _, ok := set[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

func uniqueID() string {
	return uuid.NewString()[:8]
}
