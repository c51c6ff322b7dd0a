package worktree

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikan-dev/splice/internal/domain"
)

// setupGitRepo creates a temporary git repository with one commit on main.
func setupGitRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	runGit(t, dir, "init", "-b", "main")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test User")

	writeFile(t, dir, "README.md", "# Test\n")
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "Initial commit")

	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	return resolved
}

// runGit executes a git command and fails the test if it errors.
func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed: %s", args, out)
}

// gitOut executes a git command and returns trimmed stdout.
func gitOut(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	require.NoError(t, err, "git %v failed", args)
	return strings.TrimSpace(string(out))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func newManager(t *testing.T, repo string) *Manager {
	t.Helper()
	return NewManager(repo, filepath.Join(repo, ".git", "splice"), Options{})
}

// createWorktree creates a worktree for a task via the manager.
func createWorktree(t *testing.T, m *Manager, taskID string) *domain.Worktree {
	t.Helper()
	wt, err := m.Create(context.Background(), taskID, domain.BranchName(taskID), "HEAD")
	require.NoError(t, err)
	return wt
}

// stashCount returns the number of entries in the shared stash list.
func stashCount(t *testing.T, dir string) int {
	t.Helper()
	out := gitOut(t, dir, "stash", "list")
	if out == "" {
		return 0
	}
	return len(strings.Split(out, "\n"))
}

// =============================================================================
// Create / Remove
// =============================================================================

func TestManager_Create_NewBranch(t *testing.T) {
	repo := setupGitRepo(t)
	m := newManager(t, repo)

	wt, err := m.Create(context.Background(), "task1", "splice/task1", "HEAD")
	require.NoError(t, err)

	assert.DirExists(t, wt.Path)
	assert.Equal(t, "main", wt.BaseBranch)
	assert.Equal(t, gitOut(t, repo, "rev-parse", "HEAD"), wt.BaseCommit)
	assert.Equal(t, "splice/task1", gitOut(t, wt.Path, "rev-parse", "--abbrev-ref", "HEAD"))
}

func TestManager_Create_Idempotent(t *testing.T) {
	repo := setupGitRepo(t)
	m := newManager(t, repo)

	wt1, err := m.Create(context.Background(), "task1", "splice/task1", "HEAD")
	require.NoError(t, err)
	wt2, err := m.Create(context.Background(), "task1", "splice/task1", "HEAD")
	require.NoError(t, err)

	assert.Equal(t, wt1.Path, wt2.Path)
}

func TestManager_Create_Detached(t *testing.T) {
	repo := setupGitRepo(t)
	m := newManager(t, repo)

	wt, err := m.Create(context.Background(), "task1", "", "HEAD")
	require.NoError(t, err)

	assert.Equal(t, "HEAD", gitOut(t, wt.Path, "rev-parse", "--abbrev-ref", "HEAD"))
}

func TestManager_Create_EmptyRepository(t *testing.T) {
	dir := t.TempDir()
	runGit(t, dir, "init", "-b", "main")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test User")
	repo, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	m := newManager(t, repo)
	wt, err := m.Create(context.Background(), "task1", "splice/task1", "HEAD")
	require.NoError(t, err)

	assert.DirExists(t, wt.Path)
	assert.Equal(t, "Initial commit", gitOut(t, repo, "log", "-1", "--format=%s"))
}

func TestManager_Create_RemovesStaleDirectory(t *testing.T) {
	repo := setupGitRepo(t)
	m := newManager(t, repo)

	// A leftover plain directory at the deterministic path, not a worktree.
	stale := domain.WorktreePath(filepath.Join(repo, ".git", "splice"), "task1")
	writeFile(t, stale, "junk.txt", "junk")

	wt, err := m.Create(context.Background(), "task1", "splice/task1", "HEAD")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(wt.Path, "junk.txt"))
	assert.FileExists(t, filepath.Join(wt.Path, "README.md"))
}

func TestManager_Create_SharedFolderSymlink(t *testing.T) {
	repo := setupGitRepo(t)
	require.NoError(t, os.MkdirAll(filepath.Join(repo, "node_modules"), 0o755))

	m := NewManager(repo, filepath.Join(repo, ".git", "splice"), Options{
		SharedFolders: []string{"node_modules"},
	})

	wt, err := m.Create(context.Background(), "task1", "splice/task1", "HEAD")
	require.NoError(t, err)

	link := filepath.Join(wt.Path, "node_modules")
	info, err := os.Lstat(link)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink)

	target, err := os.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(repo, "node_modules"), target)
}

func TestManager_Remove(t *testing.T) {
	repo := setupGitRepo(t)
	m := newManager(t, repo)
	wt := createWorktree(t, m, "task1")

	require.NoError(t, m.Remove(context.Background(), wt))

	assert.NoDirExists(t, wt.Path)
	// The task branch is gone too.
	cmd := exec.Command("git", "show-ref", "--verify", "--quiet", "refs/heads/splice/task1")
	cmd.Dir = repo
	assert.Error(t, cmd.Run())
}

func TestManager_Remove_AlreadyGone(t *testing.T) {
	repo := setupGitRepo(t)
	m := newManager(t, repo)
	wt := createWorktree(t, m, "task1")

	// Simulate manual deletion.
	runGit(t, repo, "worktree", "remove", "--force", wt.Path)

	assert.NoError(t, m.Remove(context.Background(), wt))
}

// =============================================================================
// Status analysis
// =============================================================================

func TestManager_CheckUnmergedWork(t *testing.T) {
	repo := setupGitRepo(t)
	m := newManager(t, repo)
	wt := createWorktree(t, m, "task1")

	work, err := m.CheckUnmergedWork(context.Background(), wt, "main")
	require.NoError(t, err)
	assert.False(t, work.HasWork())

	writeFile(t, wt.Path, "feature.txt", "one\n")
	runGit(t, wt.Path, "add", ".")
	runGit(t, wt.Path, "commit", "-m", "Add feature")
	writeFile(t, wt.Path, "wip.txt", "wip\n")

	work, err = m.CheckUnmergedWork(context.Background(), wt, "main")
	require.NoError(t, err)
	assert.Len(t, work.AheadCommits, 1)
	assert.Contains(t, work.AheadCommits[0], "Add feature")
	assert.True(t, work.HasUncommitted)
}

func TestManager_CheckRebaseConflicts(t *testing.T) {
	repo := setupGitRepo(t)
	m := newManager(t, repo)
	wt := createWorktree(t, m, "task1")

	t.Run("no conflict when sides touch different files", func(t *testing.T) {
		writeFile(t, wt.Path, "a.txt", "worktree\n")
		runGit(t, wt.Path, "add", ".")
		runGit(t, wt.Path, "commit", "-m", "Touch a")

		writeFile(t, repo, "b.txt", "main\n")
		runGit(t, repo, "add", ".")
		runGit(t, repo, "commit", "-m", "Touch b")

		pred, err := m.CheckRebaseConflicts(context.Background(), wt, "main")
		require.NoError(t, err)
		assert.False(t, pred.HasConflicts)
	})

	t.Run("conflict when both sides edit the same file", func(t *testing.T) {
		writeFile(t, wt.Path, "README.md", "# Worktree edit\n")
		runGit(t, wt.Path, "add", ".")
		runGit(t, wt.Path, "commit", "-m", "Edit readme in worktree")

		writeFile(t, repo, "README.md", "# Main edit\n")
		runGit(t, repo, "add", ".")
		runGit(t, repo, "commit", "-m", "Edit readme on main")

		pred, err := m.CheckRebaseConflicts(context.Background(), wt, "main")
		require.NoError(t, err)
		assert.True(t, pred.HasConflicts)
		assert.Contains(t, pred.ConflictingFiles, "README.md")
		assert.NotEmpty(t, pred.WorktreeCommits)
		assert.NotEmpty(t, pred.TargetCommits)
	})
}

// =============================================================================
// Merge
// =============================================================================

func TestManager_MergeToMain_Squash(t *testing.T) {
	repo := setupGitRepo(t)
	m := newManager(t, repo)
	wt := createWorktree(t, m, "task1")

	writeFile(t, wt.Path, "feature.txt", "one\n")
	runGit(t, wt.Path, "add", ".")
	runGit(t, wt.Path, "commit", "-m", "Step 1")
	writeFile(t, wt.Path, "feature.txt", "one\ntwo\n")
	runGit(t, wt.Path, "add", ".")
	runGit(t, wt.Path, "commit", "-m", "Step 2")

	mainHead := gitOut(t, repo, "rev-parse", "main")

	err := m.MergeToMain(context.Background(), wt, domain.MergeOptions{
		TargetBranch: "main",
		Message:      "feat: add x",
		Squash:       true,
	})
	require.NoError(t, err)

	// Exactly one new commit on main carrying the supplied message.
	assert.Equal(t, "feat: add x", gitOut(t, repo, "log", "-1", "--format=%s"))
	assert.Equal(t, mainHead, gitOut(t, repo, "rev-parse", "main~1"))
	assert.Equal(t, "one\ntwo\n", readFile(t, repo, "feature.txt"))
}

func TestManager_MergeToMain_Squash_FallbackMessage(t *testing.T) {
	repo := setupGitRepo(t)
	m := newManager(t, repo)
	wt := createWorktree(t, m, "task1")

	writeFile(t, wt.Path, "feature.txt", "one\n")
	runGit(t, wt.Path, "add", ".")
	runGit(t, wt.Path, "commit", "-m", "Step 1")

	err := m.MergeToMain(context.Background(), wt, domain.MergeOptions{
		TargetBranch: "main",
		TaskTitle:    "Implement the feature",
		Squash:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Implement the feature", gitOut(t, repo, "log", "-1", "--format=%s"))
}

func TestManager_MergeToMain_Squash_NoChanges(t *testing.T) {
	repo := setupGitRepo(t)
	m := newManager(t, repo)
	wt := createWorktree(t, m, "task1")

	mainHead := gitOut(t, repo, "rev-parse", "main")

	err := m.MergeToMain(context.Background(), wt, domain.MergeOptions{
		TargetBranch: "main",
		Message:      "feat: nothing",
		Squash:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, mainHead, gitOut(t, repo, "rev-parse", "main"))
}

func TestManager_MergeToMain_FastForward(t *testing.T) {
	repo := setupGitRepo(t)
	m := newManager(t, repo)
	wt := createWorktree(t, m, "task1")

	writeFile(t, wt.Path, "feature.txt", "one\n")
	runGit(t, wt.Path, "add", ".")
	runGit(t, wt.Path, "commit", "-m", "Add feature")

	err := m.MergeToMain(context.Background(), wt, domain.MergeOptions{TargetBranch: "main"})
	require.NoError(t, err)

	// Main history is the worktree history, no merge commit.
	assert.Equal(t, gitOut(t, wt.Path, "rev-parse", "HEAD"), gitOut(t, repo, "rev-parse", "main"))
	assert.Equal(t, "Add feature", gitOut(t, repo, "log", "-1", "--format=%s"))
}

func TestManager_MergeToMain_ConflictSurfacesInWorktree(t *testing.T) {
	repo := setupGitRepo(t)
	m := newManager(t, repo)
	wt := createWorktree(t, m, "task1")

	writeFile(t, wt.Path, "README.md", "# Worktree edit\n")
	runGit(t, wt.Path, "add", ".")
	runGit(t, wt.Path, "commit", "-m", "Edit readme in worktree")

	writeFile(t, repo, "README.md", "# Main edit\n")
	runGit(t, repo, "add", ".")
	runGit(t, repo, "commit", "-m", "Edit readme on main")
	mainHead := gitOut(t, repo, "rev-parse", "main")

	err := m.MergeToMain(context.Background(), wt, domain.MergeOptions{TargetBranch: "main", Squash: true})
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))

	// Main is untouched; the conflicted rebase lives in the worktree.
	assert.Equal(t, mainHead, gitOut(t, repo, "rev-parse", "main"))
	state, stateErr := m.ReadRebaseState(context.Background(), wt)
	require.NoError(t, stateErr)
	assert.True(t, state.InProgress)
	assert.Contains(t, state.ConflictingFiles, "README.md")
}

// =============================================================================
// Transactional merge with uncommitted changes
// =============================================================================

func TestManager_MergeToMainWithUncommitted(t *testing.T) {
	repo := setupGitRepo(t)
	m := newManager(t, repo)
	wt := createWorktree(t, m, "task1")

	writeFile(t, wt.Path, "feature.txt", "committed\n")
	runGit(t, wt.Path, "add", ".")
	runGit(t, wt.Path, "commit", "-m", "Add feature")
	writeFile(t, wt.Path, "file.txt", "uncommitted edit\n")

	state, err := m.MergeToMainWithUncommitted(context.Background(), wt, domain.MergeOptions{
		TargetBranch: "main",
		Message:      "feat: add x",
		Squash:       true,
	})
	require.NoError(t, err)
	require.NotNil(t, state)

	// One squash commit on main.
	assert.Equal(t, "feat: add x", gitOut(t, repo, "log", "-1", "--format=%s"))

	// The uncommitted edit survives in both trees, as uncommitted.
	assert.Equal(t, "uncommitted edit\n", readFile(t, repo, "file.txt"))
	assert.Equal(t, "uncommitted edit\n", readFile(t, wt.Path, "file.txt"))
	assert.Contains(t, gitOut(t, repo, "status", "--porcelain"), "file.txt")
	assert.Contains(t, gitOut(t, wt.Path, "status", "--porcelain"), "file.txt")

	// Worktree transplant stash was dropped; main had nothing stashed.
	assert.Empty(t, state.MainStashID)
	assert.Equal(t, 0, stashCount(t, repo))
}

func TestManager_MergeThenRevert_RoundTrip(t *testing.T) {
	repo := setupGitRepo(t)
	m := newManager(t, repo)
	wt := createWorktree(t, m, "task1")

	writeFile(t, wt.Path, "feature.txt", "committed\n")
	runGit(t, wt.Path, "add", ".")
	runGit(t, wt.Path, "commit", "-m", "Add feature")
	writeFile(t, wt.Path, "wip.txt", "uncommitted work\n")

	// Main has its own pre-merge uncommitted change.
	writeFile(t, repo, "local.txt", "main local edit\n")

	mainBefore := gitOut(t, repo, "rev-parse", "main")
	wtBefore := gitOut(t, wt.Path, "rev-parse", "HEAD")

	state, err := m.MergeToMainWithUncommitted(context.Background(), wt, domain.MergeOptions{
		TargetBranch: "main",
		Message:      "feat: add feature",
		Squash:       true,
	})
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, mainBefore, state.BeforeMergeCommit)
	assert.Equal(t, wtBefore, state.WorktreeBranchCommit)
	assert.NotEmpty(t, state.MainStashID)

	// Main's own dirty state survived the merge.
	assert.Equal(t, "main local edit\n", readFile(t, repo, "local.txt"))

	require.NoError(t, m.RevertMerge(context.Background(), wt, state))

	// Both branches are back at their exact pre-merge commits.
	assert.Equal(t, mainBefore, gitOut(t, repo, "rev-parse", "main"))
	assert.Equal(t, wtBefore, gitOut(t, wt.Path, "rev-parse", "HEAD"))

	// Pre-merge uncommitted changes are back, byte-identical.
	assert.Equal(t, "main local edit\n", readFile(t, repo, "local.txt"))
	assert.Equal(t, "uncommitted work\n", readFile(t, wt.Path, "wip.txt"))

	// The merge's squash commit is gone from main.
	assert.NotEqual(t, "feat: add feature", gitOut(t, repo, "log", "-1", "--format=%s"))

	// No orphaned stash entries.
	assert.Equal(t, 0, stashCount(t, repo))
}

func TestManager_RevertMerge_FailureRestoresFreshStashes(t *testing.T) {
	repo := setupGitRepo(t)
	m := newManager(t, repo)
	wt := createWorktree(t, m, "task1")

	writeFile(t, wt.Path, "feature.txt", "committed\n")
	runGit(t, wt.Path, "add", ".")
	runGit(t, wt.Path, "commit", "-m", "Add feature")
	writeFile(t, wt.Path, "wip.txt", "uncommitted work\n")

	state, err := m.MergeToMainWithUncommitted(context.Background(), wt, domain.MergeOptions{
		TargetBranch: "main",
		Message:      "feat: add feature",
		Squash:       true,
	})
	require.NoError(t, err)

	// Edits made after the merge must survive a failed revert.
	writeFile(t, wt.Path, "post.txt", "post-merge edit\n")
	stashesBefore := stashCount(t, repo)

	state.BeforeMergeCommit = strings.Repeat("0", 40)
	require.Error(t, m.RevertMerge(context.Background(), wt, state))

	// The parked work came back instead of rotting in the stash list.
	assert.Equal(t, "post-merge edit\n", readFile(t, wt.Path, "post.txt"))
	assert.Equal(t, "uncommitted work\n", readFile(t, wt.Path, "wip.txt"))
	assert.Equal(t, stashesBefore, stashCount(t, repo))
}

func TestManager_MergeWithUncommitted_ConflictRestoresStashes(t *testing.T) {
	repo := setupGitRepo(t)
	m := newManager(t, repo)
	wt := createWorktree(t, m, "task1")

	writeFile(t, wt.Path, "README.md", "# Worktree edit\n")
	runGit(t, wt.Path, "add", ".")
	runGit(t, wt.Path, "commit", "-m", "Edit readme in worktree")
	writeFile(t, wt.Path, "wip.txt", "uncommitted work\n")

	writeFile(t, repo, "README.md", "# Main edit\n")
	runGit(t, repo, "add", ".")
	runGit(t, repo, "commit", "-m", "Edit readme on main")

	mainHead := gitOut(t, repo, "rev-parse", "main")

	_, err := m.MergeToMainWithUncommitted(context.Background(), wt, domain.MergeOptions{
		TargetBranch: "main",
		Squash:       true,
	})
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))

	// Main was never touched.
	assert.Equal(t, mainHead, gitOut(t, repo, "rev-parse", "main"))

	// A stash cannot be applied into a conflicted tree, so the recovery
	// preserves the entry instead of losing the work. After the caller
	// aborts the rebase, the stash is still there to restore from.
	runGit(t, wt.Path, "rebase", "--abort")
	require.Equal(t, 1, stashCount(t, repo))
	runGit(t, wt.Path, "stash", "pop")
	assert.Equal(t, "uncommitted work\n", readFile(t, wt.Path, "wip.txt"))
}

func TestManager_ApplyUncommittedToMain(t *testing.T) {
	repo := setupGitRepo(t)
	m := newManager(t, repo)
	wt := createWorktree(t, m, "task1")

	writeFile(t, wt.Path, "wip.txt", "uncommitted work\n")
	mainHead := gitOut(t, repo, "rev-parse", "main")

	require.NoError(t, m.ApplyUncommittedToMain(context.Background(), wt, "main"))

	// No commit integration, only the dirty state transplanted.
	assert.Equal(t, mainHead, gitOut(t, repo, "rev-parse", "main"))
	assert.Equal(t, "uncommitted work\n", readFile(t, repo, "wip.txt"))
	assert.Equal(t, "uncommitted work\n", readFile(t, wt.Path, "wip.txt"))
	assert.Equal(t, 0, stashCount(t, repo))
}

func TestManager_ApplyUncommittedToMain_CleanTree(t *testing.T) {
	repo := setupGitRepo(t)
	m := newManager(t, repo)
	wt := createWorktree(t, m, "task1")

	assert.NoError(t, m.ApplyUncommittedToMain(context.Background(), wt, "main"))
}

// =============================================================================
// Rebase lifecycle
// =============================================================================

func TestManager_Rebase_WrapsUncommitted(t *testing.T) {
	repo := setupGitRepo(t)
	m := newManager(t, repo)
	wt := createWorktree(t, m, "task1")

	writeFile(t, repo, "upstream.txt", "main\n")
	runGit(t, repo, "add", ".")
	runGit(t, repo, "commit", "-m", "Upstream change")

	writeFile(t, wt.Path, "wip.txt", "uncommitted work\n")

	require.NoError(t, m.Rebase(context.Background(), wt, "main"))

	// Upstream change landed and the dirty state is uncommitted again.
	assert.FileExists(t, filepath.Join(wt.Path, "upstream.txt"))
	assert.Contains(t, gitOut(t, wt.Path, "status", "--porcelain"), "wip.txt")
	assert.False(t, domain.IsTempCommitMarker(gitOut(t, wt.Path, "log", "-1", "--format=%s")))
}

func TestManager_Rebase_ConflictLeftInProgress(t *testing.T) {
	repo := setupGitRepo(t)
	m := newManager(t, repo)
	wt := createWorktree(t, m, "task1")

	writeFile(t, wt.Path, "README.md", "# Worktree edit\n")
	runGit(t, wt.Path, "add", ".")
	runGit(t, wt.Path, "commit", "-m", "Edit readme in worktree")

	writeFile(t, repo, "README.md", "# Main edit\n")
	runGit(t, repo, "add", ".")
	runGit(t, repo, "commit", "-m", "Edit readme on main")

	err := m.Rebase(context.Background(), wt, "main")
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))

	state, err := m.ReadRebaseState(context.Background(), wt)
	require.NoError(t, err)
	assert.True(t, state.InProgress)
	assert.True(t, state.HasConflicts)
	assert.Equal(t, []string{"README.md"}, state.ConflictingFiles)
}

func TestManager_ContinueRebase(t *testing.T) {
	repo := setupGitRepo(t)
	m := newManager(t, repo)
	wt := createWorktree(t, m, "task1")

	writeFile(t, wt.Path, "README.md", "# Worktree edit\n")
	runGit(t, wt.Path, "add", ".")
	runGit(t, wt.Path, "commit", "-m", "Edit readme in worktree")

	writeFile(t, repo, "README.md", "# Main edit\n")
	runGit(t, repo, "add", ".")
	runGit(t, repo, "commit", "-m", "Edit readme on main")

	err := m.Rebase(context.Background(), wt, "main")
	require.Error(t, err)

	// Resolve by hand and continue.
	writeFile(t, wt.Path, "README.md", "# Resolved\n")
	runGit(t, wt.Path, "add", "README.md")
	require.NoError(t, m.ContinueRebase(context.Background(), wt))

	state, err := m.ReadRebaseState(context.Background(), wt)
	require.NoError(t, err)
	assert.False(t, state.InProgress)
	assert.Equal(t, "# Resolved\n", readFile(t, wt.Path, "README.md"))
}

func TestManager_ContinueRebase_NoRebase(t *testing.T) {
	repo := setupGitRepo(t)
	m := newManager(t, repo)
	wt := createWorktree(t, m, "task1")

	err := m.ContinueRebase(context.Background(), wt)
	assert.ErrorIs(t, err, domain.ErrNoRebaseInProgress)
}

func TestManager_AbortRebase(t *testing.T) {
	repo := setupGitRepo(t)
	m := newManager(t, repo)
	wt := createWorktree(t, m, "task1")

	writeFile(t, wt.Path, "README.md", "# Worktree edit\n")
	runGit(t, wt.Path, "add", ".")
	runGit(t, wt.Path, "commit", "-m", "Edit readme in worktree")
	wtHead := gitOut(t, wt.Path, "rev-parse", "HEAD")
	writeFile(t, wt.Path, "wip.txt", "uncommitted work\n")

	writeFile(t, repo, "README.md", "# Main edit\n")
	runGit(t, repo, "add", ".")
	runGit(t, repo, "commit", "-m", "Edit readme on main")

	err := m.Rebase(context.Background(), wt, "main")
	require.Error(t, err)

	require.NoError(t, m.AbortRebase(context.Background(), wt))

	state, err := m.ReadRebaseState(context.Background(), wt)
	require.NoError(t, err)
	assert.False(t, state.InProgress)

	// Back to the pre-rebase commit with the dirty state unwrapped.
	assert.Equal(t, wtHead, gitOut(t, wt.Path, "rev-parse", "HEAD"))
	assert.Equal(t, "uncommitted work\n", readFile(t, wt.Path, "wip.txt"))
	assert.Contains(t, gitOut(t, wt.Path, "status", "--porcelain"), "wip.txt")
}

func TestManager_AbortRebase_NoRebase(t *testing.T) {
	repo := setupGitRepo(t)
	m := newManager(t, repo)
	wt := createWorktree(t, m, "task1")

	err := m.AbortRebase(context.Background(), wt)
	assert.ErrorIs(t, err, domain.ErrNoRebaseInProgress)
}
