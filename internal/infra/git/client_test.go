package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikan-dev/splice/internal/domain"
)

// setupGitRepo creates a temporary git repository for testing.
func setupGitRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	runGit(t, dir, "init", "-b", "main")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test User")

	readme := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(readme, []byte("# Test\n"), 0o644))
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "Initial commit")

	// t.TempDir may return a symlinked path (macOS); resolve so comparisons
	// against git's toplevel output hold.
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

// =============================================================================
// Inspector Tests
// =============================================================================

func TestNewInspector_Success(t *testing.T) {
	dir := setupGitRepo(t)

	insp, err := NewInspector(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, insp.Root())
}

func TestNewInspector_NotGitRepo(t *testing.T) {
	dir := t.TempDir()

	insp, err := NewInspector(dir)
	assert.ErrorIs(t, err, domain.ErrNotGitRepository)
	assert.Nil(t, insp)
}

func TestNewInspector_FromSubdirectory(t *testing.T) {
	dir := setupGitRepo(t)
	sub := filepath.Join(dir, "pkg", "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	insp, err := NewInspector(sub)
	require.NoError(t, err)
	assert.Equal(t, dir, insp.Root())
}

func TestInspector_CurrentBranch(t *testing.T) {
	dir := setupGitRepo(t)

	insp, err := NewInspector(dir)
	require.NoError(t, err)

	branch, err := insp.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "main", branch)
}

func TestInspector_CurrentBranch_Detached(t *testing.T) {
	dir := setupGitRepo(t)
	runGit(t, dir, "checkout", "--detach", "HEAD")

	insp, err := NewInspector(dir)
	require.NoError(t, err)

	_, err = insp.CurrentBranch()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "detached")
}

func TestInspector_BranchExists(t *testing.T) {
	dir := setupGitRepo(t)
	runGit(t, dir, "branch", "feature")

	insp, err := NewInspector(dir)
	require.NoError(t, err)

	exists, err := insp.BranchExists("feature")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = insp.BranchExists("no-such-branch")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestInspector_ResolveCommit(t *testing.T) {
	dir := setupGitRepo(t)

	insp, err := NewInspector(dir)
	require.NoError(t, err)

	head, err := insp.ResolveCommit("HEAD")
	require.NoError(t, err)
	assert.Len(t, head, 40)

	byBranch, err := insp.ResolveCommit("main")
	require.NoError(t, err)
	assert.Equal(t, head, byBranch)

	_, err = insp.ResolveCommit("no-such-rev")
	assert.Error(t, err)
}

func TestInspector_DefaultBranch(t *testing.T) {
	t.Run("main", func(t *testing.T) {
		dir := setupGitRepo(t)

		insp, err := NewInspector(dir)
		require.NoError(t, err)

		branch, err := insp.DefaultBranch()
		require.NoError(t, err)
		assert.Equal(t, "main", branch)
	})

	t.Run("master", func(t *testing.T) {
		dir := setupGitRepo(t)
		runGit(t, dir, "branch", "-m", "main", "master")

		insp, err := NewInspector(dir)
		require.NoError(t, err)

		branch, err := insp.DefaultBranch()
		require.NoError(t, err)
		assert.Equal(t, "master", branch)
	})

	t.Run("neither falls back to current", func(t *testing.T) {
		dir := setupGitRepo(t)
		runGit(t, dir, "branch", "-m", "main", "trunk")

		insp, err := NewInspector(dir)
		require.NoError(t, err)

		branch, err := insp.DefaultBranch()
		require.NoError(t, err)
		assert.Equal(t, "trunk", branch)
	})
}

func TestInspector_HasCommits(t *testing.T) {
	t.Run("with commits", func(t *testing.T) {
		dir := setupGitRepo(t)

		insp, err := NewInspector(dir)
		require.NoError(t, err)

		has, err := insp.HasCommits()
		require.NoError(t, err)
		assert.True(t, has)
	})

	t.Run("empty repository", func(t *testing.T) {
		dir := t.TempDir()
		runGit(t, dir, "init", "-b", "main")

		insp, err := NewInspector(dir)
		require.NoError(t, err)

		has, err := insp.HasCommits()
		require.NoError(t, err)
		assert.False(t, has)
	})
}

// =============================================================================
// Runner Tests
// =============================================================================

func TestRunner_Run_Success(t *testing.T) {
	dir := setupGitRepo(t)
	r := NewRunner()

	out, err := r.Run(context.Background(), dir, "rev-parse", "--abbrev-ref", "HEAD")
	require.NoError(t, err)
	assert.Equal(t, "main", Lines(out)[0])
}

func TestRunner_Run_Failure(t *testing.T) {
	dir := setupGitRepo(t)
	r := NewRunner()

	_, err := r.Run(context.Background(), dir, "checkout", "no-such-branch")
	require.Error(t, err)

	var gitErr *domain.GitError
	require.ErrorAs(t, err, &gitErr)
	assert.Equal(t, dir, gitErr.Dir)
	assert.Equal(t, []string{"checkout", "no-such-branch"}, gitErr.Args)
	assert.NotEmpty(t, gitErr.Output)
}

func TestRunner_Run_ContextCancelled(t *testing.T) {
	dir := setupGitRepo(t)
	r := NewRunner()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, dir, "status")
	assert.Error(t, err)
}

func TestIsConflictOutput(t *testing.T) {
	assert.True(t, IsConflictOutput("CONFLICT (content): Merge conflict in a.txt"))
	assert.True(t, IsConflictOutput("error: could not apply 1234abc... change"))
	assert.True(t, IsConflictOutput("Automatic merge failed; fix conflicts and then commit the result."))
	assert.False(t, IsConflictOutput("Already up to date."))
	assert.False(t, IsConflictOutput(""))
}

func TestClassifyError(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, ClassifyError(nil))
	})

	t.Run("conflict output upgrades", func(t *testing.T) {
		gitErr := domain.NewGitError(assert.AnError, "/repo", "CONFLICT (content): Merge conflict in a.txt", "merge", "feature")
		err := ClassifyError(gitErr)
		assert.True(t, domain.IsConflict(err))
	})

	t.Run("non-conflict passes through", func(t *testing.T) {
		gitErr := domain.NewGitError(assert.AnError, "/repo", "fatal: not a git repository", "status")
		err := ClassifyError(gitErr)
		assert.False(t, domain.IsConflict(err))
		assert.Equal(t, gitErr, err)
	})
}

func TestLines(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Lines("a\n\n  b  \n"))
	assert.Nil(t, Lines("\n\n"))
}

func TestFindCommonDir_FromWorktree(t *testing.T) {
	mainRepo := setupGitRepo(t)
	worktreeDir := filepath.Join(t.TempDir(), "wt")
	runGit(t, mainRepo, "worktree", "add", "-b", "feature", worktreeDir)

	gitDir, err := FindCommonDir(worktreeDir)
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(gitDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(mainRepo, ".git"), resolved)
}
