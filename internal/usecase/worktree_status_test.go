package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikan-dev/splice/internal/domain"
	"github.com/mikan-dev/splice/internal/testutil"
)

func TestWorktreeStatus_PublishesCombinedStatus(t *testing.T) {
	tasks := testutil.NewMockTaskRepository()
	worktreeTask(tasks, "t1")
	wt := &testutil.MockWorktreeManager{
		Unmerged: domain.UnmergedWork{
			AheadCommits:   []string{"aaa1111 Add parser", "bbb2222 Fix lexer", "ccc3333 Add tests"},
			HasUncommitted: true,
		},
		Prediction:  domain.ConflictPrediction{HasConflicts: true, ConflictingFiles: []string{"a.go"}},
		RebaseState: domain.RebaseState{InProgress: false},
	}
	publisher := &testutil.MockEventPublisher{}
	uc := NewWorktreeStatus(tasks, testutil.NewMockGit(), wt, publisher, testRepoRoot)

	out, err := uc.Execute(context.Background(), WorktreeStatusInput{TaskID: "t1"})
	require.NoError(t, err)

	assert.Equal(t, "main", out.Target)
	assert.Len(t, out.Unmerged.AheadCommits, 3)
	assert.True(t, out.Unmerged.HasUncommitted)
	assert.True(t, out.Prediction.HasConflicts)
	assert.False(t, out.Rebase.InProgress)

	require.Len(t, publisher.StatusUpdates, 1)
	ev := publisher.StatusUpdates[0]
	assert.Equal(t, "t1", ev.TaskID)
	assert.Equal(t, out.Unmerged, ev.Unmerged)
	assert.Equal(t, out.Prediction, ev.Prediction)
}

func TestWorktreeStatus_ExplicitTarget(t *testing.T) {
	tasks := testutil.NewMockTaskRepository()
	worktreeTask(tasks, "t1")
	uc := NewWorktreeStatus(tasks, testutil.NewMockGit(), &testutil.MockWorktreeManager{}, nil, testRepoRoot)

	out, err := uc.Execute(context.Background(), WorktreeStatusInput{TaskID: "t1", Target: "release"})
	require.NoError(t, err)
	assert.Equal(t, "release", out.Target)
}

func TestWorktreeStatus_FallsBackToDefaultBranch(t *testing.T) {
	tasks := testutil.NewMockTaskRepository()
	task := worktreeTask(tasks, "t1")
	task.Worktree.BaseBranch = ""
	git := testutil.NewMockGit()
	git.Default = "trunk"
	uc := NewWorktreeStatus(tasks, git, &testutil.MockWorktreeManager{}, nil, testRepoRoot)

	out, err := uc.Execute(context.Background(), WorktreeStatusInput{TaskID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, "trunk", out.Target)
}

func TestWorktreeStatus_RequiresWorktreeMode(t *testing.T) {
	tasks := testutil.NewMockTaskRepository()
	tasks.Tasks["t1"] = &domain.Task{ID: "t1", RepoRoot: testRepoRoot, WorkingMode: domain.ModeLocal}
	uc := NewWorktreeStatus(tasks, testutil.NewMockGit(), &testutil.MockWorktreeManager{}, nil, testRepoRoot)

	_, err := uc.Execute(context.Background(), WorktreeStatusInput{TaskID: "t1"})
	assert.ErrorIs(t, err, domain.ErrWorktreeNotFound)
}

func TestApplyUncommitted_TransplantsToTarget(t *testing.T) {
	tasks := testutil.NewMockTaskRepository()
	worktreeTask(tasks, "t1")
	wt := &testutil.MockWorktreeManager{}
	uc := NewApplyUncommitted(tasks, testutil.NewMockGit(), wt, testutil.NopLogger{}, testRepoRoot)

	err := uc.Execute(context.Background(), ApplyUncommittedInput{TaskID: "t1"})
	require.NoError(t, err)
	assert.Contains(t, wt.Calls, "ApplyUncommittedToMain")
}

func TestApplyUncommitted_RequiresWorktree(t *testing.T) {
	tasks := testutil.NewMockTaskRepository()
	tasks.Tasks["t1"] = &domain.Task{ID: "t1", RepoRoot: testRepoRoot, WorkingMode: domain.ModeLocal}
	uc := NewApplyUncommitted(tasks, testutil.NewMockGit(), &testutil.MockWorktreeManager{}, testutil.NopLogger{}, testRepoRoot)

	err := uc.Execute(context.Background(), ApplyUncommittedInput{TaskID: "t1"})
	assert.ErrorIs(t, err, domain.ErrWorktreeNotFound)
}
