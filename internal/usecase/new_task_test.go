package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikan-dev/splice/internal/domain"
	"github.com/mikan-dev/splice/internal/testutil"
)

func newNewTask(tasks *testutil.MockTaskRepository, wt *testutil.MockWorktreeManager, hooks *testutil.MockHooks) *NewTask {
	return NewNewTask(tasks, wt, hooks, testClock(), testutil.NopLogger{}, testRepoRoot)
}

func TestNewTask_LocalByDefault(t *testing.T) {
	tasks := testutil.NewMockTaskRepository()
	wt := &testutil.MockWorktreeManager{}
	hooks := &testutil.MockHooks{}
	uc := newNewTask(tasks, wt, hooks)

	out, err := uc.Execute(context.Background(), NewTaskInput{Title: "Fix login"})
	require.NoError(t, err)

	task := out.Task
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "Fix login", task.Title)
	assert.Equal(t, domain.StatusTodo, task.Status)
	assert.Equal(t, domain.ModeLocal, task.WorkingMode)
	assert.Nil(t, task.Worktree)
	assert.Empty(t, wt.Calls)
	assert.Contains(t, tasks.Tasks, task.ID)

	require.Len(t, hooks.Events, 1)
	assert.Equal(t, domain.HookTaskInitialized, hooks.Events[0].Point)
	assert.Equal(t, "Fix login", hooks.Events[0].Text)
}

func TestNewTask_WorktreeModeCreatesWorktree(t *testing.T) {
	tasks := testutil.NewMockTaskRepository()
	wt := &testutil.MockWorktreeManager{}
	uc := newNewTask(tasks, wt, &testutil.MockHooks{})

	out, err := uc.Execute(context.Background(), NewTaskInput{
		Title: "Isolated work", WorkingMode: domain.ModeWorktree, BaseRef: "main",
	})
	require.NoError(t, err)

	assert.Contains(t, wt.Calls, "Create")
	require.NotNil(t, out.Task.Worktree)
	assert.Equal(t, "/tmp/wt/"+out.Task.ID, out.Task.Worktree.Path)
}

func TestNewTask_WorktreeCreateFailureCreatesNothing(t *testing.T) {
	tasks := testutil.NewMockTaskRepository()
	wt := &testutil.MockWorktreeManager{CreateErr: errors.New("branch exists")}
	uc := newNewTask(tasks, wt, &testutil.MockHooks{})

	_, err := uc.Execute(context.Background(), NewTaskInput{Title: "x", WorkingMode: domain.ModeWorktree})
	require.Error(t, err)
	assert.Empty(t, tasks.Tasks)
}

func TestNewTask_HookFailureDoesNotBlockCreation(t *testing.T) {
	tasks := testutil.NewMockTaskRepository()
	hooks := &testutil.MockHooks{RunErr: errors.New("hook script missing")}
	uc := newNewTask(tasks, &testutil.MockWorktreeManager{}, hooks)

	out, err := uc.Execute(context.Background(), NewTaskInput{Title: "x"})
	require.NoError(t, err)
	assert.Contains(t, tasks.Tasks, out.Task.ID)
}

func TestNewTask_Validation(t *testing.T) {
	uc := newNewTask(testutil.NewMockTaskRepository(), &testutil.MockWorktreeManager{}, &testutil.MockHooks{})

	_, err := uc.Execute(context.Background(), NewTaskInput{})
	assert.ErrorIs(t, err, domain.ErrEmptyTitle)

	_, err = uc.Execute(context.Background(), NewTaskInput{Title: "x", WorkingMode: "floating"})
	assert.ErrorIs(t, err, domain.ErrInvalidMode)
}
