package usecase

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikan-dev/splice/internal/domain"
	"github.com/mikan-dev/splice/internal/testutil"
)

func writeLogFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o640))
}

func TestShowLogs_GlobalLog(t *testing.T) {
	spliceDir := t.TempDir()
	writeLogFile(t, domain.GlobalLogPath(spliceDir), "line1\nline2\nline3\n")
	uc := NewShowLogs(testutil.NewMockTaskRepository(), spliceDir, testRepoRoot)

	out, err := uc.Execute(context.Background(), ShowLogsInput{})
	require.NoError(t, err)
	assert.Equal(t, domain.GlobalLogPath(spliceDir), out.LogPath)
	assert.Equal(t, "line1\nline2\nline3\n", out.Content)
}

func TestShowLogs_TaskLogTail(t *testing.T) {
	spliceDir := t.TempDir()
	tasks := testutil.NewMockTaskRepository()
	tasks.Tasks["t1"] = &domain.Task{ID: "t1", RepoRoot: testRepoRoot, Status: domain.StatusTodo}
	writeLogFile(t, domain.TaskLogPath(spliceDir, "t1"), "a\nb\nc\nd\n")
	uc := NewShowLogs(tasks, spliceDir, testRepoRoot)

	out, err := uc.Execute(context.Background(), ShowLogsInput{TaskID: "t1", Lines: 2})
	require.NoError(t, err)
	assert.Equal(t, "d\n", out.Content)
}

func TestShowLogs_MissingFileIsEmpty(t *testing.T) {
	spliceDir := t.TempDir()
	uc := NewShowLogs(testutil.NewMockTaskRepository(), spliceDir, testRepoRoot)

	out, err := uc.Execute(context.Background(), ShowLogsInput{})
	require.NoError(t, err)
	assert.Empty(t, out.Content)
}

func TestShowLogs_TaskNotFound(t *testing.T) {
	uc := NewShowLogs(testutil.NewMockTaskRepository(), t.TempDir(), testRepoRoot)

	_, err := uc.Execute(context.Background(), ShowLogsInput{TaskID: "missing"})
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}
