package usecase

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mikan-dev/splice/internal/domain"
)

// ShowLogsInput contains the parameters for viewing logs.
type ShowLogsInput struct {
	TaskID string // Task ID (optional, empty = global log)
	Lines  int    // Number of lines from the end (0 = all)
}

// ShowLogsOutput contains the log content.
type ShowLogsOutput struct {
	LogPath string
	Content string
}

// ShowLogs is the use case for viewing the global or a task's log file.
type ShowLogs struct {
	tasks     domain.TaskRepository
	spliceDir string
	repoRoot  string
}

// NewShowLogs creates a new ShowLogs use case.
func NewShowLogs(tasks domain.TaskRepository, spliceDir, repoRoot string) *ShowLogs {
	return &ShowLogs{tasks: tasks, spliceDir: spliceDir, repoRoot: repoRoot}
}

// Execute reads the log file, optionally truncated to the last N lines.
func (uc *ShowLogs) Execute(_ context.Context, in ShowLogsInput) (*ShowLogsOutput, error) {
	logPath := domain.GlobalLogPath(uc.spliceDir)
	if in.TaskID != "" {
		task, err := uc.tasks.Load(uc.repoRoot, in.TaskID)
		if err != nil {
			return nil, fmt.Errorf("load task: %w", err)
		}
		if task == nil {
			return nil, domain.ErrTaskNotFound
		}
		logPath = domain.TaskLogPath(uc.spliceDir, in.TaskID)
	}

	content, err := os.ReadFile(logPath) //nolint:gosec // Path is derived from the state directory
	if err != nil {
		if os.IsNotExist(err) {
			return &ShowLogsOutput{LogPath: logPath}, nil
		}
		return nil, fmt.Errorf("read log file: %w", err)
	}

	result := string(content)
	if in.Lines > 0 {
		lines := strings.Split(result, "\n")
		if len(lines) > in.Lines {
			lines = lines[len(lines)-in.Lines:]
		}
		result = strings.Join(lines, "\n")
	}

	return &ShowLogsOutput{LogPath: logPath, Content: result}, nil
}
