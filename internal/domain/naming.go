package domain

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// ConfigFileName is the name of the configuration file.
const ConfigFileName = "config.toml"

// RepoSpliceDir returns the splice state directory for a repository.
func RepoSpliceDir(gitDir string) string {
	return filepath.Join(gitDir, "splice")
}

// GlobalSpliceDir returns the global config directory under configHome.
func GlobalSpliceDir(configHome string) string {
	return filepath.Join(configHome, "splice")
}

// BranchName returns the isolation branch name for a task.
// Format: splice/<task-id>
func BranchName(taskID string) string {
	return "splice/" + taskID
}

// branchPattern matches splice branch names.
var branchPattern = regexp.MustCompile(`^splice/([0-9a-f-]+)$`)

// ParseBranchTaskID extracts the task ID from a branch name. Returns the
// id and true if the branch follows the splice naming convention.
func ParseBranchTaskID(branch string) (string, bool) {
	matches := branchPattern.FindStringSubmatch(branch)
	if matches == nil {
		return "", false
	}
	return matches[1], true
}

// WorktreePath returns the deterministic worktree path for a task, so
// create/remove operations are idempotent across retries.
func WorktreePath(spliceDir, taskID string) string {
	return filepath.Join(spliceDir, "worktrees", taskID)
}

// TasksStorePath returns the path to the tasks.json file.
func TasksStorePath(spliceDir string) string {
	return filepath.Join(spliceDir, "tasks.json")
}

// TaskLogPath returns the path to a task's log file.
func TaskLogPath(spliceDir, taskID string) string {
	return filepath.Join(spliceDir, "logs", fmt.Sprintf("task-%s.log", taskID))
}

// GlobalLogPath returns the path to the global log file.
func GlobalLogPath(spliceDir string) string {
	return filepath.Join(spliceDir, "logs", "splice.log")
}

// HandoffPath returns the path a handoff snapshot is exported to.
func HandoffPath(spliceDir, taskID string) string {
	return filepath.Join(spliceDir, "handoffs", fmt.Sprintf("task-%s.yaml", taskID))
}

// StashMarker returns the stash message marker for a merge transaction
// side. The unique id lets re-apply and drop target exactly this entry.
func StashMarker(side, uniqueID string) string {
	return fmt.Sprintf("SPLICE_STASH_%s_%s", strings.ToUpper(side), uniqueID)
}

// TempCommitMarker returns the subject of the temporary commit that wraps
// uncommitted changes for the duration of a rebase.
func TempCommitMarker(timestamp int64) string {
	return fmt.Sprintf("TEMP_UNCOMMITTED_%d", timestamp)
}

// IsTempCommitMarker reports whether a commit subject is a rebase
// temp-commit marker.
func IsTempCommitMarker(subject string) bool {
	return strings.HasPrefix(subject, "TEMP_UNCOMMITTED_")
}
