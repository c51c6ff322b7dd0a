// Package git provides git command execution and read-only repository queries.
package git

import (
	"context"
	"os/exec"
	"strings"

	"github.com/mikan-dev/splice/internal/domain"
)

// Runner executes git commands in a working directory, capturing combined
// output. Failures carry the full command, output, and directory so a
// human can recover manually.
type Runner struct{}

// NewRunner creates a new Runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Run executes git with the given arguments in dir and returns stdout+stderr.
func (r *Runner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	// #nosec G204 - arguments are constructed from trusted call sites
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), domain.NewGitError(err, dir, string(out), args...)
	}
	return string(out), nil
}

// Output executes git and returns stdout alone, keeping stderr out of the
// result. Use it when the output is content (file bodies) rather than
// status text.
func (r *Runner) Output(ctx context.Context, dir string, args ...string) (string, error) {
	// #nosec G204 - arguments are constructed from trusted call sites
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", domain.NewGitError(err, dir, stderr.String(), args...)
	}
	return string(out), nil
}

// RunQuiet executes git and reports only success or failure.
func (r *Runner) RunQuiet(ctx context.Context, dir string, args ...string) error {
	// #nosec G204 - arguments are constructed from trusted call sites
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	return cmd.Run()
}

// conflictMarkers are the substrings git prints when a merge, rebase, or
// apply stops on conflicts. Substring matching on git output is fragile;
// it is kept behind this single classification seam so it can be replaced
// with structured status parsing without touching call sites.
var conflictMarkers = []string{
	"CONFLICT",
	"could not apply",
	"needs merge",
	"Automatic merge failed",
	"Merge conflict",
	"Resolve all conflicts",
}

// IsConflictOutput reports whether git output indicates a conflict.
func IsConflictOutput(output string) bool {
	for _, marker := range conflictMarkers {
		if strings.Contains(output, marker) {
			return true
		}
	}
	return false
}

// ClassifyError upgrades a GitError whose output indicates conflicts into
// a ConflictError carrying suggested follow-up actions. Other errors pass
// through unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	gitErr, ok := err.(*domain.GitError)
	if !ok {
		return err
	}
	if IsConflictOutput(gitErr.Output) {
		return domain.NewConflictError(gitErr)
	}
	return err
}

// Lines splits git output into trimmed non-empty lines.
func Lines(output string) []string {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
