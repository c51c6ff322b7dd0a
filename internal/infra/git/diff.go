package git

import (
	"context"
	"fmt"
	"strings"
)

// DiffReader reports what a prompt run changed in a working tree.
type DiffReader struct {
	runner *Runner
}

// NewDiffReader creates a DiffReader.
func NewDiffReader(runner *Runner) *DiffReader {
	return &DiffReader{runner: runner}
}

// UncommittedChanges returns the files touched and the full diff of the
// working tree relative to HEAD, including untracked files in the file
// list (they have no diff against HEAD yet).
func (d *DiffReader) UncommittedChanges(ctx context.Context, dir string) ([]string, string, error) {
	status, err := d.runner.Run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return nil, "", fmt.Errorf("read status: %w", err)
	}

	var files []string
	for _, line := range strings.Split(status, "\n") {
		if len(line) < 4 {
			continue
		}
		path := strings.TrimSpace(line[3:])
		// Renames are reported as "old -> new"; keep the new path.
		if idx := strings.Index(path, " -> "); idx >= 0 {
			path = path[idx+4:]
		}
		files = append(files, path)
	}
	if len(files) == 0 {
		return nil, "", nil
	}

	diff, err := d.runner.Output(ctx, dir, "diff", "HEAD")
	if err != nil {
		// An unborn HEAD has nothing to diff against; the file list
		// still stands.
		diff = ""
	}
	return files, diff, nil
}
