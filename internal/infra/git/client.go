package git

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/mikan-dev/splice/internal/domain"
)

// Inspector answers read-only repository queries through go-git, avoiding
// a subprocess per query. Mutating operations go through Runner instead.
type Inspector struct {
	repo *gogit.Repository
	root string
}

var _ domain.Git = (*Inspector)(nil)

// NewInspector opens the repository containing dir.
func NewInspector(dir string) (*Inspector, error) {
	root, err := FindRoot(dir)
	if err != nil {
		return nil, err
	}
	repo, err := gogit.PlainOpen(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", root, err)
	}
	return &Inspector{repo: repo, root: root}, nil
}

// Root returns the repository's top-level directory.
func (i *Inspector) Root() string {
	return i.root
}

// CurrentBranch returns the name of the checked-out branch.
func (i *Inspector) CurrentBranch() (string, error) {
	head, err := i.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is detached at %s", head.Hash().String()[:8])
	}
	return head.Name().Short(), nil
}

// BranchExists checks if a local branch exists.
func (i *Inspector) BranchExists(branch string) (bool, error) {
	_, err := i.repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up branch %s: %w", branch, err)
	}
	return true, nil
}

// ResolveCommit resolves a revision (branch, HEAD, hash) to a full hash.
func (i *Inspector) ResolveCommit(rev string) (string, error) {
	hash, err := i.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", rev, err)
	}
	return hash.String(), nil
}

// DefaultBranch returns the repository's default branch, preferring main
// over master when both exist.
func (i *Inspector) DefaultBranch() (string, error) {
	for _, name := range []string{"main", "master"} {
		exists, err := i.BranchExists(name)
		if err != nil {
			return "", err
		}
		if exists {
			return name, nil
		}
	}
	// Neither conventional branch exists; fall back to whatever HEAD is on.
	branch, err := i.CurrentBranch()
	if err != nil {
		return "", fmt.Errorf("no main or master branch found: %w", err)
	}
	return branch, nil
}

// HasCommits reports whether HEAD points at any commit. A freshly
// initialized repository has an unborn HEAD and no commits.
func (i *Inspector) HasCommits() (bool, error) {
	_, err := i.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read HEAD: %w", err)
	}
	return true, nil
}

// FindRoot returns the top-level directory of the repository containing
// dir. From inside a linked worktree this is the worktree's own root.
func FindRoot(dir string) (string, error) {
	out, err := exec.Command("git", "-C", dir, "rev-parse", "--show-toplevel").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrNotGitRepository, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

// FindCommonDir returns the main repository's .git directory. From inside
// a linked worktree this resolves to the primary checkout's .git, which is
// where per-repository state lives so it is shared across worktrees.
func FindCommonDir(dir string) (string, error) {
	out, err := exec.Command("git", "-C", dir, "rev-parse", "--path-format=absolute", "--git-common-dir").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrNotGitRepository, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}
