package publish

import (
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// currentBranch returns the checked-out branch of the repository at
// repoPath, or an error for a detached HEAD.
func currentBranch(repoPath string) (string, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return "", fmt.Errorf("failed to open repository %s: %w", repoPath, err)
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	if !head.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is detached; check out the session branch")
	}

	return head.Name().Short(), nil
}

// hasCommitsAhead reports whether branch has commits that base does
// not. False means there is nothing to open a PR for.
func hasCommitsAhead(repoPath, branch, base string) (bool, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return false, fmt.Errorf("failed to open repository %s: %w", repoPath, err)
	}

	branchRef, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		return false, fmt.Errorf("failed to resolve branch %s: %w", branch, err)
	}

	baseRef, err := repo.Reference(plumbing.NewBranchReferenceName(base), true)
	if err != nil {
		// Fall back to the remote-tracking ref when the base branch
		// has no local copy.
		baseRef, err = repo.Reference(plumbing.NewRemoteReferenceName("origin", base), true)
		if err != nil {
			return false, fmt.Errorf("failed to resolve base branch %s: %w", base, err)
		}
	}

	if branchRef.Hash() == baseRef.Hash() {
		return false, nil
	}

	branchCommit, err := repo.CommitObject(branchRef.Hash())
	if err != nil {
		return false, fmt.Errorf("failed to read branch commit: %w", err)
	}
	baseCommit, err := repo.CommitObject(baseRef.Hash())
	if err != nil {
		return false, fmt.Errorf("failed to read base commit: %w", err)
	}

	// A branch head that is an ancestor of base is fully merged, so
	// it has nothing ahead.
	merged, err := branchCommit.IsAncestor(baseCommit)
	if err != nil {
		return false, fmt.Errorf("failed to compare commits: %w", err)
	}

	return !merged, nil
}
