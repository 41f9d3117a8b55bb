package gateway

import (
	"context"
	"errors"
)

// Common errors. Implementations map their transport errors onto these
// so the engines can branch with errors.Is.
var (
	// ErrNotFound indicates the referenced issue or PR does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrPermissionDenied indicates the token lacks rights for a
	// mutation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrConflict indicates an issue body changed between read and
	// write.
	ErrConflict = errors.New("conflicting update")

	// ErrExternalSync indicates the best-effort project board sync
	// failed. Callers may ignore it.
	ErrExternalSync = errors.New("external board sync failed")
)

// Issue and PR states as reported by the host.
const (
	StateOpen   = "open"
	StateClosed = "closed"
)

// PullRequest is a read-through snapshot of a pull request. Never
// cached beyond one engine invocation.
type PullRequest struct {
	Number int    `json:"number"`
	State  string `json:"state"`
	Merged bool   `json:"merged"`
	Draft  bool   `json:"draft"`
	Title  string `json:"title,omitempty"`
	Body   string `json:"body,omitempty"`
	URL    string `json:"url,omitempty"`
}

// Issue is a read-through snapshot of an issue.
type Issue struct {
	Number int    `json:"number"`
	State  string `json:"state"`
	Body   string `json:"body"`
}

// NewPullRequest describes a PR to create or update.
type NewPullRequest struct {
	Title string
	Body  string
	Head  string
	Base  string
	Draft bool
}

// Gateway is the capability set the engines need from the issue
// tracker and PR host. Each call is one side effect at most; there are
// no built-in retries.
type Gateway interface {
	// GetPullRequest fetches a PR snapshot. Fails ErrNotFound.
	GetPullRequest(ctx context.Context, number int) (*PullRequest, error)

	// GetIssue fetches an issue snapshot. Fails ErrNotFound.
	GetIssue(ctx context.Context, number int) (*Issue, error)

	// CloseIssue closes an issue, posting comment first when non-empty.
	// Fails ErrNotFound or ErrPermissionDenied.
	CloseIssue(ctx context.Context, number int, comment string) error

	// UpdateIssueBody applies transform to the issue's current body and
	// writes the result back. Fails ErrNotFound, or ErrConflict when
	// the body changed underneath the update.
	UpdateIssueBody(ctx context.Context, number int, transform func(body string) (string, error)) error

	// CreatePullRequest opens a PR for head against base.
	CreatePullRequest(ctx context.Context, pr NewPullRequest) (*PullRequest, error)

	// UpdatePullRequest updates an existing PR's title and body.
	UpdatePullRequest(ctx context.Context, number int, title, body string) (*PullRequest, error)

	// MarkReadyForReview promotes a draft PR to ready.
	MarkReadyForReview(ctx context.Context, number int) error

	// SyncProjectBoard pushes ledger state to the external project
	// board. Best effort; fails ErrExternalSync.
	SyncProjectBoard(ctx context.Context, ledgerPath, milestone string) error
}
