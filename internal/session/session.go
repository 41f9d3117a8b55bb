package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Common errors.
var (
	ErrNoActiveSession  = errors.New("no active session")
	ErrInvalidType      = errors.New("invalid session type")
	ErrMissingIssue     = errors.New("session has no issue number")
	ErrMissingParent    = errors.New("speckit session has no parent issue")
	ErrMissingFeature   = errors.New("speckit session has no feature id")
	ErrUnexpectedParent = errors.New("github_issue session cannot have a parent issue")
)

// Type discriminates the session variants. The finalize engine
// dispatches on it exhaustively; adding a variant means extending that
// switch.
type Type string

const (
	// TypeGitHubIssue tracks work against a single GitHub issue.
	TypeGitHubIssue Type = "github_issue"

	// TypeSpeckit tracks one phase of a multi-phase feature whose
	// umbrella issue is the parent.
	TypeSpeckit Type = "speckit"
)

// Session is the persisted record describing one unit of tracked work
// and its issue/PR/feature linkage. It is created at session start and
// read-only to the engines except for the finalize bookkeeping fields.
type Session struct {
	// ID is the unique session identifier (UUID).
	ID string `json:"id"`

	// Type selects the session variant.
	Type Type `json:"type"`

	// IssueNumber is the tracked issue, or the phase issue for speckit.
	IssueNumber int `json:"issue_number,omitempty"`

	// ParentIssue is the umbrella feature issue. Speckit only.
	ParentIssue int `json:"parent_issue,omitempty"`

	// FeatureID identifies the specs/<feature_id>/ directory. Speckit only.
	FeatureID string `json:"feature_id,omitempty"`

	// PRNumber is the pull request for this session's branch, if any.
	PRNumber int `json:"pr_number,omitempty"`

	// Branch is the working branch the session was started on.
	Branch string `json:"branch,omitempty"`

	// TasksFile is the task-list document path for github_issue
	// sessions. Speckit sessions derive it from FeatureID instead.
	TasksFile string `json:"tasks_file,omitempty"`

	// TasksTouched lists the task identifiers worked on in this
	// session. Appended by the working phase; finalize marks exactly
	// these done and never infers ownership from diffs.
	TasksTouched []string `json:"tasks_touched,omitempty"`

	// CreatedAt is when the session was started.
	CreatedAt time.Time `json:"created_at"`

	// FinalizedAt is set by the finalize engine on success.
	FinalizedAt *time.Time `json:"finalized_at,omitempty"`

	// LastResult is the status of the most recent finalize run.
	LastResult string `json:"last_result,omitempty"`
}

// New creates a session record with a generated UUID.
func New(t Type) *Session {
	return &Session{
		ID:        uuid.New().String(),
		Type:      t,
		CreatedAt: time.Now(),
	}
}

// Validate checks the record against the per-type invariants.
func (s *Session) Validate() error {
	switch s.Type {
	case TypeGitHubIssue:
		if s.IssueNumber == 0 {
			return ErrMissingIssue
		}
		if s.ParentIssue != 0 {
			return ErrUnexpectedParent
		}
	case TypeSpeckit:
		if s.IssueNumber == 0 {
			return ErrMissingIssue
		}
		if s.ParentIssue == 0 {
			return ErrMissingParent
		}
		if s.FeatureID == "" {
			return ErrMissingFeature
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidType, s.Type)
	}
	if s.ID != "" {
		if _, err := uuid.Parse(s.ID); err != nil {
			return fmt.Errorf("invalid session ID: %w", err)
		}
	}
	return nil
}

// LedgerPath returns the task-list document path for this session.
// Speckit sessions use specs/<feature_id>/tasks.md under specsDir;
// github_issue sessions use the recorded TasksFile.
func (s *Session) LedgerPath(specsDir string) string {
	if s.Type == TypeSpeckit {
		return filepath.Join(specsDir, s.FeatureID, "tasks.md")
	}
	return s.TasksFile
}
