package finalize

import (
	"github.com/fyrsmithlabs/wrapup/internal/gateway"
	"github.com/fyrsmithlabs/wrapup/internal/session"
)

// Status of a finalize run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is the structured outcome of one finalize invocation. It is
// assembled once, immutable afterwards, and consumed by the reporter
// or emitted as JSON.
type Result struct {
	Status      Status       `json:"status"`
	SessionType session.Type `json:"session_type,omitempty"`

	// PRMerged reports the gate check outcome on success.
	PRMerged bool `json:"pr_merged,omitempty"`

	// Issue is the closure record for github_issue sessions.
	Issue *IssueResult `json:"issue,omitempty"`

	// PhaseIssue is the closure record for the speckit phase issue.
	PhaseIssue *IssueResult `json:"phase_issue,omitempty"`

	// ParentIssue describes the umbrella issue update. Speckit only.
	ParentIssue *ParentResult `json:"parent_issue,omitempty"`

	// PR describes the draft transition. Speckit success, or the
	// snapshot embedded in error results.
	PR *PRResult `json:"pr,omitempty"`

	// Tasks holds the ledger counts after marking.
	Tasks *TaskResult `json:"tasks,omitempty"`

	// SyncedToProjects reports the best-effort board sync. Speckit only.
	SyncedToProjects *bool `json:"synced_to_projects,omitempty"`

	// ReadyForWrap is true when the protocol completed without a fatal
	// error, draft or not.
	ReadyForWrap bool `json:"ready_for_wrap"`

	// Error and Message are set on error results.
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// IssueResult records an issue closure.
type IssueResult struct {
	Number int  `json:"number"`
	Closed bool `json:"closed"`

	// Comment is the closure comment posted by this run. Empty when
	// the issue was already closed (idempotent no-op).
	Comment string `json:"comment,omitempty"`
}

// ParentResult records the umbrella issue update for a speckit phase.
type ParentResult struct {
	Number int `json:"number"`

	// Updated is false when the body write conflicted with a
	// concurrent edit; re-running finalize retries it.
	Updated bool `json:"updated"`

	// Progress is the human-readable phase tally, e.g.
	// "4/6 phases complete".
	Progress string `json:"progress,omitempty"`

	// ChecklistUpdated is true when this run checked the phase's box.
	// False when it was already checked or the update conflicted.
	ChecklistUpdated bool `json:"checklist_updated"`
}

// PRResult describes the pull request after finalize. In error
// results only Number, State and Merged are populated.
type PRResult struct {
	Number             int    `json:"number"`
	State              string `json:"state,omitempty"`
	Merged             *bool  `json:"merged,omitempty"`
	DescriptionUpdated bool   `json:"description_updated,omitempty"`
	StillDraft         bool   `json:"still_draft,omitempty"`
	Reason             string `json:"reason,omitempty"`
}

// TaskResult holds ledger counts after this run's marking.
type TaskResult struct {
	File      string `json:"file"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
}

// errorResult builds an error-shaped result, embedding the PR snapshot
// when one is available so the operator can decide the next action
// without re-querying.
func errorResult(sessionType session.Type, errName, message string, pr *gateway.PullRequest) *Result {
	r := &Result{
		Status:      StatusError,
		SessionType: sessionType,
		Error:       errName,
		Message:     message,
	}
	if pr != nil {
		merged := pr.Merged
		r.PR = &PRResult{
			Number: pr.Number,
			State:  pr.State,
			Merged: &merged,
		}
	}
	return r
}
