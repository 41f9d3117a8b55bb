// Package report renders engine results for a human operator. Pure
// formatting; dispatches only on session type and status.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/wrapup/internal/finalize"
	"github.com/fyrsmithlabs/wrapup/internal/gateway"
	"github.com/fyrsmithlabs/wrapup/internal/publish"
	"github.com/fyrsmithlabs/wrapup/internal/session"
)

var (
	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("46")).
		Bold(true)

	errStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
)

// RenderFinalize formats a finalize result.
func RenderFinalize(r *finalize.Result) string {
	var b strings.Builder

	if r.Status != finalize.StatusSuccess {
		fmt.Fprintf(&b, "%s %s\n", errStyle.Render("finalize failed:"), r.Error)
		if r.Message != "" {
			fmt.Fprintf(&b, "  %s\n", r.Message)
		}
		if r.PR != nil {
			merged := "unknown"
			if r.PR.Merged != nil {
				merged = fmt.Sprintf("%t", *r.PR.Merged)
			}
			fmt.Fprintf(&b, "  %s #%d state=%s merged=%s\n",
				labelStyle.Render("pr:"), r.PR.Number, r.PR.State, merged)
		}
		return b.String()
	}

	fmt.Fprintf(&b, "%s\n", okStyle.Render("finalize complete"))

	switch r.SessionType {
	case session.TypeGitHubIssue:
		if r.Issue != nil {
			fmt.Fprintf(&b, "  %s #%d closed\n", labelStyle.Render("issue:"), r.Issue.Number)
			if r.Issue.Comment == "" {
				fmt.Fprintf(&b, "  %s\n", dimStyle.Render("(already closed, no new comment)"))
			}
		}
	case session.TypeSpeckit:
		if r.PhaseIssue != nil {
			fmt.Fprintf(&b, "  %s #%d closed\n", labelStyle.Render("phase issue:"), r.PhaseIssue.Number)
		}
		if r.ParentIssue != nil {
			fmt.Fprintf(&b, "  %s #%d %s\n",
				labelStyle.Render("parent issue:"), r.ParentIssue.Number, r.ParentIssue.Progress)
			if !r.ParentIssue.Updated {
				fmt.Fprintf(&b, "  %s\n", warnStyle.Render("parent checklist update conflicted; re-run finalize"))
			}
		}
		if r.PR != nil {
			if r.PR.StillDraft {
				fmt.Fprintf(&b, "  %s #%d still draft (%s)\n", labelStyle.Render("pr:"), r.PR.Number, r.PR.Reason)
			} else {
				fmt.Fprintf(&b, "  %s #%d ready for review\n", labelStyle.Render("pr:"), r.PR.Number)
			}
		}
		if r.SyncedToProjects != nil && !*r.SyncedToProjects {
			fmt.Fprintf(&b, "  %s\n", warnStyle.Render("project board sync failed (non-fatal)"))
		}
	}

	if r.Tasks != nil {
		fmt.Fprintf(&b, "  %s %d/%d done (%s)\n",
			labelStyle.Render("tasks:"), r.Tasks.Completed, r.Tasks.Total, r.Tasks.File)
	}
	if r.ReadyForWrap {
		fmt.Fprintf(&b, "  %s\n", okStyle.Render("ready for wrap"))
	}

	return b.String()
}

// RenderPublish formats a publish result.
func RenderPublish(r *publish.Result) string {
	var b strings.Builder

	if r.Status != "success" {
		fmt.Fprintf(&b, "%s %s\n", errStyle.Render("publish failed:"), r.Error)
		if r.Message != "" {
			fmt.Fprintf(&b, "  %s\n", r.Message)
		}
		return b.String()
	}

	fmt.Fprintf(&b, "%s PR #%d\n", okStyle.Render("publish "+r.Action), r.PR.Number)
	if r.PR.Draft {
		fmt.Fprintf(&b, "  %s\n", dimStyle.Render("(draft)"))
	}
	if r.PR.URL != "" {
		fmt.Fprintf(&b, "  %s\n", r.PR.URL)
	}

	return b.String()
}

// RenderSession formats the active session record for `wrapup status`.
// pr may be nil when the session has no PR or the lookup failed.
func RenderSession(s *session.Session, pr *gateway.PullRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("session:"), s.ID)
	fmt.Fprintf(&b, "  %s %s\n", labelStyle.Render("type:"), s.Type)
	fmt.Fprintf(&b, "  %s #%d\n", labelStyle.Render("issue:"), s.IssueNumber)
	if s.Type == session.TypeSpeckit {
		fmt.Fprintf(&b, "  %s #%d\n", labelStyle.Render("parent:"), s.ParentIssue)
		fmt.Fprintf(&b, "  %s %s\n", labelStyle.Render("feature:"), s.FeatureID)
	}
	if s.PRNumber != 0 {
		fmt.Fprintf(&b, "  %s #%d\n", labelStyle.Render("pr:"), s.PRNumber)
	}
	if len(s.TasksTouched) > 0 {
		fmt.Fprintf(&b, "  %s %s\n", labelStyle.Render("tasks touched:"), strings.Join(s.TasksTouched, ", "))
	}
	if s.FinalizedAt != nil {
		fmt.Fprintf(&b, "  %s %s (%s)\n",
			labelStyle.Render("finalized:"), s.FinalizedAt.Format("2006-01-02 15:04:05"), s.LastResult)
	}
	if pr != nil {
		fmt.Fprintf(&b, "  %s %s merged=%t draft=%t\n",
			labelStyle.Render("pr state:"), pr.State, pr.Merged, pr.Draft)
	}

	return b.String()
}
