// Package publish implements PR creation and update for the active
// session, ahead of the merge and finalize steps.
package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/wrapup/internal/gateway"
	"github.com/fyrsmithlabs/wrapup/internal/session"
)

// ErrNoCommits indicates the session branch has no commits ahead of
// its base. Reported, never retried.
var ErrNoCommits = errors.New("no commits ahead of base")

// Actions tagged on publish results.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
)

// Request carries the pre-generated PR text. Title and description
// are opaque inputs produced upstream; the engine never rewrites them
// beyond appending the issue linkage.
type Request struct {
	Title       string
	Description string
	Draft       bool
}

// Result is the structured outcome of one publish invocation.
type Result struct {
	Status  string               `json:"status"`
	Action  string               `json:"action,omitempty"`
	PR      *gateway.PullRequest `json:"pr,omitempty"`
	Error   string               `json:"error,omitempty"`
	Message string               `json:"message,omitempty"`
}

// Engine creates or updates the session's pull request.
type Engine struct {
	gw       gateway.Gateway
	store    session.Store
	repoPath string
	base     string
	logger   *zap.Logger
}

// NewEngine creates a publish engine. repoPath is the working tree the
// session branch lives in; base is the branch PRs target.
func NewEngine(gw gateway.Gateway, store session.Store, repoPath, base string, logger *zap.Logger) (*Engine, error) {
	if gw == nil {
		return nil, errors.New("gateway is required")
	}
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if repoPath == "" {
		repoPath = "."
	}
	if base == "" {
		base = "main"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		gw:       gw,
		store:    store,
		repoPath: repoPath,
		base:     base,
		logger:   logger,
	}, nil
}

// Run publishes the session's branch as a PR. A session that already
// has a PR number gets an idempotent update, never a duplicate.
func (e *Engine) Run(ctx context.Context, s *session.Session, req Request) (*Result, error) {
	if s == nil {
		return nil, errors.New("session is required")
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session: %w", err)
	}
	if req.Title == "" {
		return nil, errors.New("PR title is required")
	}

	branch := s.Branch
	if branch == "" {
		detected, err := currentBranch(e.repoPath)
		if err != nil {
			return nil, err
		}
		branch = detected
	}

	body := withIssueLinks(req.Description, s)

	if s.PRNumber != 0 {
		pr, err := e.gw.UpdatePullRequest(ctx, s.PRNumber, req.Title, body)
		if err != nil {
			return &Result{Status: "error", Error: "update failed", Message: err.Error()}, nil
		}
		e.logger.Info("updated pull request", zap.Int("pr", pr.Number))
		return &Result{Status: "success", Action: ActionUpdated, PR: pr}, nil
	}

	ahead, err := hasCommitsAhead(e.repoPath, branch, e.base)
	if err != nil {
		return nil, err
	}
	if !ahead {
		return &Result{
			Status:  "error",
			Error:   ErrNoCommits.Error(),
			Message: fmt.Sprintf("branch %s has no commits ahead of %s; nothing to publish", branch, e.base),
		}, nil
	}

	pr, err := e.gw.CreatePullRequest(ctx, gateway.NewPullRequest{
		Title: req.Title,
		Body:  body,
		Head:  branch,
		Base:  e.base,
		Draft: req.Draft,
	})
	if err != nil {
		return &Result{Status: "error", Error: "create failed", Message: err.Error()}, nil
	}

	s.PRNumber = pr.Number
	if err := e.store.Save(s); err != nil {
		e.logger.Warn("failed to record PR number on session", zap.Error(err))
	}

	e.logger.Info("created pull request",
		zap.Int("pr", pr.Number),
		zap.String("branch", branch),
		zap.Bool("draft", pr.Draft),
	)

	return &Result{Status: "success", Action: ActionCreated, PR: pr}, nil
}

// withIssueLinks appends the closing-keyword linkage for the session's
// issues, skipping links the description already carries.
func withIssueLinks(description string, s *session.Session) string {
	var links []string

	closes := fmt.Sprintf("Closes #%d", s.IssueNumber)
	if !strings.Contains(description, closes) {
		links = append(links, closes)
	}
	if s.Type == session.TypeSpeckit {
		partOf := fmt.Sprintf("Part of #%d", s.ParentIssue)
		if !strings.Contains(description, partOf) {
			links = append(links, partOf)
		}
	}

	if len(links) == 0 {
		return description
	}
	if description == "" {
		return strings.Join(links, "\n")
	}
	return description + "\n\n" + strings.Join(links, "\n")
}
