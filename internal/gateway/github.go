package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/wrapup/internal/config"
)

// GitHub implements Gateway against the GitHub REST API.
type GitHub struct {
	client  *github.Client
	owner   string
	repo    string
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewGitHub creates a GitHub gateway with token authentication and a
// client-side rate limiter.
func NewGitHub(ctx context.Context, cfg config.GitHubConfig, logger *zap.Logger) (*GitHub, error) {
	if !cfg.Token.IsSet() {
		return nil, fmt.Errorf("GitHub token not set")
	}
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("GitHub owner and repo are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token.Value()})
	tc := oauth2.NewClient(ctx, ts)

	return &GitHub{
		client:  github.NewClient(tc),
		owner:   cfg.Owner,
		repo:    cfg.Repo,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  logger,
	}, nil
}

func (g *GitHub) GetPullRequest(ctx context.Context, number int) (*PullRequest, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	pr, resp, err := g.client.PullRequests.Get(ctx, g.owner, g.repo, number)
	if err != nil {
		return nil, mapError(fmt.Sprintf("PR #%d", number), resp, err)
	}

	return snapshotPR(pr), nil
}

func (g *GitHub) GetIssue(ctx context.Context, number int) (*Issue, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	issue, resp, err := g.client.Issues.Get(ctx, g.owner, g.repo, number)
	if err != nil {
		return nil, mapError(fmt.Sprintf("issue #%d", number), resp, err)
	}

	return &Issue{
		Number: issue.GetNumber(),
		State:  issue.GetState(),
		Body:   issue.GetBody(),
	}, nil
}

func (g *GitHub) CloseIssue(ctx context.Context, number int, comment string) error {
	if comment != "" {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
		_, resp, err := g.client.Issues.CreateComment(ctx, g.owner, g.repo, number, &github.IssueComment{
			Body: github.String(comment),
		})
		if err != nil {
			return mapError(fmt.Sprintf("issue #%d comment", number), resp, err)
		}
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	_, resp, err := g.client.Issues.Edit(ctx, g.owner, g.repo, number, &github.IssueRequest{
		State: github.String(StateClosed),
	})
	if err != nil {
		return mapError(fmt.Sprintf("issue #%d", number), resp, err)
	}

	g.logger.Info("closed issue", zap.Int("issue", number))
	return nil
}

// UpdateIssueBody reads the body, applies transform, re-reads to detect
// a concurrent edit, then writes. The re-read narrows the race window;
// a body that changed between the two reads maps to ErrConflict so the
// caller never clobbers someone else's edit.
func (g *GitHub) UpdateIssueBody(ctx context.Context, number int, transform func(body string) (string, error)) error {
	issue, err := g.GetIssue(ctx, number)
	if err != nil {
		return err
	}

	updated, err := transform(issue.Body)
	if err != nil {
		return err
	}
	if updated == issue.Body {
		return nil
	}

	check, err := g.GetIssue(ctx, number)
	if err != nil {
		return err
	}
	if check.Body != issue.Body {
		return fmt.Errorf("%w: issue #%d body changed during update", ErrConflict, number)
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	_, resp, err := g.client.Issues.Edit(ctx, g.owner, g.repo, number, &github.IssueRequest{
		Body: github.String(updated),
	})
	if err != nil {
		return mapError(fmt.Sprintf("issue #%d", number), resp, err)
	}

	return nil
}

func (g *GitHub) CreatePullRequest(ctx context.Context, pr NewPullRequest) (*PullRequest, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	created, resp, err := g.client.PullRequests.Create(ctx, g.owner, g.repo, &github.NewPullRequest{
		Title: github.String(pr.Title),
		Body:  github.String(pr.Body),
		Head:  github.String(pr.Head),
		Base:  github.String(pr.Base),
		Draft: github.Bool(pr.Draft),
	})
	if err != nil {
		return nil, mapError(fmt.Sprintf("PR %s -> %s", pr.Head, pr.Base), resp, err)
	}

	g.logger.Info("created pull request",
		zap.Int("pr", created.GetNumber()),
		zap.Bool("draft", created.GetDraft()),
	)
	return snapshotPR(created), nil
}

func (g *GitHub) UpdatePullRequest(ctx context.Context, number int, title, body string) (*PullRequest, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	updated, resp, err := g.client.PullRequests.Edit(ctx, g.owner, g.repo, number, &github.PullRequest{
		Title: github.String(title),
		Body:  github.String(body),
	})
	if err != nil {
		return nil, mapError(fmt.Sprintf("PR #%d", number), resp, err)
	}

	return snapshotPR(updated), nil
}

// MarkReadyForReview promotes a draft PR. The REST API has no endpoint
// for this; it needs the markPullRequestReadyForReview GraphQL
// mutation, so the call goes through the GraphQL endpoint using the
// same authenticated HTTP client.
func (g *GitHub) MarkReadyForReview(ctx context.Context, number int) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	pr, resp, err := g.client.PullRequests.Get(ctx, g.owner, g.repo, number)
	if err != nil {
		return mapError(fmt.Sprintf("PR #%d", number), resp, err)
	}
	if !pr.GetDraft() {
		return nil
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	payload := map[string]any{
		"query": `mutation($id: ID!) { markPullRequestReadyForReview(input: {pullRequestId: $id}) { pullRequest { isDraft } } }`,
		"variables": map[string]string{
			"id": pr.GetNodeID(),
		},
	}

	req, err := g.client.NewRequest(http.MethodPost, "graphql", payload)
	if err != nil {
		return fmt.Errorf("failed to create GraphQL request: %w", err)
	}

	var gqlResp struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	resp, err = g.client.Do(ctx, req, &gqlResp)
	if err != nil {
		return mapError(fmt.Sprintf("PR #%d ready-for-review", number), resp, err)
	}
	if len(gqlResp.Errors) > 0 {
		return fmt.Errorf("ready-for-review failed for PR #%d: %s", number, gqlResp.Errors[0].Message)
	}

	g.logger.Info("marked pull request ready for review", zap.Int("pr", number))
	return nil
}

// SyncProjectBoard fires a repository_dispatch event that the board
// automation subscribes to. Failures map to ErrExternalSync so the
// finalize engine can downgrade them to a warning.
func (g *GitHub) SyncProjectBoard(ctx context.Context, ledgerPath, milestone string) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]string{
		"ledger_path": ledgerPath,
		"milestone":   milestone,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExternalSync, err)
	}
	raw := json.RawMessage(payload)

	_, _, err = g.client.Repositories.Dispatch(ctx, g.owner, g.repo, github.DispatchRequestOptions{
		EventType:     "wrapup-board-sync",
		ClientPayload: &raw,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExternalSync, err)
	}

	return nil
}

func snapshotPR(pr *github.PullRequest) *PullRequest {
	return &PullRequest{
		Number: pr.GetNumber(),
		State:  pr.GetState(),
		Merged: pr.GetMerged(),
		Draft:  pr.GetDraft(),
		Title:  pr.GetTitle(),
		Body:   pr.GetBody(),
		URL:    pr.GetHTMLURL(),
	}
}

// mapError translates go-github errors to the gateway taxonomy,
// keeping the resource identifier in the message.
func mapError(resource string, resp *github.Response, err error) error {
	if resp != nil && resp.Response != nil {
		switch resp.StatusCode {
		case http.StatusNotFound, http.StatusGone:
			return fmt.Errorf("%w: %s", ErrNotFound, resource)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s: %v", ErrPermissionDenied, resource, err)
		case http.StatusConflict:
			return fmt.Errorf("%w: %s", ErrConflict, resource)
		}
	}
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, resource)
	}
	return fmt.Errorf("%s: %w", resource, err)
}
