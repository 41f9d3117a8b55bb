package gateway

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/wrapup/internal/config"
)

func TestNewGitHub_RequiresToken(t *testing.T) {
	_, err := NewGitHub(context.Background(), config.GitHubConfig{
		Owner: "fyrsmithlabs",
		Repo:  "wrapup",
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token not set")
}

func TestNewGitHub_RequiresOwnerRepo(t *testing.T) {
	_, err := NewGitHub(context.Background(), config.GitHubConfig{
		Token: config.Secret("ghp_x"),
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner and repo are required")
}

// apiError builds an ErrorResponse whose Error method is safe to
// format (it renders via the embedded request).
func apiError(status int, message string) *github.ErrorResponse {
	req, _ := http.NewRequest(http.MethodGet, "https://api.github.com/x", nil)
	return &github.ErrorResponse{
		Response: &http.Response{StatusCode: status, Request: req},
		Message:  message,
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, ErrNotFound},
		{"gone", http.StatusGone, ErrNotFound},
		{"unauthorized", http.StatusUnauthorized, ErrPermissionDenied},
		{"forbidden", http.StatusForbidden, ErrPermissionDenied},
		{"conflict", http.StatusConflict, ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &github.Response{Response: &http.Response{StatusCode: tt.status}}
			err := mapError("issue #663", resp, apiError(tt.status, "boom"))
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "issue #663")
		})
	}
}

func TestMapError_Passthrough(t *testing.T) {
	// Statuses outside the taxonomy keep the original error chained.
	resp := &github.Response{Response: &http.Response{StatusCode: http.StatusBadGateway}}
	apiErr := apiError(http.StatusBadGateway, "bad gateway")

	err := mapError("PR #664", resp, apiErr)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrPermissionDenied)
	assert.ErrorAs(t, err, &apiErr)
	assert.Contains(t, err.Error(), "PR #664")
}

func TestMapError_NilResponse(t *testing.T) {
	err := mapError("issue #1", nil, apiError(http.StatusNotFound, "missing"))
	assert.ErrorIs(t, err, ErrNotFound)
}
