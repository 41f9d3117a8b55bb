package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s := New(TypeGitHubIssue)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, TypeGitHubIssue, s.Type)
	assert.False(t, s.CreatedAt.IsZero())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		session Session
		wantErr error
	}{
		{
			name:    "valid github_issue",
			session: Session{Type: TypeGitHubIssue, IssueNumber: 663},
		},
		{
			name: "valid speckit",
			session: Session{
				Type:        TypeSpeckit,
				IssueNumber: 610,
				ParentIssue: 654,
				FeatureID:   "001-retry",
			},
		},
		{
			name:    "github_issue without issue",
			session: Session{Type: TypeGitHubIssue},
			wantErr: ErrMissingIssue,
		},
		{
			name:    "github_issue with parent",
			session: Session{Type: TypeGitHubIssue, IssueNumber: 663, ParentIssue: 654},
			wantErr: ErrUnexpectedParent,
		},
		{
			name:    "speckit without parent",
			session: Session{Type: TypeSpeckit, IssueNumber: 610, FeatureID: "001-retry"},
			wantErr: ErrMissingParent,
		},
		{
			name:    "speckit without feature id",
			session: Session{Type: TypeSpeckit, IssueNumber: 610, ParentIssue: 654},
			wantErr: ErrMissingFeature,
		},
		{
			name:    "speckit without phase issue",
			session: Session{Type: TypeSpeckit, ParentIssue: 654, FeatureID: "001-retry"},
			wantErr: ErrMissingIssue,
		},
		{
			name:    "unknown type",
			session: Session{Type: "jira", IssueNumber: 1},
			wantErr: ErrInvalidType,
		},
		{
			name:    "empty type",
			session: Session{IssueNumber: 1},
			wantErr: ErrInvalidType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.session.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidate_BadID(t *testing.T) {
	s := Session{ID: "not-a-uuid", Type: TypeGitHubIssue, IssueNumber: 1}
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session ID")
}

func TestLedgerPath(t *testing.T) {
	speckit := Session{Type: TypeSpeckit, FeatureID: "001-retry"}
	assert.Equal(t, filepath.Join("specs", "001-retry", "tasks.md"), speckit.LedgerPath("specs"))

	issue := Session{Type: TypeGitHubIssue, TasksFile: "TASKS.md"}
	assert.Equal(t, "TASKS.md", issue.LedgerPath("specs"))
}

func TestStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".wrapup", "session.json")
	store, err := NewStore(path)
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())

	s := New(TypeSpeckit)
	s.IssueNumber = 610
	s.ParentIssue = 654
	s.FeatureID = "001-retry"
	s.PRNumber = 661
	s.Branch = "001-retry-phase-4"
	s.TasksTouched = []string{"T002", "T003"}

	require.NoError(t, store.Save(s))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, s.ID, loaded.ID)
	assert.Equal(t, TypeSpeckit, loaded.Type)
	assert.Equal(t, 610, loaded.IssueNumber)
	assert.Equal(t, 654, loaded.ParentIssue)
	assert.Equal(t, []string{"T002", "T003"}, loaded.TasksTouched)
	assert.Nil(t, loaded.FinalizedAt)
}

func TestStore_LoadMissing(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	store, err := NewStore(path)
	require.NoError(t, err)

	_, err = store.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse session file")
}

func TestStore_SaveRejectsInvalid(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	err = store.Save(&Session{Type: TypeGitHubIssue})
	assert.ErrorIs(t, err, ErrMissingIssue)
}

func TestStore_SavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewStore(path)
	require.NoError(t, err)

	s := New(TypeGitHubIssue)
	s.IssueNumber = 663
	require.NoError(t, store.Save(s))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestStore_SaveOverwrites(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	s := New(TypeGitHubIssue)
	s.IssueNumber = 663
	require.NoError(t, store.Save(s))

	now := time.Now()
	s.FinalizedAt = &now
	s.LastResult = "success"
	require.NoError(t, store.Save(s))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded.FinalizedAt)
	assert.Equal(t, "success", loaded.LastResult)
}
