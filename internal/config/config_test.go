package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	return path
}

const validYAML = `github:
  token: ghp_testtoken
  owner: fyrsmithlabs
  repo: wrapup
`

func TestLoad(t *testing.T) {
	path := writeConfig(t, validYAML, 0600)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ghp_testtoken", cfg.GitHub.Token.Value())
	assert.Equal(t, "fyrsmithlabs", cfg.GitHub.Owner)
	assert.Equal(t, "wrapup", cfg.GitHub.Repo)

	// Defaults fill the rest.
	assert.Equal(t, "main", cfg.GitHub.BaseBranch)
	assert.Equal(t, 5.0, cfg.GitHub.RequestsPerSecond)
	assert.Equal(t, filepath.Join(".wrapup", "session.json"), cfg.Session.PointerPath)
	assert.Equal(t, "specs", cfg.Specs.Dir)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, validYAML, 0600)
	t.Setenv("WRAPUP_GITHUB_BASE_BRANCH", "develop")
	t.Setenv("WRAPUP_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "develop", cfg.GitHub.BaseBranch)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "fyrsmithlabs", cfg.GitHub.Owner, "file values survive unrelated overrides")
}

func TestLoad_EnvOnly(t *testing.T) {
	// A missing config file is fine when the environment carries
	// everything.
	t.Setenv("WRAPUP_GITHUB_TOKEN", "ghp_envtoken")
	t.Setenv("WRAPUP_GITHUB_OWNER", "fyrsmithlabs")
	t.Setenv("WRAPUP_GITHUB_REPO", "wrapup")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "ghp_envtoken", cfg.GitHub.Token.Value())
	assert.Equal(t, "wrapup", cfg.GitHub.Repo)
}

func TestLoad_InsecurePermissions(t *testing.T) {
	path := writeConfig(t, validYAML, 0644)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure config file permissions")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "github: [unclosed", 0600)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config file")
}

func TestLoad_MissingOwner(t *testing.T) {
	path := writeConfig(t, "github:\n  repo: wrapup\n", 0600)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "github.owner is required")
}

func TestValidate(t *testing.T) {
	base := Config{
		GitHub:  GitHubConfig{Owner: "o", Repo: "r", RequestsPerSecond: 5},
		Logging: LoggingConfig{Format: "console"},
	}

	t.Run("valid", func(t *testing.T) {
		cfg := base
		assert.NoError(t, cfg.Validate())
	})

	t.Run("zero rate limit", func(t *testing.T) {
		cfg := base
		cfg.GitHub.RequestsPerSecond = 0
		assert.ErrorContains(t, cfg.Validate(), "requests_per_second")
	})

	t.Run("bad log format", func(t *testing.T) {
		cfg := base
		cfg.Logging.Format = "xml"
		assert.ErrorContains(t, cfg.Validate(), "logging.format")
	})
}

func TestSecret_Redaction(t *testing.T) {
	s := Secret("ghp_supersecret")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%s", s))
	assert.Equal(t, "Secret([REDACTED])", fmt.Sprintf("%#v", s))
	assert.Equal(t, "ghp_supersecret", s.Value())
	assert.True(t, s.IsSet())

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `"[REDACTED]"`, string(data))
}

func TestSecret_Empty(t *testing.T) {
	var s Secret
	assert.Equal(t, "", s.String())
	assert.False(t, s.IsSet())

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `""`, string(data))
}

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, "1m30s", d.Duration().String())

	assert.Error(t, d.UnmarshalText([]byte("-5s")))
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}
