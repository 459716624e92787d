package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		os.Chdir(wd)
	})
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(envGithubToken, "")
	t.Setenv(envGithubRepo, "")

	cfg, err := Load("config.json5")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.False(t, cfg.Github.Enabled())

	c, err := cfg.Catalog()
	require.NoError(t, err)
	require.Equal(t, 4, c.Len())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	err := os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{
		chartink: { timeout_seconds: 30 },
		queries: [
			{ label: "Breakouts", query: "select 1", icon: "🔥" },
		],
		schedule: { ignore_market_hours: true, holidays: ["2024-10-02"] },
		github: { repo: "from-file/repo" },
	}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, ".env"), []byte("GITHUB_TOKEN=from-dotenv\n"), 0600)
	require.NoError(t, err)

	t.Setenv(envGithubRepo, "from-env/repo")
	// t.Setenv restores the original value, godotenv.Load does not overwrite
	// variables that are already set so it is cleared here
	t.Setenv(envGithubToken, "")
	os.Unsetenv(envGithubToken)

	cfg, err := Load("config.json5")
	require.NoError(t, err)

	require.Equal(t, 30, cfg.Chartink.TimeoutSeconds)
	require.Equal(t, "https://chartink.com", cfg.Chartink.BaseUrl)
	require.Len(t, cfg.Queries, 1)
	require.Equal(t, "Breakouts", cfg.Queries[0].Label)
	require.True(t, cfg.Schedule.IgnoreMarketHours)
	require.Equal(t, "09:15", cfg.Schedule.Open)
	require.Equal(t, []string{"2024-10-02"}, cfg.Schedule.Holidays)
	require.Equal(t, "from-env/repo", cfg.Github.Repo)
	require.Equal(t, "from-dotenv", cfg.Github.Token)
	require.Equal(t, "main", cfg.Github.Branch)
	require.True(t, cfg.Github.Enabled())
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	err := os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{
		queries: [{ label: "a", query: "" }],
		retry: { max_retries: -1 },
	}`), 0600)
	require.NoError(t, err)

	_, err = Load("config.json5")
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	applyEnv(&cfg, func(key string) (string, bool) {
		switch key {
		case envGithubBranch:
			return "data", true
		case envSlackWebhook:
			return "https://hooks.slack.com/services/x", true
		case envGithubToken:
			return "", true
		}
		return "", false
	})
	require.Equal(t, "data", cfg.Github.Branch)
	require.Equal(t, "https://hooks.slack.com/services/x", cfg.Slack.WebhookUrl)
	require.Equal(t, "", cfg.Github.Token)
}
