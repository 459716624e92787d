package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string   `json:"name"`
	Port    int      `json:"port"`
	Tags    []string `json:"tags"`
	Enabled bool     `json:"enabled"`
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, filepath.Join("a", "config.local.json5"), LocalPath(filepath.Join("a", "config.json5")))
	require.Equal(t, filepath.Join(".", "config.local"), LocalPath("config"))
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")

	_, err := ReadConfig[testConfig](path)
	require.True(t, os.IsNotExist(err))

	err = os.WriteFile(path, []byte(`{
		// comments are allowed
		name: "base",
		port: 8000,
		tags: ["a"],
	}`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](path)
	require.NoError(t, err)
	require.Equal(t, testConfig{Name: "base", Port: 8000, Tags: []string{"a"}}, cfg)

	err = os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{port: 9000, enabled: true}`), 0600)
	require.NoError(t, err)

	cfg, err = ReadConfig[testConfig](path)
	require.NoError(t, err)
	require.Equal(t, testConfig{Name: "base", Port: 9000, Tags: []string{"a"}, Enabled: true}, cfg)
}

func TestReadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{name: `), 0600))

	_, err := ReadConfig[testConfig](path)
	require.Error(t, err)
	require.False(t, os.IsNotExist(err))
}

func TestWithDefaults(t *testing.T) {
	cfg, err := WithDefaults(
		testConfig{Name: "set"},
		testConfig{Name: "default", Port: 8000},
	)
	require.NoError(t, err)
	require.Equal(t, testConfig{Name: "set", Port: 8000}, cfg)
}
