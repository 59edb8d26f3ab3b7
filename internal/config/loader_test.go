package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_MissingFileReturnsDefaultsWithDerivedPaths(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "agentctl.json")

	loader := NewLoader(configPath)
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.DataDir)
	assert.NotEmpty(t, cfg.Stores.SessionStorePath)
	assert.NotEmpty(t, cfg.Stores.AuthStorePath)
	assert.NotEmpty(t, cfg.Stores.TelemetryDBPath)
}

func TestLoader_SaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "agentctl.json")
	loader := NewLoader(configPath)

	cfg := DefaultConfig()
	cfg.Context.WindowTokens = 128000
	cfg.DataDir = dir

	require.NoError(t, loader.Save(cfg))

	reloaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 128000, reloaded.Context.WindowTokens)
}

func TestLoader_EnvironmentOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "agentctl.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"logging":{"level":"info"}}`), 0o600))

	t.Setenv("AGENTCTL_LOGGING_LEVEL", "debug")

	cfg, err := NewLoader(configPath).Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoader_WatchForChangesReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "agentctl.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"context":{"window_tokens":100000}}`), 0o600))

	loader := NewLoader(configPath)
	_, err := loader.Load()
	require.NoError(t, err)

	reloaded := make(chan *Config, 1)
	stop, err := loader.WatchForChanges(func(cfg *Config) {
		reloaded <- cfg
	})
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(configPath, []byte(`{"context":{"window_tokens":150000}}`), 0o600))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 150000, cfg.Context.WindowTokens)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}
