package authstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_MissingFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	store := New(filepath.Join(dir, "auth-profiles.json"))

	f, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, f.Profiles)
}

func TestAutosyncEnvCredentials_AddsThenIdempotent(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test-123")

	dir := t.TempDir()
	store := New(filepath.Join(dir, "auth-profiles.json"))

	added, err := AutosyncEnvCredentials(store)
	require.NoError(t, err)
	assert.Contains(t, added, "openai:env")

	f, err := store.Load()
	require.NoError(t, err)
	require.Contains(t, f.Profiles, "openai:env")
	assert.Equal(t, CredentialAPIKey, f.Profiles["openai:env"].Type)
	assert.Equal(t, "sk-test-123", f.Profiles["openai:env"].Key)

	added2, err := AutosyncEnvCredentials(store)
	require.NoError(t, err)
	assert.Empty(t, added2)
}

func TestAutosyncEnvCredentials_NeverOverwritesExisting(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-new-value")

	dir := t.TempDir()
	store := New(filepath.Join(dir, "auth-profiles.json"))

	_, err := store.Update(func(profiles map[string]Credential) map[string]Credential {
		profiles["openai:manual"] = Credential{Type: CredentialAPIKey, Provider: "openai", Key: "sk-existing"}
		return profiles
	})
	require.NoError(t, err)

	added, err := AutosyncEnvCredentials(store)
	require.NoError(t, err)
	assert.Empty(t, added, "provider already has a profile, autosync must not add one")
}

func TestAutosyncEnvCredentials_PrefersOAuthOverAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_OAUTH_TOKEN", "oauth-token")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-key")

	dir := t.TempDir()
	store := New(filepath.Join(dir, "auth-profiles.json"))

	_, err := AutosyncEnvCredentials(store)
	require.NoError(t, err)

	f, err := store.Load()
	require.NoError(t, err)
	cred := f.Profiles["anthropic:env"]
	assert.Equal(t, CredentialToken, cred.Type)
	assert.Equal(t, "oauth-token", cred.Token)
}
