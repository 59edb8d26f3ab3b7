// Package authstore persists a lock-serialized JSON credential store and
// implements fail-closed import of credentials from environment
// variables.
package authstore

import (
	"encoding/json"
	"fmt"

	"github.com/fenwick-run/agentctl/internal/lock"
)

const storeVersion = 1

// CredentialType discriminates the two credential shapes.
type CredentialType string

const (
	CredentialAPIKey CredentialType = "api_key"
	CredentialToken  CredentialType = "token"
)

// Credential is one of {type=api_key, provider, key} or
// {type=token, provider, token}.
type Credential struct {
	Type     CredentialType `json:"type"`
	Provider string         `json:"provider"`
	Key      string         `json:"key,omitempty"`
	Token    string         `json:"token,omitempty"`
}

// File is the on-disk shape: {version, profiles: {profileId: credential}}.
type File struct {
	Version  int                   `json:"version"`
	Profiles map[string]Credential `json:"profiles"`
}

// Store is a file-backed credential store with the same
// lock-then-read-update-write discipline as sessionstore.
type Store struct {
	path string
}

// New returns a Store backed by the JSON file at path. Callers are
// expected to resolve path (e.g. relative to a data directory) before
// calling New; an empty path will fail on first read or write.
func New(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns "<agentDir>/auth-profiles.json".
func DefaultPath(agentDir string) string {
	return agentDir + "/auth-profiles.json"
}

func (s *Store) read() (File, error) {
	raw, err := lock.ReadOrEmpty(s.path)
	if err != nil {
		return File{}, err
	}
	if len(raw) == 0 {
		return File{Version: storeVersion, Profiles: map[string]Credential{}}, nil
	}

	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return File{}, fmt.Errorf("authstore: corrupt store at %s: %w", s.path, err)
	}
	if f.Profiles == nil {
		f.Profiles = map[string]Credential{}
	}
	return f, nil
}

func (s *Store) write(f File) error {
	encoded, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("authstore: marshal: %w", err)
	}
	return lock.WriteAtomic(s.path, encoded, 0o600)
}

// Load reads the store without the lock, for read-only callers.
func (s *Store) Load() (File, error) {
	return s.read()
}

// ProfilesUpdater mutates the profiles map under the store's lock.
type ProfilesUpdater func(profiles map[string]Credential) map[string]Credential

// Update acquires the lock, applies fn to the current profile set, and
// writes the result back atomically.
func (s *Store) Update(fn ProfilesUpdater) (File, error) {
	var result File

	err := lock.WithLock(s.path, func() error {
		f, err := s.read()
		if err != nil {
			return err
		}
		f.Profiles = fn(f.Profiles)
		if f.Version == 0 {
			f.Version = storeVersion
		}
		result = f
		return s.write(f)
	})

	return result, err
}

// ProfilesForProvider returns the profile ids belonging to provider.
func ProfilesForProvider(profiles map[string]Credential, provider string) []string {
	var ids []string
	for id, cred := range profiles {
		if cred.Provider == provider {
			ids = append(ids, id)
		}
	}
	return ids
}

// EnvProfileID returns the reserved profile id for an environment-imported
// credential of provider.
func EnvProfileID(provider string) string {
	return provider + ":env"
}
