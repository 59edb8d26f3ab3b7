// Package sessionstore persists a lock-serialized JSON file mapping
// sessionKey to per-session metadata, including the rate-limit timestamps
// consumed by the auto-compact guard.
package sessionstore

import (
	"encoding/json"
	"fmt"

	"github.com/fenwick-run/agentctl/internal/lock"
)

// Entry is the persisted per-session record. Pointers distinguish "unset"
// from the zero value for the optional counters.
type Entry struct {
	SessionID                       string `json:"sessionId"`
	UpdatedAt                       int64  `json:"updatedAt"`
	TotalTokens                     *int64 `json:"totalTokens,omitempty"`
	ContextTokens                   *int64 `json:"contextTokens,omitempty"`
	SessionAutoCompactLastAt        *int64 `json:"sessionAutoCompactLastAt,omitempty"`
	SessionAutoCompactLastAtTokens  *int64 `json:"sessionAutoCompactLastAtTokens,omitempty"`
	SessionTokenWarningLastAt       *int64 `json:"sessionTokenWarningLastAt,omitempty"`
	SessionTokenWarningLastAtTokens *int64 `json:"sessionTokenWarningLastAtTokens,omitempty"`
}

// Store is a file-backed mapping from sessionKey to Entry.
type Store struct {
	path string
}

// New returns a Store backed by the JSON file at path.
func New(path string) *Store {
	return &Store{path: path}
}

// Updater mutates (or creates) the entry for a session key under the
// store's lock. The returned Entry is what gets persisted.
type Updater func(current Entry, exists bool) Entry

// Load reads the whole store without acquiring the lock, for read-only
// callers that accept an eventually-consistent view. A missing file reads
// as an empty map.
func (s *Store) Load() (map[string]Entry, error) {
	return s.read()
}

// Update acquires the advisory lock on the store path, reads the current
// JSON, applies fn to the entry for key, and writes the result back
// atomically. updatedAt on the returned entry is forced to be
// monotonically non-decreasing versus the prior value.
func (s *Store) Update(key string, fn Updater) (Entry, error) {
	var result Entry

	err := lock.WithLock(s.path, func() error {
		data, err := s.read()
		if err != nil {
			return err
		}

		current, exists := data[key]
		next := fn(current, exists)

		if exists && next.UpdatedAt < current.UpdatedAt {
			next.UpdatedAt = current.UpdatedAt
		}
		if exists {
			clampNonDecreasing(&next.SessionAutoCompactLastAt, current.SessionAutoCompactLastAt)
			clampNonDecreasing(&next.SessionTokenWarningLastAt, current.SessionTokenWarningLastAt)
		}

		data[key] = next
		result = next

		return s.write(data)
	})

	return result, err
}

func clampNonDecreasing(next **int64, prev *int64) {
	if prev == nil {
		return
	}
	if *next == nil || **next < *prev {
		v := *prev
		*next = &v
	}
}

func (s *Store) read() (map[string]Entry, error) {
	raw, err := lock.ReadOrEmpty(s.path)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return map[string]Entry{}, nil
	}

	var data map[string]Entry
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("sessionstore: corrupt store at %s: %w", s.path, err)
	}
	return data, nil
}

func (s *Store) write(data map[string]Entry) error {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("sessionstore: marshal: %w", err)
	}
	return lock.WriteAtomic(s.path, encoded, 0o644)
}
