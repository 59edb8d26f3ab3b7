// Package lock provides advisory file locking for cross-process-safe
// updates to the on-disk JSON stores (session store, auth profile store)
// and the telemetry database.
package lock

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// FileLock is an advisory, exclusive lock on a path. It is held for the
// duration of a read-modify-write cycle against some other file (the lock
// file itself carries no data).
type FileLock struct {
	path string
	file *os.File
}

// Acquire opens (creating if necessary) the lock file at path+".lock" and
// blocks until an exclusive advisory lock is held.
func Acquire(path string) (*FileLock, error) {
	lockPath := path + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("lock: open %s: %w", lockPath, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock: flock %s: %w", lockPath, err)
	}

	return &FileLock{path: lockPath, file: f}, nil
}

// Release unlocks and closes the lock file. Safe to call once.
func (l *FileLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("lock: unlock %s: %w", l.path, err)
	}
	return closeErr
}

// WithLock acquires the lock on path, runs fn, and releases it regardless
// of fn's outcome.
func WithLock(path string, fn func() error) error {
	l, err := Acquire(path)
	if err != nil {
		return err
	}
	defer l.Release()
	return fn()
}
