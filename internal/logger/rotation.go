package logger

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// RotatingWriter is an io.WriteCloser that rotates its backing file once a
// write would push it past a size threshold, optionally gzip-compressing
// the rotated file and pruning rotated files past a retention window.
type RotatingWriter struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
	maxAge   time.Duration
	compress bool
	file     *os.File
	written  int64
}

// NewRotatingWriter opens (creating if absent) the file named by
// policy.Path and kicks off a background sweep of rotated files older than
// policy.MaxAgeDays.
func NewRotatingWriter(policy RotationPolicy) (*RotatingWriter, error) {
	dir := filepath.Dir(policy.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("logger: create log directory: %w", err)
	}

	file, err := os.OpenFile(policy.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("logger: open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("logger: stat log file: %w", err)
	}

	rw := &RotatingWriter{
		path:     policy.Path,
		maxBytes: int64(policy.MaxSizeMB) * 1024 * 1024,
		maxAge:   time.Duration(policy.MaxAgeDays) * 24 * time.Hour,
		compress: policy.Compress,
		file:     file,
		written:  info.Size(),
	}

	go rw.pruneExpired()

	return rw, nil
}

// Write appends p to the current file, rotating first if the write would
// cross maxBytes. Safe for concurrent use by multiple zerolog writers.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.written+int64(len(p)) > w.maxBytes {
		if err := w.rotateLocked(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.written += int64(n)
	return n, err
}

// Close closes the current file.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}

// rotateLocked closes the current file, renames it with a timestamp suffix,
// schedules compression if enabled, and opens a fresh file at path. Callers
// must hold mu.
func (w *RotatingWriter) rotateLocked() error {
	if err := w.file.Close(); err != nil {
		return err
	}

	rotated := fmt.Sprintf("%s.%s", w.path, time.Now().Format("20060102-150405"))
	if err := os.Rename(w.path, rotated); err != nil {
		return err
	}

	if w.compress {
		go w.compressFile(rotated)
	}

	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	w.file = file
	w.written = 0
	return nil
}

// compressFile gzips filename in place and removes the uncompressed
// original.
func (w *RotatingWriter) compressFile(filename string) error {
	src, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(filename + ".gz")
	if err != nil {
		return err
	}
	defer dst.Close()

	gzw := gzip.NewWriter(dst)
	defer gzw.Close()

	if _, err := io.Copy(gzw, src); err != nil {
		return err
	}

	return os.Remove(filename)
}

// pruneExpired removes rotated files (and their .gz siblings) whose mtime is
// older than maxAge. It runs once, right after open, rather than on a
// recurring timer, since a low-traffic session may never rotate again to
// trigger a fresh sweep.
func (w *RotatingWriter) pruneExpired() {
	if w.maxAge <= 0 {
		return
	}

	dir := filepath.Dir(w.path)
	base := filepath.Base(w.path)

	matches, err := filepath.Glob(filepath.Join(dir, base+".*"))
	if err != nil {
		return
	}

	cutoff := time.Now().Add(-w.maxAge)
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(match)
			if !strings.HasSuffix(match, ".gz") {
				os.Remove(match + ".gz")
			}
		}
	}
}
