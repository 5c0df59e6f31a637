package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"GroceryScanner/internal/ports"
)

// ErrLocked is returned when another writer holds a fresh lock.
var ErrLocked = errors.New("another writer is active")

// FileLock is a cross-process lock file created with O_EXCL.
// Locks older than ttl are treated as abandoned and reclaimed.
type FileLock struct {
	path string
	ttl  time.Duration
	now  func() time.Time
}

var _ ports.Locker = (*FileLock)(nil)

// NewFileLock builds a lock at path; ttl defaults to one hour.
func NewFileLock(path string, ttl time.Duration) *FileLock {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &FileLock{path: path, ttl: ttl, now: time.Now}
}

// Acquire creates the lock file or fails with ErrLocked.
func (l *FileLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("lock mkdir: %w", err)
	}

	for attempt := 0; attempt < 3; attempt++ {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, _ = fmt.Fprintf(f, `{"pid":%d,"time":%d}`+"\n", os.Getpid(), l.now().Unix())
			return f.Close()
		}
		if !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("lock create: %w", err)
		}

		fi, err := os.Stat(l.path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("lock stat: %w", err)
		}
		if l.now().Sub(fi.ModTime()) < l.ttl {
			return fmt.Errorf("%s: %w", l.path, ErrLocked)
		}
		_ = os.Remove(l.path)
	}
	return fmt.Errorf("%s: %w", l.path, ErrLocked)
}

// Release removes the lock file.
func (l *FileLock) Release() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("lock release: %w", err)
	}
	return nil
}
