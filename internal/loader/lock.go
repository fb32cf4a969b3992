package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// IndexLock serializes indexing runs on one index with flock(2).
// The kernel drops the lock when the holder exits, so a crashed run never
// leaves the index locked.
type IndexLock struct {
	path string
	file *os.File
}

// NewIndexLock returns the lock of an index inside the state directory.
func NewIndexLock(stateDir, index string) *IndexLock {
	return &IndexLock{path: filepath.Join(stateDir, index+".lock")}
}

// Acquire takes the lock without blocking. It returns ErrLocked when
// another run holds it.
func (l *IndexLock) Acquire() error {
	if l.file != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = file.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return fmt.Errorf("%w: %s", ErrLocked, l.path)
		}
		return fmt.Errorf("flock %s: %w", l.path, err)
	}

	l.file = file
	return nil
}

// Release drops the lock. Releasing a lock that is not held does nothing.
func (l *IndexLock) Release() error {
	if l.file == nil {
		return nil
	}
	file := l.file
	l.file = nil

	unlockErr := syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
	if err := file.Close(); err != nil && unlockErr == nil {
		unlockErr = err
	}
	if unlockErr != nil {
		return fmt.Errorf("failed to release %s: %w", l.path, unlockErr)
	}
	return nil
}

func (l *IndexLock) Path() string {
	return l.path
}
