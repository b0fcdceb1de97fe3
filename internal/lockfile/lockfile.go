// Package lockfile provides advisory file locking for the local state
// files shared between concurrent client invocations. Acquisition is
// non-blocking with bounded retry so a reader that races a writer backs
// off briefly instead of failing outright.
package lockfile

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

const (
	retryInterval = 25 * time.Millisecond
	maxWait       = 2 * time.Second
)

// Lock is a held advisory lock. Release it exactly once.
type Lock struct {
	f *os.File
}

// Acquire takes an exclusive advisory lock on path, creating the lock
// file if needed. It retries with a fixed backoff for up to two seconds
// before giving up.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	deadline := time.Now().Add(maxWait)
	for {
		err = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &Lock{f: f}, nil
		}
		if err != unix.EWOULDBLOCK && err != unix.EAGAIN {
			f.Close()
			return nil, fmt.Errorf("flock %s: %w", path, err)
		}
		if time.Now().After(deadline) {
			f.Close()
			return nil, fmt.Errorf("lock %s: held by another process", path)
		}
		time.Sleep(retryInterval)
	}
}

// Release drops the lock and closes the underlying file.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	closeErr := l.f.Close()
	l.f = nil
	if err != nil {
		return err
	}
	return closeErr
}
