// Package runlock enforces single-instance execution. Cron fires on a fixed
// schedule regardless of how long the previous run took, so overlapping runs
// are a real hazard; the second instance must bail out instead of racing the
// first over the same local and remote artifacts.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrHeld reports that another run already holds the lock.
var ErrHeld = errors.New("another timelapse run is already in progress")

// Lock is a file-based mutual exclusion guard for a whole run.
type Lock struct {
	path string
	lock *flock.Flock
}

// New prepares a lock file under dir. The directory is created if needed.
func New(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	path := filepath.Join(dir, "timelapse.lock")
	return &Lock{path: path, lock: flock.New(path)}, nil
}

// Acquire takes the lock without blocking. A held lock returns ErrHeld so the
// caller can exit cleanly and let the in-flight run finish.
func (l *Lock) Acquire() error {
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return ErrHeld
	}
	return nil
}

// Release drops the lock. Safe to call when the lock was never acquired.
func (l *Lock) Release() error {
	return l.lock.Unlock()
}

// Path returns the lock file location for diagnostics.
func (l *Lock) Path() string {
	return l.path
}
