// Package lock keeps two instances of the same indexer from running at once.
//
// The lock is an advisory flock on a file named after the program and a
// flavor id. It is tied to the open file descriptor, so a crashed process
// leaves the file behind but not the lock.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"sdc-indexer/internal/logging"
)

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("lock held by another instance")

// Lock is a held process lock.
type Lock struct {
	fl *flock.Flock
}

// Path returns the lock file for program and flavor under dir.
func Path(dir, program, flavor string) string {
	name := sanitize(filepath.Base(program))
	if flavor != "" {
		name += "-" + sanitize(flavor)
	}
	return filepath.Join(dir, name+".lock")
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}

// Acquire takes the lock for program and flavor without waiting.
func Acquire(dir, program, flavor string) (*Lock, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory %s: %w", dir, err)
	}

	path := Path(dir, program, flavor)
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}
	logging.Debug("Acquired lock %s", path)
	return &Lock{fl: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.fl.Path()
}

// Release unlocks. The file is left in place.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock %s: %w", l.fl.Path(), err)
	}
	logging.Debug("Released lock %s", l.fl.Path())
	return nil
}
