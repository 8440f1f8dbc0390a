package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

// lockName is the advisory lock file held for the duration of any mutation.
// At most one ingest or merge process mutates a given root at a time.
const lockName = ".lock"

// ErrLocked is returned when another process holds the root.
var ErrLocked = errors.New("artifact: index root is locked by another process")

// Lock is a held advisory lock on an artifact root.
type Lock struct {
	path string
}

// AcquireLock takes the advisory lock, failing fast when held.
func (s *Store) AcquireLock() (*Lock, error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir root: %w", err)
	}
	path := filepath.Join(s.root, lockName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("%w (%s)", ErrLocked, path)
	}
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	fmt.Fprintln(f, strconv.Itoa(os.Getpid()))
	f.Close()
	return &Lock{path: path}, nil
}

// Release removes the lock file.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
