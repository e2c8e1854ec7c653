package library

import (
	"fmt"
	"os"
	"path/filepath"
)

// lockName is the advisory lock file under the library root. Every process
// that commits or recovers holds it, so intents are settled by one owner.
const lockName = ".lock"

// lockRoot takes the library lock, blocking until other holders release it.
func (s *Store) lockRoot() (func(), error) {
	f, err := os.OpenFile(filepath.Join(s.root, lockName), os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: open lock: %w", ErrIO, err)
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: lock library: %w", ErrIO, err)
	}
	return func() {
		if err := unlockFile(f); err != nil {
			s.log.Warn("failed to release library lock", "error", err)
		}
		_ = f.Close()
	}, nil
}
