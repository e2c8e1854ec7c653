//go:build !unix

package library

import "os"

// Without flock only the in-process mutex serializes commits.
func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) error { return nil }
