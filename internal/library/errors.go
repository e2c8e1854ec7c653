package library

import "errors"

var (
	// ErrNotFound indicates the requested entry doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrIO indicates a rename or catalog write failed. The commit was not applied.
	ErrIO = errors.New("library io failure")

	// ErrSourceNotFound indicates the media file to commit does not exist.
	ErrSourceNotFound = errors.New("source media not found")

	// ErrInvalidQuery indicates an unknown sort key or order.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrPathTraversal indicates a requested file would escape the library root.
	ErrPathTraversal = errors.New("path traversal detected")
)
