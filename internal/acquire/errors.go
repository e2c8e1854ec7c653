package acquire

import "errors"

var (
	// ErrArtifactNotFound indicates no candidate output file exists after a reported-successful acquisition.
	ErrArtifactNotFound = errors.New("acquired file not found")

	// ErrInvalidRequest indicates the request is missing its URL or format id.
	ErrInvalidRequest = errors.New("invalid acquisition request")
)
