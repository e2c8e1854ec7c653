package v1

import (
	"context"
	"errors"

	"github.com/vmunix/vidvault/internal/acquire"
	"github.com/vmunix/vidvault/internal/extractor"
	"github.com/vmunix/vidvault/internal/formats"
	"github.com/vmunix/vidvault/internal/history"
	"github.com/vmunix/vidvault/internal/library"
	"github.com/vmunix/vidvault/internal/metadata"
	"github.com/vmunix/vidvault/internal/saver"
)

//go:generate mockgen -destination=mocks/acquirer.go -package=mocks . Acquirer

// ErrMissingDependency is returned when a required dependency is nil.
var ErrMissingDependency = errors.New("missing required dependency")

// Acquirer fetches one variant into staging and resolves it to a single file.
type Acquirer interface {
	Acquire(ctx context.Context, req acquire.Request) (*acquire.Result, error)
}

// ServerDeps contains all dependencies for the API server.
// Required dependencies must be non-nil; optional dependencies may be nil.
type ServerDeps struct {
	// Required dependencies
	Extractor  extractor.Extractor
	Formats    *formats.Builder
	Acquirer   Acquirer
	Saver      *saver.Saver
	Library    *library.Store

	// Optional dependencies (nil if not configured)
	History *history.Store
	Cache   *metadata.Cache
}

// Validate checks that all required dependencies are provided.
func (d ServerDeps) Validate() error {
	switch {
	case d.Extractor == nil:
		return errors.Join(ErrMissingDependency, errors.New("extractor is required"))
	case d.Formats == nil:
		return errors.Join(ErrMissingDependency, errors.New("format builder is required"))
	case d.Acquirer == nil:
		return errors.Join(ErrMissingDependency, errors.New("acquirer is required"))
	case d.Saver == nil:
		return errors.Join(ErrMissingDependency, errors.New("saver is required"))
	case d.Library == nil:
		return errors.Join(ErrMissingDependency, errors.New("library store is required"))
	}
	return nil
}
