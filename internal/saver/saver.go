// Package saver files a staged download into the library. The HTTP API and
// the CLI both save through it, so they share one sequence and one history
// record shape.
package saver

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vmunix/vidvault/internal/acquire"
	"github.com/vmunix/vidvault/internal/history"
	"github.com/vmunix/vidvault/internal/library"
	"github.com/vmunix/vidvault/internal/metadata"
)

// Recorder receives save history. Failures are logged, never fatal.
type Recorder interface {
	Record(run, event, url string, data any) error
}

// Request asks for one staged file to be saved. FileName is the staged name
// the caller asked to save. A non-nil Staged skips the locate step, for
// callers that already resolved the file.
type Request struct {
	URL      string
	FileName string
	Title    string
	Fields   library.Metadata
	Staged   *acquire.Staged
}

// Result is a saved entry plus what reconciling its metadata reported.
// MetadataWarning wraps metadata.ErrFetchFailed when the source could not be
// re-queried. Existing is set when an earlier attempt of the same save had
// already landed, so Entry was found rather than created.
type Result struct {
	Entry           *library.Entry
	Synced          []string
	MetadataWarning error
	Existing        bool
}

// Saver runs locate, reconcile, commit and record for one staged file.
type Saver struct {
	locator    *acquire.Locator
	reconciler *metadata.Reconciler
	library    *library.Store
	history    Recorder // nil if not configured
	log        *slog.Logger
}

// New creates a Saver. rec may be nil.
func New(locator *acquire.Locator, reconciler *metadata.Reconciler, lib *library.Store, rec Recorder, logger *slog.Logger) *Saver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Saver{
		locator:    locator,
		reconciler: reconciler,
		library:    lib,
		history:    rec,
		log:        logger.With("component", "saver"),
	}
}

// Save files req into the library. A locate failure wraps
// acquire.ErrArtifactNotFound unless the same save already landed, in which
// case the existing entry is returned with Existing set.
func (s *Saver) Save(ctx context.Context, req Request) (*Result, error) {
	log := s.log.With("url", req.URL, "file", req.FileName)

	// Phase 1: Locate - map the staged name to the file worth keeping
	staged := req.Staged
	if staged == nil {
		var err error
		staged, err = s.locator.Locate(req.FileName)
		if err != nil {
			if errors.Is(err, acquire.ErrArtifactNotFound) {
				if e, ferr := s.library.FindSaved(req.URL, req.FileName); ferr == nil {
					log.Info("save already applied", "entry_id", e.ID)
					return &Result{Entry: e, Existing: true}, nil
				}
			}
			return nil, err
		}
	}

	// Phase 2: Reconcile - caller fields win, gaps come from the source
	rec := s.reconciler.Reconcile(ctx, metadata.Input{
		SourceURL: req.URL,
		Title:     req.Title,
		Fields:    req.Fields,
	})

	// Phase 3: Commit - move into the library and append to the catalog
	entry, err := s.library.Commit(library.CommitRequest{
		SourceURL:        req.URL,
		Title:            rec.Title,
		OriginalFileName: req.FileName,
		MediaPath:        staged.MediaPath,
		ThumbnailPath:    staged.ThumbnailPath,
		Metadata:         rec.Metadata,
	})
	if err != nil {
		return nil, err
	}

	// Phase 4: Record - history (best effort)
	s.record(staged.Token, req.URL, entry)

	return &Result{
		Entry:           entry,
		Synced:          rec.Synced,
		MetadataWarning: rec.FetchErr,
	}, nil
}

func (s *Saver) record(run, url string, e *library.Entry) {
	if s.history == nil {
		return
	}
	if err := s.history.Record(run, history.EventSaved, url, map[string]any{
		"entry_id":  e.ID,
		"title":     e.Title,
		"file":      e.LibraryFileName,
		"file_size": e.FileSize,
	}); err != nil {
		s.log.Warn("failed to record save history", "entry_id", e.ID, "error", err)
	}
}
