// Package library files acquired media into a flat directory indexed by a JSON catalog.
package library

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// Store owns the library directory and its catalog document.
// Commits are serialized within the process by mu and across processes by
// the lock file under root; reads load the catalog from disk.
type Store struct {
	root        string
	catalogPath string
	log         *slog.Logger

	// mu guards the catalog read-modify-write and the pending intents.
	mu        sync.Mutex
	recovered map[string]*Entry // media source path -> rolled-forward entry

	now   func() time.Time
	newID func() string
	hooks commitHooks
}

// commitHooks let tests stop a commit between steps, as a crash would.
type commitHooks struct {
	afterIntent        func() error
	afterMediaRename   func() error
	beforeCatalogWrite func() error
}

func runHook(h func() error) error {
	if h == nil {
		return nil
	}
	return h()
}

// Open prepares the library root and settles any interrupted commits.
// catalogPath is the catalog document; it may live outside root.
func Open(root, catalogPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("%w: create library dir: %w", ErrIO, err)
	}

	s := &Store{
		root:        root,
		catalogPath: catalogPath,
		log:         logger.With("component", "library"),
		recovered:   make(map[string]*Entry),
		now:         time.Now,
		newID:       uuid.NewString,
	}
	if err := s.Recover(); err != nil {
		return nil, err
	}
	return s, nil
}

// Root returns the library directory.
func (s *Store) Root() string {
	return s.root
}

// CommitRequest describes a resolved acquisition to file into the library.
type CommitRequest struct {
	SourceURL string
	Title     string
	// OriginalFileName is the staged name the caller asked to save.
	OriginalFileName string
	MediaPath        string
	ThumbnailPath    string // optional
	Metadata         Metadata
}

// Commit moves the media (and thumbnail) into the library under a fresh id and
// appends the entry to the catalog. Either the entry and its files are all in
// place afterwards, or the files are back where they started.
func (s *Store) Commit(req CommitRequest) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := s.lockRoot()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := s.recoverLocked(); err != nil {
		return nil, err
	}

	info, err := os.Stat(req.MediaPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if e, ok := s.recovered[req.MediaPath]; ok {
				s.log.Info("commit already applied by recovery", "entry_id", e.ID, "path", req.MediaPath)
				return e.clone(), nil
			}
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, req.MediaPath)
		}
		return nil, fmt.Errorf("%w: stat source: %w", ErrIO, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrSourceNotFound, req.MediaPath)
	}

	in := s.prepare(req, info.Size())
	entry := in.Entry
	log := s.log.With("entry_id", entry.ID)

	// Phase 1: Journal - record the intent before touching any file
	if err := s.writeIntent(in); err != nil {
		return nil, fmt.Errorf("%w: write intent: %w", ErrIO, err)
	}
	if err := runHook(s.hooks.afterIntent); err != nil {
		return nil, err
	}

	// Phase 2: Move - true renames, never copies
	if err := os.Rename(in.MediaSrc, in.MediaDst); err != nil {
		s.removeIntent(entry.ID)
		return nil, renameError("media", err)
	}
	if err := runHook(s.hooks.afterMediaRename); err != nil {
		return nil, err
	}
	if in.ThumbSrc != "" {
		if err := os.Rename(in.ThumbSrc, in.ThumbDst); err != nil {
			s.rollback(in)
			return nil, renameError("thumbnail", err)
		}
	}

	// Phase 3: Catalog - load, append, atomically replace
	if err := runHook(s.hooks.beforeCatalogWrite); err != nil {
		return nil, err
	}
	entries, err := loadCatalog(s.catalogPath)
	if err != nil {
		s.rollback(in)
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	entries = append(entries, entry)
	if err := writeCatalog(s.catalogPath, entries); err != nil {
		s.rollback(in)
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	syncDir(s.root)
	s.removeIntent(entry.ID)

	log.Info("entry committed",
		"file", entry.LibraryFileName,
		"size_bytes", entry.FileSize,
		"thumbnail", entry.ThumbnailFileName,
		"total", len(entries))
	return entry.clone(), nil
}

// prepare builds the entry and its intent. Nothing touches the disk.
func (s *Store) prepare(req CommitRequest, size int64) *intent {
	id := s.newID()
	libName := id + filepath.Ext(req.MediaPath)

	entry := &Entry{
		ID:               id,
		VideoURL:         req.SourceURL,
		Title:            req.Title,
		OriginalFileName: req.OriginalFileName,
		LibraryFileName:  libName,
		FilePath:         s.relPath(libName),
		FileSize:         size,
		LocalURL:         LocalURL(id),
		DirectURL:        DirectURL(libName),
		SavedAt:          Timestamp{s.now()},
		Metadata:         req.Metadata.clone(),
	}
	if entry.OriginalFileName == "" {
		entry.OriginalFileName = filepath.Base(req.MediaPath)
	}

	in := &intent{
		Entry:    entry,
		MediaSrc: req.MediaPath,
		MediaDst: filepath.Join(s.root, libName),
	}

	if req.ThumbnailPath != "" {
		if exists(req.ThumbnailPath) {
			thumbName := id + strings.ToLower(filepath.Ext(req.ThumbnailPath))
			entry.ThumbnailFileName = thumbName
			entry.ThumbnailPath = s.relPath(thumbName)
			entry.ThumbnailURL = DirectURL(thumbName)
			in.ThumbSrc = req.ThumbnailPath
			in.ThumbDst = filepath.Join(s.root, thumbName)
		} else {
			s.log.Warn("thumbnail missing, committing without it", "path", req.ThumbnailPath)
		}
	}
	return in
}

// relPath is a file's path relative to the library's parent directory.
func (s *Store) relPath(name string) string {
	return filepath.ToSlash(filepath.Join(filepath.Base(filepath.Clean(s.root)), name))
}

func renameError(what string, err error) error {
	if errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("%w: move %s: staging and library must be on the same filesystem: %w", ErrIO, what, err)
	}
	return fmt.Errorf("%w: move %s: %w", ErrIO, what, err)
}

// Get returns the entry with id.
func (s *Store) Get(id string) (*Entry, error) {
	entries, err := loadCatalog(s.catalogPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, fmt.Errorf("entry %s: %w", id, ErrNotFound)
}

// All returns every entry in catalog order.
func (s *Store) All() ([]*Entry, error) {
	entries, err := loadCatalog(s.catalogPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return entries, nil
}

// FindSaved returns the newest entry committed from sourceURL under the staged
// name originalFileName. A save retried after its commit landed (or was rolled
// forward by another process) finds its entry here once the staged file is gone.
func (s *Store) FindSaved(sourceURL, originalFileName string) (*Entry, error) {
	entries, err := loadCatalog(s.catalogPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.VideoURL == sourceURL && e.OriginalFileName == originalFileName {
			return e, nil
		}
	}
	return nil, fmt.Errorf("saved %s: %w", originalFileName, ErrNotFound)
}

// Len returns the number of catalog entries.
func (s *Store) Len() (int, error) {
	entries, err := s.All()
	return len(entries), err
}

// MediaPath returns the path of an entry's media file.
func (s *Store) MediaPath(e *Entry) string {
	return filepath.Join(s.root, e.LibraryFileName)
}

// ResolveFile maps a file name directly under the library root to its path.
// Names with separators or that escape the root are rejected.
func (s *Store) ResolveFile(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%q: %w", name, ErrPathTraversal)
	}

	path := filepath.Join(s.root, name)
	root := filepath.Clean(s.root) + string(filepath.Separator)
	if !strings.HasPrefix(filepath.Clean(path), root) {
		return "", fmt.Errorf("%q: %w", name, ErrPathTraversal)
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("file %s: %w", name, ErrNotFound)
	}
	return path, nil
}
