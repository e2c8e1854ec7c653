package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// pendingDir holds one intent file per in-flight commit, under the library root.
const pendingDir = ".pending"

// intent is written before any file moves. It holds the complete entry so a
// crashed commit can be finished or undone from disk alone.
type intent struct {
	Entry    *Entry `json:"entry"`
	MediaSrc string `json:"media_src"`
	MediaDst string `json:"media_dst"`
	ThumbSrc string `json:"thumb_src,omitempty"`
	ThumbDst string `json:"thumb_dst,omitempty"`
}

func (s *Store) intentPath(id string) string {
	return filepath.Join(s.root, pendingDir, id+".json")
}

func (s *Store) writeIntent(in *intent) error {
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return fmt.Errorf("encode intent: %w", err)
	}
	return writeFileAtomic(s.intentPath(in.Entry.ID), data)
}

func (s *Store) removeIntent(id string) {
	if err := os.Remove(s.intentPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn("failed to remove commit intent", "entry_id", id, "error", err)
	}
}

func (s *Store) loadIntents() ([]*intent, error) {
	dir := filepath.Join(s.root, pendingDir)
	files, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read pending dir: %w", err)
	}

	var intents []*intent
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read intent %s: %w", name, err)
		}
		var in intent
		if err := json.Unmarshal(data, &in); err != nil || in.Entry == nil || in.Entry.ID == "" {
			s.log.Warn("discarding unreadable commit intent", "file", name, "error", err)
			_ = os.Remove(filepath.Join(dir, name))
			continue
		}
		intents = append(intents, &in)
	}
	return intents, nil
}

// Recover settles commits interrupted by a crash. For each pending intent:
//   - entry already in the catalog: the intent is dropped
//   - media already in the library: the entry is appended (roll forward)
//   - otherwise: moved files go back to staging (roll back)
//
// Open calls Recover; Commit calls it before doing anything else. Both hold
// the library lock, so an intent another process is still applying is never
// mistaken for a crashed one.
func (s *Store) Recover() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := s.lockRoot()
	if err != nil {
		return err
	}
	defer unlock()
	return s.recoverLocked()
}

func (s *Store) recoverLocked() error {
	intents, err := s.loadIntents()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	if len(intents) == 0 {
		return nil
	}

	entries, err := loadCatalog(s.catalogPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	known := make(map[string]bool, len(entries))
	for _, e := range entries {
		known[e.ID] = true
	}

	var forward []*intent
	for _, in := range intents {
		id := in.Entry.ID
		switch {
		case known[id]:
			s.log.Info("commit intent already applied", "entry_id", id)
			s.removeIntent(id)
		case exists(in.MediaDst):
			s.settleThumbnail(in)
			entries = append(entries, in.Entry)
			known[id] = true
			forward = append(forward, in)
		default:
			if in.ThumbDst != "" && exists(in.ThumbDst) && !exists(in.ThumbSrc) {
				if err := os.Rename(in.ThumbDst, in.ThumbSrc); err != nil {
					s.log.Warn("failed to restore thumbnail", "entry_id", id, "error", err)
				}
			}
			s.log.Info("rolled back interrupted commit", "entry_id", id, "path", in.MediaSrc)
			s.removeIntent(id)
		}
	}

	if len(forward) == 0 {
		return nil
	}
	if err := writeCatalog(s.catalogPath, entries); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	for _, in := range forward {
		s.recovered[in.MediaSrc] = in.Entry
		s.log.Info("rolled forward interrupted commit", "entry_id", in.Entry.ID, "file", in.Entry.LibraryFileName)
		s.removeIntent(in.Entry.ID)
	}
	return nil
}

// settleThumbnail finishes or drops the thumbnail move of a rolled-forward intent.
func (s *Store) settleThumbnail(in *intent) {
	if in.ThumbDst == "" || exists(in.ThumbDst) {
		return
	}
	if exists(in.ThumbSrc) {
		if err := os.Rename(in.ThumbSrc, in.ThumbDst); err == nil {
			return
		}
	}
	in.Entry.ThumbnailFileName = ""
	in.Entry.ThumbnailPath = ""
	in.Entry.ThumbnailURL = ""
}

// rollback undoes the renames of a commit that failed before the catalog write.
func (s *Store) rollback(in *intent) {
	if in.ThumbDst != "" && exists(in.ThumbDst) {
		if err := os.Rename(in.ThumbDst, in.ThumbSrc); err != nil {
			s.log.Warn("failed to roll back thumbnail", "path", in.ThumbDst, "error", err)
		}
	}
	if exists(in.MediaDst) {
		if err := os.Rename(in.MediaDst, in.MediaSrc); err != nil {
			// Leave the intent so the next Recover rolls the entry forward.
			s.log.Error("failed to roll back media", "path", in.MediaDst, "error", err)
			return
		}
	}
	s.removeIntent(in.Entry.ID)
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
