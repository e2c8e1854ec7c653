package acquire

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Run scopes one acquisition attempt's staged files.
// The extractor is told to write exactly Template; every file it produces
// from that template is named after Token.
type Run struct {
	Token     string
	Dir       string
	CreatedAt time.Time
}

// NewRun allocates a run with a fresh token in dir.
func NewRun(dir string) *Run {
	return &Run{Token: uuid.NewString(), Dir: dir, CreatedAt: time.Now()}
}

// Template is the extractor output template for this run.
func (r *Run) Template() string {
	return filepath.Join(r.Dir, r.Token+".%(ext)s")
}

// MergedPath is where a stream merge for this run writes its container.
func (r *Run) MergedPath() string {
	return filepath.Join(r.Dir, r.Token+"_merged.mp4")
}

// Owns reports whether a file name belongs to this run.
// A bare prefix match is not enough: "r1" must not claim "r10.mp4".
func (r *Run) Owns(name string) bool {
	return OwnedBy(name, r.Token)
}

// OwnedBy reports whether name was produced for token.
func OwnedBy(name, token string) bool {
	if token == "" {
		return false
	}
	return name == token ||
		strings.HasPrefix(name, token+".") ||
		strings.HasPrefix(name, token+"_")
}

// TokenOf extracts the run token from a staged file name: the text before
// the first '_' or '.'.
func TokenOf(name string) string {
	name = filepath.Base(name)
	if i := strings.IndexAny(name, "_."); i >= 0 {
		return name[:i]
	}
	return name
}

// Artifacts lists the run's files in name order, skipping partial downloads.
func (r *Run) Artifacts() ([]Artifact, error) {
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		return nil, fmt.Errorf("read staging dir: %w", err)
	}

	var out []Artifact
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !r.Owns(name) || isInProgress(name) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		out = append(out, Artifact{
			Path:      filepath.Join(r.Dir, name),
			Name:      name,
			Kind:      ClassifyName(name),
			Size:      info.Size(),
			PerStream: IsPerStream(name),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Discard removes every file the run owns, including partial downloads.
func (r *Run) Discard() error {
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read staging dir: %w", err)
	}

	var errs []error
	for _, e := range entries {
		if e.IsDir() || !r.Owns(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(r.Dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
