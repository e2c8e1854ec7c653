package acquire

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultAudioSizeRatio is the default for Locator.AudioSizeRatio.
const DefaultAudioSizeRatio = 1.1

// Staged is a staged media file ready to commit, plus its thumbnail if one exists.
type Staged struct {
	Token         string
	MediaPath     string
	ThumbnailPath string
}

// Locator finds the file a save request refers to inside the staging dir.
type Locator struct {
	Dir string
	// AudioSizeRatio: a clean container at least this much larger than a
	// per-stream video artifact of the same run is assumed to carry audio.
	AudioSizeRatio float64
}

// NewLocator creates a locator for dir. A ratio below 1 uses DefaultAudioSizeRatio.
func NewLocator(dir string, ratio float64) *Locator {
	if ratio < 1 {
		ratio = DefaultAudioSizeRatio
	}
	return &Locator{Dir: dir, AudioSizeRatio: ratio}
}

// Locate resolves name (a file previously reported by an acquisition) to the
// file that should enter the library:
//   - a missing name falls back to the run's merged container, then "<token>.mp4"
//   - an audio-only artifact is swapped for the run's clean container
//   - a per-stream video is swapped for a clean container that is
//     AudioSizeRatio times larger
func (l *Locator) Locate(name string) (*Staged, error) {
	base := filepath.Base(name)
	if base != name || base == "." || base == ".." || base == "" {
		return nil, fmt.Errorf("%w: %q is not a staged file name", ErrArtifactNotFound, name)
	}

	token := TokenOf(base)
	path := filepath.Join(l.Dir, base)

	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat staged file: %w", err)
		}
		path, info = l.byToken(token)
		if path == "" {
			return nil, fmt.Errorf("%w: %s not in staging", ErrArtifactNotFound, base)
		}
	}

	switch kind := ClassifyName(path); {
	case kind == KindAudio:
		clean, _ := l.cleanContainer(token, path)
		if clean == "" {
			return nil, fmt.Errorf("%w: %s is audio only and run %s has no merged container", ErrArtifactNotFound, base, token)
		}
		path = clean
	case kind == KindVideo && IsPerStream(filepath.Base(path)):
		clean, cleanSize := l.cleanContainer(token, path)
		if clean != "" && float64(cleanSize) > float64(info.Size())*l.AudioSizeRatio {
			path = clean
		}
	}

	return &Staged{
		Token:         token,
		MediaPath:     path,
		ThumbnailPath: l.thumbnailFor(path, token),
	}, nil
}

func (l *Locator) byToken(token string) (string, os.FileInfo) {
	if token == "" {
		return "", nil
	}
	for _, candidate := range []string{token + "_merged.mp4", token + ".mp4"} {
		p := filepath.Join(l.Dir, candidate)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, info
		}
	}
	return "", nil
}

// cleanContainer returns the run's preferred non-per-stream video, other than
// exclude: the merged container if present, else the largest.
func (l *Locator) cleanContainer(token, exclude string) (string, int64) {
	run := &Run{Token: token, Dir: l.Dir}
	artifacts, err := run.Artifacts()
	if err != nil {
		return "", 0
	}

	merged := run.MergedPath()
	var best string
	var bestSize int64
	for _, a := range artifacts {
		if a.Kind != KindVideo || a.PerStream || a.Path == exclude {
			continue
		}
		if a.Path == merged {
			return a.Path, a.Size
		}
		if best == "" || a.Size > bestSize {
			best, bestSize = a.Path, a.Size
		}
	}
	return best, bestSize
}

// thumbnailFor looks for "<stem>.<ext>" next to media, then "<token>.<ext>".
func (l *Locator) thumbnailFor(media, token string) string {
	stem := strings.TrimSuffix(filepath.Base(media), filepath.Ext(media))
	for _, s := range []string{stem, token} {
		if s == "" {
			continue
		}
		for _, ext := range ThumbnailExts {
			p := filepath.Join(l.Dir, s+ext)
			if info, err := os.Stat(p); err == nil && !info.IsDir() {
				return p
			}
		}
	}
	return ""
}
