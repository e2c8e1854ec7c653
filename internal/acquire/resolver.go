package acquire

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Resolution is the single outcome of a run.
type Resolution struct {
	MediaPath     string
	Size          int64
	ThumbnailPath string
	ThumbnailSize int64
	// Merged is true only when the merger produced the media file.
	Merged bool
	// MergeErr is set when a merge was attempted and degraded.
	MergeErr error
}

// Resolver picks one media file (and thumbnail) out of a run's artifacts.
type Resolver struct {
	merger   *Merger
	mergeExt string
	log      *slog.Logger
}

// NewResolver creates a resolver. mergeExt is the container the extractor was
// asked to merge into, without the dot ("mp4").
func NewResolver(merger *Merger, mergeExt string, logger *slog.Logger) *Resolver {
	if mergeExt == "" {
		mergeExt = "mp4"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		merger:   merger,
		mergeExt: "." + strings.TrimPrefix(mergeExt, "."),
		log:      logger.With("component", "resolver"),
	}
}

// Resolve applies, in order:
//   - one video and one audio artifact: merge them
//   - one video and no audio: take the video as-is
//   - otherwise: the first clean container of the merge extension, else the
//     first non-image file, else ErrArtifactNotFound
func (r *Resolver) Resolve(ctx context.Context, run *Run) (*Resolution, error) {
	artifacts, err := run.Artifacts()
	if err != nil {
		return nil, err
	}

	var videos, audios, images, nonImages []Artifact
	for _, a := range artifacts {
		switch a.Kind {
		case KindVideo:
			videos = append(videos, a)
		case KindAudio:
			audios = append(audios, a)
		case KindImage:
			images = append(images, a)
		}
		if a.Kind != KindImage {
			nonImages = append(nonImages, a)
		}
	}

	r.log.Debug("resolving run",
		"run", run.Token,
		"videos", len(videos),
		"audios", len(audios),
		"images", len(images))

	res := &Resolution{}
	switch {
	case len(videos) == 1 && len(audios) == 1:
		outcome := r.merger.Merge(ctx, videos[0].Path, audios[0].Path, run.MergedPath())
		res.MediaPath = outcome.Path
		res.Merged = outcome.Merged
		res.MergeErr = outcome.Err
	case len(videos) == 1 && len(audios) == 0:
		res.MediaPath = videos[0].Path
	default:
		chosen := r.fallbackCandidate(nonImages)
		if chosen == nil {
			return nil, fmt.Errorf("run %s: %w", run.Token, ErrArtifactNotFound)
		}
		res.MediaPath = chosen.Path
	}

	info, err := os.Stat(res.MediaPath)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w: %v", run.Token, ErrArtifactNotFound, err)
	}
	res.Size = info.Size()

	if thumb := pickThumbnail(images); thumb != nil {
		res.ThumbnailPath = thumb.Path
		res.ThumbnailSize = thumb.Size
	}

	return res, nil
}

func (r *Resolver) fallbackCandidate(nonImages []Artifact) *Artifact {
	for i := range nonImages {
		a := &nonImages[i]
		if !a.PerStream && strings.EqualFold(filepath.Ext(a.Name), r.mergeExt) {
			return a
		}
	}
	if len(nonImages) > 0 {
		return &nonImages[0]
	}
	return nil
}
