package acquire

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/vmunix/vidvault/internal/muxer"
)

// MergeOutcome is the merger's verdict. When Merged is false, Path is the
// original video file and Err holds the muxer failure.
type MergeOutcome struct {
	Path   string
	Merged bool
	Err    error
}

// Merger owns the merge-or-degrade policy around a Muxer.
type Merger struct {
	muxer muxer.Muxer
	log   *slog.Logger
}

// NewMerger creates a merger.
func NewMerger(m muxer.Muxer, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{muxer: m, log: logger.With("component", "merger")}
}

// Merge combines video and audio into out. On success both inputs are removed.
// A failed merge is logged, never returned as an error: the outcome falls back
// to the original video and both inputs stay on disk.
func (m *Merger) Merge(ctx context.Context, video, audio, out string) MergeOutcome {
	if err := m.muxer.Merge(ctx, video, audio, out); err != nil {
		m.log.Warn("merge failed, keeping unmerged video",
			"video", video,
			"audio", audio,
			"error", err)
		return MergeOutcome{Path: video, Err: err}
	}

	for _, p := range []string{video, audio} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			m.log.Warn("failed to remove merge input", "path", p, "error", err)
		}
	}

	m.log.Info("streams merged", "output", out)
	return MergeOutcome{Path: out, Merged: true}
}
