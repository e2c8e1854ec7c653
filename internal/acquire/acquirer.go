// Package acquire fetches one chosen variant and reduces what the extractor
// leaves behind to a single playable file.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmunix/vidvault/internal/extractor"
	"github.com/vmunix/vidvault/internal/history"
)

// Stage names the acquisition state machine's states.
type Stage string

const (
	StageRequested Stage = "requested"
	StagePrimary   Stage = "primary_extract"
	StageFallback  Stage = "fallback_extract"
	StageResolve   Stage = "resolve"
	StageResolved  Stage = "resolved"
)

// PrimaryFormat is the format expression for the first attempt.
func PrimaryFormat(formatID string) string {
	return formatID + "+bestaudio/best"
}

// FallbackFormat is the simpler expression retried after a non-zero exit.
func FallbackFormat(formatID string) string {
	return formatID + "+bestaudio"
}

// Recorder receives acquisition history. Failures are logged, never fatal.
type Recorder interface {
	Record(run, event, url string, data any) error
}

// Request asks for one format of one URL.
type Request struct {
	URL      string
	FormatID string
}

// Result is a resolved acquisition.
type Result struct {
	Token             string `json:"download_id"`
	FileName          string `json:"filename"`
	MediaPath         string `json:"file_path"`
	Size              int64  `json:"file_size"`
	URL               string `json:"url"`
	FormatID          string `json:"format_id"`
	Merged            bool   `json:"merged"`
	ThumbnailFileName string `json:"thumbnail_filename,omitempty"`
	ThumbnailPath     string `json:"thumbnail_path,omitempty"`
	ThumbnailSize     int64  `json:"thumbnail_size,omitempty"`
}

// Acquirer drives extraction, resolution and merging for one request at a time.
// Concurrent calls are safe: each call owns a distinct run token.
type Acquirer struct {
	extractor  extractor.Extractor
	resolver   *Resolver
	stagingDir string
	history    Recorder // nil if not configured
	log        *slog.Logger
	newRun     func(dir string) *Run
}

// New creates an acquirer that stages files in stagingDir.
func New(ext extractor.Extractor, resolver *Resolver, stagingDir string, rec Recorder, logger *slog.Logger) *Acquirer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Acquirer{
		extractor:  ext,
		resolver:   resolver,
		stagingDir: stagingDir,
		history:    rec,
		log:        logger.With("component", "acquire"),
		newRun:     NewRun,
	}
}

// Acquire runs Requested → PrimaryExtract → (FallbackExtract) → Resolve → Resolved.
// A timeout ends the attempt without trying the fallback. Staged files of a
// failed run are discarded.
func (a *Acquirer) Acquire(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.URL) == "" || strings.TrimSpace(req.FormatID) == "" {
		return nil, fmt.Errorf("%w: url and format id are required", ErrInvalidRequest)
	}
	if err := os.MkdirAll(a.stagingDir, 0755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	run := a.newRun(a.stagingDir)
	log := a.log.With("run", run.Token, "url", req.URL, "format_id", req.FormatID)
	log.Info("acquisition started", "stage", StageRequested)

	// Phase 1: Extract - primary expression, fallback on non-zero exit
	stage, err := a.extract(ctx, run, req, log)
	if err != nil {
		return nil, a.fail(run, req, stage, err, log)
	}

	// Phase 2: Resolve - pick one file, merging split streams
	res, err := a.resolver.Resolve(ctx, run)
	if err != nil {
		return nil, a.fail(run, req, StageResolve, err, log)
	}

	result := &Result{
		Token:     run.Token,
		FileName:  filepath.Base(res.MediaPath),
		MediaPath: res.MediaPath,
		Size:      res.Size,
		URL:       req.URL,
		FormatID:  req.FormatID,
		Merged:    res.Merged,
	}
	if res.ThumbnailPath != "" {
		result.ThumbnailFileName = filepath.Base(res.ThumbnailPath)
		result.ThumbnailPath = res.ThumbnailPath
		result.ThumbnailSize = res.ThumbnailSize
	}

	// Phase 3: Record - history (best effort)
	a.recordResolved(run, req, res, result, log)

	log.Info("acquisition resolved",
		"stage", StageResolved,
		"path", result.MediaPath,
		"size_bytes", result.Size,
		"merged", result.Merged,
		"thumbnail", result.ThumbnailFileName)
	return result, nil
}

func (a *Acquirer) extract(ctx context.Context, run *Run, req Request, log *slog.Logger) (Stage, error) {
	err := a.extractor.Acquire(ctx, extractor.AcquireRequest{
		URL:            req.URL,
		Format:         PrimaryFormat(req.FormatID),
		OutputTemplate: run.Template(),
	})
	if err == nil {
		return StagePrimary, nil
	}
	if !retryable(ctx, err) {
		return StagePrimary, err
	}

	log.Warn("primary extraction failed, retrying with fallback format", "error", err)

	err = a.extractor.Acquire(ctx, extractor.AcquireRequest{
		URL:            req.URL,
		Format:         FallbackFormat(req.FormatID),
		OutputTemplate: run.Template(),
	})
	return StageFallback, err
}

// retryable reports whether a primary failure may fall back. Only a non-zero
// extractor exit qualifies.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, extractor.ErrTimeout) {
		return false
	}
	var xerr *extractor.ExtractionError
	return errors.As(err, &xerr)
}

func (a *Acquirer) fail(run *Run, req Request, stage Stage, err error, log *slog.Logger) error {
	log.Error("acquisition failed", "stage", stage, "error", err)

	if derr := run.Discard(); derr != nil {
		log.Warn("failed to discard staged files", "error", derr)
	}
	a.record(run.Token, history.EventFailed, req.URL, map[string]any{
		"format_id": req.FormatID,
		"stage":     string(stage),
		"error":     err.Error(),
	}, log)

	return fmt.Errorf("acquire %s (%s): %w", req.URL, stage, err)
}

func (a *Acquirer) recordResolved(run *Run, req Request, res *Resolution, result *Result, log *slog.Logger) {
	switch {
	case res.Merged:
		a.record(run.Token, history.EventMerged, req.URL, map[string]any{"path": res.MediaPath}, log)
	case res.MergeErr != nil:
		a.record(run.Token, history.EventMergeFailed, req.URL, map[string]any{
			"path":  res.MediaPath,
			"error": res.MergeErr.Error(),
		}, log)
	}
	a.record(run.Token, history.EventAcquired, req.URL, result, log)
}

func (a *Acquirer) record(run, event, url string, data any, log *slog.Logger) {
	if a.history == nil {
		return
	}
	if err := a.history.Record(run, event, url, data); err != nil {
		log.Warn("failed to record history", "event", event, "error", err)
	}
}
