// Package muxer combines separate video and audio streams into one container.
package muxer

//go:generate mockgen -destination=mocks/muxer.go -package=mocks . Muxer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/vmunix/vidvault/internal/proc"
)

// DefaultTimeout bounds one merge.
const DefaultTimeout = 120 * time.Second

var (
	// ErrMergeFailed is returned when the muxer exits non-zero or produces nothing.
	ErrMergeFailed = errors.New("merge failed")

	// ErrTimeout is returned alongside ErrMergeFailed when the merge exceeds its bound.
	ErrTimeout = errors.New("merge timed out")
)

// Muxer merges one video file and one audio file into outputPath.
// It reports success or failure only; inputs are left untouched.
type Muxer interface {
	Available() bool
	Merge(ctx context.Context, videoPath, audioPath, outputPath string) error
}

// Config configures the ffmpeg muxer.
type Config struct {
	Binary     string
	Timeout    time.Duration
	AudioCodec string
}

// FFmpeg implements Muxer using the ffmpeg command line tool.
type FFmpeg struct {
	cfg    Config
	runner proc.Runner
	log    *slog.Logger
}

// NewFFmpeg returns an ffmpeg muxer. A nil runner uses proc.ExecRunner.
func NewFFmpeg(cfg Config, runner proc.Runner, logger *slog.Logger) *FFmpeg {
	if cfg.Binary == "" {
		cfg.Binary = "ffmpeg"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.AudioCodec == "" {
		cfg.AudioCodec = "aac"
	}
	if runner == nil {
		runner = proc.ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FFmpeg{cfg: cfg, runner: runner, log: logger.With("component", "muxer")}
}

// Available checks if ffmpeg is executable.
func (f *FFmpeg) Available() bool {
	_, err := exec.LookPath(f.cfg.Binary)
	return err == nil
}

// Merge copies the video stream, transcodes audio to the configured codec and
// stops at the shorter input. A partial output is removed on failure.
func (f *FFmpeg) Merge(ctx context.Context, videoPath, audioPath, outputPath string) error {
	// ffmpeg -i video -i audio -c:v copy -c:a aac -shortest -y output
	args := []string{
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", f.cfg.AudioCodec,
		"-shortest",
		"-y", outputPath,
	}

	runCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	_, stderr, err := f.runner.Run(runCtx, f.cfg.Binary, args...)
	if err != nil {
		_ = os.Remove(outputPath)
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w after %s", ErrMergeFailed, ErrTimeout, f.cfg.Timeout)
		}
		return fmt.Errorf("%w: exit %d: %s", ErrMergeFailed, proc.ExitCode(err), proc.Tail(stderr, 512))
	}

	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(outputPath)
		return fmt.Errorf("%w: no output written to %s", ErrMergeFailed, outputPath)
	}

	f.log.Debug("merge complete", "output", outputPath, "size_bytes", info.Size())
	return nil
}
