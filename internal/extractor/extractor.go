// Package extractor wraps the external media extractor (yt-dlp).
package extractor

//go:generate mockgen -destination=mocks/extractor.go -package=mocks . Extractor

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/vmunix/vidvault/internal/proc"
)

// Default per-invocation bounds.
const (
	DefaultAnalyzeTimeout  = 60 * time.Second
	DefaultAcquireTimeout  = 300 * time.Second
	DefaultMetadataTimeout = 30 * time.Second
)

// diagnosticLimit bounds the stderr tail kept on an ExtractionError.
const diagnosticLimit = 2048

// Extractor reports metadata about the media behind a URL and fetches chosen variants.
type Extractor interface {
	// Analyze returns every metadata document the extractor reports for url.
	Analyze(ctx context.Context, url string) ([]*Info, error)
	// Probe returns the first metadata document for url under the metadata bound.
	Probe(ctx context.Context, url string) (*Info, error)
	// Acquire downloads the requested variant into the output template.
	Acquire(ctx context.Context, req AcquireRequest) error
}

// Config configures the yt-dlp wrapper.
type Config struct {
	Binary          string
	AnalyzeTimeout  time.Duration
	AcquireTimeout  time.Duration
	MetadataTimeout time.Duration
	Retries         int
	FragmentRetries int
	CookiesFile     string
	MergeFormat     string
}

// YtDlp invokes the yt-dlp binary.
type YtDlp struct {
	cfg    Config
	runner proc.Runner
	log    *slog.Logger
}

// New creates a yt-dlp extractor. A nil runner uses proc.ExecRunner.
func New(cfg Config, runner proc.Runner, logger *slog.Logger) *YtDlp {
	if cfg.Binary == "" {
		cfg.Binary = "yt-dlp"
	}
	if cfg.AnalyzeTimeout <= 0 {
		cfg.AnalyzeTimeout = DefaultAnalyzeTimeout
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = DefaultAcquireTimeout
	}
	if cfg.MetadataTimeout <= 0 {
		cfg.MetadataTimeout = DefaultMetadataTimeout
	}
	if cfg.MergeFormat == "" {
		cfg.MergeFormat = "mp4"
	}
	if runner == nil {
		runner = proc.ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &YtDlp{
		cfg:    cfg,
		runner: runner,
		log:    logger.With("component", "extractor"),
	}
}

// Analyze runs a metadata-only dump. Lines that fail to decode are skipped.
func (y *YtDlp) Analyze(ctx context.Context, url string) ([]*Info, error) {
	stdout, err := y.run(ctx, "analyze", y.cfg.AnalyzeTimeout, y.dumpArgs(url))
	if err != nil {
		return nil, err
	}
	return y.decode(stdout), nil
}

// Probe is Analyze bounded by the metadata timeout, returning only the first document.
func (y *YtDlp) Probe(ctx context.Context, url string) (*Info, error) {
	stdout, err := y.run(ctx, "probe", y.cfg.MetadataTimeout, y.dumpArgs(url))
	if err != nil {
		return nil, err
	}
	docs := y.decode(stdout)
	if len(docs) == 0 {
		return nil, &ExtractionError{Kind: KindGeneric, Stage: "probe", Diagnostic: "no metadata documents returned"}
	}
	return docs[0], nil
}

// Acquire downloads one format expression with a thumbnail and embedded metadata.
// Staged files keep their local write time; the janitor ages them by mtime.
func (y *YtDlp) Acquire(ctx context.Context, req AcquireRequest) error {
	args := []string{
		"--format", req.Format,
		"--output", req.OutputTemplate,
		"--write-thumbnail",
		"--merge-output-format", y.cfg.MergeFormat,
		"--embed-metadata",
		"--no-playlist",
		"--no-mtime",
	}
	args = append(args, y.commonArgs()...)
	args = append(args, req.URL)

	_, err := y.run(ctx, "acquire", y.cfg.AcquireTimeout, args)
	return err
}

func (y *YtDlp) dumpArgs(url string) []string {
	args := []string{"--dump-json", "--no-download"}
	args = append(args, y.commonArgs()...)
	return append(args, url)
}

func (y *YtDlp) commonArgs() []string {
	var args []string
	if y.cfg.Retries > 0 {
		args = append(args, "--retries", strconv.Itoa(y.cfg.Retries))
	}
	if y.cfg.FragmentRetries > 0 {
		args = append(args, "--fragment-retries", strconv.Itoa(y.cfg.FragmentRetries))
	}
	if y.cfg.CookiesFile != "" {
		args = append(args, "--cookies", y.cfg.CookiesFile)
	}
	return args
}

// run invokes the binary under its own deadline and classifies failures.
func (y *YtDlp) run(ctx context.Context, stage string, timeout time.Duration, args []string) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	y.log.Debug("invoking extractor", "stage", stage, "args", args)
	stdout, stderr, err := y.runner.Run(runCtx, y.cfg.Binary, args...)
	if err == nil {
		y.log.Debug("extractor finished", "stage", stage, "duration", time.Since(start))
		return stdout, nil
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		y.log.Warn("extractor timed out", "stage", stage, "timeout", timeout)
		return nil, fmt.Errorf("%s after %s: %w", stage, timeout, ErrTimeout)
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%s: %w", stage, ctx.Err())
	}

	diag := proc.Tail(stderr, diagnosticLimit)
	if diag == "" {
		diag = err.Error()
	}
	xerr := &ExtractionError{
		Kind:       Classify(diag),
		Stage:      stage,
		ExitCode:   proc.ExitCode(err),
		Diagnostic: diag,
	}
	y.log.Info("extractor failed", "stage", stage, "kind", xerr.Kind, "exit_code", xerr.ExitCode)
	return nil, xerr
}

func (y *YtDlp) decode(stdout []byte) []*Info {
	var docs []*Info
	scanner := bufio.NewScanner(bytes.NewReader(stdout))
	// Single documents with many formats easily exceed the default 64KiB token size.
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var info Info
		if err := json.Unmarshal(line, &info); err != nil {
			y.log.Debug("skipping undecodable metadata line", "error", err)
			continue
		}
		docs = append(docs, &info)
	}
	if err := scanner.Err(); err != nil {
		y.log.Warn("reading extractor output", "error", err)
	}
	return docs
}
