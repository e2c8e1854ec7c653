package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Pruner drops expired cache rows.
type Pruner interface {
	Prune(ctx context.Context) (int64, error)
}

// Janitor removes abandoned run files from staging and prunes the metadata cache.
type Janitor struct {
	dir      string
	interval time.Duration
	maxAge   time.Duration
	cache    Pruner
	log      *slog.Logger
	now      func() time.Time
}

// NewJanitor creates a janitor for dir. cache may be nil.
func NewJanitor(dir string, interval, maxAge time.Duration, cache Pruner, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &Janitor{
		dir:      dir,
		interval: interval,
		maxAge:   maxAge,
		cache:    cache,
		log:      logger,
		now:      time.Now,
	}
}

// Run sweeps once immediately and then every interval until ctx is canceled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.log.Info("janitor started", "interval", j.interval, "max_age", j.maxAge, "dir", j.dir)

	for {
		if _, err := j.Sweep(ctx); err != nil {
			j.log.Error("sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			j.log.Info("janitor stopped")
			return
		case <-ticker.C:
		}
	}
}

// Sweep removes staged files last modified before now-maxAge and returns how
// many it removed.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read staging dir: %w", err)
	}

	cutoff := j.now().Add(-j.maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(j.dir, e.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			j.log.Warn("failed to remove abandoned file", "path", path, "error", err)
			continue
		}
		removed++
		j.log.Debug("removed abandoned file", "path", path, "age", j.now().Sub(info.ModTime()).Round(time.Second))
	}
	if removed > 0 {
		j.log.Info("staging swept", "removed", removed)
	}

	if j.cache != nil {
		n, err := j.cache.Prune(ctx)
		if err != nil {
			j.log.Warn("metadata cache prune failed", "error", err)
		} else if n > 0 {
			j.log.Debug("metadata cache pruned", "rows", n)
		}
	}
	return removed, nil
}
