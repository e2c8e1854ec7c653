// Package server runs the HTTP API and background maintenance under one lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Config for the server runner.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration

	JanitorEnabled  bool
	JanitorInterval time.Duration
	JanitorMaxAge   time.Duration
	StagingDir      string
}

// Runner manages the HTTP server and the staging janitor.
type Runner struct {
	handler http.Handler
	cache   Pruner
	config  Config
	logger  *slog.Logger
}

// NewRunner creates a new runner. cache may be nil.
func NewRunner(handler http.Handler, cache Pruner, cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	return &Runner{
		handler: handler,
		cache:   cache,
		config:  cfg,
		logger:  logger,
	}
}

// Run listens on the configured address and serves until ctx is canceled.
func (r *Runner) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", r.config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", r.config.Addr, err)
	}
	return r.Serve(ctx, ln)
}

// Serve runs all components on ln. It blocks until the context is canceled
// or a component fails, then shuts the HTTP server down gracefully.
func (r *Runner) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           r.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Use errgroup to manage component lifecycle
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r.logger.Info("http server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), r.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		r.logger.Info("http server stopped")
		return nil
	})

	if r.config.JanitorEnabled {
		j := NewJanitor(r.config.StagingDir, r.config.JanitorInterval, r.config.JanitorMaxAge, r.cache,
			r.logger.With("component", "janitor"))
		g.Go(func() error {
			j.Run(ctx)
			return nil
		})
	}

	return g.Wait()
}
