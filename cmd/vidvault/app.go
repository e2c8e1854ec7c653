package main

import (
	"fmt"
	"log/slog"

	"github.com/vmunix/vidvault/internal/acquire"
	v1 "github.com/vmunix/vidvault/internal/api/v1"
	"github.com/vmunix/vidvault/internal/config"
	"github.com/vmunix/vidvault/internal/extractor"
	"github.com/vmunix/vidvault/internal/formats"
	"github.com/vmunix/vidvault/internal/history"
	"github.com/vmunix/vidvault/internal/library"
	"github.com/vmunix/vidvault/internal/metadata"
	"github.com/vmunix/vidvault/internal/muxer"
	"github.com/vmunix/vidvault/internal/proc"
	"github.com/vmunix/vidvault/internal/saver"
	"github.com/vmunix/vidvault/pkg/quality"
)

// app holds every component, wired from one config.
type app struct {
	cfg        *config.Config
	log        *slog.Logger
	extractor  extractor.Extractor
	muxer      muxer.Muxer
	formats    *formats.Builder
	acquirer   *acquire.Acquirer
	saver      *saver.Saver
	library    *library.Store
	history    *history.Store
	cache      *metadata.Cache
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	classifier, err := quality.New(cfg.Quality.Buckets)
	if err != nil {
		return nil, fmt.Errorf("quality buckets: %w", err)
	}

	// === Stores ===
	hist, err := history.Open(cfg.Paths.HistoryDB)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	lib, err := library.Open(cfg.Paths.LibraryDir, cfg.CatalogPath(), logger)
	if err != nil {
		_ = hist.Close()
		return nil, fmt.Errorf("open library: %w", err)
	}
	cache := metadata.NewCache(hist.DB())

	// === External tools ===
	runner := proc.ExecRunner{}
	ext := extractor.New(extractor.Config{
		Binary:          cfg.Extractor.Binary,
		AnalyzeTimeout:  cfg.Extractor.AnalyzeTimeout,
		AcquireTimeout:  cfg.Extractor.AcquireTimeout,
		MetadataTimeout: cfg.Extractor.MetadataTimeout,
		Retries:         cfg.Extractor.Retries,
		FragmentRetries: cfg.Extractor.FragmentRetries,
		CookiesFile:     cfg.Extractor.CookiesFile,
		MergeFormat:     cfg.Extractor.MergeFormat,
	}, runner, logger)
	mux := muxer.NewFFmpeg(muxer.Config{
		Binary:     cfg.Muxer.Binary,
		Timeout:    cfg.Muxer.Timeout,
		AudioCodec: cfg.Muxer.AudioCodec,
	}, runner, logger)

	// === Pipeline ===
	resolver := acquire.NewResolver(acquire.NewMerger(mux, logger), cfg.Extractor.MergeFormat, logger)
	reconciler := metadata.NewReconciler(ext, cache, metadata.Config{
		MaxTags:             cfg.Metadata.MaxTags,
		PlaceholderTitles:   cfg.Metadata.PlaceholderTitles,
		PlaceholderPrefixes: cfg.Metadata.PlaceholderPrefixes,
		MinTitleLength:      cfg.Metadata.MinTitleLength,
	}, logger)
	locator := acquire.NewLocator(cfg.Paths.StagingDir, cfg.Muxer.AudioSizeRatio)

	return &app{
		cfg:       cfg,
		log:       logger,
		extractor: ext,
		muxer:     mux,
		formats:   formats.NewBuilder(classifier),
		acquirer:  acquire.New(ext, resolver, cfg.Paths.StagingDir, hist, logger),
		saver:     saver.New(locator, reconciler, lib, hist, logger),
		library:   lib,
		history:   hist,
		cache:     cache,
	}, nil
}

func (a *app) Close() error {
	return a.history.Close()
}

func (a *app) apiServer() (*v1.Server, error) {
	return v1.New(v1.ServerDeps{
		Extractor: a.extractor,
		Formats:   a.formats,
		Acquirer:  a.acquirer,
		Saver:     a.saver,
		Library:   a.library,
		History:   a.history,
		Cache:     a.cache,
	}, v1.Config{CacheTTL: a.cfg.Metadata.CacheTTL}, a.log)
}

// withApp loads config, builds the app and runs fn with it.
func withApp(fn func(a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return fn(a)
}
