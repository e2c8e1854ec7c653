package config

import (
	"fmt"

	"github.com/vmunix/vidvault/pkg/quality"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port: must be between 1 and 65535, got %d", c.Server.Port))
	}
	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}

	if c.Paths.StagingDir == "" {
		errs = append(errs, "paths.staging_dir: required")
	}
	if c.Paths.LibraryDir == "" {
		errs = append(errs, "paths.library_dir: required")
	}
	if c.Paths.StagingDir != "" && c.Paths.StagingDir == c.Paths.LibraryDir {
		errs = append(errs, "paths: staging_dir and library_dir must differ")
	}

	if c.Extractor.Binary == "" {
		errs = append(errs, "extractor.binary: required")
	}
	for name, d := range map[string]int64{
		"extractor.analyze_timeout":  int64(c.Extractor.AnalyzeTimeout),
		"extractor.acquire_timeout":  int64(c.Extractor.AcquireTimeout),
		"extractor.metadata_timeout": int64(c.Extractor.MetadataTimeout),
		"muxer.timeout":              int64(c.Muxer.Timeout),
		"metadata.cache_ttl":         int64(c.Metadata.CacheTTL),
	} {
		if d < 0 {
			errs = append(errs, fmt.Sprintf("%s: must be positive", name))
		}
	}
	if c.Extractor.Retries < 0 || c.Extractor.FragmentRetries < 0 {
		errs = append(errs, "extractor.retries: must not be negative")
	}

	if c.Muxer.Binary == "" {
		errs = append(errs, "muxer.binary: required")
	}
	if c.Muxer.AudioSizeRatio < 1 {
		errs = append(errs, fmt.Sprintf("muxer.audio_size_ratio: must be at least 1, got %g", c.Muxer.AudioSizeRatio))
	}
	if c.Metadata.MaxTags < 0 {
		errs = append(errs, fmt.Sprintf("metadata.max_tags: must not be negative, got %d", c.Metadata.MaxTags))
	}

	if err := quality.ValidateBuckets(c.Quality.Buckets); err != nil {
		errs = append(errs, fmt.Sprintf("quality.buckets: %v", err))
	}

	if c.Janitor.Enabled && c.Janitor.MaxAge < 0 {
		errs = append(errs, "janitor.max_age: must be positive")
	}

	return errs
}
