// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/vmunix/vidvault/pkg/quality"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Paths     PathsConfig     `toml:"paths"`
	Extractor ExtractorConfig `toml:"extractor"`
	Muxer     MuxerConfig     `toml:"muxer"`
	Metadata  MetadataConfig  `toml:"metadata"`
	Quality   QualityConfig   `toml:"quality"`
	Janitor   JanitorConfig   `toml:"janitor"`
}

type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
}

// PathsConfig locates the staging area, the library and its catalog.
// Staging and library must live on the same filesystem so commits are plain renames.
type PathsConfig struct {
	StagingDir  string `toml:"staging_dir"`
	LibraryDir  string `toml:"library_dir"`
	CatalogFile string `toml:"catalog_file"`
	HistoryDB   string `toml:"history_db"`
}

type ExtractorConfig struct {
	Binary          string        `toml:"binary"`
	AnalyzeTimeout  time.Duration `toml:"analyze_timeout"`
	AcquireTimeout  time.Duration `toml:"acquire_timeout"`
	MetadataTimeout time.Duration `toml:"metadata_timeout"`
	Retries         int           `toml:"retries"`
	FragmentRetries int           `toml:"fragment_retries"`
	CookiesFile     string        `toml:"cookies_file"`
	MergeFormat     string        `toml:"merge_format"`
}

type MuxerConfig struct {
	Binary     string        `toml:"binary"`
	Timeout    time.Duration `toml:"timeout"`
	AudioCodec string        `toml:"audio_codec"`
	// AudioSizeRatio is how much larger a clean container must be than a
	// per-stream video artifact before a save prefers it.
	AudioSizeRatio float64 `toml:"audio_size_ratio"`
}

type MetadataConfig struct {
	MaxTags             int      `toml:"max_tags"`
	PlaceholderTitles   []string `toml:"placeholder_titles"`
	PlaceholderPrefixes []string `toml:"placeholder_prefixes"`
	MinTitleLength      int      `toml:"min_title_length"`
	// CacheTTL is how long an analyzed document may stand in for a re-query at save time.
	CacheTTL time.Duration `toml:"cache_ttl"`
}

type QualityConfig struct {
	Buckets []quality.Bucket `toml:"buckets"`
}

type JanitorConfig struct {
	Enabled  bool          `toml:"enabled"`
	Interval time.Duration `toml:"interval"`
	MaxAge   time.Duration `toml:"max_age"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Janitor: JanitorConfig{Enabled: true}}
	cfg.applyDefaults()
	return cfg
}

// Load reads, parses and validates the configuration file.
func Load(path string) (*Config, error) {
	cfg, cfgErr, err := load(path)
	if err != nil {
		return nil, err
	}

	cfgErr.Errors = cfg.Validate()
	if cfgErr.HasErrors() {
		return nil, cfgErr
	}
	return cfg, nil
}

// LoadWithoutValidation reads and parses the configuration without running Validate.
// Unresolved environment variables are still reported.
func LoadWithoutValidation(path string) (*Config, error) {
	cfg, cfgErr, err := load(path)
	if err != nil {
		return nil, err
	}
	if cfgErr.HasErrors() {
		return nil, cfgErr
	}
	return cfg, nil
}

func load(path string) (*Config, *ConfigError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))

	// The janitor is opt-out, so seed it before decoding.
	cfg := Config{Janitor: JanitorConfig{Enabled: true}}
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()

	return &cfg, &ConfigError{Path: path, Missing: missing}, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 6800
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}

	if c.Paths.StagingDir == "" {
		c.Paths.StagingDir = "./download_tmp"
	}
	if c.Paths.LibraryDir == "" {
		c.Paths.LibraryDir = "./video_library"
	}
	if c.Paths.CatalogFile == "" {
		c.Paths.CatalogFile = "data.json"
	}
	if c.Paths.HistoryDB == "" {
		c.Paths.HistoryDB = "./data/history.db"
	}

	if c.Extractor.Binary == "" {
		c.Extractor.Binary = "yt-dlp"
	}
	if c.Extractor.AnalyzeTimeout == 0 {
		c.Extractor.AnalyzeTimeout = 60 * time.Second
	}
	if c.Extractor.AcquireTimeout == 0 {
		c.Extractor.AcquireTimeout = 300 * time.Second
	}
	if c.Extractor.MetadataTimeout == 0 {
		c.Extractor.MetadataTimeout = 30 * time.Second
	}
	if c.Extractor.Retries == 0 {
		c.Extractor.Retries = 3
	}
	if c.Extractor.FragmentRetries == 0 {
		c.Extractor.FragmentRetries = 3
	}
	if c.Extractor.MergeFormat == "" {
		c.Extractor.MergeFormat = "mp4"
	}

	if c.Muxer.Binary == "" {
		c.Muxer.Binary = "ffmpeg"
	}
	if c.Muxer.Timeout == 0 {
		c.Muxer.Timeout = 120 * time.Second
	}
	if c.Muxer.AudioCodec == "" {
		c.Muxer.AudioCodec = "aac"
	}
	if c.Muxer.AudioSizeRatio == 0 {
		c.Muxer.AudioSizeRatio = 1.1
	}

	if c.Metadata.MaxTags == 0 {
		c.Metadata.MaxTags = 15
	}
	if c.Metadata.PlaceholderTitles == nil {
		c.Metadata.PlaceholderTitles = []string{"Unknown Video"}
	}
	if c.Metadata.PlaceholderPrefixes == nil {
		c.Metadata.PlaceholderPrefixes = []string{"youtube video #"}
	}
	if c.Metadata.MinTitleLength == 0 {
		c.Metadata.MinTitleLength = 3
	}
	if c.Metadata.CacheTTL == 0 {
		c.Metadata.CacheTTL = time.Hour
	}

	if len(c.Quality.Buckets) == 0 {
		c.Quality.Buckets = append([]quality.Bucket(nil), quality.DefaultBuckets...)
	}

	if c.Janitor.Interval == 0 {
		c.Janitor.Interval = 15 * time.Minute
	}
	if c.Janitor.MaxAge == 0 {
		c.Janitor.MaxAge = 24 * time.Hour
	}
}

// CatalogPath returns the catalog document path, resolved against the library dir when relative.
func (c *Config) CatalogPath() string {
	if filepath.IsAbs(c.Paths.CatalogFile) {
		return c.Paths.CatalogFile
	}
	return filepath.Join(c.Paths.LibraryDir, c.Paths.CatalogFile)
}

// envVarPattern matches ${VAR}, ${VAR:-default} and ${VAR:?message}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::([-?])([^}]*))?\}`)

// substituteEnvVars replaces environment references and reports the ones that could not be resolved.
// Unresolved references are left in place.
func substituteEnvVars(content string) (string, []string) {
	var missing []string

	lines := strings.SplitAfter(content, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		var lineMissing []string
		lines[i], lineMissing = substituteLine(line)
		missing = append(missing, lineMissing...)
	}
	return strings.Join(lines, ""), missing
}

// substituteLine expands the variable references in one non-comment line.
func substituteLine(line string) (string, []string) {
	var missing []string

	result := envVarPattern.ReplaceAllStringFunc(line, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		name, op, arg := parts[1], parts[2], parts[3]

		value, ok := os.LookupEnv(name)
		switch op {
		case "-":
			if !ok || value == "" {
				return arg
			}
			return value
		case "?":
			if !ok || value == "" {
				missing = append(missing, fmt.Sprintf("%s: %s", name, arg))
				return match
			}
			return value
		default:
			if !ok {
				missing = append(missing, name)
				return match
			}
			return value
		}
	})

	return result, missing
}
