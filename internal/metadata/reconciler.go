package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/vmunix/vidvault/internal/extractor"
	"github.com/vmunix/vidvault/internal/library"
)

// FallbackTitle is used when neither the caller nor the source offers a usable title.
const FallbackTitle = "Unknown Video"

// Config tunes title and tag handling.
type Config struct {
	MaxTags             int
	PlaceholderTitles   []string
	PlaceholderPrefixes []string
	MinTitleLength      int
}

// DefaultConfig returns the stock placeholder rules.
func DefaultConfig() Config {
	return Config{
		MaxTags:             15,
		PlaceholderTitles:   []string{FallbackTitle},
		PlaceholderPrefixes: []string{"youtube video #"},
		MinTitleLength:      3,
	}
}

// Input is what the caller knows about a video being saved.
type Input struct {
	SourceURL string
	Title     string
	Fields    library.Metadata
	// Analysis is a document fetched earlier for SourceURL, if the caller has one.
	Analysis *extractor.Info
}

// Result is the reconciled title and metadata.
type Result struct {
	Title    string
	Metadata library.Metadata
	// SourceID is the source's own video id, when it was learned.
	SourceID string
	// Synced lists the fields filled from the source, by catalog key.
	Synced []string
	// FetchErr wraps ErrFetchFailed when the source could not be re-queried.
	FetchErr error
}

// Reconciler fills metadata gaps from the source without overriding the caller.
type Reconciler struct {
	ext   extractor.Extractor
	cache *Cache // optional
	cfg   Config
	log   *slog.Logger
}

// NewReconciler creates a reconciler. cache may be nil.
func NewReconciler(ext extractor.Extractor, cache *Cache, cfg Config, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinTitleLength <= 0 {
		cfg.MinTitleLength = DefaultConfig().MinTitleLength
	}
	return &Reconciler{
		ext:   ext,
		cache: cache,
		cfg:   cfg,
		log:   logger.With("component", "metadata"),
	}
}

// Reconcile merges in with the source's metadata. Caller fields win, except a
// placeholder title. The source is consulted only when something is missing:
// first the supplied analysis, then the cache, then a fresh Probe. A failed
// probe leaves the gaps unset; it never fails the reconcile.
func (r *Reconciler) Reconcile(ctx context.Context, in Input) *Result {
	res := &Result{
		Title:    strings.TrimSpace(in.Title),
		Metadata: copyMetadata(in.Fields),
	}
	log := r.log.With("url", in.SourceURL)

	needTitle := r.IsPlaceholder(res.Title)
	if !needTitle && len(missing(res.Metadata)) == 0 {
		log.Debug("caller supplied every field, skipping source query")
		return res
	}

	src := r.source(ctx, in, res)
	if src != nil {
		res.SourceID = src.ID
		res.Synced = r.fill(&res.Metadata, src)
	}
	if needTitle {
		res.Title = r.title(src)
		if src != nil && res.Title == strings.TrimSpace(src.Title) {
			res.Synced = append(res.Synced, "video_page_name")
		}
	}

	log.Info("metadata reconciled",
		"title", res.Title,
		"synced", res.Synced,
		"unset", missing(res.Metadata))
	return res
}

func (r *Reconciler) source(ctx context.Context, in Input, res *Result) *extractor.Info {
	if in.Analysis != nil {
		return in.Analysis
	}
	if in.SourceURL == "" {
		return nil
	}
	if r.cache != nil {
		if info, ok := r.cache.Info(ctx, in.SourceURL); ok {
			r.log.Debug("using cached analysis", "url", in.SourceURL)
			return info
		}
	}

	info, err := r.ext.Probe(ctx, in.SourceURL)
	if err != nil {
		res.FetchErr = fmt.Errorf("%w: %w", ErrFetchFailed, err)
		r.log.Warn("metadata re-query failed, keeping caller fields", "url", in.SourceURL, "error", err)
		return nil
	}
	return info
}

// title picks a replacement for a placeholder caller title.
func (r *Reconciler) title(src *extractor.Info) string {
	if src == nil {
		return FallbackTitle
	}
	if t := strings.TrimSpace(src.Title); !r.IsPlaceholder(t) {
		return t
	}
	if src.ID != "" {
		return "Video_" + src.ID
	}
	return FallbackTitle
}

// IsPlaceholder reports whether title is empty, too short, or a known generic label.
func (r *Reconciler) IsPlaceholder(title string) bool {
	t := strings.TrimSpace(title)
	if t == "" || utf8.RuneCountInString(t) < r.cfg.MinTitleLength {
		return true
	}
	for _, p := range r.cfg.PlaceholderTitles {
		if strings.EqualFold(t, p) {
			return true
		}
	}
	lower := strings.ToLower(t)
	for _, p := range r.cfg.PlaceholderPrefixes {
		if p != "" && strings.HasPrefix(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// fill sets every unset field of m from src and returns the keys it set.
func (r *Reconciler) fill(m *library.Metadata, src *extractor.Info) []string {
	var synced []string
	str := func(key string, dst *string, v string) {
		if strings.TrimSpace(*dst) == "" && strings.TrimSpace(v) != "" {
			*dst = v
			synced = append(synced, key)
		}
	}

	str("description", &m.Description, src.Description)
	str("uploader", &m.Uploader, src.Uploader)
	str("channel_id", &m.ChannelID, src.ChannelID)
	str("channel_url", &m.ChannelURL, src.ChannelURL)
	str("upload_date", &m.UploadDate, src.UploadDate)
	if strings.TrimSpace(m.Category) == "" {
		for _, c := range src.Categories {
			if strings.TrimSpace(c) != "" {
				m.Category = c
				synced = append(synced, "category")
				break
			}
		}
	}
	if len(m.Tags) == 0 {
		if tags := capTags(src.Tags, r.cfg.MaxTags); len(tags) > 0 {
			m.Tags = tags
			synced = append(synced, "selected_tags")
		}
	}

	if fillPtr(&m.ViewCount, src.ViewCount) {
		synced = append(synced, "view_count")
	}
	if fillPtr(&m.LikeCount, src.LikeCount) {
		synced = append(synced, "like_count")
	}
	if fillPtr(&m.DislikeCount, src.DislikeCount) {
		synced = append(synced, "dislike_count")
	}
	if fillPtr(&m.CommentCount, src.CommentCount) {
		synced = append(synced, "comment_count")
	}
	if fillPtr(&m.AverageRating, src.AverageRating) {
		synced = append(synced, "average_rating")
	}
	if fillPtr(&m.Duration, src.Duration) {
		synced = append(synced, "duration")
	}
	if fillPtr(&m.AgeLimit, src.AgeLimit) {
		synced = append(synced, "age_limit")
	}
	return synced
}

func fillPtr[T any](dst **T, v *T) bool {
	if *dst != nil || v == nil {
		return false
	}
	c := *v
	*dst = &c
	return true
}

// capTags drops blanks and duplicates and keeps at most limit tags. limit <= 0 means no cap.
func capTags(tags []string, limit int) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(out, t) {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, t)
	}
	return out
}

// missing lists the catalog keys still unset in m.
func missing(m library.Metadata) []string {
	var keys []string
	for key, unset := range map[string]bool{
		"description":    strings.TrimSpace(m.Description) == "",
		"category":       strings.TrimSpace(m.Category) == "",
		"selected_tags":  len(m.Tags) == 0,
		"view_count":     m.ViewCount == nil,
		"like_count":     m.LikeCount == nil,
		"dislike_count":  m.DislikeCount == nil,
		"comment_count":  m.CommentCount == nil,
		"average_rating": m.AverageRating == nil,
		"uploader":       strings.TrimSpace(m.Uploader) == "",
		"channel_id":     strings.TrimSpace(m.ChannelID) == "",
		"channel_url":    strings.TrimSpace(m.ChannelURL) == "",
		"upload_date":    strings.TrimSpace(m.UploadDate) == "",
		"duration":       m.Duration == nil,
		"age_limit":      m.AgeLimit == nil,
	} {
		if unset {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

func copyMetadata(m library.Metadata) library.Metadata {
	m.Tags = slices.Clone(m.Tags)
	return m
}
