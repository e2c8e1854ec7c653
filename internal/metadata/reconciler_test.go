package metadata

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vmunix/vidvault/internal/extractor"
	extmocks "github.com/vmunix/vidvault/internal/extractor/mocks"
	"github.com/vmunix/vidvault/internal/library"
)

const testURL = "https://example.com/watch?v=abc123"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func int64p(v int64) *int64 { return &v }

func sourceInfo() *extractor.Info {
	dur := 612.5
	return &extractor.Info{
		ID:          "abc123",
		Title:       "Learning Python Decorators",
		Description: "From the source",
		Uploader:    "gopherlabs",
		ChannelID:   "UC123",
		Categories:  []string{"Education", "Howto"},
		Tags:        []string{"python", "decorators", "python", " ", "tutorial"},
		ViewCount:   int64p(1000),
		LikeCount:   int64p(50),
		Duration:    &dur,
		UploadDate:  "20240101",
	}
}

func newTestReconciler(t *testing.T) (*Reconciler, *extmocks.MockExtractor) {
	t.Helper()
	ext := extmocks.NewMockExtractor(gomock.NewController(t))
	return NewReconciler(ext, nil, DefaultConfig(), testLogger()), ext
}

func TestReconcile_FillsGapsFromProbe(t *testing.T) {
	r, ext := newTestReconciler(t)
	ext.EXPECT().Probe(gomock.Any(), testURL).Return(sourceInfo(), nil)

	res := r.Reconcile(context.Background(), Input{SourceURL: testURL, Title: "My own title"})

	assert.Equal(t, "My own title", res.Title)
	assert.Equal(t, "abc123", res.SourceID)
	assert.NoError(t, res.FetchErr)
	assert.Equal(t, "From the source", res.Metadata.Description)
	assert.Equal(t, "Education", res.Metadata.Category, "first source category")
	assert.Equal(t, []string{"python", "decorators", "tutorial"}, res.Metadata.Tags)
	assert.Equal(t, int64(1000), *res.Metadata.ViewCount)
	assert.Equal(t, 612.5, *res.Metadata.Duration)
	assert.Nil(t, res.Metadata.DislikeCount, "absent in the source stays unset")
	assert.Contains(t, res.Synced, "view_count")
	assert.NotContains(t, res.Synced, "video_page_name")
}

func TestReconcile_CallerFieldsWin(t *testing.T) {
	r, ext := newTestReconciler(t)
	ext.EXPECT().Probe(gomock.Any(), testURL).Return(sourceInfo(), nil)

	res := r.Reconcile(context.Background(), Input{
		SourceURL: testURL,
		Title:     "Custom",
		Fields: library.Metadata{
			Description: "mine",
			Category:    "Music",
			Tags:        []string{"keep"},
			ViewCount:   int64p(0),
		},
	})

	assert.Equal(t, "Custom", res.Title)
	assert.Equal(t, "mine", res.Metadata.Description)
	assert.Equal(t, "Music", res.Metadata.Category)
	assert.Equal(t, []string{"keep"}, res.Metadata.Tags)
	assert.Equal(t, int64(0), *res.Metadata.ViewCount, "an explicit zero is a supplied value")
	assert.Equal(t, "gopherlabs", res.Metadata.Uploader)
	assert.NotContains(t, res.Synced, "description")
}

func TestReconcile_PlaceholderTitles(t *testing.T) {
	tests := []struct {
		name   string
		caller string
		source *extractor.Info
		want   string
	}{
		{"empty uses source title", "", &extractor.Info{ID: "x1", Title: "Real title"}, "Real title"},
		{"generic uses source title", "Unknown Video", &extractor.Info{ID: "x1", Title: "Real title"}, "Real title"},
		{"prefix placeholder", "YouTube Video #42", &extractor.Info{ID: "x1", Title: "Real title"}, "Real title"},
		{"too short", "ab", &extractor.Info{ID: "x1", Title: "Real title"}, "Real title"},
		{"generic source falls back to id", "", &extractor.Info{ID: "x1", Title: "youtube video #7"}, "Video_x1"},
		{"short source falls back to id", " ", &extractor.Info{ID: "x1", Title: "ok"}, "Video_x1"},
		{"no id", "", &extractor.Info{Title: ""}, FallbackTitle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ext := newTestReconciler(t)
			ext.EXPECT().Probe(gomock.Any(), testURL).Return(tt.source, nil)

			res := r.Reconcile(context.Background(), Input{SourceURL: testURL, Title: tt.caller})
			assert.Equal(t, tt.want, res.Title)
		})
	}
}

func TestReconcile_ProbeFailureKeepsGaps(t *testing.T) {
	r, ext := newTestReconciler(t)
	ext.EXPECT().Probe(gomock.Any(), testURL).Return(nil, extractor.ErrTimeout)

	res := r.Reconcile(context.Background(), Input{
		SourceURL: testURL,
		Fields:    library.Metadata{Uploader: "me"},
	})

	assert.Equal(t, FallbackTitle, res.Title)
	assert.Equal(t, "me", res.Metadata.Uploader)
	assert.Empty(t, res.Metadata.Description)
	assert.Nil(t, res.Metadata.ViewCount)
	require.Error(t, res.FetchErr)
	assert.True(t, errors.Is(res.FetchErr, ErrFetchFailed))
	assert.True(t, errors.Is(res.FetchErr, extractor.ErrTimeout))
}

func TestReconcile_NoGapsSkipsProbe(t *testing.T) {
	r, _ := newTestReconciler(t) // any Probe call fails the test
	rating, dur, age := 4.5, 10.0, 0

	full := library.Metadata{
		Description: "d", Category: "c", Tags: []string{"t"},
		ViewCount: int64p(1), LikeCount: int64p(1), DislikeCount: int64p(1), CommentCount: int64p(1),
		AverageRating: &rating, Uploader: "u", ChannelID: "ci", ChannelURL: "cu",
		UploadDate: "20240101", Duration: &dur, AgeLimit: &age,
	}
	res := r.Reconcile(context.Background(), Input{SourceURL: testURL, Title: "Complete", Fields: full})

	assert.Equal(t, "Complete", res.Title)
	assert.Equal(t, full, res.Metadata)
	assert.Empty(t, res.Synced)
}

func TestReconcile_PrefersSuppliedAnalysis(t *testing.T) {
	r, _ := newTestReconciler(t)

	res := r.Reconcile(context.Background(), Input{SourceURL: testURL, Analysis: sourceInfo()})

	assert.Equal(t, "Learning Python Decorators", res.Title)
	assert.Contains(t, res.Synced, "video_page_name")
	assert.Equal(t, "gopherlabs", res.Metadata.Uploader)
}

func TestReconcile_UsesCachedAnalysis(t *testing.T) {
	ext := extmocks.NewMockExtractor(gomock.NewController(t))
	cache := NewCache(setupTestDB(t))
	require.NoError(t, cache.PutInfo(context.Background(), testURL, sourceInfo(), time.Hour))
	r := NewReconciler(ext, cache, DefaultConfig(), testLogger())

	res := r.Reconcile(context.Background(), Input{SourceURL: testURL})

	assert.Equal(t, "Learning Python Decorators", res.Title)
	assert.Equal(t, "abc123", res.SourceID)
}

func TestReconcile_TagCap(t *testing.T) {
	ext := extmocks.NewMockExtractor(gomock.NewController(t))
	cfg := DefaultConfig()
	cfg.MaxTags = 2
	r := NewReconciler(ext, nil, cfg, testLogger())
	ext.EXPECT().Probe(gomock.Any(), testURL).Return(sourceInfo(), nil)

	res := r.Reconcile(context.Background(), Input{SourceURL: testURL, Title: "Title"})
	assert.Equal(t, []string{"python", "decorators"}, res.Metadata.Tags)
}

func TestReconcile_DoesNotAliasCallerTags(t *testing.T) {
	r, ext := newTestReconciler(t)
	ext.EXPECT().Probe(gomock.Any(), testURL).Return(sourceInfo(), nil)
	tags := []string{"a"}

	res := r.Reconcile(context.Background(), Input{SourceURL: testURL, Title: "Title", Fields: library.Metadata{Tags: tags}})
	res.Metadata.Tags[0] = "b"

	assert.Equal(t, "a", tags[0])
}

func TestIsPlaceholder(t *testing.T) {
	r := NewReconciler(nil, nil, DefaultConfig(), testLogger())

	for title, want := range map[string]bool{
		"":                   true,
		"  ":                 true,
		"ab":                 true,
		"abc":                false,
		"unknown video":      true,
		"youtube video #123": true,
		"A youtube video #1": false,
		"Gödel":              false,
	} {
		assert.Equal(t, want, r.IsPlaceholder(title), "%q", title)
	}
}
