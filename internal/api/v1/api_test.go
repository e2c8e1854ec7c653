// internal/api/v1/api_test.go
package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vmunix/vidvault/internal/acquire"
	"github.com/vmunix/vidvault/internal/api/v1/mocks"
	"github.com/vmunix/vidvault/internal/extractor"
	extmocks "github.com/vmunix/vidvault/internal/extractor/mocks"
	"github.com/vmunix/vidvault/internal/formats"
	"github.com/vmunix/vidvault/internal/history"
	"github.com/vmunix/vidvault/internal/library"
	"github.com/vmunix/vidvault/internal/metadata"
	"github.com/vmunix/vidvault/internal/saver"
)

const testURL = "https://example.com/watch?v=abc123"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intp(v int) *int       { return &v }
func int64p(v int64) *int64 { return &v }

type apiFixture struct {
	staging   string
	root      string
	extractor *extmocks.MockExtractor
	acquirer  *mocks.MockAcquirer
	library   *library.Store
	history   *history.Store
	cache     *metadata.Cache
	srv       *Server
	handler   http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	base := t.TempDir()

	f := &apiFixture{
		staging:   filepath.Join(base, "download_tmp"),
		root:      filepath.Join(base, "video_library"),
		extractor: extmocks.NewMockExtractor(ctrl),
		acquirer:  mocks.NewMockAcquirer(ctrl),
	}
	require.NoError(t, os.MkdirAll(f.staging, 0755))

	var err error
	f.history, err = history.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.history.Close() })
	f.cache = metadata.NewCache(f.history.DB())

	f.library, err = library.Open(f.root, filepath.Join(f.root, "data.json"), testLogger())
	require.NoError(t, err)

	reconciler := metadata.NewReconciler(f.extractor, f.cache, metadata.DefaultConfig(), testLogger())
	f.srv, err = New(ServerDeps{
		Extractor: f.extractor,
		Formats:   formats.NewBuilder(nil),
		Acquirer:  f.acquirer,
		Saver:     saver.New(acquire.NewLocator(f.staging, 0), reconciler, f.library, f.history, testLogger()),
		Library:   f.library,
		History:   f.history,
		Cache:     f.cache,
	}, Config{}, testLogger())
	require.NoError(t, err)
	f.handler = f.srv.Handler()
	return f
}

func (f *apiFixture) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) stage(t *testing.T, name string, size int) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.staging, name), bytes.Repeat([]byte{'x'}, size), 0644))
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func sampleInfo() *extractor.Info {
	return &extractor.Info{
		ID:          "abc123",
		Title:       "Python Decorators Explained",
		WebpageURL:  testURL,
		Uploader:    "gopherlabs",
		Description: "All about decorators",
		Categories:  []string{"Education"},
		Tags:        []string{"python", "decorators", "python"},
		ViewCount:   int64p(1500),
		AgeLimit:    intp(0),
		Formats: []extractor.Format{
			{FormatID: "18", Ext: "mp4", VCodec: "avc1", Width: intp(640), Height: intp(360)},
			{FormatID: "140", Ext: "m4a", VCodec: "none", ACodec: "mp4a"},
			{FormatID: "137", Ext: "mp4", VCodec: "avc1", Width: intp(1920), Height: intp(1080)},
			{FormatID: "160", Ext: "mp4", VCodec: "avc1", Width: intp(256), Height: intp(144)},
		},
	}
}

func TestNew_MissingDependency(t *testing.T) {
	_, err := New(ServerDeps{}, Config{}, nil)
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestAnalyze(t *testing.T) {
	f := newAPIFixture(t)
	f.extractor.EXPECT().Analyze(gomock.Any(), testURL).Return([]*extractor.Info{sampleInfo()}, nil)

	w := f.do(t, http.MethodPost, "/videopage_analyze", urlRequest{URL: testURL})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[analyzeResponse](t, w)
	assert.Equal(t, 1, resp.VideosFound)
	require.Len(t, resp.Videos, 1)
	v := resp.Videos[0]
	assert.Equal(t, "Python Decorators Explained", v.Title)
	require.Len(t, v.Formats, 2, "audio-only and sub-360p formats are dropped")
	assert.Equal(t, "137", v.Formats[0].FormatID)
	assert.Equal(t, "1080p", v.Formats[0].Quality)
	assert.Equal(t, "18", v.Formats[1].FormatID)

	cached, ok := f.cache.Info(context.Background(), testURL)
	require.True(t, ok, "analysis is cached for a later save")
	assert.Equal(t, "abc123", cached.ID)
}

func TestAnalyze_BadRequests(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/videopage_analyze", urlRequest{URL: "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/videopage_analyze", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_JSON", decode[errorResponse](t, rec).Code)

	w = f.do(t, http.MethodGet, "/videopage_analyze", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestNewValidator_NotBlank(t *testing.T) {
	v := newValidator()

	require.NotPanics(t, func() {
		assert.NoError(t, v.Struct(&urlRequest{URL: "https://example.com/v"}))
	})
	assert.Error(t, v.Struct(&urlRequest{URL: ""}))
	assert.Error(t, v.Struct(&urlRequest{URL: " \t "}))
	assert.NoError(t, v.Struct(&downloadRequest{URL: testURL, FormatID: "137"}))
	assert.NoError(t, v.Struct(&saveRequest{VideoURL: testURL, FileName: "tok.mp4"}))
}

func TestRequestValidation(t *testing.T) {
	tests := []struct {
		name string
		path string
		body any
		want string
	}{
		{"blank url", "/videopage_metadata", urlRequest{URL: " "}, "url is required"},
		{"missing format", "/videopage_download", downloadRequest{URL: testURL}, "format_id is required"},
		{"save missing both", "/videopage_save", saveRequest{}, "video_url is required; video_file_name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t)

			w := f.do(t, http.MethodPost, tt.path, tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			resp := decode[errorResponse](t, w)
			assert.Equal(t, "INVALID_REQUEST", resp.Code)
			assert.Equal(t, tt.want, resp.Error)
		})
	}
}

func TestAnalyze_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"rate limited", &extractor.ExtractionError{Kind: extractor.KindRateLimited, Stage: "analyze", ExitCode: 1}, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"age restricted", &extractor.ExtractionError{Kind: extractor.KindAgeRestricted, Stage: "analyze", ExitCode: 1}, http.StatusForbidden, "AGE_RESTRICTED"},
		{"unavailable", &extractor.ExtractionError{Kind: extractor.KindUnavailable, Stage: "analyze", ExitCode: 1}, http.StatusNotFound, "UNAVAILABLE"},
		{"scheduled live", &extractor.ExtractionError{Kind: extractor.KindScheduledLive, Stage: "analyze", ExitCode: 1}, http.StatusConflict, "SCHEDULED_LIVE"},
		{"generic", &extractor.ExtractionError{Kind: extractor.KindGeneric, Stage: "analyze", ExitCode: 2, Diagnostic: "ERROR: boom"}, http.StatusBadRequest, "EXTRACTION_FAILED"},
		{"timeout", fmt.Errorf("analyze after 1m0s: %w", extractor.ErrTimeout), http.StatusRequestTimeout, "TIMEOUT"},
		{"other", errors.New("exec: not found"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t)
			f.extractor.EXPECT().Analyze(gomock.Any(), testURL).Return(nil, tt.err)

			w := f.do(t, http.MethodPost, "/videopage_analyze", urlRequest{URL: testURL})
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode[errorResponse](t, w).Code)
		})
	}
}

func TestClassify_PipelineErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("acquire x (resolve): %w", acquire.ErrArtifactNotFound), http.StatusInternalServerError},
		{fmt.Errorf("%w: rename", library.ErrIO), http.StatusInternalServerError},
		{fmt.Errorf("entry x: %w", library.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: sort_by", library.ErrInvalidQuery), http.StatusBadRequest},
		{fmt.Errorf("%w: url", acquire.ErrInvalidRequest), http.StatusBadRequest},
		{fmt.Errorf("%q: %w", "..", library.ErrPathTraversal), http.StatusBadRequest},
	}
	for _, tt := range tests {
		status, _, _ := classify(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
	}
}

func TestMetadata(t *testing.T) {
	f := newAPIFixture(t)
	f.extractor.EXPECT().Probe(gomock.Any(), testURL).Return(sampleInfo(), nil)

	w := f.do(t, http.MethodPost, "/videopage_metadata", urlRequest{URL: testURL})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[metadataResponse](t, w)
	assert.Equal(t, []string{"python", "decorators"}, resp.Metadata.AvailableTags)
	assert.Equal(t, []string{"Education"}, resp.Metadata.Categories)
	assert.Equal(t, int64(1500), *resp.Metadata.ViewCount)
	require.NotNil(t, resp.Metadata.AgeLimit)
	assert.Equal(t, 0, *resp.Metadata.AgeLimit)
}

func TestDownload(t *testing.T) {
	f := newAPIFixture(t)
	f.acquirer.EXPECT().
		Acquire(gomock.Any(), acquire.Request{URL: testURL, FormatID: "137"}).
		Return(&acquire.Result{Token: "r1", FileName: "r1_merged.mp4", Size: 900, Merged: true, URL: testURL, FormatID: "137"}, nil)

	w := f.do(t, http.MethodPost, "/videopage_download", downloadRequest{URL: testURL, FormatID: " 137 "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Video download completed", resp["message"])
	assert.Equal(t, "r1", resp["download_id"])
	assert.Equal(t, "r1_merged.mp4", resp["filename"])
	assert.Equal(t, true, resp["merged"])
}

func TestDownload_Failure(t *testing.T) {
	f := newAPIFixture(t)
	f.acquirer.EXPECT().Acquire(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("acquire %s (resolve): %w", testURL, acquire.ErrArtifactNotFound))

	w := f.do(t, http.MethodPost, "/videopage_download", downloadRequest{URL: testURL, FormatID: "137"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "ARTIFACT_NOT_FOUND", decode[errorResponse](t, w).Code)
}

func TestSave_EndToEnd(t *testing.T) {
	f := newAPIFixture(t)
	f.stage(t, "r1_merged.mp4", 2048)
	f.stage(t, "r1.webp", 16)
	f.extractor.EXPECT().Probe(gomock.Any(), testURL).Return(sampleInfo(), nil)

	w := f.do(t, http.MethodPost, "/videopage_save", map[string]any{
		"video_url":       testURL,
		"video_page_name": "My decorators notes",
		"video_file_name": "r1_merged.mp4",
		"selected_tags":   []string{"python", "notes"},
		"view_count":      7,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[saveResponse](t, w)
	assert.Equal(t, "My decorators notes", resp.Title)
	assert.Equal(t, int64(2048), resp.FileSize)
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "/video_library/"+resp.ID+".webp", resp.ThumbnailURL)
	assert.Contains(t, resp.SyncedFields, "uploader")
	assert.Empty(t, resp.MetadataWarning)

	entry, err := f.library.Get(resp.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"python", "notes"}, entry.Tags, "caller tags win")
	assert.Equal(t, int64(7), *entry.ViewCount, "caller counts win")
	assert.Equal(t, "gopherlabs", entry.Uploader)
	assert.Equal(t, "Education", entry.Category)
	assert.Equal(t, "r1_merged.mp4", entry.OriginalFileName)

	// The committed media is served by id and by name.
	w = f.do(t, http.MethodGet, resp.LocalURL, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2048, w.Body.Len())

	w = f.do(t, http.MethodHead, resp.DirectURL, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, resp.ThumbnailURL, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 16, w.Body.Len())

	saved := history.EventSaved
	events, err := f.history.List(history.Filter{Event: &saved})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "r1", events[0].Run)
}

func TestSave_UsesCachedAnalysis(t *testing.T) {
	f := newAPIFixture(t)
	f.stage(t, "r2.mp4", 10)
	require.NoError(t, f.cache.PutInfo(context.Background(), testURL, sampleInfo(), time.Hour))

	w := f.do(t, http.MethodPost, "/videopage_save", map[string]any{
		"video_url":       testURL,
		"video_file_name": "r2.mp4",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[saveResponse](t, w)
	assert.Equal(t, "Python Decorators Explained", resp.Title, "placeholder title replaced from the source")
}

func TestSave_MetadataFetchFailureStillSaves(t *testing.T) {
	f := newAPIFixture(t)
	f.stage(t, "r3.mp4", 10)
	f.extractor.EXPECT().Probe(gomock.Any(), testURL).Return(nil, extractor.ErrTimeout)

	w := f.do(t, http.MethodPost, "/videopage_save", map[string]any{
		"video_url":       testURL,
		"video_file_name": "r3.mp4",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[saveResponse](t, w)
	assert.Equal(t, metadata.FallbackTitle, resp.Title)
	assert.NotEmpty(t, resp.MetadataWarning)
}

func TestSave_MissingFile(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/videopage_save", map[string]any{
		"video_url":       testURL,
		"video_file_name": "nope_merged.mp4",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "FILE_NOT_FOUND", decode[errorResponse](t, w).Code)

	w = f.do(t, http.MethodPost, "/videopage_save", map[string]any{"video_url": testURL})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSave_RetryReturnsSavedEntry(t *testing.T) {
	f := newAPIFixture(t)
	f.stage(t, "r4.mp4", 10)
	body := map[string]any{
		"video_url":       testURL,
		"video_page_name": "Kept title",
		"video_file_name": "r4.mp4",
	}
	f.extractor.EXPECT().Probe(gomock.Any(), testURL).Return(sampleInfo(), nil).AnyTimes()

	w := f.do(t, http.MethodPost, "/videopage_save", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode[saveResponse](t, w)

	// The client never saw the first response and sends the save again.
	w = f.do(t, http.MethodPost, "/videopage_save", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	again := decode[saveResponse](t, w)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 1, again.Total, "no duplicate entry")
}

func TestList(t *testing.T) {
	f := newAPIFixture(t)
	for i, tc := range []struct {
		tags  []string
		views int64
	}{
		{[]string{"python"}, 10},
		{[]string{"go"}, 500},
		{[]string{"python", "web"}, 300},
	} {
		name := fmt.Sprintf("run%d.mp4", i)
		f.stage(t, name, 1)
		_, err := f.library.Commit(library.CommitRequest{
			SourceURL: testURL,
			Title:     fmt.Sprintf("video %d", i),
			MediaPath: filepath.Join(f.staging, name),
			Metadata:  library.Metadata{Tags: tc.tags, ViewCount: int64p(tc.views)},
		})
		require.NoError(t, err)
	}

	w := f.do(t, http.MethodGet, "/videopage_list?tag=python&sort_by=view_count&order=desc", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[listResponse](t, w)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.Filtered)
	require.Len(t, resp.Videos, 2)
	assert.Equal(t, "video 2", resp.Videos[0].Title)
	assert.Equal(t, "video 0", resp.Videos[1].Title)
	assert.Equal(t, []string{"go", "python", "web"}, resp.Filters.Tags)

	w = f.do(t, http.MethodGet, "/videopage_list?sort_by=rating", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEntryFile_NotFound(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/videopage_file/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLibraryFile_RejectsTraversal(t *testing.T) {
	f := newAPIFixture(t)

	for _, name := range []string{"../data.json", ".pending", "data.json/.."} {
		req := httptest.NewRequest(http.MethodGet, "/video_library/x", nil)
		req.SetPathValue("filename", name)
		w := httptest.NewRecorder()
		f.srv.libraryFile(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}

	w := f.do(t, http.MethodGet, "/video_library/missing.mp4", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHistory(t *testing.T) {
	f := newAPIFixture(t)
	require.NoError(t, f.history.Record("r1", history.EventAcquired, testURL, nil))
	require.NoError(t, f.history.Record("r2", history.EventFailed, testURL, nil))

	w := f.do(t, http.MethodGet, "/videopage_history?run=r1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []history.Entry `json:"items"`
		Total int             `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, history.EventAcquired, resp.Items[0].Event)
}

func TestHistory_NotConfigured(t *testing.T) {
	f := newAPIFixture(t)
	f.srv.deps.History = nil

	w := httptest.NewRecorder()
	f.srv.requireHistory(f.srv.listHistory)(w, httptest.NewRequest(http.MethodGet, "/videopage_history", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestLogRequests_CapturesStatus(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	h := LogRequests(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
	}), log)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Contains(t, buf.String(), "status=418")
	assert.Contains(t, buf.String(), "path=/x")
}
