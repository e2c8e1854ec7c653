package acquire

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vmunix/vidvault/internal/extractor"
	extmocks "github.com/vmunix/vidvault/internal/extractor/mocks"
	"github.com/vmunix/vidvault/internal/history"
	"github.com/vmunix/vidvault/internal/muxer"
	muxmocks "github.com/vmunix/vidvault/internal/muxer/mocks"
)

const testURL = "https://example.com/watch?v=abc"

type acquirerFixture struct {
	dir       string
	extractor *extmocks.MockExtractor
	muxer     *muxmocks.MockMuxer
	history   *fakeRecorder
	acquirer  *Acquirer
}

func newAcquirerFixture(t *testing.T) *acquirerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &acquirerFixture{
		dir:       filepath.Join(t.TempDir(), "staging"),
		extractor: extmocks.NewMockExtractor(ctrl),
		muxer:     muxmocks.NewMockMuxer(ctrl),
		history:   &fakeRecorder{},
	}
	resolver := NewResolver(NewMerger(f.muxer, testLogger()), "mp4", testLogger())
	f.acquirer = New(f.extractor, resolver, f.dir, f.history, testLogger())
	f.acquirer.newRun = func(dir string) *Run { return &Run{Token: "r1", Dir: dir} }
	return f
}

// produce returns a DoAndReturn body that stages files like the extractor would.
func (f *acquirerFixture) produce(t *testing.T, files map[string]int) func(context.Context, extractor.AcquireRequest) error {
	return func(_ context.Context, req extractor.AcquireRequest) error {
		assert.Equal(t, filepath.Join(f.dir, "r1.%(ext)s"), req.OutputTemplate)
		stage(t, f.dir, files)
		return nil
	}
}

func TestAcquirer_PrimarySuccess(t *testing.T) {
	f := newAcquirerFixture(t)

	f.extractor.EXPECT().
		Acquire(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req extractor.AcquireRequest) error {
			assert.Equal(t, "137+bestaudio/best", req.Format)
			assert.Equal(t, testURL, req.URL)
			return f.produce(t, map[string]int{"r1.mp4": 500, "r1.webp": 7})(ctx, req)
		})

	res, err := f.acquirer.Acquire(context.Background(), Request{URL: testURL, FormatID: "137"})
	require.NoError(t, err)

	assert.Equal(t, "r1", res.Token)
	assert.Equal(t, "r1.mp4", res.FileName)
	assert.Equal(t, int64(500), res.Size)
	assert.False(t, res.Merged)
	assert.Equal(t, "r1.webp", res.ThumbnailFileName)
	assert.Equal(t, int64(7), res.ThumbnailSize)
	assert.Equal(t, "137", res.FormatID)
	assert.Equal(t, []string{history.EventAcquired}, f.history.events())
}

func TestAcquirer_FallbackAfterNonZeroExit(t *testing.T) {
	f := newAcquirerFixture(t)

	gomock.InOrder(
		f.extractor.EXPECT().
			Acquire(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req extractor.AcquireRequest) error {
				assert.Equal(t, "137+bestaudio/best", req.Format)
				return &extractor.ExtractionError{Kind: extractor.KindGeneric, Stage: "acquire", ExitCode: 1}
			}),
		f.extractor.EXPECT().
			Acquire(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, req extractor.AcquireRequest) error {
				assert.Equal(t, "137+bestaudio", req.Format)
				return f.produce(t, map[string]int{"r1.f137.mp4": 300, "r1.f140.m4a": 100})(ctx, req)
			}),
	)
	f.muxer.EXPECT().
		Merge(gomock.Any(), gomock.Any(), gomock.Any(), filepath.Join(f.dir, "r1_merged.mp4")).
		DoAndReturn(writeOutput(390))

	res, err := f.acquirer.Acquire(context.Background(), Request{URL: testURL, FormatID: "137"})
	require.NoError(t, err)

	assert.Equal(t, "r1_merged.mp4", res.FileName)
	assert.True(t, res.Merged)
	assert.Equal(t, int64(390), res.Size)
	assert.Empty(t, res.ThumbnailPath)
	assert.Equal(t, []string{history.EventMerged, history.EventAcquired}, f.history.events())
}

func TestAcquirer_BothAttemptsFail(t *testing.T) {
	f := newAcquirerFixture(t)
	xerr := &extractor.ExtractionError{Kind: extractor.KindUnavailable, Stage: "acquire", ExitCode: 1, Diagnostic: "Private video"}

	f.extractor.EXPECT().
		Acquire(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req extractor.AcquireRequest) error {
			stage(t, f.dir, map[string]int{"r1.f137.mp4.part": 10})
			return xerr
		}).
		Times(2)

	_, err := f.acquirer.Acquire(context.Background(), Request{URL: testURL, FormatID: "137"})
	require.Error(t, err)
	assert.ErrorIs(t, err, extractor.ErrUnavailable)
	assert.Contains(t, err.Error(), string(StageFallback))

	assert.NoFileExists(t, filepath.Join(f.dir, "r1.f137.mp4.part"), "failed run is discarded")
	assert.Equal(t, []string{history.EventFailed}, f.history.events())
}

func TestAcquirer_TimeoutIsTerminal(t *testing.T) {
	f := newAcquirerFixture(t)

	f.extractor.EXPECT().
		Acquire(gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("acquire after 5m0s: %w", extractor.ErrTimeout)).
		Times(1)

	_, err := f.acquirer.Acquire(context.Background(), Request{URL: testURL, FormatID: "137"})
	require.Error(t, err)
	assert.ErrorIs(t, err, extractor.ErrTimeout)
	assert.Contains(t, err.Error(), string(StagePrimary))
}

func TestAcquirer_ArtifactNotFound(t *testing.T) {
	f := newAcquirerFixture(t)

	f.extractor.EXPECT().
		Acquire(gomock.Any(), gomock.Any()).
		DoAndReturn(f.produce(t, map[string]int{"r1.webp": 3}))

	_, err := f.acquirer.Acquire(context.Background(), Request{URL: testURL, FormatID: "22"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrArtifactNotFound)
	assert.NoFileExists(t, filepath.Join(f.dir, "r1.webp"))
}

func TestAcquirer_MergeFailureRecorded(t *testing.T) {
	f := newAcquirerFixture(t)

	f.extractor.EXPECT().
		Acquire(gomock.Any(), gomock.Any()).
		DoAndReturn(f.produce(t, map[string]int{"r1.mp4": 200, "r1.m4a": 50}))
	f.muxer.EXPECT().
		Merge(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(muxer.ErrMergeFailed)

	res, err := f.acquirer.Acquire(context.Background(), Request{URL: testURL, FormatID: "22"})
	require.NoError(t, err)
	assert.Equal(t, "r1.mp4", res.FileName)
	assert.False(t, res.Merged)
	assert.FileExists(t, filepath.Join(f.dir, "r1.m4a"))
	assert.Equal(t, []string{history.EventMergeFailed, history.EventAcquired}, f.history.events())
}

func TestAcquirer_HistoryFailureIsNotFatal(t *testing.T) {
	f := newAcquirerFixture(t)
	f.history.err = os.ErrPermission

	f.extractor.EXPECT().
		Acquire(gomock.Any(), gomock.Any()).
		DoAndReturn(f.produce(t, map[string]int{"r1.mp4": 1}))

	_, err := f.acquirer.Acquire(context.Background(), Request{URL: testURL, FormatID: "22"})
	assert.NoError(t, err)
}

func TestAcquirer_InvalidRequest(t *testing.T) {
	f := newAcquirerFixture(t)

	_, err := f.acquirer.Acquire(context.Background(), Request{URL: testURL})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.acquirer.Acquire(context.Background(), Request{FormatID: "22"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestFormatExpressions(t *testing.T) {
	assert.Equal(t, "137+bestaudio/best", PrimaryFormat("137"))
	assert.Equal(t, "137+bestaudio", FallbackFormat("137"))
}
