package library

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	staging string
	root    string
	catalog string
	store   *Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := t.TempDir()
	f := &fixture{
		staging: filepath.Join(base, "download_tmp"),
		root:    filepath.Join(base, "video_library"),
	}
	f.catalog = filepath.Join(f.root, "data.json")
	require.NoError(t, os.MkdirAll(f.staging, 0755))
	f.store = f.open(t)
	return f
}

// open returns a fresh Store over the fixture's directories, as a restart would.
func (f *fixture) open(t *testing.T) *Store {
	t.Helper()
	s, err := Open(f.root, f.catalog, testLogger())
	require.NoError(t, err, "open store")

	var n int
	s.newID = func() string {
		n++
		return fmt.Sprintf("id-%d-%d", time.Now().UnixNano(), n)
	}
	return s
}

// stageFile writes a staged file of size bytes and returns its path.
func (f *fixture) stageFile(t *testing.T, name string, size int) string {
	t.Helper()
	p := filepath.Join(f.staging, name)
	require.NoError(t, os.WriteFile(p, make([]byte, size), 0644))
	return p
}

func int64p(v int64) *int64 { return &v }

func float64p(v float64) *float64 { return &v }
