package acquire

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stage writes files of the given sizes into dir.
func stage(t *testing.T, dir string, files map[string]int) {
	t.Helper()
	for name, size := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0644), "stage %s", name)
	}
}

// historyCall is one recorded history event.
type historyCall struct {
	run, event, url string
}

type fakeRecorder struct {
	calls []historyCall
	err   error
}

func (f *fakeRecorder) Record(run, event, url string, _ any) error {
	f.calls = append(f.calls, historyCall{run, event, url})
	return f.err
}

func (f *fakeRecorder) events() []string {
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.event
	}
	return out
}
