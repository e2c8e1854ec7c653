package history

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err, "open db")
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(db), "apply schema")
	return db
}

func TestStore_Add(t *testing.T) {
	store := NewStore(setupTestDB(t))

	h := &Entry{Run: "r1", Event: EventAcquired, URL: "https://example.com/v"}
	require.NoError(t, store.Add(h))

	assert.NotZero(t, h.ID, "ID should be set after Add")
	assert.False(t, h.CreatedAt.IsZero(), "CreatedAt should be set")
	assert.Equal(t, "{}", h.Data)
}

func TestStore_Record(t *testing.T) {
	store := NewStore(setupTestDB(t))

	require.NoError(t, store.Record("r1", EventMerged, "https://example.com/v", map[string]any{"path": "/tmp/r1_merged.mp4"}))

	entries, err := store.List(Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, EventMerged, entries[0].Event)
	assert.JSONEq(t, `{"path":"/tmp/r1_merged.mp4"}`, entries[0].Data)
}

func TestStore_List(t *testing.T) {
	store := NewStore(setupTestDB(t))

	for _, e := range []struct{ run, event string }{
		{"r1", EventAcquired},
		{"r1", EventSaved},
		{"r2", EventFailed},
		{"r3", EventAcquired},
	} {
		require.NoError(t, store.Record(e.run, e.event, "", nil))
	}

	entries, err := store.List(Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, "r3", entries[0].Run, "most recent first")

	run := "r1"
	entries, err = store.List(Filter{Run: &run})
	require.NoError(t, err, "List by run")
	assert.Len(t, entries, 2)

	event := EventAcquired
	entries, err = store.List(Filter{Event: &event})
	require.NoError(t, err, "List by event")
	assert.Len(t, entries, 2)

	entries, err = store.List(Filter{Limit: 3})
	require.NoError(t, err, "List with limit")
	assert.Len(t, entries, 3)

	entries, err = store.List(Filter{Run: &run, Event: &event})
	require.NoError(t, err, "List by run and event")
	require.Len(t, entries, 1)
	assert.Equal(t, "r1", entries[0].Run)
	assert.Equal(t, EventAcquired, entries[0].Event)
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Record("r1", EventSaved, "u", nil))
	require.NoError(t, store.Close())

	// Reopening reapplies the idempotent schema and keeps rows.
	store, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	entries, err := store.List(Filter{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
