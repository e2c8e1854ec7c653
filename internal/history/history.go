// Package history records acquisition and save events in SQLite.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/vmunix/vidvault/internal/migrations"
)

// Event types for history records.
const (
	EventAcquired    = "acquired"
	EventMerged      = "merged"
	EventMergeFailed = "merge_failed"
	EventFailed      = "failed"
	EventSaved       = "saved"
)

// Entry represents a history record.
type Entry struct {
	ID        int64     `json:"id"`
	Run       string    `json:"run"`
	Event     string    `json:"event"`
	URL       string    `json:"url"`
	Data      string    `json:"data"` // JSON blob
	CreatedAt time.Time `json:"created_at"`
}

// Filter specifies criteria for listing history.
type Filter struct {
	Run   *string
	Event *string
	Limit int
}

// Store persists history records.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database. The schema must already be applied.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens (creating if needed) the state database at path and applies the schema.
// Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Migrate applies the state database schema. It is idempotent.
func Migrate(db *sql.DB) error {
	if err := migrations.Apply(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// DB returns the underlying database, shared with the metadata cache.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add inserts a new history entry.
func (s *Store) Add(h *Entry) error {
	now := time.Now()
	if h.Data == "" {
		h.Data = "{}"
	}
	result, err := s.db.Exec(`
		INSERT INTO history (run, event, url, data, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		h.Run, h.Event, h.URL, h.Data, now,
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	h.ID = id
	h.CreatedAt = now
	return nil
}

// Record adds an entry whose data is data encoded as JSON.
func (s *Store) Record(run, event, url string, data any) error {
	blob := "{}"
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode history data: %w", err)
		}
		blob = string(b)
	}
	return s.Add(&Entry{Run: run, Event: event, URL: url, Data: blob})
}

// List returns history entries matching the filter.
// Results are ordered by most recent first.
func (s *Store) List(f Filter) ([]*Entry, error) {
	q := sq.Select("id", "run", "event", "url", "data", "created_at").
		From("history").
		OrderBy("created_at DESC", "id DESC")
	if f.Run != nil {
		q = q.Where(sq.Eq{"run": *f.Run})
	}
	if f.Event != nil {
		q = q.Where(sq.Eq{"event": *f.Event})
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build history query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Entry
	for rows.Next() {
		h := &Entry{}
		if err := rows.Scan(&h.ID, &h.Run, &h.Event, &h.URL, &h.Data, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		results = append(results, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	return results, nil
}
