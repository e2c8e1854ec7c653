// Package migrations provides the embedded SQL schema for the state database.
package migrations

import (
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed sql/001_history.sql
var HistorySQL string

//go:embed sql/002_metadata_cache.sql
var MetadataCacheSQL string

// ordered lists every migration in the order it must run.
var ordered = []struct {
	name string
	sql  string
}{
	{"001_history", HistorySQL},
	{"002_metadata_cache", MetadataCacheSQL},
}

// Apply runs every migration. Each statement is idempotent, so Apply is safe on
// an existing database.
func Apply(db *sql.DB) error {
	for _, m := range ordered {
		if _, err := db.Exec(m.sql); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
	}
	return nil
}
