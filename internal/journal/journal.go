package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"slices"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotJournal is returned by Open when the file holds tables that do not
// match the session and entry layout.
var ErrNotJournal = errors.New("journal: database is not a commit journal")

// migrations build the journal schema. Entry i moves user_version from i to
// i+1; append only.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id            TEXT PRIMARY KEY,
		feature       TEXT NOT NULL,
		scenario      TEXT NOT NULL DEFAULT '',
		initial_state TEXT NOT NULL,
		created_at    TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS entries (
		session_id TEXT    NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		seq        INTEGER NOT NULL,
		origin     TEXT    NOT NULL CHECK (origin IN ('external', 'effect')),
		label      TEXT    NOT NULL,
		action     TEXT    NOT NULL,
		state      TEXT    NOT NULL,
		PRIMARY KEY (session_id, seq)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_entries_label ON entries(session_id, label);`,
}

// columns each journal table must carry, checked on every Open.
var journalColumns = map[string][]string{
	"sessions": {"created_at", "feature", "id", "initial_state", "scenario"},
	"entries":  {"action", "label", "origin", "seq", "session_id", "state"},
}

// Journal stores sessions of committed actions in SQLite.
type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal at path and brings its schema up to
// date. Opening the same file again is a no-op.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}

	// One writer; appends from a store are already serialized.
	db.SetMaxOpenConns(1)

	if err := checkColumns(db, true); err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	if err := checkColumns(db, false); err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	return &Journal{db: db}, nil
}

// Close releases the database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

func dsn(path string) string {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_synchronous", "NORMAL")
	q.Set("_busy_timeout", "5000")
	q.Set("_foreign_keys", "1")
	return path + "?" + q.Encode()
}

// migrate applies each pending migration in its own transaction together
// with its user_version bump.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("%w: schema version %d is newer than %d", ErrNotJournal, version, len(migrations))
	}

	for v := version; v < len(migrations); v++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
		if _, err := tx.Exec(migrations[v]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
	}
	return nil
}

// checkColumns compares each journal table's columns against the expected
// layout. With allowMissing, absent tables pass.
func checkColumns(db *sql.DB, allowMissing bool) error {
	for table, want := range journalColumns {
		rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
		if err != nil {
			return fmt.Errorf("inspect %s: %w", table, err)
		}
		var got []string
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				rows.Close()
				return fmt.Errorf("inspect %s: %w", table, err)
			}
			got = append(got, name)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("inspect %s: %w", table, err)
		}

		if len(got) == 0 && allowMissing {
			continue
		}
		slices.Sort(got)
		if !slices.Equal(got, want) {
			return fmt.Errorf("%w: table %s has columns %v", ErrNotJournal, table, got)
		}
	}
	return nil
}
