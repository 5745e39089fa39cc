package journal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer j.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		j, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		j.Close()
	}

	j, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer j.Close()

	for _, table := range []string{"sessions", "entries"} {
		var name string
		err := j.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_Pragmas(t *testing.T) {
	j := createTestJournal(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
		{"user_version", "2"},
	}
	for _, tt := range tests {
		if err := verifyPragma(j, tt.name, tt.expected); err != nil {
			t.Error(err)
		}
	}
}

func TestOpen_LabelIndex(t *testing.T) {
	j := createTestJournal(t)

	var name string
	err := j.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_entries_label'",
	).Scan(&name)
	if err != nil {
		t.Errorf("label index missing: %v", err)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	if err == nil {
		t.Error("expected error opening database in missing directory")
	}
}

func TestClose_NilDB(t *testing.T) {
	j := &Journal{}
	if err := j.Close(); err != nil {
		t.Errorf("Close() on empty journal: %v", err)
	}
}

func TestOpen_UpgradesFromFirstVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db := rawDB(t, path)
	if _, err := db.Exec(migrations[0]); err != nil {
		t.Fatalf("seed v1: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 1"); err != nil {
		t.Fatalf("seed v1: %v", err)
	}
	db.Close()

	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer j.Close()

	if err := verifyPragma(j, "user_version", "2"); err != nil {
		t.Error(err)
	}
	var name string
	err = j.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_entries_label'",
	).Scan(&name)
	if err != nil {
		t.Errorf("label index missing after upgrade: %v", err)
	}
}

func TestOpen_RejectsForeignEntriesTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.db")
	db := rawDB(t, path)
	if _, err := db.Exec("CREATE TABLE entries (id INTEGER PRIMARY KEY, body TEXT)"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	db.Close()

	j, err := Open(path)
	if err == nil {
		j.Close()
		t.Fatal("expected Open() to reject a database with a foreign entries table")
	}
	if !errors.Is(err, ErrNotJournal) {
		t.Errorf("Open() error = %v, want ErrNotJournal", err)
	}
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.db")
	db := rawDB(t, path)
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	db.Close()

	_, err := Open(path)
	if !errors.Is(err, ErrNotJournal) {
		t.Errorf("Open() error = %v, want ErrNotJournal", err)
	}
}
