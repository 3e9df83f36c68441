package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"facts", "runs", "run_relations", "rows"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

// Pragma tests

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	want := map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1", // NORMAL
		"busy_timeout": "5000",
		"foreign_keys": "1",
		"user_version": strconv.Itoa(len(migrations)),
	}
	for name, value := range want {
		t.Run(name, func(t *testing.T) {
			got, err := s.pragma(name)
			if err != nil {
				t.Fatal(err)
			}
			if got != value {
				t.Errorf("%s = %q, want %q", name, got, value)
			}
		})
	}
}

// Schema tests

func TestSchema_Columns(t *testing.T) {
	s := createTestStore(t)

	tables := map[string][]string{
		"facts":         {"seq", "relation", "row_json"},
		"runs":          {"id", "program_hash", "engine_version", "format_version", "steps"},
		"run_relations": {"run_id", "relation", "row_count", "digest"},
		"rows":          {"run_id", "relation", "seq", "row_hash", "row_json"},
	}
	for table, expected := range tables {
		columns := getTableColumns(t, s.db, table)
		for _, col := range expected {
			if !slices.Contains(columns, col) {
				t.Errorf("%s table missing column %q", table, col)
			}
		}
	}
}

func TestSchema_MigrationIndexes(t *testing.T) {
	s := createTestStore(t)

	for table, index := range map[string]string{
		"rows":  "idx_rows_run_relation_seq",
		"facts": "idx_facts_relation_seq",
	} {
		indexes := getTableIndexes(t, s.db, table)
		if !slices.Contains(indexes, index) {
			t.Errorf("%s table missing index %s, have %v", table, index, indexes)
		}
	}
}

func TestMigrate_FromVersionZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	// A database written before any migration: bare schema, user_version 0.
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatal(err)
	}
	db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() on v0 database failed: %v", err)
	}
	defer s.Close()

	got, err := s.pragma("user_version")
	if err != nil {
		t.Fatal(err)
	}
	if got != strconv.Itoa(schemaVersion) {
		t.Errorf("user_version = %s, want %d", got, schemaVersion)
	}
	if !slices.Contains(getTableIndexes(t, s.db, "rows"), "idx_rows_run_relation_seq") {
		t.Error("v1 index missing after migration")
	}
}

func TestSchema_RowsRequireRun(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`
		INSERT INTO rows (run_id, relation, seq, row_hash, row_json)
		VALUES ('missing-run', 'edge', 0, 'h', '[1]')
	`)
	if err == nil {
		t.Error("expected foreign key violation for row without run")
	}
}

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue any
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}
