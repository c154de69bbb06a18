package migration

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

// setupTestMigrations builds an in-memory migrations directory
func setupTestMigrations(t *testing.T, files map[string]string) fstest.MapFS {
	t.Helper()
	fsys := fstest.MapFS{}
	for name, content := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(content)}
	}
	return fsys
}

func setupSQLiteTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewRunner_RejectsUnknownDriver(t *testing.T) {
	db := setupSQLiteTestDB(t)
	if _, err := NewRunner(db, fstest.MapFS{}, "mysql"); err == nil {
		t.Error("expected error for unsupported driver")
	}
	if _, err := NewRunner(nil, fstest.MapFS{}, DriverSQLite); err == nil {
		t.Error("expected error for nil database")
	}
}

func TestApplyMigrations_SQLite(t *testing.T) {
	db := setupSQLiteTestDB(t)
	fsys := setupTestMigrations(t, map[string]string{
		"001_init.sql":     "CREATE TABLE batches (id TEXT PRIMARY KEY);",
		"002_readings.sql": "CREATE TABLE readings (id TEXT PRIMARY KEY, batch_id TEXT NOT NULL);",
		"README.md":        "not a migration",
	})

	runner, err := NewRunner(db, fsys, DriverSQLite)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	var logs []string
	count, err := runner.ApplyMigrations(func(msg string) { logs = append(logs, msg) })
	if err != nil {
		t.Fatalf("ApplyMigrations() error = %v", err)
	}
	if count != 2 {
		t.Errorf("applied %d migrations, want 2", count)
	}
	if len(logs) == 0 {
		t.Error("expected progress messages")
	}

	status, err := runner.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Current != 2 || status.Pending() != 0 {
		t.Errorf("Status() = %+v, want current 2 with nothing pending", status)
	}

	count, err = runner.ApplyMigrations(nil)
	if err != nil || count != 0 {
		t.Errorf("second run = (%d, %v), want (0, nil)", count, err)
	}
}

func TestApplyMigrations_RollsBackFailedMigration(t *testing.T) {
	db := setupSQLiteTestDB(t)
	fsys := setupTestMigrations(t, map[string]string{
		"001_init.sql": "CREATE TABLE batches (id TEXT PRIMARY KEY);",
		"002_bad.sql":  "CREATE TABLE readings (id TEXT PRIMARY KEY); THIS IS NOT SQL;",
	})

	runner, err := NewRunner(db, fsys, DriverSQLite)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	count, err := runner.ApplyMigrations(nil)
	if err == nil {
		t.Fatal("expected error from invalid migration")
	}
	if count != 1 {
		t.Errorf("applied %d migrations before failure, want 1", count)
	}

	version, err := runner.GetCurrentVersion()
	if err != nil {
		t.Fatalf("GetCurrentVersion() error = %v", err)
	}
	if version != 1 {
		t.Errorf("version = %d, want 1", version)
	}
}

func TestReadMigrationFiles_Errors(t *testing.T) {
	db := setupSQLiteTestDB(t)
	tests := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{"bad name", map[string]string{"init.sql": ""}, "invalid migration filename"},
		{"non numeric", map[string]string{"abc_init.sql": ""}, "invalid version number"},
		{"zero", map[string]string{"000_init.sql": ""}, "at least 1"},
		{"duplicate", map[string]string{"001_a.sql": "", "01_b.sql": ""}, "duplicate migration version"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner, err := NewRunner(db, setupTestMigrations(t, tt.files), DriverSQLite)
			if err != nil {
				t.Fatalf("NewRunner() error = %v", err)
			}
			_, err = runner.ReadMigrationFiles()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ReadMigrationFiles() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateVersion_NewerDatabase(t *testing.T) {
	db := setupSQLiteTestDB(t)
	runner, err := NewRunner(db, setupTestMigrations(t, map[string]string{
		"001_init.sql": "CREATE TABLE batches (id TEXT PRIMARY KEY);",
	}), DriverSQLite)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	if err := runner.SetVersion(5); err != nil {
		t.Fatalf("SetVersion() error = %v", err)
	}
	if err := runner.ValidateVersion(); err == nil || !strings.Contains(err.Error(), "newer") {
		t.Errorf("ValidateVersion() error = %v, want newer-schema error", err)
	}
}
