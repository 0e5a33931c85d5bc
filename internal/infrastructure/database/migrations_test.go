package database

import (
	"context"
	"testing"
	"testing/fstest"
)

func withMigrations(t *testing.T, files fstest.MapFS) {
	t.Helper()
	origFS, origDir := MigrationsFS, MigrationsDir
	t.Cleanup(func() {
		MigrationsFS, MigrationsDir = origFS, origDir
	})
	MigrationsFS = files
	MigrationsDir = "."
}

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"001_entries.up.sql":   {Data: []byte("CREATE TABLE entries (key TEXT PRIMARY KEY, value TEXT);")},
		"001_entries.down.sql": {Data: []byte("DROP TABLE entries;")},
		"002_notes.up.sql":     {Data: []byte("CREATE TABLE notes (id INTEGER PRIMARY KEY);")},
		"002_notes.down.sql":   {Data: []byte("DROP TABLE notes;")},
		"README.md":            {Data: []byte("ignored")},
	}
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var got string
	err := db.QueryRowContext(context.Background(),
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&got)
	return err == nil
}

func TestMigrate(t *testing.T) {
	withMigrations(t, testMigrations())
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	for _, table := range []string{"entries", "notes"} {
		if !tableExists(t, db, table) {
			t.Errorf("table %s not created", table)
		}
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("expected 2 applied migrations, got %d", len(applied))
	}
	if len(pending) != 0 {
		t.Errorf("expected 0 pending migrations, got %d", len(pending))
	}

	// Second run is a no-op.
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	withMigrations(t, testMigrations())
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}

	if tableExists(t, db, "notes") {
		t.Error("notes table should be dropped")
	}
	if !tableExists(t, db, "entries") {
		t.Error("entries table should remain")
	}

	_, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(pending) != 1 || pending[0].Version != "002" {
		t.Errorf("pending = %+v, want only 002", pending)
	}
}

func TestMigrate_FailureRollsBackThatMigration(t *testing.T) {
	files := testMigrations()
	files["003_broken.up.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE broken (;")}
	withMigrations(t, files)
	db := openTestDB(t)

	if err := db.Migrate(context.Background()); err == nil {
		t.Fatal("Migrate() should fail on broken SQL")
	}
	if !tableExists(t, db, "notes") {
		t.Error("migrations before the failure should stay applied")
	}
}

func TestMigrate_NoFS(t *testing.T) {
	origFS := MigrationsFS
	t.Cleanup(func() { MigrationsFS = origFS })
	MigrationsFS = nil

	db := openTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Errorf("Migrate() with no files error = %v", err)
	}
}

func TestLoadMigrations_MissingUp(t *testing.T) {
	withMigrations(t, fstest.MapFS{
		"001_orphan.down.sql": {Data: []byte("DROP TABLE x;")},
	})
	if _, err := loadMigrations(); err == nil {
		t.Error("loadMigrations() should reject a down file without an up file")
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		file        string
		wantVersion string
		wantName    string
		wantUp      bool
		wantOK      bool
	}{
		{"001_cache_entries.up.sql", "001", "cache_entries", true, true},
		{"002_auth.down.sql", "002", "auth", false, true},
		{"003.up.sql", "", "", false, false},
		{"004_x.sql", "", "", false, false},
		{"notes.txt", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			v, n, up, ok := parseMigrationFilename(tt.file)
			if v != tt.wantVersion || n != tt.wantName || up != tt.wantUp || ok != tt.wantOK {
				t.Errorf("parseMigrationFilename(%q) = (%q, %q, %v, %v), want (%q, %q, %v, %v)",
					tt.file, v, n, up, ok, tt.wantVersion, tt.wantName, tt.wantUp, tt.wantOK)
			}
		})
	}
}
