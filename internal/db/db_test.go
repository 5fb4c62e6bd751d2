package db_test

import (
	"path/filepath"
	"testing"

	"github.com/wordsanctuary/guestbook/internal/config"
	"github.com/wordsanctuary/guestbook/internal/db"
)

// TestWALMode verifies that the pragmas appended to the SQLite DSN enable WAL.
func TestWALMode(t *testing.T) {
	dir := t.TempDir()
	gdb, err := db.Open(config.DatabaseConfig{URL: "sqlite:///" + filepath.Join(dir, "wal_test.db")})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	var mode string
	gdb.Raw("PRAGMA journal_mode").Scan(&mode)
	if mode != "wal" {
		t.Errorf("expected journal_mode=wal, got %q", mode)
	}
}

// TestInit_CreatesOutboxIndex verifies that Init creates the composite index
// the replay loop scans by.
func TestInit_CreatesOutboxIndex(t *testing.T) {
	dir := t.TempDir()
	if err := db.Init(config.DatabaseConfig{URL: "sqlite:///" + filepath.Join(dir, "guestbook.db")}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	var names []string
	if err := db.Conn().Raw("SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = 'outbox_entries'").Scan(&names).Error; err != nil {
		t.Fatalf("list indexes: %v", err)
	}
	found := false
	for _, n := range names {
		if n == "idx_outbox_state_created" {
			found = true
		}
	}
	if !found {
		t.Errorf("idx_outbox_state_created missing; found: %v", names)
	}
}

func TestMigrateSheet(t *testing.T) {
	gdb, err := db.Open(config.DatabaseConfig{URL: "sqlite:///" + filepath.Join(t.TempDir(), "sheet.db")})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.MigrateSheet(gdb); err != nil {
		t.Fatalf("MigrateSheet: %v", err)
	}
	if !gdb.Migrator().HasTable("sheet_rows") {
		t.Error("sheet_rows table missing")
	}
}
