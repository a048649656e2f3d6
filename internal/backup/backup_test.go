package backup

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.ExecContext(context.Background(),
		"CREATE TABLE works (id TEXT PRIMARY KEY, title TEXT)")
	if err != nil {
		t.Fatalf("creating table: %v", err)
	}
	_, err = db.ExecContext(context.Background(),
		"INSERT INTO works (id, title) VALUES ('w1', 'Thunder Road')")
	if err != nil {
		t.Fatalf("inserting row: %v", err)
	}
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSnapshot(t *testing.T) {
	db := setupTestDB(t)
	dir := filepath.Join(t.TempDir(), "snapshots")
	svc := NewService(db, dir, 7, 0, testLogger())

	snap, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Filename == "" {
		t.Error("expected non-empty filename")
	}
	if snap.Size == 0 {
		t.Error("expected non-zero file size")
	}

	// The snapshot must be an openable database holding the same rows.
	snapDB, err := sql.Open("sqlite", filepath.Join(dir, snap.Filename))
	if err != nil {
		t.Fatalf("opening snapshot: %v", err)
	}
	defer snapDB.Close()

	var title string
	err = snapDB.QueryRowContext(context.Background(),
		"SELECT title FROM works WHERE id = 'w1'").Scan(&title)
	if err != nil {
		t.Fatalf("querying snapshot: %v", err)
	}
	if title != "Thunder Road" {
		t.Errorf("expected 'Thunder Road', got %q", title)
	}
}

func TestListSortsNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	dir := filepath.Join(t.TempDir(), "snapshots")
	svc := NewService(db, dir, 7, 0, testLogger())

	for i := 0; i < 3; i++ {
		if _, err := svc.Snapshot(context.Background()); err != nil {
			t.Fatalf("Snapshot %d: %v", i, err)
		}
		time.Sleep(1100 * time.Millisecond) // filenames have second resolution
	}

	snaps, err := svc.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(snaps))
	}
	if !snaps[0].CreatedAt.After(snaps[1].CreatedAt) {
		t.Error("expected snapshots sorted by date descending")
	}
}

func TestPruneByCount(t *testing.T) {
	db := setupTestDB(t)
	dir := filepath.Join(t.TempDir(), "snapshots")
	svc := NewService(db, dir, 2, 0, testLogger())

	for i := 0; i < 4; i++ {
		if _, err := svc.Snapshot(context.Background()); err != nil {
			t.Fatalf("Snapshot %d: %v", i, err)
		}
		time.Sleep(1100 * time.Millisecond)
	}

	if err := svc.Prune(); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	snaps, err := svc.List()
	if err != nil {
		t.Fatalf("List after prune: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots after prune, got %d", len(snaps))
	}
}

func TestPruneByAge(t *testing.T) {
	db := setupTestDB(t)
	dir := filepath.Join(t.TempDir(), "snapshots")
	svc := NewService(db, dir, 100, 30, testLogger())

	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatal(err)
	}

	recentName := "spinlog-" + time.Now().UTC().Format("20060102-150405") + ".db"
	if err := os.WriteFile(filepath.Join(dir, recentName), []byte("recent"), 0o644); err != nil {
		t.Fatal(err)
	}

	oldTime := time.Now().UTC().AddDate(0, 0, -60)
	oldName := "spinlog-" + oldTime.Format("20060102-150405") + ".db"
	if err := os.WriteFile(filepath.Join(dir, oldName), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := svc.Prune(); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	snaps, err := svc.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot after age prune, got %d", len(snaps))
	}
	if snaps[0].Filename != recentName {
		t.Errorf("expected recent snapshot to survive, got %s", snaps[0].Filename)
	}
}

func TestListMissingDir(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, filepath.Join(t.TempDir(), "nonexistent"), 7, 0, testLogger())

	snaps, err := svc.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(snaps) != 0 {
		t.Errorf("expected 0 snapshots, got %d", len(snaps))
	}
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)
	dir := filepath.Join(t.TempDir(), "snapshots")
	svc := NewService(db, dir, 7, 0, testLogger())

	snap, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if err := svc.Delete(snap.Filename); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	snaps, err := svc.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(snaps) != 0 {
		t.Errorf("expected 0 snapshots after delete, got %d", len(snaps))
	}

	if err := svc.Delete("../evil.db"); err == nil {
		t.Error("expected error for invalid filename")
	}
	if err := svc.Delete("spinlog-20260101-000000.db"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestValidFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"valid", "spinlog-20260220-143022.db", true},
		{"path traversal", "../spinlog-20260220-143022.db", false},
		{"backslash", "..\\spinlog-20260220-143022.db", false},
		{"wrong prefix", "backup-20260220-143022.db", false},
		{"wrong extension", "spinlog-20260220-143022.sql", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidFilename(tt.input); got != tt.want {
				t.Errorf("ValidFilename(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
