package playlog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

const dropFileBody = "station,played_at,artist,title\n" +
	"WXRT,2026-08-01T10:00:00Z,Godsmack,Voodoo\n"

func TestImportOnceConsumesFile(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dir := t.TempDir()
	path := filepath.Join(dir, "wxrt.csv")
	if err := os.WriteFile(path, []byte(dropFileBody), 0o644); err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(svc, dir, "UNKNOWN", logger, nil)
	w.importOnce(ctx, path)

	n, err := svc.CountUnlinked(ctx)
	if err != nil {
		t.Fatalf("CountUnlinked: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 imported row, got %d", n)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected imported file to be removed")
	}
}

func TestRestartDoesNotReimport(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dir := t.TempDir()
	path := filepath.Join(dir, "wxrt.csv")
	if err := os.WriteFile(path, []byte(dropFileBody), 0o644); err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(svc, dir, "UNKNOWN", logger, nil)
	w.importExisting(ctx)

	// A second watcher over the same directory stands in for a process
	// restart; the consumed file is gone, so nothing imports twice.
	w2 := NewWatcher(svc, dir, "UNKNOWN", logger, nil)
	w2.importExisting(ctx)

	n, err := svc.CountUnlinked(ctx)
	if err != nil {
		t.Fatalf("CountUnlinked: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row after restart, got %d", n)
	}
}

func TestImportFailureKeepsFile(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.csv")
	// Unbalanced quote makes the csv reader fail mid-file.
	if err := os.WriteFile(path, []byte("station,played_at,artist,title\n\"broken\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(svc, dir, "UNKNOWN", logger, nil)
	w.importOnce(ctx, path)

	if _, err := os.Stat(path); err != nil {
		t.Error("expected failed file to stay for a retry")
	}
}
