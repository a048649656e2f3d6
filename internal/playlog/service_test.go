package playlog

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"spinlog/internal/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestInsertAndUnlinked(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	e := &Entry{
		Station:   "WXRT",
		PlayedAt:  time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC),
		RawArtist: "GODSMACK",
		RawTitle:  "Voodoo",
	}
	if err := svc.Insert(ctx, e); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	unlinked, err := svc.Unlinked(ctx)
	if err != nil {
		t.Fatalf("Unlinked: %v", err)
	}
	if len(unlinked) != 1 {
		t.Fatalf("got %d unlinked rows, want 1", len(unlinked))
	}
	if unlinked[0].RawArtist != "GODSMACK" {
		t.Errorf("RawArtist = %q, want GODSMACK", unlinked[0].RawArtist)
	}
	if unlinked[0].Linked() {
		t.Error("fresh row should not be linked")
	}
}

func TestLinkLeavesLinkedRowsAlone(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	e := &Entry{Station: "WXRT", PlayedAt: time.Now().UTC(), RawArtist: "A", RawTitle: "B"}
	if err := svc.Insert(ctx, e); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// Works table needs a row for the foreign key.
	now := time.Now().UTC().Format(time.RFC3339)
	for _, id := range []string{"w1", "w2"} {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO works (id, title, title_clean, created_at, updated_at) VALUES (?, 't', 't', ?, ?)`,
			id, now, now); err != nil {
			t.Fatalf("inserting work: %v", err)
		}
	}

	if err := svc.Link(ctx, e.ID, "w1", "Exact Match"); err != nil {
		t.Fatalf("Link: %v", err)
	}
	// Second link attempt must not overwrite.
	if err := svc.Link(ctx, e.ID, "w2", "Vector Match"); err != nil {
		t.Fatalf("Link: %v", err)
	}

	rows, err := svc.ForWork(ctx, "w1")
	if err != nil {
		t.Fatalf("ForWork: %v", err)
	}
	if len(rows) != 1 || rows[0].MatchReason != "Exact Match" {
		t.Errorf("linked row = %+v, want one row kept on w1", rows)
	}

	count, err := svc.CountUnlinked(ctx)
	if err != nil {
		t.Fatalf("CountUnlinked: %v", err)
	}
	if count != 0 {
		t.Errorf("CountUnlinked = %d, want 0", count)
	}
}

func TestImportCSV(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	csv := strings.Join([]string{
		"station,played_at,artist,title",
		"WXRT,2026-03-01 14:30:00,GODSMACK,Voodoo (Live)",
		",2026-03-01 14:35:00,Nirvana,Lithium",
		"WXRT,2026-03-01,,",
	}, "\n")

	result, err := svc.ImportCSV(ctx, strings.NewReader(csv), "KROQ", testLogger(), nil)
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if result.Imported != 2 || result.Skipped != 1 {
		t.Errorf("result = %+v, want 2 imported 1 skipped", result)
	}

	unlinked, err := svc.Unlinked(ctx)
	if err != nil {
		t.Fatalf("Unlinked: %v", err)
	}
	if len(unlinked) != 2 {
		t.Fatalf("got %d rows, want 2", len(unlinked))
	}
	// Blank station falls back to the default.
	if unlinked[1].Station != "KROQ" {
		t.Errorf("Station = %q, want default KROQ", unlinked[1].Station)
	}
}

func TestImportCSVNoHeader(t *testing.T) {
	svc := NewService(setupTestDB(t))

	result, err := svc.ImportCSV(context.Background(),
		strings.NewReader("WXRT,2026-03-01 14:30:00,Tool,Sober\n"), "", testLogger(), nil)
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if result.Imported != 1 {
		t.Errorf("Imported = %d, want 1 (first row is data, not header)", result.Imported)
	}
}
