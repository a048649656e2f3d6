package catalog

import (
	"context"
	"database/sql"
	"testing"

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

func TestEnsureArtistDeduplicates(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	a1, err := svc.EnsureArtist(ctx, "Godsmack")
	if err != nil {
		t.Fatalf("EnsureArtist: %v", err)
	}
	a2, err := svc.EnsureArtist(ctx, "GODSMACK")
	if err != nil {
		t.Fatalf("EnsureArtist: %v", err)
	}
	if a1.ID != a2.ID {
		t.Errorf("case variants created distinct artists: %s vs %s", a1.ID, a2.ID)
	}
}

func TestCreateWorkAndGet(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	w, err := svc.CreateWork(ctx, "Voodoo", []string{"Godsmack"})
	if err != nil {
		t.Fatalf("CreateWork: %v", err)
	}

	got, err := svc.GetWork(ctx, w.ID)
	if err != nil {
		t.Fatalf("GetWork: %v", err)
	}
	if got.Title != "Voodoo" {
		t.Errorf("Title = %q, want Voodoo", got.Title)
	}
	if got.TitleClean != "voodoo" {
		t.Errorf("TitleClean = %q, want voodoo", got.TitleClean)
	}
	if got.PrimaryArtist() != "Godsmack" {
		t.Errorf("PrimaryArtist = %q, want Godsmack", got.PrimaryArtist())
	}
}

func TestFindExactMatchesCoArtists(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	if _, err := svc.CreateWork(ctx, "Under Pressure", []string{"Queen", "David Bowie"}); err != nil {
		t.Fatalf("CreateWork: %v", err)
	}

	w, err := svc.FindExact(ctx, "david bowie", "under pressure")
	if err != nil {
		t.Fatalf("FindExact: %v", err)
	}
	if w == nil {
		t.Fatal("expected co-artist lookup to find the work")
	}
	if len(w.Artists) != 2 {
		t.Errorf("loaded %d artists, want 2", len(w.Artists))
	}

	miss, err := svc.FindExact(ctx, "queen", "bohemian rhapsody")
	if err != nil {
		t.Fatalf("FindExact: %v", err)
	}
	if miss != nil {
		t.Errorf("expected nil for unknown title, got %+v", miss)
	}
}

func TestFindExactEmptyInput(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	w, err := svc.FindExact(context.Background(), "", "")
	if err != nil {
		t.Fatalf("FindExact: %v", err)
	}
	if w != nil {
		t.Errorf("expected nil for empty input, got %+v", w)
	}
}

func TestCreateGhostWork(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	w, err := svc.CreateGhostWork(ctx, "Voodoo (Live at Wacken)", []string{"Godsmack"})
	if err != nil {
		t.Fatalf("CreateGhostWork: %v", err)
	}
	if !w.IsGhost {
		t.Error("expected IsGhost to be set")
	}

	recs, err := svc.Recordings(ctx, w.ID)
	if err != nil {
		t.Fatalf("Recordings: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d recordings, want 1 placeholder", len(recs))
	}
	if recs[0].FilePath != "" {
		t.Errorf("placeholder recording has file path %q", recs[0].FilePath)
	}
}
