package bridge

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"spinlog/internal/catalog"
	"spinlog/internal/database"
	"spinlog/internal/textnorm"
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

func testWork(t *testing.T, db *sql.DB, artist, title string) *catalog.Work {
	t.Helper()
	w, err := catalog.NewService(db).CreateWork(context.Background(), title, []string{artist})
	if err != nil {
		t.Fatalf("CreateWork: %v", err)
	}
	return w
}

func TestRecordAndLookup(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	w := testWork(t, db, "Godsmack", "Voodoo")
	sig := textnorm.Signature("Godsmack", "Voodoo")

	if err := store.Record(ctx, sig, "GODSMACK", "Voodoo (Live)", w.ID, 1.0); err != nil {
		t.Fatalf("Record: %v", err)
	}

	workID, ok, err := store.Lookup(ctx, sig)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok || workID != w.ID {
		t.Errorf("Lookup = (%q, %v), want (%q, true)", workID, ok, w.ID)
	}
}

func TestLookupAbsent(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	_, ok, err := store.Lookup(context.Background(), "nobody::nothing")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Error("expected miss for unknown signature")
	}
}

func TestRevoke(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	w := testWork(t, db, "Godsmack", "Voodoo")
	sig := textnorm.Signature("Godsmack", "Voodoo")
	if err := store.Record(ctx, sig, "Godsmack", "Voodoo", w.ID, 1.0); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Revoke(ctx, sig); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	_, ok, err := store.Lookup(ctx, sig)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Error("revoked entry still visible to Lookup")
	}

	// Row retained for audit.
	e, err := store.Get(ctx, sig)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if e == nil || !e.Revoked {
		t.Errorf("expected revoked audit row, got %+v", e)
	}
}

func TestRecordSameWorkTwiceIsNoop(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	w := testWork(t, db, "Godsmack", "Voodoo")
	sig := textnorm.Signature("Godsmack", "Voodoo")

	if err := store.Record(ctx, sig, "Godsmack", "Voodoo", w.ID, 1.0); err != nil {
		t.Fatalf("first Record: %v", err)
	}
	if err := store.Record(ctx, sig, "godsmack", "voodoo", w.ID, 0.9); err != nil {
		t.Errorf("second Record of same work should be a no-op, got %v", err)
	}
}

func TestRecordConflictingWorkFails(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	w1 := testWork(t, db, "Godsmack", "Voodoo")
	w2 := testWork(t, db, "Godsmack", "Whatever")
	sig := textnorm.Signature("Godsmack", "Voodoo")

	if err := store.Record(ctx, sig, "Godsmack", "Voodoo", w1.ID, 1.0); err != nil {
		t.Fatalf("Record: %v", err)
	}

	err := store.Record(ctx, sig, "Godsmack", "Voodoo", w2.ID, 1.0)
	var dup *ErrDuplicateSignature
	if !errors.As(err, &dup) {
		t.Fatalf("expected ErrDuplicateSignature, got %v", err)
	}
	if dup.ExistingWorkID != w1.ID || dup.NewWorkID != w2.ID {
		t.Errorf("error carries %s/%s, want %s/%s",
			dup.ExistingWorkID, dup.NewWorkID, w1.ID, w2.ID)
	}
}

func TestRecordAfterRevokeCreatesNewActiveEntry(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	w1 := testWork(t, db, "Godsmack", "Voodoo")
	w2 := testWork(t, db, "Godsmack", "Voodoo (Live at Wacken)")
	sig := textnorm.Signature("Godsmack", "Voodoo")

	if err := store.Record(ctx, sig, "Godsmack", "Voodoo", w1.ID, 1.0); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Revoke(ctx, sig); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := store.Record(ctx, sig, "Godsmack", "Voodoo", w2.ID, 0.8); err != nil {
		t.Fatalf("Record after revoke: %v", err)
	}

	workID, ok, err := store.Lookup(ctx, sig)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok || workID != w2.ID {
		t.Errorf("Lookup = (%q, %v), want (%q, true)", workID, ok, w2.ID)
	}
}

func TestLookupAll(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	w := testWork(t, db, "Godsmack", "Voodoo")
	sig := textnorm.Signature("Godsmack", "Voodoo")
	if err := store.Record(ctx, sig, "Godsmack", "Voodoo", w.ID, 1.0); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := store.LookupAll(ctx, []string{sig, "absent::signature"})
	if err != nil {
		t.Fatalf("LookupAll: %v", err)
	}
	if len(got) != 1 || got[sig] != w.ID {
		t.Errorf("LookupAll = %v, want {%q: %q}", got, sig, w.ID)
	}
}
