package settings

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

func TestDefaultsWhenUnset(t *testing.T) {
	db := setupTestDB(t)
	svc, err := NewService(context.Background(), db)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if got, want := svc.Thresholds(), DefaultThresholds(); got != want {
		t.Errorf("Thresholds = %+v, want defaults %+v", got, want)
	}
}

func TestSetTakesEffectWithoutRestart(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc, err := NewService(ctx, db)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if err := svc.Set(ctx, KeyVectorTitleGuard, "0.9"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := svc.Thresholds().VectorTitleGuard; got != 0.9 {
		t.Errorf("VectorTitleGuard = %f, want 0.9", got)
	}

	// A second service over the same database sees the stored value.
	svc2, err := NewService(ctx, db)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if got := svc2.Thresholds().VectorTitleGuard; got != 0.9 {
		t.Errorf("persisted VectorTitleGuard = %f, want 0.9", got)
	}
}

func TestSetRejectsUnknownKey(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc, err := NewService(ctx, db)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if err := svc.Set(ctx, "matching.bogus", "0.5"); err == nil {
		t.Error("expected error for unknown key")
	}
	if err := svc.Set(ctx, KeyAliasTitleScore, "not-a-number"); err == nil {
		t.Error("expected error for non-numeric value")
	}
}

func TestSetRejectsFractionForIntegerKey(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc, err := NewService(ctx, db)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if err := svc.Set(ctx, KeyPromoteMinOccurrence, "2.5"); err == nil {
		t.Fatal("expected error for fractional value on an integer key")
	}

	// The rejected value must not reach the table.
	stored, err := svc.Get(ctx, KeyPromoteMinOccurrence)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored != "" {
		t.Errorf("rejected value was persisted: %q", stored)
	}
	if got := svc.Thresholds().PromoteMinOccurrence; got != DefaultThresholds().PromoteMinOccurrence {
		t.Errorf("PromoteMinOccurrence = %d, want default", got)
	}

	// A fresh service over the same database must still start.
	svc2, err := NewService(ctx, db)
	if err != nil {
		t.Fatalf("NewService after rejected Set: %v", err)
	}
	if got := svc2.Thresholds().SearchLimit; got != DefaultThresholds().SearchLimit {
		t.Errorf("SearchLimit = %d, want default", got)
	}
}
