package resolver

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AliasEntry maps a raw artist credit to its canonical form. IsNull marks a
// negative cache entry: the raw name was reviewed and has no better form, so
// lookups return it unchanged instead of re-triggering split detection.
type AliasEntry struct {
	ID           string    `json:"id"`
	RawName      string    `json:"raw_name"`
	ResolvedName string    `json:"resolved_name,omitempty"`
	IsVerified   bool      `json:"is_verified"`
	IsNull       bool      `json:"is_null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Canonical returns the name this alias resolves to.
func (a *AliasEntry) Canonical() string {
	if a.IsNull || a.ResolvedName == "" {
		return a.RawName
	}
	return a.ResolvedName
}

// aliasesFor fetches alias entries for the given raw names in one query,
// keyed by raw name.
func (r *Resolver) aliasesFor(ctx context.Context, raws []string) (map[string]*AliasEntry, error) {
	result := make(map[string]*AliasEntry, len(raws))
	if len(raws) == 0 {
		return result, nil
	}

	query := `SELECT id, raw_name, COALESCE(resolved_name, ''), is_verified, is_null, created_at, updated_at
		FROM artist_aliases WHERE raw_name IN (?` + placeholders(len(raws)-1) + `)`
	args := make([]any, len(raws))
	for i, raw := range raws {
		args[i] = raw
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("loading aliases: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		a, err := scanAlias(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning alias: %w", err)
		}
		result[a.RawName] = a
	}
	return result, rows.Err()
}

// GetAlias returns the alias entry for a raw name, or nil when none exists.
func (r *Resolver) GetAlias(ctx context.Context, rawName string) (*AliasEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, raw_name, COALESCE(resolved_name, ''), is_verified, is_null, created_at, updated_at
		FROM artist_aliases WHERE raw_name = ?
	`, rawName)
	a, err := scanAlias(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting alias: %w", err)
	}
	return a, nil
}

// upsertAlias writes a verified alias entry. A nil resolvedName records a
// negative cache entry (is_null). Approval and rejection both land here so
// the same decision is never re-surfaced.
func (r *Resolver) upsertAlias(ctx context.Context, rawName string, resolvedName string, isNull bool) error {
	now := time.Now().UTC().Format(time.RFC3339)
	var resolved any
	if isNull || resolvedName == "" {
		resolved = nil
	} else {
		resolved = resolvedName
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO artist_aliases (id, raw_name, resolved_name, is_verified, is_null, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?, ?)
		ON CONFLICT(raw_name) DO UPDATE SET
			resolved_name = excluded.resolved_name,
			is_verified = 1,
			is_null = excluded.is_null,
			updated_at = excluded.updated_at
	`, uuid.New().String(), rawName, resolved, boolToInt(isNull), now, now)
	if err != nil {
		return fmt.Errorf("upserting alias: %w", err)
	}
	return nil
}

func scanAlias(row interface{ Scan(...any) error }) (*AliasEntry, error) {
	var a AliasEntry
	var verified, isNull int
	var createdAt, updatedAt string
	if err := row.Scan(&a.ID, &a.RawName, &a.ResolvedName, &verified, &isNull, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.IsVerified = verified == 1
	a.IsNull = isNull == 1
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}
