// Package bridge implements the identity bridge: a persistent, append-only
// mapping from normalized artist/title signatures to resolved works. An
// active bridge entry is authoritative; revocation is the only mutation.
package bridge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateSignature reports an attempt to record a signature that
// already has an active entry pointing at a different work. This is a
// data-integrity alarm; callers must surface it, not swallow it.
type ErrDuplicateSignature struct {
	Signature      string
	ExistingWorkID string
	NewWorkID      string
}

func (e *ErrDuplicateSignature) Error() string {
	return fmt.Sprintf("active bridge for signature %q already maps to work %s (attempted %s)",
		e.Signature, e.ExistingWorkID, e.NewWorkID)
}

// Entry is one signature-to-work mapping. ReferenceArtist and ReferenceTitle
// preserve the raw strings that produced the signature, for audit.
type Entry struct {
	ID              string    `json:"id"`
	Signature       string    `json:"signature"`
	ReferenceArtist string    `json:"reference_artist"`
	ReferenceTitle  string    `json:"reference_title"`
	WorkID          string    `json:"work_id"`
	Confidence      float64   `json:"confidence"`
	Revoked         bool      `json:"revoked"`
	CreatedAt       time.Time `json:"created_at"`
}

// Store provides bridge entry persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates a bridge store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Lookup returns the work mapped by an active entry for signature. The
// second return is false when no active entry exists; revoked entries are
// invisible here.
func (s *Store) Lookup(ctx context.Context, signature string) (string, bool, error) {
	var workID string
	err := s.db.QueryRowContext(ctx,
		`SELECT work_id FROM identity_bridges WHERE signature = ? AND revoked = 0`,
		signature).Scan(&workID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("bridge lookup: %w", err)
	}
	return workID, true, nil
}

// LookupAll returns the active work mapping for every signature in the
// input, in one query. Signatures with no active entry are absent from the
// result.
func (s *Store) LookupAll(ctx context.Context, signatures []string) (map[string]string, error) {
	result := make(map[string]string, len(signatures))
	if len(signatures) == 0 {
		return result, nil
	}

	query := `SELECT signature, work_id FROM identity_bridges WHERE revoked = 0 AND signature IN (?` +
		repeatPlaceholder(len(signatures)-1) + `)`
	args := make([]any, len(signatures))
	for i, sig := range signatures {
		args[i] = sig
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("bridge batch lookup: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var sig, workID string
		if err := rows.Scan(&sig, &workID); err != nil {
			return nil, fmt.Errorf("scanning bridge row: %w", err)
		}
		result[sig] = workID
	}
	return result, rows.Err()
}

// Record inserts a new active entry mapping signature to workID. When an
// active entry already exists the insert conflicts: if it maps to the same
// work the call is a no-op (a concurrent resolution won the race), otherwise
// *ErrDuplicateSignature is returned.
func (s *Store) Record(ctx context.Context, signature, refArtist, refTitle, workID string, confidence float64) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO identity_bridges (id, signature, reference_artist, reference_title, work_id, confidence, revoked, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?)
	`, uuid.New().String(), signature, refArtist, refTitle, workID, confidence, now)
	if err == nil {
		return nil
	}

	// Unique-constraint conflict: re-read the now-existing row and decide.
	existing, ok, lookupErr := s.Lookup(ctx, signature)
	if lookupErr != nil {
		return fmt.Errorf("recording bridge entry: %w", err)
	}
	if !ok {
		return fmt.Errorf("recording bridge entry: %w", err)
	}
	if existing == workID {
		return nil
	}
	return &ErrDuplicateSignature{Signature: signature, ExistingWorkID: existing, NewWorkID: workID}
}

// Revoke marks the active entry for signature as revoked. The row is kept
// for audit. Revoking a signature with no active entry is a no-op.
func (s *Store) Revoke(ctx context.Context, signature string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE identity_bridges SET revoked = 1 WHERE signature = ? AND revoked = 0`,
		signature)
	if err != nil {
		return fmt.Errorf("revoking bridge entry: %w", err)
	}
	return nil
}

// Get returns the entry (active or revoked) for signature, preferring the
// active one. Returns nil when the signature was never recorded.
func (s *Store) Get(ctx context.Context, signature string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, signature, reference_artist, reference_title, work_id, confidence, revoked, created_at
		FROM identity_bridges WHERE signature = ? ORDER BY revoked, created_at DESC LIMIT 1
	`, signature)

	var e Entry
	var revoked int
	var createdAt string
	err := row.Scan(&e.ID, &e.Signature, &e.ReferenceArtist, &e.ReferenceTitle,
		&e.WorkID, &e.Confidence, &revoked, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting bridge entry: %w", err)
	}
	e.Revoked = revoked == 1
	if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		e.CreatedAt = t
	}
	return &e, nil
}

func repeatPlaceholder(n int) string {
	out := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		out = append(out, ',', '?')
	}
	return string(out)
}
