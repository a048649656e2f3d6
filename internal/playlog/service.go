// Package playlog stores broadcast log rows and imports them from station
// CSV exports, either on demand or from a watched drop directory.
package playlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const logColumns = `id, station, played_at, raw_artist, raw_title, work_id, match_reason, created_at`

// Service provides broadcast log persistence.
type Service struct {
	db *sql.DB
}

// NewService creates a playlog service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Insert stores one broadcast log row.
func (s *Service) Insert(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	e.CreatedAt = now

	var workID any
	if e.WorkID != nil && *e.WorkID != "" {
		workID = *e.WorkID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO broadcast_logs (id, station, played_at, raw_artist, raw_title, work_id, match_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Station, e.PlayedAt.UTC().Format(time.RFC3339), e.RawArtist, e.RawTitle,
		workID, e.MatchReason, now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting broadcast log: %w", err)
	}
	return nil
}

// Unlinked returns every log row with no work linkage, oldest first.
func (s *Service) Unlinked(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+logColumns+` FROM broadcast_logs WHERE work_id IS NULL ORDER BY played_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing unlinked logs: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning broadcast log: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Link attaches a work to a log row, recording how the match was made.
// Rows that are already linked are left untouched.
func (s *Service) Link(ctx context.Context, id, workID, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE broadcast_logs SET work_id = ?, match_reason = ?
		WHERE id = ? AND work_id IS NULL
	`, workID, reason, id)
	if err != nil {
		return fmt.Errorf("linking broadcast log: %w", err)
	}
	return nil
}

// CountUnlinked returns the number of log rows with no work linkage.
func (s *Service) CountUnlinked(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM broadcast_logs WHERE work_id IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting unlinked logs: %w", err)
	}
	return count, nil
}

// ForWork lists the log rows linked to a work, newest first.
func (s *Service) ForWork(ctx context.Context, workID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+logColumns+` FROM broadcast_logs WHERE work_id = ? ORDER BY played_at DESC`, workID)
	if err != nil {
		return nil, fmt.Errorf("listing logs for work: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning broadcast log: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func scanEntry(row interface{ Scan(...any) error }) (*Entry, error) {
	var e Entry
	var playedAt, createdAt string
	var workID sql.NullString
	if err := row.Scan(&e.ID, &e.Station, &playedAt, &e.RawArtist, &e.RawTitle,
		&workID, &e.MatchReason, &createdAt); err != nil {
		return nil, err
	}
	if workID.Valid {
		e.WorkID = &workID.String
	}
	e.PlayedAt = parseTime(playedAt)
	e.CreatedAt = parseTime(createdAt)
	return &e, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
