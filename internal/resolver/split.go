package resolver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"spinlog/internal/event"
)

// Proposal statuses.
const (
	SplitStatusPending  = "PENDING"
	SplitStatusApproved = "APPROVED"
	SplitStatusRejected = "REJECTED"
)

// ProposedSplit is a candidate decomposition of a raw multi-artist credit,
// awaiting human review. At most one exists per raw artist string.
type ProposedSplit struct {
	ID              string    `json:"id"`
	RawArtist       string    `json:"raw_artist"`
	ProposedArtists []string  `json:"proposed_artists"`
	Status          string    `json:"status"`
	Confidence      float64   `json:"confidence"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ensureProposal creates a PENDING proposal for rawArtist unless one already
// exists, in any status. The UNIQUE(raw_artist) constraint guards the
// concurrent first-insert race; a conflict means another resolution already
// proposed it, which is not an error. Returns true when a row was created.
func (r *Resolver) ensureProposal(ctx context.Context, rawArtist string, names []string, confidence float64) (bool, error) {
	payload, err := json.Marshal(names)
	if err != nil {
		return false, fmt.Errorf("encoding proposed artists: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO proposed_splits (id, raw_artist, proposed_artists, status, confidence, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(raw_artist) DO NOTHING
	`, uuid.New().String(), rawArtist, string(payload), SplitStatusPending, confidence, now, now)
	if err != nil {
		return false, fmt.Errorf("creating split proposal: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking split proposal insert: %w", err)
	}
	return n > 0, nil
}

// GetSplit returns the proposal for a raw artist, or nil when none exists.
func (r *Resolver) GetSplit(ctx context.Context, rawArtist string) (*ProposedSplit, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, raw_artist, proposed_artists, status, confidence, created_at, updated_at
		FROM proposed_splits WHERE raw_artist = ?
	`, rawArtist)
	p, err := scanSplit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting split proposal: %w", err)
	}
	return p, nil
}

// PendingSplits lists proposals awaiting review, oldest first.
func (r *Resolver) PendingSplits(ctx context.Context) ([]ProposedSplit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, raw_artist, proposed_artists, status, confidence, created_at, updated_at
		FROM proposed_splits WHERE status = ? ORDER BY created_at
	`, SplitStatusPending)
	if err != nil {
		return nil, fmt.Errorf("listing pending splits: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var splits []ProposedSplit
	for rows.Next() {
		p, err := scanSplit(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning split proposal: %w", err)
		}
		splits = append(splits, *p)
	}
	return splits, rows.Err()
}

// ApproveSplit marks a pending proposal approved and writes a verified alias
// mapping the raw credit to the joined canonical form, so the decision is
// permanent and the split is never re-proposed.
func (r *Resolver) ApproveSplit(ctx context.Context, rawArtist string) error {
	p, err := r.GetSplit(ctx, rawArtist)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("no split proposal for %q", rawArtist)
	}

	canonical := strings.Join(p.ProposedArtists, " & ")
	if err := r.upsertAlias(ctx, rawArtist, canonical, false); err != nil {
		return err
	}
	return r.setSplitStatus(ctx, rawArtist, SplitStatusApproved)
}

// RejectSplit marks a pending proposal rejected and writes a verified
// negative-cache alias so the raw credit resolves to itself from now on.
func (r *Resolver) RejectSplit(ctx context.Context, rawArtist string) error {
	p, err := r.GetSplit(ctx, rawArtist)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("no split proposal for %q", rawArtist)
	}

	if err := r.upsertAlias(ctx, rawArtist, "", true); err != nil {
		return err
	}
	return r.setSplitStatus(ctx, rawArtist, SplitStatusRejected)
}

func (r *Resolver) setSplitStatus(ctx context.Context, rawArtist, status string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.db.ExecContext(ctx,
		`UPDATE proposed_splits SET status = ?, updated_at = ? WHERE raw_artist = ?`,
		status, now, rawArtist)
	if err != nil {
		return fmt.Errorf("updating split status: %w", err)
	}
	return nil
}

func (r *Resolver) publishSplitProposed(rawArtist string, names []string) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(event.Event{
		Type: event.SplitProposed,
		Data: map[string]any{"raw_artist": rawArtist, "proposed": names},
	})
}

func scanSplit(row interface{ Scan(...any) error }) (*ProposedSplit, error) {
	var p ProposedSplit
	var payload string
	var createdAt, updatedAt string
	if err := row.Scan(&p.ID, &p.RawArtist, &payload, &p.Status, &p.Confidence, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &p.ProposedArtists); err != nil {
		return nil, fmt.Errorf("decoding proposed artists: %w", err)
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}
