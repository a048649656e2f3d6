package matcher

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"spinlog/internal/bridge"
	"spinlog/internal/catalog"
	"spinlog/internal/event"
)

// Review statuses.
const (
	ReviewStatusPending   = "PENDING"
	ReviewStatusConfirmed = "CONFIRMED"
	ReviewStatusDismissed = "DISMISSED"
)

// Review is a near-miss similarity candidate held for human judgment: the
// scores sat in the alias band, too close to reject silently and too far to
// accept. At most one review exists per signature.
type Review struct {
	ID              string    `json:"id"`
	Signature       string    `json:"signature"`
	RawArtist       string    `json:"raw_artist"`
	RawTitle        string    `json:"raw_title"`
	CandidateWorkID string    `json:"candidate_work_id"`
	ArtistScore     float64   `json:"artist_score"`
	TitleScore      float64   `json:"title_score"`
	Distance        float64   `json:"distance"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ReviewStore persists the review queue. It shares the matcher's database
// handle but is separable for the API layer.
type ReviewStore struct {
	db *sql.DB
}

// NewReviewStore creates a review store.
func NewReviewStore(db *sql.DB) *ReviewStore {
	return &ReviewStore{db: db}
}

func (m *Matcher) flagForReview(ctx context.Context, p Pair, sig string, w *catalog.Work, artistScore, titleScore, distance float64) {
	created, err := m.reviews.enqueue(ctx, sig, p.Artist, p.Title, w.ID, artistScore, titleScore, distance)
	if err != nil {
		m.logger.Error("enqueueing review", "signature", sig, "error", err)
		return
	}
	if !created {
		return
	}
	m.logger.Info("flagged for review",
		"artist", p.Artist, "title", p.Title, "candidate_work", w.ID,
		"artist_score", artistScore, "title_score", titleScore)
	if m.bus != nil {
		m.bus.Publish(event.Event{
			Type: event.ReviewNeeded,
			Data: map[string]any{
				"signature": sig, "raw_artist": p.Artist, "raw_title": p.Title,
				"candidate_work_id": w.ID,
			},
		})
	}
}

// enqueue inserts a pending review unless one already exists for the
// signature. Returns true when a row was created.
func (s *ReviewStore) enqueue(ctx context.Context, sig, rawArtist, rawTitle, workID string, artistScore, titleScore, distance float64) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO review_queue (id, signature, raw_artist, raw_title, candidate_work_id,
			artist_score, title_score, distance, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(signature) DO NOTHING
	`, uuid.New().String(), sig, rawArtist, rawTitle, workID,
		artistScore, titleScore, distance, ReviewStatusPending, now, now)
	if err != nil {
		return false, fmt.Errorf("inserting review: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking review insert: %w", err)
	}
	return n > 0, nil
}

// Pending lists reviews awaiting judgment, oldest first.
func (s *ReviewStore) Pending(ctx context.Context) ([]Review, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, signature, raw_artist, raw_title, candidate_work_id,
			artist_score, title_score, distance, status, created_at, updated_at
		FROM review_queue WHERE status = ? ORDER BY created_at
	`, ReviewStatusPending)
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var reviews []Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning review: %w", err)
		}
		reviews = append(reviews, *r)
	}
	return reviews, rows.Err()
}

// Get returns a review by id, or nil when absent.
func (s *ReviewStore) Get(ctx context.Context, id string) (*Review, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, signature, raw_artist, raw_title, candidate_work_id,
			artist_score, title_score, distance, status, created_at, updated_at
		FROM review_queue WHERE id = ?
	`, id)
	r, err := scanReview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting review: %w", err)
	}
	return r, nil
}

// ConfirmReview accepts a pending review: the candidate becomes the
// authoritative mapping via a full-confidence bridge entry, and the review
// is closed.
func (m *Matcher) ConfirmReview(ctx context.Context, reviewID string) error {
	r, err := m.reviews.Get(ctx, reviewID)
	if err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("review not found: %s", reviewID)
	}
	if r.Status != ReviewStatusPending {
		return fmt.Errorf("review %s already %s", reviewID, r.Status)
	}

	err = m.bridge.Record(ctx, r.Signature, r.RawArtist, r.RawTitle, r.CandidateWorkID, 1.0)
	var dup *bridge.ErrDuplicateSignature
	if errors.As(err, &dup) {
		return dup
	}
	if err != nil {
		return err
	}
	return m.reviews.setStatus(ctx, reviewID, ReviewStatusConfirmed)
}

// DismissReview closes a pending review without creating any mapping.
func (m *Matcher) DismissReview(ctx context.Context, reviewID string) error {
	r, err := m.reviews.Get(ctx, reviewID)
	if err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("review not found: %s", reviewID)
	}
	return m.reviews.setStatus(ctx, reviewID, ReviewStatusDismissed)
}

func (s *ReviewStore) setStatus(ctx context.Context, id, status string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`UPDATE review_queue SET status = ?, updated_at = ? WHERE id = ?`,
		status, now, id)
	if err != nil {
		return fmt.Errorf("updating review status: %w", err)
	}
	return nil
}

func scanReview(row interface{ Scan(...any) error }) (*Review, error) {
	var r Review
	var createdAt, updatedAt string
	if err := row.Scan(&r.ID, &r.Signature, &r.RawArtist, &r.RawTitle, &r.CandidateWorkID,
		&r.ArtistScore, &r.TitleScore, &r.Distance, &r.Status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
