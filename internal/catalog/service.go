package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"spinlog/internal/textnorm"
)

const workColumns = `id, title, title_clean, is_ghost, created_at, updated_at`

// Service provides catalog data operations over works, recordings, and
// canonical artists.
type Service struct {
	db *sql.DB
}

// NewService creates a catalog service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// EnsureArtist returns the canonical artist row for name, creating it if no
// artist with the same cleaned form exists.
func (s *Service) EnsureArtist(ctx context.Context, name string) (*Artist, error) {
	clean := textnorm.Clean(name)
	if clean == "" {
		return nil, fmt.Errorf("artist name is empty after cleaning: %q", name)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, name_clean, sort_name, created_at, updated_at
		 FROM artists WHERE name_clean = ?`, clean)
	a, err := scanArtist(row)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("looking up artist: %w", err)
	}

	now := time.Now().UTC()
	a = &Artist{
		ID:        uuid.New().String(),
		Name:      name,
		NameClean: clean,
		SortName:  name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO artists (id, name, name_clean, sort_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.Name, a.NameClean, a.SortName,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("creating artist: %w", err)
	}
	return a, nil
}

// CreateWork inserts a work credited to the given artists, creating any
// artists not yet in the catalog. The first name becomes the primary credit.
func (s *Service) CreateWork(ctx context.Context, title string, artistNames []string) (*Work, error) {
	return s.createWork(ctx, title, artistNames, false)
}

// CreateGhostWork inserts a placeholder work with an unlinked placeholder
// recording, so broadcast logs can link to it before any audio exists.
func (s *Service) CreateGhostWork(ctx context.Context, title string, artistNames []string) (*Work, error) {
	w, err := s.createWork(ctx, title, artistNames, true)
	if err != nil {
		return nil, err
	}
	if _, err := s.AddRecording(ctx, w.ID, "", 0, ""); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Service) createWork(ctx context.Context, title string, artistNames []string, ghost bool) (*Work, error) {
	if len(artistNames) == 0 {
		return nil, fmt.Errorf("a work needs at least one credited artist")
	}

	now := time.Now().UTC()
	w := &Work{
		ID:         uuid.New().String(),
		Title:      title,
		TitleClean: textnorm.Clean(title),
		IsGhost:    ghost,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO works (id, title, title_clean, is_ghost, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, w.ID, w.Title, w.TitleClean, boolToInt(ghost),
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("creating work: %w", err)
	}

	for i, name := range artistNames {
		a, err := s.EnsureArtist(ctx, name)
		if err != nil {
			return nil, err
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO work_artists (id, work_id, artist_id, position)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(work_id, artist_id) DO NOTHING
		`, uuid.New().String(), w.ID, a.ID, i)
		if err != nil {
			return nil, fmt.Errorf("crediting artist: %w", err)
		}
		w.Artists = append(w.Artists, *a)
	}
	return w, nil
}

// GetWork retrieves a work with its credited artists loaded.
func (s *Service) GetWork(ctx context.Context, id string) (*Work, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+workColumns+` FROM works WHERE id = ?`, id)
	w, err := scanWork(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("work not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting work: %w", err)
	}
	if err := s.loadArtists(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// FindExact looks up a work whose cleaned title equals cleanTitle and whose
// credited artists (primary or co-artist) include cleanArtist. Returns nil
// when no such work exists.
func (s *Service) FindExact(ctx context.Context, cleanArtist, cleanTitle string) (*Work, error) {
	if cleanArtist == "" || cleanTitle == "" {
		return nil, nil
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+workColumns+` FROM works WHERE title_clean = ? AND id IN (
			SELECT wa.work_id FROM work_artists wa
			JOIN artists a ON a.id = wa.artist_id
			WHERE a.name_clean = ?
		) ORDER BY is_ghost, created_at LIMIT 1
	`, cleanTitle, cleanArtist)
	w, err := scanWork(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("exact lookup: %w", err)
	}
	if err := s.loadArtists(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// ExactKey is a cleaned artist/title pair for batch exact lookup.
type ExactKey struct {
	ArtistClean string
	TitleClean  string
}

// FindExactBatch resolves many exact lookups with a single catalog query.
// Works whose cleaned title matches any requested title are fetched with
// their credited artists, then paired up in memory. Keys with no match are
// absent from the result.
func (s *Service) FindExactBatch(ctx context.Context, keys []ExactKey) (map[ExactKey]*Work, error) {
	result := make(map[ExactKey]*Work, len(keys))
	titles := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k.ArtistClean == "" || k.TitleClean == "" {
			continue
		}
		if _, dup := seen[k.TitleClean]; dup {
			continue
		}
		seen[k.TitleClean] = struct{}{}
		titles = append(titles, k.TitleClean)
	}
	if len(titles) == 0 {
		return result, nil
	}

	query := `SELECT ` + workColumns + ` FROM works WHERE title_clean IN (?` +
		placeholders(len(titles)-1) + `) ORDER BY is_ghost, created_at`
	args := make([]any, len(titles))
	for i, title := range titles {
		args[i] = title
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("batch exact lookup: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var works []*Work
	for rows.Next() {
		w, err := scanWork(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning work: %w", err)
		}
		works = append(works, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, w := range works {
		if err := s.loadArtists(ctx, w); err != nil {
			return nil, err
		}
	}

	for _, k := range keys {
		if _, done := result[k]; done {
			continue
		}
		for _, w := range works {
			if w.TitleClean != k.TitleClean {
				continue
			}
			if creditedTo(w, k.ArtistClean) {
				result[k] = w
				break
			}
		}
	}
	return result, nil
}

func creditedTo(w *Work, artistClean string) bool {
	for _, a := range w.Artists {
		if a.NameClean == artistClean {
			return true
		}
	}
	return false
}

func placeholders(n int) string {
	out := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		out = append(out, ',', '?')
	}
	return string(out)
}

// AllWorks returns every work with artists loaded, ordered by creation time.
// Used to seed the similarity index at startup.
func (s *Service) AllWorks(ctx context.Context) ([]Work, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+workColumns+` FROM works ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing works: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var works []Work
	for rows.Next() {
		w, err := scanWork(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning work: %w", err)
		}
		works = append(works, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range works {
		if err := s.loadArtists(ctx, &works[i]); err != nil {
			return nil, err
		}
	}
	return works, nil
}

// AddRecording attaches a recording to a work. An empty filePath records a
// placeholder.
func (s *Service) AddRecording(ctx context.Context, workID, filePath string, durationSecs int, format string) (*Recording, error) {
	now := time.Now().UTC()
	r := &Recording{
		ID:           uuid.New().String(),
		WorkID:       workID,
		FilePath:     filePath,
		DurationSecs: durationSecs,
		Format:       format,
		CreatedAt:    now,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recordings (id, work_id, file_path, duration_secs, format, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.WorkID, r.FilePath, r.DurationSecs, r.Format, now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("creating recording: %w", err)
	}
	return r, nil
}

// Recordings lists the recordings attached to a work.
func (s *Service) Recordings(ctx context.Context, workID string) ([]Recording, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, work_id, file_path, duration_secs, format, created_at
		FROM recordings WHERE work_id = ? ORDER BY created_at
	`, workID)
	if err != nil {
		return nil, fmt.Errorf("listing recordings: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var recs []Recording
	for rows.Next() {
		var r Recording
		var createdAt string
		if err := rows.Scan(&r.ID, &r.WorkID, &r.FilePath, &r.DurationSecs, &r.Format, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning recording: %w", err)
		}
		r.CreatedAt = parseTime(createdAt)
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func (s *Service) loadArtists(ctx context.Context, w *Work) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.name, a.name_clean, a.sort_name, a.created_at, a.updated_at
		FROM artists a
		JOIN work_artists wa ON wa.artist_id = a.id
		WHERE wa.work_id = ? ORDER BY wa.position
	`, w.ID)
	if err != nil {
		return fmt.Errorf("loading work artists: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	w.Artists = nil
	for rows.Next() {
		a, err := scanArtist(rows)
		if err != nil {
			return fmt.Errorf("scanning artist: %w", err)
		}
		w.Artists = append(w.Artists, *a)
	}
	return rows.Err()
}

func scanWork(row interface{ Scan(...any) error }) (*Work, error) {
	var w Work
	var ghost int
	var createdAt, updatedAt string
	if err := row.Scan(&w.ID, &w.Title, &w.TitleClean, &ghost, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	w.IsGhost = ghost == 1
	w.CreatedAt = parseTime(createdAt)
	w.UpdatedAt = parseTime(updatedAt)
	return &w, nil
}

func scanArtist(row interface{ Scan(...any) error }) (*Artist, error) {
	var a Artist
	var createdAt, updatedAt string
	if err := row.Scan(&a.ID, &a.Name, &a.NameClean, &a.SortName, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
