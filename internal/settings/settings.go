// Package settings manages runtime-tunable matching configuration backed by
// the settings key-value table. Values can change while the process runs;
// the matcher reads a consistent snapshot per operation.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
)

// Setting keys for the matching thresholds.
const (
	KeyVariantArtistScore   = "matching.variant_artist_score"
	KeyVariantTitleScore    = "matching.variant_title_score"
	KeyAliasArtistScore     = "matching.alias_artist_score"
	KeyAliasTitleScore      = "matching.alias_title_score"
	KeyVectorStrongDistance = "matching.vector_strong_distance"
	KeyVectorTitleGuard     = "matching.vector_title_guard"
	KeyPromoteMinOccurrence = "matching.promote_min_occurrences"
	KeyPromoteConfidence    = "matching.promote_confidence"
	KeySearchLimit          = "matching.search_limit"
)

// Thresholds is one consistent snapshot of the matching knobs.
type Thresholds struct {
	VariantArtistScore   float64 `json:"variant_artist_score"`
	VariantTitleScore    float64 `json:"variant_title_score"`
	AliasArtistScore     float64 `json:"alias_artist_score"`
	AliasTitleScore      float64 `json:"alias_title_score"`
	VectorStrongDistance float64 `json:"vector_strong_distance"`
	VectorTitleGuard     float64 `json:"vector_title_guard"`
	PromoteMinOccurrence int     `json:"promote_min_occurrences"`
	PromoteConfidence    float64 `json:"promote_confidence"`
	SearchLimit          int     `json:"search_limit"`
}

// DefaultThresholds returns the seed values used until a deployment tunes
// them. The boundaries have no derivation beyond field experience; they are
// configuration, not constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		VariantArtistScore:   0.85,
		VariantTitleScore:    0.75,
		AliasArtistScore:     0.60,
		AliasTitleScore:      0.60,
		VectorStrongDistance: 0.15,
		VectorTitleGuard:     0.70,
		PromoteMinOccurrence: 3,
		PromoteConfidence:    0.75,
		SearchLimit:          10,
	}
}

// Service reads and writes settings, keeping an in-memory snapshot so hot
// paths never block on the database.
type Service struct {
	db *sql.DB

	mu       sync.RWMutex
	snapshot Thresholds
}

// NewService creates a settings service, loading any stored overrides on top
// of the defaults.
func NewService(ctx context.Context, db *sql.DB) (*Service, error) {
	s := &Service{db: db, snapshot: DefaultThresholds()}
	if err := s.reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Thresholds returns the current snapshot.
func (s *Service) Thresholds() Thresholds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Set stores a threshold value and refreshes the snapshot, taking effect
// without restart.
func (s *Service) Set(ctx context.Context, key, value string) error {
	if !validKey(key) {
		return fmt.Errorf("unknown setting key: %s", key)
	}
	// Run the value through the same parser reload uses, so a value that
	// would poison the next startup is rejected before it is stored.
	scratch := DefaultThresholds()
	if err := apply(&scratch, key, value); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = datetime('now')
	`, key, value)
	if err != nil {
		return fmt.Errorf("storing setting: %w", err)
	}
	return s.reload(ctx)
}

func (s *Service) reload(ctx context.Context) error {
	t := DefaultThresholds()

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM settings WHERE key LIKE 'matching.%'`)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scanning setting: %w", err)
		}
		if err := apply(&t, key, value); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.snapshot = t
	s.mu.Unlock()
	return nil
}

func apply(t *Thresholds, key, value string) error {
	setFloat := func(dst *float64) error {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("setting %s has non-numeric value %q", key, value)
		}
		*dst = f
		return nil
	}
	setInt := func(dst *int) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("setting %s has non-integer value %q", key, value)
		}
		*dst = n
		return nil
	}

	switch key {
	case KeyVariantArtistScore:
		return setFloat(&t.VariantArtistScore)
	case KeyVariantTitleScore:
		return setFloat(&t.VariantTitleScore)
	case KeyAliasArtistScore:
		return setFloat(&t.AliasArtistScore)
	case KeyAliasTitleScore:
		return setFloat(&t.AliasTitleScore)
	case KeyVectorStrongDistance:
		return setFloat(&t.VectorStrongDistance)
	case KeyVectorTitleGuard:
		return setFloat(&t.VectorTitleGuard)
	case KeyPromoteMinOccurrence:
		return setInt(&t.PromoteMinOccurrence)
	case KeyPromoteConfidence:
		return setFloat(&t.PromoteConfidence)
	case KeySearchLimit:
		return setInt(&t.SearchLimit)
	}
	// Unknown matching.* keys are ignored so downgrades stay safe.
	return nil
}

func validKey(key string) bool {
	switch key {
	case KeyVariantArtistScore, KeyVariantTitleScore,
		KeyAliasArtistScore, KeyAliasTitleScore,
		KeyVectorStrongDistance, KeyVectorTitleGuard,
		KeyPromoteMinOccurrence, KeyPromoteConfidence, KeySearchLimit:
		return true
	}
	return false
}

// Get returns the stored raw value for key, or "" when unset.
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading setting: %w", err)
	}
	return value, nil
}
