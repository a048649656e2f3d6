// Package resolver canonicalizes raw artist credits. Verified aliases win;
// unknown credits that look like collaborations get a split proposal for
// human review; everything else resolves to itself, since broadcast log
// data is noisy by nature and "unknown" is not an error.
package resolver

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"spinlog/internal/event"
	"spinlog/internal/textnorm"
)

// Resolver resolves raw artist strings to canonical names.
type Resolver struct {
	db     *sql.DB
	logger *slog.Logger
	bus    *event.Bus
}

// NewResolver creates a resolver. The bus may be nil in tests.
func NewResolver(db *sql.DB, logger *slog.Logger, bus *event.Bus) *Resolver {
	return &Resolver{db: db, logger: logger, bus: bus}
}

// ResolveBatch maps each distinct raw artist string to its canonical form.
// Verified aliases resolve through the cache (negative entries resolve to
// the raw string). Cache misses run split detection: a genuine
// collaboration gets a single PENDING proposal, created at most once per
// raw string across all batches, and still resolves to itself until a human
// approves the split.
func (r *Resolver) ResolveBatch(ctx context.Context, raws []string) (map[string]string, error) {
	distinct := dedupe(raws)
	result := make(map[string]string, len(distinct))
	if len(distinct) == 0 {
		return result, nil
	}

	aliases, err := r.aliasesFor(ctx, distinct)
	if err != nil {
		return nil, err
	}

	for _, raw := range distinct {
		if alias, ok := aliases[raw]; ok {
			result[raw] = alias.Canonical()
			continue
		}

		names, confidence := r.detectSplit(raw)
		if len(names) > 1 {
			created, err := r.ensureProposal(ctx, raw, names, confidence)
			if err != nil {
				return nil, err
			}
			if created {
				r.logger.Info("proposed artist split",
					"raw_artist", raw, "proposed", names, "confidence", confidence)
				r.publishSplitProposed(raw, names)
			}
		}

		// Identity until a human decides otherwise.
		result[raw] = raw
	}
	return result, nil
}

// detectSplit returns the candidate decomposition of a raw credit, or a
// single-element slice when the credit should not be split. Pure; no state
// is touched.
func (r *Resolver) detectSplit(raw string) ([]string, float64) {
	if !textnorm.IsSplittable(raw) {
		return []string{strings.TrimSpace(raw)}, 0
	}

	parts := textnorm.SplitArtists(raw)
	if len(parts) < 2 {
		return parts, 0
	}

	names := make([]string, len(parts))
	for i, p := range parts {
		names[i] = textnorm.TitleCase(textnorm.Clean(p))
	}
	return names, splitConfidence(raw)
}

// splitConfidence grades how unambiguous the separators in a raw credit
// are. Slash and feat markers almost always mean a collaboration; bare
// "and"/"with" are weaker signals.
func splitConfidence(raw string) float64 {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "/") ||
		strings.Contains(lower, "feat") ||
		strings.Contains(lower, " ft"):
		return 0.9
	case strings.Contains(lower, "&") || strings.Contains(lower, ","):
		return 0.75
	default:
		return 0.6
	}
}

func dedupe(raws []string) []string {
	seen := make(map[string]struct{}, len(raws))
	out := make([]string, 0, len(raws))
	for _, raw := range raws {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		out = append(out, raw)
	}
	return out
}

func placeholders(n int) string {
	return strings.Repeat(",?", n)
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
