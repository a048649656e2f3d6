// Package matcher implements the work resolution pipeline. Each artist/title
// query runs through three stages: the identity bridge, exact normalized
// catalog lookup, then gated similarity search. Only exact and promoted
// matches ever write the bridge, so a fuzzy false positive can never become
// permanently authoritative.
package matcher

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"math"

	"spinlog/internal/bridge"
	"spinlog/internal/catalog"
	"spinlog/internal/event"
	"spinlog/internal/playlog"
	"spinlog/internal/settings"
	"spinlog/internal/simindex"
	"spinlog/internal/textnorm"
)

// Match reasons, recorded on linked broadcast logs.
const (
	ReasonBridge   = "Identity Bridge"
	ReasonExact    = "Exact Match"
	ReasonVariant  = "Variant Match"
	ReasonVector   = "Vector Match"
	ReasonReview   = "Flagged for Review"
	ReasonNoMatch  = "No Match Found"
	ReasonPromoted = "Promoted"
)

// Pair is one artist/title query.
type Pair struct {
	Artist string
	Title  string
}

// Result is the terminal outcome for one query. Err carries a per-item
// integrity failure (such as a conflicting bridge signature) in batch
// results, where one bad item must not discard the rest of the batch.
type Result struct {
	Matched    bool    `json:"matched"`
	WorkID     string  `json:"work_id,omitempty"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence,omitempty"`
	Err        error   `json:"-"`
}

// Matcher resolves artist/title pairs against the catalog. All dependencies
// are injected so concurrent test instances stay isolated.
type Matcher struct {
	catalog  *catalog.Service
	bridge   *bridge.Store
	logs     *playlog.Service
	reviews  *ReviewStore
	index    simindex.Index
	settings *settings.Service
	logger   *slog.Logger
	bus      *event.Bus
}

// NewMatcher creates a matcher. The bus may be nil in tests.
func NewMatcher(db *sql.DB, cat *catalog.Service, br *bridge.Store, logs *playlog.Service,
	index simindex.Index, set *settings.Service, logger *slog.Logger, bus *event.Bus) *Matcher {
	return &Matcher{
		catalog:  cat,
		bridge:   br,
		logs:     logs,
		reviews:  NewReviewStore(db),
		index:    index,
		settings: set,
		logger:   logger,
		bus:      bus,
	}
}

// Reviews exposes the review queue store for the API layer.
func (m *Matcher) Reviews() *ReviewStore {
	return m.reviews
}

// FindMatch resolves a single artist/title pair. The returned error is
// reserved for storage failures and integrity alarms; an ordinary miss is
// Result{Matched: false, Reason: ReasonNoMatch}.
func (m *Matcher) FindMatch(ctx context.Context, artist, title string) (Result, error) {
	results, err := m.MatchBatch(ctx, []Pair{{Artist: artist, Title: title}})
	if err != nil {
		return Result{Reason: ReasonNoMatch}, err
	}
	r := results[Pair{Artist: artist, Title: title}]
	return r, r.Err
}

// MatchBatch resolves a set of pairs with batch-amortized stage queries: one
// bridge read, one exact catalog pass, and one similarity search for the
// whole batch. Duplicate input pairs collapse to a single computation; the
// result map is keyed by the exact input tuples.
func (m *Matcher) MatchBatch(ctx context.Context, pairs []Pair) (map[Pair]Result, error) {
	results := make(map[Pair]Result, len(pairs))
	distinct := make([]Pair, 0, len(pairs))
	sigs := make(map[Pair]string, len(pairs))
	for _, p := range pairs {
		if _, dup := sigs[p]; dup {
			continue
		}
		sigs[p] = textnorm.Signature(p.Artist, p.Title)
		distinct = append(distinct, p)
	}

	// Stage 1: identity bridge, one query for the whole batch.
	allSigs := make([]string, 0, len(distinct))
	for _, p := range distinct {
		allSigs = append(allSigs, sigs[p])
	}
	bridged, err := m.bridge.LookupAll(ctx, allSigs)
	if err != nil {
		return nil, err
	}

	var pending []Pair
	for _, p := range distinct {
		if workID, ok := bridged[sigs[p]]; ok {
			results[p] = Result{Matched: true, WorkID: workID, Reason: ReasonBridge, Confidence: 1.0}
			continue
		}
		if textnorm.Clean(p.Artist) == "" && textnorm.Clean(p.Title) == "" {
			// Noisy input normalizes to nothing; never an error.
			results[p] = Result{Reason: ReasonNoMatch}
			continue
		}
		pending = append(pending, p)
	}

	// Stage 2: exact normalized lookup, one catalog pass.
	if len(pending) > 0 {
		pending, err = m.exactStage(ctx, pending, sigs, results)
		if err != nil {
			return nil, err
		}
	}

	// Stage 3: gated similarity search, one batched index query.
	if len(pending) > 0 {
		if err := m.similarityStage(ctx, pending, sigs, results); err != nil {
			return nil, err
		}
	}

	return results, nil
}

// exactStage fills results for pairs with an exact normalized catalog match
// and returns the still-unresolved remainder. Exact hits self-heal the
// bridge so the next identical query stops at stage 1.
func (m *Matcher) exactStage(ctx context.Context, pending []Pair, sigs map[Pair]string, results map[Pair]Result) ([]Pair, error) {
	keys := make([]catalog.ExactKey, len(pending))
	for i, p := range pending {
		keys[i] = catalog.ExactKey{
			ArtistClean: textnorm.Clean(p.Artist),
			TitleClean:  textnorm.Clean(p.Title),
		}
	}
	found, err := m.catalog.FindExactBatch(ctx, keys)
	if err != nil {
		return nil, err
	}

	var rest []Pair
	for i, p := range pending {
		w, ok := found[keys[i]]
		if !ok {
			rest = append(rest, p)
			continue
		}

		r := Result{Matched: true, WorkID: w.ID, Reason: ReasonExact, Confidence: 1.0}
		if err := m.bridge.Record(ctx, sigs[p], p.Artist, p.Title, w.ID, 1.0); err != nil {
			var dup *bridge.ErrDuplicateSignature
			if errors.As(err, &dup) {
				// Integrity alarm: surfaced on the item, batch continues.
				r = Result{Reason: ReasonNoMatch, Err: dup}
				m.logger.Error("conflicting bridge signature", "signature", sigs[p], "error", dup)
			} else {
				return nil, err
			}
		}
		results[p] = r
	}
	return rest, nil
}

// similarityStage evaluates index candidates for each remaining pair. The
// decision policy runs per candidate in ascending distance order; the first
// qualifying candidate wins.
func (m *Matcher) similarityStage(ctx context.Context, pending []Pair, sigs map[Pair]string, results map[Pair]Result) error {
	t := m.settings.Thresholds()

	queries := make([]simindex.Query, len(pending))
	for i, p := range pending {
		queries[i] = simindex.Query{Artist: p.Artist, Title: p.Title}
	}
	candidateSets := m.index.SearchBatch(queries, t.SearchLimit)

	for i, p := range pending {
		var candidates []simindex.Candidate
		if i < len(candidateSets) {
			candidates = candidateSets[i]
		}
		results[p] = m.evaluate(ctx, p, sigs[p], candidates, t)
	}
	return nil
}

func (m *Matcher) evaluate(ctx context.Context, p Pair, sig string, candidates []simindex.Candidate, t settings.Thresholds) Result {
	for _, c := range candidates {
		if c.ID == "" || math.IsNaN(c.Distance) || c.Distance < 0 {
			// Malformed index response; degrade, don't abort.
			m.logger.Warn("malformed similarity candidate", "artist", p.Artist, "title", p.Title)
			continue
		}

		w, err := m.catalog.GetWork(ctx, c.ID)
		if err != nil {
			// The index returned an id the catalog doesn't know. Treat as
			// no candidate.
			m.logger.Warn("similarity candidate missing from catalog", "work_id", c.ID)
			continue
		}

		artistScore := bestArtistSimilarity(p.Artist, w)
		titleScore := textnorm.Similarity(p.Title, w.Title)

		switch {
		case artistScore >= t.VariantArtistScore && titleScore >= t.VariantTitleScore:
			return Result{Matched: true, WorkID: w.ID, Reason: ReasonVariant,
				Confidence: (artistScore + titleScore) / 2}

		case c.Distance <= t.VectorStrongDistance && titleScore >= t.VectorTitleGuard:
			// The guard keeps artist-dominated embeddings from matching
			// two different songs by the same artist.
			return Result{Matched: true, WorkID: w.ID, Reason: ReasonVector,
				Confidence: 1 - c.Distance}

		case artistScore >= t.AliasArtistScore && titleScore >= t.AliasTitleScore:
			m.flagForReview(ctx, p, sig, w, artistScore, titleScore, c.Distance)
			return Result{Reason: ReasonReview}
		}
	}
	return Result{Reason: ReasonNoMatch}
}

// bestArtistSimilarity scores the query artist against every credited
// artist on the work and keeps the best, so co-artist credits match as well
// as primary ones.
func bestArtistSimilarity(artist string, w *catalog.Work) float64 {
	best := 0.0
	for _, a := range w.Artists {
		if s := textnorm.Similarity(artist, a.Name); s > best {
			best = s
		}
	}
	return best
}
