package matcher

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"spinlog/internal/bridge"
	"spinlog/internal/event"
	"spinlog/internal/playlog"
	"spinlog/internal/textnorm"
)

// sigGroup collects every unlinked log entry sharing one normalized
// signature, keeping the first-seen raw strings for display.
type sigGroup struct {
	signature string
	rawArtist string
	rawTitle  string
	entries   []playlog.Entry
}

// ScanAndPromote sweeps the unlinked broadcast logs and promotes recurring
// signatures with no catalog match into new ghost works. A signature
// qualifies only when it has appeared at least the configured number of
// times, has no active bridge entry, and still resolves to nothing through
// the full pipeline. Promotion is idempotent: the bridge entry written here
// makes every later sweep stop at stage 1.
func (m *Matcher) ScanAndPromote(ctx context.Context) (int, error) {
	t := m.settings.Thresholds()

	entries, err := m.logs.Unlinked(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading unlinked logs: %w", err)
	}

	groups := groupBySignature(entries)

	promoted := 0
	for _, g := range groups {
		if len(g.entries) < t.PromoteMinOccurrence {
			continue
		}

		// The pipeline run covers the bridge check too; anything the
		// matcher can already place is not promotion material.
		res, err := m.FindMatch(ctx, g.rawArtist, g.rawTitle)
		if err != nil {
			var dup *bridge.ErrDuplicateSignature
			if errors.As(err, &dup) {
				m.logger.Error("skipping promotion of conflicted signature",
					"signature", g.signature, "error", dup)
				continue
			}
			return promoted, err
		}
		if res.Matched {
			if err := m.linkGroup(ctx, g, res.WorkID, res.Reason); err != nil {
				return promoted, err
			}
			continue
		}
		if res.Reason == ReasonReview {
			// A human is already looking at this signature.
			continue
		}

		names := promotionArtists(g.rawArtist)
		title := textnorm.TitleCase(textnorm.Clean(g.rawTitle))
		w, err := m.catalog.CreateGhostWork(ctx, title, names)
		if err != nil {
			return promoted, fmt.Errorf("creating ghost work for %q: %w", g.signature, err)
		}

		err = m.bridge.Record(ctx, g.signature, g.rawArtist, g.rawTitle, w.ID, t.PromoteConfidence)
		var dup *bridge.ErrDuplicateSignature
		if errors.As(err, &dup) {
			// Lost a race with a concurrent resolution; the ghost work
			// stays orphaned rather than shadowing the winner.
			m.logger.Error("promotion lost bridge race", "signature", g.signature, "error", dup)
			continue
		}
		if err != nil {
			return promoted, err
		}

		m.index.Add(w.ID, g.rawArtist, title)
		if err := m.linkGroup(ctx, g, w.ID, ReasonPromoted); err != nil {
			return promoted, err
		}

		promoted++
		m.logger.Info("promoted recurring signature to ghost work",
			"signature", g.signature, "work_id", w.ID, "occurrences", len(g.entries))
		if m.bus != nil {
			m.bus.Publish(event.Event{
				Type: event.WorkPromoted,
				Data: map[string]any{
					"work_id":     w.ID,
					"signature":   g.signature,
					"occurrences": len(g.entries),
				},
			})
		}
	}
	return promoted, nil
}

// LinkOrphanedLogs runs the matching pipeline over every unlinked log entry
// and links the ones that now resolve. Safe to run repeatedly; already
// linked rows are never touched.
func (m *Matcher) LinkOrphanedLogs(ctx context.Context) (int, error) {
	entries, err := m.logs.Unlinked(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading unlinked logs: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	pairs := make([]Pair, 0, len(entries))
	for _, e := range entries {
		pairs = append(pairs, Pair{Artist: e.RawArtist, Title: e.RawTitle})
	}
	results, err := m.MatchBatch(ctx, pairs)
	if err != nil {
		return 0, err
	}

	linked := 0
	for _, e := range entries {
		r := results[Pair{Artist: e.RawArtist, Title: e.RawTitle}]
		if !r.Matched {
			continue
		}
		if err := m.logs.Link(ctx, e.ID, r.WorkID, r.Reason); err != nil {
			return linked, fmt.Errorf("linking log %s: %w", e.ID, err)
		}
		linked++
	}

	if linked > 0 {
		m.logger.Info("linked orphaned broadcast logs", "count", linked)
		if m.bus != nil {
			m.bus.Publish(event.Event{
				Type: event.LogsLinked,
				Data: map[string]any{"count": linked},
			})
		}
	}
	return linked, nil
}

func (m *Matcher) linkGroup(ctx context.Context, g sigGroup, workID, reason string) error {
	for _, e := range g.entries {
		if err := m.logs.Link(ctx, e.ID, workID, reason); err != nil {
			return fmt.Errorf("linking log %s: %w", e.ID, err)
		}
	}
	return nil
}

// groupBySignature buckets entries by normalized signature, dropping rows
// whose artist and title both normalize to nothing. Groups come back in a
// deterministic order.
func groupBySignature(entries []playlog.Entry) []sigGroup {
	bySig := make(map[string]*sigGroup)
	for _, e := range entries {
		sig := textnorm.Signature(e.RawArtist, e.RawTitle)
		if textnorm.Clean(e.RawArtist) == "" && textnorm.Clean(e.RawTitle) == "" {
			continue
		}
		g, ok := bySig[sig]
		if !ok {
			g = &sigGroup{signature: sig, rawArtist: e.RawArtist, rawTitle: e.RawTitle}
			bySig[sig] = g
		}
		g.entries = append(g.entries, e)
	}

	groups := make([]sigGroup, 0, len(bySig))
	for _, g := range bySig {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].signature < groups[j].signature })
	return groups
}

// promotionArtists derives display artist names for a promoted work from
// the raw credit string. Collaborative credits become separate artists so
// the ghost work carries real credits rather than one compound name.
func promotionArtists(rawArtist string) []string {
	parts := textnorm.SplitArtists(rawArtist)
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		n := textnorm.TitleCase(textnorm.Clean(p))
		if n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		// Station logs sometimes carry a title with no usable artist.
		names = append(names, "Unknown Artist")
	}
	return names
}
