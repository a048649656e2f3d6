package textnorm

import (
	"regexp"
	"strings"
)

// separatorPattern matches collaboration markers between artist credits.
// Slash and ampersand are matched bare; word separators require surrounding
// whitespace so names like "Sandman" keep their letters.
var separatorPattern = regexp.MustCompile(`(?i)\s*(?:\sw/\s?|/|&|,|\sand\s|\swith\s|[-\s]\b(?:feat|ft|featuring)\b\.?\s)\s*`)

// protectedNames are acts whose names contain separator characters as part
// of their identity. Keyed by cleaned form; never split.
var protectedNames = map[string]struct{}{
	"ac dc":                        {},
	"earth wind and fire":          {},
	"crosby stills and nash":       {},
	"crosby stills nash and young": {},
	"emerson lake and palmer":      {},
	"blood sweat and tears":        {},
	"hall and oates":               {},
	"simon and garfunkel":          {},
	"salt n pepa":                  {},
	"kool and the gang":            {},
	"mike and the mechanics":       {},
}

// SplitArtists decomposes a raw multi-artist credit into individual names,
// deduplicated case-insensitively in first-seen order. A credit with no
// separators, a protected name, or a "X and the Y"-style band name returns a
// single-element list.
func SplitArtists(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	if !IsSplittable(trimmed) {
		return []string{trimmed}
	}

	parts := separatorPattern.Split(trimmed, -1)
	names := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := strings.ToLower(p)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, p)
	}
	if len(names) == 0 {
		return []string{trimmed}
	}
	return names
}

var bandNamePattern = regexp.MustCompile(`(?i)\s(?:and|with|&)\s+(?:the|his|her)\s`)

// IsSplittable reports whether raw looks like a genuine multi-artist credit
// rather than a single act whose name happens to contain separator
// characters ("AC/DC", "Huey Lewis and the News").
func IsSplittable(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return false
	}
	if _, ok := protectedNames[Clean(trimmed)]; ok {
		return false
	}
	// "X and the Y" / "X & His Orchestra" are band names, not collaborations.
	if bandNamePattern.MatchString(trimmed) {
		return false
	}
	return separatorPattern.MatchString(trimmed)
}
