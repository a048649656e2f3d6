package simindex

import (
	"math"
	"regexp"
	"strings"
)

var tokenSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)

// fingerprint is a normalized term-frequency vector. Tokens come from both
// the artist and title so artist-only collisions still differ on title
// terms, though artist tokens can dominate short titles; the matcher's
// title guard exists for exactly that case.
type fingerprint struct {
	tokens map[string]float64
	norm   float64
}

func newFingerprint(text string) *fingerprint {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}
	var norm float64
	for _, c := range counts {
		norm += c * c
	}
	return &fingerprint{tokens: counts, norm: math.Sqrt(norm)}
}

func tokenize(text string) []string {
	raw := tokenSplitPattern.Split(strings.ToLower(text), -1)
	terms := make([]string, 0, len(raw))
	for _, tok := range raw {
		if tok == "" {
			continue
		}
		terms = append(terms, tok)
	}
	return terms
}

// cosine returns the cosine similarity of two fingerprints, 0 when either
// is nil or empty.
func cosine(a, b *fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for tok, count := range a.tokens {
		if other, ok := b.tokens[tok]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm * b.norm)
}
