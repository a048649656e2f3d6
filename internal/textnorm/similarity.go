package textnorm

import "strings"

// Similarity scores how alike two raw strings are after cleaning, in [0, 1].
// Equal cleaned forms score 1.0. Otherwise the score is the trigram Jaccard
// overlap, with a containment floor so a truncated string ("Smells Like Teen
// Spi") still scores near its full form. The score is independent of any
// embedding distance and is used to gate vector candidates.
func Similarity(a, b string) float64 {
	ca, cb := Clean(a), Clean(b)
	if ca == "" || cb == "" {
		return 0
	}
	if ca == cb {
		return 1
	}

	score := trigramJaccard(ca, cb)

	if strings.Contains(ca, cb) || strings.Contains(cb, ca) {
		shorter, longer := len(ca), len(cb)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		if containment := float64(shorter) / float64(longer); containment > score {
			score = containment
		}
	}
	return score
}

func trigramJaccard(a, b string) float64 {
	left := trigramSet(a)
	right := trigramSet(b)
	if len(left) == 0 || len(right) == 0 {
		return 0
	}

	intersection := 0
	for gram := range left {
		if _, ok := right[gram]; ok {
			intersection++
		}
	}
	if intersection == 0 {
		return 0
	}
	union := len(left) + len(right) - intersection
	return float64(intersection) / float64(union)
}

func trigramSet(s string) map[string]struct{} {
	runes := []rune(s)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) < 3 {
		return map[string]struct{}{string(runes): {}}
	}
	set := make(map[string]struct{}, len(runes)-2)
	for i := 0; i <= len(runes)-3; i++ {
		set[string(runes[i:i+3])] = struct{}{}
	}
	return set
}
