package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SignatureSeparator joins the cleaned artist and title halves of a signature.
// Clean output contains only lowercase ASCII letters, digits, and single
// spaces, so "::" can never occur naturally in either half.
const SignatureSeparator = "::"

var (
	// Bracketed qualifiers: "(Live)", "[2011 Remaster]", "(feat. X)".
	// A trailing unclosed paren covers truncated log rows like "Voodoo (Li".
	bracketedPattern = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]|\([^)]*$|\[[^\]]*$`)

	// Remaster decorations outside brackets: "- 2011 Remaster",
	// "Remastered 2011", "- remaster".
	remasterPattern = regexp.MustCompile(`(?:\s*-\s*)?(?:\d{4}\s+)?\bre-?master(?:ed)?\b(?:\s+\d{4})?`)

	// Featured-artist tails: "feat. Someone", "ft Someone", "featuring X & Y".
	featPattern = regexp.MustCompile(`[-\s]\b(?:feat|ft|featuring)\b\.?\s.*$`)

	// Trailing truncation markers from fixed-width log exports.
	ellipsisPattern = regexp.MustCompile(`(?:\.{2,}|…)\s*$`)

	whitespacePattern = regexp.MustCompile(`\s+`)

	// Strips combining marks after NFD decomposition, so "Motörhead"
	// becomes "motorhead".
	accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	titleCaser = cases.Title(language.Und)
)

// Clean normalizes a raw artist or title string into its canonical comparison
// form. The pass order is fixed: accent folding, bracketed qualifiers,
// remaster tags, featured-artist tails, truncation markers, punctuation,
// whitespace. Each pass leaves nothing a later pass could turn back into an
// earlier pattern, which is what makes Clean(Clean(x)) == Clean(x) hold.
func Clean(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	if folded, _, err := transform.String(accentStripper, s); err == nil {
		s = folded
	}

	s = bracketedPattern.ReplaceAllString(s, " ")
	s = remasterPattern.ReplaceAllString(s, " ")
	s = featPattern.ReplaceAllString(s, " ")
	s = ellipsisPattern.ReplaceAllString(s, " ")

	s = strings.ReplaceAll(s, "&", " and ")
	s = stripPunctuation(s)

	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// stripPunctuation drops apostrophes entirely ("don't" -> "dont") and turns
// every other non-alphanumeric rune into a space.
func stripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
		case r == '\'' || r == '’':
			// removed, not a separator
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// Signature derives the deterministic cache key for an (artist, title) pair.
// Signatures are stable across process restarts and insensitive to the
// case, whitespace, and decoration variation handled by Clean.
func Signature(artist, title string) string {
	return Clean(artist) + SignatureSeparator + Clean(title)
}

// TitleCase renders a cleaned name for display, matching the casing rule
// used for split proposals ("ozzy" -> "Ozzy").
func TitleCase(s string) string {
	return titleCaser.String(strings.TrimSpace(s))
}
