// Package textnorm provides the text normalization primitives the matching
// pipeline is built on: cleaning noisy broadcast-log strings, deriving stable
// artist/title signatures, splitting multi-artist credits, and scoring string
// similarity.
//
// Clean is pure and idempotent; every cache key and exact-match lookup in the
// system is derived from its output, so its behavior must stay stable across
// releases.
package textnorm
