// Package simindex defines the nearest-neighbor index the matcher queries
// for approximate artist/title candidates, plus an in-memory implementation
// built on term-frequency fingerprints. The matcher only depends on the
// Index interface; how distances are computed is this package's business.
package simindex

// Candidate is one nearest-neighbor result. Distance is in [0, 1] with 0
// meaning identical; results are ordered ascending.
type Candidate struct {
	ID       string  `json:"id"`
	Distance float64 `json:"distance"`
}

// Entry is one catalog item to index.
type Entry struct {
	ID     string `json:"id"`
	Artist string `json:"artist"`
	Title  string `json:"title"`
}

// Query is one artist/title pair to search for.
type Query struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
}

// Index is the nearest-neighbor service consumed by the matcher.
type Index interface {
	Add(id, artist, title string)
	AddBatch(entries []Entry)
	Search(artist, title string, limit int) []Candidate
	SearchBatch(queries []Query, limit int) [][]Candidate
}
