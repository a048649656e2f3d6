package simindex

import (
	"sort"
	"sync"
)

type memoryEntry struct {
	id string
	fp *fingerprint
}

// MemoryIndex is an in-process Index over term-frequency fingerprints with
// cosine distance. Suitable for catalogs up to a few hundred thousand works;
// a remote vector service can replace it behind the same interface.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries []memoryEntry
	byID    map[string]int
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{byID: make(map[string]int)}
}

// Add indexes one catalog entry. Re-adding an existing id replaces its
// fingerprint.
func (m *MemoryIndex) Add(id, artist, title string) {
	fp := newFingerprint(artist + " " + title)

	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.byID[id]; ok {
		m.entries[i].fp = fp
		return
	}
	m.byID[id] = len(m.entries)
	m.entries = append(m.entries, memoryEntry{id: id, fp: fp})
}

// AddBatch indexes multiple entries.
func (m *MemoryIndex) AddBatch(entries []Entry) {
	for _, e := range entries {
		m.Add(e.ID, e.Artist, e.Title)
	}
}

// Search returns up to limit candidates ordered by ascending distance.
func (m *MemoryIndex) Search(artist, title string, limit int) []Candidate {
	query := newFingerprint(artist + " " + title)
	if query == nil || limit <= 0 {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	candidates := make([]Candidate, 0, len(m.entries))
	for _, e := range m.entries {
		sim := cosine(query, e.fp)
		if sim <= 0 {
			continue
		}
		candidates = append(candidates, Candidate{ID: e.id, Distance: 1 - sim})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		return candidates[i].ID < candidates[j].ID
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// SearchBatch runs Search for each query, preserving input order.
func (m *MemoryIndex) SearchBatch(queries []Query, limit int) [][]Candidate {
	results := make([][]Candidate, len(queries))
	for i, q := range queries {
		results[i] = m.Search(q.Artist, q.Title, limit)
	}
	return results
}
