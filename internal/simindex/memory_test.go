package simindex

import "testing"

func TestSearchOrdersByDistance(t *testing.T) {
	idx := NewMemoryIndex()
	idx.AddBatch([]Entry{
		{ID: "w1", Artist: "Godsmack", Title: "Voodoo"},
		{ID: "w2", Artist: "Godsmack", Title: "Whatever"},
		{ID: "w3", Artist: "Nirvana", Title: "Smells Like Teen Spirit"},
	})

	got := idx.Search("Godsmack", "Voodoo", 3)
	if len(got) == 0 {
		t.Fatal("expected candidates")
	}
	if got[0].ID != "w1" {
		t.Errorf("closest candidate = %s, want w1", got[0].ID)
	}
	if got[0].Distance > 0.001 {
		t.Errorf("identical entry distance = %f, want ~0", got[0].Distance)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Distance < got[i-1].Distance {
			t.Errorf("candidates not ascending at %d: %f < %f", i, got[i].Distance, got[i-1].Distance)
		}
	}
}

func TestSearchLimit(t *testing.T) {
	idx := NewMemoryIndex()
	idx.Add("w1", "Godsmack", "Voodoo")
	idx.Add("w2", "Godsmack", "Whatever")

	if got := idx.Search("Godsmack", "Voodoo", 1); len(got) != 1 {
		t.Errorf("got %d candidates, want 1", len(got))
	}
	if got := idx.Search("Godsmack", "Voodoo", 0); got != nil {
		t.Errorf("limit 0 should return nil, got %v", got)
	}
}

func TestSearchNoOverlap(t *testing.T) {
	idx := NewMemoryIndex()
	idx.Add("w1", "Godsmack", "Voodoo")

	if got := idx.Search("Aphex Twin", "Windowlicker", 5); len(got) != 0 {
		t.Errorf("expected no candidates, got %v", got)
	}
}

func TestAddReplacesExisting(t *testing.T) {
	idx := NewMemoryIndex()
	idx.Add("w1", "Godsmack", "Voodoo")
	idx.Add("w1", "Nirvana", "Lithium")

	if got := idx.Search("Godsmack", "Voodoo", 5); len(got) != 0 {
		t.Errorf("stale fingerprint still indexed: %v", got)
	}
	got := idx.Search("Nirvana", "Lithium", 5)
	if len(got) != 1 || got[0].ID != "w1" {
		t.Errorf("replacement not searchable: %v", got)
	}
}

func TestSearchBatch(t *testing.T) {
	idx := NewMemoryIndex()
	idx.Add("w1", "Godsmack", "Voodoo")

	results := idx.SearchBatch([]Query{
		{Artist: "Godsmack", Title: "Voodoo"},
		{Artist: "Aphex Twin", Title: "Windowlicker"},
	}, 5)
	if len(results) != 2 {
		t.Fatalf("got %d result sets, want 2", len(results))
	}
	if len(results[0]) != 1 || len(results[1]) != 0 {
		t.Errorf("unexpected result shapes: %v", results)
	}
}
