package textnorm

import "testing"

func TestSimilarityExact(t *testing.T) {
	if got := Similarity("GODSMACK", "godsmack"); got != 1 {
		t.Errorf("Similarity = %f, want 1", got)
	}
	if got := Similarity("Voodoo (Live)", "Voodoo"); got != 1 {
		t.Errorf("decorated forms should clean to equal, got %f", got)
	}
}

func TestSimilarityEmpty(t *testing.T) {
	if got := Similarity("", "anything"); got != 0 {
		t.Errorf("Similarity with empty input = %f, want 0", got)
	}
}

func TestSimilarityTypo(t *testing.T) {
	got := Similarity("Smells Like Teen Spirit", "Smells Like Teen Spirits")
	if got < 0.8 {
		t.Errorf("near-identical titles scored %f, want >= 0.8", got)
	}
}

func TestSimilarityTruncation(t *testing.T) {
	got := Similarity("Smells Like Teen Spirit", "Smells Like Teen Spi")
	if got < 0.7 {
		t.Errorf("truncated title scored %f, want >= 0.7", got)
	}
}

func TestSimilarityDifferentSongs(t *testing.T) {
	got := Similarity("Voodoo", "Whatever")
	if got > 0.3 {
		t.Errorf("unrelated titles scored %f, want <= 0.3", got)
	}
}
