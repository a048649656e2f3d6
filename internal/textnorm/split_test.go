package textnorm

import (
	"reflect"
	"testing"
)

func TestSplitArtists(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Ozzy/Primus", []string{"Ozzy", "Primus"}},
		{"Run DMC & Aerosmith", []string{"Run DMC", "Aerosmith"}},
		{"Santana feat. Rob Thomas", []string{"Santana", "Rob Thomas"}},
		{"David Bowie, Queen", []string{"David Bowie", "Queen"}},
		{"Elton John with Kiki Dee", []string{"Elton John", "Kiki Dee"}},
		{"Ozzy Osbourne w/ Randy Rhoads", []string{"Ozzy Osbourne", "Randy Rhoads"}},
		{"Ozzy Osbourne w/Randy Rhoads", []string{"Ozzy Osbourne", "Randy Rhoads"}},
		{"Nirvana", []string{"Nirvana"}},
		{"Metallica & METALLICA", []string{"Metallica"}},
	}
	for _, tt := range tests {
		if got := SplitArtists(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitArtists(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSplitArtistsProtectedNames(t *testing.T) {
	for _, in := range []string{
		"AC/DC",
		"Earth, Wind & Fire",
		"Hall & Oates",
		"Huey Lewis and the News",
		"Kool & The Gang",
	} {
		got := SplitArtists(in)
		if len(got) != 1 || got[0] != in {
			t.Errorf("SplitArtists(%q) = %v, want single unsplit name", in, got)
		}
	}
}

func TestIsSplittable(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"Ozzy/Primus", true},
		{"Santana feat. Rob Thomas", true},
		{"AC/DC", false},
		{"Nick Cave and the Bad Seeds", false},
		{"Nirvana", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsSplittable(tt.in); got != tt.want {
			t.Errorf("IsSplittable(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
