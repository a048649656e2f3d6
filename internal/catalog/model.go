package catalog

import "time"

// Artist is a canonical artist name in the reference library.
type Artist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	NameClean string    `json:"name_clean"`
	SortName  string    `json:"sort_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Work is a canonical musical composition, the unit of identity that
// broadcast logs link to. Artists holds every credited artist in position
// order; position 0 is the primary credit.
type Work struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	TitleClean string    `json:"title_clean"`
	IsGhost    bool      `json:"is_ghost"`
	Artists    []Artist  `json:"artists,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PrimaryArtist returns the first credited artist name, or "" for a work
// with no credits.
func (w *Work) PrimaryArtist() string {
	if len(w.Artists) == 0 {
		return ""
	}
	return w.Artists[0].Name
}

// ArtistNames returns all credited artist names in position order.
func (w *Work) ArtistNames() []string {
	names := make([]string, len(w.Artists))
	for i, a := range w.Artists {
		names[i] = a.Name
	}
	return names
}

// Recording is a concrete recorded instance of a work. FilePath is empty for
// placeholder recordings created before any audio exists.
type Recording struct {
	ID           string    `json:"id"`
	WorkID       string    `json:"work_id"`
	FilePath     string    `json:"file_path,omitempty"`
	DurationSecs int       `json:"duration_secs,omitempty"`
	Format       string    `json:"format,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
