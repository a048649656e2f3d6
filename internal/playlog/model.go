package playlog

import "time"

// Entry is one broadcast log row: a station reported playing raw artist and
// title text at a point in time. WorkID is nil until the matching pipeline
// links the row to a catalog work.
type Entry struct {
	ID          string    `json:"id"`
	Station     string    `json:"station"`
	PlayedAt    time.Time `json:"played_at"`
	RawArtist   string    `json:"raw_artist"`
	RawTitle    string    `json:"raw_title"`
	WorkID      *string   `json:"work_id,omitempty"`
	MatchReason string    `json:"match_reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Linked reports whether the entry has been resolved to a work.
func (e *Entry) Linked() bool {
	return e.WorkID != nil && *e.WorkID != ""
}
