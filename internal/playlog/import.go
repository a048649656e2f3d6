package playlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"spinlog/internal/event"
)

// playedAtFormats are the timestamp layouts station exports have been seen
// to use, tried in order.
var playedAtFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04",
	"2006-01-02",
}

// ImportResult summarizes one CSV import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// ImportCSV reads broadcast log rows from a station CSV export. Expected
// columns: station, played_at, artist, title; a header row is detected and
// skipped. Rows with an empty artist and title are skipped, not failed —
// log exports are noisy and one bad row must not abort the file.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader, defaultStation string, logger *slog.Logger, bus *event.Bus) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	result := &ImportResult{}
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}

		if first {
			first = false
			if isHeader(record) {
				continue
			}
		}

		entry, ok := parseRecord(record, defaultStation)
		if !ok {
			result.Skipped++
			continue
		}
		if err := s.Insert(ctx, entry); err != nil {
			return nil, err
		}
		result.Imported++
	}

	logger.Info("imported broadcast logs",
		"imported", result.Imported, "skipped", result.Skipped)
	if bus != nil {
		bus.Publish(event.Event{
			Type: event.ImportCompleted,
			Data: map[string]any{"imported": result.Imported, "skipped": result.Skipped},
		})
	}
	return result, nil
}

// ImportFile imports a CSV file from disk.
func (s *Service) ImportFile(ctx context.Context, path, defaultStation string, logger *slog.Logger, bus *event.Bus) (*ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return s.ImportCSV(ctx, f, defaultStation, logger, bus)
}

func parseRecord(record []string, defaultStation string) (*Entry, bool) {
	if len(record) < 4 {
		return nil, false
	}

	station := strings.TrimSpace(record[0])
	if station == "" {
		station = defaultStation
	}
	artist := strings.TrimSpace(record[2])
	title := strings.TrimSpace(record[3])
	if artist == "" && title == "" {
		return nil, false
	}

	playedAt := parsePlayedAt(strings.TrimSpace(record[1]))
	return &Entry{
		Station:   station,
		PlayedAt:  playedAt,
		RawArtist: artist,
		RawTitle:  title,
	}, true
}

func parsePlayedAt(s string) time.Time {
	for _, layout := range playedAtFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}

func isHeader(record []string) bool {
	if len(record) < 4 {
		return false
	}
	head := strings.ToLower(strings.Join(record, ","))
	return strings.Contains(head, "artist") && strings.Contains(head, "title")
}
