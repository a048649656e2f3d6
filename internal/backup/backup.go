package backup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// snapshotPattern matches snapshot filenames: spinlog-YYYYMMDD-HHMMSS.db
var snapshotPattern = regexp.MustCompile(`^spinlog-\d{8}-\d{6}\.db$`)

// Snapshot describes one database snapshot on disk.
type Snapshot struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Service writes and prunes database snapshots via VACUUM INTO.
type Service struct {
	db         *sql.DB
	dir        string
	retention  int
	maxAgeDays int
	logger     *slog.Logger
}

// NewService creates a snapshot service. retention is the number of
// snapshots kept by Prune; maxAgeDays additionally drops snapshots older
// than that many days when positive.
func NewService(db *sql.DB, dir string, retention, maxAgeDays int, logger *slog.Logger) *Service {
	return &Service{
		db:         db,
		dir:        dir,
		retention:  retention,
		maxAgeDays: maxAgeDays,
		logger:     logger.With(slog.String("component", "backup")),
	}
}

// Snapshot writes a consistent copy of the database to the snapshot
// directory. VACUUM INTO produces a compacted standalone file and does
// not block readers.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}

	now := time.Now().UTC()
	filename := fmt.Sprintf("spinlog-%s.db", now.Format("20060102-150405"))
	dest := filepath.Join(s.dir, filename)

	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return nil, fmt.Errorf("VACUUM INTO: %w", err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("stat snapshot file: %w", err)
	}

	s.logger.Info("snapshot written",
		slog.String("filename", filename),
		slog.Int64("size", info.Size()))

	return &Snapshot{Filename: filename, Size: info.Size(), CreatedAt: now}, nil
}

// List returns all snapshots in the directory, newest first. A missing
// directory is an empty list, not an error.
func (s *Service) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading snapshot directory: %w", err)
	}

	var snaps []Snapshot
	for _, entry := range entries {
		if entry.IsDir() || !snapshotPattern.MatchString(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		name := strings.TrimSuffix(strings.TrimPrefix(entry.Name(), "spinlog-"), ".db")
		ts, err := time.Parse("20060102-150405", name)
		if err != nil {
			ts = info.ModTime()
		}

		snaps = append(snaps, Snapshot{
			Filename:  entry.Name(),
			Size:      info.Size(),
			CreatedAt: ts,
		})
	}

	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
	})
	return snaps, nil
}

// Delete removes one snapshot by filename.
func (s *Service) Delete(filename string) error {
	if !ValidFilename(filename) {
		return fmt.Errorf("invalid snapshot filename")
	}
	if err := os.Remove(filepath.Join(s.dir, filename)); err != nil {
		return fmt.Errorf("removing snapshot: %w", err)
	}
	s.logger.Info("snapshot deleted", slog.String("filename", filename))
	return nil
}

// Prune drops snapshots beyond the retention count, then any older than
// the max age.
func (s *Service) Prune() error {
	snaps, err := s.List()
	if err != nil {
		return err
	}

	if len(snaps) > s.retention {
		for _, sn := range snaps[s.retention:] {
			if err := os.Remove(filepath.Join(s.dir, sn.Filename)); err != nil {
				s.logger.Warn("failed to remove old snapshot",
					slog.String("filename", sn.Filename),
					slog.Any("error", err))
				continue
			}
			s.logger.Info("pruned old snapshot", slog.String("filename", sn.Filename))
		}
	}

	if s.maxAgeDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -s.maxAgeDays)
		snaps, err = s.List()
		if err != nil {
			return err
		}
		for _, sn := range snaps {
			if sn.CreatedAt.Before(cutoff) {
				if err := os.Remove(filepath.Join(s.dir, sn.Filename)); err != nil {
					s.logger.Warn("failed to remove aged snapshot",
						slog.String("filename", sn.Filename),
						slog.Any("error", err))
					continue
				}
				s.logger.Info("pruned aged snapshot", slog.String("filename", sn.Filename))
			}
		}
	}
	return nil
}

// StartScheduler takes snapshots on a fixed interval until the context is
// canceled, pruning after each one.
func (s *Service) StartScheduler(ctx context.Context, interval time.Duration) {
	s.logger.Info("snapshot scheduler started",
		slog.String("interval", interval.String()),
		slog.Int("retention", s.retention))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("snapshot scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.Snapshot(ctx); err != nil {
				s.logger.Error("scheduled snapshot failed", slog.Any("error", err))
				continue
			}
			if err := s.Prune(); err != nil {
				s.logger.Error("snapshot prune failed", slog.Any("error", err))
			}
		}
	}
}

// ValidFilename reports whether filename matches the snapshot pattern and
// carries no path separators.
func ValidFilename(filename string) bool {
	if strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		return false
	}
	return snapshotPattern.MatchString(filename)
}
