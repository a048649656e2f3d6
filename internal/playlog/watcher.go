package playlog

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"spinlog/internal/event"
)

// Watcher monitors a drop directory for station CSV exports and imports each
// new file exactly once, deleting the file on success so a restart cannot
// ingest it twice. Writes are debounced so a file is only read after the
// exporting process has stopped touching it.
type Watcher struct {
	service  *Service
	dir      string
	station  string
	logger   *slog.Logger
	bus      *event.Bus
	debounce time.Duration

	mu       sync.Mutex
	imported map[string]struct{}
}

// NewWatcher creates a drop-directory watcher.
func NewWatcher(service *Service, dir, defaultStation string, logger *slog.Logger, bus *event.Bus) *Watcher {
	return &Watcher{
		service:  service,
		dir:      dir,
		station:  defaultStation,
		logger:   logger.With("component", "log-watcher"),
		bus:      bus,
		debounce: 2 * time.Second,
		imported: make(map[string]struct{}),
	}
}

// SetDebounce overrides the default debounce interval (for testing).
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Start blocks until ctx is canceled, importing CSV files as they appear.
// Files already present at startup are imported first.
func (w *Watcher) Start(ctx context.Context) {
	w.importExisting(ctx)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("fsnotify unavailable, drop directory disabled", "error", err)
		return
	}
	defer fw.Close() //nolint:errcheck

	if err := fw.Add(w.dir); err != nil {
		w.logger.Warn("cannot watch drop directory", "dir", w.dir, "error", err)
		return
	}
	w.logger.Info("watching drop directory", "dir", w.dir)

	pending := make(map[string]struct{})
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if !isCSV(ev.Name) {
				continue
			}
			if ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write) {
				pending[ev.Name] = struct{}{}
				timer.Reset(w.debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)

		case <-timer.C:
			for path := range pending {
				w.importOnce(ctx, path)
			}
			pending = make(map[string]struct{})
		}
	}
}

func (w *Watcher) importExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("cannot read drop directory", "dir", w.dir, "error", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() || !isCSV(e.Name()) {
			continue
		}
		w.importOnce(ctx, filepath.Join(w.dir, e.Name()))
	}
}

func (w *Watcher) importOnce(ctx context.Context, path string) {
	w.mu.Lock()
	if _, done := w.imported[path]; done {
		w.mu.Unlock()
		return
	}
	w.imported[path] = struct{}{}
	w.mu.Unlock()

	result, err := w.service.ImportFile(ctx, path, w.station, w.logger, w.bus)
	if err != nil {
		w.logger.Error("importing dropped log file", "path", path, "error", err)
		// Allow a retry on the next write event.
		w.mu.Lock()
		delete(w.imported, path)
		w.mu.Unlock()
		return
	}
	// Delete the consumed file; whatever is still in the directory at the
	// next start gets imported, so leaving it behind would duplicate rows.
	if err := os.Remove(path); err != nil {
		w.logger.Warn("cannot remove imported log file", "path", path, "error", err)
	}

	w.logger.Info("imported dropped log file",
		"path", path, "imported", result.Imported, "skipped", result.Skipped)
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}
