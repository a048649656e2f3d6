package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"spinlog/internal/api"
	"spinlog/internal/auth"
	"spinlog/internal/backup"
	"spinlog/internal/bridge"
	"spinlog/internal/catalog"
	"spinlog/internal/config"
	"spinlog/internal/database"
	"spinlog/internal/event"
	"spinlog/internal/logging"
	"spinlog/internal/maintenance"
	"spinlog/internal/matcher"
	"spinlog/internal/playlog"
	"spinlog/internal/resolver"
	"spinlog/internal/settings"
	"spinlog/internal/simindex"
	"spinlog/internal/version"
	"spinlog/internal/webhook"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "import":
			if len(os.Args) < 3 {
				fmt.Fprintln(os.Stderr, "usage: spinlog import <file.csv>")
				os.Exit(2)
			}
			if err := importFile(os.Args[2]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "gen-token":
			if len(os.Args) < 3 {
				fmt.Fprintln(os.Stderr, "usage: spinlog gen-token <name>")
				os.Exit(2)
			}
			if err := genToken(os.Args[2]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func configPath() string {
	if p := os.Getenv("SPINLOG_CONFIG_PATH"); p != "" {
		return p
	}
	return "/data/config.yaml"
}

func run() error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logManager, logger := logging.NewManager(cfg.Logging)
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("database ready", slog.String("path", cfg.Database.Path))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eventBus := event.NewBus(logger, 256)
	go eventBus.Start()
	defer eventBus.Stop()

	if cfg.Notify.WebhookURL != "" {
		dispatcher := webhook.NewDispatcher(cfg.Notify.WebhookURL, logger)
		for _, eventType := range []event.Type{
			event.SplitProposed, event.ReviewNeeded, event.WorkPromoted,
			event.LogsLinked, event.ImportCompleted, event.BridgeRevoked,
		} {
			eventBus.Subscribe(eventType, dispatcher.HandleEvent)
		}
	}

	settingsService, err := settings.NewService(ctx, db)
	if err != nil {
		return fmt.Errorf("loading matching settings: %w", err)
	}

	catalogService := catalog.NewService(db)
	bridgeStore := bridge.NewStore(db)
	playlogService := playlog.NewService(db)
	authService := auth.NewService(db)
	resolverService := resolver.NewResolver(db, logger, eventBus)

	index := simindex.NewMemoryIndex()
	if err := seedIndex(ctx, catalogService, index, logger); err != nil {
		return err
	}

	engine := matcher.NewMatcher(db, catalogService, bridgeStore, playlogService,
		index, settingsService, logger, eventBus)

	logger.Info("starting spinlog",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
	)

	maintenanceService := maintenance.NewService(db, cfg.Database.Path, logger)

	var backupService *backup.Service
	if cfg.Backup.Dir != "" {
		backupService = backup.NewService(db, cfg.Backup.Dir,
			cfg.Backup.Retention, cfg.Backup.MaxAgeDays, logger)
		go backupService.StartScheduler(ctx, time.Duration(cfg.Backup.IntervalHours)*time.Hour)
	}

	if cfg.Ingest.DropDir != "" {
		dropWatcher := playlog.NewWatcher(playlogService, cfg.Ingest.DropDir,
			cfg.Ingest.DefaultStation, logger, eventBus)
		go dropWatcher.Start(ctx)
	}

	// Hourly sweep: link what now matches, then promote what repeats.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := engine.LinkOrphanedLogs(ctx); err != nil {
					logger.Error("orphan link sweep failed", "error", err)
				}
				if _, err := engine.ScanAndPromote(ctx); err != nil {
					logger.Error("promotion sweep failed", "error", err)
				}
			}
		}
	}()

	router := api.NewRouter(api.RouterDeps{
		AuthService:    authService,
		Matcher:        engine,
		Resolver:       resolverService,
		CatalogService: catalogService,
		BridgeStore:    bridgeStore,
		PlaylogService: playlogService,
		Settings:       settingsService,
		LogManager:     logManager,
		Backup:         backupService,
		Maintenance:    maintenanceService,
		Bus:            eventBus,
		Logger:         logger,
		RateLimit:      cfg.Server.RateLimit,
		Burst:          cfg.Server.Burst,
		DefaultStation: cfg.Ingest.DefaultStation,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// seedIndex loads every catalog work into the similarity index. The index
// is in-memory, so it rebuilds from the catalog on every start.
func seedIndex(ctx context.Context, cat *catalog.Service, index *simindex.MemoryIndex, logger *slog.Logger) error {
	works, err := cat.AllWorks(ctx)
	if err != nil {
		return fmt.Errorf("seeding similarity index: %w", err)
	}
	entries := make([]simindex.Entry, 0, len(works))
	for _, w := range works {
		entries = append(entries, simindex.Entry{
			ID:     w.ID,
			Artist: strings.Join(w.ArtistNames(), " "),
			Title:  w.Title,
		})
	}
	index.AddBatch(entries)
	logger.Info("similarity index seeded", slog.Int("works", len(entries)))
	return nil
}

// importFile imports a station CSV export and prints a summary. Offline
// counterpart of the drop-directory watcher.
func importFile(path string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logManager, logger := logging.NewManager(cfg.Logging)
	defer logManager.Close() //nolint:errcheck

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	result, err := playlog.NewService(db).ImportFile(context.Background(),
		path, cfg.Ingest.DefaultStation, logger, nil)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d rows (%d skipped)\n", result.Imported, result.Skipped)
	return nil
}

// genToken issues a named API token and prints it once. When run on a
// terminal it asks for confirmation first, since issuing the first token
// switches the API from open mode to authenticated mode.
func genToken(name string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	ctx := context.Background()
	authService := auth.NewService(db)

	if term.IsTerminal(int(os.Stdin.Fd())) {
		hasTokens, err := authService.HasTokens(ctx)
		if err != nil {
			return err
		}
		if !hasTokens {
			fmt.Print("This is the first token; the API will require authentication from now on. Continue? [y/N] ")
			line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			if answer := strings.ToLower(strings.TrimSpace(line)); answer != "y" && answer != "yes" {
				return fmt.Errorf("aborted")
			}
		}
	}

	token, err := authService.Issue(ctx, name)
	if err != nil {
		return err
	}
	fmt.Printf("token %q issued. Store it now; it cannot be shown again.\n%s\n", name, token)
	return nil
}
