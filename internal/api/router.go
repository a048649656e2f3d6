// Package api exposes the matching engine over a JSON HTTP API.
package api

import (
	"log/slog"
	"net/http"

	"spinlog/internal/api/middleware"
	"spinlog/internal/auth"
	"spinlog/internal/backup"
	"spinlog/internal/bridge"
	"spinlog/internal/catalog"
	"spinlog/internal/event"
	"spinlog/internal/logging"
	"spinlog/internal/maintenance"
	"spinlog/internal/matcher"
	"spinlog/internal/playlog"
	"spinlog/internal/resolver"
	"spinlog/internal/settings"
)

// RouterDeps bundles the services the HTTP router needs.
type RouterDeps struct {
	AuthService    *auth.Service
	Matcher        *matcher.Matcher
	Resolver       *resolver.Resolver
	CatalogService *catalog.Service
	BridgeStore    *bridge.Store
	PlaylogService *playlog.Service
	Settings       *settings.Service
	LogManager     *logging.Manager
	// Backup and Maintenance may be nil; their routes return 503 then.
	Backup         *backup.Service
	Maintenance    *maintenance.Service
	Bus            *event.Bus
	Logger         *slog.Logger
	RateLimit      float64
	Burst          int
	DefaultStation string
}

// Router wires HTTP routes to the engine services.
type Router struct {
	authService *auth.Service
	matcher     *matcher.Matcher
	resolver    *resolver.Resolver
	catalog     *catalog.Service
	bridge      *bridge.Store
	playlog     *playlog.Service
	settings    *settings.Service
	logManager  *logging.Manager
	backup      *backup.Service
	maintenance *maintenance.Service
	bus         *event.Bus
	logger      *slog.Logger
	rateLimit   float64
	burst       int
	station     string
}

// NewRouter creates a Router with all routes configured.
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		authService: deps.AuthService,
		matcher:     deps.Matcher,
		resolver:    deps.Resolver,
		catalog:     deps.CatalogService,
		bridge:      deps.BridgeStore,
		playlog:     deps.PlaylogService,
		settings:    deps.Settings,
		logManager:  deps.LogManager,
		backup:      deps.Backup,
		maintenance: deps.Maintenance,
		bus:         deps.Bus,
		logger:      deps.Logger,
		rateLimit:   deps.RateLimit,
		burst:       deps.Burst,
		station:     deps.DefaultStation,
	}
}

// Handler returns the fully configured HTTP handler with middleware applied.
func (r *Router) Handler() http.Handler {
	authMw := middleware.Auth(r.authService)
	limiter := middleware.NewRateLimiter(r.rateLimit, r.burst)
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /api/v1/health", r.handleHealth)

	// Matching
	mux.HandleFunc("POST /api/v1/match", wrap(r.handleMatch, authMw, limiter))
	mux.HandleFunc("POST /api/v1/match/batch", wrap(r.handleMatchBatch, authMw, limiter))

	// Artist resolution and split proposals
	mux.HandleFunc("POST /api/v1/resolve", wrap(r.handleResolve, authMw, limiter))
	mux.HandleFunc("GET /api/v1/splits", wrap(r.handleListSplits, authMw))
	mux.HandleFunc("POST /api/v1/splits/approve", wrap(r.handleApproveSplit, authMw, limiter))
	mux.HandleFunc("POST /api/v1/splits/reject", wrap(r.handleRejectSplit, authMw, limiter))

	// Review queue
	mux.HandleFunc("GET /api/v1/reviews", wrap(r.handleListReviews, authMw))
	mux.HandleFunc("POST /api/v1/reviews/{id}/confirm", wrap(r.handleConfirmReview, authMw, limiter))
	mux.HandleFunc("POST /api/v1/reviews/{id}/dismiss", wrap(r.handleDismissReview, authMw, limiter))

	// Identity bridge
	mux.HandleFunc("GET /api/v1/bridges", wrap(r.handleGetBridge, authMw))
	mux.HandleFunc("POST /api/v1/bridges/revoke", wrap(r.handleRevokeBridge, authMw, limiter))

	// Catalog
	mux.HandleFunc("GET /api/v1/works/{id}", wrap(r.handleGetWork, authMw))
	mux.HandleFunc("GET /api/v1/works/{id}/logs", wrap(r.handleWorkLogs, authMw))

	// Broadcast logs
	mux.HandleFunc("POST /api/v1/logs/import", wrap(r.handleImportLogs, authMw, limiter))
	mux.HandleFunc("GET /api/v1/logs/unlinked", wrap(r.handleUnlinkedCount, authMw))

	// Maintenance sweeps
	mux.HandleFunc("POST /api/v1/maintenance/promote", wrap(r.handlePromote, authMw, limiter))
	mux.HandleFunc("POST /api/v1/maintenance/link", wrap(r.handleLinkOrphans, authMw, limiter))

	// Database upkeep
	mux.HandleFunc("GET /api/v1/maintenance/status", wrap(r.handleMaintenanceStatus, authMw))
	mux.HandleFunc("POST /api/v1/maintenance/optimize", wrap(r.handleOptimize, authMw, limiter))
	mux.HandleFunc("POST /api/v1/backups", wrap(r.handleCreateBackup, authMw, limiter))
	mux.HandleFunc("GET /api/v1/backups", wrap(r.handleListBackups, authMw))
	mux.HandleFunc("DELETE /api/v1/backups/{filename}", wrap(r.handleDeleteBackup, authMw, limiter))

	// Settings
	mux.HandleFunc("GET /api/v1/settings/matching", wrap(r.handleGetThresholds, authMw))
	mux.HandleFunc("PUT /api/v1/settings/matching", wrap(r.handleSetThresholds, authMw, limiter))
	mux.HandleFunc("GET /api/v1/settings/logging", wrap(r.handleGetLogging, authMw))
	mux.HandleFunc("PUT /api/v1/settings/logging", wrap(r.handleSetLogging, authMw, limiter))

	// API tokens
	mux.HandleFunc("GET /api/v1/tokens", wrap(r.handleListTokens, authMw))
	mux.HandleFunc("POST /api/v1/tokens", wrap(r.handleIssueToken, authMw, limiter))
	mux.HandleFunc("DELETE /api/v1/tokens/{id}", wrap(r.handleRevokeToken, authMw, limiter))

	return middleware.Logging(r.logger)(mux)
}

// wrap applies auth and optional rate limiting to a handler function.
func wrap(fn http.HandlerFunc, authMw func(http.Handler) http.Handler, limiters ...*middleware.RateLimiter) http.HandlerFunc {
	var h http.Handler = fn
	for _, l := range limiters {
		h = l.Middleware(h)
	}
	h = authMw(h)
	return h.ServeHTTP
}
