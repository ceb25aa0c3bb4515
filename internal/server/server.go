// Package server provides the HTTP server and routing for Vigil.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/akritis/vigil/internal/config"
	"github.com/akritis/vigil/internal/database"
	"github.com/akritis/vigil/internal/events"
	"github.com/akritis/vigil/internal/metrics"
	"github.com/akritis/vigil/internal/modules/reports"
	"github.com/akritis/vigil/internal/pipeline"
	"github.com/akritis/vigil/internal/store"
)

// Config holds server configuration.
type Config struct {
	Log     zerolog.Logger
	Config  *config.Config
	Runner  *pipeline.Runner
	Runs    *store.RunRepository
	Reports *reports.Service
	Bus     *events.Bus
	Metrics *metrics.Registry
	DB      *database.DB
}

// Server represents the HTTP server.
type Server struct {
	router      *chi.Mux
	server      *http.Server
	log         zerolog.Logger
	cfg         *config.Config
	runner      *pipeline.Runner
	runs        *store.RunRepository
	reports     *reports.Service
	bus         *events.Bus
	metrics     *metrics.Registry
	db          *database.DB
	startupTime time.Time
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		log:         cfg.Log.With().Str("component", "server").Logger(),
		cfg:         cfg.Config,
		runner:      cfg.Runner,
		runs:        cfg.Runs,
		reports:     cfg.Reports,
		bus:         cfg.Bus,
		metrics:     cfg.Metrics,
		db:          cfg.DB,
		startupTime: time.Now(),
	}

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.handleHealth)

	// Prometheus scrape endpoint
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		// Live event streams. Connections are cut by the server timeouts
		// eventually; clients are expected to reconnect.
		r.Get("/events/stream", s.handleEventsStream)
		r.Get("/events/ws", s.handleEventsWebsocket)

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.handleListRuns)
			r.Get("/latest", s.handleLatestRun)
			r.Get("/{id}", s.handleGetRun)
			r.Get("/{id}/result", s.handleGetRunResult)
			r.Get("/{id}/report", s.handleGetRunReport)
		})

		r.Route("/pipelines", func(r chi.Router) {
			r.Get("/", s.handleListPipelines)
			r.Post("/{name}/run", s.handleTriggerPipeline)
		})

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
			r.Get("/database/stats", s.handleDatabaseStats)
			r.Get("/disk", s.handleDiskUsage)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the handler tree, primarily for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// loggingMiddleware logs HTTP requests and feeds the request counter.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(r.Method, r.URL.Path, ww.Status())
		}

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
