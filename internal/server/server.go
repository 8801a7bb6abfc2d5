package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/me/ticksched/internal/config"
	"github.com/me/ticksched/internal/scheduler"
	"github.com/me/ticksched/internal/store"
	"github.com/me/ticksched/pkg/model"
)

// Version is reported by the health and discovery endpoints.
const Version = "0.1.0"

// Server is the ticksched REST API server.
type Server struct {
	router      chi.Router
	logger      *slog.Logger
	config      config.DaemonConfig
	startTime   time.Time
	store       store.Store
	engine      scheduler.Engine
	sseInterval time.Duration
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithSSEInterval sets how often the stats stream polls the engine.
func WithSSEInterval(d time.Duration) Option {
	return func(s *Server) {
		s.sseInterval = d
	}
}

// New creates a new Server with all routes registered.
// eng may be nil when only the journal is served; engine routes then answer 503.
func New(cfg config.DaemonConfig, st store.Store, eng scheduler.Engine, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		logger:      logger.With("component", "server"),
		config:      cfg,
		startTime:   time.Now(),
		store:       st,
		engine:      eng,
		sseInterval: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.handleDiscovery)
		r.Get("/health", s.handleHealth)

		// Live engine state
		r.Group(func(r chi.Router) {
			r.Use(s.requireEngine)
			r.Get("/slots", s.handleListSlots)
			r.Get("/stats", s.handleGetStats)
			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", s.handleListTasks)
				r.Post("/", s.handleAddTask)
				r.Route("/{name}", func(r chi.Router) {
					r.Post("/pause", s.handlePauseTask)
					r.Post("/continue", s.handleContinueTask)
					r.Post("/disable", s.handleDisableTask)
				})
			})
			r.Get("/sse/stats", s.handleSSEStats)
		})

		// Journal
		r.Route("/runs", func(r chi.Router) {
			r.Use(s.requireStore)
			r.Get("/", s.handleListRuns)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetRun)
				r.Get("/fires", s.handleListFires)
				r.Get("/overruns", s.handleListOverruns)
			})
		})
	})
}

// requireEngine answers 503 when the server runs without a live scheduler.
func (s *Server) requireEngine(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.engine == nil {
			respondError(w, RequestIDFromContext(r.Context()), http.StatusServiceUnavailable,
				&model.APIError{Code: model.ErrUnavailable, Message: "scheduler not running"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil {
			respondError(w, RequestIDFromContext(r.Context()), http.StatusServiceUnavailable,
				&model.APIError{Code: model.ErrUnavailable, Message: "journal not configured"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
