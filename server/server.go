// Package server exposes the allocator service as a JSON HTTP API and runs
// the scheduled quote refresh.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/etnz/allocator/config"
	"github.com/etnz/allocator/service"
)

// Config holds server configuration
type Config struct {
	Server  config.ServerConfig
	Log     zerolog.Logger
	Service *service.Service
}

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	server    *http.Server
	scheduler *Scheduler
	svc       *service.Service
	log       zerolog.Logger
	cfg       config.ServerConfig
}

// New creates a new HTTP server. The quote refresh job is registered when a
// refresh schedule is configured.
func New(cfg Config) (*Server, error) {
	s := &Server{
		router:    chi.NewRouter(),
		scheduler: NewScheduler(cfg.Log),
		svc:       cfg.Service,
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Server,
	}

	s.setupMiddleware()
	s.setupRoutes()

	if cfg.Server.RefreshSchedule != "" {
		if err := s.scheduler.AddJob(cfg.Server.RefreshSchedule, &refreshJob{svc: cfg.Service}); err != nil {
			return nil, err
		}
	}

	s.server = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/profiles", s.handleProfiles)

		r.Get("/consolidated", s.handleConsolidated)

		r.Get("/quotes", s.handleQuotes)
		r.Post("/quotes/refresh", s.handleRefreshQuotes)

		r.Route("/portfolios", func(r chi.Router) {
			r.Get("/", s.handlePortfolios)
			r.Post("/", s.handleCreate)
			r.Post("/plan", s.handlePlan)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handlePortfolio)
				r.Delete("/", s.handleDelete)
				r.Put("/notes", s.handleNotes)
				r.Post("/duplicate", s.handleDuplicate)
				r.Post("/contributions", s.handleContribute)
				r.Post("/rebalance/preview", s.handleRebalance(false))
				r.Post("/rebalance", s.handleRebalance(true))
				r.Put("/quotes/{ticker}", s.handleManualQuote)
				r.Get("/transactions", s.handleTransactions)
				r.Get("/dividends", s.handleDividends)
				r.Post("/dividends", s.handleRecordDividend)
				r.Get("/goal", s.handleForecast)
				r.Put("/goal", s.handleSetGoal)
				r.Delete("/goal", s.handleClearGoal)
			})
		})
	})
}

// Start starts the scheduler and the HTTP server. It blocks until the server
// stops.
func (s *Server) Start() error {
	s.scheduler.Start()
	s.log.Info().Str("addr", s.cfg.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	s.scheduler.Stop()
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

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
