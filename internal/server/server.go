// Package server exposes the monitor over HTTP and a websocket stream.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"price-monitor/internal/logging"
	"price-monitor/internal/monitor"
	"price-monitor/internal/stream"
)

// Config holds server configuration.
type Config struct {
	Addr           string
	AllowedOrigins []string
	// WSBuffer is the per-client message buffer of the websocket stream.
	WSBuffer int
	Service  *monitor.Service
	Hub      *stream.Hub
	Log      zerolog.Logger
}

// Server is the dashboard API.
type Server struct {
	router  *chi.Mux
	server  *http.Server
	svc     *monitor.Service
	hub     *stream.Hub
	log     zerolog.Logger
	origins []string
	buffer  int
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if cfg.WSBuffer <= 0 {
		cfg.WSBuffer = 64
	}
	s := &Server{
		router:  chi.NewRouter(),
		svc:     cfg.Service,
		hub:     cfg.Hub,
		log:     logging.WithComponent(cfg.Log, "server"),
		origins: cfg.AllowedOrigins,
		buffer:  cfg.WSBuffer,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:        cfg.Addr,
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: /ws connections are long lived
		IdleTimeout: 60 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/ws", s.handleWS)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Route("/symbols", func(r chi.Router) {
			r.Get("/", s.handleListSymbols)
			r.Post("/", s.handleAddSymbol)
			r.Route("/{symbol}", func(r chi.Router) {
				r.Delete("/", s.handleRemoveSymbol)
				r.Get("/thresholds", s.handleListThresholds)
				r.Post("/thresholds", s.handleAddThreshold)
				r.Delete("/thresholds/{kind}/{value}", s.handleRemoveThreshold)
			})
		})

		r.Get("/history", s.handleHistory)
		r.Delete("/history", s.handleClearHistory)
		r.Get("/export", s.handleExport)
	})
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
