package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/mdtrace/internal/config"
	"github.com/dgallion1/mdtrace/internal/pipeline"
)

// Server is the HTTP API server for mdtrace.
type Server struct {
	router   chi.Router
	runs     *pipeline.RunStore
	log      *slog.Logger
	settings config.Settings
}

// NewServer creates and configures the HTTP server.
func NewServer(runs *pipeline.RunStore, log *slog.Logger, settings config.Settings) *Server {
	s := &Server{
		runs:     runs,
		log:      log,
		settings: settings,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.settings.APIKey, s.log))

		r.Post("/api/preprocess", s.handlePreprocess)
		r.Get("/api/runs/{runID}", s.handleRunStatus)
		r.Get("/api/stats", s.handleStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
