package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/deepmd/internal/config"
	"github.com/dgallion1/deepmd/internal/pipeline"
	"github.com/dgallion1/deepmd/internal/render"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for deepmd.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	preview      *render.Preview
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		preview:      render.NewPreview(),
		log:          log,
		cfg:          cfg,
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
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/export", s.handleExport)
		r.Get("/api/export/{jobID}/status", s.handleExportStatus)
		r.Get("/api/export/{jobID}/download", s.handleDownload)
		r.Get("/api/export/{jobID}/preview", s.handlePreview)
		r.Get("/api/stats/exports", s.handleExportStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
