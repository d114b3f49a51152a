package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/flatjson/internal/config"
	"github.com/dgallion1/flatjson/internal/fetch"
	"github.com/dgallion1/flatjson/internal/pipeline"
	"github.com/dgallion1/flatjson/internal/store"
)

// Linker maps an object key to the URL clients download it from.
type Linker interface {
	PublicURL(key string) string
}

// ObjectStore is the remote store surface used to manage a job's artifacts.
type ObjectStore interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
	ListObjects(ctx context.Context, prefix string, limit int) ([]store.Object, error)
}

// Server is the HTTP API server for flatjson.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	fetcher      *fetch.Fetcher
	links        Linker
	objects      ObjectStore
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. objects is nil when
// artifacts are kept in a local directory; they are then served under
// /artifacts/ from cfg.OutputDir.
func NewServer(orch *pipeline.Orchestrator, fetcher *fetch.Fetcher, links Linker, objects ObjectStore, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		fetcher:      fetcher,
		links:        links,
		objects:      objects,
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
	r.Use(CORS)

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	if s.objects == nil {
		fs := http.StripPrefix("/artifacts/", http.FileServer(http.Dir(s.cfg.OutputDir)))
		r.Handle("/artifacts/*", fs)
	}

	// Authenticated endpoints; open when no API key is configured.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/flatten", s.handleFlatten)
		r.Get("/api/flatten", s.handleFlattenNotPost)
		r.Post("/api/reconstruct", s.handleReconstruct)

		r.Get("/api/jobs/{jobID}", s.handleJobStatus)
		r.Get("/api/jobs/{jobID}/artifacts", s.handleListArtifacts)
		r.Get("/api/jobs/{jobID}/artifacts/{name}", s.handleGetArtifact)
		r.Delete("/api/jobs/{jobID}/artifacts", s.handleDeleteArtifacts)

		r.Get("/api/stats/uploads", s.handleUploadStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
