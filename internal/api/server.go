package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/mdsplit/internal/config"
	"github.com/dgallion1/mdsplit/internal/metrics"
	"github.com/dgallion1/mdsplit/internal/pipeline"
	"github.com/dgallion1/mdsplit/internal/segmenter"
)

// Server is the HTTP API server for mdsplit.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	seg          *segmenter.Segmenter
	metrics      *metrics.Metrics
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. m may be nil.
func NewServer(orch *pipeline.Orchestrator, m *metrics.Metrics, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		seg:          segmenter.New(segmenter.WithLogger(log)),
		metrics:      m,
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
	r.Use(RequestLogger(s.log, s.metrics))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/segment", s.handleSegment)

		r.Post("/api/ingest", s.handleIngest)
		r.Post("/api/ingest/batch", s.handleBatchIngest)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)
		r.Get("/api/ingest/{jobID}/sections", s.handleJobSections)
		r.Get("/api/ingest/{jobID}/chunks", s.handleJobChunks)

		r.Get("/api/stats/llm", s.handleLLMStats)

		r.Get("/api/documents", s.handleListDocuments)
		r.Get("/api/documents/{docID}", s.handleGetDocument)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"normalizer":  s.orchestrator.Normalizer().Name(),
		"store":       s.orchestrator.Store() != nil,
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
