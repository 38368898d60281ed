// Package api exposes batch enrichment and run history over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/sells-group/lead-enricher/internal/enrich"
	"github.com/sells-group/lead-enricher/internal/model"
	"github.com/sells-group/lead-enricher/internal/store"
)

// DefaultMaxBatchSize caps the emails accepted by one enrich request.
const DefaultMaxBatchSize = 50

// BatchRunner runs one enrichment batch.
type BatchRunner interface {
	EnrichBatch(ctx context.Context, emails []string, opts enrich.Options) model.BatchOutcome
}

// RunReader is the read side of the run store.
type RunReader interface {
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
	ListLeads(ctx context.Context, runID string) ([]model.LeadOutcome, error)
}

// Config holds server options.
type Config struct {
	MaxBatchSize   int
	AllowedOrigins []string
	// PushCRM is applied to every batch started over HTTP.
	PushCRM bool
}

// Server serves the HTTP API.
type Server struct {
	runner   BatchRunner
	runs     RunReader
	validate *validator.Validate
	cfg      Config
}

// New creates a Server. runs may be nil when no store is configured.
func New(runner BatchRunner, runs RunReader, cfg Config) *Server {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	return &Server{
		runner:   runner,
		runs:     runs,
		validate: newValidator(),
		cfg:      cfg,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/enrich", s.handleEnrich)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
	})
	return r
}

// NewHTTPServer wraps the router in an http.Server. Write timeouts are left
// unset because an enrich request holds the connection for the whole batch.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"store":          s.runs != nil,
		"max_batch_size": s.cfg.MaxBatchSize,
	})
}
