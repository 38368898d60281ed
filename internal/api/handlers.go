package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/lead-enricher/internal/enrich"
	"github.com/sells-group/lead-enricher/internal/model"
	"github.com/sells-group/lead-enricher/internal/provider"
	"github.com/sells-group/lead-enricher/internal/store"
)

const maxBodyBytes = 1 << 20

// EnrichRequest is the body of POST /api/enrich.
type EnrichRequest struct {
	Emails                 []string `json:"emails" validate:"required,min=1"`
	ChatModelProvider      string   `json:"chatModelProvider,omitempty" validate:"omitempty,max=100"`
	ChatModel              string   `json:"chatModel,omitempty" validate:"omitempty,max=200"`
	EmbeddingModelProvider string   `json:"embeddingModelProvider,omitempty" validate:"omitempty,max=100"`
	EmbeddingModel         string   `json:"embeddingModel,omitempty" validate:"omitempty,max=200"`
	FocusMode              string   `json:"focusMode,omitempty" validate:"omitempty,max=100"`
	OptimizationMode       string   `json:"optimizationMode,omitempty" validate:"omitempty,oneof=speed balanced quality"`
	SystemInstructions     string   `json:"systemInstructions,omitempty" validate:"omitempty,max=4000"`
}

// RunDetail is the body of GET /api/runs/{id}.
type RunDetail struct {
	Run   *model.Run          `json:"run"`
	Leads []model.LeadOutcome `json:"leads"`
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[EnrichRequest](w, r, maxBodyBytes)
	if !ok {
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	if err := s.validate.Var(req.Emails, "max="+strconv.Itoa(s.cfg.MaxBatchSize)); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("emails: at most %d per request", s.cfg.MaxBatchSize))
		return
	}

	outcome := s.runner.EnrichBatch(r.Context(), req.Emails, enrich.Options{
		Requested: provider.Requested{
			ChatProvider:      req.ChatModelProvider,
			ChatModel:         req.ChatModel,
			EmbeddingProvider: req.EmbeddingModelProvider,
			EmbeddingModel:    req.EmbeddingModel,
		},
		FocusMode:          req.FocusMode,
		OptimizationMode:   req.OptimizationMode,
		SystemInstructions: req.SystemInstructions,
		Source:             model.RunSourceAPI,
		PushCRM:            s.cfg.PushCRM,
	})
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	q := r.URL.Query()
	filter := store.RunFilter{
		Status: model.RunStatus(q.Get("status")),
		Source: model.RunSource(q.Get("source")),
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	runs, err := s.runs.ListRuns(r.Context(), filter)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	id := chi.URLParam(r, "id")

	run, err := s.runs.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		writeInternalError(w, err)
		return
	}
	leads, err := s.runs.ListLeads(r.Context(), id)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RunDetail{Run: run, Leads: leads})
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "run store not configured")
		return false
	}
	return true
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("invalid")
	}
	return n, nil
}
