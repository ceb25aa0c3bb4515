package server

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/akritis/vigil/internal/modules/reports"
	"github.com/akritis/vigil/internal/pipeline"
	"github.com/akritis/vigil/internal/store"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "vigil",
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleListRuns returns recent runs, newest first. The limit query
// parameter caps the page size; the repository default applies otherwise.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	runs, err := s.runs.ListRecent(limit)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list runs")
		s.writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// handleLatestRun returns the most recent run, optionally filtered to one
// pipeline via the pipeline query parameter.
func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("pipeline")
	if name != "" && !slices.Contains(pipeline.Names(), name) {
		s.writeError(w, http.StatusBadRequest, "unknown pipeline: "+name)
		return
	}

	var (
		run *store.Run
		err error
	)
	if name != "" {
		run, err = s.runs.LatestForPipeline(name)
	} else {
		run, err = s.runs.Latest()
	}
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load latest run")
		s.writeError(w, http.StatusInternalServerError, "failed to load latest run")
		return
	}
	if run == nil {
		s.writeError(w, http.StatusNotFound, "no runs recorded yet")
		return
	}

	s.writeJSON(w, http.StatusOK, run)
}

// handleGetRun returns one run's summary row.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := s.runs.Get(id)
	if err != nil {
		s.log.Error().Err(err).Str("run_id", id).Msg("Failed to load run")
		s.writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	if run == nil {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}

	s.writeJSON(w, http.StatusOK, run)
}

// handleGetRunResult returns the full diagnostics result for one run.
// Failed runs have no stored result and report 404.
func (s *Server) handleGetRunResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := s.runs.GetResult(id)
	if err != nil {
		s.log.Error().Err(err).Str("run_id", id).Msg("Failed to load run result")
		s.writeError(w, http.StatusInternalServerError, "failed to load run result")
		return
	}
	if result == nil {
		s.writeError(w, http.StatusNotFound, "no result stored for run")
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handleGetRunReport re-renders the stored result of one run. Markdown is
// the default; format=html returns the standalone HTML document instead.
func (s *Server) handleGetRunReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := s.runs.Get(id)
	if err != nil {
		s.log.Error().Err(err).Str("run_id", id).Msg("Failed to load run")
		s.writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	if run == nil {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}

	result, err := s.runs.GetResult(id)
	if err != nil {
		s.log.Error().Err(err).Str("run_id", id).Msg("Failed to load run result")
		s.writeError(w, http.StatusInternalServerError, "failed to load run result")
		return
	}
	if result == nil {
		s.writeError(w, http.StatusNotFound, "no result stored for run")
		return
	}

	rep := reports.NewReport(reports.Inputs{
		RunID:       run.ID,
		Pipeline:    run.Pipeline,
		GeneratedAt: run.CreatedAt,
		Result:      result,
	})

	markdown, err := s.reports.Markdown(rep)
	if err != nil {
		s.log.Error().Err(err).Str("run_id", id).Msg("Failed to render report")
		s.writeError(w, http.StatusInternalServerError, "failed to render report")
		return
	}

	if r.URL.Query().Get("format") == "html" {
		html, err := s.reports.HTML(markdown)
		if err != nil {
			s.log.Error().Err(err).Str("run_id", id).Msg("Failed to render HTML report")
			s.writeError(w, http.StatusInternalServerError, "failed to render report")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(html); err != nil {
			s.log.Error().Err(err).Msg("Failed to write HTML response")
		}
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(markdown)); err != nil {
		s.log.Error().Err(err).Msg("Failed to write markdown response")
	}
}

// handleListPipelines returns the pipeline names that can be triggered.
func (s *Server) handleListPipelines(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"pipelines": pipeline.Names(),
	})
}

// handleTriggerPipeline runs one pipeline immediately. The optional as_of
// query parameter (YYYY-MM-DD) overrides the valuation date; the holdings
// file's own date still wins when it carries one.
func (s *Server) handleTriggerPipeline(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !slices.Contains(pipeline.Names(), name) {
		s.writeError(w, http.StatusBadRequest, "unknown pipeline: "+name)
		return
	}

	var asOf time.Time
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "as_of must be formatted YYYY-MM-DD")
			return
		}
		asOf = parsed
	}

	s.log.Info().Str("pipeline", name).Msg("Manual pipeline run triggered")

	outcome, err := s.runner.Run(r.Context(), name, asOf)
	if err != nil {
		s.log.Error().Err(err).Str("pipeline", name).Msg("Failed to run pipeline")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"message":  name + " pipeline completed successfully",
		"run_id":   outcome.RunID,
		"as_of":    outcome.AsOf.Format("2006-01-02"),
		"duration": outcome.Duration.String(),
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
