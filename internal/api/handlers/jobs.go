package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/omnitrack/ledger/internal/api/middleware"
	"github.com/omnitrack/ledger/internal/projection"
)

// JobsHandler exposes projection job state for observability.
type JobsHandler struct {
	store projection.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new projection jobs handler.
func NewJobsHandler(store projection.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// Get handles GET /api/projection-jobs/{id}
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.store.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// List handles GET /api/projection-jobs
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	status := projection.JobStatus(r.URL.Query().Get("status"))

	jobs, err := h.store.ListJobs(r.Context(), status)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list projection jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list projection jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}
