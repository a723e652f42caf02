package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/recap/backend/internal/contracts"
	"github.com/wonny/recap/backend/internal/scheduler"
	"github.com/wonny/recap/backend/internal/scheduler/jobs"
	"github.com/wonny/recap/backend/internal/universe"
	"github.com/wonny/recap/backend/pkg/logger"
)

// RunReader exposes finished runs (monitor.RunStore)
type RunReader interface {
	Latest() (contracts.RunSummary, bool)
	History(n int) []contracts.RunSummary
	Running() bool
}

// JobRunner triggers and reports scheduled jobs (scheduler.Scheduler)
type JobRunner interface {
	RunJob(jobName string) error
	GetJobStats() map[string]scheduler.JobStats
	GetJobHistory(jobName string) ([]scheduler.JobResult, error)
}

// RunHandler handles pipeline run endpoints
// ⭐ SSOT: 실행 상태 API 핸들러는 이 구조체에서만
type RunHandler struct {
	runs     RunReader
	jobs     JobRunner
	universe *universe.Config
	logger   *logger.Logger
}

// NewRunHandler creates a new run handler
func NewRunHandler(runs RunReader, jobRunner JobRunner, cfg *universe.Config, log *logger.Logger) *RunHandler {
	return &RunHandler{
		runs:     runs,
		jobs:     jobRunner,
		universe: cfg,
		logger:   log,
	}
}

// GetLatest returns the summary of the most recent finished run
// GET /api/runs/latest
func (h *RunHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	latest, ok := h.runs.Latest()
	if !ok {
		respondError(w, http.StatusNotFound, "No run has finished yet")
		return
	}
	respondJSON(w, http.StatusOK, latest)
}

// GetLatestQuality returns the quality report of the most recent run
// GET /api/runs/latest/quality
func (h *RunHandler) GetLatestQuality(w http.ResponseWriter, r *http.Request) {
	latest, ok := h.runs.Latest()
	if !ok {
		respondError(w, http.StatusNotFound, "No run has finished yet")
		return
	}
	if latest.Quality == nil {
		respondError(w, http.StatusNotFound, "Latest run has no quality report")
		return
	}
	respondJSON(w, http.StatusOK, latest.Quality)
}

// ListRuns returns recent runs, newest first
// GET /api/runs?limit=10
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "Invalid 'limit' (expected a positive integer)")
			return
		}
		limit = n
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"running": h.runs.Running(),
		"runs":    h.runs.History(limit),
	})
}

// TriggerRun starts a recap run now, in the background
// POST /api/runs
func (h *RunHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	err := h.jobs.RunJob(jobs.JobName)
	switch {
	case err == nil:
		h.logger.Info("Recap run triggered via API")
		respondJSON(w, http.StatusAccepted, map[string]string{
			"status":  "accepted",
			"message": "Recap run started",
		})
	case errors.Is(err, scheduler.ErrJobRunning):
		respondError(w, http.StatusConflict, "A recap run is already in progress")
	case errors.Is(err, scheduler.ErrJobNotFound):
		respondError(w, http.StatusServiceUnavailable, "Recap job is not scheduled")
	default:
		h.logger.WithError(err).Error("Failed to trigger recap run")
		respondError(w, http.StatusInternalServerError, "Failed to trigger recap run")
	}
}

// GetJobs returns scheduler statistics
// GET /api/jobs
func (h *RunHandler) GetJobs(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.jobs.GetJobStats())
}

// GetJobHistory returns the recorded executions of one job, oldest first
// GET /api/jobs/{name}/history
func (h *RunHandler) GetJobHistory(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	results, err := h.jobs.GetJobHistory(name)
	if err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			respondError(w, http.StatusNotFound, "Job not found: "+name)
			return
		}
		h.logger.WithError(err).WithField("job", name).Error("Failed to read job history")
		respondError(w, http.StatusInternalServerError, "Failed to read job history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"job":     name,
		"count":   len(results),
		"results": results,
	})
}

// GetUniverse returns the configured instruments and thresholds
// GET /api/universe
func (h *RunHandler) GetUniverse(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.universe)
}
