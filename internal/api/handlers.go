package api

import (
	"errors"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ignite/instantly-rollup/internal/analytics"
	"github.com/ignite/instantly-rollup/internal/pkg/httputil"
	"github.com/ignite/instantly-rollup/internal/pkg/logger"
	"net/http"
)

const dateFormat = "2006-01-02"

// Handlers holds dependencies for the HTTP handlers
type Handlers struct {
	orchestrator *analytics.Orchestrator
	store        analytics.JobStore
}

// NewHandlers creates a new Handlers instance
func NewHandlers(orchestrator *analytics.Orchestrator, store analytics.JobStore) *Handlers {
	return &Handlers{
		orchestrator: orchestrator,
		store:        store,
	}
}

type bulkStartRequest struct {
	APIKeys   []string `json:"api_keys"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
}

// StartBulkAnalytics validates and accepts a new bulk analytics job.
// Validation failures never create a job.
//
//	POST /analytics/bulk/start
func (h *Handlers) StartBulkAnalytics(w http.ResponseWriter, r *http.Request) {
	var req bulkStartRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	if req.APIKeys == nil {
		httputil.BadRequest(w, "api_keys field is required and must be an array")
		return
	}
	if len(req.APIKeys) == 0 {
		httputil.BadRequest(w, "api_keys array cannot be empty")
		return
	}
	if req.StartDate == "" || req.EndDate == "" {
		httputil.BadRequest(w, "start_date and end_date are required")
		return
	}

	start, err := time.Parse(dateFormat, req.StartDate)
	if err != nil {
		httputil.BadRequest(w, "Invalid date format. Use YYYY-MM-DD")
		return
	}
	end, err := time.Parse(dateFormat, req.EndDate)
	if err != nil {
		httputil.BadRequest(w, "Invalid date format. Use YYYY-MM-DD")
		return
	}

	runID, err := h.orchestrator.Submit(r.Context(), req.APIKeys, start, end)
	if err != nil {
		if errors.Is(err, analytics.ErrInvalidRange) {
			httputil.BadRequest(w, "end_date cannot be before start_date")
			return
		}
		if errors.Is(err, analytics.ErrNoWorkspaces) {
			httputil.BadRequest(w, err.Error())
			return
		}
		httputil.InternalError(w, err)
		return
	}

	httputil.Accepted(w, map[string]any{
		"status":  "accepted",
		"run_id":  runID.String(),
		"message": "Job started successfully",
	})
}

// GetBulkAnalyticsStatus returns the current snapshot of a job: status and
// completion while running, full results once completed, the captured
// error if the orchestration itself failed.
//
//	GET /analytics/bulk/status/{runID}
func (h *Handlers) GetBulkAnalyticsStatus(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		httputil.NotFound(w, "Job not found")
		return
	}

	job, err := h.store.Get(r.Context(), runID)
	if err != nil {
		if errors.Is(err, analytics.ErrJobNotFound) {
			httputil.NotFound(w, "Job not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}

	resp := map[string]any{
		"status":     job.Status,
		"completion": job.Completion,
	}
	switch job.Status {
	case analytics.StatusCompleted:
		resp["data"] = job.Workspaces
		// map keys marshal sorted, so daily_totals comes out date-ordered
		resp["daily_totals"] = job.DailyTotals
		resp["total_sends"] = job.TotalSends
	case analytics.StatusFailed:
		resp["error"] = job.Error
	}

	logger.Debug("job status polled", "run_id", runID, "status", string(job.Status))
	httputil.OK(w, resp)
}

// HealthCheck is a simple liveness endpoint.
//
//	GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
