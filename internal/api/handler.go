// Package api implements the HTTP handlers over the job store and the status
// tracker.
//
// An optional x-user-id header is recorded as the user of a status change.
//
// Routes:
//
//	GET  /jobs                  → list jobs (filters: highlight, min_score, max_score, status, title, company, location, job_type, source)
//	GET  /jobs/{id}             → job with its status history
//	GET  /jobs/{id}/history     → status history
//	POST /jobs/{id}/move        → move the job to a new status
//	POST /bulk-move             → apply several moves independently
//	GET  /stats                 → tracker statistics and ingestion metadata
//	GET  /errors                → recent failed store operations
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"jobmate/jobtracker/internal/apperr"
	"jobmate/jobtracker/internal/jobstore"
	"jobmate/jobtracker/internal/kanban"
	"jobmate/jobtracker/internal/model"
)

// ─── Dependencies ─────────────────────────────────────────────────────────────

// Jobs is the read side of the job store.
type Jobs interface {
	GetAll(ctx context.Context, filters map[string]string) []model.Job
	GetByID(ctx context.Context, id string) (model.Job, error)
	GetByHighlight(ctx context.Context, h model.Highlight) []model.Job
	GetByScoreRange(ctx context.Context, lo, hi *float64) []model.Job
	Count(ctx context.Context) int
	Metadata(ctx context.Context) jobstore.Metadata
	Errors(ctx context.Context) []jobstore.ErrorEntry
}

// Board is the status tracker.
type Board interface {
	Transition(ctx context.Context, jobID, raw, notes, userID string) (*kanban.StatusHistory, error)
	BulkUpdate(ctx context.Context, items []kanban.BulkItem) kanban.BulkResult
	History(jobID string) (*kanban.StatusHistory, error)
	JobsByStatus(status kanban.Status) []string
	Statistics() kanban.Statistics
}

// ─── Response types ───────────────────────────────────────────────────────────

// JobView is a job together with its status history, if any.
type JobView struct {
	model.Job
	Status  kanban.Status         `json:"status,omitempty"`
	History *kanban.StatusHistory `json:"history,omitempty"`
}

// Stats combines tracker and store counters.
type Stats struct {
	Jobs     int               `json:"jobs"`
	Metadata jobstore.Metadata `json:"metadata"`
	Tracker  kanban.Statistics `json:"tracker"`
}

// ─── Handler ─────────────────────────────────────────────────────────────────

// Check probes an external dependency for /health.
type Check func(ctx context.Context) error

// Handler holds shared dependencies.
type Handler struct {
	jobs    Jobs
	board   Board
	version string
	checks  map[string]Check
	log     *slog.Logger
}

// NewHandler returns a configured Handler.
func NewHandler(jobs Jobs, board Board, version string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{jobs: jobs, board: board, version: version, checks: map[string]Check{}, log: logger.With("component", "api")}
}

// WithCheck adds a dependency probe reported by /health.
func (h *Handler) WithCheck(name string, c Check) *Handler {
	h.checks[name] = c
	return h
}

// RegisterRoutes mounts all routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.health)
	mux.HandleFunc("/jobs", h.handleJobs)
	mux.HandleFunc("/jobs/", h.handleJobAction)
	mux.HandleFunc("/bulk-move", h.bulkMove)
	mux.HandleFunc("/stats", h.stats)
	mux.HandleFunc("/errors", h.errorLog)
}

// ─── Route dispatch ───────────────────────────────────────────────────────────

// handleJobs handles GET /jobs
func (h *Handler) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.listJobs(w, r)
}

// handleJobAction handles /jobs/{id}, /jobs/{id}/history and /jobs/{id}/move
func (h *Handler) handleJobAction(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || len(parts) > 3 || parts[1] == "" {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}
	jobID := parts[1]

	action := ""
	if len(parts) == 3 {
		action = parts[2]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.getJob(w, r, jobID)
	case action == "history" && r.Method == http.MethodGet:
		h.getHistory(w, jobID)
	case action == "move" && r.Method == http.MethodPost:
		h.moveJob(w, r, jobID)
	case action == "" || action == "history" || action == "move":
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
	default:
		jsonError(w, fmt.Sprintf("unknown action %q", action), http.StatusNotFound)
	}
}

// ─── Individual handlers ──────────────────────────────────────────────────────

func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var jobs []model.Job
	switch {
	case q.Get("highlight") != "":
		hl := model.Highlight(q.Get("highlight"))
		if !hl.Valid() {
			jsonError(w, fmt.Sprintf("unknown highlight %q", hl), http.StatusBadRequest)
			return
		}
		jobs = h.jobs.GetByHighlight(ctx, hl)
	case q.Get("min_score") != "" || q.Get("max_score") != "":
		lo, err := parseBound(q.Get("min_score"))
		if err != nil {
			jsonError(w, "min_score must be a number", http.StatusBadRequest)
			return
		}
		hi, err := parseBound(q.Get("max_score"))
		if err != nil {
			jsonError(w, "max_score must be a number", http.StatusBadRequest)
			return
		}
		jobs = h.jobs.GetByScoreRange(ctx, lo, hi)
	default:
		filters := map[string]string{}
		for _, field := range []string{"title", "company", "location", "job_type", "source"} {
			if v := q.Get(field); v != "" {
				filters[field] = v
			}
		}
		jobs = h.jobs.GetAll(ctx, filters)
	}

	if raw := q.Get("status"); raw != "" {
		status, err := kanban.ParseStatus(raw)
		if err != nil {
			writeErr(w, err)
			return
		}
		keep := map[string]bool{}
		for _, id := range h.board.JobsByStatus(status) {
			keep[id] = true
		}
		filtered := jobs[:0]
		for _, j := range jobs {
			if keep[j.ID] {
				filtered = append(filtered, j)
			}
		}
		jobs = filtered
	}

	if jobs == nil {
		jobs = []model.Job{}
	}
	jsonOK(w, jobs)
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.jobs.GetByID(r.Context(), jobID)
	if err != nil {
		h.fail(w, "getJob", err)
		return
	}
	view := JobView{Job: job}
	if hist, err := h.board.History(jobID); err == nil {
		view.Status = hist.CurrentStatus
		view.History = hist
	}
	jsonOK(w, view)
}

func (h *Handler) getHistory(w http.ResponseWriter, jobID string) {
	hist, err := h.board.History(jobID)
	if err != nil {
		h.fail(w, "getHistory", err)
		return
	}
	jsonOK(w, hist)
}

func (h *Handler) moveJob(w http.ResponseWriter, r *http.Request, jobID string) {
	var body struct {
		NewStatus string `json:"newStatus"`
		Notes     string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.NewStatus == "" {
		jsonError(w, "body must contain newStatus", http.StatusBadRequest)
		return
	}

	hist, err := h.board.Transition(r.Context(), jobID, body.NewStatus, body.Notes, r.Header.Get("x-user-id"))
	if err != nil {
		h.fail(w, "moveJob", err)
		return
	}
	jsonOK(w, hist)
}

func (h *Handler) bulkMove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var items []kanban.BulkItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		jsonError(w, "body must be a JSON array of moves", http.StatusBadRequest)
		return
	}
	if userID := r.Header.Get("x-user-id"); userID != "" {
		for i := range items {
			if items[i].UserID == "" {
				items[i].UserID = userID
			}
		}
	}
	jsonOK(w, h.board.BulkUpdate(r.Context(), items))
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	jsonOK(w, Stats{
		Jobs:     h.jobs.Count(ctx),
		Metadata: h.jobs.Metadata(ctx),
		Tracker:  h.board.Statistics(),
	})
}

func (h *Handler) errorLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jsonOK(w, h.jobs.Errors(r.Context()))
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":  "ok",
		"service": "jobtracker",
		"version": h.version,
	}
	if len(h.checks) == 0 {
		jsonOK(w, body)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.log.Warn("health check failed", "dependency", name, "err", err)
			deps[name] = err.Error()
			body["status"] = "degraded"
			continue
		}
		deps[name] = "ok"
	}
	body["dependencies"] = deps

	if body["status"] != "ok" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(body)
		return
	}
	jsonOK(w, body)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if code := statusCode(err); code >= http.StatusInternalServerError {
		h.log.Error("request failed", "op", op, "err", err)
	}
	writeErr(w, err)
}

func writeErr(w http.ResponseWriter, err error) {
	jsonError(w, err.Error(), statusCode(err))
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrTransitionRejected):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrPersistence):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func parseBound(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
