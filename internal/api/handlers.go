package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/oxleyhq/forager/internal/db"
	"github.com/oxleyhq/forager/internal/jobs"
	"github.com/oxleyhq/forager/internal/metrics"
)

// Version is the current API version (can be set via ldflags at build time)
var Version = "0.1.0"

// JobService is the slice of the job manager the API uses
type JobService interface {
	RunJob(ctx context.Context, options *jobs.JobOptions) (*jobs.Job, []string, error)
	StartJob(ctx context.Context, options *jobs.JobOptions) (*jobs.Job, error)
	StopJob(ctx context.Context, jobID string) error
	DeleteJob(ctx context.Context, jobID string) error
	JobProgress(ctx context.Context, jobID string) (*db.ProgressRecord, error)
}

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler holds dependencies for API handlers
type Handler struct {
	Jobs JobService
	DB   HealthChecker
}

// NewHandler creates a new API handler with dependencies
func NewHandler(jobService JobService, dbHealth HealthChecker) *Handler {
	return &Handler{
		Jobs: jobService,
		DB:   dbHealth,
	}
}

// SetupRoutes configures all API routes
func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/health/db", h.DatabaseHealthCheck)
	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("/v1/email-scrapes", h.ScrapesHandler)
	mux.HandleFunc("/v1/email-scrapes/", h.ScrapeHandler) // For /v1/email-scrapes/:id
}

// HealthCheck handles basic health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w, r)
		return
	}
	WriteHealthy(w, r, "forager", Version)
}

// DatabaseHealthCheck verifies database connectivity
func (h *Handler) DatabaseHealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w, r)
		return
	}
	if err := h.DB.Health(r.Context()); err != nil {
		WriteUnhealthy(w, r, "forager-db", err)
		return
	}
	WriteHealthy(w, r, "forager-db", Version)
}

// ScrapeRequest is the body of a scrape creation request
type ScrapeRequest struct {
	Website     string `json:"website"`
	MaxPages    int    `json:"max_pages,omitempty"`
	Concurrency int    `json:"concurrency,omitempty"`
	Async       bool   `json:"async,omitempty"`
}

// ScrapeResponse describes a scrape job to API clients
type ScrapeResponse struct {
	ID         string   `json:"id"`
	Website    string   `json:"website"`
	Status     string   `json:"status"`
	CurrentRow int      `json:"current_row"`
	TotalRows  int      `json:"total_rows"`
	Error      string   `json:"error,omitempty"`
	Emails     []string `json:"emails,omitempty"`
}

// ScrapesHandler handles /v1/email-scrapes
func (h *Handler) ScrapesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w, r)
		return
	}

	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, r, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Website) == "" {
		BadRequest(w, r, "website is required")
		return
	}

	options := &jobs.JobOptions{
		SeedURL:     req.Website,
		MaxPages:    req.MaxPages,
		Concurrency: req.Concurrency,
	}

	if req.Async {
		job, err := h.Jobs.StartJob(r.Context(), options)
		if err != nil {
			BadRequest(w, r, err.Error())
			return
		}
		response := ScrapeResponse{ID: job.ID, Website: job.SeedURL, Status: string(db.StatusRunning)}
		WriteJSON(w, r, SuccessResponse{Status: "success", Data: response, RequestID: GetRequestID(r)}, http.StatusAccepted)
		return
	}

	job, found, err := h.Jobs.RunJob(r.Context(), options)
	if err != nil {
		if job == nil {
			BadRequest(w, r, err.Error())
			return
		}
		InternalError(w, r, err)
		return
	}

	record, err := h.Jobs.JobProgress(r.Context(), job.ID)
	if err != nil || record == nil {
		record = &db.ProgressRecord{Status: db.StatusCompleted}
	}

	response := ScrapeResponse{
		ID:         job.ID,
		Website:    job.SeedURL,
		Status:     string(record.Status),
		CurrentRow: record.CurrentRow,
		TotalRows:  record.TotalRows,
		Emails:     found,
	}
	WriteCreated(w, r, response, "Scrape complete")
}

// ScrapeHandler handles /v1/email-scrapes/:id and /v1/email-scrapes/:id/stop
func (h *Handler) ScrapeHandler(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/email-scrapes/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		h.handleScrape(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "stop":
		h.handleScrapeStop(w, r, parts[0])
	default:
		NotFound(w, r, "Unknown scrape endpoint")
	}
}

func (h *Handler) handleScrape(w http.ResponseWriter, r *http.Request, jobID string) {
	switch r.Method {
	case http.MethodGet:
		record, err := h.Jobs.JobProgress(r.Context(), jobID)
		if err != nil {
			DatabaseError(w, r, err)
			return
		}
		if record == nil {
			NotFound(w, r, "Scrape not found")
			return
		}
		response := ScrapeResponse{
			ID:         record.JobID,
			Status:     string(record.Status),
			CurrentRow: record.CurrentRow,
			TotalRows:  record.TotalRows,
			Error:      record.ErrorMessage,
		}
		WriteSuccess(w, r, response, "")
	case http.MethodDelete:
		if err := h.Jobs.DeleteJob(r.Context(), jobID); err != nil {
			if strings.Contains(err.Error(), "not found") {
				NotFound(w, r, err.Error())
				return
			}
			WriteErrorMessage(w, r, err.Error(), http.StatusConflict, ErrCodeConflict)
			return
		}
		WriteNoContent(w, r)
	default:
		MethodNotAllowed(w, r)
	}
}

func (h *Handler) handleScrapeStop(w http.ResponseWriter, r *http.Request, jobID string) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w, r)
		return
	}
	if err := h.Jobs.StopJob(r.Context(), jobID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			NotFound(w, r, err.Error())
			return
		}
		InternalError(w, r, err)
		return
	}
	WriteSuccess(w, r, map[string]string{"id": jobID, "status": "stopping"}, "Stop requested")
}
