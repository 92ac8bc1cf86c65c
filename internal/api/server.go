// Package api exposes the job engine over HTTP for the dashboard.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geoleads/lead-engine/internal/extraction"
	"github.com/geoleads/lead-engine/internal/job"
)

// jobService is the slice of the job store the API uses.
type jobService interface {
	Create(ctx context.Context, t job.Type, params job.Params) (*job.Job, error)
	Get(ctx context.Context, id string) (*job.Job, error)
	RequestCancel(ctx context.Context, id string) error
}

// searchService creates the search history record mirrored by extraction
// jobs.
type searchService interface {
	CreateSearch(ctx context.Context, kind, query string) (string, error)
}

// submitter schedules chunk 0 of a created job.
type submitter interface {
	Submit(jobID string)
}

// Server is the dashboard-facing HTTP API.
type Server struct {
	jobs     jobService
	searches searchService
	sub      submitter
	origins  []string
	log      *zap.Logger
	now      func() time.Time
}

// NewServer creates a Server.
func NewServer(jobs jobService, searches searchService, sub submitter, origins []string) *Server {
	return &Server{
		jobs:     jobs,
		searches: searches,
		sub:      sub,
		origins:  origins,
		log:      zap.L().With(zap.String("component", "api")),
		now:      time.Now,
	}
}

// Router builds the chi handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/jobs", s.handleCreateJob)
		r.Get("/jobs/{jobID}", s.handleGetJob)
		r.Post("/jobs/{jobID}/cancel", s.handleCancelJob)
		r.Get("/progress/{jobID}", s.handleProgress)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createJobRequest struct {
	Type   string     `json:"type"`
	Params job.Params `json:"params"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := job.ParseType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Params.Validate(t); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Extraction jobs get a search history row up front so the dashboard
	// can list the search before the first chunk lands.
	if t.Extraction() && req.Params.SearchID == "" {
		kind, query := searchLabel(t, req.Params)
		id, err := s.searches.CreateSearch(r.Context(), kind, query)
		if err != nil {
			s.log.Error("create search record failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "could not create search record")
			return
		}
		req.Params.SearchID = id
	}

	j, err := s.jobs.Create(r.Context(), t, req.Params)
	if err != nil {
		s.log.Error("create job failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not create job")
		return
	}

	s.sub.Submit(j.ID)
	writeJSON(w, http.StatusAccepted, j)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	j, err := s.jobs.Get(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		if eris.Is(err, job.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.log.Error("get job failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load job")
		return
	}
	writeJSON(w, http.StatusOK, j)
}

type progressResponse struct {
	ID             string     `json:"id"`
	Status         job.Status `json:"status"`
	Message        string     `json:"message"`
	Error          string     `json:"error,omitempty"`
	Progress       int        `json:"progress"`
	ProcessedCount int        `json:"processed_count"`
	TotalResults   int        `json:"total_results"`
	ETA            *int       `json:"eta_seconds,omitempty"`
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	j, err := s.jobs.Get(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		if eris.Is(err, job.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.log.Error("get job failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load job")
		return
	}

	p := job.Project(j, s.now())
	writeJSON(w, http.StatusOK, progressResponse{
		ID:             j.ID,
		Status:         j.Status,
		Message:        j.CurrentMessage,
		Error:          j.Error,
		Progress:       p.Percentage,
		ProcessedCount: j.ProcessedCount,
		TotalResults:   j.TotalCount,
		ETA:            p.ETASeconds,
	})
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	err := s.jobs.RequestCancel(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": "cancel_requested"})
	case eris.Is(err, job.ErrNotFound):
		writeError(w, http.StatusNotFound, "job not found")
	case eris.Is(err, job.ErrTerminal):
		writeError(w, http.StatusConflict, "job already finished")
	default:
		s.log.Error("cancel job failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not cancel job")
	}
}

func searchLabel(t job.Type, p job.Params) (kind, query string) {
	if t == job.TypeCityExtraction {
		return "city", extraction.CityQuery(p.City, p.Country, p.Categories)
	}
	return "coordinates", extraction.CoordinateQuery(p.Coordinates, p.RadiusMeters, p.Categories)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
