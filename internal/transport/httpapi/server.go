// Package httpapi exposes discovery search and ingestion control over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tunedex/internal/domain"
	"github.com/kailas-cloud/tunedex/internal/domain/search"
	"github.com/kailas-cloud/tunedex/internal/usecase/backfill"
	healthuc "github.com/kailas-cloud/tunedex/internal/usecase/health"
	"github.com/kailas-cloud/tunedex/internal/usecase/schedule"
)

// SearchService runs discovery queries.
type SearchService interface {
	Search(ctx context.Context, query string, page, pageSize int) (*search.Response, error)
}

// Scheduler decides and dispatches track ingestion.
type Scheduler interface {
	ScheduleTrack(ctx context.Context, track schedule.Track) schedule.Decision
	ScheduleAlbum(ctx context.Context, tracks []schedule.Track) []schedule.Decision
}

// Dispatcher accepts manual ingestion triggers.
type Dispatcher interface {
	Dispatch(req domain.IngestionRequest) bool
}

// Backfiller controls the re-ingestion run.
type Backfiller interface {
	Start(ctx context.Context) (backfill.Progress, error)
	Status(ctx context.Context) (backfill.Progress, error)
}

// HealthService aggregates component checks.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// Server holds the HTTP handlers.
type Server struct {
	search     SearchService
	scheduler  Scheduler
	dispatcher Dispatcher
	backfill   Backfiller
	health     HealthService
	logger     *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	searchSvc SearchService,
	scheduler Scheduler,
	dispatcher Dispatcher,
	backfiller Backfiller,
	healthSvc HealthService,
	logger *zap.Logger,
) *Server {
	return &Server{
		search:     searchSvc,
		scheduler:  scheduler,
		dispatcher: dispatcher,
		backfill:   backfiller,
		health:     healthSvc,
		logger:     logger,
	}
}

// Register mounts all routes on the given router.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Post("/tracks/ingest", s.handleIngest)
		r.Post("/tracks/schedule", s.handleScheduleTrack)
		r.Post("/albums/schedule", s.handleScheduleAlbum)
		r.Post("/backfill", s.handleBackfillStart)
		r.Get("/backfill", s.handleBackfillStatus)
	})
}

type searchRequest struct {
	Query    string `json:"query"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body: "+err.Error())
		return
	}

	resp, err := s.search.Search(r.Context(), req.Query, req.Page, req.PageSize)
	if err != nil {
		s.writeSearchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeSearchError maps the discovery taxonomy to HTTP statuses and writes
// the typed error as the body.
func (s *Server) writeSearchError(w http.ResponseWriter, err error) {
	var serr *search.Error
	if !errors.As(err, &serr) {
		s.logger.Error("Unclassified search error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, string(search.CodeInternal), "internal error")
		return
	}

	status := http.StatusInternalServerError
	switch serr.Code {
	case search.CodeEmptyQuery:
		status = http.StatusBadRequest
	case search.CodeLLMUnavailable, search.CodeEmbeddingUnavailable:
		status = http.StatusBadGateway
	case search.CodeIndexUnavailable:
		status = http.StatusServiceUnavailable
	case search.CodeTimeout:
		status = http.StatusGatewayTimeout
	}

	writeJSON(w, status, serr)
}

type ingestRequest struct {
	ISRC       string `json:"isrc"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	ArtworkURL string `json:"artwork_url"`
	Force      bool   `json:"force"`
}

type ingestResponse struct {
	ISRC     string `json:"isrc"`
	Accepted bool   `json:"accepted"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body: "+err.Error())
		return
	}

	isrc, err := domain.ParseISRC(req.ISRC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ISRC", err.Error())
		return
	}

	accepted := s.dispatcher.Dispatch(domain.IngestionRequest{
		ISRC:       isrc,
		Title:      req.Title,
		Artist:     req.Artist,
		Album:      req.Album,
		ArtworkURL: req.ArtworkURL,
		Force:      req.Force,
	})

	writeJSON(w, http.StatusAccepted, ingestResponse{ISRC: string(isrc), Accepted: accepted})
}

type scheduleTrackRequest struct {
	ISRC       string `json:"isrc"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	ArtworkURL string `json:"artwork_url"`
}

func (t scheduleTrackRequest) track() schedule.Track {
	return schedule.Track{
		ISRC:       t.ISRC,
		Title:      t.Title,
		Artist:     t.Artist,
		Album:      t.Album,
		ArtworkURL: t.ArtworkURL,
	}
}

func (s *Server) handleScheduleTrack(w http.ResponseWriter, r *http.Request) {
	var req scheduleTrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body: "+err.Error())
		return
	}

	decision := s.scheduler.ScheduleTrack(r.Context(), req.track())
	writeJSON(w, http.StatusOK, decision)
}

type scheduleAlbumRequest struct {
	Tracks []scheduleTrackRequest `json:"tracks"`
}

type scheduleAlbumResponse struct {
	Decisions []schedule.Decision `json:"decisions"`
	Scheduled int                 `json:"scheduled"`
}

func (s *Server) handleScheduleAlbum(w http.ResponseWriter, r *http.Request) {
	var req scheduleAlbumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body: "+err.Error())
		return
	}
	if len(req.Tracks) == 0 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "tracks are required")
		return
	}

	tracks := make([]schedule.Track, len(req.Tracks))
	for i, t := range req.Tracks {
		tracks[i] = t.track()
	}

	decisions := s.scheduler.ScheduleAlbum(r.Context(), tracks)

	scheduled := 0
	for _, d := range decisions {
		if d.Scheduled {
			scheduled++
		}
	}

	writeJSON(w, http.StatusOK, scheduleAlbumResponse{Decisions: decisions, Scheduled: scheduled})
}

func (s *Server) handleBackfillStart(w http.ResponseWriter, r *http.Request) {
	progress, err := s.backfill.Start(r.Context())
	if err != nil {
		if errors.Is(err, backfill.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, "BACKFILL_RUNNING", err.Error())
			return
		}
		s.logger.Error("Backfill start failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		return
	}

	writeJSON(w, http.StatusAccepted, progress)
}

func (s *Server) handleBackfillStatus(w http.ResponseWriter, r *http.Request) {
	progress, err := s.backfill.Status(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "no backfill has run")
			return
		}
		s.logger.Error("Backfill status failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}
