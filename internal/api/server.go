// Package api exposes the HTTP interface for searches, processing and archives.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"ReadingRoom/internal/domain"
	"ReadingRoom/internal/metrics"
	"ReadingRoom/internal/ports"
	"ReadingRoom/internal/tasks"
)

const dateLayout = "2006-01-02"

// DocumentProcessor runs one document through the pipeline.
type DocumentProcessor interface {
	ProcessOne(ctx context.Context, title, documentURL string) (domain.ProcessResult, error)
}

// ArchiveBuilder bundles a document's images.
type ArchiveBuilder interface {
	Build(ctx context.Context, documentURL string) ([]byte, error)
}

// Illustrator fills image URLs for pending prompts.
type Illustrator interface {
	Illustrate(ctx context.Context, documentURL string) (int, error)
}

// TaskQueue runs searches in the background.
type TaskQueue interface {
	Submit(query domain.SearchQuery) (string, error)
	Get(id string) (tasks.Task, error)
	Cancel(id string) (tasks.Task, error)
}

// Deps lists the collaborators behind the handlers.
type Deps struct {
	Processor      DocumentProcessor
	Archives       ArchiveBuilder
	Illustrator    Illustrator
	Tasks          TaskQueue
	Store          ports.Store
	Logger         *slog.Logger
	RequestTimeout time.Duration
}

// Server wires HTTP handlers to the use cases.
type Server struct {
	router chi.Router
	deps   Deps
	logger *slog.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{deps: deps, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	if deps.RequestTimeout > 0 {
		r.Use(middleware.Timeout(deps.RequestTimeout))
	}

	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/searches", func(r chi.Router) {
			r.Post("/", s.submitSearch)
			r.Route("/{task_id}", func(r chi.Router) {
				r.Get("/", s.getSearch)
				r.Post("/cancel", s.cancelSearch)
			})
		})
		r.Route("/documents", func(r chi.Router) {
			r.Get("/", s.searchDocuments)
			r.Post("/process", s.processDocument)
			r.Post("/illustrate", s.illustrateDocument)
		})
		r.Get("/archive", s.downloadArchive)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) submitSearch(w http.ResponseWriter, r *http.Request) {
	if s.deps.Tasks == nil {
		writeError(w, http.StatusServiceUnavailable, "search queue unavailable")
		return
	}

	var query domain.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := validateDates(query.StartDate, query.EndDate); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.deps.Tasks.Submit(query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": id})
}

func (s *Server) getSearch(w http.ResponseWriter, r *http.Request) {
	if s.deps.Tasks == nil {
		writeError(w, http.StatusServiceUnavailable, "search queue unavailable")
		return
	}
	task, err := s.deps.Tasks.Get(chi.URLParam(r, "task_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) cancelSearch(w http.ResponseWriter, r *http.Request) {
	if s.deps.Tasks == nil {
		writeError(w, http.StatusServiceUnavailable, "search queue unavailable")
		return
	}
	task, err := s.deps.Tasks.Cancel(chi.URLParam(r, "task_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type processRequest struct {
	DocURL   string `json:"doc_url"`
	DocTitle string `json:"doc_title"`
}

func (s *Server) processDocument(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.DocURL) == "" {
		writeError(w, http.StatusBadRequest, domain.ErrMissingURL.Error())
		return
	}

	result, err := s.deps.Processor.ProcessOne(r.Context(), req.DocTitle, req.DocURL)
	if err != nil {
		if errors.Is(err, domain.ErrMissingURL) {
			writeError(w, http.StatusBadRequest, domain.ErrMissingURL.Error())
			return
		}
		s.logger.Error("document processing failed", "url", req.DocURL, "error", err)
		writeError(w, http.StatusInternalServerError, domain.ErrProcessingFailed.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type illustrateRequest struct {
	DocURL string `json:"doc_url"`
}

func (s *Server) illustrateDocument(w http.ResponseWriter, r *http.Request) {
	if s.deps.Illustrator == nil {
		writeError(w, http.StatusServiceUnavailable, "image generation unavailable")
		return
	}

	var req illustrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	n, err := s.deps.Illustrator.Illustrate(r.Context(), req.DocURL)
	switch {
	case errors.Is(err, domain.ErrMissingURL):
		writeError(w, http.StatusBadRequest, domain.ErrMissingURL.Error())
	case err != nil:
		s.logger.Error("illustration failed", "url", req.DocURL, "generated", n, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{"generated": n, "error": "image generation failed"})
	default:
		writeJSON(w, http.StatusOK, map[string]int{"generated": n})
	}
}

func (s *Server) searchDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria := domain.SearchCriteria{Keyword: strings.TrimSpace(q.Get("keyword"))}

	var err error
	if criteria.After, err = parseDate(q.Get("start_date")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if criteria.Before, err = parseDate(q.Get("end_date")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	docs, err := s.deps.Store.Search(r.Context(), criteria)
	if err != nil {
		s.logger.Error("document search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) downloadArchive(w http.ResponseWriter, r *http.Request) {
	docURL := strings.TrimSpace(r.URL.Query().Get("doc_url"))
	if docURL == "" {
		writeError(w, http.StatusBadRequest, "missing url")
		return
	}

	data, err := s.deps.Archives.Build(r.Context(), docURL)
	switch {
	case errors.Is(err, domain.ErrNoImages):
		writeError(w, http.StatusNotFound, domain.ErrNoImages.Error())
		return
	case errors.Is(err, domain.ErrMissingURL):
		writeError(w, http.StatusBadRequest, "missing url")
		return
	case err != nil:
		s.logger.Error("archive build failed", "url", docURL, "error", err)
		writeError(w, http.StatusInternalServerError, "archive failed")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="images.zip"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("archive write failed", "error", err)
	}
}

func validateDates(start, end string) error {
	if _, err := parseDate(start); err != nil {
		return err
	}
	_, err := parseDate(end)
	return err
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", value)
	}
	return t, nil
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Default().Error("json encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
