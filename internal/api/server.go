// Package api exposes the HTTP interface for the news service.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/newswire-hq/newswire/internal/config"
	"github.com/newswire-hq/newswire/internal/jobs"
	"github.com/newswire-hq/newswire/internal/news"
)

// Server wires HTTP handlers to the job manager and stores.
type Server struct {
	router   chi.Router
	jobs     *jobs.Manager
	articles news.ArticleStore
	sources  news.SourceStore
	logger   *zap.Logger
	cfg      config.Config
}

// NewServer constructs a Server with middleware and routes. The metrics
// gatherer may be nil, in which case the default Prometheus registry serves
// /metrics.
func NewServer(
	manager *jobs.Manager,
	articles news.ArticleStore,
	sources news.SourceStore,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
	cfg config.Config,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		jobs:     manager,
		articles: articles,
		sources:  sources,
		logger:   logger,
		cfg:      cfg,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", s.createJob)
			r.Get("/", s.listJobs)
			r.Route("/{job_id}", func(r chi.Router) {
				r.Get("/", s.getJob)
				r.Post("/retry", s.retryJob)
				r.Delete("/", s.deleteJob)
			})
		})
		r.Route("/sources", func(r chi.Router) {
			r.Get("/", s.listSources)
			r.Patch("/{source_id}/active", s.setSourceActive)
		})
		r.Get("/articles", s.listArticles)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ready"})
}

type createJobRequest struct {
	Keyword           string  `json:"keyword"`
	NewsType          string  `json:"news_type"`
	ArticlesPerSource int     `json:"articles_per_source"`
	SourceIDs         []int64 `json:"source_ids"`
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	job, err := s.jobs.CreateJob(r.Context(), news.JobParameters{
		Keyword:           req.Keyword,
		NewsType:          news.NewsType(req.NewsType),
		ArticlesPerSource: req.ArticlesPerSource,
		SourceIDs:         req.SourceIDs,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(s.logger, w, http.StatusAccepted, map[string]any{"job": job})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.GetJob(r.Context(), chi.URLParam(r, "job_id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{"job": job})
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	filter := news.JobFilter{
		Page:  queryInt(r, "page", 1),
		Limit: queryInt(r, "limit", 20),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := news.JobStatus(raw)
		filter.Status = &status
	}
	list, total, err := s.jobs.ListJobs(r.Context(), filter)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{
		"jobs":  list,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}

func (s *Server) retryJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.RetryJob(r.Context(), chi.URLParam(r, "job_id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(s.logger, w, http.StatusAccepted, map[string]any{"job": job})
}

func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.jobs.DeleteJob(r.Context(), chi.URLParam(r, "job_id")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSources(w http.ResponseWriter, r *http.Request) {
	list, err := s.sources.ListSources(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{"sources": list})
}

type setActiveRequest struct {
	Active *bool `json:"active"`
}

func (s *Server) setSourceActive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "source_id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid source id")
		return
	}
	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Active == nil {
		s.writeError(w, http.StatusBadRequest, "active flag is required")
		return
	}
	if err := s.sources.SetSourceActive(r.Context(), id, *req.Active); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{"id": id, "active": *req.Active})
}

func (s *Server) listArticles(w http.ResponseWriter, r *http.Request) {
	filter := news.ArticleFilter{
		Keyword: r.URL.Query().Get("keyword"),
		Page:    queryInt(r, "page", 1),
		Limit:   queryInt(r, "limit", 20),
	}
	if raw := r.URL.Query().Get("source_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid source id")
			return
		}
		filter.SourceID = &id
	}
	if raw := r.URL.Query().Get("news_type"); raw != "" {
		nt := news.NewsType(raw)
		if !nt.Valid() {
			s.writeError(w, http.StatusBadRequest, "invalid news type")
			return
		}
		filter.NewsType = &nt
	}
	list, total, err := s.articles.ListArticles(r.Context(), filter)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{
		"articles": list,
		"total":    total,
		"page":     filter.Page,
		"limit":    filter.Limit,
	})
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case news.IsValidation(err):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case news.IsNotFound(err):
		s.writeError(w, http.StatusNotFound, err.Error())
	case news.IsConflict(err):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, http.StatusRequestTimeout, err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(s.logger, w, status, map[string]string{"error": msg})
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("panic", rec))
					writeJSON(logger, w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type requestIDKey struct{}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}
