// Package api exposes the polling HTTP surface over the crawl runner: job
// submission, status, bulk results, and Prometheus metrics.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/narabid/bid-crawler/internal/job"
)

// Server wires HTTP handlers to the job runner.
type Server struct {
	router chi.Router
	runner *job.Runner
	logger *zap.Logger
}

// NewServer constructs a Server with routes and middleware.
func NewServer(runner *job.Runner, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		runner: runner,
		logger: logger.Named("api"),
	}

	r := chi.NewRouter()
	r.Use(s.recoverMiddleware)

	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/crawl", s.startCrawl)
		r.Post("/stop", s.stopCrawl)
		r.Get("/status", s.status)
		r.Get("/results", s.results)
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

type startRequest struct {
	Keywords []string `json:"keywords"`
}

func (s *Server) startCrawl(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Keywords) == 0 {
		writeError(w, http.StatusBadRequest, "keywords must not be empty")
		return
	}

	jobID, err := s.runner.Start(r.Context(), req.Keywords)
	if err != nil {
		if errors.Is(err, job.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error("job start failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "job start failed")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *Server) stopCrawl(w http.ResponseWriter, _ *http.Request) {
	s.runner.Stop()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "stop requested"})
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.runner.State())
}

func (s *Server) results(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.runner.Results())
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				s.logger.Error("handler panicked", zap.Any("panic", p))
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
