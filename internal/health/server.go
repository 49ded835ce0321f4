// Package health serves the operational HTTP surface: liveness, the metrics
// snapshot, profile lookups and Prometheus scraping.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/profilecache/internal/core/domain"
	"github.com/vietddude/profilecache/internal/metrics"
	"github.com/vietddude/profilecache/internal/profile"
)

// Status is the coarse service status reported by /health.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusCritical Status = "critical"
)

const checkTimeout = 2 * time.Second

// Checker pings an external dependency.
type Checker interface {
	Health(ctx context.Context) error
}

// Profiles is the profile pipeline exposed over HTTP.
type Profiles interface {
	Get(ctx context.Context, subjectID string) profile.Result
	Refresh(ctx context.Context, subjectID string) (*domain.Profile, error)
	Invalidate(ctx context.Context, subjectID string)
	InvalidateAll(ctx context.Context)
}

// Detailed is the /health/detailed payload.
type Detailed struct {
	metrics.Report
	Status Status            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Server provides HTTP endpoints for health monitoring and profile lookups.
type Server struct {
	agg      *metrics.Aggregator
	profiles Profiles
	checks   map[string]Checker
	log      *slog.Logger
	server   *http.Server
}

// NewServer creates a new HTTP server. checks maps dependency names to their
// pingers; gatherer backs /metrics.
func NewServer(
	agg *metrics.Aggregator,
	profiles Profiles,
	checks map[string]Checker,
	gatherer prometheus.Gatherer,
	port int,
	log *slog.Logger,
) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		agg:      agg,
		profiles: profiles,
		checks:   checks,
		log:      log.With("component", "http"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/detailed", s.handleDetailed)
	mux.HandleFunc("GET /profiles/{id}", s.handleProfile)
	mux.HandleFunc("DELETE /profiles/{id}", s.handleInvalidate)
	mux.HandleFunc("DELETE /profiles", s.handleInvalidateAll)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the server's router.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Status combines dependency checks with the metrics health: a failing
// dependency is critical, NEEDS_ATTENTION is degraded.
func (s *Server) Status(ctx context.Context) (Status, map[string]string) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	status := StatusHealthy
	results := make(map[string]string, len(s.checks))
	for name, c := range s.checks {
		if err := c.Health(ctx); err != nil {
			results[name] = err.Error()
			status = StatusCritical
			continue
		}
		results[name] = "ok"
	}

	if status == StatusHealthy && s.agg.Snapshot().Health == metrics.HealthNeedsAttention {
		status = StatusDegraded
	}
	return status, results
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, _ := s.Status(r.Context())

	code := http.StatusOK
	if status == StatusCritical {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": string(status)})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	status, checks := s.Status(r.Context())
	writeJSON(w, http.StatusOK, Detailed{
		Report: s.agg.NewReport(),
		Status: status,
		Checks: checks,
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if r.URL.Query().Get("refresh") == "true" {
		p, err := s.profiles.Refresh(r.Context(), id)
		if err != nil {
			s.log.Warn("Profile refresh failed", "subject", id, "error", err)
			writeJSON(w, http.StatusBadGateway, map[string]string{
				"error": err.Error(),
				"kind":  domain.KindOf(err).String(),
			})
			return
		}
		w.Header().Set("X-Profile-Origin", string(domain.OriginAuthoritative))
		w.Header().Set("X-Profile-Source", "primary")
		writeJSON(w, http.StatusOK, p)
		return
	}

	res := s.profiles.Get(r.Context(), id)
	w.Header().Set("X-Profile-Origin", string(res.Origin))
	w.Header().Set("X-Profile-Source", res.Source)
	writeJSON(w, http.StatusOK, res.Profile)
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.profiles.Invalidate(r.Context(), id)
	s.log.Info("Profile invalidated", "subject", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInvalidateAll(w http.ResponseWriter, r *http.Request) {
	s.profiles.InvalidateAll(r.Context())
	s.log.Info("All profiles invalidated")
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
