package http

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/merra2-etl/internal/adapter/store"
	"github.com/couchcryptid/merra2-etl/internal/domain"
	"github.com/couchcryptid/merra2-etl/internal/grid"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Extractor serves on-demand extraction requests.
type Extractor interface {
	Extract(ctx context.Context, req domain.Request) (domain.Profile, error)
}

// ProfileReader looks up stored profiles by ID.
type ProfileReader interface {
	Get(ctx context.Context, id string) (domain.Profile, error)
}

// Option configures optional routes on the server.
type Option func(*Server, *http.ServeMux)

// WithSampling enables GET /v1/sample, admitting rps requests per second
// with the given burst.
func WithSampling(e Extractor, rps float64, burst int) Option {
	return func(s *Server, mux *http.ServeMux) {
		s.extractor = e
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		mux.HandleFunc("GET /v1/sample", s.handleSample)
	}
}

// WithProfiles enables GET /v1/profiles/{id}.
func WithProfiles(r ProfileReader) Option {
	return func(s *Server, mux *http.ServeMux) {
		s.profiles = r
		mux.HandleFunc("GET /v1/profiles/{id}", s.handleProfile)
	}
}

// Server exposes health, readiness, metrics and extraction HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	extractor  Extractor
	limiter    *rate.Limiter
	profiles   ProfileReader
}

// NewServer creates an HTTP server with /healthz, /readyz, and /metrics
// routes plus any routes enabled by opts.
func NewServer(addr string, ready sharedobs.ReadinessChecker, logger *slog.Logger, opts ...Option) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	for _, opt := range opts {
		opt(s, mux)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lat must be a number")
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lon must be a number")
		return
	}

	req := domain.Request{
		Location: domain.Location{Name: q.Get("name"), Lat: lat, Lon: lon},
		Day:      q.Get("day"),
		Variable: q.Get("variable"),
	}
	profile, err := s.extractor.Extract(r.Context(), req)
	if err != nil {
		status := sampleStatus(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("sample failed", "error", err, "day", req.Day, "lat", lat, "lon", lon)
			writeError(w, status, "extraction failed")
			return
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.profiles.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("profile lookup failed", "error", err, "id", r.PathValue("id"))
		writeError(w, http.StatusInternalServerError, "profile lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// sampleStatus maps an extraction error to an HTTP status code.
func sampleStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, grid.ErrAxisLookup), errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrMissingData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
