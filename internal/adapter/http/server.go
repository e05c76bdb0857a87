package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/city-livability-etl/internal/domain"
	"github.com/couchcryptid/city-livability-etl/internal/pipeline"
	"github.com/couchcryptid/city-livability-etl/internal/query"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "City Livability API"

// Runner starts a pipeline run on demand.
type Runner interface {
	Run(ctx context.Context) (string, error)
}

// Queries is the read surface served under /api.
type Queries interface {
	Countries(ctx context.Context) ([]domain.Country, error)
	TopCities(ctx context.Context, limit int) ([]domain.ScoreRecord, error)
	CountryCities(ctx context.Context, code string) ([]query.CityResult, error)
	Compare(ctx context.Context, a, b string) (query.Comparison, error)
	RunLogs(ctx context.Context, limit int) ([]domain.RunLogEntry, error)
}

// Pinger reports whether the document store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes the query API, the run trigger, and health, readiness,
// and metrics endpoints.
type Server struct {
	httpServer *http.Server
	runner     Runner
	queries    Queries
	db         Pinger
	logger     *slog.Logger
}

// NewServer creates an HTTP server with every route registered.
func NewServer(addr string, ready sharedobs.ReadinessChecker, runner Runner, queries Queries, db Pinger, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      allowAnyOrigin(mux),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		runner:  runner,
		queries: queries,
		db:      db,
		logger:  logger,
	}

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /api/health", s.handleAPIHealth)
	mux.HandleFunc("POST /api/admin/run-etl", s.handleRunETL)
	mux.HandleFunc("GET /api/admin/etl-logs", s.handleRunLogs)
	mux.HandleFunc("GET /api/countries", s.handleCountries)
	mux.HandleFunc("GET /api/top-cities", s.handleTopCities)
	mux.HandleFunc("GET /api/country/{code}/cities", s.handleCountryCities)
	mux.HandleFunc("GET /api/city/compare", s.handleCompare)

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

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

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, map[string]string{"name": serviceName, "status": "ok"})
}

func (s *Server) handleAPIHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"backend":  "ok",
		"database": s.db.Ping(ctx) == nil,
	})
}

// handleRunETL runs the pipeline synchronously. The run is detached from
// the request context so a disconnecting client does not abort it.
func (s *Server) handleRunETL(w http.ResponseWriter, r *http.Request) {
	runID, err := s.runner.Run(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		writeError(w, http.StatusConflict, err)
	case err != nil:
		s.logger.Error("manual run failed", "run_id", runID, "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"run_id": runID,
			"error":  err.Error(),
		})
	default:
		sharedobs.WriteJSON(w, http.StatusOK, map[string]string{"run_id": runID})
	}
}

func (s *Server) handleRunLogs(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	logs, err := s.queries.RunLogs(r.Context(), limit)
	s.respond(w, logs, err)
}

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := s.queries.Countries(r.Context())
	s.respond(w, countries, err)
}

func (s *Server) handleTopCities(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	cities, err := s.queries.TopCities(r.Context(), limit)
	s.respond(w, cities, err)
}

func (s *Server) handleCountryCities(w http.ResponseWriter, r *http.Request) {
	cities, err := s.queries.CountryCities(r.Context(), r.PathValue("code"))
	s.respond(w, cities, err)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	a, b := r.URL.Query().Get("a"), r.URL.Query().Get("b")
	if a == "" || b == "" {
		writeError(w, http.StatusBadRequest, errors.New("query parameters a and b are required"))
		return
	}
	cmp, err := s.queries.Compare(r.Context(), a, b)
	s.respond(w, cmp, err)
}

func (s *Server) respond(w http.ResponseWriter, v any, err error) {
	if err != nil {
		s.logger.Error("query failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, v)
}

// parseLimit reads the optional limit parameter. Zero means the query's
// default. Writes a 400 and returns false for anything but a positive
// integer.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
		return 0, false
	}
	return n, true
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}

// allowAnyOrigin permits cross-origin browser clients.
func allowAnyOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
