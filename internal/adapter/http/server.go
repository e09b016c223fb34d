// Package http exposes the service's HTTP surface: operational endpoints
// and the read-only region API consumed by the map renderer.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/outbreak-map-service/internal/domain"
	"github.com/couchcryptid/outbreak-map-service/internal/evaluate"
	"github.com/couchcryptid/outbreak-map-service/internal/store"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// dataset bundles the region table with its evaluator so both become
// visible to handlers in a single pointer swap.
type dataset struct {
	table     *store.Table
	evaluator *evaluate.Service
}

// Server exposes health, readiness, metrics, and region API routes.
//
// The data routes serve nothing until Publish hands them a table; until then
// they answer 503. The table's merge passes are not safe to run concurrently
// with reads, so the server must only ever see a table whose ingestion has
// finished.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	data       atomic.Pointer[dataset]
}

// NewServer creates the HTTP server. The data routes stay unavailable until
// Publish is called.
func NewServer(addr string, ready ReadinessChecker, logger *slog.Logger) *Server {
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

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/dates", s.handleDates)
	mux.HandleFunc("GET /api/regions", s.handleRegions)
	mux.HandleFunc("GET /api/regions/{key}/bounds", s.handleBounds)
	mux.HandleFunc("GET /api/values", s.handleValues)

	return s
}

// Publish makes the table and its evaluator visible to the data routes.
// Call it only after the ingestion merges have returned; the atomic swap
// guarantees handlers never observe a table mid-merge.
func (s *Server) Publish(table *store.Table, evaluator *evaluate.Service) {
	s.data.Store(&dataset{table: table, evaluator: evaluator})
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

// dataset returns the published data, or writes a 503 and reports false
// while ingestion is still running.
func (s *Server) dataset(w http.ResponseWriter) (*dataset, bool) {
	d := s.data.Load()
	if d == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "ingestion in progress"})
		return nil, false
	}
	return d, true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleDates(w http.ResponseWriter, _ *http.Request) {
	d, ok := s.dataset(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"min_date": d.table.MinDate(),
		"max_date": d.table.MaxDate(),
	})
}

// regionSummary is the listing shape for one region.
type regionSummary struct {
	Key         string  `json:"key"`
	DisplayName string  `json:"display_name"`
	Population  float64 `json:"population"`
	AreaSqMi    float64 `json:"area_sq_mi"`
	Complete    bool    `json:"complete"`
}

func (s *Server) handleRegions(w http.ResponseWriter, _ *http.Request) {
	d, ok := s.dataset(w)
	if !ok {
		return
	}
	keys := d.table.Keys()
	regions := make([]regionSummary, 0, len(keys))
	for _, key := range keys {
		e := d.table.Get(key)
		regions = append(regions, regionSummary{
			Key:         key,
			DisplayName: e.DisplayName(),
			Population:  e.Population,
			AreaSqMi:    e.AreaSqMi,
			Complete:    e.Complete(),
		})
	}
	writeJSON(w, http.StatusOK, regions)
}

func (s *Server) handleBounds(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dataset(w)
	if !ok {
		return
	}
	e := d.table.Get(r.PathValue("key"))
	if e == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown region"})
		return
	}
	writeJSON(w, http.StatusOK, e.Bounds)
}

func (s *Server) handleValues(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dataset(w)
	if !ok {
		return
	}
	f, err := parseFormula(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	values, err := d.evaluator.EvaluateAll(f)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		s.logger.Error("evaluate failed", "formula", f.Key(), "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "evaluation failed"})
		return
	}
	writeJSON(w, http.StatusOK, values)
}

// parseFormula builds a Formula from query parameters, rejecting unknown
// enum tokens up front so configuration bugs surface as 400s.
func parseFormula(r *http.Request) (domain.Formula, error) {
	q := r.URL.Query()

	num, err := domain.ParseNumerator(q.Get("numerator"))
	if err != nil {
		return domain.Formula{}, err
	}
	den, err := domain.ParseDenominator(q.Get("denominator"))
	if err != nil {
		return domain.Formula{}, err
	}
	mode, err := domain.ParseMode(q.Get("mode"))
	if err != nil {
		return domain.Formula{}, err
	}

	refDate := q.Get("ref_date")
	if mode != domain.ModeOn && refDate == "" {
		return domain.Formula{}, fmt.Errorf("%w: mode %q requires ref_date", domain.ErrInvalidArgument, mode)
	}

	return domain.Formula{
		Numerator:   num,
		Denominator: den,
		Mode:        mode,
		Date:        q.Get("date"),
		RefDate:     refDate,
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response body
}
