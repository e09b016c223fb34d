// Command server runs the outbreak map service: a one-shot ingestion of the
// population, boundary, and case-count feeds into an in-memory region table,
// then an HTTP API serving per-region formula evaluations to the map
// frontend.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/outbreak-map-service/internal/adapter/cases"
	"github.com/couchcryptid/outbreak-map-service/internal/adapter/census"
	"github.com/couchcryptid/outbreak-map-service/internal/adapter/geojson"
	httpadapter "github.com/couchcryptid/outbreak-map-service/internal/adapter/http"
	"github.com/couchcryptid/outbreak-map-service/internal/config"
	"github.com/couchcryptid/outbreak-map-service/internal/evaluate"
	"github.com/couchcryptid/outbreak-map-service/internal/ingest"
	"github.com/couchcryptid/outbreak-map-service/internal/observability"
	"github.com/couchcryptid/outbreak-map-service/internal/store"
)

// newYorkCity is the one composite region in the default deployment: the
// case feed reports the five boroughs as a single "New York City" row with
// no FIPS code, while the population and boundary feeds carry them as
// separate counties.
func newYorkCity(sumCounts bool) *store.CompositeRegion {
	return &store.CompositeRegion{
		Key:          "NYC",
		Name:         "New York City",
		ParentRegion: "New York",
		SourceLabel:  "New York City",
		Constituents: []string{"36061", "36047", "36081", "36005", "36085"},
		SumCounts:    sumCounts,
	}
}

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	table := store.New(newYorkCity(cfg.CompositeSumCounts))

	ingestor := ingest.New(
		populationSource(cfg, logger),
		boundarySource(cfg, logger),
		caseSource(cfg, logger),
		table, logger, metrics,
		ingest.WithRetries(cfg.FetchRetries),
	)

	evaluator := evaluate.New(table, cfg.CacheTTL, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, ingestor, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := ingestor.Run(ctx); err != nil {
			// Entries fed by a failed feed stay incomplete; the service
			// keeps serving whatever did arrive.
			logger.Error("ingestion incomplete", "error", err)
		}
		// The data routes answer 503 until this point; publishing after the
		// merge passes finish keeps reads off a table still being mutated.
		srv.Publish(table, evaluator)
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

func populationSource(cfg *config.Config, logger *slog.Logger) ingest.PopulationSource {
	if cfg.Population.File != "" {
		return census.NewFileSource(cfg.Population.File)
	}
	return census.NewHTTPSource(cfg.Population.URL, cfg.FetchTimeout, logger)
}

func boundarySource(cfg *config.Config, logger *slog.Logger) ingest.BoundarySource {
	if cfg.Boundary.File != "" {
		return geojson.NewFileSource(cfg.Boundary.File)
	}
	return geojson.NewHTTPSource(cfg.Boundary.URL, cfg.FetchTimeout, logger)
}

func caseSource(cfg *config.Config, logger *slog.Logger) ingest.CaseSource {
	if cfg.Cases.File != "" {
		return cases.NewFileSource(cfg.Cases.File)
	}
	return cases.NewHTTPSource(cfg.Cases.URL, cfg.FetchTimeout, logger)
}
