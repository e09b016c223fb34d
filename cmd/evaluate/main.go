// Command evaluate runs one formula against local feed snapshots and prints
// per-region results as CSV, for eyeballing data joins without standing up
// the service.
//
// Usage:
//
//	go run ./cmd/evaluate \
//	  -population data/co-est2019-alldata.csv \
//	  -boundaries data/counties.geojson \
//	  -cases data/us-counties.csv \
//	  -numerator new_cases -denominator per_1000 -mode avg \
//	  -date 2020-04-01 -ref-date 2020-03-25
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/couchcryptid/outbreak-map-service/internal/adapter/cases"
	"github.com/couchcryptid/outbreak-map-service/internal/adapter/census"
	"github.com/couchcryptid/outbreak-map-service/internal/adapter/geojson"
	"github.com/couchcryptid/outbreak-map-service/internal/domain"
	"github.com/couchcryptid/outbreak-map-service/internal/ingest"
	"github.com/couchcryptid/outbreak-map-service/internal/observability"
	"github.com/couchcryptid/outbreak-map-service/internal/store"
)

func main() {
	populationPath := flag.String("population", "", "path to the population CSV snapshot")
	boundaryPath := flag.String("boundaries", "", "path to the boundary GeoJSON snapshot")
	casesPath := flag.String("cases", "", "path to the case-count CSV snapshot")
	numerator := flag.String("numerator", "cases", "formula numerator: cases|deaths|new_cases|new_deaths")
	denominator := flag.String("denominator", "total", "formula denominator: total|per_case|per_1000|per_sq_mi|per_sq_km")
	mode := flag.String("mode", "on", "formula mode: on|diff|avg")
	date := flag.String("date", "", "target ISO date (default: latest date in the case feed)")
	refDate := flag.String("ref-date", "", "reference ISO date for diff and avg modes")
	sumCounts := flag.Bool("sum-composite-counts", true, "sum constituent count series into the composite region")
	flag.Parse()

	if *populationPath == "" || *boundaryPath == "" || *casesPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*populationPath, *boundaryPath, *casesPath, *numerator, *denominator, *mode, *date, *refDate, *sumCounts); code != 0 {
		os.Exit(code)
	}
}

func run(populationPath, boundaryPath, casesPath, numerator, denominator, mode, date, refDate string, sumCounts bool) int {
	num, err := domain.ParseNumerator(numerator)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	den, err := domain.ParseDenominator(denominator)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	m, err := domain.ParseMode(mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	table := store.New(&store.CompositeRegion{
		Key:          "NYC",
		Name:         "New York City",
		ParentRegion: "New York",
		SourceLabel:  "New York City",
		Constituents: []string{"36061", "36047", "36081", "36005", "36085"},
		SumCounts:    sumCounts,
	})

	ingestor := ingest.New(
		census.NewFileSource(populationPath),
		geojson.NewFileSource(boundaryPath),
		cases.NewFileSource(casesPath),
		table, logger, observability.NewMetrics(),
	)
	if err := ingestor.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "ingest: %v\n", err)
		return 1
	}

	if date == "" {
		date = table.MaxDate()
	}
	formula := domain.Formula{
		Numerator:   num,
		Denominator: den,
		Mode:        m,
		Date:        date,
		RefDate:     refDate,
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()
	w.Write([]string{"key", "region", "value"}) //nolint:errcheck

	for _, key := range table.Keys() {
		e := table.Get(key)
		if !e.Complete() {
			continue
		}
		v, err := e.Evaluate(formula)
		if err != nil {
			fmt.Fprintf(os.Stderr, "evaluate %s: %v\n", key, err)
			return 2
		}
		w.Write([]string{key, e.DisplayName(), domain.FormatValue(v)}) //nolint:errcheck
	}

	return 0
}
