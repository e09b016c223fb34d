// Package census decodes county population estimate CSVs into population
// rows for the region table.
//
// The feed is the Census Bureau county population estimates file. Columns
// are located by header name, so column reordering upstream is harmless:
//
//	STATE    numeric state FIPS code
//	COUNTY   numeric county FIPS code (0 = state-level summary row, skipped)
//	STNAME   state display name
//	CTYNAME  county display name
//	POPESTIMATE<year>  population estimate column; the latest one is used
package census

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/outbreak-map-service/internal/adapter/fetch"
	"github.com/couchcryptid/outbreak-map-service/internal/domain"
)

// HTTPSource downloads and parses the population feed.
type HTTPSource struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPSource creates a population source backed by an HTTP URL.
func NewHTTPSource(url string, timeout time.Duration, logger *slog.Logger) *HTTPSource {
	return &HTTPSource{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// FetchPopulation implements ingest.PopulationSource.
func (s *HTTPSource) FetchPopulation(ctx context.Context) ([]domain.PopulationRow, error) {
	body, err := fetch.Body(ctx, s.httpClient, s.url)
	if err != nil {
		return nil, fmt.Errorf("population feed: %w", err)
	}
	defer body.Close()
	return Parse(body)
}

// FileSource reads the population feed from a local snapshot file.
type FileSource struct {
	path string
}

// NewFileSource creates a population source backed by a local CSV file.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// FetchPopulation implements ingest.PopulationSource.
func (s *FileSource) FetchPopulation(_ context.Context) ([]domain.PopulationRow, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("population snapshot: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes the population CSV. Individual malformed rows are dropped;
// only a broken header or unreadable stream is fatal.
func Parse(r io.Reader) ([]domain.PopulationRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // census files have ragged trailing columns

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("population header: %w", err)
	}
	cols, err := locateColumns(header)
	if err != nil {
		return nil, err
	}

	var rows []domain.PopulationRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A single unparseable line is not worth aborting the feed.
			continue
		}
		row, ok := decodeRow(record, cols)
		if !ok {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// columns holds the header indices of the fields Parse consumes.
type columns struct {
	state, county, stName, ctyName, estimate int
}

// locateColumns resolves field positions by header name. For the estimate it
// picks the POPESTIMATE column with the greatest year suffix.
func locateColumns(header []string) (columns, error) {
	cols := columns{state: -1, county: -1, stName: -1, ctyName: -1, estimate: -1}
	bestYear := ""
	for i, name := range header {
		switch strings.ToUpper(strings.TrimSpace(name)) {
		case "STATE":
			cols.state = i
		case "COUNTY":
			cols.county = i
		case "STNAME":
			cols.stName = i
		case "CTYNAME":
			cols.ctyName = i
		default:
			upper := strings.ToUpper(strings.TrimSpace(name))
			if year, ok := strings.CutPrefix(upper, "POPESTIMATE"); ok && year > bestYear {
				bestYear = year
				cols.estimate = i
			}
		}
	}
	if cols.state < 0 || cols.county < 0 || cols.stName < 0 || cols.ctyName < 0 || cols.estimate < 0 {
		return cols, fmt.Errorf("population header missing required columns: %v", header)
	}
	return cols, nil
}

func decodeRow(record []string, cols columns) (domain.PopulationRow, bool) {
	max := cols.state
	for _, i := range []int{cols.county, cols.stName, cols.ctyName, cols.estimate} {
		if i > max {
			max = i
		}
	}
	if len(record) <= max {
		return domain.PopulationRow{}, false
	}

	state, err := strconv.Atoi(strings.TrimSpace(record[cols.state]))
	if err != nil {
		return domain.PopulationRow{}, false
	}
	county, err := strconv.Atoi(strings.TrimSpace(record[cols.county]))
	if err != nil {
		return domain.PopulationRow{}, false
	}
	if county == 0 {
		// State-level summary row, not a county.
		return domain.PopulationRow{}, false
	}
	population, err := strconv.ParseFloat(strings.TrimSpace(record[cols.estimate]), 64)
	if err != nil {
		return domain.PopulationRow{}, false
	}

	return domain.PopulationRow{
		StateFIPS:  state,
		CountyFIPS: county,
		Name:       strings.TrimSpace(record[cols.ctyName]),
		StateName:  strings.TrimSpace(record[cols.stName]),
		Population: population,
	}, true
}
