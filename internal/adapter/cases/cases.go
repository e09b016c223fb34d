// Package cases decodes the cumulative case-count CSV into case rows for
// the region table.
//
// The feed is newline-delimited CSV with a header row:
//
//	date,county,state,fips,cases,deaths
//
// Values are cumulative totals as of each date, not daily deltas. Aggregate
// city rows (notably "New York City") are published with an empty fips
// column; the store resolves those by county name.
package cases

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

// HTTPSource downloads and parses the case-count feed.
type HTTPSource struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPSource creates a case-count source backed by an HTTP URL.
func NewHTTPSource(url string, timeout time.Duration, logger *slog.Logger) *HTTPSource {
	return &HTTPSource{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// FetchCases implements ingest.CaseSource.
func (s *HTTPSource) FetchCases(ctx context.Context) ([]domain.CaseRow, error) {
	body, err := fetch.Body(ctx, s.httpClient, s.url)
	if err != nil {
		return nil, fmt.Errorf("case feed: %w", err)
	}
	defer body.Close()
	return Parse(body)
}

// FileSource reads the case-count feed from a local snapshot file.
type FileSource struct {
	path string
}

// NewFileSource creates a case-count source backed by a local CSV file.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// FetchCases implements ingest.CaseSource.
func (s *FileSource) FetchCases(_ context.Context) ([]domain.CaseRow, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("case snapshot: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes the case CSV. Rows that fail to decode are dropped; empty
// fips and zero-valued counts are legitimate and kept.
func Parse(r io.Reader) ([]domain.CaseRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("case header: %w", err)
	}
	cols, err := locateColumns(header)
	if err != nil {
		return nil, err
	}

	var rows []domain.CaseRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
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

type columns struct {
	date, county, state, fips, cases, deaths int
}

func locateColumns(header []string) (columns, error) {
	cols := columns{date: -1, county: -1, state: -1, fips: -1, cases: -1, deaths: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "date":
			cols.date = i
		case "county":
			cols.county = i
		case "state":
			cols.state = i
		case "fips":
			cols.fips = i
		case "cases":
			cols.cases = i
		case "deaths":
			cols.deaths = i
		}
	}
	if cols.date < 0 || cols.county < 0 || cols.state < 0 || cols.fips < 0 || cols.cases < 0 || cols.deaths < 0 {
		return cols, fmt.Errorf("case header missing required columns: %v", header)
	}
	return cols, nil
}

func decodeRow(record []string, cols columns) (domain.CaseRow, bool) {
	max := cols.date
	for _, i := range []int{cols.county, cols.state, cols.fips, cols.cases, cols.deaths} {
		if i > max {
			max = i
		}
	}
	if len(record) <= max {
		return domain.CaseRow{}, false
	}

	cases, err := strconv.ParseFloat(strings.TrimSpace(record[cols.cases]), 64)
	if err != nil {
		return domain.CaseRow{}, false
	}
	// Early feed rows omit the deaths column value entirely.
	deaths := 0.0
	if s := strings.TrimSpace(record[cols.deaths]); s != "" {
		deaths, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.CaseRow{}, false
		}
	}

	return domain.CaseRow{
		Date:   strings.TrimSpace(record[cols.date]),
		County: strings.TrimSpace(record[cols.county]),
		State:  strings.TrimSpace(record[cols.state]),
		FIPS:   strings.TrimSpace(record[cols.fips]),
		Cases:  cases,
		Deaths: deaths,
	}, true
}
