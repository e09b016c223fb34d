// Package geojson decodes county boundary GeoJSON into boundary features
// for the region table.
//
// The feed is a Census cartographic boundary FeatureCollection. Feature
// properties carry the 5-digit GEOID, the land area in square meters
// (ALAND), and optionally a state display name. Geometry is Polygon or
// MultiPolygon with [lon, lat] positions; only outer rings are kept, holes
// are discarded.
package geojson

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/couchcryptid/outbreak-map-service/internal/adapter/fetch"
	"github.com/couchcryptid/outbreak-map-service/internal/domain"
)

// HTTPSource downloads and parses the boundary feed.
type HTTPSource struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPSource creates a boundary source backed by an HTTP URL.
func NewHTTPSource(url string, timeout time.Duration, logger *slog.Logger) *HTTPSource {
	return &HTTPSource{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// FetchBoundaries implements ingest.BoundarySource.
func (s *HTTPSource) FetchBoundaries(ctx context.Context) ([]domain.BoundaryFeature, error) {
	body, err := fetch.Body(ctx, s.httpClient, s.url)
	if err != nil {
		return nil, fmt.Errorf("boundary feed: %w", err)
	}
	defer body.Close()
	return Parse(body)
}

// FileSource reads the boundary feed from a local snapshot file.
type FileSource struct {
	path string
}

// NewFileSource creates a boundary source backed by a local GeoJSON file.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// FetchBoundaries implements ingest.BoundarySource.
func (s *FileSource) FetchBoundaries(_ context.Context) ([]domain.BoundaryFeature, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("boundary snapshot: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// GeoJSON wire types. Coordinates stay raw until the geometry type is known.

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Properties properties `json:"properties"`
	Geometry   geometry   `json:"geometry"`
}

type properties struct {
	GeoID     string  `json:"GEOID"`
	ALand     float64 `json:"ALAND"`
	StateName string  `json:"STATE_NAME"`
}

type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Parse decodes the FeatureCollection. Features with unusable geometry or
// properties are dropped; only an unreadable document is fatal.
func Parse(r io.Reader) ([]domain.BoundaryFeature, error) {
	var fc featureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode boundary collection: %w", err)
	}

	features := make([]domain.BoundaryFeature, 0, len(fc.Features))
	for _, f := range fc.Features {
		polygons, ok := outerRings(f.Geometry)
		if !ok || f.Properties.GeoID == "" {
			continue
		}
		features = append(features, domain.BoundaryFeature{
			RegionID:     f.Properties.GeoID,
			ParentRegion: f.Properties.StateName,
			AreaSqMeters: f.Properties.ALand,
			Polygons:     polygons,
		})
	}
	return features, nil
}

// outerRings extracts one outer ring per polygon component. GeoJSON nests
// Polygon as rings[ring][pos] and MultiPolygon as polys[poly][ring][pos],
// ring 0 being the outer boundary and the rest holes.
func outerRings(g geometry) ([]domain.Polygon, bool) {
	switch g.Type {
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil || len(rings) == 0 {
			return nil, false
		}
		ring, ok := toRing(rings[0])
		if !ok {
			return nil, false
		}
		return []domain.Polygon{ring}, true

	case "MultiPolygon":
		var polys [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &polys); err != nil || len(polys) == 0 {
			return nil, false
		}
		out := make([]domain.Polygon, 0, len(polys))
		for _, rings := range polys {
			if len(rings) == 0 {
				continue
			}
			ring, ok := toRing(rings[0])
			if !ok {
				continue
			}
			out = append(out, ring)
		}
		return out, len(out) > 0

	default:
		return nil, false
	}
}

// toRing converts GeoJSON [lon, lat] positions to lat/lon points.
func toRing(positions [][]float64) (domain.Polygon, bool) {
	if len(positions) == 0 {
		return nil, false
	}
	ring := make(domain.Polygon, 0, len(positions))
	for _, pos := range positions {
		if len(pos) < 2 {
			return nil, false
		}
		ring = append(ring, domain.LatLon{Lat: pos[1], Lon: pos[0]})
	}
	return ring, true
}
