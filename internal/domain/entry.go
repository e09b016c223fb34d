package domain

import (
	"fmt"
	"strconv"
)

// SqMetersPerSqMile converts source land areas (m²) to the canonical unit.
const SqMetersPerSqMile = 2589988.110336

// SqKmPerSqMile converts the canonical area to km² for the metric denominator.
const SqKmPerSqMile = 2.589988110336

// LatLon is a WGS-84 coordinate pair.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Polygon is the ordered outer ring of one boundary polygon. Interior holes
// from the source geometry are discarded at ingestion.
type Polygon []LatLon

// CountPoint holds cumulative totals as of one reporting date.
type CountPoint struct {
	Cases  float64 `json:"cases"`
	Deaths float64 `json:"deaths"`
}

// Entry is the joined record for one region. Fields arrive from three
// independent feeds in any order; see the package documentation for the
// completeness rule.
type Entry struct {
	Name         string `json:"name"`
	ParentRegion string `json:"parent_region"`

	// Population is the census estimate. 0 means not yet populated.
	Population float64 `json:"population"`

	// AreaSqMi is land area in square miles, accumulated across boundary
	// features contributing to the same region.
	AreaSqMi float64 `json:"area_sq_mi"`

	// Bounds holds one outer ring per (Multi)Polygon component, in
	// ingestion order.
	Bounds []Polygon `json:"bounds,omitempty"`

	// Counts maps ISO date → cumulative totals. Keys are not sorted;
	// consumers search explicitly.
	Counts map[string]CountPoint `json:"counts,omitempty"`
}

// Complete reports whether all three feeds have contributed to this entry.
// Incomplete entries are excluded from evaluation and rendering.
func (e *Entry) Complete() bool {
	return e.Population > 0 && e.AreaSqMi > 0 && len(e.Bounds) > 0 && len(e.Counts) > 0
}

// DisplayName is the label shown on the map: "Name, ParentRegion", or just
// the name when no parent label is known.
func (e *Entry) DisplayName() string {
	if e.ParentRegion == "" {
		return e.Name
	}
	return fmt.Sprintf("%s, %s", e.Name, e.ParentRegion)
}

// FormatValue renders an evaluator result for display. Whole numbers drop
// the fraction; everything else keeps two decimal places.
func FormatValue(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
