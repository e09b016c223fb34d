package domain

import "fmt"

// PopulationRow is one decoded record from the census population feed.
// StateFIPS and CountyFIPS are the raw numeric columns; the region key is
// derived by zero-padding and concatenating them.
type PopulationRow struct {
	StateFIPS  int
	CountyFIPS int
	Name       string
	StateName  string
	Population float64
}

// Key returns the 5-digit FIPS region key for this row.
func (r PopulationRow) Key() string {
	return fmt.Sprintf("%02d%03d", r.StateFIPS, r.CountyFIPS)
}

// BoundaryFeature is one decoded feature from the boundary GeoJSON feed.
// The adapter extracts outer rings only; holes never reach the store.
type BoundaryFeature struct {
	RegionID     string // 5-digit FIPS GEOID
	ParentRegion string // parent display label, e.g. the state name
	AreaSqMeters float64
	Polygons     []Polygon // one outer ring per (Multi)Polygon component
}

// CaseRow is one decoded record from the cumulative case-count feed.
// FIPS is empty for rows the feed publishes without a county code, such as
// aggregate city rows; the store resolves those by county name.
type CaseRow struct {
	Date   string // ISO YYYY-MM-DD
	County string
	State  string
	FIPS   string
	Cases  float64
	Deaths float64
}
