// Package store owns the keyed region table and its merge passes.
//
// The table is built once per session by three merge passes (population,
// bounds, counts) that may reference keys in any order; each pass creates
// entries on first sight of a key. Merges are not safe for concurrent use
// and must run on a single goroutine. Once ingestion finishes the table is
// read-only, and reads (including formula evaluation) are safe concurrently.
package store

import (
	"sort"

	"github.com/couchcryptid/outbreak-map-service/internal/dateutil"
	"github.com/couchcryptid/outbreak-map-service/internal/domain"
)

// Table maps region keys to joined entries and tracks the observed date
// range across all count series.
type Table struct {
	entries   map[string]*domain.Entry
	composite *CompositeRegion

	minDate string
	maxDate string
}

// New creates an empty table. composite may be nil when no derived region
// is configured.
func New(composite *CompositeRegion) *Table {
	return &Table{
		entries:   make(map[string]*domain.Entry),
		composite: composite,
	}
}

// Get returns the entry for a region key, or nil.
func (t *Table) Get(key string) *domain.Entry {
	return t.entries[key]
}

// Len returns the number of entries, complete or not.
func (t *Table) Len() int {
	return len(t.entries)
}

// Keys returns all region keys in sorted order.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MinDate returns the earliest count date observed across all entries,
// or "" before any counts have merged.
func (t *Table) MinDate() string { return t.minDate }

// MaxDate returns the latest count date observed across all entries,
// or "" before any counts have merged.
func (t *Table) MaxDate() string { return t.maxDate }

// CompleteCount returns how many entries currently satisfy the
// completeness rule.
func (t *Table) CompleteCount() int {
	n := 0
	for _, e := range t.entries {
		if e.Complete() {
			n++
		}
	}
	return n
}

// entry returns the entry for key, creating it on first reference.
func (t *Table) entry(key string) *domain.Entry {
	e, ok := t.entries[key]
	if !ok {
		e = &domain.Entry{Counts: make(map[string]domain.CountPoint)}
		t.entries[key] = e
	}
	return e
}

// AddPopulation merges census rows. The population value and display labels
// are last-write-wins; the feed has one row per key, so this is effectively
// set-once. Returns the number of rows skipped as malformed.
func (t *Table) AddPopulation(rows []domain.PopulationRow) int {
	skipped := 0
	for _, row := range rows {
		if row.StateFIPS <= 0 || row.CountyFIPS < 0 || row.Population < 0 {
			skipped++
			continue
		}
		e := t.entry(row.Key())
		e.Name = row.Name
		e.ParentRegion = row.StateName
		e.Population = row.Population
	}
	t.refreshComposite()
	return skipped
}

// AddBounds merges boundary features. Area accumulates because a region may
// be split across several features; source square meters convert to the
// canonical square miles here, never at evaluation. Returns the number of
// features skipped as malformed.
func (t *Table) AddBounds(features []domain.BoundaryFeature) int {
	skipped := 0
	for _, f := range features {
		if f.RegionID == "" || f.AreaSqMeters < 0 || len(f.Polygons) == 0 {
			skipped++
			continue
		}
		e := t.entry(f.RegionID)
		e.AreaSqMi += f.AreaSqMeters / domain.SqMetersPerSqMile
		e.Bounds = append(e.Bounds, f.Polygons...)
		if e.ParentRegion == "" {
			e.ParentRegion = f.ParentRegion
		}
	}
	t.refreshComposite()
	return skipped
}

// AddCounts merges cumulative case rows, upserting counts[date] and widening
// the min/max date range. Rows without a FIPS code resolve by the composite
// source label; anything else without a key, with a malformed date, or with
// negative counts is skipped. Returns the number of rows skipped.
func (t *Table) AddCounts(rows []domain.CaseRow) int {
	skipped := 0
	for _, row := range rows {
		key := row.FIPS
		if key == "" && t.composite != nil && row.County == t.composite.SourceLabel {
			key = t.composite.Key
		}
		if key == "" || !dateutil.Valid(row.Date) || row.Cases < 0 || row.Deaths < 0 {
			skipped++
			continue
		}

		e := t.entry(key)
		if e.Name == "" {
			e.Name = row.County
		}
		if e.ParentRegion == "" {
			e.ParentRegion = row.State
		}
		e.Counts[row.Date] = domain.CountPoint{Cases: row.Cases, Deaths: row.Deaths}

		if t.minDate == "" || row.Date < t.minDate {
			t.minDate = row.Date
		}
		if t.maxDate == "" || row.Date > t.maxDate {
			t.maxDate = row.Date
		}
	}
	t.refreshComposite()
	return skipped
}
