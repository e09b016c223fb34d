// Package domain models per-region epidemic map data and formula evaluation.
//
// # Data Sources
//
// Each map region (a US county) is assembled from three independent feeds,
// joined on a region key:
//
//	Population:  Census county population estimates CSV. The region key is
//	             built from two numeric FIPS columns: the state code
//	             zero-padded to 2 digits concatenated with the county code
//	             zero-padded to 3 digits, e.g. state 6 + county 37 → "06037"
//	             (Los Angeles County, CA).
//	Boundaries:  Census cartographic boundary GeoJSON. Features carry a
//	             5-digit GEOID matching the FIPS key, a land area in square
//	             meters, and Polygon or MultiPolygon geometry. A county may
//	             be split across several features; area accumulates.
//	Case counts: Daily cumulative case/death CSV (date,county,state,fips,
//	             cases,deaths). Values are cumulative totals as of each
//	             date, not daily deltas. Reporting is sparse and irregular:
//	             a county has rows only for dates on which it reported.
//
// # Units
//
// Land area is stored canonically in square miles. Source square meters are
// converted once at ingestion using 1 sq mi = 2,589,988.110336 m². The
// "per sq. km." denominator converts from the canonical unit at evaluation.
//
// # Effective Dates
//
// Because the count series is sparse, a lookup for date D resolves to the
// most recent date in the series that is on or before D (the "effective
// date"). A region with no record on or before D evaluates to 0 for D; this
// is defined fallback behavior, not an error.
//
// # Completeness
//
// An Entry is usable by the evaluator only once all three feeds have
// contributed: population > 0, area > 0, at least one boundary polygon, and
// at least one count record. Partially populated entries exist transiently
// during ingestion and are excluded from evaluation and rendering. The
// transition to complete is monotonic within a session.
package domain
