package store

import "github.com/couchcryptid/outbreak-map-service/internal/domain"

// CompositeRegion configures one derived entry aggregated from a fixed
// ordered list of constituent regions, e.g. New York City from its five
// borough counties. It is injected at construction, never global state.
type CompositeRegion struct {
	Key          string
	Name         string
	ParentRegion string

	// SourceLabel is the county name the case feed uses for the aggregate
	// rows it publishes without a FIPS code; AddCounts maps those rows to
	// Key.
	SourceLabel string

	// Constituents are the region keys whose fields aggregate into the
	// derived entry, in concatenation order for bounds.
	Constituents []string

	// SumCounts enables per-date summation of constituent counts. When the
	// constituents carry no counts of their own (the aggregate rows arrive
	// only under SourceLabel), feed-supplied counts are kept either way.
	SumCounts bool
}

// refreshComposite rebuilds the derived entry from whichever constituent
// fields are currently populated. It runs after every merge pass because
// constituents fill in incrementally and in no fixed order.
func (t *Table) refreshComposite() {
	c := t.composite
	if c == nil {
		return
	}

	e := t.entry(c.Key)
	e.Name = c.Name
	e.ParentRegion = c.ParentRegion

	e.Population = 0
	e.AreaSqMi = 0
	e.Bounds = nil
	for _, key := range c.Constituents {
		part, ok := t.entries[key]
		if !ok {
			continue
		}
		e.Population += part.Population
		e.AreaSqMi += part.AreaSqMi
		e.Bounds = append(e.Bounds, part.Bounds...)
	}

	if !c.SumCounts {
		return
	}
	summed := t.sumConstituentCounts(c)
	// An empty sum means the constituents have no series at all; leave any
	// counts the feed wrote directly under the composite key untouched.
	if len(summed) > 0 {
		e.Counts = summed
	}
}

// sumConstituentCounts merges constituent series per date over the union of
// their dates; a constituent missing a date contributes 0 for that date.
func (t *Table) sumConstituentCounts(c *CompositeRegion) map[string]domain.CountPoint {
	summed := make(map[string]domain.CountPoint)
	for _, key := range c.Constituents {
		part, ok := t.entries[key]
		if !ok {
			continue
		}
		for date, point := range part.Counts {
			agg := summed[date]
			agg.Cases += point.Cases
			agg.Deaths += point.Deaths
			summed[date] = agg
		}
	}
	return summed
}
