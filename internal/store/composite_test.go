package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/outbreak-map-service/internal/domain"
)

func testComposite(sumCounts bool) *CompositeRegion {
	return &CompositeRegion{
		Key:          "NYC",
		Name:         "New York City",
		ParentRegion: "New York",
		SourceLabel:  "New York City",
		Constituents: []string{"36061", "36047"},
		SumCounts:    sumCounts,
	}
}

func TestComposite_AggregatesConstituents(t *testing.T) {
	tbl := New(testComposite(true))

	ringA := domain.Polygon{{Lat: 40.7, Lon: -74.0}, {Lat: 40.8, Lon: -74.0}, {Lat: 40.8, Lon: -73.9}}
	ringB := domain.Polygon{{Lat: 40.6, Lon: -74.0}, {Lat: 40.7, Lon: -74.0}, {Lat: 40.7, Lon: -73.9}}

	tbl.AddPopulation([]domain.PopulationRow{
		{StateFIPS: 36, CountyFIPS: 61, Name: "New York", StateName: "New York", Population: 10},
		{StateFIPS: 36, CountyFIPS: 47, Name: "Kings", StateName: "New York", Population: 20},
	})
	tbl.AddBounds([]domain.BoundaryFeature{
		{RegionID: "36061", AreaSqMeters: domain.SqMetersPerSqMile, Polygons: []domain.Polygon{ringA}},
		{RegionID: "36047", AreaSqMeters: 2 * domain.SqMetersPerSqMile, Polygons: []domain.Polygon{ringB}},
	})

	e := tbl.Get("NYC")
	require.NotNil(t, e)
	assert.Equal(t, "New York City", e.Name)
	assert.Equal(t, "New York", e.ParentRegion)
	assert.Equal(t, 30.0, e.Population)
	assert.InDelta(t, 3.0, e.AreaSqMi, 1e-9)
	// Bounds concatenate in constituent order, no geometric union.
	assert.Equal(t, []domain.Polygon{ringA, ringB}, e.Bounds)
}

func TestComposite_SumsConstituentCountsPerDate(t *testing.T) {
	tbl := New(testComposite(true))

	tbl.AddCounts([]domain.CaseRow{
		{Date: "2020-03-01", County: "New York", State: "New York", FIPS: "36061", Cases: 5, Deaths: 1},
		{Date: "2020-03-02", County: "New York", State: "New York", FIPS: "36061", Cases: 8, Deaths: 1},
		{Date: "2020-03-02", County: "Kings", State: "New York", FIPS: "36047", Cases: 4, Deaths: 0},
	})

	e := tbl.Get("NYC")
	require.NotNil(t, e)
	// A date missing from a constituent contributes 0 for that date.
	assert.Equal(t, domain.CountPoint{Cases: 5, Deaths: 1}, e.Counts["2020-03-01"])
	assert.Equal(t, domain.CountPoint{Cases: 12, Deaths: 1}, e.Counts["2020-03-02"])
}

// The case feed publishes the composite's rows without a FIPS code; they
// resolve to the composite key by county name.
func TestComposite_SourceLabelSubstitution(t *testing.T) {
	tbl := New(testComposite(true))

	skipped := tbl.AddCounts([]domain.CaseRow{
		{Date: "2020-03-01", County: "New York City", State: "New York", FIPS: "", Cases: 100, Deaths: 3},
	})
	assert.Equal(t, 0, skipped)

	e := tbl.Get("NYC")
	require.NotNil(t, e)
	// Constituents carry no counts, so the feed-supplied series survives the
	// composite refresh even with summing enabled.
	assert.Equal(t, domain.CountPoint{Cases: 100, Deaths: 3}, e.Counts["2020-03-01"])
}

func TestComposite_SumCountsDisabledKeepsFeedCounts(t *testing.T) {
	tbl := New(testComposite(false))

	tbl.AddCounts([]domain.CaseRow{
		{Date: "2020-03-01", County: "New York City", State: "New York", FIPS: "", Cases: 100, Deaths: 3},
		{Date: "2020-03-01", County: "New York", State: "New York", FIPS: "36061", Cases: 5, Deaths: 1},
	})

	e := tbl.Get("NYC")
	require.NotNil(t, e)
	assert.Equal(t, domain.CountPoint{Cases: 100, Deaths: 3}, e.Counts["2020-03-01"])
}

func TestComposite_RefreshesAfterEveryPass(t *testing.T) {
	tbl := New(testComposite(true))

	tbl.AddPopulation([]domain.PopulationRow{
		{StateFIPS: 36, CountyFIPS: 61, Name: "New York", StateName: "New York", Population: 10},
	})
	assert.Equal(t, 10.0, tbl.Get("NYC").Population)

	// A later pass for the other constituent updates the aggregate.
	tbl.AddPopulation([]domain.PopulationRow{
		{StateFIPS: 36, CountyFIPS: 47, Name: "Kings", StateName: "New York", Population: 20},
	})
	assert.Equal(t, 30.0, tbl.Get("NYC").Population)
}
