package store

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/outbreak-map-service/internal/domain"
)

func testPopulation() []domain.PopulationRow {
	return []domain.PopulationRow{
		{StateFIPS: 48, CountyFIPS: 411, Name: "San Saba", StateName: "Texas", Population: 8000},
		{StateFIPS: 6, CountyFIPS: 37, Name: "Los Angeles", StateName: "California", Population: 10000000},
	}
}

func testBounds() []domain.BoundaryFeature {
	return []domain.BoundaryFeature{
		{
			RegionID:     "48411",
			ParentRegion: "Texas",
			AreaSqMeters: 2 * domain.SqMetersPerSqMile,
			Polygons:     []domain.Polygon{{{Lat: 31.0, Lon: -98.4}, {Lat: 31.1, Lon: -98.4}, {Lat: 31.1, Lon: -98.5}}},
		},
		{
			RegionID:     "06037",
			ParentRegion: "California",
			AreaSqMeters: 3 * domain.SqMetersPerSqMile,
			Polygons:     []domain.Polygon{{{Lat: 34.0, Lon: -118.2}, {Lat: 34.1, Lon: -118.2}, {Lat: 34.1, Lon: -118.3}}},
		},
	}
}

func testCounts() []domain.CaseRow {
	return []domain.CaseRow{
		{Date: "2020-03-05", County: "San Saba", State: "Texas", FIPS: "48411", Cases: 9, Deaths: 2},
		{Date: "2020-03-01", County: "San Saba", State: "Texas", FIPS: "48411", Cases: 5, Deaths: 1},
		{Date: "2020-03-03", County: "Los Angeles", State: "California", FIPS: "06037", Cases: 60, Deaths: 1},
	}
}

func TestMergePasses_BuildCompleteEntries(t *testing.T) {
	tbl := New(nil)

	assert.Equal(t, 0, tbl.AddPopulation(testPopulation()))
	assert.Equal(t, 0, tbl.AddBounds(testBounds()))
	assert.Equal(t, 0, tbl.AddCounts(testCounts()))

	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, 2, tbl.CompleteCount())

	e := tbl.Get("48411")
	require.NotNil(t, e)
	assert.Equal(t, "San Saba", e.Name)
	assert.Equal(t, "Texas", e.ParentRegion)
	assert.Equal(t, 8000.0, e.Population)
	assert.InDelta(t, 2.0, e.AreaSqMi, 1e-9)
	assert.Len(t, e.Bounds, 1)
	assert.Equal(t, domain.CountPoint{Cases: 9, Deaths: 2}, e.Counts["2020-03-05"])
	assert.True(t, e.Complete())

	assert.Equal(t, "2020-03-01", tbl.MinDate())
	assert.Equal(t, "2020-03-05", tbl.MaxDate())
	assert.Equal(t, []string{"06037", "48411"}, tbl.Keys())
}

// Feeding the three passes in any of the 3! orderings must produce an
// identical final table.
func TestMergePasses_OrderIndependent(t *testing.T) {
	passes := map[string]func(*Table){
		"population": func(tbl *Table) { tbl.AddPopulation(testPopulation()) },
		"bounds":     func(tbl *Table) { tbl.AddBounds(testBounds()) },
		"counts":     func(tbl *Table) { tbl.AddCounts(testCounts()) },
	}
	orderings := [][]string{
		{"population", "bounds", "counts"},
		{"population", "counts", "bounds"},
		{"bounds", "population", "counts"},
		{"bounds", "counts", "population"},
		{"counts", "population", "bounds"},
		{"counts", "bounds", "population"},
	}

	reference := New(nil)
	for _, name := range orderings[0] {
		passes[name](reference)
	}

	for _, order := range orderings[1:] {
		tbl := New(nil)
		for _, name := range order {
			passes[name](tbl)
		}

		require.Equal(t, reference.Len(), tbl.Len(), "ordering %v", order)
		for _, key := range reference.Keys() {
			if diff := cmp.Diff(reference.Get(key), tbl.Get(key)); diff != "" {
				t.Errorf("ordering %v, entry %s mismatch (-want +got):\n%s", order, key, diff)
			}
		}
		assert.Equal(t, reference.MinDate(), tbl.MinDate())
		assert.Equal(t, reference.MaxDate(), tbl.MaxDate())
	}
}

func TestAddPopulation_SkipsMalformedAndOverwrites(t *testing.T) {
	tbl := New(nil)

	skipped := tbl.AddPopulation([]domain.PopulationRow{
		{StateFIPS: 0, CountyFIPS: 1, Name: "no state code", Population: 10},
		{StateFIPS: 48, CountyFIPS: 411, Name: "San Saba", StateName: "Texas", Population: -5},
		{StateFIPS: 48, CountyFIPS: 411, Name: "San Saba", StateName: "Texas", Population: 7000},
	})
	assert.Equal(t, 2, skipped)
	require.Equal(t, 1, tbl.Len())

	// Last write wins on a repeated key.
	tbl.AddPopulation([]domain.PopulationRow{
		{StateFIPS: 48, CountyFIPS: 411, Name: "San Saba", StateName: "Texas", Population: 8000},
	})
	assert.Equal(t, 8000.0, tbl.Get("48411").Population)
}

func TestAddBounds_AccumulatesAcrossFeatures(t *testing.T) {
	tbl := New(nil)

	ring1 := domain.Polygon{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 1}, {Lat: 2, Lon: 2}}
	ring2 := domain.Polygon{{Lat: 5, Lon: 5}, {Lat: 6, Lon: 5}, {Lat: 6, Lon: 6}}

	skipped := tbl.AddBounds([]domain.BoundaryFeature{
		{RegionID: "48411", AreaSqMeters: domain.SqMetersPerSqMile, Polygons: []domain.Polygon{ring1}},
		{RegionID: "48411", AreaSqMeters: 0.5 * domain.SqMetersPerSqMile, Polygons: []domain.Polygon{ring2}},
		{RegionID: "", AreaSqMeters: 1, Polygons: []domain.Polygon{ring1}},
		{RegionID: "48001", AreaSqMeters: 1, Polygons: nil},
	})
	assert.Equal(t, 2, skipped)

	e := tbl.Get("48411")
	require.NotNil(t, e)
	assert.InDelta(t, 1.5, e.AreaSqMi, 1e-9)
	assert.Equal(t, []domain.Polygon{ring1, ring2}, e.Bounds)
}

func TestAddCounts_SkipsMalformed(t *testing.T) {
	tbl := New(nil)

	skipped := tbl.AddCounts([]domain.CaseRow{
		{Date: "2020-03-01", County: "San Saba", State: "Texas", FIPS: "48411", Cases: 5, Deaths: 1},
		{Date: "not-a-date", County: "San Saba", State: "Texas", FIPS: "48411", Cases: 6, Deaths: 1},
		{Date: "2020-03-02", County: "Unknown", State: "Texas", FIPS: "", Cases: 6, Deaths: 1},
		{Date: "2020-03-02", County: "San Saba", State: "Texas", FIPS: "48411", Cases: -6, Deaths: 1},
	})
	assert.Equal(t, 3, skipped)

	e := tbl.Get("48411")
	require.NotNil(t, e)
	assert.Len(t, e.Counts, 1)
	assert.Equal(t, "2020-03-01", tbl.MinDate())
	assert.Equal(t, "2020-03-01", tbl.MaxDate())
}

func TestAddCounts_CreatesEntryWithFeedLabels(t *testing.T) {
	tbl := New(nil)

	tbl.AddCounts([]domain.CaseRow{
		{Date: "2020-03-01", County: "San Saba", State: "Texas", FIPS: "48411", Cases: 5, Deaths: 1},
	})

	e := tbl.Get("48411")
	require.NotNil(t, e)
	assert.Equal(t, "San Saba", e.Name)
	assert.Equal(t, "Texas", e.ParentRegion)
	assert.False(t, e.Complete())

	// Labels from the population feed take precedence once it lands.
	tbl.AddPopulation([]domain.PopulationRow{
		{StateFIPS: 48, CountyFIPS: 411, Name: "San Saba County", StateName: "Texas", Population: 8000},
	})
	assert.Equal(t, "San Saba County", tbl.Get("48411").Name)
}
