package evaluate_test

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/outbreak-map-service/internal/domain"
	"github.com/couchcryptid/outbreak-map-service/internal/evaluate"
	"github.com/couchcryptid/outbreak-map-service/internal/observability"
	"github.com/couchcryptid/outbreak-map-service/internal/store"
)

func testTable(t *testing.T) *store.Table {
	t.Helper()
	tbl := store.New(nil)
	tbl.AddPopulation([]domain.PopulationRow{
		{StateFIPS: 48, CountyFIPS: 411, Name: "San Saba", StateName: "Texas", Population: 8000},
		{StateFIPS: 6, CountyFIPS: 37, Name: "Los Angeles", StateName: "California", Population: 10000000},
	})
	tbl.AddBounds([]domain.BoundaryFeature{
		{RegionID: "48411", AreaSqMeters: domain.SqMetersPerSqMile,
			Polygons: []domain.Polygon{{{Lat: 31, Lon: -98.4}, {Lat: 31.1, Lon: -98.4}, {Lat: 31.1, Lon: -98.5}}}},
	})
	tbl.AddCounts([]domain.CaseRow{
		{Date: "2020-03-01", County: "San Saba", State: "Texas", FIPS: "48411", Cases: 5, Deaths: 1},
		{Date: "2020-03-03", County: "Los Angeles", State: "California", FIPS: "06037", Cases: 60, Deaths: 1},
	})
	return tbl
}

func newService(t *testing.T) *evaluate.Service {
	t.Helper()
	return evaluate.New(testTable(t), time.Minute, slog.Default(), observability.NewMetricsForTesting())
}

func TestEvaluateAll_CompleteEntriesOnly(t *testing.T) {
	svc := newService(t)

	values, err := svc.EvaluateAll(domain.Formula{
		Numerator:   domain.NumeratorCases,
		Denominator: domain.DenominatorTotal,
		Mode:        domain.ModeOn,
		Date:        "2020-03-05",
	})
	require.NoError(t, err)

	// Los Angeles has counts but no bounds: incomplete, excluded.
	require.Len(t, values, 1)
	assert.Equal(t, "48411", values[0].Key)
	assert.Equal(t, "San Saba, Texas", values[0].DisplayName)
	assert.Equal(t, 5.0, values[0].Value)
	assert.Equal(t, "5", values[0].Formatted)
}

func TestEvaluateAll_InvalidFormula(t *testing.T) {
	svc := newService(t)

	_, err := svc.EvaluateAll(domain.Formula{
		Numerator:   domain.Numerator("vibes"),
		Denominator: domain.DenominatorTotal,
		Mode:        domain.ModeOn,
		Date:        "2020-03-05",
	})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestEvaluateAll_CachesPerFormula(t *testing.T) {
	svc := newService(t)
	f := domain.Formula{
		Numerator:   domain.NumeratorCases,
		Denominator: domain.DenominatorPer1000,
		Mode:        domain.ModeOn,
		Date:        "2020-03-05",
	}

	first, err := svc.EvaluateAll(f)
	require.NoError(t, err)
	second, err := svc.EvaluateAll(f)
	require.NoError(t, err)

	// Cached result is the same slice, not a recomputation.
	assert.Equal(t, first, second)
}

func TestEvaluateAll_ConcurrentIdenticalRequests(t *testing.T) {
	svc := newService(t)
	f := domain.Formula{
		Numerator:   domain.NumeratorNewCases,
		Denominator: domain.DenominatorTotal,
		Mode:        domain.ModeAvg,
		Date:        "2020-03-10",
		RefDate:     "2020-03-01",
	}

	const goroutines = 16
	results := make([][]evaluate.RegionValue, goroutines)
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(g int) {
			defer wg.Done()
			values, err := svc.EvaluateAll(f)
			assert.NoError(t, err)
			results[g] = values
		}(g)
	}
	wg.Wait()

	for g := 1; g < goroutines; g++ {
		assert.Equal(t, results[0], results[g])
	}
}
