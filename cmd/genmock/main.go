// Command genmock writes a synthetic, internally consistent set of the three
// feed snapshots (population CSV, boundary GeoJSON, case-count CSV) so the
// service and the evaluate command can be exercised without network access.
//
// Output is deterministic for a given -seed, which keeps fixtures diffable.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock -counties 25 -days 30 -start 2020-03-01
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/outbreak-map-service/internal/dateutil"
)

type county struct {
	stateFIPS  int
	countyFIPS int
	name       string
	stateName  string
	population int
	areaSqM    float64
	baseLat    float64
	baseLon    float64
}

func main() {
	outDir := flag.String("out", "data/mock", "output directory")
	counties := flag.Int("counties", 25, "number of synthetic counties")
	days := flag.Int("days", 30, "number of reporting days")
	start := flag.String("start", "2020-03-01", "first reporting date (ISO)")
	seed := flag.Int64("seed", 1, "PRNG seed")
	flag.Parse()

	if !dateutil.Valid(*start) {
		fmt.Fprintf(os.Stderr, "invalid -start date %q\n", *start)
		os.Exit(2)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*seed))
	set := makeCounties(rng, *counties)

	if err := writePopulation(filepath.Join(*outDir, "population.csv"), set); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := writeBoundaries(filepath.Join(*outDir, "counties.geojson"), set); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := writeCases(filepath.Join(*outDir, "cases.csv"), set, rng, *start, *days); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("wrote %d counties, %d days to %s\n", len(set), *days, *outDir)
}

func makeCounties(rng *rand.Rand, n int) []county {
	states := []struct {
		fips int
		name string
	}{
		{48, "Texas"}, {6, "California"}, {36, "New York"}, {53, "Washington"}, {12, "Florida"},
	}

	set := make([]county, 0, n)
	for i := 0; i < n; i++ {
		st := states[i%len(states)]
		set = append(set, county{
			stateFIPS:  st.fips,
			countyFIPS: i + 1,
			name:       fmt.Sprintf("County %03d", i+1),
			stateName:  st.name,
			population: 5000 + rng.Intn(2000000),
			areaSqM:    (50 + 4000*rng.Float64()) * 2589988.110336,
			baseLat:    28 + 18*rng.Float64(),
			baseLon:    -120 + 45*rng.Float64(),
		})
	}
	return set
}

func writePopulation(path string, set []county) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"SUMLEV", "STATE", "COUNTY", "STNAME", "CTYNAME", "POPESTIMATE2019"}); err != nil {
		return err
	}
	for _, c := range set {
		err := w.Write([]string{
			"050",
			strconv.Itoa(c.stateFIPS),
			strconv.Itoa(c.countyFIPS),
			c.stateName,
			c.name,
			strconv.Itoa(c.population),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func writeBoundaries(path string, set []county) error {
	type geometry struct {
		Type        string        `json:"type"`
		Coordinates [][][]float64 `json:"coordinates"`
	}
	type properties struct {
		GeoID     string  `json:"GEOID"`
		ALand     float64 `json:"ALAND"`
		StateName string  `json:"STATE_NAME"`
	}
	type feature struct {
		Type       string     `json:"type"`
		Properties properties `json:"properties"`
		Geometry   geometry   `json:"geometry"`
	}
	type collection struct {
		Type     string    `json:"type"`
		Features []feature `json:"features"`
	}

	fc := collection{Type: "FeatureCollection"}
	for _, c := range set {
		// A small square around the county's base point is plenty for a
		// mock map pin.
		ring := [][]float64{
			{c.baseLon, c.baseLat},
			{c.baseLon + 0.5, c.baseLat},
			{c.baseLon + 0.5, c.baseLat + 0.5},
			{c.baseLon, c.baseLat + 0.5},
			{c.baseLon, c.baseLat},
		}
		fc.Features = append(fc.Features, feature{
			Type: "Feature",
			Properties: properties{
				GeoID:     fmt.Sprintf("%02d%03d", c.stateFIPS, c.countyFIPS),
				ALand:     c.areaSqM,
				StateName: c.stateName,
			},
			Geometry: geometry{Type: "Polygon", Coordinates: [][][]float64{ring}},
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(fc)
}

func writeCases(path string, set []county, rng *rand.Rand, start string, days int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"date", "county", "state", "fips", "cases", "deaths"}); err != nil {
		return err
	}

	for _, c := range set {
		cases, deaths := 0, 0
		date := start
		for d := 0; d < days; d++ {
			cases += rng.Intn(50)
			if cases > 0 {
				deaths += rng.Intn(3)
			}
			// Sparse reporting: some days simply have no row, which is what
			// the evaluator's date backfill exists for.
			if rng.Float64() < 0.8 {
				err := w.Write([]string{
					date,
					c.name,
					c.stateName,
					fmt.Sprintf("%02d%03d", c.stateFIPS, c.countyFIPS),
					strconv.Itoa(cases),
					strconv.Itoa(deaths),
				})
				if err != nil {
					return err
				}
			}
			date = dateutil.NextDay(date)
		}
	}
	return nil
}
