// Command genfixtures generates a synthetic asset tree for dev and demo
// setups: per-station daily series with a seasonal cycle, a linear warming
// trend, and seeded noise, plus the derived day-of-year files, the station
// index, and a two-district demo topology. It writes through the real asset
// writers so the output matches what the ingestion job publishes, and prints
// the anomaly stats of the first station so test assertions can be checked
// against real computation.
//
// Usage:
//
//	go run ./cmd/genfixtures -out fixtures -from 1961 -to 2023
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/halbgrad/climate-anomaly-service/internal/domain"
	"github.com/halbgrad/climate-anomaly-service/internal/ingest"
)

// stationSpec shapes one synthetic station's climate.
type stationSpec struct {
	id        string
	name      string
	lat       float64
	lon       float64
	elevation float64
	baseTemp  float64 // annual mean, °C
	amplitude float64 // seasonal swing around the mean, °C
	trend     float64 // warming, °C per year
}

var specs = []stationSpec{
	{"00044", "Grossenkneten", 52.9336, 8.2370, 44, 9.5, 8.0, 0.025},
	{"00433", "Berlin-Tempelhof", 52.4675, 13.4021, 48, 10.0, 9.0, 0.030},
	{"05705", "Wuerzburg", 49.7703, 9.9577, 268, 9.8, 8.8, 0.028},
	{"05792", "Zugspitze", 47.4211, 10.9847, 2964, -4.5, 7.0, 0.040},
}

// demoTopology splits a Germany-sized box into a west and an east district
// sharing one border arc, in the layout the heatmap endpoint consumes.
const demoTopology = `{
  "type": "Topology",
  "objects": {
    "districts": {
      "type": "GeometryCollection",
      "geometries": [
        {"type": "Polygon", "arcs": [[0, 1]], "id": "DE-W", "properties": {"name": "West"}},
        {"type": "Polygon", "arcs": [[2, -1]], "id": "DE-E", "properties": {"name": "East"}}
      ]
    }
  },
  "arcs": [
    [[10.5, 47.0], [10.5, 55.5]],
    [[10.5, 55.5], [5.5, 55.5], [5.5, 47.0], [10.5, 47.0]],
    [[10.5, 47.0], [15.5, 47.0], [15.5, 55.5], [10.5, 55.5]]
  ]
}
`

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "fixtures", "output directory for the asset tree")
	stations := flag.Int("stations", len(specs), "how many synthetic stations to generate")
	fromYear := flag.Int("from", 1961, "first generated year")
	toYear := flag.Int("to", 2023, "last generated year")
	seed := flag.Int64("seed", 1, "noise seed, fixed so fixtures are reproducible")
	rollingRadius := flag.Int("rolling-radius", 2, "half-width of the rolling-mean window")
	flag.Parse()

	if *fromYear > *toYear {
		return fmt.Errorf("-from %d is after -to %d", *fromYear, *toYear)
	}
	n := *stations
	if n <= 0 || n > len(specs) {
		n = len(specs)
	}

	aw := &ingest.AssetWriter{OutDir: *out, RollingRadius: *rollingRadius}
	dayValues := make(map[domain.MonthDay][]domain.StationReading)
	index := make([]domain.Station, 0, n)
	var firstSeries []domain.TemperatureRecord

	for i, spec := range specs[:n] {
		rng := rand.New(rand.NewSource(*seed + int64(i)))
		records := syntheticSeries(rng, spec, *fromYear, *toYear)
		if i == 0 {
			firstSeries = records
		}

		if err := aw.WriteStationSeries(spec.id, records); err != nil {
			return err
		}
		ingest.AccumulateDayValues(dayValues, spec.id, records)
		index = append(index, domain.Station{
			ID:        spec.id,
			Name:      spec.name,
			Lat:       spec.lat,
			Lon:       spec.lon,
			Elevation: spec.elevation,
		})
		log.Printf("%s (%s): %d records", spec.id, spec.name, len(records))
	}

	if err := aw.WriteDays(dayValues); err != nil {
		return err
	}
	if err := aw.WriteIndex(index); err != nil {
		return err
	}
	if err := aw.WriteRaw("geo/districts.topo.json", []byte(demoTopology)); err != nil {
		return err
	}
	log.Printf("wrote asset tree: %s", *out)

	return printStats(specs[0].id, firstSeries)
}

// syntheticSeries builds one record per day: seasonal sine + linear warming
// + seeded gaussian noise, rounded like the published datasets.
func syntheticSeries(rng *rand.Rand, spec stationSpec, fromYear, toYear int) []domain.TemperatureRecord {
	start := time.Date(fromYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(toYear, time.December, 31, 0, 0, 0, 0, time.UTC)

	var records []domain.TemperatureRecord
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		// Day 105 (mid April) crosses the annual mean going up, so the
		// seasonal peak lands in mid July.
		season := spec.amplitude * math.Sin(2*math.Pi*float64(d.YearDay()-105)/365.25)
		warming := spec.trend * float64(d.Year()-fromYear)
		tas := spec.baseTemp + season + warming + rng.NormFloat64()*1.8
		spread := 4.0 + rng.Float64()*2.0
		hurs := clamp(72-season*1.5+rng.NormFloat64()*8, 20, 100)

		records = append(records, domain.TemperatureRecord{
			Date: d,
			Values: domain.Metrics{
				domain.MetricTas:    round2(tas),
				domain.MetricTasmin: round2(tas - spread),
				domain.MetricTasmax: round2(tas + spread),
				domain.MetricHurs:   round2(hurs),
			},
		})
	}
	return records
}

// printStats runs the real anomaly computation over the generated series so
// fixture-based test assertions can be copied from its output.
func printStats(stationID string, records []domain.TemperatureRecord) error {
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.July, 1, 12, 0, 0, 0, time.UTC))
	partition, err := domain.PartitionWindow(records, "06-15", 7, domain.YearRange{}, clock)
	if err != nil {
		return err
	}
	result, err := domain.ComputeAnomalies(partition, domain.MetricTas, domain.DefaultBaseline())
	if err != nil {
		return err
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Station: %s\n", stationID)
	fmt.Printf("Years on 06-15: %d\n", len(result.Series))
	fmt.Printf("Baseline mean (tas, %s): %.2f\n", result.Baseline, result.BaselineMean)
	if result.TrendPerDecade != nil {
		fmt.Printf("Trend: %+.2f per decade\n", *result.TrendPerDecade)
	}
	fmt.Printf("Surrounding points: %d\n", len(result.SurroundingSeries))
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
