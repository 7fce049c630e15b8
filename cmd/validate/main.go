// Command validate performs integrity checks across a published climate
// asset tree: the station index, the per-station daily and smoothed series,
// the day-of-year tables, and the district topology. It verifies
// parseability, value plausibility, recomputation correctness, and
// cross-asset consistency.
//
// Usage:
//
//	go run ./cmd/validate -assets public -rolling-radius 2
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paulmach/orb"

	"github.com/halbgrad/climate-anomaly-service/internal/csvdata"
	"github.com/halbgrad/climate-anomaly-service/internal/domain"
	"github.com/halbgrad/climate-anomaly-service/internal/dwd"
	"github.com/halbgrad/climate-anomaly-service/internal/geo"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	assetsDir := flag.String("assets", "", "root of the published asset tree")
	radius := flag.Int("rolling-radius", 2, "window radius the ingestion job smoothed with")
	topology := flag.String("topology", "geo/districts.topo.json", "district topology path relative to -assets, empty skips the geo phase")
	flag.Parse()

	if *assetsDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*assetsDir, *radius, *topology); code != 0 {
		os.Exit(code)
	}
}

func run(assetsDir string, radius int, topologyPath string) int {
	fmt.Println("=== Climate Asset Integrity Validation ===")
	fmt.Println()

	stations, err := loadStations(assetsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load station index: %v\n", err)
		return 1
	}

	// ── Run validation phases ──
	p1 := validateStationIndex(stations)
	p2, series := validateDailySeries(assetsDir, stations)
	p3 := validateSmoothedSeries(assetsDir, series, radius)
	p4, dayTables := validateDayTables(assetsDir, series)
	p5, districts := validateTopology(assetsDir, topologyPath, stations)

	phases := []*phase{p1, p2, p3, p4, p5}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Assets: %d stations, %d daily rows, %d day tables, %d districts\n",
		len(stations), countRows(series), dayTables, districts)

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadStations(assetsDir string) ([]domain.Station, error) {
	f, err := os.Open(filepath.Join(assetsDir, "station_data", "stations.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return csvdata.ParseStationIndex(f)
}

func loadSeries(path, station string) ([]domain.TemperatureRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return csvdata.ParseSeries(f, station)
}

func countRows(series map[string][]domain.TemperatureRecord) int {
	n := 0
	for _, records := range series {
		n += len(records)
	}
	return n
}

// ── Phase 1: Station Index ──
// Validates the catalogue itself: normalized unique ids, names present,
// coordinates on the globe.

func validateStationIndex(stations []domain.Station) *phase {
	p := &phase{name: "Phase 1: Station Index (stations.csv)"}

	seen := map[string]bool{}
	for i, st := range stations {
		if st.ID == "" {
			p.errorf("row %d: empty station id", i+1)
			continue
		}
		if norm := dwd.NormalizeStationID(st.ID); norm != st.ID {
			p.errorf("station %s: id not normalized (want %s)", st.ID, norm)
		}
		if seen[st.ID] {
			p.errorf("station %s: duplicate id", st.ID)
		}
		seen[st.ID] = true

		if st.Name == "" {
			p.errorf("station %s: empty name", st.ID)
		}
		if st.Lat < -90 || st.Lat > 90 {
			p.errorf("station %s: latitude %g out of range", st.ID, st.Lat)
		}
		if st.Lon < -180 || st.Lon > 180 {
			p.errorf("station %s: longitude %g out of range", st.ID, st.Lon)
		}
	}
	return p
}

// ── Phase 2: Daily Series ──
// Validates every per-station series file and its pairing with the index.

func validateDailySeries(assetsDir string, stations []domain.Station) (*phase, map[string][]domain.TemperatureRecord) {
	p := &phase{name: "Phase 2: Daily Series (daily_by_station)"}
	series := make(map[string][]domain.TemperatureRecord, len(stations))

	dir := filepath.Join(assetsDir, "data", "daily_by_station")
	entries, err := os.ReadDir(dir)
	if err != nil {
		p.errorf("read series directory: %v", err)
		return p, series
	}

	indexed := map[string]bool{}
	for _, st := range stations {
		indexed[st.ID] = true
	}

	onDisk := map[string]bool{}
	for _, entry := range entries {
		id := strings.TrimSuffix(entry.Name(), ".csv")
		onDisk[id] = true
		if !indexed[id] {
			p.errorf("series %s: not in the station index", entry.Name())
		}
	}
	for _, st := range stations {
		if !onDisk[st.ID] {
			p.errorf("station %s: no daily series file", st.ID)
		}
	}

	for _, st := range stations {
		if !onDisk[st.ID] {
			continue
		}
		records, err := loadSeries(filepath.Join(dir, st.ID+".csv"), st.ID)
		if err != nil {
			p.errorf("station %s: %v", st.ID, err)
			continue
		}
		checkSeriesRows(p, st.ID, records)
		series[st.ID] = records
	}
	return p, series
}

func checkSeriesRows(p *phase, station string, records []domain.TemperatureRecord) {
	for i, rec := range records {
		date := rec.Date.Format("2006-01-02")
		if i > 0 && !records[i-1].Date.Before(rec.Date) {
			p.errorf("station %s row %d: dates not strictly ascending at %s", station, i+1, date)
		}

		for _, key := range []domain.MetricKey{domain.MetricTas, domain.MetricTasmin, domain.MetricTasmax} {
			if v, ok := rec.Values.Value(key); ok && (v < -60 || v > 60) {
				p.errorf("station %s %s: %s %g outside [-60, 60]", station, date, key, v)
			}
		}
		if v, ok := rec.Values.Value(domain.MetricHurs); ok && (v < 0 || v > 100) {
			p.errorf("station %s %s: hurs %g outside [0, 100]", station, date, v)
		}

		tas, hasTas := rec.Values.Value(domain.MetricTas)
		tasmin, hasMin := rec.Values.Value(domain.MetricTasmin)
		tasmax, hasMax := rec.Values.Value(domain.MetricTasmax)
		if hasMin && hasTas && tasmin > tas {
			p.errorf("station %s %s: tasmin %g above tas %g", station, date, tasmin, tas)
		}
		if hasTas && hasMax && tas > tasmax {
			p.errorf("station %s %s: tas %g above tasmax %g", station, date, tas, tasmax)
		}
		if hasMin && hasMax && tasmin > tasmax {
			p.errorf("station %s %s: tasmin %g above tasmax %g", station, date, tasmin, tasmax)
		}
	}
}

// ── Phase 3: Smoothed Series ──
// Re-runs the rolling mean on the daily series and compares it with the
// published smoothed files.

func validateSmoothedSeries(assetsDir string, series map[string][]domain.TemperatureRecord, radius int) *phase {
	p := &phase{name: "Phase 3: Smoothed Series (recompute)"}

	dir := filepath.Join(assetsDir, "data", "rolling_by_station")
	for _, id := range sortedKeys(series) {
		published, err := loadSeries(filepath.Join(dir, id+".csv"), id)
		if err != nil {
			p.errorf("station %s: %v", id, err)
			continue
		}

		expected := domain.RollingMean(series[id], radius)
		if len(published) != len(expected) {
			p.errorf("station %s: %d smoothed rows, expected %d", id, len(published), len(expected))
			continue
		}
		for i := range expected {
			date := expected[i].Date.Format("2006-01-02")
			if !published[i].Date.Equal(expected[i].Date) {
				p.errorf("station %s row %d: date %s, expected %s",
					id, i+1, published[i].Date.Format("2006-01-02"), date)
				continue
			}
			compareMetrics(p, fmt.Sprintf("station %s %s", id, date), published[i].Values, expected[i].Values)
		}
	}
	return p
}

// ── Phase 4: Day-of-Year Tables ──
// Re-runs the multi-year day means and checks every published table against
// them, in both directions.

func validateDayTables(assetsDir string, series map[string][]domain.TemperatureRecord) (*phase, int) {
	p := &phase{name: "Phase 4: Day-of-Year Tables (cross-check)"}

	// Expected: per month-day, the stations that have a mean for it.
	type dayMean struct {
		station string
		values  domain.Metrics
	}
	expected := map[domain.MonthDay][]dayMean{}
	for _, id := range sortedKeys(series) {
		for _, rec := range domain.MeanOverYears(series[id], domain.YearRange{}) {
			md := rec.MonthDay()
			expected[md] = append(expected[md], dayMean{station: id, values: rec.Values})
		}
	}

	dir := filepath.Join(assetsDir, "data", "day_of_year")
	entries, err := os.ReadDir(dir)
	if err != nil {
		p.errorf("read day directory: %v", err)
		return p, 0
	}

	onDisk := map[domain.MonthDay]bool{}
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), ".csv")
		md, err := domain.ParseMonthDay(strings.Replace(name, "_", "-", 1))
		if err != nil {
			p.errorf("day table %s: %v", entry.Name(), err)
			continue
		}
		onDisk[md] = true
		if _, ok := expected[md]; !ok {
			p.errorf("day table %s: no station has readings for %s", entry.Name(), md)
		}
	}

	days := make([]string, 0, len(expected))
	for md := range expected {
		days = append(days, md.String())
	}
	sort.Strings(days)

	for _, day := range days {
		md := domain.MonthDay(day)
		if !onDisk[md] {
			p.errorf("day %s: table file missing", md)
			continue
		}

		name := strings.Replace(md.String(), "-", "_", 1) + ".csv"
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			p.errorf("day %s: %v", md, err)
			continue
		}
		readings, err := csvdata.ParseStationDay(f, md.String())
		f.Close()
		if err != nil {
			p.errorf("day %s: %v", md, err)
			continue
		}

		want := expected[md]
		if len(readings) != len(want) {
			p.errorf("day %s: %d rows, expected %d", md, len(readings), len(want))
			continue
		}
		for i, reading := range readings {
			if reading.StationID != want[i].station {
				p.errorf("day %s row %d: station %s, expected %s", md, i+1, reading.StationID, want[i].station)
				continue
			}
			compareMetrics(p, fmt.Sprintf("day %s station %s", md, reading.StationID), reading.Values, want[i].values)
		}
	}
	return p, len(onDisk)
}

// ── Phase 5: District Topology ──
// Validates that the topology decodes and reports how many stations it
// covers.

func validateTopology(assetsDir, topologyPath string, stations []domain.Station) (*phase, int) {
	p := &phase{name: "Phase 5: District Topology (geo)"}
	if topologyPath == "" {
		return p, 0
	}

	doc, err := os.ReadFile(filepath.Join(assetsDir, filepath.FromSlash(topologyPath)))
	if err != nil {
		p.errorf("read topology: %v", err)
		return p, 0
	}
	fc, err := geo.DecodeTopology(doc)
	if err != nil {
		p.errorf("decode topology: %v", err)
		return p, 0
	}
	if len(fc.Features) == 0 {
		p.errorf("topology has no districts")
		return p, 0
	}

	outside := 0
	for _, st := range stations {
		if geo.Locate(fc, orb.Point{st.Lon, st.Lat}) == nil {
			outside++
		}
	}
	if outside > 0 {
		fmt.Printf("  Note: %d station(s) fall outside every district\n", outside)
	}
	return p, len(fc.Features)
}

// ── Helpers ──

func compareMetrics(p *phase, subject string, got, want domain.Metrics) {
	for _, key := range domain.KnownMetrics {
		gotV, gotOK := got.Value(key)
		wantV, wantOK := want.Value(key)
		switch {
		case gotOK && !wantOK:
			p.errorf("%s: unexpected %s %g", subject, key, gotV)
		case !gotOK && wantOK:
			p.errorf("%s: missing %s (expected %g)", subject, key, wantV)
		case gotOK && wantOK && !floatEq(gotV, wantV):
			p.errorf("%s: %s %g, expected %g", subject, key, gotV, wantV)
		}
	}
}

func sortedKeys(series map[string][]domain.TemperatureRecord) []string {
	keys := make([]string, 0, len(series))
	for id := range series {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return keys
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
