package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/halbgrad/climate-anomaly-service/internal/csvdata"
	"github.com/halbgrad/climate-anomaly-service/internal/domain"
)

// AssetWriter lays out the published CSV tree under one root directory,
// using the exact paths the API's asset client fetches.
type AssetWriter struct {
	// OutDir is the root of the published tree.
	OutDir string

	// RollingRadius is the half-width of the centered window used for the
	// smoothed per-station series.
	RollingRadius int
}

// WriteStationSeries writes the raw and rolling-mean series of one station.
func (aw *AssetWriter) WriteStationSeries(stationID string, records []domain.TemperatureRecord) error {
	daily := make([]domain.TemperatureRecord, len(records))
	copy(daily, records)
	sort.Slice(daily, func(i, k int) bool { return daily[i].Date.Before(daily[k].Date) })

	err := aw.writeFile(filepath.Join("data", "daily_by_station", stationID+".csv"), func(w io.Writer) error {
		return csvdata.WriteSeries(w, daily, domain.KnownMetrics)
	})
	if err != nil {
		return err
	}

	smoothed := domain.RollingMean(records, aw.RollingRadius)
	return aw.writeFile(filepath.Join("data", "rolling_by_station", stationID+".csv"), func(w io.Writer) error {
		return csvdata.WriteSeries(w, smoothed, domain.KnownMetrics)
	})
}

// WriteDays writes one station-keyed file per calendar day.
func (aw *AssetWriter) WriteDays(dayValues map[domain.MonthDay][]domain.StationReading) error {
	for md, readings := range dayValues {
		sort.Slice(readings, func(i, k int) bool { return readings[i].StationID < readings[k].StationID })

		name := strings.Replace(md.String(), "-", "_", 1) + ".csv"
		err := aw.writeFile(filepath.Join("data", "day_of_year", name), func(w io.Writer) error {
			return csvdata.WriteStationDay(w, readings, domain.KnownMetrics)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteIndex writes the station catalogue.
func (aw *AssetWriter) WriteIndex(stations []domain.Station) error {
	return aw.writeFile(filepath.Join("station_data", "stations.csv"), func(w io.Writer) error {
		return csvdata.WriteStationIndex(w, stations)
	})
}

// WriteRaw writes one arbitrary asset, for payloads that are not CSV.
func (aw *AssetWriter) WriteRaw(relPath string, blob []byte) error {
	return aw.writeFile(filepath.FromSlash(relPath), func(w io.Writer) error {
		_, err := w.Write(blob)
		return err
	})
}

func (aw *AssetWriter) writeFile(relPath string, write func(io.Writer) error) error {
	path := filepath.Join(aw.OutDir, relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// AccumulateDayValues merges one station's per-calendar-day means into the
// day-keyed asset map feeding WriteDays.
func AccumulateDayValues(dayValues map[domain.MonthDay][]domain.StationReading, stationID string, records []domain.TemperatureRecord) {
	for _, rec := range domain.MeanOverYears(records, domain.YearRange{}) {
		dayValues[rec.MonthDay()] = append(dayValues[rec.MonthDay()], domain.StationReading{
			StationID: stationID,
			Values:    rec.Values,
		})
	}
}
