package csvdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/halbgrad/climate-anomaly-service/internal/domain"
)

func formatValue(values domain.Metrics, key domain.MetricKey) string {
	v, ok := values.Value(key)
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteSeries writes a date-keyed series with ISO dates, one column per
// requested metric, missing values as empty cells. The output round-trips
// through ParseSeries.
func WriteSeries(w io.Writer, records []domain.TemperatureRecord, metrics []domain.MetricKey) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(metrics)+1)
	header = append(header, "date")
	for _, key := range metrics {
		header = append(header, string(key))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing series header: %w", err)
	}

	row := make([]string, len(header))
	for _, rec := range records {
		row[0] = rec.Date.Format(isoDateLayout)
		for i, key := range metrics {
			row[i+1] = formatValue(rec.Values, key)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing series row %s: %w", row[0], err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteStationDay writes a station-keyed single-day payload that
// round-trips through ParseStationDay.
func WriteStationDay(w io.Writer, readings []domain.StationReading, metrics []domain.MetricKey) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(metrics)+1)
	header = append(header, "station_id")
	for _, key := range metrics {
		header = append(header, string(key))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing day header: %w", err)
	}

	row := make([]string, len(header))
	for _, reading := range readings {
		row[0] = reading.StationID
		for i, key := range metrics {
			row[i+1] = formatValue(reading.Values, key)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing day row %s: %w", reading.StationID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteStationIndex writes the station catalogue.
func WriteStationIndex(w io.Writer, stations []domain.Station) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"station_id", "station_name", "lat", "lon", "elevation"}); err != nil {
		return fmt.Errorf("writing index header: %w", err)
	}
	for _, st := range stations {
		row := []string{
			st.ID,
			st.Name,
			strconv.FormatFloat(st.Lat, 'f', -1, 64),
			strconv.FormatFloat(st.Lon, 'f', -1, 64),
			strconv.FormatFloat(st.Elevation, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing index row %s: %w", st.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
