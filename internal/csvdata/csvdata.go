// Package csvdata reads and writes the published CSV datasets.
//
// Three shapes exist, all header-first:
//
//	date,<metrics...>        per-station daily or rolling-average series
//	station_id,<metrics...>  one calendar day across stations
//	station_id,station_name,lat,lon[,elevation]  the station catalogue
//
// Metric columns must come from the closed set in the domain package.
// Dates appear either as ISO (2006-01-02) or compact (20060102) strings
// depending on the producing job. An empty or unparsable numeric cell means
// the value is missing; it never becomes zero or NaN. Rows whose key field
// (date, station id) is malformed are skipped; a payload where nothing
// parses at all is an error naming its subject.
package csvdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/halbgrad/climate-anomaly-service/internal/domain"
)

// ErrHeaderMismatch reports a payload whose header row does not match the
// expected column set.
var ErrHeaderMismatch = errors.New("unexpected CSV header")

// ErrNoRows reports a payload in which not a single data row parsed.
var ErrNoRows = errors.New("no data found")

const (
	isoDateLayout     = "2006-01-02"
	compactDateLayout = "20060102"
)

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(isoDateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(compactDateLayout, s)
}

// parseMetricHeader validates the metric columns following the key column
// and returns them in header order.
func parseMetricHeader(cols []string, subject string) ([]domain.MetricKey, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("%s: %w: no metric columns", subject, ErrHeaderMismatch)
	}
	keys := make([]domain.MetricKey, 0, len(cols))
	for _, col := range cols {
		key := domain.MetricKey(col)
		if !key.IsKnown() {
			return nil, fmt.Errorf("%s: %w: unknown metric column %q, known metrics are %v",
				subject, ErrHeaderMismatch, col, domain.KnownMetrics)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// rowMetrics collects present values from the cells following the key
// column. Empty and unparsable cells are absent.
func rowMetrics(row []string, keys []domain.MetricKey) domain.Metrics {
	values := make(domain.Metrics, len(keys))
	for i, key := range keys {
		cell := ""
		if i+1 < len(row) {
			cell = row[i+1]
		}
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			continue
		}
		values[key] = v
	}
	return values
}

// ParseSeries parses a date-keyed series payload. The station identifier is
// only used to build descriptive errors.
func ParseSeries(r io.Reader, station string) ([]domain.TemperatureRecord, error) {
	subject := fmt.Sprintf("station %s", station)

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: reading header: %w", subject, err)
	}
	if len(header) < 2 || header[0] != "date" {
		return nil, fmt.Errorf("%s: %w: got %v, want a date column followed by metric columns",
			subject, ErrHeaderMismatch, header)
	}
	keys, err := parseMetricHeader(header[1:], subject)
	if err != nil {
		return nil, err
	}

	var records []domain.TemperatureRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: reading rows: %w", subject, err)
		}
		if len(row) == 0 || row[0] == "" {
			continue
		}
		date, err := parseDate(row[0])
		if err != nil {
			continue
		}
		records = append(records, domain.TemperatureRecord{Date: date, Values: rowMetrics(row, keys)})
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", subject, ErrNoRows)
	}
	return records, nil
}

// ParseStationDay parses a station-keyed payload holding one calendar day
// across stations. The day is only used to build descriptive errors.
func ParseStationDay(r io.Reader, day string) ([]domain.StationReading, error) {
	subject := fmt.Sprintf("day %s", day)

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: reading header: %w", subject, err)
	}
	if len(header) < 2 || header[0] != "station_id" {
		return nil, fmt.Errorf("%s: %w: got %v, want a station_id column followed by metric columns",
			subject, ErrHeaderMismatch, header)
	}
	keys, err := parseMetricHeader(header[1:], subject)
	if err != nil {
		return nil, err
	}

	var readings []domain.StationReading
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: reading rows: %w", subject, err)
		}
		if len(row) == 0 || row[0] == "" {
			continue
		}
		readings = append(readings, domain.StationReading{StationID: row[0], Values: rowMetrics(row, keys)})
	}
	if len(readings) == 0 {
		return nil, fmt.Errorf("%s: %w", subject, ErrNoRows)
	}
	return readings, nil
}

// ParseStationIndex parses the station catalogue. Rows with unparsable
// coordinates are skipped; elevation is optional.
func ParseStationIndex(r io.Reader) ([]domain.Station, error) {
	const subject = "station index"

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: reading header: %w", subject, err)
	}
	if len(header) < 4 || header[0] != "station_id" || header[1] != "station_name" ||
		header[2] != "lat" || header[3] != "lon" {
		return nil, fmt.Errorf("%s: %w: got %v, want station_id,station_name,lat,lon[,elevation]",
			subject, ErrHeaderMismatch, header)
	}

	var stations []domain.Station
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: reading rows: %w", subject, err)
		}
		if len(row) < 4 || row[0] == "" {
			continue
		}
		lat, latErr := strconv.ParseFloat(row[2], 64)
		lon, lonErr := strconv.ParseFloat(row[3], 64)
		if latErr != nil || lonErr != nil {
			continue
		}
		st := domain.Station{ID: row[0], Name: row[1], Lat: lat, Lon: lon}
		if len(row) > 4 && row[4] != "" {
			if elev, err := strconv.ParseFloat(row[4], 64); err == nil {
				st.Elevation = elev
			}
		}
		stations = append(stations, st)
	}
	if len(stations) == 0 {
		return nil, fmt.Errorf("%s: %w", subject, ErrNoRows)
	}
	return stations, nil
}
