package dwd

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/halbgrad/climate-anomaly-service/internal/domain"
)

const (
	dailyDateLayout     = "20060102"
	tenMinuteDateLayout = "200601021504"
)

// ErrProductHeader is returned when a product file does not carry the
// columns this package needs.
var ErrProductHeader = errors.New("unrecognized product header")

// ErrNoObservations is returned when a product file parses but contains no
// usable data rows.
var ErrNoObservations = errors.New("product contains no observations")

// TenMinuteObservation is one row of the ten-minute air-temperature
// product.
type TenMinuteObservation struct {
	StationID string
	Time      time.Time
	Values    domain.Metrics
}

// ParseProduct reads a daily climate product (produkt_klima_tag_*.txt) and
// returns the station id plus one TemperatureRecord per data row. Rows with
// unparsable dates are skipped; cells holding the -999 sentinel or garbage
// become absent metrics.
func ParseProduct(r io.Reader) (string, []domain.TemperatureRecord, error) {
	header, rows, err := readProduct(r)
	if err != nil {
		return "", nil, err
	}

	var stationID string
	records := make([]domain.TemperatureRecord, 0, len(rows))
	for _, row := range rows {
		date, ok := rowDate(header, row, dailyDateLayout)
		if !ok {
			continue
		}
		if stationID == "" {
			stationID = NormalizeStationID(rowCell(header, row, "STATIONS_ID"))
		}
		records = append(records, domain.TemperatureRecord{
			Date:   date,
			Values: rowValues(header, row, dailyColumns),
		})
	}
	if len(records) == 0 {
		return "", nil, ErrNoObservations
	}
	return stationID, records, nil
}

// ParseTenMinuteProduct reads a ten-minute air-temperature product
// (produkt_zehn_now_tu_*.txt) into observations ordered as they appear in
// the file.
func ParseTenMinuteProduct(r io.Reader) ([]TenMinuteObservation, error) {
	header, rows, err := readProduct(r)
	if err != nil {
		return nil, err
	}

	obs := make([]TenMinuteObservation, 0, len(rows))
	for _, row := range rows {
		ts, ok := rowDate(header, row, tenMinuteDateLayout)
		if !ok {
			continue
		}
		obs = append(obs, TenMinuteObservation{
			StationID: NormalizeStationID(rowCell(header, row, "STATIONS_ID")),
			Time:      ts,
			Values:    rowValues(header, row, tenMinuteColumns),
		})
	}
	if len(obs) == 0 {
		return nil, ErrNoObservations
	}
	return obs, nil
}

// readProduct splits a Latin-1 semicolon product into a header index and
// trimmed data rows.
func readProduct(r io.Reader) (map[string]int, [][]string, error) {
	cr := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(r))
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	raw, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read product: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil, ErrProductHeader
	}

	header := make(map[string]int, len(raw[0]))
	for i, name := range raw[0] {
		header[strings.TrimSpace(name)] = i
	}
	if _, ok := header["MESS_DATUM"]; !ok {
		return nil, nil, fmt.Errorf("%w: missing MESS_DATUM column", ErrProductHeader)
	}
	if _, ok := header["STATIONS_ID"]; !ok {
		return nil, nil, fmt.Errorf("%w: missing STATIONS_ID column", ErrProductHeader)
	}
	return header, raw[1:], nil
}

func rowCell(header map[string]int, row []string, column string) string {
	idx, ok := header[column]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func rowDate(header map[string]int, row []string, layout string) (time.Time, bool) {
	cell := rowCell(header, row, "MESS_DATUM")
	date, err := time.Parse(layout, cell)
	if err != nil {
		return time.Time{}, false
	}
	return date.UTC(), true
}

// rowValues pulls the mapped columns out of one row. Sentinel and
// unparsable cells stay absent.
func rowValues(header map[string]int, row []string, columns map[string]domain.MetricKey) domain.Metrics {
	values := make(domain.Metrics, len(columns))
	for column, key := range columns {
		cell := rowCell(header, row, column)
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil || v == missingSentinel {
			continue
		}
		values[key] = v
	}
	return values
}
