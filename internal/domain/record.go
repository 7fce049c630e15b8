package domain

import (
	"fmt"
	"time"
)

// TemperatureRecord is one day of readings at one station: a civil date
// pinned to UTC midnight plus the metrics observed that day. Records are
// immutable once built; all computation derives new values from them.
type TemperatureRecord struct {
	Date   time.Time
	Values Metrics
}

// MonthDay returns the record's calendar position.
func (r TemperatureRecord) MonthDay() MonthDay { return MonthDayOf(r.Date) }

// Year returns the record's calendar year.
func (r TemperatureRecord) Year() int { return r.Date.Year() }

// WindowedRecord tags a record with its role in a date-window partition:
// IsPrimaryDay marks an exact month-day match with the target, as opposed
// to a record that merely falls inside the ± window.
type WindowedRecord struct {
	TemperatureRecord
	IsPrimaryDay bool
}

// AnomalySeriesPoint is one year's observed value and its deviation from
// the baseline mean.
type AnomalySeriesPoint struct {
	Year    int     `json:"year"`
	Value   float64 `json:"value"`
	Anomaly float64 `json:"anomaly"`
}

// Station is one entry of the published station catalogue.
type Station struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Elevation float64 `json:"elevation,omitempty"`
}

// StationReading is a single station's values for one concrete or
// calendar day, as published in the station-keyed datasets.
type StationReading struct {
	StationID string
	Values    Metrics
}

// YearRange bounds a set of years inclusively. A nil side is unbounded.
type YearRange struct {
	From *int `json:"from,omitempty"`
	To   *int `json:"to,omitempty"`
}

// Years builds a fully bounded range.
func Years(from, to int) YearRange {
	return YearRange{From: &from, To: &to}
}

// DefaultBaseline returns the WMO 1961–1990 climate normal period.
func DefaultBaseline() YearRange { return Years(1961, 1990) }

// Contains reports whether year falls inside the range.
func (r YearRange) Contains(year int) bool {
	if r.From != nil && year < *r.From {
		return false
	}
	if r.To != nil && year > *r.To {
		return false
	}
	return true
}

func (r YearRange) String() string {
	switch {
	case r.From != nil && r.To != nil:
		return fmt.Sprintf("%d..%d", *r.From, *r.To)
	case r.From != nil:
		return fmt.Sprintf("%d..", *r.From)
	case r.To != nil:
		return fmt.Sprintf("..%d", *r.To)
	default:
		return "all years"
	}
}
