package domain

import (
	"fmt"

	"github.com/jonboulle/clockwork"
)

// leapAnchorYear anchors "02-29" targets when the clock's year has no
// February 29.
const leapAnchorYear = 2020

// Partition is the result of splitting a record set by calendar position:
// exact matches with the target month-day versus records on one of the
// surrounding window days. Records outside the window or the year range do
// not appear at all.
type Partition struct {
	PrimaryDays     []WindowedRecord
	SurroundingDays []WindowedRecord
}

// PartitionWindow classifies records against a target month-day and a
// window of ±radius days around it, keeping only records whose year falls
// in years (a nil bound leaves that side open).
//
// The window's member days are computed by applying signed day offsets to
// the target anchored in the clock's current year, so membership wraps
// correctly across month and year boundaries: target 01-02 with radius 7
// includes 12-26 through 12-31. Records with a zero date are skipped.
// Every record lands in at most one of primary, surrounding, or excluded.
//
// The scan is a single pass; cost is O(len(records) + radius).
func PartitionWindow(records []TemperatureRecord, target MonthDay, radius int, years YearRange, clock clockwork.Clock) (Partition, error) {
	if radius < 0 {
		return Partition{}, fmt.Errorf("window radius must not be negative, got %d", radius)
	}
	if _, err := ParseMonthDay(string(target)); err != nil {
		return Partition{}, err
	}

	anchorYear := clock.Now().UTC().Year()
	if target == "02-29" && !IsLeapYear(anchorYear) {
		anchorYear = leapAnchorYear
	}
	anchor := target.InYear(anchorYear)

	window := make(map[MonthDay]struct{}, 2*radius+1)
	for off := -radius; off <= radius; off++ {
		window[MonthDayOf(anchor.AddDate(0, 0, off))] = struct{}{}
	}

	var p Partition
	for _, rec := range records {
		if rec.Date.IsZero() {
			continue
		}
		if !years.Contains(rec.Year()) {
			continue
		}
		md := rec.MonthDay()
		if md == target {
			p.PrimaryDays = append(p.PrimaryDays, WindowedRecord{TemperatureRecord: rec, IsPrimaryDay: true})
			continue
		}
		if _, ok := window[md]; ok {
			p.SurroundingDays = append(p.SurroundingDays, WindowedRecord{TemperatureRecord: rec})
		}
	}
	return p, nil
}
