package domain

import (
	"math"
	"sort"
)

// RollingMean smooths every metric series with a centered moving average of
// width 2*radius+1, matching the published rolling-average datasets: the
// window at each row covers whatever neighbors exist, partial windows at the
// series edges still produce a value, and results are rounded to two
// decimals. A metric absent from every row of a window stays absent in the
// output row. Input order does not matter; the result is sorted by date with
// one record per input date.
//
// Year filtering belongs after smoothing, not before: trimming first would
// starve the edge windows of their neighbors.
func RollingMean(records []TemperatureRecord, radius int) []TemperatureRecord {
	if len(records) == 0 {
		return nil
	}
	sorted := make([]TemperatureRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	if radius <= 0 {
		return sorted
	}

	out := make([]TemperatureRecord, len(sorted))
	for i, rec := range sorted {
		lo := i - radius
		if lo < 0 {
			lo = 0
		}
		hi := i + radius
		if hi > len(sorted)-1 {
			hi = len(sorted) - 1
		}

		smoothed := make(Metrics, len(KnownMetrics))
		for _, key := range KnownMetrics {
			var sum float64
			var n int
			for j := lo; j <= hi; j++ {
				if v, ok := sorted[j].Values.Value(key); ok {
					sum += v
					n++
				}
			}
			if n > 0 {
				smoothed[key] = round2(sum / float64(n))
			}
		}
		out[i] = TemperatureRecord{Date: rec.Date, Values: smoothed}
	}
	return out
}

// MeanOverYears collapses a multi-year series into a single synthetic year
// of per-calendar-day means, anchored in a leap year so a Feb 29 row can
// survive. Only records whose year falls in years contribute. Values are
// rounded to two decimals; the result is sorted by calendar position.
func MeanOverYears(records []TemperatureRecord, years YearRange) []TemperatureRecord {
	type acc struct {
		sum map[MetricKey]float64
		n   map[MetricKey]int
	}
	byDay := make(map[MonthDay]*acc)
	for _, rec := range records {
		if rec.Date.IsZero() || !years.Contains(rec.Year()) {
			continue
		}
		md := rec.MonthDay()
		a := byDay[md]
		if a == nil {
			a = &acc{sum: map[MetricKey]float64{}, n: map[MetricKey]int{}}
			byDay[md] = a
		}
		for _, key := range KnownMetrics {
			if v, ok := rec.Values.Value(key); ok {
				a.sum[key] += v
				a.n[key]++
			}
		}
	}

	out := make([]TemperatureRecord, 0, len(byDay))
	for md, a := range byDay {
		values := make(Metrics, len(a.sum))
		for key, sum := range a.sum {
			values[key] = round2(sum / float64(a.n[key]))
		}
		out = append(out, TemperatureRecord{Date: md.InYear(leapAnchorYear), Values: values})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
