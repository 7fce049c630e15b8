package domain

import (
	"fmt"
	"sort"
)

// ThresholdMode selects which side of a threshold counts as a hit.
type ThresholdMode string

const (
	ThresholdAbove ThresholdMode = "above" // strictly greater than the threshold
	ThresholdBelow ThresholdMode = "below" // strictly less than the threshold
)

// ParseThresholdMode validates a mode string.
func ParseThresholdMode(s string) (ThresholdMode, error) {
	switch ThresholdMode(s) {
	case ThresholdAbove, ThresholdBelow:
		return ThresholdMode(s), nil
	default:
		return "", fmt.Errorf("invalid threshold mode %q: want above or below", s)
	}
}

// ThresholdDaysSeries counts, per year, the days crossing a temperature
// threshold. The x/y shape matches the published threshold-day datasets.
type ThresholdDaysSeries struct {
	Metric    MetricKey     `json:"metric"`
	Threshold float64       `json:"threshold"`
	Mode      ThresholdMode `json:"mode"`
	X         []int         `json:"x"` // years, ascending
	Y         []int         `json:"y"` // day counts per year
}

// CountThresholdDays counts the days per year on which metric is strictly
// above (or below) threshold. Only years that appear in the input show up
// in the series, sorted ascending; a present year whose hits are zero still
// gets a zero entry. Records missing the metric never count.
func CountThresholdDays(records []TemperatureRecord, metric MetricKey, threshold float64, mode ThresholdMode) ThresholdDaysSeries {
	counts := make(map[int]int)
	for _, rec := range records {
		if rec.Date.IsZero() {
			continue
		}
		year := rec.Year()
		if _, seen := counts[year]; !seen {
			counts[year] = 0
		}
		v, ok := rec.Values.Value(metric)
		if !ok {
			continue
		}
		if (mode == ThresholdAbove && v > threshold) || (mode == ThresholdBelow && v < threshold) {
			counts[year]++
		}
	}

	series := ThresholdDaysSeries{Metric: metric, Threshold: threshold, Mode: mode}
	years := make([]int, 0, len(counts))
	for y := range counts {
		years = append(years, y)
	}
	sort.Ints(years)
	for _, y := range years {
		series.X = append(series.X, y)
		series.Y = append(series.Y, counts[y])
	}
	return series
}
