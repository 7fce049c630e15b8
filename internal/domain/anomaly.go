package domain

import (
	"errors"
	"fmt"
)

// ErrInsufficientBaseline reports that no usable values fall inside the
// baseline period, so a baseline mean cannot be computed.
var ErrInsufficientBaseline = errors.New("insufficient baseline data")

// ErrNoPrimaryDay reports that a partition holds no records for the target
// day at all.
var ErrNoPrimaryDay = errors.New("no data found for target day")

// AnomalyResult is the outcome of comparing a windowed series against a
// baseline period.
type AnomalyResult struct {
	Metric            MetricKey            `json:"metric"`
	BaselineMean      float64              `json:"baseline_mean"`
	Baseline          YearRange            `json:"baseline"`
	Series            []AnomalySeriesPoint `json:"series"`
	SurroundingSeries []AnomalySeriesPoint `json:"surrounding_series,omitempty"`
	TrendPerDecade    *float64             `json:"trend_per_decade"`
}

// ComputeAnomalies derives anomalies for one metric from a window
// partition. The baseline mean is the arithmetic mean of primary-day
// values whose year falls in baseline; records with the metric absent are
// skipped, and years outside the baseline never influence the mean. Every
// present value in the partition, surrounding days included, is then
// reported as value - baselineMean.
//
// The per-decade trend is the ordinary-least-squares slope of the
// primary-day (year, anomaly) pairs scaled by ten; it is nil when fewer
// than two points exist or the fit is degenerate.
//
// Returns ErrNoPrimaryDay when the partition has no primary records and
// ErrInsufficientBaseline when none of them carry the metric inside the
// baseline period.
func ComputeAnomalies(p Partition, metric MetricKey, baseline YearRange) (AnomalyResult, error) {
	if len(p.PrimaryDays) == 0 {
		return AnomalyResult{}, ErrNoPrimaryDay
	}

	var sum float64
	var n int
	for _, rec := range p.PrimaryDays {
		v, ok := rec.Values.Value(metric)
		if !ok || !baseline.Contains(rec.Year()) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return AnomalyResult{}, fmt.Errorf("%w: no %s values in years %s", ErrInsufficientBaseline, metric, baseline)
	}
	mean := sum / float64(n)

	res := AnomalyResult{Metric: metric, BaselineMean: mean, Baseline: baseline}
	for _, rec := range p.PrimaryDays {
		if v, ok := rec.Values.Value(metric); ok {
			res.Series = append(res.Series, AnomalySeriesPoint{Year: rec.Year(), Value: v, Anomaly: v - mean})
		}
	}
	for _, rec := range p.SurroundingDays {
		if v, ok := rec.Values.Value(metric); ok {
			res.SurroundingSeries = append(res.SurroundingSeries, AnomalySeriesPoint{Year: rec.Year(), Value: v, Anomaly: v - mean})
		}
	}
	res.TrendPerDecade = trendPerDecade(res.Series)
	return res, nil
}

// trendPerDecade fits anomaly = a + b*year by ordinary least squares and
// scales the slope to a per-decade figure. Returns nil for fewer than two
// points or a zero denominator (all years identical).
func trendPerDecade(series []AnomalySeriesPoint) *float64 {
	if len(series) < 2 {
		return nil
	}
	var sumX, sumY, sumXY, sumXX float64
	for _, pt := range series {
		x := float64(pt.Year)
		sumX += x
		sumY += pt.Anomaly
		sumXY += x * pt.Anomaly
		sumXX += x * x
	}
	nf := float64(len(series))
	den := nf*sumXX - sumX*sumX
	if den == 0 {
		return nil
	}
	slope := (nf*sumXY - sumX*sumY) / den
	perDecade := slope * 10
	return &perDecade
}
