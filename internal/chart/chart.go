// Package chart renders anomaly series into shareable PNG images.
package chart

import (
	"errors"
	"fmt"
	"strconv"

	charts "github.com/vicanso/go-charts/v2"

	"github.com/halbgrad/climate-anomaly-service/internal/domain"
)

// ErrEmptySeries is returned when there are no anomaly points to draw.
var ErrEmptySeries = errors.New("no anomaly points to chart")

// Options tune the rendered image. Zero values fall back to sane defaults.
type Options struct {
	Title  string
	Theme  string
	Width  int
	Height int
}

const (
	defaultTheme  = "light"
	defaultWidth  = 1200
	defaultHeight = 500
)

// RenderAnomalyPNG draws the yearly anomaly series as a line chart with the
// fitted trend and the zero baseline, returning PNG bytes.
func RenderAnomalyPNG(result domain.AnomalyResult, opts Options) ([]byte, error) {
	if len(result.Series) == 0 {
		return nil, ErrEmptySeries
	}
	opts = withDefaults(opts, result)

	labels := make([]string, len(result.Series))
	anomalies := make([]float64, len(result.Series))
	baseline := make([]float64, len(result.Series))
	for i, pt := range result.Series {
		labels[i] = strconv.Itoa(pt.Year)
		anomalies[i] = pt.Anomaly
	}

	p, err := charts.LineRender(
		[][]float64{anomalies, trendValues(result.Series), baseline},
		charts.TitleTextOptionFunc(opts.Title),
		charts.XAxisDataOptionFunc(labels),
		charts.LegendLabelsOptionFunc([]string{"Anomaly", "Trend", "Baseline"}, charts.PositionRight),
		charts.ThemeOptionFunc(opts.Theme),
		charts.WidthOptionFunc(opts.Width),
		charts.HeightOptionFunc(opts.Height),
		charts.PaddingOptionFunc(charts.Box{
			Top:    20,
			Right:  20,
			Bottom: 20,
			Left:   20,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("render anomaly chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encode anomaly chart: %w", err)
	}
	return buf, nil
}

func withDefaults(opts Options, result domain.AnomalyResult) Options {
	if opts.Title == "" {
		opts.Title = fmt.Sprintf("%s anomalies vs baseline %s", result.Metric, result.Baseline)
	}
	if opts.Theme == "" {
		opts.Theme = defaultTheme
	}
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = defaultHeight
	}
	return opts
}

// trendValues evaluates the least-squares line of the anomaly series at
// every year, so the drawn trend matches the reported per-decade slope.
func trendValues(series []domain.AnomalySeriesPoint) []float64 {
	n := float64(len(series))
	var sumX, sumY, sumXY, sumXX float64
	for _, pt := range series {
		x := float64(pt.Year)
		sumX += x
		sumY += pt.Anomaly
		sumXY += x * pt.Anomaly
		sumXX += x * x
	}

	out := make([]float64, len(series))
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		mean := sumY / n
		for i := range out {
			out[i] = mean
		}
		return out
	}

	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n
	for i, pt := range series {
		out[i] = intercept + slope*float64(pt.Year)
	}
	return out
}
