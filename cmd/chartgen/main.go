// Command chartgen fetches one station's series from the asset host,
// computes its anomalies, and writes a PNG chart.
//
// Usage:
//
//	go run ./cmd/chartgen -asset-url http://localhost:8081 \
//	  -station 00433 -day 06-15 -out tempelhof.png
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/halbgrad/climate-anomaly-service/internal/adapter/assethost"
	"github.com/halbgrad/climate-anomaly-service/internal/chart"
	"github.com/halbgrad/climate-anomaly-service/internal/domain"
	"github.com/halbgrad/climate-anomaly-service/internal/observability"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	assetURL := flag.String("asset-url", "http://localhost:8081", "base URL of the asset host")
	station := flag.String("station", "", "station id, e.g. 00433")
	day := flag.String("day", "", "target calendar day as MM-DD, e.g. 06-15")
	window := flag.Int("window", 7, "days of surrounding context on each side")
	metric := flag.String("metric", "tas", "metric to chart: tas, tasmin, tasmax or hurs")
	baselineFrom := flag.Int("baseline-from", 1961, "first baseline year")
	baselineTo := flag.Int("baseline-to", 1990, "last baseline year")
	out := flag.String("out", "anomalies.png", "output PNG path")
	title := flag.String("title", "", "chart title, derived from the query when empty")
	theme := flag.String("theme", "light", "chart theme: light or dark")
	width := flag.Int("width", 0, "chart width in pixels, 0 for the default")
	height := flag.Int("height", 0, "chart height in pixels, 0 for the default")
	timeout := flag.Duration("timeout", 30*time.Second, "asset fetch timeout")
	flag.Parse()

	if *station == "" || *day == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -station, -day")
	}

	targetDay, err := domain.ParseMonthDay(*day)
	if err != nil {
		return err
	}
	key := domain.MetricKey(*metric)
	if !key.IsKnown() {
		return fmt.Errorf("unknown metric %q, known metrics are %v", *metric, domain.KnownMetrics)
	}

	logger := observability.NewLogger("info", "text")
	client := assethost.NewClient(*assetURL, *timeout, logger, observability.NewMetrics())

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	records, err := client.StationSeries(ctx, *station)
	if err != nil {
		return err
	}

	partition, err := domain.PartitionWindow(records, targetDay, *window, domain.YearRange{}, clockwork.NewRealClock())
	if err != nil {
		return err
	}
	result, err := domain.ComputeAnomalies(partition, key, domain.Years(*baselineFrom, *baselineTo))
	if err != nil {
		return fmt.Errorf("station %s: %w", *station, err)
	}

	chartTitle := *title
	if chartTitle == "" {
		chartTitle = fmt.Sprintf("Station %s %s on %s, baseline %s", *station, key, targetDay, result.Baseline)
	}
	buf, err := chart.RenderAnomalyPNG(result, chart.Options{
		Title:  chartTitle,
		Theme:  *theme,
		Width:  *width,
		Height: *height,
	})
	if err != nil {
		return err
	}

	if err := os.WriteFile(*out, buf, 0o644); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	log.Printf("wrote %s (%d bytes, %d years)", *out, len(buf), len(result.Series))
	return nil
}
