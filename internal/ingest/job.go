// Package ingest turns raw DWD open-data archives into the published CSV
// assets the API consumes. The job is one-shot: list the archives on an
// index, parse each station's product, and write the per-station,
// per-calendar-day, and catalogue files into an output directory.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/halbgrad/climate-anomaly-service/internal/domain"
	"github.com/halbgrad/climate-anomaly-service/internal/dwd"
	"github.com/halbgrad/climate-anomaly-service/internal/live"
	"github.com/halbgrad/climate-anomaly-service/internal/observability"
)

// ArchiveSource lists and downloads files from one open-data directory.
type ArchiveSource interface {
	ListArchives(ctx context.Context) ([]string, error)
	FetchArchive(ctx context.Context, name string) ([]byte, error)
}

// Publisher pushes fresh readings onto the live feed.
type Publisher interface {
	PublishReadings(ctx context.Context, readings []live.Reading) error
}

// Options tune one ingestion run.
type Options struct {
	// OutDir is the root the published asset tree is written under.
	OutDir string

	// CatalogueName is the station-description file on the index, e.g.
	// "KL_Tageswerte_Beschreibung_Stationen.txt". Empty skips the station
	// index asset.
	CatalogueName string

	// RollingRadius is the half-width of the centered window used for the
	// smoothed per-station series.
	RollingRadius int

	// Limit caps how many archives are processed; 0 means all.
	Limit int
}

// Job ingests observation archives into published assets.
type Job struct {
	source  ArchiveSource
	opts    Options
	assets  *AssetWriter
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates an ingestion job.
func New(source ArchiveSource, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Job {
	return &Job{
		source:  source,
		opts:    opts,
		assets:  &AssetWriter{OutDir: opts.OutDir, RollingRadius: opts.RollingRadius},
		logger:  logger,
		metrics: metrics,
	}
}

// Run ingests the daily-climate archives: every station that parses gets a
// raw and a smoothed series asset, the per-calendar-day means feed the
// day-of-year assets, and the station catalogue is republished. Individual
// station failures are logged and skipped; the run fails only when no
// station succeeded.
func (j *Job) Run(ctx context.Context) error {
	names, err := j.source.ListArchives(ctx)
	if err != nil {
		return fmt.Errorf("list archives: %w", err)
	}
	archives := filterArchives(names, dwd.IsDailyArchive, j.opts.Limit)
	if len(archives) == 0 {
		return errors.New("no daily archives found on the index")
	}
	j.logger.Info("ingesting daily archives", "count", len(archives))

	dayValues := make(map[domain.MonthDay][]domain.StationReading)
	var done int
	for _, name := range archives {
		if err := ctx.Err(); err != nil {
			return err
		}

		stationID, records, err := j.loadDailyArchive(ctx, name)
		if err != nil {
			j.metrics.IngestStations.WithLabelValues("error").Inc()
			j.logger.Warn("station archive skipped", "archive", name, "error", err)
			continue
		}
		if err := j.assets.WriteStationSeries(stationID, records); err != nil {
			j.metrics.IngestStations.WithLabelValues("error").Inc()
			j.logger.Warn("station assets skipped", "station", stationID, "error", err)
			continue
		}
		AccumulateDayValues(dayValues, stationID, records)

		j.metrics.IngestStations.WithLabelValues("success").Inc()
		done++
	}
	if done == 0 {
		return fmt.Errorf("all %d station archives failed", len(archives))
	}

	if err := j.assets.WriteDays(dayValues); err != nil {
		return err
	}
	if err := j.writeCatalogue(ctx); err != nil {
		return err
	}

	j.logger.Info("ingestion finished", "stations", done, "skipped", len(archives)-done, "days", len(dayValues))
	return nil
}

// RunTenMinute ingests the ten-minute temperature archives and publishes
// the newest reading per station onto the live feed.
func (j *Job) RunTenMinute(ctx context.Context, publisher Publisher) error {
	names, err := j.source.ListArchives(ctx)
	if err != nil {
		return fmt.Errorf("list archives: %w", err)
	}
	archives := filterArchives(names, dwd.IsTenMinuteArchive, j.opts.Limit)
	if len(archives) == 0 {
		return errors.New("no ten-minute archives found on the index")
	}
	j.logger.Info("ingesting ten-minute archives", "count", len(archives))

	latest := make(map[string]live.Reading)
	var failed int
	for _, name := range archives {
		if err := ctx.Err(); err != nil {
			return err
		}

		observations, err := j.loadTenMinuteArchive(ctx, name)
		if err != nil {
			j.logger.Warn("ten-minute archive skipped", "archive", name, "error", err)
			failed++
			continue
		}
		for _, obs := range observations {
			reading, ok := toReading(obs)
			if !ok {
				continue
			}
			if current, exists := latest[reading.StationID]; !exists || reading.Time.After(current.Time) {
				latest[reading.StationID] = reading
			}
		}
	}
	if len(latest) == 0 {
		return fmt.Errorf("no ten-minute observations ingested (%d archives failed)", failed)
	}

	readings := make([]live.Reading, 0, len(latest))
	for _, r := range latest {
		readings = append(readings, r)
	}
	sort.Slice(readings, func(i, k int) bool { return readings[i].StationID < readings[k].StationID })

	if err := publisher.PublishReadings(ctx, readings); err != nil {
		return fmt.Errorf("publish readings: %w", err)
	}
	j.logger.Info("live readings published", "stations", len(readings))
	return nil
}

func (j *Job) loadDailyArchive(ctx context.Context, name string) (string, []domain.TemperatureRecord, error) {
	blob, err := j.source.FetchArchive(ctx, name)
	if err != nil {
		return "", nil, err
	}
	product, err := dwd.OpenProduct(blob)
	if err != nil {
		return "", nil, err
	}
	defer product.Close()

	stationID, records, err := dwd.ParseProduct(product)
	if err != nil {
		return "", nil, err
	}
	if stationID == "" {
		stationID = dwd.StationIDFromArchive(name)
	}
	return stationID, records, nil
}

func (j *Job) loadTenMinuteArchive(ctx context.Context, name string) ([]dwd.TenMinuteObservation, error) {
	blob, err := j.source.FetchArchive(ctx, name)
	if err != nil {
		return nil, err
	}
	product, err := dwd.OpenProduct(blob)
	if err != nil {
		return nil, err
	}
	defer product.Close()

	return dwd.ParseTenMinuteProduct(product)
}

func (j *Job) writeCatalogue(ctx context.Context) error {
	if j.opts.CatalogueName == "" {
		j.logger.Info("no catalogue configured, skipping station index")
		return nil
	}

	blob, err := j.source.FetchArchive(ctx, j.opts.CatalogueName)
	if err != nil {
		return fmt.Errorf("fetch catalogue: %w", err)
	}
	stations, err := dwd.ParseStationDescriptions(bytes.NewReader(blob))
	if err != nil {
		return fmt.Errorf("parse catalogue: %w", err)
	}
	if err := j.assets.WriteIndex(stations); err != nil {
		return err
	}
	j.logger.Info("station index published", "stations", len(stations), "path", filepath.Join("station_data", "stations.csv"))
	return nil
}

func filterArchives(names []string, keep func(string) bool, limit int) []string {
	var archives []string
	for _, name := range names {
		if keep(name) {
			archives = append(archives, name)
		}
	}
	if limit > 0 && len(archives) > limit {
		archives = archives[:limit]
	}
	return archives
}

func toReading(obs dwd.TenMinuteObservation) (live.Reading, bool) {
	r := live.Reading{StationID: obs.StationID, Time: obs.Time}
	if tas, ok := obs.Values.Value(domain.MetricTas); ok {
		r.Tas = &tas
	}
	if hurs, ok := obs.Values.Value(domain.MetricHurs); ok {
		r.Hurs = &hurs
	}
	return r, r.Tas != nil || r.Hurs != nil
}
