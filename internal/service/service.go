// Package service orchestrates the climate queries the API serves. Domain
// math stays in internal/domain; this layer fetches inputs, runs the
// computations, and shapes responses.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"

	"github.com/halbgrad/climate-anomaly-service/internal/domain"
	"github.com/halbgrad/climate-anomaly-service/internal/live"
	"github.com/halbgrad/climate-anomaly-service/internal/observability"
)

// ErrUnknownMetric reports a metric key outside the closed set.
var ErrUnknownMetric = errors.New("unknown metric")

// ErrLiveDisabled reports that the live feed is not configured.
var ErrLiveDisabled = errors.New("live feed is not enabled")

// ErrNoLiveReading reports that a station has no current live reading.
var ErrNoLiveReading = errors.New("no live reading for station")

// Invalidator drops cached assets so the next fetch goes upstream.
type Invalidator interface {
	Invalidate()
}

// Service answers climate queries against a ClimateSource.
type Service struct {
	source      domain.ClimateSource
	invalidator Invalidator // nil when the source is uncached
	liveStore   *live.Store // nil when the live feed is disabled
	clock       clockwork.Clock
	logger      *slog.Logger
	metrics     *observability.Metrics

	refreshGen atomic.Int64

	stationsMu   sync.RWMutex
	stationsSnap []domain.Station
}

// New creates a Service. invalidator and liveStore may be nil.
func New(source domain.ClimateSource, invalidator Invalidator, liveStore *live.Store,
	clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		source:      source,
		invalidator: invalidator,
		liveStore:   liveStore,
		clock:       clock,
		logger:      logger,
		metrics:     metrics,
	}
}

// AnomalyQuery identifies one anomaly-series computation.
type AnomalyQuery struct {
	StationID string
	Day       domain.MonthDay
	Radius    int
	Metric    domain.MetricKey
	Baseline  domain.YearRange
	Years     domain.YearRange
}

// AnomalyResponse is the anomaly series of one station and calendar day.
type AnomalyResponse struct {
	Station string `json:"station"`
	Day     string `json:"day"`
	Window  int    `json:"window"`
	domain.AnomalyResult
}

// AnomalySeries fetches the station's series and computes anomalies against
// the baseline.
func (s *Service) AnomalySeries(ctx context.Context, q AnomalyQuery) (*AnomalyResponse, error) {
	if !q.Metric.IsKnown() {
		return nil, fmt.Errorf("%w %q", ErrUnknownMetric, q.Metric)
	}

	records, err := s.source.StationSeries(ctx, q.StationID)
	if err != nil {
		return nil, err
	}

	partition, err := domain.PartitionWindow(records, q.Day, q.Radius, q.Years, s.clock)
	if err != nil {
		return nil, err
	}

	result, err := domain.ComputeAnomalies(partition, q.Metric, q.Baseline)
	if err != nil {
		return nil, fmt.Errorf("station %s: %w", q.StationID, err)
	}
	s.metrics.AnomalyComputations.Inc()

	return &AnomalyResponse{
		Station:       q.StationID,
		Day:           q.Day.String(),
		Window:        q.Radius,
		AnomalyResult: result,
	}, nil
}

// ThresholdDaysResponse is the per-year count series of one station.
type ThresholdDaysResponse struct {
	Station string `json:"station"`
	domain.ThresholdDaysSeries
}

// ThresholdDays counts, per year, how many days cross the threshold.
func (s *Service) ThresholdDays(ctx context.Context, stationID string, metric domain.MetricKey,
	threshold float64, mode domain.ThresholdMode) (*ThresholdDaysResponse, error) {
	if !metric.IsKnown() {
		return nil, fmt.Errorf("%w %q", ErrUnknownMetric, metric)
	}

	records, err := s.source.StationSeries(ctx, stationID)
	if err != nil {
		return nil, err
	}

	series := domain.CountThresholdDays(records, metric, threshold, mode)
	return &ThresholdDaysResponse{
		Station:             stationID,
		ThresholdDaysSeries: series,
	}, nil
}

// Stations returns the station catalogue: the last refreshed snapshot when
// one exists, the source otherwise.
func (s *Service) Stations(ctx context.Context) ([]domain.Station, error) {
	s.stationsMu.RLock()
	snap := s.stationsSnap
	s.stationsMu.RUnlock()
	if snap != nil {
		return snap, nil
	}
	return s.source.StationIndex(ctx)
}

// LiveReadings returns the current reading of every tracked station.
func (s *Service) LiveReadings(_ context.Context) ([]live.Reading, error) {
	if s.liveStore == nil {
		return nil, ErrLiveDisabled
	}
	return s.liveStore.Snapshot(), nil
}

// LiveReading returns the current reading of one station.
func (s *Service) LiveReading(_ context.Context, stationID string) (live.Reading, error) {
	if s.liveStore == nil {
		return live.Reading{}, ErrLiveDisabled
	}
	r, ok := s.liveStore.Latest(stationID)
	if !ok {
		return live.Reading{}, fmt.Errorf("%w %s", ErrNoLiveReading, stationID)
	}
	return r, nil
}

// Refresh drops cached assets, re-fetches the station index, warms today's
// day-of-year asset, and prunes stale live readings. Each run gets a
// generation number; a run that finishes after a newer one started discards
// its snapshot so an old fetch can never clobber a fresher one.
func (s *Service) Refresh(ctx context.Context) error {
	gen := s.refreshGen.Add(1)
	s.logger.Info("refresh started", "generation", gen)

	if s.invalidator != nil {
		s.invalidator.Invalidate()
	}

	stations, err := s.source.StationIndex(ctx)
	if err != nil {
		s.metrics.RefreshRuns.WithLabelValues("error").Inc()
		return fmt.Errorf("refresh station index: %w", err)
	}

	today := domain.MonthDayOf(s.clock.Now().UTC())
	if _, err := s.source.StationDay(ctx, today); err != nil {
		// Warming is best effort; today's file may not be published yet.
		s.logger.Warn("day-of-year warm failed", "day", today.String(), "error", err)
	}

	if s.liveStore != nil {
		if pruned := s.liveStore.Prune(); pruned > 0 {
			s.logger.Info("pruned stale live readings", "count", pruned)
		}
	}

	if s.refreshGen.Load() != gen {
		s.logger.Info("refresh result discarded, newer refresh in flight", "generation", gen)
		s.metrics.RefreshRuns.WithLabelValues("stale").Inc()
		return nil
	}

	s.stationsMu.Lock()
	s.stationsSnap = stations
	s.stationsMu.Unlock()

	s.metrics.RefreshRuns.WithLabelValues("success").Inc()
	s.logger.Info("refresh finished", "generation", gen, "stations", len(stations))
	return nil
}
