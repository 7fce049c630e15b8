package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/halbgrad/climate-anomaly-service/internal/colormap"
	"github.com/halbgrad/climate-anomaly-service/internal/domain"
	"github.com/halbgrad/climate-anomaly-service/internal/geo"
)

// Heatmap colors the district topology by the per-district mean of one
// metric on one calendar day. Stations are matched to districts by
// point-in-polygon; districts without any reading keep their geometry
// uncolored. The day readings, station index, and topology are fetched
// concurrently and the first failure cancels the others.
func (s *Service) Heatmap(ctx context.Context, day domain.MonthDay, metric domain.MetricKey, schemeName string) (*geojson.FeatureCollection, error) {
	scheme, err := colormap.ByName(schemeName)
	if err != nil {
		return nil, err
	}
	if !metric.IsKnown() {
		return nil, fmt.Errorf("%w %q", ErrUnknownMetric, metric)
	}

	start := time.Now()
	defer func() {
		s.metrics.HeatmapDuration.Observe(time.Since(start).Seconds())
	}()

	readings, stations, topoDoc, err := s.fetchHeatmapInputs(ctx, day)
	if err != nil {
		return nil, err
	}

	fc, err := geo.DecodeTopology(topoDoc)
	if err != nil {
		return nil, fmt.Errorf("decode district topology: %w", err)
	}

	stationByID := make(map[string]domain.Station, len(stations))
	for _, st := range stations {
		stationByID[st.ID] = st
	}

	type bucket struct {
		sum float64
		n   int
	}
	buckets := make(map[*geojson.Feature]*bucket)
	for _, r := range readings {
		st, ok := stationByID[r.StationID]
		if !ok {
			continue
		}
		value, ok := r.Values.Value(metric)
		if !ok {
			continue
		}
		feature := geo.Locate(fc, orb.Point{st.Lon, st.Lat})
		if feature == nil {
			continue
		}
		b := buckets[feature]
		if b == nil {
			b = &bucket{}
			buckets[feature] = b
		}
		b.sum += value
		b.n++
	}

	for feature, b := range buckets {
		mean := math.Round(b.sum/float64(b.n)*100) / 100
		color, err := scheme.ValueColor(mean)
		if err != nil {
			return nil, err
		}
		feature.Properties["value"] = mean
		feature.Properties["stations"] = b.n
		feature.Properties["fill"] = color.Hex()
	}

	s.logger.Debug("heatmap built",
		"day", day.String(), "metric", string(metric),
		"districts", len(fc.Features), "colored", len(buckets))
	return fc, nil
}

// fetchHeatmapInputs loads the three heatmap inputs concurrently. The first
// error cancels the remaining fetches and is the one returned.
func (s *Service) fetchHeatmapInputs(ctx context.Context, day domain.MonthDay) ([]domain.StationReading, []domain.Station, []byte, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		firstErr error

		readings []domain.StationReading
		stations []domain.Station
		topoDoc  []byte
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		v, err := s.source.StationDay(ctx, day)
		if err != nil {
			fail(err)
			return
		}
		readings = v
	}()
	go func() {
		defer wg.Done()
		v, err := s.source.StationIndex(ctx)
		if err != nil {
			fail(err)
			return
		}
		stations = v
	}()
	go func() {
		defer wg.Done()
		v, err := s.source.Topology(ctx)
		if err != nil {
			fail(err)
			return
		}
		topoDoc = v
	}()
	wg.Wait()

	if firstErr != nil {
		return nil, nil, nil, firstErr
	}
	return readings, stations, topoDoc, nil
}
