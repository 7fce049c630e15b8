package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halbgrad/climate-anomaly-service/internal/domain"
	"github.com/halbgrad/climate-anomaly-service/internal/live"
	"github.com/halbgrad/climate-anomaly-service/internal/observability"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClock() clockwork.Clock {
	return clockwork.NewFakeClockAt(time.Date(2023, time.July, 1, 12, 0, 0, 0, time.UTC))
}

// mockSource scripts ClimateSource behavior per method and counts calls.
// A nil hook returns empty data.
type mockSource struct {
	seriesFn func(ctx context.Context, stationID string) ([]domain.TemperatureRecord, error)
	dayFn    func(ctx context.Context, day domain.MonthDay) ([]domain.StationReading, error)
	indexFn  func(ctx context.Context) ([]domain.Station, error)
	topoFn   func(ctx context.Context) ([]byte, error)

	seriesCalls atomic.Int64
	dayCalls    atomic.Int64
	indexCalls  atomic.Int64
	topoCalls   atomic.Int64
}

func (m *mockSource) StationSeries(ctx context.Context, stationID string) ([]domain.TemperatureRecord, error) {
	m.seriesCalls.Add(1)
	if m.seriesFn == nil {
		return nil, nil
	}
	return m.seriesFn(ctx, stationID)
}

func (m *mockSource) StationDay(ctx context.Context, day domain.MonthDay) ([]domain.StationReading, error) {
	m.dayCalls.Add(1)
	if m.dayFn == nil {
		return nil, nil
	}
	return m.dayFn(ctx, day)
}

func (m *mockSource) StationIndex(ctx context.Context) ([]domain.Station, error) {
	m.indexCalls.Add(1)
	if m.indexFn == nil {
		return nil, nil
	}
	return m.indexFn(ctx)
}

func (m *mockSource) Topology(ctx context.Context) ([]byte, error) {
	m.topoCalls.Add(1)
	if m.topoFn == nil {
		return nil, nil
	}
	return m.topoFn(ctx)
}

type fakeInvalidator struct {
	calls atomic.Int64
}

func (f *fakeInvalidator) Invalidate() { f.calls.Add(1) }

func newTestService(src domain.ClimateSource) *Service {
	return New(src, nil, nil, testClock(), testLogger(), observability.NewMetricsForTesting())
}

// warmingRecords is one 06-15 record per year from 1961 through 1990 with
// tas rising 0.1°C per year from 15.0.
func warmingRecords() []domain.TemperatureRecord {
	var records []domain.TemperatureRecord
	for i := 0; i < 30; i++ {
		records = append(records, domain.TemperatureRecord{
			Date:   time.Date(1961+i, time.June, 15, 0, 0, 0, 0, time.UTC),
			Values: domain.Metrics{domain.MetricTas: 15.0 + 0.1*float64(i)},
		})
	}
	return records
}

func TestAnomalySeries(t *testing.T) {
	t.Run("warming scenario", func(t *testing.T) {
		src := &mockSource{
			seriesFn: func(_ context.Context, stationID string) ([]domain.TemperatureRecord, error) {
				assert.Equal(t, "00044", stationID)
				return warmingRecords(), nil
			},
		}
		svc := newTestService(src)

		resp, err := svc.AnomalySeries(context.Background(), AnomalyQuery{
			StationID: "00044",
			Day:       "06-15",
			Radius:    7,
			Metric:    domain.MetricTas,
			Baseline:  domain.Years(1961, 1990),
		})
		require.NoError(t, err)

		assert.Equal(t, "00044", resp.Station)
		assert.Equal(t, "06-15", resp.Day)
		assert.Equal(t, 7, resp.Window)
		assert.InDelta(t, 16.45, resp.BaselineMean, 1e-9)
		require.NotNil(t, resp.TrendPerDecade)
		assert.InDelta(t, 1.0, *resp.TrendPerDecade, 1e-9)
		assert.Len(t, resp.Series, 30)
	})

	t.Run("unknown metric rejected before any fetch", func(t *testing.T) {
		src := &mockSource{}
		svc := newTestService(src)

		_, err := svc.AnomalySeries(context.Background(), AnomalyQuery{
			StationID: "00044",
			Day:       "06-15",
			Metric:    "windspeed",
			Baseline:  domain.DefaultBaseline(),
		})
		require.ErrorIs(t, err, ErrUnknownMetric)
		assert.Equal(t, int64(0), src.seriesCalls.Load())
	})

	t.Run("source error propagates", func(t *testing.T) {
		errBoom := errors.New("asset host down")
		src := &mockSource{
			seriesFn: func(context.Context, string) ([]domain.TemperatureRecord, error) {
				return nil, errBoom
			},
		}
		svc := newTestService(src)

		_, err := svc.AnomalySeries(context.Background(), AnomalyQuery{
			StationID: "00044",
			Day:       "06-15",
			Metric:    domain.MetricTas,
			Baseline:  domain.DefaultBaseline(),
		})
		assert.ErrorIs(t, err, errBoom)
	})

	t.Run("no data on the requested day", func(t *testing.T) {
		src := &mockSource{
			seriesFn: func(context.Context, string) ([]domain.TemperatureRecord, error) {
				return warmingRecords(), nil
			},
		}
		svc := newTestService(src)

		_, err := svc.AnomalySeries(context.Background(), AnomalyQuery{
			StationID: "00044",
			Day:       "01-01",
			Metric:    domain.MetricTas,
			Baseline:  domain.DefaultBaseline(),
		})
		assert.ErrorIs(t, err, domain.ErrNoPrimaryDay)
	})

	t.Run("insufficient baseline names the station", func(t *testing.T) {
		src := &mockSource{
			seriesFn: func(context.Context, string) ([]domain.TemperatureRecord, error) {
				return []domain.TemperatureRecord{
					{Date: time.Date(2001, time.June, 15, 0, 0, 0, 0, time.UTC), Values: domain.Metrics{domain.MetricTas: 21}},
					{Date: time.Date(2002, time.June, 15, 0, 0, 0, 0, time.UTC), Values: domain.Metrics{domain.MetricTas: 22}},
				}, nil
			},
		}
		svc := newTestService(src)

		_, err := svc.AnomalySeries(context.Background(), AnomalyQuery{
			StationID: "00044",
			Day:       "06-15",
			Metric:    domain.MetricTas,
			Baseline:  domain.DefaultBaseline(),
		})
		require.ErrorIs(t, err, domain.ErrInsufficientBaseline)
		assert.Contains(t, err.Error(), "00044")
	})
}

func TestThresholdDays(t *testing.T) {
	t.Run("counts hot days per year", func(t *testing.T) {
		day := func(y int, m time.Month, d int, tasmax float64) domain.TemperatureRecord {
			return domain.TemperatureRecord{
				Date:   time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
				Values: domain.Metrics{domain.MetricTasmax: tasmax},
			}
		}
		src := &mockSource{
			seriesFn: func(context.Context, string) ([]domain.TemperatureRecord, error) {
				return []domain.TemperatureRecord{
					day(2001, time.July, 1, 31.5),
					day(2001, time.July, 2, 28.0),
					day(2002, time.July, 1, 25.0),
					day(2003, time.July, 1, 30.1),
					day(2003, time.August, 1, 33.0),
				}, nil
			},
		}
		svc := newTestService(src)

		resp, err := svc.ThresholdDays(context.Background(), "00044", domain.MetricTasmax, 30, domain.ThresholdAbove)
		require.NoError(t, err)

		assert.Equal(t, "00044", resp.Station)
		assert.Equal(t, []int{2001, 2002, 2003}, resp.X)
		assert.Equal(t, []int{1, 0, 2}, resp.Y)
	})

	t.Run("unknown metric", func(t *testing.T) {
		svc := newTestService(&mockSource{})
		_, err := svc.ThresholdDays(context.Background(), "00044", "dewpoint", 0, domain.ThresholdBelow)
		assert.ErrorIs(t, err, ErrUnknownMetric)
	})
}

func TestStations(t *testing.T) {
	t.Run("passes through before any refresh", func(t *testing.T) {
		src := &mockSource{
			indexFn: func(context.Context) ([]domain.Station, error) {
				return []domain.Station{{ID: "00011", Name: "Donaueschingen"}}, nil
			},
		}
		svc := newTestService(src)

		stations, err := svc.Stations(context.Background())
		require.NoError(t, err)
		require.Len(t, stations, 1)
		assert.Equal(t, "00011", stations[0].ID)
		assert.Equal(t, int64(1), src.indexCalls.Load())
	})

	t.Run("serves the refreshed snapshot without refetching", func(t *testing.T) {
		src := &mockSource{
			indexFn: func(context.Context) ([]domain.Station, error) {
				return []domain.Station{{ID: "00044", Name: "Großenkneten"}}, nil
			},
		}
		svc := newTestService(src)

		require.NoError(t, svc.Refresh(context.Background()))
		calls := src.indexCalls.Load()

		stations, err := svc.Stations(context.Background())
		require.NoError(t, err)
		require.Len(t, stations, 1)
		assert.Equal(t, "00044", stations[0].ID)
		assert.Equal(t, calls, src.indexCalls.Load())
	})
}

func TestRefresh(t *testing.T) {
	t.Run("invalidates caches and warms today's day file", func(t *testing.T) {
		var warmedDay domain.MonthDay
		src := &mockSource{
			dayFn: func(_ context.Context, day domain.MonthDay) ([]domain.StationReading, error) {
				warmedDay = day
				return nil, nil
			},
		}
		inv := &fakeInvalidator{}
		svc := New(src, inv, nil, testClock(), testLogger(), observability.NewMetricsForTesting())

		require.NoError(t, svc.Refresh(context.Background()))
		assert.Equal(t, int64(1), inv.calls.Load())
		assert.Equal(t, domain.MonthDay("07-01"), warmedDay)
	})

	t.Run("day warm failure is tolerated", func(t *testing.T) {
		src := &mockSource{
			dayFn: func(context.Context, domain.MonthDay) ([]domain.StationReading, error) {
				return nil, errors.New("not published yet")
			},
		}
		svc := newTestService(src)
		assert.NoError(t, svc.Refresh(context.Background()))
	})

	t.Run("station index failure fails the run", func(t *testing.T) {
		errBoom := errors.New("catalogue gone")
		src := &mockSource{
			indexFn: func(context.Context) ([]domain.Station, error) {
				return nil, errBoom
			},
		}
		svc := newTestService(src)
		assert.ErrorIs(t, svc.Refresh(context.Background()), errBoom)
	})

	t.Run("prunes stale live readings", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(time.Date(2023, time.July, 1, 12, 0, 0, 0, time.UTC))
		metrics := observability.NewMetricsForTesting()
		store := live.NewStore(10*time.Minute, clock, metrics)
		store.Put(live.Reading{StationID: "00044", Time: clock.Now()})
		clock.Advance(time.Hour)

		svc := New(&mockSource{}, nil, store, clock, testLogger(), metrics)
		require.NoError(t, svc.Refresh(context.Background()))

		_, ok := store.Latest("00044")
		assert.False(t, ok)
		assert.Zero(t, store.Prune(), "refresh should have pruned already")
	})

	t.Run("late result of an older run is discarded", func(t *testing.T) {
		release := make(chan struct{})
		started := make(chan struct{}, 1)
		var calls atomic.Int64
		src := &mockSource{
			indexFn: func(context.Context) ([]domain.Station, error) {
				if calls.Add(1) == 1 {
					started <- struct{}{}
					<-release
					return []domain.Station{{ID: "00011", Name: "old snapshot"}}, nil
				}
				return []domain.Station{{ID: "00044", Name: "new snapshot"}}, nil
			},
		}
		svc := newTestService(src)

		firstDone := make(chan error, 1)
		go func() { firstDone <- svc.Refresh(context.Background()) }()
		<-started

		require.NoError(t, svc.Refresh(context.Background()))

		close(release)
		require.NoError(t, <-firstDone)

		stations, err := svc.Stations(context.Background())
		require.NoError(t, err)
		require.Len(t, stations, 1)
		assert.Equal(t, "00044", stations[0].ID)
	})
}

func TestLive(t *testing.T) {
	t.Run("disabled without a store", func(t *testing.T) {
		svc := newTestService(&mockSource{})

		_, err := svc.LiveReadings(context.Background())
		assert.ErrorIs(t, err, ErrLiveDisabled)

		_, err = svc.LiveReading(context.Background(), "00044")
		assert.ErrorIs(t, err, ErrLiveDisabled)
	})

	t.Run("serves store contents", func(t *testing.T) {
		clock := testClock()
		metrics := observability.NewMetricsForTesting()
		store := live.NewStore(10*time.Minute, clock, metrics)
		tas := 21.5
		store.Put(live.Reading{StationID: "00044", Time: clock.Now(), Tas: &tas})

		svc := New(&mockSource{}, nil, store, clock, testLogger(), metrics)

		all, err := svc.LiveReadings(context.Background())
		require.NoError(t, err)
		require.Len(t, all, 1)

		r, err := svc.LiveReading(context.Background(), "00044")
		require.NoError(t, err)
		require.NotNil(t, r.Tas)
		assert.Equal(t, 21.5, *r.Tas)

		_, err = svc.LiveReading(context.Background(), "00099")
		assert.ErrorIs(t, err, ErrNoLiveReading)
	})
}
