package assethost

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halbgrad/climate-anomaly-service/internal/domain"
	"github.com/halbgrad/climate-anomaly-service/internal/observability"
)

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(baseURL string) *Client {
	return NewClient(baseURL, 5*time.Second, testLogger(), testMetrics())
}

func TestClient_StationSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/daily_by_station/00044.csv", r.URL.Path)
		_, _ = w.Write([]byte("date,tas,tasmax\n2024-01-01,5.4,8.2\n2024-01-02,,9.0\n"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	records, err := c.StationSeries(context.Background(), "00044")
	require.NoError(t, err)
	require.Len(t, records, 2)

	tas, ok := records[0].Values.Value(domain.MetricTas)
	require.True(t, ok)
	assert.Equal(t, 5.4, tas)

	_, ok = records[1].Values.Value(domain.MetricTas)
	assert.False(t, ok, "empty cell must stay absent")
}

func TestClient_StationDay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/day_of_year/06_15.csv", r.URL.Path)
		_, _ = w.Write([]byte("station_id,tas,hurs\n00044,18.3,61.0\n00433,19.9,58.5\n"))
	}))
	defer srv.Close()

	day, err := domain.ParseMonthDay("06-15")
	require.NoError(t, err)

	c := newTestClient(srv.URL)
	readings, err := c.StationDay(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, "00044", readings[0].StationID)
	assert.Equal(t, "00433", readings[1].StationID)
}

func TestClient_StationIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/station_data/stations.csv", r.URL.Path)
		_, _ = w.Write([]byte("station_id,station_name,lat,lon\n00044,Großenkneten,52.9336,8.2370\n"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	stations, err := c.StationIndex(context.Background())
	require.NoError(t, err)
	require.Len(t, stations, 1)
	assert.Equal(t, "Großenkneten", stations[0].Name)
}

func TestClient_Topology(t *testing.T) {
	doc := []byte(`{"type":"Topology"}`)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geo/districts.topo.json", r.URL.Path)
		_, _ = w.Write(doc)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	got, err := c.Topology(context.Background())
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestClient_StationSeries_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.StationSeries(context.Background(), "99999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_StationSeries_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.StationSeries(context.Background(), "00044")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_StationSeries_ParseFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("snowfall,depth\n1,2\n"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.StationSeries(context.Background(), "00044")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable, "a parse failure is not a host failure")
}

func TestClient_BreakerStopsHammering(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	for i := 0; i < 10; i++ {
		_, err := c.StationSeries(context.Background(), "00044")
		assert.ErrorIs(t, err, ErrUnavailable)
	}

	assert.Equal(t, 6, hits, "breaker must refuse requests once open")
}

func TestClient_CheckReadiness(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	assert.NoError(t, c.CheckReadiness(context.Background()))

	for i := 0; i < 6; i++ {
		_, _ = c.StationSeries(context.Background(), "00044")
	}
	assert.ErrorIs(t, c.CheckReadiness(context.Background()), ErrUnavailable)
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 50*time.Millisecond, testLogger(), testMetrics())
	_, err := c.StationSeries(context.Background(), "00044")
	require.Error(t, err)
}
