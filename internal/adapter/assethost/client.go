// Package assethost fetches the published climate datasets over HTTP.
//
// The asset host is a static file server (typically an object-store bucket)
// populated by the ingestion job. Every fetch goes through one shared
// circuit breaker; a single request is made per call, no retries.
package assethost

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/halbgrad/climate-anomaly-service/internal/csvdata"
	"github.com/halbgrad/climate-anomaly-service/internal/domain"
	"github.com/halbgrad/climate-anomaly-service/internal/observability"
)

// Asset paths relative to the host base URL.
const (
	seriesPathFmt = "data/daily_by_station/%s.csv"
	dayPathFmt    = "data/day_of_year/%s.csv"
	stationsPath  = "station_data/stations.csv"
	topologyPath  = "geo/districts.topo.json"
)

// Metric label values for the asset kinds.
const (
	assetSeries   = "series"
	assetDay      = "day"
	assetStations = "stations"
	assetTopology = "topology"
)

// ErrNotFound reports that the asset host has no file for the request,
// usually an unknown station id.
var ErrNotFound = errors.New("asset not found")

// ErrUnavailable reports that the asset host could not be reached or the
// circuit breaker refused the request.
var ErrUnavailable = errors.New("asset host unavailable")

// Client implements domain.ClimateSource against a static asset host.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates an asset host client with a shared circuit breaker.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	settings := gobreaker.Settings{
		Name:        "asset-host",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		IsSuccessful: func(err error) bool {
			// A missing file is an answer, not a host failure.
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("asset host breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			if to == gobreaker.StateOpen {
				metrics.BreakerOpen.Set(1)
			} else {
				metrics.BreakerOpen.Set(0)
			}
		},
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/") + "/",
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
		metrics: metrics,
	}
}

// StationSeries fetches and parses the daily series of one station.
func (c *Client) StationSeries(ctx context.Context, stationID string) ([]domain.TemperatureRecord, error) {
	body, err := c.fetch(ctx, assetSeries, fmt.Sprintf(seriesPathFmt, stationID))
	if err != nil {
		return nil, err
	}
	records, err := csvdata.ParseSeries(bytes.NewReader(body), stationID)
	if err != nil {
		c.metrics.ParseFailures.Inc()
		return nil, err
	}
	return records, nil
}

// StationDay fetches and parses one calendar day across all stations.
func (c *Client) StationDay(ctx context.Context, day domain.MonthDay) ([]domain.StationReading, error) {
	name := strings.Replace(day.String(), "-", "_", 1)
	body, err := c.fetch(ctx, assetDay, fmt.Sprintf(dayPathFmt, name))
	if err != nil {
		return nil, err
	}
	readings, err := csvdata.ParseStationDay(bytes.NewReader(body), day.String())
	if err != nil {
		c.metrics.ParseFailures.Inc()
		return nil, err
	}
	return readings, nil
}

// StationIndex fetches and parses the station catalogue.
func (c *Client) StationIndex(ctx context.Context) ([]domain.Station, error) {
	body, err := c.fetch(ctx, assetStations, stationsPath)
	if err != nil {
		return nil, err
	}
	stations, err := csvdata.ParseStationIndex(bytes.NewReader(body))
	if err != nil {
		c.metrics.ParseFailures.Inc()
		return nil, err
	}
	return stations, nil
}

// Topology fetches the raw district topology document.
func (c *Client) Topology(ctx context.Context) ([]byte, error) {
	return c.fetch(ctx, assetTopology, topologyPath)
}

// CheckReadiness reports unready while the circuit breaker is open.
func (c *Client) CheckReadiness(_ context.Context) error {
	if state := c.breaker.State(); state == gobreaker.StateOpen {
		return fmt.Errorf("%w: breaker %s", ErrUnavailable, state.String())
	}
	return nil
}

// fetch runs one GET through the circuit breaker and returns the body.
func (c *Client) fetch(ctx context.Context, asset, path string) ([]byte, error) {
	start := time.Now()
	defer func() {
		c.metrics.AssetFetchDuration.WithLabelValues(asset).Observe(time.Since(start).Seconds())
	}()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", path, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		case resp.StatusCode != http.StatusOK:
			return nil, fmt.Errorf("fetch %s: status %d", path, resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.metrics.AssetRequests.WithLabelValues(asset, "missing").Inc()
			return nil, err
		}
		c.metrics.AssetRequests.WithLabelValues(asset, "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	c.metrics.AssetRequests.WithLabelValues(asset, "success").Inc()
	return result.([]byte), nil
}
