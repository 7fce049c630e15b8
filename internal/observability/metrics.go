package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// climate API and its background jobs.
type Metrics struct {
	// Asset-host fetching.
	AssetRequests      *prometheus.CounterVec   // labels: asset={series,day,stations,topology}, outcome={success,missing,error}
	AssetFetchDuration *prometheus.HistogramVec // labels: asset
	AssetCache         *prometheus.CounterVec   // labels: asset, result={hit,miss}
	BreakerOpen        prometheus.Gauge
	ParseFailures      prometheus.Counter

	// Query handling.
	AnomalyComputations prometheus.Counter
	HeatmapDuration     prometheus.Histogram

	// Background refresh.
	RefreshRuns *prometheus.CounterVec // labels: outcome={success,error,stale}

	// Ingestion job.
	IngestStations *prometheus.CounterVec // labels: outcome={success,error}

	// Live feed.
	LiveMessagesConsumed prometheus.Counter
	LivePoisonMessages   prometheus.Counter
	LiveStationsTracked  prometheus.Gauge
	ConsumerRunning      prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		AssetRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climate_api",
			Name:      "asset_requests_total",
			Help:      "Asset host requests by asset kind and outcome.",
		}, []string{"asset", "outcome"}),
		AssetFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "climate_api",
			Name:      "asset_fetch_duration_seconds",
			Help:      "Asset host request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"asset"}),
		AssetCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climate_api",
			Name:      "asset_cache_total",
			Help:      "Asset cache lookups by asset kind and result.",
		}, []string{"asset", "result"}),
		BreakerOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "climate_api",
			Name:      "asset_breaker_open",
			Help:      "1 while the asset host circuit breaker is open, 0 otherwise.",
		}),
		ParseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_api",
			Name:      "asset_parse_failures_total",
			Help:      "Asset payloads that fetched but failed to parse.",
		}),
		AnomalyComputations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_api",
			Name:      "anomaly_computations_total",
			Help:      "Anomaly series computed, cached or not.",
		}),
		HeatmapDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "climate_api",
			Name:      "heatmap_duration_seconds",
			Help:      "Duration of a complete heatmap assembly.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		RefreshRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climate_api",
			Name:      "refresh_runs_total",
			Help:      "Background station index refreshes by outcome.",
		}, []string{"outcome"}),
		IngestStations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climate_api",
			Name:      "ingest_stations_total",
			Help:      "Stations processed by the ingestion job, by outcome.",
		}, []string{"outcome"}),
		LiveMessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_api",
			Name:      "live_messages_consumed_total",
			Help:      "Live readings read from the observations topic.",
		}),
		LivePoisonMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_api",
			Name:      "live_poison_messages_total",
			Help:      "Live messages skipped because they could not be decoded.",
		}),
		LiveStationsTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "climate_api",
			Name:      "live_stations_tracked",
			Help:      "Stations with a live reading younger than the max age.",
		}),
		ConsumerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "climate_api",
			Name:      "live_consumer_running",
			Help:      "1 when the live consumer is active, 0 when shut down.",
		}),
	}

	prometheus.MustRegister(
		m.AssetRequests,
		m.AssetFetchDuration,
		m.AssetCache,
		m.BreakerOpen,
		m.ParseFailures,
		m.AnomalyComputations,
		m.HeatmapDuration,
		m.RefreshRuns,
		m.IngestStations,
		m.LiveMessagesConsumed,
		m.LivePoisonMessages,
		m.LiveStationsTracked,
		m.ConsumerRunning,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		AssetRequests:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "climate_api", Name: "asset_requests_total"}, []string{"asset", "outcome"}),
		AssetFetchDuration:   prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "climate_api", Name: "asset_fetch_duration_seconds"}, []string{"asset"}),
		AssetCache:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "climate_api", Name: "asset_cache_total"}, []string{"asset", "result"}),
		BreakerOpen:          prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "climate_api", Name: "asset_breaker_open"}),
		ParseFailures:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_api", Name: "asset_parse_failures_total"}),
		AnomalyComputations:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_api", Name: "anomaly_computations_total"}),
		HeatmapDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "climate_api", Name: "heatmap_duration_seconds"}),
		RefreshRuns:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "climate_api", Name: "refresh_runs_total"}, []string{"outcome"}),
		IngestStations:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "climate_api", Name: "ingest_stations_total"}, []string{"outcome"}),
		LiveMessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_api", Name: "live_messages_consumed_total"}),
		LivePoisonMessages:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_api", Name: "live_poison_messages_total"}),
		LiveStationsTracked:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "climate_api", Name: "live_stations_tracked"}),
		ConsumerRunning:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "climate_api", Name: "live_consumer_running"}),
	}
}
