// Package config reads service settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	APIAddr         string
	OpsAddr         string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Asset host.
	AssetBaseURL    string
	AssetTimeout    time.Duration
	SeriesCacheSize int
	DayCacheSize    int

	// Anomaly defaults and background refresh.
	BaselineFrom    int
	BaselineTo      int
	RefreshInterval time.Duration

	// Live feed (feature-flagged via LIVE_ENABLED / KAFKA_BROKERS).
	LiveEnabled  bool
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string
	LiveMaxAge   time.Duration

	// DebugNow pins the service clock for reproducing window bugs.
	// Zero means the real clock.
	DebugNow time.Time
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	assetTimeout, err := parseDuration("ASSET_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	refreshInterval, err := parseDuration("REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	liveMaxAge, err := parseDuration("LIVE_MAX_AGE", 30*time.Minute)
	if err != nil {
		return nil, err
	}

	seriesCacheSize, err := parseInt("SERIES_CACHE_SIZE", 256, 1, 100000)
	if err != nil {
		return nil, err
	}
	dayCacheSize, err := parseInt("DAY_CACHE_SIZE", 32, 1, 366)
	if err != nil {
		return nil, err
	}
	baselineFrom, err := parseInt("BASELINE_FROM", 1961, 1700, 2200)
	if err != nil {
		return nil, err
	}
	baselineTo, err := parseInt("BASELINE_TO", 1990, 1700, 2200)
	if err != nil {
		return nil, err
	}

	debugNow, err := parseDebugNow()
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	liveEnabled := len(brokers) > 0
	if v := os.Getenv("LIVE_ENABLED"); v != "" {
		liveEnabled = v == "true"
	}

	cfg := &Config{
		APIAddr:         envOrDefault("API_ADDR", ":8080"),
		OpsAddr:         envOrDefault("OPS_ADDR", ":9090"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		AssetBaseURL:    envOrDefault("ASSET_BASE_URL", "http://localhost:8081"),
		AssetTimeout:    assetTimeout,
		SeriesCacheSize: seriesCacheSize,
		DayCacheSize:    dayCacheSize,

		BaselineFrom:    baselineFrom,
		BaselineTo:      baselineTo,
		RefreshInterval: refreshInterval,

		LiveEnabled:  liveEnabled,
		KafkaBrokers: brokers,
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "live-climate-readings"),
		KafkaGroupID: envOrDefault("KAFKA_GROUP_ID", "climate-anomaly-api"),
		LiveMaxAge:   liveMaxAge,

		DebugNow: debugNow,
	}

	if cfg.AssetBaseURL == "" {
		return nil, errors.New("ASSET_BASE_URL is required")
	}
	if cfg.BaselineFrom > cfg.BaselineTo {
		return nil, errors.New("BASELINE_FROM must not be after BASELINE_TO")
	}
	if cfg.LiveEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("LIVE_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.LiveEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when the live feed is enabled")
	}

	return cfg, nil
}

// Clock returns the real clock, or a fixed one when CLIMATE_DEBUG_NOW pins
// the time.
func (c *Config) Clock() clockwork.Clock {
	if c.DebugNow.IsZero() {
		return clockwork.NewRealClock()
	}
	return clockwork.NewFakeClockAt(c.DebugNow)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parseBrokers splits a comma-separated broker list, dropping empty entries.
func parseBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return d, nil
}

func parseInt(key string, fallback, min, max int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("invalid %s: %q (want %d..%d)", key, raw, min, max)
	}
	return n, nil
}

func parseDebugNow() (time.Time, error) {
	raw := os.Getenv("CLIMATE_DEBUG_NOW")
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid CLIMATE_DEBUG_NOW: %q (want RFC3339)", raw)
	}
	return t.UTC(), nil
}
