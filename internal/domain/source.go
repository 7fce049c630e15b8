package domain

import "context"

// ClimateSource serves the preprocessed climate assets the service computes
// on: per-station daily series, per-calendar-day station snapshots, the
// station index, and the district topology.
type ClimateSource interface {
	// StationSeries returns the full daily series of one station.
	StationSeries(ctx context.Context, stationID string) ([]TemperatureRecord, error)

	// StationDay returns the readings of every station for one calendar
	// day across all years.
	StationDay(ctx context.Context, day MonthDay) ([]StationReading, error)

	// StationIndex returns all known stations.
	StationIndex(ctx context.Context) ([]Station, error)

	// Topology returns the raw district topology document.
	Topology(ctx context.Context) ([]byte, error)
}
