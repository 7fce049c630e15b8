// Package domain models daily weather-station series and the anomaly
// computations performed on them.
//
// # Data Source
//
// Series originate from Deutscher Wetterdienst (DWD) open data. The
// ingestion job downloads the daily climate products, maps the DWD column
// names onto CF short names, and publishes per-station and per-calendar-day
// CSV assets to a static host. This package never performs I/O; it consumes
// records the codec layer has already parsed.
//
// # Metric Conventions
//
// Metrics use the CF short-name convention of the published datasets:
//
//	tas     daily mean air temperature, °C    (DWD column TMK)
//	tasmin  daily minimum air temperature, °C (DWD column TNK)
//	tasmax  daily maximum air temperature, °C (DWD column TXK)
//	hurs    daily mean relative humidity, %   (DWD column UPM)
//
// A metric that was not observed, or whose source field failed to parse, is
// absent from a record's value map. Absent is the only missing-value
// representation: values are never NaN and never a placeholder zero, and
// aggregates skip absent values instead of treating them as 0.
//
// # Calendar Positions
//
// Analyses compare the same calendar day across years ("how warm were the
// June 15ths"). A calendar position is an "MM-DD" string. Window membership
// around a position is computed with real date arithmetic on an anchor date,
// so windows wrap correctly across month and year boundaries and Feb 29
// behaves like any other day in a leap anchor year.
//
// # Baseline
//
// Anomalies are deviations from the WMO 1961–1990 climate normal by default.
// The baseline period is an explicit argument everywhere so callers can
// compare against other reference windows.
//
// Every date-dependent function takes a clockwork.Clock argument. There is
// no package-level time source.
package domain
