package domain

// MetricKey identifies a measured climate variable by its CF short name.
type MetricKey string

// The metrics the pipeline understands. Extending the set means adding a
// constant here and appending it to KnownMetrics; the CSV codecs reject
// columns outside this list rather than inventing keys at runtime.
const (
	MetricTas    MetricKey = "tas"    // daily mean air temperature, °C
	MetricTasmin MetricKey = "tasmin" // daily minimum air temperature, °C
	MetricTasmax MetricKey = "tasmax" // daily maximum air temperature, °C
	MetricHurs   MetricKey = "hurs"   // daily mean relative humidity, %
)

// KnownMetrics lists every known metric in canonical column order.
var KnownMetrics = []MetricKey{MetricTas, MetricTasmin, MetricTasmax, MetricHurs}

// IsKnown reports whether k is one of the known metric keys.
func (k MetricKey) IsKnown() bool {
	for _, m := range KnownMetrics {
		if k == m {
			return true
		}
	}
	return false
}

// Metrics maps metric keys to observed values. A missing key means the
// metric was not observed; present values are always real numbers.
type Metrics map[MetricKey]float64

// Value returns the stored value for key and whether it is present.
func (m Metrics) Value(key MetricKey) (float64, bool) {
	v, ok := m[key]
	return v, ok
}

// Clone returns an independent copy of m. Cloning a nil map yields nil.
func (m Metrics) Clone() Metrics {
	if m == nil {
		return nil
	}
	out := make(Metrics, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
