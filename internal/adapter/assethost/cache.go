package assethost

import (
	"context"
	"sync"

	"github.com/halbgrad/climate-anomaly-service/internal/domain"
	"github.com/halbgrad/climate-anomaly-service/internal/observability"
)

// CachedSource wraps a ClimateSource with in-memory LRU caches, one per
// asset kind. Only successful fetches are cached so transient failures can
// be retried.
type CachedSource struct {
	inner    domain.ClimateSource
	series   *lruCache[[]domain.TemperatureRecord]
	days     *lruCache[[]domain.StationReading]
	stations *lruCache[[]domain.Station]
	topology *lruCache[[]byte]
	metrics  *observability.Metrics
}

// NewCachedSource creates a cache decorator around a climate source.
// maxSeries and maxDays bound the per-station and per-day caches; the
// station index and topology are cached as single entries.
func NewCachedSource(inner domain.ClimateSource, maxSeries, maxDays int, metrics *observability.Metrics) *CachedSource {
	return &CachedSource{
		inner:    inner,
		series:   newLRUCache[[]domain.TemperatureRecord](maxSeries),
		days:     newLRUCache[[]domain.StationReading](maxDays),
		stations: newLRUCache[[]domain.Station](1),
		topology: newLRUCache[[]byte](1),
		metrics:  metrics,
	}
}

func (c *CachedSource) StationSeries(ctx context.Context, stationID string) ([]domain.TemperatureRecord, error) {
	if records, ok := c.series.get(stationID); ok {
		c.metrics.AssetCache.WithLabelValues(assetSeries, "hit").Inc()
		return records, nil
	}
	c.metrics.AssetCache.WithLabelValues(assetSeries, "miss").Inc()

	records, err := c.inner.StationSeries(ctx, stationID)
	if err != nil {
		return nil, err
	}
	c.series.put(stationID, records)
	return records, nil
}

func (c *CachedSource) StationDay(ctx context.Context, day domain.MonthDay) ([]domain.StationReading, error) {
	key := day.String()
	if readings, ok := c.days.get(key); ok {
		c.metrics.AssetCache.WithLabelValues(assetDay, "hit").Inc()
		return readings, nil
	}
	c.metrics.AssetCache.WithLabelValues(assetDay, "miss").Inc()

	readings, err := c.inner.StationDay(ctx, day)
	if err != nil {
		return nil, err
	}
	c.days.put(key, readings)
	return readings, nil
}

func (c *CachedSource) StationIndex(ctx context.Context) ([]domain.Station, error) {
	const key = "stations"
	if stations, ok := c.stations.get(key); ok {
		c.metrics.AssetCache.WithLabelValues(assetStations, "hit").Inc()
		return stations, nil
	}
	c.metrics.AssetCache.WithLabelValues(assetStations, "miss").Inc()

	stations, err := c.inner.StationIndex(ctx)
	if err != nil {
		return nil, err
	}
	c.stations.put(key, stations)
	return stations, nil
}

func (c *CachedSource) Topology(ctx context.Context) ([]byte, error) {
	const key = "topology"
	if doc, ok := c.topology.get(key); ok {
		c.metrics.AssetCache.WithLabelValues(assetTopology, "hit").Inc()
		return doc, nil
	}
	c.metrics.AssetCache.WithLabelValues(assetTopology, "miss").Inc()

	doc, err := c.inner.Topology(ctx)
	if err != nil {
		return nil, err
	}
	c.topology.put(key, doc)
	return doc, nil
}

// Invalidate drops every cached asset. The background refresh calls this
// after the upstream datasets are republished.
func (c *CachedSource) Invalidate() {
	c.series.purge()
	c.days.purge()
	c.stations.purge()
	c.topology.purge()
}

// lruCache is a simple thread-safe LRU cache.
type lruCache[V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry[V]
	head       *entry[V] // most recently used
	tail       *entry[V] // least recently used
}

type entry[V any] struct {
	key   string
	value V
	prev  *entry[V]
	next  *entry[V]
}

func newLRUCache[V any](maxEntries int) *lruCache[V] {
	return &lruCache[V]{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[V]) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry[V])
	c.head = nil
	c.tail = nil
}

func (c *lruCache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *entry[V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[V]) remove(e *entry[V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache[V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
