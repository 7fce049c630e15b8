package live

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/halbgrad/climate-anomaly-service/internal/observability"
)

// Store keeps the latest reading per station. Readings older than maxAge
// are invisible to readers and removed by Prune.
type Store struct {
	clock   clockwork.Clock
	maxAge  time.Duration
	metrics *observability.Metrics

	mu     sync.RWMutex
	latest map[string]Reading

	received atomic.Bool
}

// NewStore creates an empty store. maxAge bounds how long a reading counts
// as current.
func NewStore(maxAge time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *Store {
	return &Store{
		clock:   clock,
		maxAge:  maxAge,
		metrics: metrics,
		latest:  make(map[string]Reading),
	}
}

// Put records a reading unless a newer one for the same station is already
// present.
func (s *Store) Put(r Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.latest[r.StationID]; ok && existing.Time.After(r.Time) {
		return
	}
	s.latest[r.StationID] = r
	s.received.Store(true)
	s.metrics.LiveStationsTracked.Set(float64(len(s.latest)))
}

// Latest returns the current reading of one station. Stale readings are
// reported as missing.
func (s *Store) Latest(stationID string) (Reading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.latest[stationID]
	if !ok || s.stale(r) {
		return Reading{}, false
	}
	return r, true
}

// Snapshot returns every current reading, sorted by station id.
func (s *Store) Snapshot() []Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()

	readings := make([]Reading, 0, len(s.latest))
	for _, r := range s.latest {
		if s.stale(r) {
			continue
		}
		readings = append(readings, r)
	}
	sort.Slice(readings, func(i, j int) bool { return readings[i].StationID < readings[j].StationID })
	return readings
}

// Prune removes stale readings and returns how many were dropped.
func (s *Store) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for id, r := range s.latest {
		if s.stale(r) {
			delete(s.latest, id)
			dropped++
		}
	}
	s.metrics.LiveStationsTracked.Set(float64(len(s.latest)))
	return dropped
}

// CheckReadiness returns nil once the store has received at least one
// reading.
func (s *Store) CheckReadiness(_ context.Context) error {
	if !s.received.Load() {
		return errors.New("live feed has not received any readings yet")
	}
	return nil
}

func (s *Store) stale(r Reading) bool {
	return s.clock.Now().Sub(r.Time) > s.maxAge
}
