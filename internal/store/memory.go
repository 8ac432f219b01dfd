package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/rainfall-dashboard/internal/clock"
	"github.com/i474232898/rainfall-dashboard/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory Store. Readings of a station
// are kept ordered by time.
type MemoryStore struct {
	mu sync.RWMutex

	// key: station id
	readings map[string][]weather.Reading
	stations map[string]weather.Station

	// retention configuration
	maxHistory int           // max number of readings per station
	maxAge     time.Duration // optional max age for readings
	clock      clock.Clock
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		readings:   make(map[string][]weather.Reading),
		stations:   make(map[string]weather.Station),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		clock:      clock.Real{},
	}
}

// WithClock replaces the clock used for age-based retention.
func (s *MemoryStore) WithClock(c clock.Clock) *MemoryStore {
	s.clock = c
	return s
}

func (s *MemoryStore) SaveStations(_ context.Context, stations []weather.Station) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range stations {
		s.stations[st.ID] = st
	}
	return nil
}

func (s *MemoryStore) ListStations(context.Context) ([]weather.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]weather.Station, 0, len(s.stations))
	for _, st := range s.stations {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SaveReadings appends readings and enforces retention.
func (s *MemoryStore) SaveReadings(_ context.Context, readings []weather.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	touched := make(map[string]struct{})
	for _, r := range readings {
		s.readings[r.StationID] = append(s.readings[r.StationID], r)
		touched[r.StationID] = struct{}{}
	}

	for id := range touched {
		history := s.readings[id]
		sort.SliceStable(history, func(i, j int) bool { return history[i].Time.Before(history[j].Time) })

		// Enforce retention by count.
		if s.maxHistory > 0 && len(history) > s.maxHistory {
			history = history[len(history)-s.maxHistory:]
		}

		// Enforce retention by age.
		if s.maxAge > 0 {
			cutoff := s.clock.Now().Add(-s.maxAge)
			i := sort.Search(len(history), func(i int) bool { return !history[i].Time.Before(cutoff) })
			history = history[i:]
		}

		s.readings[id] = history
	}
	return nil
}

// QueryReadings returns the readings of a station between from and to (inclusive).
func (s *MemoryStore) QueryReadings(_ context.Context, stationID string, from, to time.Time) ([]weather.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []weather.Reading
	for _, r := range s.readings[stationID] {
		if !r.Time.Before(from) && !r.Time.After(to) {
			result = append(result, r)
		}
	}
	return result, nil
}

// LatestReading returns the most recent reading of a station.
func (s *MemoryStore) LatestReading(_ context.Context, stationID string) (weather.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.readings[stationID]
	if len(history) == 0 {
		return weather.Reading{}, ErrNotFound
	}
	return history[len(history)-1], nil
}

// Len reports how many readings are stored for a station.
func (s *MemoryStore) Len(stationID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.readings[stationID])
}
