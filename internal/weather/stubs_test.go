package weather

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/rainfall-dashboard/internal/clock"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type stubStore struct {
	mu           sync.Mutex
	calls        int
	query        func(stationID string, from, to time.Time) ([]Reading, error)
	stationCalls int
	stations     []Station
	stationErr   error
}

func (s *stubStore) QueryReadings(_ context.Context, stationID string, from, to time.Time) ([]Reading, error) {
	s.mu.Lock()
	s.calls++
	fn := s.query
	s.mu.Unlock()

	if fn == nil {
		return nil, nil
	}
	return fn(stationID, from, to)
}

func (s *stubStore) ListStations(context.Context) ([]Station, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stationCalls++
	if s.stationErr != nil {
		return nil, s.stationErr
	}
	return s.stations, nil
}

func (s *stubStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubRecent struct {
	mu    sync.Mutex
	calls int
	feed  []Reading
	err   error
}

func (s *stubRecent) RecentReadings(context.Context, string) ([]Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.feed, s.err
}

func (s *stubRecent) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubHistorical struct {
	mu       sync.Mutex
	calls    int
	readings []Reading
	err      error
}

func (s *stubHistorical) HistoricalReadings(context.Context, string, time.Time, time.Time) ([]Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.readings, s.err
}

func (s *stubHistorical) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubGeocoder struct {
	lat, lon float64
	err      error
}

func (g stubGeocoder) Locate(context.Context, string, string) (float64, float64, error) {
	return g.lat, g.lon, g.err
}

func newTestService(t *testing.T, src Sources, opts ...Option) (*Service, *clock.Fake) {
	t.Helper()

	fake := clock.NewFake(testNow)
	opts = append([]Option{WithClock(fake), WithScheduler(fake)}, opts...)
	svc, err := NewService(src, DefaultConfig(), opts...)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc, fake
}

func reading(stationID string, t time.Time, rain float64) Reading {
	return Reading{StationID: stationID, Time: t, Rain: rain}
}

func ms(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}
