package weather

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/i474232898/rainfall-dashboard/internal/clock"
)

// stationList memoizes the full station list for ttl. It is a single value
// with a fetch timestamp, not a keyed cache.
type stationList struct {
	store StationStore
	ttl   time.Duration
	clock clock.Clock

	mu        sync.Mutex
	stations  []Station
	fetchedAt time.Time
	loaded    bool

	sf singleflight.Group
}

func newStationList(store StationStore, ttl time.Duration, c clock.Clock) (*stationList, error) {
	if ttl <= 0 {
		return nil, errors.New("station list ttl must be positive")
	}
	return &stationList{store: store, ttl: ttl, clock: c}, nil
}

func (l *stationList) get(ctx context.Context) ([]Station, error) {
	if stations, ok := l.fresh(); ok {
		return stations, nil
	}

	res, err, _ := l.sf.Do("stations", func() (any, error) {
		if stations, ok := l.fresh(); ok {
			return stations, nil
		}

		stations, err := l.store.ListStations(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		l.stations = stations
		l.fetchedAt = l.clock.Now()
		l.loaded = true
		l.mu.Unlock()
		return stations, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]Station), nil
}

func (l *stationList) fresh() ([]Station, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.loaded || l.clock.Now().Sub(l.fetchedAt) >= l.ttl {
		return nil, false
	}
	return l.stations, true
}

// GetAllStations returns every known station. The list is refreshed from the
// store at most once per StationsTTL.
func (s *Service) GetAllStations(ctx context.Context) ([]Station, error) {
	stations, err := s.stations.get(ctx)
	if err != nil {
		return nil, err
	}
	if stations == nil {
		stations = []Station{}
	}
	return stations, nil
}

// StationsNear returns every station ordered by distance to (lat, lon).
func (s *Service) StationsNear(ctx context.Context, lat, lon float64) ([]StationDistance, error) {
	stations, err := s.GetAllStations(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]StationDistance, 0, len(stations))
	for _, st := range stations {
		out = append(out, StationDistance{
			Station:    st,
			DistanceKm: DistanceKm(lat, lon, st.Lat, st.Lon),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})
	return out, nil
}

// StationsNearPlace geocodes city/country and orders stations by distance to it.
func (s *Service) StationsNearPlace(ctx context.Context, city, country string) ([]StationDistance, error) {
	if s.geocoder == nil {
		return nil, ErrGeocodingDisabled
	}
	lat, lon, err := s.geocoder.Locate(ctx, city, country)
	if err != nil {
		return nil, err
	}
	return s.StationsNear(ctx, lat, lon)
}
