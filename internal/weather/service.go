package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/rainfall-dashboard/internal/cache"
	"github.com/i474232898/rainfall-dashboard/internal/clock"
)

var (
	// ErrStationRequired is returned when a query has no station ID.
	ErrStationRequired = errors.New("station id is required")
	// ErrGeocodingDisabled is returned by StationsNearPlace without a Geocoder.
	ErrGeocodingDisabled = errors.New("geocoding is not configured")
)

// Default cache lifetimes.
const (
	DefaultStoreTTL      = 6 * time.Hour
	DefaultRecentTTL     = time.Hour
	DefaultHistoricalTTL = time.Hour
	DefaultStationsTTL   = 24 * time.Hour
	// DefaultRecentHorizon is how far back the recent feed reaches. Queries
	// ending before it never consult the feed.
	DefaultRecentHorizon = 24 * time.Hour
)

// Config holds the cache lifetimes of a Service.
type Config struct {
	StoreTTL      time.Duration
	RecentTTL     time.Duration
	HistoricalTTL time.Duration
	StationsTTL   time.Duration
	RecentHorizon time.Duration
}

// DefaultConfig returns the default lifetimes.
func DefaultConfig() Config {
	return Config{
		StoreTTL:      DefaultStoreTTL,
		RecentTTL:     DefaultRecentTTL,
		HistoricalTTL: DefaultHistoricalTTL,
		StationsTTL:   DefaultStationsTTL,
		RecentHorizon: DefaultRecentHorizon,
	}
}

// Sources are the collaborators a Service reads from. Recent and Historical
// may be nil, in which case those branches are always empty.
type Sources struct {
	Store      ReadingStore
	Stations   StationStore
	Recent     RecentSource
	Historical HistoricalSource
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock, for the service and its caches.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithScheduler replaces the scheduler driving cache sweeps.
func WithScheduler(sch clock.Scheduler) Option {
	return func(s *Service) { s.scheduler = sch }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithGeocoder enables StationsNearPlace.
func WithGeocoder(g Geocoder) Option {
	return func(s *Service) { s.geocoder = g }
}

// Service answers rainfall queries by reconciling the persistent store with
// the live feeds. It owns every cache and the station watermarks.
type Service struct {
	src       Sources
	cfg       Config
	clock     clock.Clock
	scheduler clock.Scheduler
	log       *zap.Logger
	geocoder  Geocoder

	stored     *cache.Loader[[]Reading]
	recent     *cache.Loader[[]Reading]
	historical *cache.Loader[[]Reading]
	watermarks *Watermarks
	stations   *stationList
}

// NewService creates a Service.
func NewService(src Sources, cfg Config, opts ...Option) (*Service, error) {
	if src.Store == nil {
		return nil, errors.New("weather: reading store is required")
	}
	if src.Stations == nil {
		return nil, errors.New("weather: station store is required")
	}

	s := &Service{
		src:        src,
		cfg:        cfg,
		clock:      clock.Real{},
		scheduler:  clock.Real{},
		log:        zap.NewNop(),
		watermarks: NewWatermarks(),
	}
	for _, opt := range opts {
		opt(s)
	}

	cacheOpts := []cache.Option{cache.WithClock(s.clock), cache.WithScheduler(s.scheduler)}

	var err error
	if s.stored, err = cache.NewLoader[[]Reading](cfg.StoreTTL, cacheOpts...); err != nil {
		return nil, fmt.Errorf("store cache: %w", err)
	}
	if s.recent, err = cache.NewLoader[[]Reading](cfg.RecentTTL, cacheOpts...); err != nil {
		return nil, fmt.Errorf("recent cache: %w", err)
	}
	if s.historical, err = cache.NewLoader[[]Reading](cfg.HistoricalTTL, cacheOpts...); err != nil {
		return nil, fmt.Errorf("historical cache: %w", err)
	}
	if s.stations, err = newStationList(src.Stations, cfg.StationsTTL, s.clock); err != nil {
		return nil, fmt.Errorf("station cache: %w", err)
	}

	return s, nil
}

// Close stops the background sweepers of the caches.
func (s *Service) Close() {
	s.stored.Close()
	s.recent.Close()
	s.historical.Close()
}

// Watermarks exposes the per-station watermarks.
func (s *Service) Watermarks() *Watermarks {
	return s.watermarks
}

// GetReadings returns the readings of a station in the query range.
//
// The store is always queried. The recent feed is consulted when the range
// ends inside the recent horizon, and the historical archive when the range
// starts before the earliest reading ever seen in the store for the station.
// A failing source contributes nothing; it never fails the query.
func (s *Service) GetReadings(ctx context.Context, q ReadingsQuery) ([]Reading, error) {
	stationID := strings.TrimSpace(q.StationID)
	if stationID == "" {
		return nil, ErrStationRequired
	}

	now := s.clock.Now()
	from, to := NormalizeRange(q.From, q.To, now)
	watermark, known := s.watermarks.Get(stationID)

	var (
		wg                           sync.WaitGroup
		stored, recent, historical []Reading
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		stored = s.readingsFromStore(ctx, stationID, from, to)
	}()

	if s.src.Recent != nil && to.After(now.Add(-s.cfg.RecentHorizon)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recent = s.readingsFromRecent(ctx, stationID, from, to)
		}()
	}

	if s.src.Historical != nil && (!known || from.Before(watermark)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			historical = s.readingsFromHistorical(ctx, stationID, from, to)
		}()
	}

	wg.Wait()

	if minStored, _, ok := TimeBounds(stored); ok && s.watermarks.Lower(stationID, minStored) {
		s.log.Debug("watermark lowered",
			zap.String("station_id", stationID),
			zap.Time("watermark", minStored),
		)
	}

	merged := Merge(stored, recent, historical)
	s.log.Debug("readings merged",
		zap.String("station_id", stationID),
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("stored", len(stored)),
		zap.Int("recent", len(recent)),
		zap.Int("historical", len(historical)),
		zap.Int("merged", len(merged)),
	)
	return merged, nil
}

func (s *Service) readingsFromStore(ctx context.Context, stationID string, from, to time.Time) []Reading {
	key := rangeKey(stationID, from, to)
	readings, err := s.stored.Load(ctx, key, func(ctx context.Context) ([]Reading, error) {
		return s.src.Store.QueryReadings(ctx, stationID, from, to)
	})
	if err != nil {
		s.log.Warn("store query failed; using no stored readings",
			zap.String("station_id", stationID), zap.Error(err))
		return nil
	}
	return readings
}

// readingsFromRecent caches the whole feed per station and filters per query.
func (s *Service) readingsFromRecent(ctx context.Context, stationID string, from, to time.Time) []Reading {
	feed, err := s.recent.Load(ctx, stationID, func(ctx context.Context) ([]Reading, error) {
		return s.src.Recent.RecentReadings(ctx, stationID)
	})
	if err != nil {
		s.log.Warn("recent feed failed; using no recent readings",
			zap.String("station_id", stationID), zap.Error(err))
		return nil
	}
	return filterRange(feed, from, to)
}

func (s *Service) readingsFromHistorical(ctx context.Context, stationID string, from, to time.Time) []Reading {
	key := rangeKey(stationID, from, to)
	readings, err := s.historical.Load(ctx, key, func(ctx context.Context) ([]Reading, error) {
		return s.src.Historical.HistoricalReadings(ctx, stationID, from, to)
	})
	if err != nil {
		s.log.Warn("historical archive failed; using no historical readings",
			zap.String("station_id", stationID), zap.Error(err))
		return nil
	}
	return readings
}

func rangeKey(stationID string, from, to time.Time) string {
	return fmt.Sprintf("%d:%d:%s", from.UnixMilli(), to.UnixMilli(), stationID)
}
