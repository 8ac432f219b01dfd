// Package harvest copies the AEMET station inventory and recent observations
// into the store, so queries can be answered without the live feed.
package harvest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/rainfall-dashboard/internal/weather"
)

// DefaultPause is the wait between two stations, keeping the run under the
// AEMET rate limit.
const DefaultPause = 2500 * time.Millisecond

// Source provides the inventory and the recent feed of each station.
type Source interface {
	Stations(ctx context.Context) ([]weather.Station, error)
	RecentReadings(ctx context.Context, stationID string) ([]weather.Reading, error)
}

// Store is where harvested data lands.
type Store interface {
	SaveStations(ctx context.Context, stations []weather.Station) error
	QueryReadings(ctx context.Context, stationID string, from, to time.Time) ([]weather.Reading, error)
	SaveReadings(ctx context.Context, readings []weather.Reading) error
}

// Summary reports what one run did.
type Summary struct {
	RunID    string
	Stations int
	Saved    int
	Failed   int
}

// Harvester runs harvests. It is safe to call Run again after it returns.
type Harvester struct {
	source Source
	store  Store
	pause  time.Duration
	log    *zap.Logger
}

// Option configures a Harvester.
type Option func(*Harvester)

// WithPause sets the wait between stations. Zero disables it.
func WithPause(d time.Duration) Option {
	return func(h *Harvester) { h.pause = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Harvester) { h.log = l }
}

func New(source Source, store Store, opts ...Option) *Harvester {
	h := &Harvester{
		source: source,
		store:  store,
		pause:  DefaultPause,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run fetches and upserts the inventory, then stores the new readings of
// every station. A failing station is logged and skipped; only an inventory
// failure or cancellation ends the run early.
func (h *Harvester) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: uuid.NewString()}
	log := h.log.With(zap.String("run_id", sum.RunID))

	log.Info("fetching stations")
	stations, err := h.source.Stations(ctx)
	if err != nil {
		return sum, fmt.Errorf("fetch stations: %w", err)
	}
	sum.Stations = len(stations)

	log.Info("storing stations", zap.Int("count", len(stations)))
	if err := h.store.SaveStations(ctx, stations); err != nil {
		return sum, fmt.Errorf("save stations: %w", err)
	}

	for i, st := range stations {
		if err := h.wait(ctx); err != nil {
			log.Warn("harvest interrupted", zap.Int("done", i), zap.Error(err))
			return sum, err
		}

		saved, err := h.harvestStation(ctx, st)
		if err != nil {
			sum.Failed++
			log.Error("station harvest failed",
				zap.String("station_id", st.ID),
				zap.String("station", st.Name),
				zap.Error(err),
			)
			continue
		}
		sum.Saved += saved
		log.Debug("station harvested",
			zap.String("station_id", st.ID),
			zap.Int("progress", i+1),
			zap.Int("total", len(stations)),
			zap.Int("saved", saved),
		)
	}

	log.Info("harvest finished",
		zap.Int("stations", sum.Stations),
		zap.Int("saved", sum.Saved),
		zap.Int("failed", sum.Failed),
	)
	return sum, nil
}

func (h *Harvester) harvestStation(ctx context.Context, st weather.Station) (int, error) {
	readings, err := h.source.RecentReadings(ctx, st.ID)
	if err != nil {
		return 0, fmt.Errorf("recent readings: %w", err)
	}

	minFeed, maxFeed, ok := weather.TimeBounds(readings)
	if !ok {
		return 0, nil
	}

	stored, err := h.store.QueryReadings(ctx, st.ID, minFeed, maxFeed)
	if err != nil {
		return 0, fmt.Errorf("query stored readings: %w", err)
	}

	fresh := newReadings(st.ID, readings, stored)
	if err := h.store.SaveReadings(ctx, fresh); err != nil {
		return 0, fmt.Errorf("save readings: %w", err)
	}
	return len(fresh), nil
}

// newReadings keeps the feed readings outside the stored time span. With
// nothing stored every reading is new.
func newReadings(stationID string, feed, stored []weather.Reading) []weather.Reading {
	minStored, maxStored, known := weather.TimeBounds(stored)

	out := make([]weather.Reading, 0, len(feed))
	for _, r := range feed {
		if !known || r.Time.After(maxStored) || r.Time.Before(minStored) {
			r.StationID = stationID
			out = append(out, r)
		}
	}
	return out
}

func (h *Harvester) wait(ctx context.Context) error {
	if h.pause <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(h.pause)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
