// Package store persists stations and rainfall readings.
//
// SQLStore is backed by GORM (SQLite or MySQL). MemoryStore keeps everything
// in process and is used when no database is configured and in tests.
package store

import (
	"context"
	"errors"

	"github.com/i474232898/rainfall-dashboard/internal/weather"
)

var (
	// ErrNotFound is returned when a station has no stored readings.
	ErrNotFound = errors.New("no readings stored for station")
)

// Store is the persistence surface used by the service, the harvester and
// the HTTP layer.
type Store interface {
	weather.ReadingStore
	weather.StationStore

	// SaveStations inserts stations or updates them by ID.
	SaveStations(ctx context.Context, stations []weather.Station) error
	// SaveReadings appends readings.
	SaveReadings(ctx context.Context, readings []weather.Reading) error
	// LatestReading returns the newest stored reading of a station.
	LatestReading(ctx context.Context, stationID string) (weather.Reading, error)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLStore)(nil)
)
