package weather

import (
	"context"
	"time"
)

// ReadingStore is the persistent store of imported readings.
// Results are not ordered.
type ReadingStore interface {
	QueryReadings(ctx context.Context, stationID string, from, to time.Time) ([]Reading, error)
}

// StationStore lists the stations known to the persistent store.
type StationStore interface {
	ListStations(ctx context.Context) ([]Station, error)
}

// RecentSource is the live feed of a station's latest readings, not yet
// imported into the store. It returns the whole feed, unfiltered.
type RecentSource interface {
	RecentReadings(ctx context.Context, stationID string) ([]Reading, error)
}

// HistoricalSource is the live archive of daily readings.
type HistoricalSource interface {
	HistoricalReadings(ctx context.Context, stationID string, from, to time.Time) ([]Reading, error)
}

// Geocoder resolves a place to coordinates.
type Geocoder interface {
	Locate(ctx context.Context, city, country string) (lat, lon float64, err error)
}
