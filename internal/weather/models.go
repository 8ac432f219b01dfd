package weather

import (
	"time"
)

// Reading is a single rainfall measurement for a station.
// Time has millisecond precision; readings are never mutated after creation.
type Reading struct {
	StationID string    `json:"stationId"`
	Time      time.Time `json:"time"` // always UTC
	Rain      float64   `json:"rain"` // millimetres
}

// Station is a weather station from the national inventory.
type Station struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// ReadingsQuery selects the readings of one station. A zero From means the
// beginning of the epoch and a zero To means no upper bound.
type ReadingsQuery struct {
	StationID string
	From      time.Time
	To        time.Time
}

// RainTotal is the accumulated rainfall of a station over a time range.
// From and To are nil when the range was open and no reading bounded it.
type RainTotal struct {
	StationID string     `json:"stationId"`
	From      *time.Time `json:"from"`
	To        *time.Time `json:"to"`
	TotalRain float64    `json:"totalRain"`
}

// StationDistance pairs a station with its distance to a point.
type StationDistance struct {
	Station
	DistanceKm float64 `json:"distanceKm"`
}
