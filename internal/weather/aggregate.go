package weather

import (
	"context"
	"math"
	"time"
)

const earthRadiusKm = 6371

// TotalRain sums the rainfall of the readings GetReadings returns for q.
// The bounds of the result are the query bounds when given, otherwise the
// times of the first and last merged readings.
func (s *Service) TotalRain(ctx context.Context, q ReadingsQuery) (RainTotal, error) {
	readings, err := s.GetReadings(ctx, q)
	if err != nil {
		return RainTotal{}, err
	}
	return AggregateRain(q, readings), nil
}

// AggregateRain builds the RainTotal of readings returned for q.
func AggregateRain(q ReadingsQuery, readings []Reading) RainTotal {
	total := RainTotal{StationID: q.StationID}

	for _, r := range readings {
		total.TotalRain += r.Rain
	}

	switch {
	case !q.From.IsZero():
		total.From = timePtr(q.From)
	case len(readings) > 0:
		total.From = timePtr(readings[0].Time)
	}

	switch {
	case !q.To.IsZero():
		total.To = timePtr(q.To)
	case len(readings) > 0:
		total.To = timePtr(readings[len(readings)-1].Time)
	}

	return total
}

// DistanceKm is the great-circle distance between two points in kilometres.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(toRad(lat1))*math.Cos(toRad(lat2))
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func timePtr(t time.Time) *time.Time {
	t = t.UTC()
	return &t
}
