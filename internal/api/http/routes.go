package httpapi

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/rainfall-dashboard/internal/store"
	"github.com/i474232898/rainfall-dashboard/internal/weather"
)

var validate = validator.New()

// LatestReader returns the newest stored reading of a station.
type LatestReader interface {
	LatestReading(ctx context.Context, stationID string) (weather.Reading, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, latest LatestReader) {
	v1 := app.Group("/api/v1")

	v1.Get("/stations", func(c *fiber.Ctx) error {
		var q stationsQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ctx := c.UserContext()
		switch {
		case q.Lat != nil:
			near, err := service.StationsNear(ctx, *q.Lat, *q.Lon)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "failed to list stations")
			}
			return c.JSON(near)

		case q.City != "":
			near, err := service.StationsNearPlace(ctx, q.City, q.Country)
			if errors.Is(err, weather.ErrGeocodingDisabled) {
				return fiber.NewError(fiber.StatusNotImplemented, err.Error())
			}
			if err != nil {
				return fiber.NewError(fiber.StatusBadGateway, "failed to locate place")
			}
			return c.JSON(near)

		default:
			stations, err := service.GetAllStations(ctx)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "failed to list stations")
			}
			return c.JSON(stations)
		}
	})

	v1.Get("/stations/:stationId/readings", func(c *fiber.Ctx) error {
		q, err := bindReadingsQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		readings, err := service.GetReadings(c.UserContext(), q)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(readings)
	})

	v1.Get("/stations/:stationId/rain", func(c *fiber.Ctx) error {
		q, err := bindReadingsQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		total, err := service.TotalRain(c.UserContext(), q)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(total)
	})

	v1.Get("/stations/:stationId/latest", func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Params("stationId"))
		if err := validate.Var(id, "required,max=32"); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid station id")
		}

		r, err := latest.LatestReading(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no readings stored for station")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch latest reading")
		}
		return c.JSON(r)
	})
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// stationsQuery holds the optional filters of the stations endpoint:
// either a point or a place.
type stationsQuery struct {
	Lat     *float64
	Lon     *float64
	City    string
	Country string
}

type pointQuery struct {
	Lat float64 `validate:"min=-90,max=90"`
	Lon float64 `validate:"min=-180,max=180"`
}

type placeQuery struct {
	City    string `validate:"required,max=128"`
	Country string `validate:"required,max=64"`
}

func (q *stationsQuery) bind(c *fiber.Ctx) error {
	var err error
	if q.Lat, err = parseFloatQuery(c, "lat"); err != nil {
		return err
	}
	if q.Lon, err = parseFloatQuery(c, "lon"); err != nil {
		return err
	}
	q.City = strings.TrimSpace(c.Query("city"))
	q.Country = strings.TrimSpace(c.Query("country"))

	hasPoint := q.Lat != nil || q.Lon != nil
	hasPlace := q.City != "" || q.Country != ""

	switch {
	case hasPoint && hasPlace:
		return errors.New("use either lat/lon or city/country")
	case hasPoint:
		if q.Lat == nil || q.Lon == nil {
			return errors.New("lat and lon must be given together")
		}
		return validate.Struct(pointQuery{Lat: *q.Lat, Lon: *q.Lon})
	case hasPlace:
		return validate.Struct(placeQuery{City: q.City, Country: q.Country})
	}
	return nil
}

func parseFloatQuery(c *fiber.Ctx, key string) (*float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.New(key + " must be a number")
	}
	return &v, nil
}

// readingsQuery holds the path and query parameters of the readings endpoints.
type readingsQuery struct {
	StationID string `validate:"required,max=32"`
	From      time.Time
	To        time.Time
}

func bindReadingsQuery(c *fiber.Ctx) (weather.ReadingsQuery, error) {
	q := readingsQuery{StationID: strings.TrimSpace(c.Params("stationId"))}

	var err error
	if q.From, err = parseOptionalTime(c.Query("from")); err != nil {
		return weather.ReadingsQuery{}, err
	}
	if q.To, err = parseOptionalTime(c.Query("to")); err != nil {
		return weather.ReadingsQuery{}, err
	}
	if err := validate.Struct(q); err != nil {
		return weather.ReadingsQuery{}, err
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return weather.ReadingsQuery{}, errors.New("to must not be before from")
	}

	return weather.ReadingsQuery{StationID: q.StationID, From: q.From, To: q.To}, nil
}

func parseOptionalTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return parseTime(s)
}

// parseTime tries to parse either RFC3339 or Unix milliseconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix milliseconds")
}
