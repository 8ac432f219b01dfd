package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/rainfall-dashboard/internal/clock"
	"github.com/i474232898/rainfall-dashboard/internal/store"
	"github.com/i474232898/rainfall-dashboard/internal/weather"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type fixedGeocoder struct {
	lat, lon float64
	err      error
}

func (g fixedGeocoder) Locate(context.Context, string, string) (float64, float64, error) {
	return g.lat, g.lon, g.err
}

type failingStations struct{ *store.MemoryStore }

func (failingStations) ListStations(context.Context) ([]weather.Station, error) {
	return nil, errors.New("db down")
}

func newTestApp(t *testing.T, mem *store.MemoryStore, stations weather.StationStore, opts ...weather.Option) *fiber.App {
	t.Helper()

	fake := clock.NewFake(now)
	opts = append([]weather.Option{weather.WithClock(fake), weather.WithScheduler(fake)}, opts...)
	svc, err := weather.NewService(weather.Sources{Store: mem, Stations: stations}, weather.DefaultConfig(), opts...)
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, svc, mem)
	return app
}

func seededStore(t *testing.T) *store.MemoryStore {
	t.Helper()

	mem := store.NewMemoryStore(0, 0)
	ctx := context.Background()
	require.NoError(t, mem.SaveStations(ctx, []weather.Station{
		{ID: "3195", Name: "Madrid, Retiro", Lat: 40.4119, Lon: -3.6781},
		{ID: "0201D", Name: "Barcelona", Lat: 41.3903, Lon: 2.2},
	}))
	require.NoError(t, mem.SaveReadings(ctx, []weather.Reading{
		{StationID: "3195", Time: now.Add(-3 * time.Hour), Rain: 1.5},
		{StationID: "3195", Time: now.Add(-2 * time.Hour), Rain: 0.5},
	}))
	return mem
}

func doGet(t *testing.T, app *fiber.App, target string) (int, []byte) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestListStations(t *testing.T) {
	mem := seededStore(t)
	app := newTestApp(t, mem, mem)

	status, body := doGet(t, app, "/api/v1/stations")
	require.Equal(t, http.StatusOK, status)

	var stations []weather.Station
	require.NoError(t, json.Unmarshal(body, &stations))
	assert.Len(t, stations, 2)
}

func TestListStationsFailure(t *testing.T) {
	mem := seededStore(t)
	app := newTestApp(t, mem, failingStations{mem})

	status, body := doGet(t, app, "/api/v1/stations")
	assert.Equal(t, http.StatusInternalServerError, status)

	var e struct {
		Error   bool   `json:"error"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(body, &e))
	assert.True(t, e.Error)
	assert.Equal(t, "failed to list stations", e.Message)
}

func TestStationsNearPoint(t *testing.T) {
	mem := seededStore(t)
	app := newTestApp(t, mem, mem)

	status, body := doGet(t, app, "/api/v1/stations?lat=41.98&lon=2.82")
	require.Equal(t, http.StatusOK, status)

	var near []weather.StationDistance
	require.NoError(t, json.Unmarshal(body, &near))
	require.Len(t, near, 2)
	assert.Equal(t, "0201D", near[0].ID)
	assert.Greater(t, near[1].DistanceKm, near[0].DistanceKm)
}

func TestStationsQueryValidation(t *testing.T) {
	mem := seededStore(t)
	app := newTestApp(t, mem, mem)

	for _, target := range []string{
		"/api/v1/stations?lat=40",
		"/api/v1/stations?lat=abc&lon=1",
		"/api/v1/stations?lat=91&lon=0",
		"/api/v1/stations?lat=40&lon=-3&city=Madrid&country=ES",
		"/api/v1/stations?city=Madrid",
	} {
		status, _ := doGet(t, app, target)
		assert.Equal(t, http.StatusBadRequest, status, target)
	}
}

func TestStationsNearPlace(t *testing.T) {
	mem := seededStore(t)

	app := newTestApp(t, mem, mem)
	status, _ := doGet(t, app, "/api/v1/stations?city=Girona&country=ES")
	assert.Equal(t, http.StatusNotImplemented, status)

	app = newTestApp(t, mem, mem, weather.WithGeocoder(fixedGeocoder{lat: 41.98, lon: 2.82}))
	status, body := doGet(t, app, "/api/v1/stations?city=Girona&country=ES")
	require.Equal(t, http.StatusOK, status)
	var near []weather.StationDistance
	require.NoError(t, json.Unmarshal(body, &near))
	assert.Equal(t, "0201D", near[0].ID)

	app = newTestApp(t, mem, mem, weather.WithGeocoder(fixedGeocoder{err: errors.New("ZERO_RESULTS")}))
	status, _ = doGet(t, app, "/api/v1/stations?city=Atlantis&country=ES")
	assert.Equal(t, http.StatusBadGateway, status)
}

func TestReadings(t *testing.T) {
	mem := seededStore(t)
	app := newTestApp(t, mem, mem)

	from := now.Add(-140 * time.Minute).Format(time.RFC3339)
	status, body := doGet(t, app, "/api/v1/stations/3195/readings?from="+from)
	require.Equal(t, http.StatusOK, status)

	var readings []weather.Reading
	require.NoError(t, json.Unmarshal(body, &readings))
	require.Len(t, readings, 1, "from rounds up to the next hour")
	assert.InDelta(t, 0.5, readings[0].Rain, 1e-9)
}

func TestReadingsAcceptsUnixMillis(t *testing.T) {
	mem := seededStore(t)
	app := newTestApp(t, mem, mem)

	status, body := doGet(t, app, "/api/v1/stations/3195/readings?from=0&to="+
		itoa(now.Add(-150*time.Minute).UnixMilli()))
	require.Equal(t, http.StatusOK, status)

	var readings []weather.Reading
	require.NoError(t, json.Unmarshal(body, &readings))
	require.Len(t, readings, 1)
	assert.InDelta(t, 1.5, readings[0].Rain, 1e-9)
}

func TestReadingsValidation(t *testing.T) {
	mem := seededStore(t)
	app := newTestApp(t, mem, mem)

	for _, target := range []string{
		"/api/v1/stations/3195/readings?from=yesterday",
		"/api/v1/stations/3195/readings?from=2024-03-10T00:00:00Z&to=2024-03-09T00:00:00Z",
		"/api/v1/stations/" + strings.Repeat("9", 33) + "/readings",
	} {
		status, _ := doGet(t, app, target)
		assert.Equal(t, http.StatusBadRequest, status, target)
	}
}

func TestRain(t *testing.T) {
	mem := seededStore(t)
	app := newTestApp(t, mem, mem)

	status, body := doGet(t, app, "/api/v1/stations/3195/rain")
	require.Equal(t, http.StatusOK, status)

	var total weather.RainTotal
	require.NoError(t, json.Unmarshal(body, &total))
	assert.Equal(t, "3195", total.StationID)
	assert.InDelta(t, 2.0, total.TotalRain, 1e-9)
	require.NotNil(t, total.From)
	assert.True(t, total.From.Equal(now.Add(-3*time.Hour)))
}

func TestLatest(t *testing.T) {
	mem := seededStore(t)
	app := newTestApp(t, mem, mem)

	status, body := doGet(t, app, "/api/v1/stations/3195/latest")
	require.Equal(t, http.StatusOK, status)
	var r weather.Reading
	require.NoError(t, json.Unmarshal(body, &r))
	assert.True(t, r.Time.Equal(now.Add(-2*time.Hour)))

	status, _ = doGet(t, app, "/api/v1/stations/0201D/latest")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestParseTime(t *testing.T) {
	ts, err := parseTime("2024-03-10T13:00:00+01:00")
	require.NoError(t, err)
	assert.True(t, ts.Equal(now))

	ts, err = parseTime(itoa(now.UnixMilli()))
	require.NoError(t, err)
	assert.True(t, ts.Equal(now))

	_, err = parseTime("10/03/2024")
	assert.Error(t, err)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
