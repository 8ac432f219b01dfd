package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/text/encoding/charmap"

	"github.com/i474232898/rainfall-dashboard/internal/clock"
	"github.com/i474232898/rainfall-dashboard/internal/common"
	"github.com/i474232898/rainfall-dashboard/internal/weather"
)

// DefaultAEMETBaseURL is the AEMET OpenData API root.
const DefaultAEMETBaseURL = "https://opendata.aemet.es/opendata/api/"

const (
	observationTimeLayout = "2006-01-02T15:04:05"
	dailyDateLayout       = "2006-01-02"
	archiveRangeLayout    = "2006-01-02T15:04:05UTC"
)

// AEMETProvider reads station inventory, the recent observation feed and the
// daily climatological archive from AEMET OpenData.
//
// Every call is two requests: the first returns an envelope pointing at the
// payload URL, the second returns the payload in ISO-8859-15.
type AEMETProvider struct {
	name    string
	baseURL string
	apiKey  string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	clock   clock.Clock
}

// AEMETOption configures an AEMETProvider.
type AEMETOption func(*AEMETProvider)

// WithBackoff overrides the retry policy.
func WithBackoff(b BackoffConfig) AEMETOption {
	return func(p *AEMETProvider) { p.httpCfg.Backoff = b }
}

// WithClock sets the clock bounding archive requests.
func WithClock(c clock.Clock) AEMETOption {
	return func(p *AEMETProvider) { p.clock = c }
}

func NewAEMETProvider(client *http.Client, apiKey, baseURL string, opts ...AEMETOption) *AEMETProvider {
	if baseURL == "" {
		baseURL = DefaultAEMETBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	p := &AEMETProvider{
		name:    "aemet",
		baseURL: baseURL,
		apiKey:  apiKey,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
		},
		circuit: newCircuitBreaker("aemet"),
		clock:   clock.Real{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *AEMETProvider) Name() string {
	return p.name
}

type aemetEnvelope struct {
	Estado      int    `json:"estado"`
	Datos       string `json:"datos"`
	Descripcion string `json:"descripcion"`
}

type aemetStation struct {
	Indicativo string `json:"indicativo"`
	Nombre     string `json:"nombre"`
	Latitud    string `json:"latitud"`
	Longitud   string `json:"longitud"`
}

type aemetObservation struct {
	Fint string    `json:"fint"`
	Prec aemetRain `json:"prec"`
}

type aemetDaily struct {
	Fecha string    `json:"fecha"`
	Prec  aemetRain `json:"prec"`
}

// aemetRain accepts a JSON number, a decimal string with comma separator or
// null. Non-numeric strings such as "Ip" (inappreciable) decode as 0.
type aemetRain float64

func (r *aemetRain) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*r = 0
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = aemetRain(common.ParseDecimal(s))
	default:
		v, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return fmt.Errorf("prec: %w", err)
		}
		*r = aemetRain(v)
	}
	return nil
}

// Stations returns the full AEMET station inventory.
func (p *AEMETProvider) Stations(ctx context.Context) ([]weather.Station, error) {
	var raw []aemetStation
	if err := p.call(ctx, "valores/climatologicos/inventarioestaciones/todasestaciones/", &raw); err != nil {
		return nil, err
	}

	stations := make([]weather.Station, 0, len(raw))
	for _, s := range raw {
		lat, err := parseCoordinate(s.Latitud, 'N', 'S')
		if err != nil {
			return nil, fmt.Errorf("station %s: latitude: %w", s.Indicativo, err)
		}
		lon, err := parseCoordinate(s.Longitud, 'E', 'W')
		if err != nil {
			return nil, fmt.Errorf("station %s: longitude: %w", s.Indicativo, err)
		}
		stations = append(stations, weather.Station{
			ID:   s.Indicativo,
			Name: common.TitleCase(s.Nombre),
			Lat:  lat,
			Lon:  lon,
		})
	}
	return stations, nil
}

// RecentReadings returns the hourly observations of roughly the last day.
func (p *AEMETProvider) RecentReadings(ctx context.Context, stationID string) ([]weather.Reading, error) {
	var raw []aemetObservation
	path := "observacion/convencional/datos/estacion/" + url.PathEscape(stationID)
	if err := p.call(ctx, path, &raw); err != nil {
		return nil, err
	}

	readings := make([]weather.Reading, 0, len(raw))
	for _, o := range raw {
		ts, err := time.ParseInLocation(observationTimeLayout, strings.TrimSuffix(o.Fint, "Z"), time.UTC)
		if err != nil {
			return nil, fmt.Errorf("fint %q: %w", o.Fint, err)
		}
		readings = append(readings, weather.Reading{
			StationID: stationID,
			Time:      ts,
			Rain:      float64(o.Prec),
		})
	}
	return readings, nil
}

// HistoricalReadings returns daily totals between from and min(to, now).
func (p *AEMETProvider) HistoricalReadings(ctx context.Context, stationID string, from, to time.Time) ([]weather.Reading, error) {
	if now := p.clock.Now(); to.IsZero() || to.After(now) {
		to = now
	}

	path := fmt.Sprintf("valores/climatologicos/diarios/datos/fechaini/%s/fechafin/%s/estacion/%s/",
		from.UTC().Format(archiveRangeLayout),
		to.UTC().Format(archiveRangeLayout),
		url.PathEscape(stationID),
	)

	var raw []aemetDaily
	if err := p.call(ctx, path, &raw); err != nil {
		return nil, err
	}

	readings := make([]weather.Reading, 0, len(raw))
	for _, d := range raw {
		day, err := time.ParseInLocation(dailyDateLayout, d.Fecha, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("fecha %q: %w", d.Fecha, err)
		}
		readings = append(readings, weather.Reading{
			StationID: stationID,
			Time:      day,
			Rain:      float64(d.Prec),
		})
	}
	return readings, nil
}

// call resolves the envelope at path and decodes the payload it points to.
func (p *AEMETProvider) call(ctx context.Context, path string, out any) error {
	body, err := p.fetch(ctx, p.baseURL+path+"?api_key="+url.QueryEscape(p.apiKey))
	if err != nil {
		return err
	}

	var env aemetEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("aemet: decode envelope: %w", err)
	}
	if env.Estado != http.StatusOK || env.Datos == "" {
		return fmt.Errorf("%w: aemet estado %d: %s", errUpstream, env.Estado, env.Descripcion)
	}

	payload, err := p.fetch(ctx, env.Datos)
	if err != nil {
		return err
	}

	// An error payload is an object carrying its own estado.
	if trimmed := bytes.TrimSpace(payload); len(trimmed) > 0 && trimmed[0] == '{' {
		var inner aemetEnvelope
		if err := json.Unmarshal(trimmed, &inner); err == nil && inner.Estado != 0 && inner.Estado != http.StatusOK {
			return fmt.Errorf("%w: aemet estado %d: %s", errUpstream, inner.Estado, inner.Descripcion)
		}
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("aemet: decode payload: %w", err)
	}
	return nil
}

func (p *AEMETProvider) fetch(ctx context.Context, u string) ([]byte, error) {
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(charmap.ISO8859_15.NewDecoder().Reader(resp.Body))
}

// parseCoordinate converts AEMET's DDMMSS / DDDMMSS notation with a trailing
// hemisphere letter into signed decimal degrees.
func parseCoordinate(s string, positive, negative byte) (float64, error) {
	s = strings.TrimSpace(s)
	if len(s) < 6 {
		return 0, fmt.Errorf("malformed coordinate %q", s)
	}

	var sign float64
	switch s[len(s)-1] {
	case positive:
		sign = 1
	case negative:
		sign = -1
	default:
		return 0, fmt.Errorf("malformed coordinate %q", s)
	}

	digits := s[:len(s)-1]
	deg, err := strconv.Atoi(digits[:len(digits)-4])
	if err != nil {
		return 0, fmt.Errorf("malformed coordinate %q", s)
	}
	minutes, err := strconv.Atoi(digits[len(digits)-4 : len(digits)-2])
	if err != nil {
		return 0, fmt.Errorf("malformed coordinate %q", s)
	}
	seconds, err := strconv.Atoi(digits[len(digits)-2:])
	if err != nil {
		return 0, fmt.Errorf("malformed coordinate %q", s)
	}
	if minutes >= 60 || seconds >= 60 {
		return 0, fmt.Errorf("malformed coordinate %q", s)
	}

	return sign * (float64(deg) + float64(minutes)/60 + float64(seconds)/3600), nil
}
