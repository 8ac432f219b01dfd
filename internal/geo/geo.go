// Package geo resolves city/country pairs to coordinates with the Google
// Geocoding API.
package geo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"
)

// ErrNoAPIKey is returned by New without an API key.
var ErrNoAPIKey = errors.New("geo: api key is required")

// geocode is swapped in tests. The library keeps its key in a package
// variable, so calls are serialized.
var (
	geocodeMu sync.Mutex
	geocode   = func(apiKey string, addr geocoder.Address) (geocoder.Location, error) {
		geocodeMu.Lock()
		defer geocodeMu.Unlock()
		geocoder.ApiKey = apiKey
		return geocoder.Geocoding(addr)
	}
)

// Geocoder implements weather.Geocoder.
type Geocoder struct {
	apiKey string
}

func New(apiKey string) (*Geocoder, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoAPIKey
	}
	return &Geocoder{apiKey: apiKey}, nil
}

// Locate returns the coordinates of city in country. The lookup itself
// cannot be cancelled; ctx only bounds how long the caller waits.
func (g *Geocoder) Locate(ctx context.Context, city, country string) (float64, float64, error) {
	city, country = strings.TrimSpace(city), strings.TrimSpace(country)
	if city == "" {
		return 0, 0, errors.New("geo: city is required")
	}

	type result struct {
		loc geocoder.Location
		err error
	}
	lookup := geocode
	done := make(chan result, 1)
	go func() {
		loc, err := lookup(g.apiKey, geocoder.Address{City: city, Country: country})
		done <- result{loc, err}
	}()

	select {
	case <-ctx.Done():
		return 0, 0, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return 0, 0, fmt.Errorf("geo: locate %s, %s: %w", city, country, r.err)
		}
		return r.loc.Latitude, r.loc.Longitude, nil
	}
}
